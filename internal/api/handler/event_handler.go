package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/cuongbtq/printdesk/internal/api/dto"
	"github.com/cuongbtq/printdesk/internal/gateway"
	"github.com/cuongbtq/printdesk/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PostText handles POST /api/v1/events/text
// Feeds a customer text message through the workflow and waits for it to be handled
func (h *EventHandler) PostText(c *gin.Context) {
	var req dto.TextEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	ev := &gateway.Event{
		EventID:    req.EventID,
		Type:       gateway.EventTypeText,
		CustomerID: req.CustomerID,
		Text:       req.Text,
	}

	h.dispatch(c, ev)
}

// PostFile handles POST /api/v1/events/file
// Accepts a multipart upload in the "file" field
func (h *EventHandler) PostFile(c *gin.Context) {
	if c.Request.ContentLength > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": "File too large",
		})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "File too large",
			})
			return
		}
		h.logger.Error("Missing upload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "file is required",
		})
		return
	}

	var form dto.FileEventForm
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Error("Invalid form", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "customer_id is required",
		})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read upload",
		})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("Failed to read upload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read upload",
		})
		return
	}

	mimeType := form.MimeType
	if mimeType == "" {
		mimeType = header.Header.Get("Content-Type")
	}

	ev := &gateway.Event{
		EventID:    form.EventID,
		Type:       gateway.EventTypeFile,
		CustomerID: form.CustomerID,
		FileName:   filepath.Base(header.Filename),
		MimeType:   mimeType,
		Data:       data,
	}

	h.dispatch(c, ev)
}

func (h *EventHandler) dispatch(c *gin.Context, ev *gateway.Event) {
	if ev.EventID == "" {
		ev.EventID = uuid.New().String()
	}

	if err := ev.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	h.logger.Info("Event received over HTTP",
		slog.String("event_id", ev.EventID),
		slog.String("type", ev.Type),
		slog.String("customer_id", ev.CustomerID),
	)

	result, err := h.events.Dispatch(c.Request.Context(), ev)
	if err != nil {
		if errors.Is(err, gateway.ErrDispatcherStopped) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service is shutting down",
			})
			return
		}
		h.logger.Error("Failed to dispatch event",
			slog.String("event_id", ev.EventID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to dispatch event",
		})
		return
	}

	c.JSON(http.StatusAccepted, toEventResponse(ev, result))
}

func toEventResponse(ev *gateway.Event, result workflow.Result) dto.EventResponse {
	resp := dto.EventResponse{
		EventID:    ev.EventID,
		CustomerID: ev.CustomerID,
		State:      string(result.State),
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}
