package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/printdesk/internal/api/dto"
	"github.com/cuongbtq/printdesk/internal/domain"
	"github.com/cuongbtq/printdesk/internal/pricing"
	"github.com/gin-gonic/gin"
)

// ListJobs handles GET /api/v1/jobs
// Lists tracked jobs ordered by customer id with cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	h.logger.Info("ListJobs called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
	)

	// 1. Parse query parameters
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	// 2. Validate parameters
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	state := domain.State(strings.ToUpper(strings.TrimSpace(req.State)))

	// 3. Decode cursor for pagination
	after, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	// 4. Filter the snapshot
	jobs := make([]domain.Job, 0, req.PageSize+1)
	for _, job := range h.jobs.List() {
		if after != "" && job.CustomerID <= after {
			continue
		}
		if state != "" && job.State != state {
			continue
		}
		jobs = append(jobs, job)
		if len(jobs) > req.PageSize {
			break
		}
	}

	// 5. Prepare response with next cursor if more results exist
	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = h.toDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		nextCursor = EncodeJobCursor(jobs[len(jobs)-1].CustomerID)
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// GetJob handles GET /api/v1/jobs/:customer_id
func (h *JobHandler) GetJob(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("customer_id"))
	if customerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "customer_id is required",
		})
		return
	}

	job, ok := h.jobs.Get(customerID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	}

	c.JSON(http.StatusOK, h.toDTO(&job))
}

// CancelJob handles POST /api/v1/jobs/:customer_id/cancel
// Cancels a job that is not being printed
func (h *JobHandler) CancelJob(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("customer_id"))

	h.logger.Info("CancelJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("customer_id", customerID),
	)

	job, err := h.canceler.Cancel(customerID)
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Job not found",
		})
		return
	case errors.Is(err, domain.ErrStateChanged):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Job cannot be cancelled in its current state",
			"state": string(job.State),
		})
		return
	case err != nil:
		h.logger.Error("Failed to cancel job",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel job",
		})
		return
	}

	c.JSON(http.StatusOK, h.toDTO(&job))
}

// DeleteJob handles DELETE /api/v1/jobs/:customer_id
// Drops the job and the customer's stored files
func (h *JobHandler) DeleteJob(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("customer_id"))

	h.logger.Info("DeleteJob called",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("customer_id", customerID),
	)

	job, deleted := h.jobs.DeleteIf(customerID, func(state domain.State) bool {
		return !state.InProgress()
	})
	if !deleted {
		if job.CustomerID == "" {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error": "Job is being printed",
			"state": string(job.State),
		})
		return
	}

	h.disarm(customerID)

	if h.cleaner != nil {
		if err := h.cleaner.DeleteCustomerStorage(customerID); err != nil {
			h.logger.Warn("Failed to delete customer storage",
				slog.String("customer_id", customerID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

// SweepJobs handles POST /api/v1/jobs/sweep
// Runs the retention sweep immediately
func (h *JobHandler) SweepJobs(c *gin.Context) {
	removed := h.jobs.SweepExpired(c.Request.Context(), time.Now())

	h.logger.Info("Manual sweep finished", slog.Int("removed", removed))

	c.JSON(http.StatusOK, dto.SweepResponse{Removed: removed})
}

func (h *JobHandler) disarm(customerID string) {
	if h.notifier != nil {
		h.notifier.Disarm(customerID)
	}
}

func (h *JobHandler) toDTO(job *domain.Job) dto.JobDTO {
	files := make([]dto.FileDTO, len(job.Files))
	for i, f := range job.Files {
		_, excluded := job.Excluded[f.FileName]
		files[i] = dto.FileDTO{
			Number:   i + 1,
			FileName: f.FileName,
			Excluded: excluded,
		}
		if f.PagesResolved {
			pages := f.Pages()
			files[i].PageCount = &pages
		}
	}

	totalPages := pricing.TotalPages(pricing.Printable(job.Files, job.Excluded))

	return dto.JobDTO{
		CustomerID:     job.CustomerID,
		State:          string(job.State),
		Files:          files,
		TotalPages:     totalPages,
		TotalCost:      pricing.Price(totalPages, h.rate).StringFixed(2),
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		LastActivityAt: job.LastActivityAt.Format(time.RFC3339),
		ExpiresAt:      job.ExpiresAt.Format(time.RFC3339),
	}
}
