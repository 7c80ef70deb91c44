package dto

// TextEventRequest is the body of POST /events/text
type TextEventRequest struct {
	EventID    string `json:"event_id"`
	CustomerID string `json:"customer_id" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

// FileEventForm is the multipart form of POST /events/file; the document goes in "file"
type FileEventForm struct {
	EventID    string `form:"event_id"`
	CustomerID string `form:"customer_id" binding:"required"`
	MimeType   string `form:"mime_type"`
}

type EventResponse struct {
	EventID    string `json:"event_id"`
	CustomerID string `json:"customer_id"`
	State      string `json:"state,omitempty"`
	Error      string `json:"error,omitempty"`
}

type OrderDTO struct {
	OrderID     string   `json:"order_id"`
	CustomerID  string   `json:"customer_id"`
	FileNames   []string `json:"file_names"`
	FileCount   int      `json:"file_count"`
	TotalPages  int      `json:"total_pages"`
	TotalCost   string   `json:"total_cost"`
	CompletedAt string   `json:"completed_at"`
}

type ListOrdersRequest struct {
	CustomerID string `form:"customer_id"`
	Limit      int    `form:"limit"`
}

type ListOrdersResponse struct {
	Orders []OrderDTO `json:"orders"`
}
