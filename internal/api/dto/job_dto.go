package dto

// ListJobsRequest holds the query parameters of GET /jobs
type ListJobsRequest struct {
	State    string `form:"state"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type FileDTO struct {
	Number    int    `json:"number"`
	FileName  string `json:"file_name"`
	PageCount *int   `json:"page_count"` // null until resolved
	Excluded  bool   `json:"excluded"`
}

type JobDTO struct {
	CustomerID     string    `json:"customer_id"`
	State          string    `json:"state"`
	Files          []FileDTO `json:"files"`
	TotalPages     int       `json:"total_pages"`
	TotalCost      string    `json:"total_cost"`
	CreatedAt      string    `json:"created_at"`
	LastActivityAt string    `json:"last_activity_at"`
	ExpiresAt      string    `json:"expires_at"`
}

type SweepResponse struct {
	Removed int `json:"removed"`
}
