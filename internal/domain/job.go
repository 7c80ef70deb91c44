package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FileDescriptor is one uploaded document
type FileDescriptor struct {
	FileName      string `json:"file_name"`
	StoragePath   string `json:"storage_path"`
	PageCount     int    `json:"page_count"`
	PagesResolved bool   `json:"pages_resolved"`
}

// Pages returns the resolved page count, 0 while unresolved
func (f FileDescriptor) Pages() int {
	if !f.PagesResolved || f.PageCount < 0 {
		return 0
	}
	return f.PageCount
}

// Job is the tracked print order for one customer
type Job struct {
	CustomerID     string              `json:"customer_id"`
	State          State               `json:"state"`
	Files          []FileDescriptor    `json:"files"`
	Excluded       map[string]struct{} `json:"-"`
	CreatedAt      time.Time           `json:"created_at"`
	LastActivityAt time.Time           `json:"last_activity_at"`
	ExpiresAt      time.Time           `json:"expires_at"`
}

// NewJob builds an empty PENDING job
func NewJob(customerID string, now time.Time, retention time.Duration) *Job {
	return &Job{
		CustomerID:     customerID,
		State:          StatePending,
		Files:          []FileDescriptor{},
		Excluded:       map[string]struct{}{},
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(retention),
	}
}

// Clone returns a deep copy safe to hand outside the store lock
func (j *Job) Clone() Job {
	c := *j
	c.Files = make([]FileDescriptor, len(j.Files))
	copy(c.Files, j.Files)
	c.Excluded = make(map[string]struct{}, len(j.Excluded))
	for name := range j.Excluded {
		c.Excluded[name] = struct{}{}
	}
	return c
}

// ExcludedNames returns the excluded names in file order
func (j *Job) ExcludedNames() []string {
	names := make([]string, 0, len(j.Excluded))
	seen := make(map[string]bool, len(j.Excluded))
	for _, f := range j.Files {
		if _, ok := j.Excluded[f.FileName]; ok && !seen[f.FileName] {
			seen[f.FileName] = true
			names = append(names, f.FileName)
		}
	}
	return names
}

// HasFile reports whether any file carries the given name
func (j *Job) HasFile(name string) bool {
	for _, f := range j.Files {
		if f.FileName == name {
			return true
		}
	}
	return false
}

// Order is the record of a completed print run
type Order struct {
	OrderID     string
	CustomerID  string
	FileNames   []string
	FileCount   int
	TotalPages  int
	TotalCost   decimal.Decimal
	CompletedAt time.Time
}
