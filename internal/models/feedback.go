package models

import "time"

// Feedback represents a row in the PostgreSQL feedback table.
type Feedback struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Username string `json:"username"`
}

// Export is the JSON document written to object storage for a user's feedback.
type Export struct {
	Username   string     `json:"username"`
	ExportedAt time.Time  `json:"exported_at"`
	Feedback   []Feedback `json:"feedback"`
}
