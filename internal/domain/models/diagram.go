package models

import "time"

// Diagram is a saved draw.io document.
type Diagram struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	XML       string    `json:"xml" db:"xml"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DiagramSummary is the list view of a diagram.
type DiagramSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
