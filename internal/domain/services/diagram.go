package services

import (
	"context"

	"diagramgen/internal/domain/models"
)

// SaveDiagramRequest is the DTO for saving or updating a diagram
type SaveDiagramRequest struct {
	XML  string  `json:"xml"`
	Name *string `json:"name,omitempty"`
}

// DiagramService defines business logic operations for saved diagrams
type DiagramService interface {
	// SaveDiagram stores a new diagram and returns it
	SaveDiagram(ctx context.Context, req *SaveDiagramRequest) (*models.Diagram, error)

	// GetDiagram retrieves a diagram by ID
	GetDiagram(ctx context.Context, id string) (*models.Diagram, error)

	// UpdateDiagram replaces the XML and, if given, the name
	UpdateDiagram(ctx context.Context, id string, req *SaveDiagramRequest) (*models.Diagram, error)

	// ListDiagrams returns summaries of all diagrams
	ListDiagrams(ctx context.Context) ([]models.DiagramSummary, error)

	// DeleteDiagram removes a diagram
	DeleteDiagram(ctx context.Context, id string) error

	// CountDiagrams returns the number of saved diagrams
	CountDiagrams(ctx context.Context) (int, error)
}
