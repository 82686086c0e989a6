package repositories

import (
	"context"

	"diagramgen/internal/domain/models"
)

// DiagramRepository defines data access operations for saved diagrams
type DiagramRepository interface {
	// Create stores a new diagram; ID and timestamps must already be set
	Create(ctx context.Context, diagram *models.Diagram) error

	// Get retrieves a diagram by ID
	// Returns domain.ErrNotFound if it does not exist
	Get(ctx context.Context, id string) (*models.Diagram, error)

	// Update replaces XML, name and updated_at of an existing diagram
	Update(ctx context.Context, diagram *models.Diagram) error

	// List returns all diagrams ordered by created_at ASC
	List(ctx context.Context) ([]models.DiagramSummary, error)

	// Delete removes a diagram
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored diagrams
	Count(ctx context.Context) (int, error)
}
