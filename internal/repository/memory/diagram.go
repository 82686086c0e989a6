// Package memory holds process-local repository implementations, used when
// no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"diagramgen/internal/domain"
	"diagramgen/internal/domain/models"
	"diagramgen/internal/domain/repositories"
)

// DiagramRepository keeps diagrams in a map. Contents are lost on restart.
type DiagramRepository struct {
	mu       sync.RWMutex
	diagrams map[string]models.Diagram
}

var _ repositories.DiagramRepository = (*DiagramRepository)(nil)

// NewDiagramRepository creates an empty in-memory store
func NewDiagramRepository() *DiagramRepository {
	return &DiagramRepository{diagrams: make(map[string]models.Diagram)}
}

func (r *DiagramRepository) Create(ctx context.Context, diagram *models.Diagram) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.diagrams[diagram.ID]; exists {
		return fmt.Errorf("diagram %s already exists: %w", diagram.ID, domain.ErrValidation)
	}
	r.diagrams[diagram.ID] = *diagram
	return nil
}

func (r *DiagramRepository) Get(ctx context.Context, id string) (*models.Diagram, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.diagrams[id]
	if !ok {
		return nil, fmt.Errorf("diagram %s: %w", id, domain.ErrNotFound)
	}
	return &d, nil
}

func (r *DiagramRepository) Update(ctx context.Context, diagram *models.Diagram) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.diagrams[diagram.ID]
	if !ok {
		return fmt.Errorf("diagram %s: %w", diagram.ID, domain.ErrNotFound)
	}
	existing.Name = diagram.Name
	existing.XML = diagram.XML
	existing.UpdatedAt = diagram.UpdatedAt
	r.diagrams[diagram.ID] = existing
	return nil
}

func (r *DiagramRepository) List(ctx context.Context) ([]models.DiagramSummary, error) {
	r.mu.RLock()
	out := make([]models.DiagramSummary, 0, len(r.diagrams))
	for _, d := range r.diagrams {
		out = append(out, models.DiagramSummary{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *DiagramRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.diagrams[id]; !ok {
		return fmt.Errorf("diagram %s: %w", id, domain.ErrNotFound)
	}
	delete(r.diagrams, id)
	return nil
}

func (r *DiagramRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.diagrams), nil
}
