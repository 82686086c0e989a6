package diagram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"diagramgen/internal/config"
	"diagramgen/internal/domain"
	"diagramgen/internal/domain/models"
	"diagramgen/internal/domain/repositories"
	"diagramgen/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

type diagramService struct {
	repo   repositories.DiagramRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a new diagram service
func NewService(repo repositories.DiagramRepository, logger *slog.Logger) services.DiagramService {
	return &diagramService{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
}

// SaveDiagram stores a new diagram. A missing or blank name becomes "Diagram <short id>".
func (s *diagramService) SaveDiagram(ctx context.Context, req *services.SaveDiagramRequest) (*models.Diagram, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	name := "Diagram " + id[:8]
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}

	now := s.now().UTC()
	d := &models.Diagram{
		ID:        id,
		Name:      name,
		XML:       req.XML,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("diagram saved", "id", d.ID, "name", d.Name, "bytes", len(d.XML))
	return d, nil
}

// GetDiagram retrieves a diagram by ID
func (s *diagramService) GetDiagram(ctx context.Context, id string) (*models.Diagram, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// UpdateDiagram replaces the XML. The name only changes when a non-blank one is given.
func (s *diagramService) UpdateDiagram(ctx context.Context, id string, req *services.SaveDiagramRequest) (*models.Diagram, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d.XML = req.XML
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		d.Name = strings.TrimSpace(*req.Name)
	}
	d.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("diagram updated", "id", d.ID, "bytes", len(d.XML))
	return d, nil
}

// ListDiagrams returns summaries ordered by creation time
func (s *diagramService) ListDiagrams(ctx context.Context) ([]models.DiagramSummary, error) {
	return s.repo.List(ctx)
}

// DeleteDiagram removes a diagram
func (s *diagramService) DeleteDiagram(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("diagram deleted", "id", id)
	return nil
}

// CountDiagrams returns the number of saved diagrams
func (s *diagramService) CountDiagrams(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *diagramService) validateRequest(req *services.SaveDiagramRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.XML, validation.Required),
		validation.Field(&req.Name, validation.RuneLength(0, config.MaxDiagramNameLength)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// validateID rejects IDs that can never exist, so Postgres never sees a malformed UUID
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("diagram %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
