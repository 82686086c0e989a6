package postgres

import (
	"context"
	"fmt"

	"diagramgen/internal/domain"
	"diagramgen/internal/domain/models"
	"diagramgen/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDiagramRepository implements the DiagramRepository interface
type PostgresDiagramRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDiagramRepository creates a new diagram repository
func NewDiagramRepository(config *RepositoryConfig) repositories.DiagramRepository {
	return &PostgresDiagramRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new diagram
func (r *PostgresDiagramRepository) Create(ctx context.Context, diagram *models.Diagram) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, xml, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.tables.Diagrams)

	_, err := r.pool.Exec(ctx, query,
		diagram.ID,
		diagram.Name,
		diagram.XML,
		diagram.CreatedAt,
		diagram.UpdatedAt,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("diagram %s already exists: %w", diagram.ID, domain.ErrValidation)
		}
		return fmt.Errorf("create diagram: %w", err)
	}
	return nil
}

// Get retrieves a diagram by ID
func (r *PostgresDiagramRepository) Get(ctx context.Context, id string) (*models.Diagram, error) {
	query := fmt.Sprintf(`
		SELECT id, name, xml, created_at, updated_at
		FROM %s
		WHERE id = $1
	`, r.tables.Diagrams)

	var d models.Diagram
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.Name,
		&d.XML,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("diagram %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get diagram: %w", err)
	}
	return &d, nil
}

// Update replaces a diagram's XML, name and updated_at
func (r *PostgresDiagramRepository) Update(ctx context.Context, diagram *models.Diagram) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $2, xml = $3, updated_at = $4
		WHERE id = $1
	`, r.tables.Diagrams)

	tag, err := r.pool.Exec(ctx, query, diagram.ID, diagram.Name, diagram.XML, diagram.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update diagram: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("diagram %s: %w", diagram.ID, domain.ErrNotFound)
	}
	return nil
}

// List returns diagram summaries ordered by created_at ASC
func (r *PostgresDiagramRepository) List(ctx context.Context) ([]models.DiagramSummary, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at
		FROM %s
		ORDER BY created_at ASC, id ASC
	`, r.tables.Diagrams)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	diagrams := []models.DiagramSummary{}
	for rows.Next() {
		var d models.DiagramSummary
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan diagram: %w", err)
		}
		diagrams = append(diagrams, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagrams: %w", err)
	}
	return diagrams, nil
}

// Delete removes a diagram
func (r *PostgresDiagramRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Diagrams)

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete diagram: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("diagram %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Count returns the number of stored diagrams
func (r *PostgresDiagramRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.tables.Diagrams)

	var n int
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count diagrams: %w", err)
	}
	return n, nil
}
