package postgres

import (
	"context"
	"fmt"
)

// EnsureSchema creates the tables used by this service if they are missing
func EnsureSchema(ctx context.Context, cfg *RepositoryConfig) error {
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				xml TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)
		`, cfg.Tables.Diagrams),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at)`,
			cfg.Tables.Diagrams, cfg.Tables.Diagrams),
	}

	for _, stmt := range stmts {
		if _, err := cfg.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	if cfg.Logger != nil {
		cfg.Logger.Debug("schema ready", "table", cfg.Tables.Diagrams)
	}
	return nil
}
