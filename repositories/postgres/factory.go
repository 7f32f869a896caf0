package postgres

import (
	"context"

	"github.com/upb/catalog-rag/config"
	"go.uber.org/zap"
)

// Open connects to PostgreSQL, ensures the schema and returns the fragment store
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*FragmentRepository, error) {
	db, err := NewDB(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return NewFragmentRepository(db, logger), nil
}
