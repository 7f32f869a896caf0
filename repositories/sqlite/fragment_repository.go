package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/repositories"
	"go.uber.org/zap"
)

// FragmentRepository implements repositories.FragmentRepository on SQLite
type FragmentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewFragmentRepository creates a fragment repository over an open database
func NewFragmentRepository(db *DB, logger *zap.Logger) *FragmentRepository {
	return &FragmentRepository{db: db, logger: logger}
}

// Open opens the database file and returns the fragment store
func Open(path string, logger *zap.Logger) (*FragmentRepository, error) {
	db, err := OpenDB(path, logger)
	if err != nil {
		return nil, err
	}
	return NewFragmentRepository(db, logger), nil
}

var _ repositories.FragmentRepository = (*FragmentRepository)(nil)

// Fetch returns a tenant's fragments of one modality in insertion order
func (r *FragmentRepository) Fetch(ctx context.Context, tenantID string, modality models.Modality) ([]models.Fragment, error) {
	query := `
		SELECT id, tenant_id, modality, content, embedding, source_document, page_number, image_path, created_at
		FROM fragments
		WHERE tenant_id = ? AND modality = ?
		ORDER BY rowid
	`

	rows, err := r.db.sqlDB.QueryContext(ctx, query, tenantID, string(modality))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fragments: %w", err)
	}
	defer rows.Close()

	fragments := make([]models.Fragment, 0)
	for rows.Next() {
		var (
			f         models.Fragment
			id        string
			blob      []byte
			createdAt string
		)
		if err := rows.Scan(
			&id,
			&f.TenantID,
			&f.Modality,
			&f.Content,
			&blob,
			&f.SourceDocument,
			&f.PageNumber,
			&f.ImagePath,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}

		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid fragment id %q: %w", id, err)
		}
		if f.Embedding, err = blobToVector(blob); err != nil {
			return nil, fmt.Errorf("invalid embedding for fragment %s: %w", id, err)
		}
		if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at for fragment %s: %w", id, err)
		}
		fragments = append(fragments, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fragments: %w", err)
	}
	return fragments, nil
}

// Insert writes all fragments in one transaction
func (r *FragmentRepository) Insert(ctx context.Context, fragments []models.Fragment) (int, error) {
	if len(fragments) == 0 {
		return 0, nil
	}

	tx, err := r.db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fragments (id, tenant_id, modality, content, embedding, source_document, page_number, image_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range fragments {
		f := fragments[i]
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = time.Now()
		}

		if _, err := stmt.ExecContext(ctx,
			f.ID.String(),
			f.TenantID,
			string(f.Modality),
			f.Content,
			vectorToBlob(f.Embedding),
			f.SourceDocument,
			f.PageNumber,
			f.ImagePath,
			f.CreatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return 0, fmt.Errorf("failed to insert fragment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("fragments inserted", zap.Int("count", len(fragments)))
	return len(fragments), nil
}

// Delete removes a tenant's fragments for the given sources, or all of them
func (r *FragmentRepository) Delete(ctx context.Context, tenantID string, sourceDocuments ...string) (int, error) {
	query := `DELETE FROM fragments WHERE tenant_id = ?`
	args := []any{tenantID}
	if len(sourceDocuments) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sourceDocuments)), ",")
		query += ` AND source_document IN (` + placeholders + `)`
		for _, s := range sourceDocuments {
			args = append(args, s)
		}
	}

	result, err := r.db.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fragments: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// Stats summarises a tenant's fragments
func (r *FragmentRepository) Stats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	stats := &models.TenantStats{TenantID: tenantID, Pages: []int{}, SourceDocuments: []string{}}

	if err := r.db.sqlDB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN modality = 'text' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN modality = 'image' THEN 1 ELSE 0 END), 0)
		FROM fragments WHERE tenant_id = ?
	`, tenantID).Scan(&stats.Total, &stats.TextCount, &stats.ImageCount); err != nil {
		return nil, fmt.Errorf("failed to count fragments: %w", err)
	}

	pageRows, err := r.db.sqlDB.QueryContext(ctx,
		`SELECT DISTINCT page_number FROM fragments WHERE tenant_id = ? ORDER BY page_number`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer pageRows.Close()
	for pageRows.Next() {
		var page int
		if err := pageRows.Scan(&page); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		stats.Pages = append(stats.Pages, page)
	}
	if err := pageRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}

	docRows, err := r.db.sqlDB.QueryContext(ctx,
		`SELECT DISTINCT source_document FROM fragments WHERE tenant_id = ? ORDER BY source_document`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list source documents: %w", err)
	}
	defer docRows.Close()
	for docRows.Next() {
		var doc string
		if err := docRows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan source document: %w", err)
		}
		stats.SourceDocuments = append(stats.SourceDocuments, doc)
	}
	if err := docRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source documents: %w", err)
	}

	return stats, nil
}

// HealthCheck pings the database
func (r *FragmentRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// Close closes the database
func (r *FragmentRepository) Close() error {
	return r.db.Close()
}
