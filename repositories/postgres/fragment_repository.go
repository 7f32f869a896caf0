package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/repositories"
	"go.uber.org/zap"
)

// FragmentRepository implements repositories.FragmentRepository on PostgreSQL
type FragmentRepository struct {
	db     *DB
	tm     *TransactionManager
	logger *zap.Logger
}

// NewFragmentRepository creates a new fragment repository
func NewFragmentRepository(db *DB, logger *zap.Logger) *FragmentRepository {
	return &FragmentRepository{
		db:     db,
		tm:     NewTransactionManager(db, logger),
		logger: logger,
	}
}

var _ repositories.FragmentRepository = (*FragmentRepository)(nil)

// Fetch returns a tenant's fragments of one modality in insertion order
func (r *FragmentRepository) Fetch(ctx context.Context, tenantID string, modality models.Modality) ([]models.Fragment, error) {
	query := `
		SELECT id, tenant_id, modality, content, embedding, source_document, page_number, image_path, created_at
		FROM fragments
		WHERE tenant_id = $1 AND modality = $2
		ORDER BY seq
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, tenantID, string(modality))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fragments: %w", err)
	}
	defer rows.Close()

	fragments := make([]models.Fragment, 0)
	for rows.Next() {
		var (
			f         models.Fragment
			embedding pq.Float64Array
		)
		if err := rows.Scan(
			&f.ID,
			&f.TenantID,
			&f.Modality,
			&f.Content,
			&embedding,
			&f.SourceDocument,
			&f.PageNumber,
			&f.ImagePath,
			&f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		f.Embedding = []float64(embedding)
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

	query := `
		INSERT INTO fragments (id, tenant_id, modality, content, embedding, source_document, page_number, image_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	err := r.tm.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		executor := GetExecutor(ctx, r.db)
		for i := range fragments {
			f := fragments[i]
			if f.ID == uuid.Nil {
				f.ID = uuid.New()
			}
			if f.CreatedAt.IsZero() {
				f.CreatedAt = time.Now()
			}
			var embedding interface{}
			if f.Embedding != nil {
				embedding = pq.Float64Array(f.Embedding)
			}

			if _, err := executor.ExecContext(ctx, query,
				f.ID,
				f.TenantID,
				string(f.Modality),
				f.Content,
				embedding,
				f.SourceDocument,
				f.PageNumber,
				f.ImagePath,
				f.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert fragment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug("fragments inserted", zap.Int("count", len(fragments)))
	return len(fragments), nil
}

// Delete removes a tenant's fragments for the given sources, or all of them
func (r *FragmentRepository) Delete(ctx context.Context, tenantID string, sourceDocuments ...string) (int, error) {
	query := `DELETE FROM fragments WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if len(sourceDocuments) > 0 {
		query += ` AND source_document = ANY($2)`
		args = append(args, pq.Array(sourceDocuments))
	}

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fragments: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Debug("fragments deleted",
		zap.String("tenant_id", tenantID),
		zap.Int64("count", affected))
	return int(affected), nil
}

// Stats summarises a tenant's fragments
func (r *FragmentRepository) Stats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	executor := GetExecutor(ctx, r.db)
	stats := &models.TenantStats{TenantID: tenantID, Pages: []int{}, SourceDocuments: []string{}}

	countQuery := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE modality = 'text'),
			COUNT(*) FILTER (WHERE modality = 'image')
		FROM fragments
		WHERE tenant_id = $1
	`
	if err := executor.QueryRowContext(ctx, countQuery, tenantID).Scan(
		&stats.Total,
		&stats.TextCount,
		&stats.ImageCount,
	); err != nil {
		return nil, fmt.Errorf("failed to count fragments: %w", err)
	}

	pageRows, err := executor.QueryContext(ctx,
		`SELECT DISTINCT page_number FROM fragments WHERE tenant_id = $1 ORDER BY page_number`, tenantID)
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

	docRows, err := executor.QueryContext(ctx,
		`SELECT DISTINCT source_document FROM fragments WHERE tenant_id = $1 ORDER BY source_document`, tenantID)
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

// Close closes the connection pool
func (r *FragmentRepository) Close() error {
	return r.db.Close()
}
