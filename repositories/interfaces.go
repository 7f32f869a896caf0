package repositories

import (
	"context"

	"github.com/upb/catalog-rag/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// FragmentRepository stores fragments partitioned by tenant.
// All filters are exact-match equality; there is no default or wildcard tenant.
type FragmentRepository interface {
	// Fetch returns every fragment of one modality for a tenant, in insertion order.
	// Callers must not modify the returned slice.
	Fetch(ctx context.Context, tenantID string, modality models.Modality) ([]models.Fragment, error)

	// Insert stores fragments and returns how many were written
	Insert(ctx context.Context, fragments []models.Fragment) (int, error)

	// Delete removes a tenant's fragments for the given source documents,
	// or all of the tenant's fragments when none are given
	Delete(ctx context.Context, tenantID string, sourceDocuments ...string) (int, error)

	// Stats summarises a tenant's stored fragments
	Stats(ctx context.Context, tenantID string) (*models.TenantStats, error)

	// Close releases the underlying connection
	Close() error
}

// HealthChecker is implemented by stores that can verify connectivity
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
