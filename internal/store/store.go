// Package store defines the persistence boundary of the sync engine:
// one row per synchronized logical document plus an audit trail of
// detected version conflicts. Implementations must guarantee that
// everything executed inside WithTenant commits or rolls back as a
// unit, scoped to exactly one tenant.
package store

import (
	"context"
	"errors"

	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/syncx"
)

var (
	// ErrNotFound is returned for lookups of conflicts that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResolved is returned when marking a conflict that has
	// already gone through resolution.
	ErrAlreadyResolved = errors.New("conflict already resolved")
)

// Document is the server's authoritative copy of one synchronized
// business record. Deleted documents are retained as tombstones so pull
// can propagate deletions.
type Document struct {
	ID               int64
	TenantID         string
	Entity           entity.Name
	CloudID          string
	LocalID          *string
	DeviceID         string
	Data             map[string]any
	Version          int
	IsDeleted        bool
	SyncedAtMs       int64
	LastModifiedAtMs int64
	UpdatedAtMs      int64
}

// Conflict records one detected version clash with full snapshots of
// both sides. Immutable after creation except for the resolution
// transition.
type Conflict struct {
	ID            string
	TenantID      string
	Entity        entity.Name
	CloudID       string
	LocalID       *string
	Strategy      entity.Strategy
	ServerVersion int
	ClientVersion int
	ServerData    map[string]any
	ClientData    map[string]any
	Resolved      bool
	ResolvedAtMs  *int64
	CreatedAtMs   int64
}

// DocumentQuery selects documents for an incremental pull: everything
// past the cursor position, ascending by (updated_at_ms, id).
type DocumentQuery struct {
	Entities []entity.Name
	After    syncx.Cursor
	Limit    int
}

// Tx is the set of operations available inside one tenant-scoped
// transaction. All lookups and writes are implicitly restricted to the
// tenant the transaction was opened for.
type Tx interface {
	// FindDocument looks a document up by cloudID or, when localID is
	// non-nil, by the device-local identifier. The localID path covers a
	// device's first push of a record created offline, before it has
	// learned the server's cloudId. Returns (nil, nil) when absent.
	FindDocument(ctx context.Context, ent entity.Name, cloudID string, localID *string) (*Document, error)

	// InsertDocument stores a new document and assigns its row id and
	// updated_at_ms.
	InsertDocument(ctx context.Context, doc *Document) error

	// UpdateDocument rewrites an existing document by row id and
	// refreshes updated_at_ms.
	UpdateDocument(ctx context.Context, doc *Document) error

	// InsertConflict stores a new conflict record.
	InsertConflict(ctx context.Context, c *Conflict) error

	// GetConflict fetches a conflict by id. Returns (nil, nil) when absent.
	GetConflict(ctx context.Context, id string) (*Conflict, error)

	// MarkConflictResolved transitions resolved false -> true, recording
	// the strategy actually applied. Returns ErrAlreadyResolved when the
	// transition already happened and ErrNotFound for an unknown id.
	MarkConflictResolved(ctx context.Context, id string, strategy entity.Strategy, resolvedAtMs int64) error
}

// Store is the document and conflict store consumed by the sync engine.
type Store interface {
	// WithTenant runs fn inside a single transaction scoped to tenantID.
	// A nil return from fn commits; any error rolls everything back and
	// is returned unchanged.
	WithTenant(ctx context.Context, tenantID string, fn func(Tx) error) error

	// ListDocuments returns up to q.Limit documents past q.After,
	// ascending by (updated_at_ms, id). Read-only.
	ListDocuments(ctx context.Context, tenantID string, q DocumentQuery) ([]Document, error)

	// ListOpenConflicts returns unresolved conflicts for the tenant in
	// creation order.
	ListOpenConflicts(ctx context.Context, tenantID string) ([]Conflict, error)
}
