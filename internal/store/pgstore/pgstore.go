// Package pgstore implements the document and conflict store on
// PostgreSQL. Tenant isolation is enforced twice: every statement
// filters on tenant_id, and each transaction sets app.tenant_id so the
// row-level-security policies installed by the migrations apply.
package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/store"
	"github.com/simple-pos/sync-api/internal/syncx"
)

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on top of an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithTenant opens one transaction, pins it to the tenant via
// set_config (transaction-local, picked up by the RLS policies), and
// commits only when fn returns nil.
func (s *Store) WithTenant(ctx context.Context, tenantID string, fn func(store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin transaction")
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT set_config('app.tenant_id', $1, true)`, tenantID); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to set tenant scope")
		return err
	}

	if err := fn(&pgTx{tx: tx, tenantID: tenantID}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// readScope opens a transaction pinned to the tenant for read paths:
// the tables force row-level security, so even SELECTs need
// app.tenant_id set.
func (s *Store) readScope(ctx context.Context, tenantID string) (pgx.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`SELECT set_config('app.tenant_id', $1, true)`, tenantID); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// ListDocuments queries the delta stream ordered by (updated_at_ms, id)
// so cursor pagination is deterministic even when timestamps collide.
func (s *Store) ListDocuments(ctx context.Context, tenantID string, q store.DocumentQuery) ([]store.Document, error) {
	names := make([]string, len(q.Entities))
	for i, e := range q.Entities {
		names[i] = string(e)
	}

	tx, err := s.readScope(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to open read scope")
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, entity, cloud_id, local_id, device_id, data, version, is_deleted,
		       synced_at_ms, last_modified_at_ms, updated_at_ms
		FROM sync_document
		WHERE tenant_id = $1
		  AND entity = ANY($2)
		  AND (updated_at_ms, id) > ($3, $4)
		ORDER BY updated_at_ms, id
		LIMIT $5
	`, tenantID, names, q.After.Ms, q.After.Row, q.Limit)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to query documents")
		return nil, err
	}
	defer rows.Close()

	docs := make([]store.Document, 0, q.Limit)
	for rows.Next() {
		doc := store.Document{TenantID: tenantID}
		if err := rows.Scan(&doc.ID, &doc.Entity, &doc.CloudID, &doc.LocalID, &doc.DeviceID,
			&doc.Data, &doc.Version, &doc.IsDeleted,
			&doc.SyncedAtMs, &doc.LastModifiedAtMs, &doc.UpdatedAtMs); err != nil {
			log.Error().Err(err).Msg("failed to scan document row")
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("row iteration error")
		return nil, err
	}
	rows.Close()

	return docs, tx.Commit(ctx)
}

// ListOpenConflicts returns unresolved conflicts in creation order.
func (s *Store) ListOpenConflicts(ctx context.Context, tenantID string) ([]store.Conflict, error) {
	tx, err := s.readScope(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to open read scope")
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, entity, cloud_id, local_id, strategy, server_version, client_version,
		       server_data, client_data, resolved, resolved_at_ms, created_at_ms
		FROM sync_conflict
		WHERE tenant_id = $1 AND resolved = false
		ORDER BY created_at_ms, id
	`, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to query conflicts")
		return nil, err
	}
	defer rows.Close()

	var conflicts []store.Conflict
	for rows.Next() {
		c := store.Conflict{TenantID: tenantID}
		if err := rows.Scan(&c.ID, &c.Entity, &c.CloudID, &c.LocalID, &c.Strategy,
			&c.ServerVersion, &c.ClientVersion, &c.ServerData, &c.ClientData,
			&c.Resolved, &c.ResolvedAtMs, &c.CreatedAtMs); err != nil {
			log.Error().Err(err).Msg("failed to scan conflict row")
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("row iteration error")
		return nil, err
	}
	rows.Close()

	return conflicts, tx.Commit(ctx)
}

// pgTx implements store.Tx on one pinned transaction.
type pgTx struct {
	tx       pgx.Tx
	tenantID string
}

func (t *pgTx) FindDocument(ctx context.Context, ent entity.Name, cloudID string, localID *string) (*store.Document, error) {
	doc := store.Document{TenantID: t.tenantID}
	err := t.tx.QueryRow(ctx, `
		SELECT id, entity, cloud_id, local_id, device_id, data, version, is_deleted,
		       synced_at_ms, last_modified_at_ms, updated_at_ms
		FROM sync_document
		WHERE tenant_id = $1 AND entity = $2
		  AND (cloud_id = $3 OR ($4::text IS NOT NULL AND local_id = $4))
		ORDER BY id
		LIMIT 1
	`, t.tenantID, ent, cloudID, localID).Scan(
		&doc.ID, &doc.Entity, &doc.CloudID, &doc.LocalID, &doc.DeviceID,
		&doc.Data, &doc.Version, &doc.IsDeleted,
		&doc.SyncedAtMs, &doc.LastModifiedAtMs, &doc.UpdatedAtMs)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("cloud_id", cloudID).Msg("failed to find document")
		return nil, err
	}
	return &doc, nil
}

func (t *pgTx) InsertDocument(ctx context.Context, doc *store.Document) error {
	doc.UpdatedAtMs = syncx.NowMs()
	err := t.tx.QueryRow(ctx, `
		INSERT INTO sync_document
			(tenant_id, entity, cloud_id, local_id, device_id, data, version, is_deleted,
			 synced_at_ms, last_modified_at_ms, updated_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, doc.TenantID, doc.Entity, doc.CloudID, doc.LocalID, doc.DeviceID, doc.Data,
		doc.Version, doc.IsDeleted, doc.SyncedAtMs, doc.LastModifiedAtMs, doc.UpdatedAtMs).Scan(&doc.ID)
	if err != nil {
		log.Error().Err(err).Str("cloud_id", doc.CloudID).Msg("failed to insert document")
		return err
	}
	return nil
}

func (t *pgTx) UpdateDocument(ctx context.Context, doc *store.Document) error {
	doc.UpdatedAtMs = syncx.NowMs()
	_, err := t.tx.Exec(ctx, `
		UPDATE sync_document
		SET local_id = $3, device_id = $4, data = $5, version = $6, is_deleted = $7,
		    synced_at_ms = $8, last_modified_at_ms = $9, updated_at_ms = $10
		WHERE tenant_id = $1 AND id = $2
	`, doc.TenantID, doc.ID, doc.LocalID, doc.DeviceID, doc.Data, doc.Version,
		doc.IsDeleted, doc.SyncedAtMs, doc.LastModifiedAtMs, doc.UpdatedAtMs)
	if err != nil {
		log.Error().Err(err).Str("cloud_id", doc.CloudID).Msg("failed to update document")
		return err
	}
	return nil
}

func (t *pgTx) InsertConflict(ctx context.Context, c *store.Conflict) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO sync_conflict
			(id, tenant_id, entity, cloud_id, local_id, strategy, server_version,
			 client_version, server_data, client_data, resolved, created_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11)
	`, c.ID, c.TenantID, c.Entity, c.CloudID, c.LocalID, c.Strategy,
		c.ServerVersion, c.ClientVersion, c.ServerData, c.ClientData, c.CreatedAtMs)
	if err != nil {
		log.Error().Err(err).Str("cloud_id", c.CloudID).Msg("failed to insert conflict")
		return err
	}
	return nil
}

func (t *pgTx) GetConflict(ctx context.Context, id string) (*store.Conflict, error) {
	c := store.Conflict{TenantID: t.tenantID}
	err := t.tx.QueryRow(ctx, `
		SELECT id, entity, cloud_id, local_id, strategy, server_version, client_version,
		       server_data, client_data, resolved, resolved_at_ms, created_at_ms
		FROM sync_conflict
		WHERE tenant_id = $1 AND id = $2
	`, t.tenantID, id).Scan(
		&c.ID, &c.Entity, &c.CloudID, &c.LocalID, &c.Strategy,
		&c.ServerVersion, &c.ClientVersion, &c.ServerData, &c.ClientData,
		&c.Resolved, &c.ResolvedAtMs, &c.CreatedAtMs)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("conflict_id", id).Msg("failed to get conflict")
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) MarkConflictResolved(ctx context.Context, id string, strategy entity.Strategy, resolvedAtMs int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE sync_conflict
		SET strategy = $3, resolved = true, resolved_at_ms = $4
		WHERE tenant_id = $1 AND id = $2 AND resolved = false
	`, t.tenantID, id, strategy, resolvedAtMs)
	if err != nil {
		log.Error().Err(err).Str("conflict_id", id).Msg("failed to resolve conflict")
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish unknown id from a lost resolution race.
		var resolved bool
		if err := t.tx.QueryRow(ctx,
			`SELECT resolved FROM sync_conflict WHERE tenant_id = $1 AND id = $2`,
			t.tenantID, id).Scan(&resolved); err != nil {
			if err == pgx.ErrNoRows {
				return store.ErrNotFound
			}
			return err
		}
		return store.ErrAlreadyResolved
	}
	return nil
}
