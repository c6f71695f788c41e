// Package memstore implements the document and conflict store in
// memory, backing tests that need no PostgreSQL instance. WithTenant
// mutates a copy of the tenant's state and swaps it in on success, so a
// failed callback leaves nothing behind, matching the transactional
// contract.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/store"
	"github.com/simple-pos/sync-api/internal/syncx"
)

// Store is an in-memory store.Store.
type Store struct {
	mu      sync.Mutex
	nextRow int64
	tenants map[string]*bucket
}

type bucket struct {
	docs      []*store.Document
	conflicts []*store.Conflict
}

// New creates an empty Store.
func New() *Store {
	return &Store{tenants: make(map[string]*bucket)}
}

func (s *Store) WithTenant(ctx context.Context, tenantID string, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := cloneBucket(s.tenants[tenantID])
	tx := &memTx{store: s, tenantID: tenantID, b: work}

	if err := fn(tx); err != nil {
		return err
	}

	s.tenants[tenantID] = work
	return nil
}

func (s *Store) ListDocuments(ctx context.Context, tenantID string, q store.DocumentQuery) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.tenants[tenantID]
	if b == nil {
		return nil, nil
	}

	wanted := make(map[entity.Name]bool, len(q.Entities))
	for _, e := range q.Entities {
		wanted[e] = true
	}

	var out []store.Document
	for _, doc := range b.docs {
		if !wanted[doc.Entity] {
			continue
		}
		if doc.UpdatedAtMs < q.After.Ms ||
			(doc.UpdatedAtMs == q.After.Ms && doc.ID <= q.After.Row) {
			continue
		}
		out = append(out, *cloneDocument(doc))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAtMs != out[j].UpdatedAtMs {
			return out[i].UpdatedAtMs < out[j].UpdatedAtMs
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) ListOpenConflicts(ctx context.Context, tenantID string) ([]store.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.tenants[tenantID]
	if b == nil {
		return nil, nil
	}

	var out []store.Conflict
	for _, c := range b.conflicts {
		if !c.Resolved {
			out = append(out, *cloneConflict(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAtMs < out[j].CreatedAtMs
	})
	return out, nil
}

type memTx struct {
	store    *Store
	tenantID string
	b        *bucket
}

func (t *memTx) FindDocument(ctx context.Context, ent entity.Name, cloudID string, localID *string) (*store.Document, error) {
	for _, doc := range t.b.docs {
		if doc.Entity != ent {
			continue
		}
		if doc.CloudID == cloudID {
			return doc, nil
		}
		if localID != nil && doc.LocalID != nil && *doc.LocalID == *localID {
			return doc, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertDocument(ctx context.Context, doc *store.Document) error {
	t.store.nextRow++
	doc.ID = t.store.nextRow
	doc.UpdatedAtMs = syncx.NowMs()
	t.b.docs = append(t.b.docs, doc)
	return nil
}

func (t *memTx) UpdateDocument(ctx context.Context, doc *store.Document) error {
	doc.UpdatedAtMs = syncx.NowMs()
	for i, existing := range t.b.docs {
		if existing.ID == doc.ID {
			t.b.docs[i] = doc
			return nil
		}
	}
	return store.ErrNotFound
}

func (t *memTx) InsertConflict(ctx context.Context, c *store.Conflict) error {
	t.b.conflicts = append(t.b.conflicts, c)
	return nil
}

func (t *memTx) GetConflict(ctx context.Context, id string) (*store.Conflict, error) {
	for _, c := range t.b.conflicts {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (t *memTx) MarkConflictResolved(ctx context.Context, id string, strategy entity.Strategy, resolvedAtMs int64) error {
	for _, c := range t.b.conflicts {
		if c.ID != id {
			continue
		}
		if c.Resolved {
			return store.ErrAlreadyResolved
		}
		c.Strategy = strategy
		c.Resolved = true
		c.ResolvedAtMs = &resolvedAtMs
		return nil
	}
	return store.ErrNotFound
}

func cloneBucket(b *bucket) *bucket {
	out := &bucket{}
	if b == nil {
		return out
	}
	out.docs = make([]*store.Document, len(b.docs))
	for i, doc := range b.docs {
		out.docs[i] = cloneDocument(doc)
	}
	out.conflicts = make([]*store.Conflict, len(b.conflicts))
	for i, c := range b.conflicts {
		out.conflicts[i] = cloneConflict(c)
	}
	return out
}

func cloneDocument(doc *store.Document) *store.Document {
	out := *doc
	out.Data = cloneMap(doc.Data)
	if doc.LocalID != nil {
		v := *doc.LocalID
		out.LocalID = &v
	}
	return &out
}

func cloneConflict(c *store.Conflict) *store.Conflict {
	out := *c
	out.ServerData = cloneMap(c.ServerData)
	out.ClientData = cloneMap(c.ClientData)
	if c.LocalID != nil {
		v := *c.LocalID
		out.LocalID = &v
	}
	if c.ResolvedAtMs != nil {
		v := *c.ResolvedAtMs
		out.ResolvedAtMs = &v
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
