package syncservice

import (
	"context"

	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/store"
	"github.com/simple-pos/sync-api/internal/syncx"
)

// Pull returns one page of the tenant's delta stream past the caller's
// cursor, in ascending (updatedAt, rowId) order. It is read-only and
// safe to repeat with the same cursor. Tombstoned documents are split
// out as deletions; everything else is a full snapshot.
func (s *Service) Pull(ctx context.Context, tenantID string, opts PullOptions) (*PullResult, error) {
	limit := opts.Limit
	if limit < 1 {
		limit = DefaultPullLimit
	}
	if limit > MaxPullLimit {
		limit = MaxPullLimit
	}

	ents := opts.Entities
	if len(ents) == 0 {
		ents = entity.All()
	}

	var after syncx.Cursor
	if opts.Cursor != "" {
		c, ok := syncx.DecodeCursor(opts.Cursor)
		if !ok {
			return nil, &ValidationError{Errors: []string{"malformed cursor"}}
		}
		after = c
	} else if opts.LastSyncedAt != "" {
		// First sync of a legacy client: timestamp only, no row tiebreak.
		ms, ok := syncx.ParseTimeToMs(opts.LastSyncedAt)
		if !ok {
			return nil, &ValidationError{Errors: []string{"invalid lastSyncedAt timestamp"}}
		}
		after = syncx.Cursor{Ms: ms}
	}

	// limit+1 look-ahead detects a further page without a count query.
	docs, err := s.store.ListDocuments(ctx, tenantID, store.DocumentQuery{
		Entities: ents,
		After:    after,
		Limit:    limit + 1,
	})
	if err != nil {
		return nil, err
	}

	hasMore := len(docs) > limit
	page := docs
	if hasMore {
		page = docs[:limit]
	}

	changes := make([]Change, 0, len(page))
	deletions := make([]Deletion, 0)

	for _, doc := range page {
		if doc.IsDeleted {
			deletions = append(deletions, Deletion{
				Entity:    string(doc.Entity),
				CloudID:   doc.CloudID,
				DeletedAt: syncx.RFC3339(doc.UpdatedAtMs),
			})
			continue
		}
		var localID any
		if doc.LocalID != nil {
			localID = *doc.LocalID
		}
		changes = append(changes, Change{
			Entity:    string(doc.Entity),
			Operation: OpUpdate,
			LocalID:   localID,
			CloudID:   doc.CloudID,
			Data:      doc.Data,
			Version:   doc.Version,
			Timestamp: syncx.RFC3339(doc.UpdatedAtMs),
		})
	}

	var nextCursor *string
	if hasMore && len(page) > 0 {
		last := page[len(page)-1]
		encoded := syncx.EncodeCursor(syncx.Cursor{Ms: last.UpdatedAtMs, Row: last.ID})
		nextCursor = &encoded
	}

	return &PullResult{
		Changes:    changes,
		Deletions:  deletions,
		SyncedAt:   syncx.RFC3339(syncx.NowMs()),
		HasMore:    hasMore,
		NextCursor: nextCursor,
	}, nil
}
