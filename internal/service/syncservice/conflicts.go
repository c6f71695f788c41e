package syncservice

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/store"
	"github.com/simple-pos/sync-api/internal/syncx"
)

// ListOpenConflicts returns the tenant's unresolved conflicts in
// creation order, annotated with both sides' embedded modification
// timestamps.
func (s *Service) ListOpenConflicts(ctx context.Context, tenantID string) ([]ConflictView, error) {
	rows, err := s.store.ListOpenConflicts(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	views := make([]ConflictView, 0, len(rows))
	for i := range rows {
		views = append(views, conflictView(&rows[i]))
	}
	return views, nil
}

// ResolveConflict applies a resolution strategy to one recorded
// conflict inside a single transaction: compute the winning payload,
// write it to the live document (unless the server side already won),
// and mark the conflict resolved. Resolving twice fails with
// ErrConflictNotFound and changes nothing.
func (s *Service) ResolveConflict(ctx context.Context, tenantID, conflictID string, strategy entity.Strategy, mergedData map[string]any) (*ResolveResult, error) {
	err := s.store.WithTenant(ctx, tenantID, func(tx store.Tx) error {
		conflict, err := tx.GetConflict(ctx, conflictID)
		if err != nil {
			return err
		}
		if conflict == nil || conflict.Resolved {
			return ErrConflictNotFound
		}

		doc, err := tx.FindDocument(ctx, conflict.Entity, conflict.CloudID, nil)
		if err != nil {
			return err
		}

		var current map[string]any
		if doc != nil {
			current = doc.Data
		}

		resolved := resolvePayload(strategy, conflict.ServerData, conflict.ClientData, mergedData, current)

		if doc != nil && strategy != entity.ServerWins {
			now := syncx.NowMs()
			doc.Data = resolved
			doc.Version++
			doc.SyncedAtMs = now
			doc.LastModifiedAtMs = now
			if err := tx.UpdateDocument(ctx, doc); err != nil {
				return err
			}
		}

		if err := tx.MarkConflictResolved(ctx, conflict.ID, strategy, syncx.NowMs()); err != nil {
			if errors.Is(err, store.ErrAlreadyResolved) || errors.Is(err, store.ErrNotFound) {
				return ErrConflictNotFound
			}
			return err
		}

		log.Info().
			Str("tenant_id", tenantID).
			Str("conflict_id", conflictID).
			Str("strategy", string(strategy)).
			Msg("conflict resolved")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ResolveResult{
		Success:    true,
		ConflictID: conflictID,
		SyncedAt:   syncx.RFC3339(syncx.NowMs()),
	}, nil
}

// resolvePayload computes the winning document body for a strategy.
// Pure function over the recorded snapshots, the caller's merge payload
// and the document's current live body.
func resolvePayload(strategy entity.Strategy, serverData, clientData, mergedData, currentData map[string]any) map[string]any {
	switch strategy {
	case entity.ServerWins:
		return serverData
	case entity.ClientWins:
		return clientData
	case entity.LastWriteWins:
		// Ties go to the client; unparseable timestamps count as epoch.
		serverTs := msOrZero(syncx.ReadLastModified(serverData))
		clientTs := msOrZero(syncx.ReadLastModified(clientData))
		if clientTs >= serverTs {
			return clientData
		}
		return serverData
	case entity.Merge, entity.Manual:
		// Prefer an operator-supplied merge, fall back to the live body,
		// then to the client snapshot.
		if len(mergedData) > 0 {
			return mergedData
		}
		if len(currentData) > 0 {
			return currentData
		}
		return clientData
	default:
		return serverData
	}
}

func msOrZero(s string) int64 {
	ms, ok := syncx.ParseTimeToMs(s)
	if !ok {
		return 0
	}
	return ms
}
