package syncservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/store"
	"github.com/simple-pos/sync-api/internal/syncx"
)

// Push reconciles a batch of device-made changes against the tenant's
// document store inside one transaction. Changes are applied in entity
// dependency order. Each change ends as exactly one of accepted,
// rejected or conflicted; a conflict never aborts the rest of the
// batch, it only flips the overall success flag.
func (s *Service) Push(ctx context.Context, tenantID, deviceID string, changes []Change) (*PushResult, error) {
	if err := validatePush(deviceID, changes); err != nil {
		return nil, err
	}

	res := &PushResult{
		Conflicts: []ConflictView{},
		Accepted:  []Accepted{},
		Rejected:  []Rejected{},
	}

	sorted := entity.SortByDependencyOrder(changes, func(c Change) entity.Name {
		return entity.Name(c.Entity)
	})

	err := s.store.WithTenant(ctx, tenantID, func(tx store.Tx) error {
		for _, change := range sorted {
			ent := entity.Name(change.Entity)
			if !entity.Known(ent) {
				res.Rejected = append(res.Rejected, Rejected{
					Entity:  change.Entity,
					LocalID: change.LocalID,
					CloudID: change.CloudID,
					Reason:  "unsupported entity",
				})
				continue
			}

			localID := syncx.LocalIDString(change.LocalID)
			cloudID := change.CloudID
			if cloudID == "" {
				cloudID = uuid.NewString()
			}

			existing, err := tx.FindDocument(ctx, ent, cloudID, localID)
			if err != nil {
				return err
			}

			// Already validated; cannot fail here.
			ms, _ := syncx.ParseTimeToMs(change.Timestamp)

			if existing == nil {
				version := change.Version
				if version < 1 {
					version = 1
				}
				doc := &store.Document{
					TenantID:         tenantID,
					Entity:           ent,
					CloudID:          cloudID,
					LocalID:          localID,
					DeviceID:         deviceID,
					Data:             syncx.NormalizeData(change.Data, cloudID, version),
					Version:          version,
					IsDeleted:        change.Operation == OpDelete,
					SyncedAtMs:       syncx.NowMs(),
					LastModifiedAtMs: ms,
				}
				if err := tx.InsertDocument(ctx, doc); err != nil {
					return err
				}
				res.Accepted = append(res.Accepted, Accepted{
					Entity:   change.Entity,
					LocalID:  change.LocalID,
					CloudID:  cloudID,
					SyncedAt: syncx.RFC3339(doc.SyncedAtMs),
				})
				continue
			}

			if change.Version < existing.Version {
				// The device's basis is stale: record both snapshots and
				// leave the stored document untouched.
				conflict := &store.Conflict{
					ID:            uuid.NewString(),
					TenantID:      tenantID,
					Entity:        ent,
					CloudID:       existing.CloudID,
					LocalID:       localID,
					Strategy:      entity.DefaultStrategy(ent),
					ServerVersion: existing.Version,
					ClientVersion: change.Version,
					ServerData:    existing.Data,
					ClientData:    syncx.NormalizeData(change.Data, existing.CloudID, change.Version),
					CreatedAtMs:   syncx.NowMs(),
				}
				if err := tx.InsertConflict(ctx, conflict); err != nil {
					return err
				}
				log.Warn().
					Str("tenant_id", tenantID).
					Str("entity", change.Entity).
					Str("cloud_id", existing.CloudID).
					Int("server_version", existing.Version).
					Int("client_version", change.Version).
					Msg("version conflict detected")
				res.Conflicts = append(res.Conflicts, conflictView(conflict))
				continue
			}

			// Accept: bump past both versions so a concurrent edit from
			// the same basis still lands on a distinct higher version.
			next := syncx.NextVersion(change.Version, existing.Version)
			if localID != nil {
				existing.LocalID = localID
			}
			existing.DeviceID = deviceID
			existing.Data = syncx.NormalizeData(change.Data, existing.CloudID, next)
			existing.Version = next
			existing.IsDeleted = change.Operation == OpDelete
			existing.SyncedAtMs = syncx.NowMs()
			existing.LastModifiedAtMs = ms
			if err := tx.UpdateDocument(ctx, existing); err != nil {
				return err
			}
			res.Accepted = append(res.Accepted, Accepted{
				Entity:   change.Entity,
				LocalID:  change.LocalID,
				CloudID:  existing.CloudID,
				SyncedAt: syncx.RFC3339(existing.SyncedAtMs),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Success = len(res.Conflicts) == 0
	res.SyncedAt = syncx.RFC3339(syncx.NowMs())
	return res, nil
}
