package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simple-pos/sync-api/internal/auth"
	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/service/syncservice"
)

// pushReq is the request body for POST /v1/sync/push. TenantID is
// optional; when present it must match the authenticated tenant.
type pushReq struct {
	TenantID string               `json:"tenantId,omitempty"`
	DeviceID string               `json:"deviceId"`
	Changes  []syncservice.Change `json:"changes"`
}

// resolveReq is the request body for POST /v1/sync/resolve-conflict
type resolveReq struct {
	ConflictID string         `json:"conflictId"`
	Strategy   string         `json:"strategy"`
	MergedData map[string]any `json:"mergedData,omitempty"`
}

// Push handles POST /v1/sync/push
// Reconciles a device's change batch against the tenant's document
// store; conflicts come back as structured outcomes, not errors.
func (s *Server) Push(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantID(r.Context())

	var req pushReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid push request body")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.TenantID != "" && req.TenantID != tenantID {
		log.Warn().Str("tenant_id", tenantID).Str("body_tenant_id", req.TenantID).
			Msg("tenant mismatch between token and push body")
		writeError(w, http.StatusBadRequest, "tenant mismatch between request context and body")
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = auth.DeviceID(r.Context())
	}

	res, err := s.Sync.Push(r.Context(), tenantID, deviceID, req.Changes)
	if err != nil {
		if syncservice.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("push failed")
		writeError(w, http.StatusInternalServerError, "push failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Pull handles GET /v1/sync/pull?entities=<csv>&lastSyncedAt=<ts>&cursor=<opaque>&limit=<int>
// Read-only: re-issuing the same cursor reproduces the same page.
func (s *Server) Pull(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantID(r.Context())
	q := r.URL.Query()

	var ents []entity.Name
	if raw := q.Get("entities"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ents = append(ents, entity.Name(part))
			}
		}
	}

	res, err := s.Sync.Pull(r.Context(), tenantID, syncservice.PullOptions{
		Entities:     ents,
		LastSyncedAt: q.Get("lastSyncedAt"),
		Cursor:       q.Get("cursor"),
		Limit:        parseLimit(q.Get("limit"), syncservice.DefaultPullLimit, syncservice.MaxPullLimit),
	})
	if err != nil {
		if syncservice.IsValidation(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("pull failed")
		writeError(w, http.StatusInternalServerError, "pull failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Conflicts handles GET /v1/sync/conflicts
// Lists the tenant's unresolved conflicts for a resolution UI.
func (s *Server) Conflicts(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantID(r.Context())

	views, err := s.Sync.ListOpenConflicts(r.Context(), tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to list conflicts")
		writeError(w, http.StatusInternalServerError, "failed to list conflicts")
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// ResolveConflict handles POST /v1/sync/resolve-conflict
func (s *Server) ResolveConflict(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantID(r.Context())

	var req resolveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("invalid resolve request body")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	strategy, ok := entity.ParseStrategy(req.Strategy)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown strategy")
		return
	}

	res, err := s.Sync.ResolveConflict(r.Context(), tenantID, req.ConflictID, strategy, req.MergedData)
	if err != nil {
		if errors.Is(err, syncservice.ErrConflictNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Error().Err(err).Str("tenant_id", tenantID).Str("conflict_id", req.ConflictID).
			Msg("conflict resolution failed")
		writeError(w, http.StatusInternalServerError, "conflict resolution failed")
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Status handles GET /v1/sync/status
// Trivial liveness query reporting mode and server time.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"online":     true,
		"mode":       "cloud",
		"serverTime": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
