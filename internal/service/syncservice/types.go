package syncservice

import (
	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/store"
	"github.com/simple-pos/sync-api/internal/syncx"
)

// Sync operations carried by a change.
const (
	OpCreate = "CREATE"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Batch and page bounds shared by push and pull.
const (
	MaxBatchSize     = 1000
	DefaultPullLimit = 500
	MaxPullLimit     = 1000
)

// Change is one device-made modification travelling through push or
// pull. LocalID is `any` because devices send it as either a string or
// a number; the engine normalizes it to text for storage.
type Change struct {
	Entity    string         `json:"entity"`
	Operation string         `json:"operation"`
	LocalID   any            `json:"localId,omitempty"`
	CloudID   string         `json:"cloudId,omitempty"`
	Data      map[string]any `json:"data"`
	Version   int            `json:"version"`
	Timestamp string         `json:"timestamp"`
}

// Accepted acknowledges one applied change, echoing the resolved
// server identifier so the device can learn it.
type Accepted struct {
	Entity   string `json:"entity"`
	LocalID  any    `json:"localId,omitempty"`
	CloudID  string `json:"cloudId"`
	SyncedAt string `json:"syncedAt"`
}

// Rejected reports one change the server refused to apply.
type Rejected struct {
	Entity  string `json:"entity"`
	LocalID any    `json:"localId,omitempty"`
	CloudID string `json:"cloudId,omitempty"`
	Reason  string `json:"reason"`
}

// ConflictView is the wire representation of a recorded conflict,
// annotated with both sides' embedded modification timestamps for
// display in a resolution UI.
type ConflictView struct {
	ID              string          `json:"id"`
	Entity          string          `json:"entity"`
	CloudID         string          `json:"cloudId"`
	LocalID         any             `json:"localId,omitempty"`
	Strategy        entity.Strategy `json:"strategy"`
	ServerVersion   int             `json:"serverVersion"`
	ClientVersion   int             `json:"clientVersion"`
	ServerData      map[string]any  `json:"serverData"`
	ClientData      map[string]any  `json:"clientData"`
	ServerTimestamp string          `json:"serverTimestamp,omitempty"`
	ClientTimestamp string          `json:"clientTimestamp,omitempty"`
	Resolved        bool            `json:"resolved"`
}

// PushResult is the outcome of one push call. Every submitted change
// lands in exactly one of Accepted, Rejected or Conflicts; Success is
// true only when no conflicts were detected.
type PushResult struct {
	Success   bool           `json:"success"`
	Conflicts []ConflictView `json:"conflicts"`
	Accepted  []Accepted     `json:"accepted"`
	Rejected  []Rejected     `json:"rejected"`
	SyncedAt  string         `json:"syncedAt"`
}

// Deletion reports a tombstoned document during pull.
type Deletion struct {
	Entity    string `json:"entity"`
	CloudID   string `json:"cloudId"`
	DeletedAt string `json:"deletedAt,omitempty"`
}

// PullResult is one page of the delta stream.
type PullResult struct {
	Changes    []Change   `json:"changes"`
	Deletions  []Deletion `json:"deletions"`
	SyncedAt   string     `json:"syncedAt"`
	HasMore    bool       `json:"hasMore"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

// PullOptions narrows a pull call. Zero values mean: all entities,
// from the beginning, default page size.
type PullOptions struct {
	Entities     []entity.Name
	LastSyncedAt string
	Cursor       string
	Limit        int
}

// ResolveResult acknowledges a conflict resolution.
type ResolveResult struct {
	Success    bool   `json:"success"`
	ConflictID string `json:"conflictId"`
	SyncedAt   string `json:"syncedAt"`
}

// Service orchestrates push, pull and conflict resolution on top of a
// tenant-scoped document store.
type Service struct {
	store store.Store
}

// New creates a Service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

func conflictView(c *store.Conflict) ConflictView {
	var localID any
	if c.LocalID != nil {
		localID = *c.LocalID
	}
	v := ConflictView{
		ID:            c.ID,
		Entity:        string(c.Entity),
		CloudID:       c.CloudID,
		LocalID:       localID,
		Strategy:      c.Strategy,
		ServerVersion: c.ServerVersion,
		ClientVersion: c.ClientVersion,
		ServerData:    c.ServerData,
		ClientData:    c.ClientData,
		Resolved:      c.Resolved,
	}
	v.ServerTimestamp = syncx.ReadLastModified(c.ServerData)
	v.ClientTimestamp = syncx.ReadLastModified(c.ClientData)
	return v
}
