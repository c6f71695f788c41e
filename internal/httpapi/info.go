package httpapi

import (
	"net/http"
	"time"

	"github.com/simple-pos/sync-api/internal/entity"
	"github.com/simple-pos/sync-api/internal/service/syncservice"
)

// ServerInfo represents the server's capabilities and configuration
type ServerInfo struct {
	APIVersion string         `json:"apiVersion"`
	ServerTime string         `json:"serverTime"`
	Entities   []EntityInfo   `json:"entities"`
	Limits     SyncLimits     `json:"limits"`
	RateLimit  *RateLimitInfo `json:"rateLimit,omitempty"`
	Hints      *SyncHints     `json:"hints,omitempty"`
}

// EntityInfo describes one syncable entity type, in dependency order
type EntityInfo struct {
	Name            string `json:"name"`
	DefaultStrategy string `json:"defaultStrategy"`
}

// SyncLimits reports the server's fixed batch and page bounds
type SyncLimits struct {
	MaxBatchSize     int `json:"maxBatchSize"`
	DefaultPullLimit int `json:"defaultPullLimit"`
	MaxPullLimit     int `json:"maxPullLimit"`
}

// RateLimitInfo describes the server's rate limiting policy
type RateLimitInfo struct {
	WindowSeconds int `json:"windowSeconds"`
	MaxRequests   int `json:"maxRequests"`
	Burst         int `json:"burst"`
}

// SyncHints provides recommendations for client behavior
type SyncHints struct {
	RecommendedBatch int `json:"recommendedBatch"`
	BackoffMsOn429   int `json:"backoffMsOn429"`
}

// DefaultRateLimitConfig allows a healthy sync cadence per tenant while
// protecting the store from a runaway terminal.
var DefaultRateLimitConfig = RateLimitInfo{
	WindowSeconds: 60,
	MaxRequests:   600,
	Burst:         120,
}

// Info handles GET /v1/sync/info
// Returns server capabilities, the entity set in dependency order, and
// batch/page limits. Callable without authentication so terminals can
// discover capabilities before logging in.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	names := entity.All()
	entities := make([]EntityInfo, 0, len(names))
	for _, n := range names {
		entities = append(entities, EntityInfo{
			Name:            string(n),
			DefaultStrategy: string(entity.DefaultStrategy(n)),
		})
	}

	info := ServerInfo{
		APIVersion: "1.0",
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
		Entities:   entities,
		Limits: SyncLimits{
			MaxBatchSize:     syncservice.MaxBatchSize,
			DefaultPullLimit: syncservice.DefaultPullLimit,
			MaxPullLimit:     syncservice.MaxPullLimit,
		},
		RateLimit: &s.RateLimitConfig,
		Hints: &SyncHints{
			RecommendedBatch: 500,
			BackoffMsOn429:   1500,
		},
	}

	writeJSON(w, http.StatusOK, info)
}
