package httpapi

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/simple-pos/sync-api/internal/auth"
	"github.com/simple-pos/sync-api/internal/service/syncservice"
	"github.com/simple-pos/sync-api/internal/store/memstore"
)

func TestRateLimiting429Response(t *testing.T) {
	// Very restrictive limit so the test exhausts the burst immediately
	srv := &Server{
		Sync: syncservice.New(memstore.New()),
		RateLimitConfig: RateLimitInfo{
			WindowSeconds: 60,
			MaxRequests:   10,
			Burst:         2,
		},
	}
	router := srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true})

	for i := 1; i <= 3; i++ {
		req := httptest.NewRequest("GET", "/v1/sync/pull", nil)
		req.Header.Set("X-Debug-Sub", "staff-1")
		req.Header.Set("X-Debug-Tenant", "tenant-a")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-RateLimit-Burst"} {
			if rec.Header().Get(h) == "" {
				t.Errorf("request %d: %s header missing", i, h)
			}
		}

		if i <= 2 {
			if rec.Code != 200 {
				t.Errorf("request %d: status = %d, want 200 within burst", i, rec.Code)
			}
		} else {
			if rec.Code != 429 {
				t.Fatalf("request %d: status = %d, want 429", i, rec.Code)
			}
			retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
			if err != nil || retryAfter < 1 {
				t.Errorf("Retry-After = %q, want positive integer", rec.Header().Get("Retry-After"))
			}
		}
	}
}

func TestRateLimitPerTenantIsolation(t *testing.T) {
	srv := &Server{
		Sync: syncservice.New(memstore.New()),
		RateLimitConfig: RateLimitInfo{
			WindowSeconds: 60,
			MaxRequests:   10,
			Burst:         1,
		},
	}
	router := srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true})

	pull := func(tenant string) int {
		req := httptest.NewRequest("GET", "/v1/sync/pull", nil)
		req.Header.Set("X-Debug-Sub", "staff-1")
		req.Header.Set("X-Debug-Tenant", tenant)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := pull("tenant-a"); code != 200 {
		t.Fatalf("tenant-a first request = %d", code)
	}
	if code := pull("tenant-a"); code != 429 {
		t.Fatalf("tenant-a second request = %d, want 429", code)
	}
	// A different tenant draws from its own bucket
	if code := pull("tenant-b"); code != 200 {
		t.Errorf("tenant-b request = %d, want 200", code)
	}
}

func TestTokenBucketRefill(t *testing.T) {
	// 100 tokens/second so the refill is observable without a long sleep
	tb := NewTokenBucket(1, 100)

	allowed, _, _, _ := tb.Allow()
	if !allowed {
		t.Fatal("first request should be allowed")
	}
	allowed, _, _, _ = tb.Allow()
	if allowed {
		t.Fatal("second immediate request should be denied")
	}

	time.Sleep(20 * time.Millisecond)

	allowed, _, _, _ = tb.Allow()
	if !allowed {
		t.Error("request after refill interval should be allowed")
	}
}

func TestConflictEndpointsNotRateLimited(t *testing.T) {
	srv := &Server{
		Sync: syncservice.New(memstore.New()),
		RateLimitConfig: RateLimitInfo{
			WindowSeconds: 60,
			MaxRequests:   10,
			Burst:         1,
		},
	}
	router := srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true})

	// Exhaust the push/pull bucket
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/v1/sync/pull", nil)
		req.Header.Set("X-Debug-Sub", "staff-1")
		req.Header.Set("X-Debug-Tenant", "tenant-a")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	// The conflict listing lives outside the rate-limited group
	req := httptest.NewRequest("GET", "/v1/sync/conflicts", nil)
	req.Header.Set("X-Debug-Sub", "staff-1")
	req.Header.Set("X-Debug-Tenant", "tenant-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Errorf("conflicts status = %d, want 200 despite exhausted sync bucket", rec.Code)
	}
}
