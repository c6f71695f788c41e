package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/simple-pos/sync-api/internal/auth"
	"github.com/simple-pos/sync-api/internal/service/syncservice"
	"github.com/simple-pos/sync-api/internal/store/memstore"
)

func newTestRouter() http.Handler {
	srv := &Server{
		Sync:            syncservice.New(memstore.New()),
		RateLimitConfig: DefaultRateLimitConfig,
	}
	return srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, tenant string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set("X-Debug-Sub", "staff-1")
		req.Header.Set("X-Debug-Tenant", tenant)
		req.Header.Set("X-Debug-Device", "term-1")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "GET", "/healthz", nil, "")
	if rec.Code != 200 {
		t.Errorf("healthz status = %d", rec.Code)
	}
}

func TestInfoUnauthenticated(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "GET", "/v1/sync/info", nil, "")
	if rec.Code != 200 {
		t.Fatalf("info status = %d", rec.Code)
	}

	var info ServerInfo
	decodeBody(t, rec, &info)

	if len(info.Entities) != 15 {
		t.Errorf("entities = %d, want 15", len(info.Entities))
	}
	if info.Entities[0].Name != "account" {
		t.Errorf("first entity = %s, want account (dependency order)", info.Entities[0].Name)
	}
	if info.Limits.MaxBatchSize != syncservice.MaxBatchSize {
		t.Errorf("maxBatchSize = %d", info.Limits.MaxBatchSize)
	}
	if info.RateLimit == nil || info.RateLimit.MaxRequests == 0 {
		t.Error("rate limit config missing")
	}
}

func TestStatusEndpoint(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "GET", "/v1/sync/status", nil, "")
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["online"] != true || body["mode"] != "cloud" {
		t.Errorf("status body = %v", body)
	}
}

func TestPushRequiresAuth(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "POST", "/v1/sync/push", map[string]any{}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated push status = %d, want 401", rec.Code)
	}
}

func TestPushAndPullRoundTrip(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, "POST", "/v1/sync/push", map[string]any{
		"deviceId": "term-9",
		"changes": []map[string]any{{
			"entity":    "product",
			"operation": "CREATE",
			"localId":   "l1",
			"data":      map[string]any{"name": "Espresso"},
			"version":   0,
			"timestamp": "2024-11-03T12:00:00Z",
		}},
	}, "tenant-a")
	if rec.Code != 200 {
		t.Fatalf("push status = %d (body: %s)", rec.Code, rec.Body.String())
	}

	var pushRes syncservice.PushResult
	decodeBody(t, rec, &pushRes)
	if !pushRes.Success || len(pushRes.Accepted) != 1 {
		t.Fatalf("push result = %+v", pushRes)
	}

	rec = doJSON(t, router, "GET", "/v1/sync/pull?entities=product", nil, "tenant-a")
	if rec.Code != 200 {
		t.Fatalf("pull status = %d", rec.Code)
	}

	var pullRes syncservice.PullResult
	decodeBody(t, rec, &pullRes)
	if len(pullRes.Changes) != 1 {
		t.Fatalf("pull changes = %d, want 1", len(pullRes.Changes))
	}
	if pullRes.Changes[0].CloudID != pushRes.Accepted[0].CloudID {
		t.Error("pulled cloudId does not match pushed")
	}

	// Another tenant sees nothing
	rec = doJSON(t, router, "GET", "/v1/sync/pull", nil, "tenant-b")
	var otherRes syncservice.PullResult
	decodeBody(t, rec, &otherRes)
	if len(otherRes.Changes) != 0 {
		t.Errorf("tenant-b sees %d foreign changes", len(otherRes.Changes))
	}
}

func TestPushDeviceIDFromToken(t *testing.T) {
	router := newTestRouter()

	// No deviceId in body: the terminal claim from auth fills it
	rec := doJSON(t, router, "POST", "/v1/sync/push", map[string]any{
		"changes": []map[string]any{{
			"entity":    "product",
			"operation": "CREATE",
			"data":      map[string]any{},
			"timestamp": "2024-11-03T12:00:00Z",
		}},
	}, "tenant-a")
	if rec.Code != 200 {
		t.Fatalf("push status = %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestPushTenantMismatch(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "POST", "/v1/sync/push", map[string]any{
		"tenantId": "someone-else",
		"deviceId": "term-1",
		"changes":  []map[string]any{},
	}, "tenant-a")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("tenant mismatch status = %d, want 400", rec.Code)
	}
}

func TestPushValidationFailure(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "POST", "/v1/sync/push", map[string]any{
		"deviceId": "term-1",
		"changes": []map[string]any{{
			"entity":    "product",
			"operation": "UPSERT",
			"data":      map[string]any{},
			"timestamp": "2024-11-03T12:00:00Z",
		}},
	}, "tenant-a")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid operation status = %d, want 400", rec.Code)
	}
}

func TestPushInvalidJSON(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest("POST", "/v1/sync/push", bytes.NewBufferString("{nope"))
	req.Header.Set("X-Debug-Sub", "staff-1")
	req.Header.Set("X-Debug-Tenant", "tenant-a")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want 400", rec.Code)
	}
}

func TestPullMalformedCursorIs400(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "GET", "/v1/sync/pull?cursor=%25garbage", nil, "tenant-a")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed cursor status = %d, want 400", rec.Code)
	}
}

func TestConflictWorkflowOverHTTP(t *testing.T) {
	router := newTestRouter()

	push := func(version int, total float64, device string) *httptest.ResponseRecorder {
		return doJSON(t, router, "POST", "/v1/sync/push", map[string]any{
			"deviceId": device,
			"changes": []map[string]any{{
				"entity":    "order",
				"operation": "UPDATE",
				"cloudId":   "o1",
				"data":      map[string]any{"total": total},
				"version":   version,
				"timestamp": "2024-11-03T12:00:00Z",
			}},
		}, "tenant-a")
	}

	push(1, 10.0, "term-1")
	push(1, 12.0, "term-1") // server moves to version 2

	rec := push(1, 99.0, "term-2") // stale basis
	var pushRes syncservice.PushResult
	decodeBody(t, rec, &pushRes)
	if pushRes.Success || len(pushRes.Conflicts) != 1 {
		t.Fatalf("expected conflict, got %+v", pushRes)
	}
	conflictID := pushRes.Conflicts[0].ID

	// Listed as open
	rec = doJSON(t, router, "GET", "/v1/sync/conflicts", nil, "tenant-a")
	if rec.Code != 200 {
		t.Fatalf("conflicts status = %d", rec.Code)
	}
	var open []syncservice.ConflictView
	decodeBody(t, rec, &open)
	if len(open) != 1 || open[0].ID != conflictID {
		t.Fatalf("open conflicts = %+v", open)
	}

	// Resolve client-wins
	rec = doJSON(t, router, "POST", "/v1/sync/resolve-conflict", map[string]any{
		"conflictId": conflictID,
		"strategy":   "CLIENT_WINS",
	}, "tenant-a")
	if rec.Code != 200 {
		t.Fatalf("resolve status = %d (body: %s)", rec.Code, rec.Body.String())
	}
	var resolveRes syncservice.ResolveResult
	decodeBody(t, rec, &resolveRes)
	if !resolveRes.Success {
		t.Errorf("resolve result = %+v", resolveRes)
	}

	// Resolving again is a 404
	rec = doJSON(t, router, "POST", "/v1/sync/resolve-conflict", map[string]any{
		"conflictId": conflictID,
		"strategy":   "SERVER_WINS",
	}, "tenant-a")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second resolve status = %d, want 404", rec.Code)
	}
}

func TestResolveUnknownStrategy(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "POST", "/v1/sync/resolve-conflict", map[string]any{
		"conflictId": "c1",
		"strategy":   "COIN_FLIP",
	}, "tenant-a")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown strategy status = %d, want 400", rec.Code)
	}
}

func TestResolveUnknownConflictIs404(t *testing.T) {
	rec := doJSON(t, newTestRouter(), "POST", "/v1/sync/resolve-conflict", map[string]any{
		"conflictId": "no-such-conflict",
		"strategy":   "SERVER_WINS",
	}, "tenant-a")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown conflict status = %d, want 404", rec.Code)
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Errorf("correlation id = %q, want echo of corr-123", got)
	}

	// Generated when absent
	req = httptest.NewRequest("GET", "/healthz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("correlation id not generated")
	}
}
