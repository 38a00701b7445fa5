package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"careermatch/internal/config"
	"careermatch/internal/errors"
	"careermatch/internal/observability"
	"careermatch/internal/types"
)

// fakeMatcher scripts pipeline behavior for handler tests.
type fakeMatcher struct {
	result *types.MatchResult
	err    error
	gotReq types.MatchRequest
}

func (f *fakeMatcher) Match(ctx context.Context, req types.MatchRequest) (*types.MatchResult, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testServerConfig() *config.Config {
	return &config.Config{
		Matching: config.MatchingConfig{
			TargetMatchCount: 5,
			PreFilterMaxSize: 25,
			OracleTimeout:    15 * time.Second,
			OverallBudget:    40 * time.Second,
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
		App: config.AppConfig{
			LogLevel:       "error",
			MaxRequestSize: 1 << 20,
		},
	}
}

func newTestServer(t *testing.T, matcher Matcher, cfg *config.Config) (*Server, *observability.Manager) {
	t.Helper()
	if cfg == nil {
		cfg = testServerConfig()
	}
	logger, err := errors.New("error")
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}

	srv := NewServer(cfg, Deps{
		Matcher: matcher,
		Logger:  logger,
		Version: "test",
	})

	om, err := observability.NewManager(config.ObservabilityConfig{Enabled: false}, "test")
	if err != nil {
		t.Fatalf("create observability manager: %v", err)
	}
	return srv, om
}

func postMatch(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/match", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestMatchHandlerSuccess(t *testing.T) {
	matcher := &fakeMatcher{result: &types.MatchResult{
		Candidates: []types.MatchCandidate{
			{CatalogItemID: "p1", Score: 90, Reasoning: "fit"},
		},
		Source:              "oracle",
		TotalCatalogSize:    10,
		FilteredCatalogSize: 5,
	}}
	srv, om := newTestServer(t, matcher, nil)
	handler := srv.createMatchHandler(om)

	rec := postMatch(t, handler, `{"profileId":"u1","stage":"pathfinder"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	var resp MatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if len(resp.Data.Candidates) != 1 || resp.Data.Candidates[0].CatalogItemID != "p1" {
		t.Errorf("candidates = %+v, want single p1", resp.Data.Candidates)
	}
	if matcher.gotReq.ProfileID != "u1" {
		t.Errorf("pipeline saw profileId %q, want u1", matcher.gotReq.ProfileID)
	}
}

func TestMatchHandlerValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"missing profileId", `{"stage":"pathfinder"}`, errors.ErrCodeInvalidRequest},
		{"malformed json", `{"profileId":`, errors.ErrCodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, om := newTestServer(t, &fakeMatcher{result: &types.MatchResult{}}, nil)
			rec := postMatch(t, srv.createMatchHandler(om), tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Success {
				t.Error("success = true on error response")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestMatchHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"profile not found",
			errors.NewNotFoundError(errors.ErrCodeProfileNotFound, "no such profile", nil),
			http.StatusNotFound,
			errors.ErrCodeProfileNotFound,
		},
		{
			"missing stage",
			errors.NewValidationError(errors.ErrCodeMissingStage, "stage required", nil),
			http.StatusBadRequest,
			errors.ErrCodeMissingStage,
		},
		{
			"budget exceeded",
			errors.NewTimeoutError(errors.ErrCodeBudgetExceeded, "too slow", nil),
			http.StatusGatewayTimeout,
			errors.ErrCodeBudgetExceeded,
		},
		{
			"store down",
			errors.NewStoreError(errors.ErrCodeStoreFailed, "db down", nil),
			http.StatusServiceUnavailable,
			errors.ErrCodeStoreFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, om := newTestServer(t, &fakeMatcher{err: tt.err}, nil)
			rec := postMatch(t, srv.createMatchHandler(om), `{"profileId":"u1"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("error code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestMatchHandlerMethodNotAllowed(t *testing.T) {
	srv, om := newTestServer(t, &fakeMatcher{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/match", nil)
	rec := httptest.NewRecorder()
	srv.createMatchHandler(om)(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMatchHandlerRequiresJSONContentType(t *testing.T) {
	srv, om := newTestServer(t, &fakeMatcher{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/match", strings.NewReader(`{"profileId":"u1"}`))
	rec := httptest.NewRecorder()
	srv.createMatchHandler(om)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without content type", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.APIKeys = []string{"secret-key-12345"}
	srv, _ := newTestServer(t, &fakeMatcher{}, cfg)

	called := false
	handler := srv.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing key rejected", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/v1/match", nil)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized || called {
			t.Errorf("status = %d, called = %v; want 401, not called", rec.Code, called)
		}
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/v1/match", nil)
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized || called {
			t.Errorf("status = %d, called = %v; want 401, not called", rec.Code, called)
		}
	})

	t.Run("header key accepted", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/v1/match", nil)
		req.Header.Set("X-API-Key", "secret-key-12345")
		rec := httptest.NewRecorder()
		handler(rec, req)
		if !called {
			t.Error("valid X-API-Key not accepted")
		}
	})

	t.Run("bearer token accepted", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/v1/match", nil)
		req.Header.Set("Authorization", "Bearer secret-key-12345")
		rec := httptest.NewRecorder()
		handler(rec, req)
		if !called {
			t.Error("valid bearer token not accepted")
		}
	})
}

func TestRateLimiterEnforcesBurst(t *testing.T) {
	logger, _ := errors.New("error")
	rl := NewRateLimiter(60, time.Minute, 2, logger)
	defer rl.Close()

	if !rl.Allow("ip:1.2.3.4") || !rl.Allow("ip:1.2.3.4") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("ip:1.2.3.4") {
		t.Error("request over burst should be rejected")
	}
	// Other keys have their own buckets.
	if !rl.Allow("ip:5.6.7.8") {
		t.Error("separate key should not share a bucket")
	}
}

func TestClientIPExtraction(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*http.Request)
		remote string
		want   string
	}{
		{
			"x-forwarded-for",
			func(r *http.Request) { r.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2") },
			"192.168.1.1:1234",
			"10.0.0.1",
		},
		{
			"x-real-ip",
			func(r *http.Request) { r.Header.Set("X-Real-IP", "10.0.0.3") },
			"192.168.1.1:1234",
			"10.0.0.3",
		},
		{
			"remote addr",
			func(r *http.Request) {},
			"192.168.1.1:1234",
			"192.168.1.1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			tt.setup(req)
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
