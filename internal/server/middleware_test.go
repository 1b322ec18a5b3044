package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// bearerUser stands in for the auth middleware: the bearer value is the user.
func bearerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			SetUser(r.Context(), user)
		}
		next.ServeHTTP(w, r)
	})
}

func TestAccessLog_Entries(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		user        string
		handler     http.HandlerFunc
		wantMessage string
		wantLevel   zapcore.Level
		wantStatus  int
		wantProblem string
	}{
		{
			name: "preference read", method: "GET", path: "/api/v1/theme/preferences", user: "u1",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				WriteJSON(w, http.StatusOK, map[string]string{"color_mode": "dark"})
			},
			wantMessage: "http request", wantLevel: zap.InfoLevel, wantStatus: http.StatusOK,
		},
		{
			name: "premium refusal", method: "PUT", path: "/api/v1/theme/preferences", user: "u1",
			handler: func(w http.ResponseWriter, r *http.Request) {
				PremiumRequired(w, "this palette requires a premium subscription", r.URL.Path)
			},
			wantMessage: "premium required", wantLevel: zap.InfoLevel, wantStatus: http.StatusForbidden,
			wantProblem: ProblemTypePremiumRequired,
		},
		{
			name: "no stored preference", method: "GET", path: "/api/v1/theme/preferences", user: "u2",
			handler: func(w http.ResponseWriter, r *http.Request) {
				NotFound(w, "no theme preference stored", r.URL.Path)
			},
			wantMessage: "http request", wantLevel: zap.InfoLevel, wantStatus: http.StatusNotFound,
			wantProblem: ProblemTypeNotFound,
		},
		{
			name: "entitlement lookup failure", method: "GET", path: "/api/v1/subscription/premium", user: "u1",
			handler: func(w http.ResponseWriter, r *http.Request) {
				InternalError(w, "failed to check entitlement", r.URL.Path)
			},
			wantMessage: "http request", wantLevel: zap.WarnLevel, wantStatus: http.StatusInternalServerError,
			wantProblem: ProblemTypeInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			h := Chain(tt.handler, AccessLogMiddleware(zap.New(core)), bearerUser)

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tt.user)
			h.ServeHTTP(httptest.NewRecorder(), req)

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("got %d log entries, want 1", len(entries))
			}
			e := entries[0]
			if e.Message != tt.wantMessage || e.Level != tt.wantLevel {
				t.Errorf("entry = %s %q, want %s %q", e.Level, e.Message, tt.wantLevel, tt.wantMessage)
			}
			fields := e.ContextMap()
			if fields["user_id"] != tt.user {
				t.Errorf("user_id = %v, want %q", fields["user_id"], tt.user)
			}
			if got := fields["status"]; got != int64(tt.wantStatus) {
				t.Errorf("status = %v, want %d", got, tt.wantStatus)
			}
			if got, _ := fields["problem"].(string); got != tt.wantProblem {
				t.Errorf("problem = %q, want %q", got, tt.wantProblem)
			}
		})
	}
}

func TestAccessLog_QuietPathsAndAnonymous(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := AccessLogMiddleware(zap.New(core), "/healthz")(ok)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", http.NoBody))
	if n := logs.Len(); n != 0 {
		t.Fatalf("quiet path logged %d entries", n)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/health", http.NoBody))
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if _, ok := entries[0].ContextMap()["user_id"]; ok {
		t.Error("anonymous request logged a user_id")
	}
}

func TestAccessLog_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "trace-7f3a", wantSame: true},
		{name: "oversized replaced", incoming: strings.Repeat("x", 129)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := AccessLogMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/api/v1/theme/preferences", http.NoBody)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got != seen {
				t.Errorf("header %q != context %q", got, seen)
			}
			if tt.wantSame && got != tt.incoming {
				t.Errorf("request ID = %q, want %q", got, tt.incoming)
			}
			if !tt.wantSame && len(got) != 36 {
				t.Errorf("request ID = %q, want a fresh UUID", got)
			}
		})
	}
}

func TestRecovery_LoggedAsServerError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("resolver exploded")
	}), AccessLogMiddleware(logger), RecoveryMiddleware(logger))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/theme/preferences", http.NoBody))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if n := logs.FilterMessage("panic recovered").Len(); n != 1 {
		t.Errorf("panic entries = %d, want 1", n)
	}
	access := logs.FilterMessage("http request").All()
	if len(access) != 1 || access[0].Level != zap.WarnLevel {
		t.Fatalf("access entries = %+v, want one warn", access)
	}
	if got := access[0].ContextMap()["problem"]; got != ProblemTypeInternal {
		t.Errorf("problem = %v, want %q", got, ProblemTypeInternal)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	tests := []struct {
		path    string
		wantAPI bool
	}{
		{"/api/v1/theme/preferences", true},
		{"/api/v1/subscription/premium", true},
		{"/swagger/index.html", false},
		{"/healthz", false},
	}
	h := HeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", tt.path, http.NoBody))

			if w.Header().Get(VersionHeader) == "" {
				t.Errorf("%s missing", VersionHeader)
			}
			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
			apiOnly := map[string]string{
				"Cache-Control":           "no-store",
				"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
				"Referrer-Policy":         "no-referrer",
			}
			for header, want := range apiOnly {
				if !tt.wantAPI {
					want = ""
				}
				if got := w.Header().Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
		})
	}
}

func TestRateLimit_KeyedByUser(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Chain(ok,
		AccessLogMiddleware(zap.NewNop()),
		bearerUser,
		RateLimitMiddleware(RateLimit{RPS: 0.001, Burst: 1, SkipPaths: []string{"/healthz"}}),
	)

	put := func(user, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PUT", "/api/v1/theme/preferences", http.NoBody)
		req.RemoteAddr = remote
		if user != "" {
			req.Header.Set("Authorization", "Bearer "+user)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	// Two users behind one address each get their own budget.
	if w := put("alice", "10.0.0.1:1000"); w.Code != http.StatusOK {
		t.Fatalf("alice first: %d", w.Code)
	}
	if w := put("bob", "10.0.0.1:1001"); w.Code != http.StatusOK {
		t.Fatalf("bob first: %d", w.Code)
	}

	// A user's budget follows them across addresses.
	w := put("alice", "10.0.0.9:2000")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("alice second: %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 without Retry-After")
	}

	// Anonymous callers are keyed by address.
	if w := put("", "10.0.0.1:3000"); w.Code != http.StatusOK {
		t.Fatalf("anonymous first: %d", w.Code)
	}
	if w := put("", "10.0.0.1:3001"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("anonymous second: %d, want 429", w.Code)
	}

	for i := range 5 {
		req := httptest.NewRequest("GET", "/healthz", http.NoBody)
		req.RemoteAddr = "10.0.0.1:4000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("healthz %d: %d", i, w.Code)
		}
	}
}

func TestLimiterSet_ForgetsIdleCallers(t *testing.T) {
	s := &limiterSet{limit: 1, burst: 1, idle: time.Minute}
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.allow("user:alice", t0)
	s.allow("user:bob", t0.Add(90*time.Second))
	s.allow("user:carol", t0.Add(2*time.Minute))

	if _, ok := s.buckets["user:alice"]; ok {
		t.Error("idle alice bucket kept")
	}
	if len(s.buckets) != 2 {
		t.Errorf("buckets = %d, want 2 (bob, carol)", len(s.buckets))
	}
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/v1/theme/preferences", http.StatusOK, "/api/v1/theme/preferences"},
		{"/api/v1/theme/preferences", http.StatusForbidden, "/api/v1/theme/preferences"},
		{"/wp-login.php", http.StatusNotFound, "unmatched"},
		{"/api/v1/subscription/premium", http.StatusMethodNotAllowed, "unmatched"},
	}
	for _, tt := range tests {
		if got := routeLabel(tt.path, tt.status); got != tt.want {
			t.Errorf("routeLabel(%q, %d) = %q, want %q", tt.path, tt.status, got, tt.want)
		}
	}
}

func TestAccessWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	aw := &accessWriter{ResponseWriter: rec, rec: &access{}, status: http.StatusOK}

	aw.WriteHeader(http.StatusAccepted)
	aw.WriteHeader(http.StatusTeapot)
	if aw.status != http.StatusAccepted {
		t.Errorf("status = %d, want first WriteHeader to win", aw.status)
	}
	if err := http.NewResponseController(aw).Flush(); err != nil {
		t.Errorf("Flush through accessWriter: %v", err)
	}
	if !rec.Flushed {
		t.Error("underlying writer not flushed")
	}
}

func TestChain_Order(t *testing.T) {
	var trace strings.Builder
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trace.WriteString(name + ">")
				next.ServeHTTP(w, r)
				trace.WriteString("<" + name)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		trace.WriteString("handler")
	}), tag("log"), tag("auth"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))
	if got, want := trace.String(), "log>auth>handler<auth<log"; got != want {
		t.Errorf("trace = %q, want %q", got, want)
	}
}
