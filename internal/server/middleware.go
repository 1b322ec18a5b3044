package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/palette/internal/version"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middleware in order (first argument is outermost).
func Chain(handler http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// VersionHeader is set on every response.
const VersionHeader = "X-Palette-Version"

// access is the per-request record the access log is written from. Inner
// layers fill it in: auth sets the user, problem writers set the type.
type access struct {
	requestID string

	mu      sync.Mutex
	userID  string
	problem string
}

type accessKey struct{}

func accessFrom(ctx context.Context) *access {
	a, _ := ctx.Value(accessKey{}).(*access)
	return a
}

// RequestID returns the request ID assigned by AccessLogMiddleware.
func RequestID(ctx context.Context) string {
	if a := accessFrom(ctx); a != nil {
		return a.requestID
	}
	return ""
}

// SetUser attributes the request to userID for logging and rate limiting.
func SetUser(ctx context.Context, userID string) {
	if a := accessFrom(ctx); a != nil {
		a.mu.Lock()
		a.userID = userID
		a.mu.Unlock()
	}
}

// User returns the user set by SetUser, or "".
func User(ctx context.Context) string {
	if a := accessFrom(ctx); a != nil {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.userID
	}
	return ""
}

// accessWriter captures the status and the problem type of a response.
type accessWriter struct {
	http.ResponseWriter
	rec         *access
	status      int
	wroteHeader bool
}

func (w *accessWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *accessWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController and websocket upgrades reach the
// underlying writer.
func (w *accessWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *accessWriter) noteProblem(problemType string) {
	w.rec.mu.Lock()
	w.rec.problem = problemType
	w.rec.mu.Unlock()
}

// AccessLogMiddleware assigns a request ID, records request metrics and
// logs one line per request with the caller and any problem type. Premium
// refusals are logged as such. Paths in quiet are counted but not logged.
func AccessLogMiddleware(logger *zap.Logger, quiet ...string) Middleware {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			rec := &access{requestID: id}
			aw := &accessWriter{ResponseWriter: w, rec: rec, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(aw, r.WithContext(context.WithValue(r.Context(), accessKey{}, rec)))

			elapsed := time.Since(start)
			route := routeLabel(r.URL.Path, aw.status)
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(aw.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			if skip[r.URL.Path] {
				return
			}

			rec.mu.Lock()
			userID, problem := rec.userID, rec.problem
			rec.mu.Unlock()

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", aw.status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", id),
			}
			if userID != "" {
				fields = append(fields, zap.String("user_id", userID))
			}
			if problem != "" {
				fields = append(fields, zap.String("problem", problem))
			}

			switch {
			case problem == ProblemTypePremiumRequired:
				logger.Info("premium required", fields...)
			case aw.status >= http.StatusInternalServerError:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
		})
	}
}

// routeLabel keeps metric cardinality bounded: every route here is a fixed
// path, so anything unmatched collapses into one label.
func routeLabel(path string, status int) string {
	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed {
		return "unmatched"
	}
	return path
}

// HeadersMiddleware sets the version header on every response. Theme API
// responses are per-user JSON, so they also forbid caching and loading any
// content. Swagger UI under /swagger/ needs scripts and is left without a CSP.
func HeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set(VersionHeader, version.Short())
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.Set("Cache-Control", "no-store")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
		}
		next.ServeHTTP(w, r)
	})
}

// RecoveryMiddleware turns a handler panic into a 500 problem response.
func RecoveryMiddleware(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestID(r.Context())),
					)
					InternalError(w, "an unexpected error occurred", r.URL.Path)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit configures RateLimitMiddleware.
type RateLimit struct {
	RPS       float64
	Burst     int
	SkipPaths []string
}

// DefaultRateLimit allows 20 requests per second with bursts of 40 per
// caller. Health checks and metrics scrapes are exempt.
func DefaultRateLimit() RateLimit {
	return RateLimit{RPS: 20, Burst: 40, SkipPaths: []string{"/healthz", "/readyz", "/metrics"}}
}

// RateLimitMiddleware limits each caller to cfg.RPS. Authenticated callers
// are keyed by user, so one user cannot exhaust a shared NAT address and
// one address cannot rotate tokens to reset its budget per user. It must
// run inside the auth middleware for the user key to be available.
func RateLimitMiddleware(cfg RateLimit) Middleware {
	buckets := &limiterSet{limit: rate.Limit(cfg.RPS), burst: cfg.Burst, idle: 10 * time.Minute}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if !buckets.allow(callerKey(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				RateLimited(w, "rate limit exceeded", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the caller for rate limiting.
func callerKey(r *http.Request) string {
	if user := User(r.Context()); user != "" {
		return "user:" + user
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// limiterSet holds one token bucket per caller key and forgets keys that
// have been idle for longer than idle.
type limiterSet struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu       sync.Mutex
	buckets  map[string]*bucket
	lastScan time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buckets == nil {
		s.buckets = make(map[string]*bucket)
		s.lastScan = now
	}
	if now.Sub(s.lastScan) > s.idle {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > s.idle {
				delete(s.buckets, k)
			}
		}
		s.lastScan = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}
