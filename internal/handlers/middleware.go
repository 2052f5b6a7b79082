package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"heritagequest/internal/logger"
	"heritagequest/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey      ContextKey = "user"
	RequestIDContextKey ContextKey = "request_id"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	verifier *security.TokenVerifier
	limiter  *security.RateLimiter
	log      *logger.Logger
}

// NewMiddleware creates a new middleware instance. A nil limiter disables rate limiting.
func NewMiddleware(verifier *security.TokenVerifier, limiter *security.RateLimiter, log *logger.Logger) *Middleware {
	if log == nil {
		log = logger.Discard()
	}
	return &Middleware{verifier: verifier, limiter: limiter, log: log}
}

// RequireAuth is middleware that requires a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := m.verifier.Verify(security.BearerToken(r.Header.Get("Authorization")))
		if err != nil {
			m.log.WithRequestID(GetRequestIDFromContext(r.Context())).WithError(err).Debug("rejected token")
			respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil, m.log)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects clients that exceed their request budget
func (m *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil, m.log)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging tags every request with an id and logs it once it finishes
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		entry := m.log.WithRequestID(requestID).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   security.GetClientIP(r),
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("request failed")
		} else {
			entry.Info("request")
		}
	})
}

// Recover turns a handler panic into a 500
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				m.log.WithRequestID(GetRequestIDFromContext(r.Context())).WithField("panic", p).Error("handler panicked")
				respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "", nil, m.log)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext retrieves the authenticated user id from the request context
func GetUserFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(UserContextKey).(string)
	return userID
}

// GetRequestIDFromContext retrieves the request id set by Logging
func GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDContextKey).(string)
	return requestID
}
