// Package httpapi exposes the vault over an HTTP/JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/limiter"
	"github.com/algohackers/saarthi-vault/internal/service"
)

// ManagerFactory builds a fresh identity manager for each new session.
type ManagerFactory func() *service.IdentityManager

// Server wires identity managers into HTTP handlers. Key custody stays in
// the per-session managers; the server only routes, authenticates tokens
// and rate-limits logins.
type Server struct {
	log        *zap.Logger
	newManager ManagerFactory
	lim        limiter.Limiter
	signKey    []byte
	ttl        time.Duration
	sessions   *sessionRegistry
}

// New constructs a server with injected collaborators.
func New(log *zap.Logger, factory ManagerFactory, lim limiter.Limiter, signKey []byte, ttl time.Duration) *Server {
	return &Server{
		log:        log,
		newManager: factory,
		lim:        lim,
		signKey:    signKey,
		ttl:        ttl,
		sessions:   newSessionRegistry(),
	}
}

// SweepSessions reaps expired sessions every interval until ctx is done,
// zeroizing the key material of sessions nobody came back for.
func (s *Server) SweepSessions(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.sessions.sweepExpired(now); n > 0 {
				s.log.Info("expired sessions reaped", zap.Int("count", n))
			}
		}
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer(s.log))
	r.Use(requestLogger(s.log))
	r.Use(metricsMiddleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/enroll", s.handleEnroll)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/logout", s.handleLogout)
			r.Post("/reauth", s.handleReauth)
			r.Get("/profile", s.handleProfile)
			r.Get("/pii", s.handleListPII)
			r.Put("/pii/{type}", s.handlePutPII)
			r.Get("/pii/{type}", s.handleGetPII)
			r.Delete("/key", s.handlePurgeKey)
		})
	})
	return r
}

// withSession authenticates the bearer token and resolves the session's
// identity manager into the request context.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearerToken(r)
		if err != nil {
			writeError(w, errs.ErrNotAuthenticated)
			return
		}
		sessionID, err := parseToken(s.signKey, tok)
		if err != nil {
			writeError(w, errs.ErrNotAuthenticated)
			return
		}
		m, ok := s.sessions.get(sessionID)
		if !ok {
			writeError(w, errs.ErrNotAuthenticated)
			return
		}
		ctx := withSessionCtx(r.Context(), sessionID, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses and stable error
// codes. The two key failure modes stay distinguishable: a missing wrapping
// key asks for re-enrollment, a failed unwrap signals corruption or a key
// swap and is never retryable.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation", Error: err.Error()})
	case errors.Is(err, errs.ErrNoSubjectDetected):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "no_subject", Error: err.Error()})
	case errors.Is(err, errs.ErrInconsistentCapture):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "inconsistent_capture", Error: err.Error()})
	case errors.Is(err, errs.ErrCaptureSource):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "capture_failed", Error: err.Error()})
	case errors.Is(err, errs.ErrFaceNotRecognized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "face_not_recognized", Error: err.Error()})
	case errors.Is(err, errs.ErrNotAuthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "not_authenticated", Error: errs.ErrNotAuthenticated.Error()})
	case errors.Is(err, errs.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Code: "rate_limited", Error: err.Error()})
	case errors.Is(err, errs.ErrDuplicateUser):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "duplicate_user", Error: err.Error()})
	case errors.Is(err, errs.ErrKeyNotFound):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "key_missing", Error: err.Error()})
	case errors.Is(err, errs.ErrKeyMismatch):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "key_mismatch", Error: err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Error: err.Error()})
	case errors.Is(err, errs.ErrKeyStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Code: "keystore_unavailable", Error: err.Error()})
	case errors.Is(err, errs.ErrKeyDecryptFailed):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "key_decrypt_failed", Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Error: "internal error"})
	}
}
