package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/algohackers/saarthi-vault/internal/capture"
	"github.com/algohackers/saarthi-vault/internal/errs"
	"github.com/algohackers/saarthi-vault/internal/limiter"
	"github.com/algohackers/saarthi-vault/internal/model"
	"github.com/algohackers/saarthi-vault/internal/service"
)

type ctxKey string

const (
	sessionIDKey ctxKey = "sv.sessionID"
	managerKey   ctxKey = "sv.manager"
)

func withSessionCtx(ctx context.Context, id uuid.UUID, m *service.IdentityManager) context.Context {
	ctx = context.WithValue(ctx, sessionIDKey, id)
	return context.WithValue(ctx, managerKey, m)
}

func sessionFromCtx(ctx context.Context) (uuid.UUID, *service.IdentityManager, bool) {
	id, ok := ctx.Value(sessionIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, nil, false
	}
	m, ok := ctx.Value(managerKey).(*service.IdentityManager)
	return id, m, ok
}

// enrollRequest carries the profile and a burst of camera frames, each frame
// base64-encoded JPEG/PNG bytes.
type enrollRequest struct {
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name,omitempty"`
	DateOfBirth string   `json:"date_of_birth"`
	Phone       string   `json:"phone"`
	Frames      [][]byte `json:"frames"`
}

type captureRequest struct {
	Frames [][]byte `json:"frames"`
}

type authResponse struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Error: "malformed JSON body"})
		return false
	}
	return true
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Frames) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Error: "frames required"})
		return
	}

	m := s.newManager()
	profile := model.Profile{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Phone:       req.Phone,
	}
	userID, err := m.Enroll(r.Context(), profile, capture.NewFrameSource(req.Frames))
	if err != nil {
		writeError(w, err)
		return
	}
	s.issueSession(w, m, userID)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Frames) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Error: "frames required"})
		return
	}

	ipHash := limiter.HashIP(clientIP(r))
	if ok, retry, err := s.lim.Allow(r.Context(), ipHash); err != nil {
		s.log.Error("limiter allow", zap.Error(err))
	} else if !ok {
		w.Header().Set("Retry-After", retry.Round(time.Second).String())
		writeError(w, errs.ErrRateLimited)
		return
	}

	m := s.newManager()
	userID, err := m.Login(r.Context(), capture.NewFrameSource(req.Frames))
	if err != nil {
		// only recognition failures count toward the lockout; capture and
		// backend errors are not probing attempts
		if errors.Is(err, errs.ErrFaceNotRecognized) {
			if _, _, ferr := s.lim.Failure(r.Context(), ipHash); ferr != nil {
				s.log.Error("limiter failure", zap.Error(ferr))
			}
		}
		writeError(w, err)
		return
	}
	if err := s.lim.Success(r.Context(), ipHash); err != nil {
		s.log.Error("limiter success", zap.Error(err))
	}
	s.issueSession(w, m, userID)
}

// issueSession registers the authenticated manager and returns the bearer
// token. A manager that cannot be registered is logged out so the KEK does
// not outlive the request.
func (s *Server) issueSession(w http.ResponseWriter, m *service.IdentityManager, userID string) {
	sessionID, err := uuid.NewV4()
	if err != nil {
		m.Logout()
		writeError(w, err)
		return
	}
	token, exp, err := issueToken(s.signKey, sessionID, userID, s.ttl)
	if err != nil {
		m.Logout()
		writeError(w, err)
		return
	}
	s.sessions.put(sessionID, m, exp)
	writeJSON(w, http.StatusOK, authResponse{UserID: userID, Token: token, ExpiresAt: exp})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _, ok := sessionFromCtx(r.Context())
	if !ok {
		writeError(w, errs.ErrNotAuthenticated)
		return
	}
	s.sessions.remove(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleReauth(w http.ResponseWriter, r *http.Request) {
	_, m, ok := sessionFromCtx(r.Context())
	if !ok {
		writeError(w, errs.ErrNotAuthenticated)
		return
	}
	var req captureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	verified, err := m.Reauthenticate(r.Context(), capture.NewFrameSource(req.Frames))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	_, m, ok := sessionFromCtx(r.Context())
	if !ok {
		writeError(w, errs.ErrNotAuthenticated)
		return
	}
	p, err := m.Profile()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":       m.CurrentUserID(),
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"date_of_birth": p.DateOfBirth,
		"phone":         p.Phone,
	})
}

func (s *Server) handleListPII(w http.ResponseWriter, r *http.Request) {
	_, m, ok := sessionFromCtx(r.Context())
	if !ok {
		writeError(w, errs.ErrNotAuthenticated)
		return
	}
	types, err := m.ListPIITypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if types == nil {
		types = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"data_types": types})
}

type putPIIRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutPII(w http.ResponseWriter, r *http.Request) {
	_, m, ok := sessionFromCtx(r.Context())
	if !ok {
		writeError(w, errs.ErrNotAuthenticated)
		return
	}
	dataType := chi.URLParam(r, "type")
	var req putPIIRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if dataType == "" || req.Value == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "bad_request", Error: "type and value required"})
		return
	}
	if err := m.EncryptPII(r.Context(), dataType, []byte(req.Value)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored", "data_type": dataType})
}

func (s *Server) handleGetPII(w http.ResponseWriter, r *http.Request) {
	_, m, ok := sessionFromCtx(r.Context())
	if !ok {
		writeError(w, errs.ErrNotAuthenticated)
		return
	}
	dataType := chi.URLParam(r, "type")
	plaintext, err := m.DecryptPII(r.Context(), dataType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"data_type": dataType, "value": string(plaintext)})
}

func (s *Server) handlePurgeKey(w http.ResponseWriter, r *http.Request) {
	_, m, ok := sessionFromCtx(r.Context())
	if !ok {
		writeError(w, errs.ErrNotAuthenticated)
		return
	}
	if err := m.PurgeWrappingKey(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "purged"})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
