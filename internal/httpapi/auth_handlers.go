package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"homegrid.io/internal/audit"
	"homegrid.io/internal/auth"
	"homegrid.io/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	res, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRateLimited):
			obs.ObserveLogin("rate_limited")
			_ = audit.LogEvent(r.Context(), "auth.login.rate_limited", map[string]any{"email": req.Email})
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "too many login attempts, try again later")
		case errors.Is(err, auth.ErrBadCredentials):
			obs.ObserveLogin("bad_credentials")
			_ = audit.LogEvent(r.Context(), "auth.login.failed", map[string]any{"email": req.Email})
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, err.Error())
		default:
			obs.ObserveLogin("error")
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	obs.ObserveLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login.success", map[string]any{
		"user_id": res.User.ID,
		"email":   res.User.Email,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.Token,
		TokenType:   "bearer",
		ExpiresAt:   res.ExpiresAt,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}
