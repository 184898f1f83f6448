package httpapi

import (
	"errors"
	"net/http"

	"homegrid.io/internal/audit"
	"homegrid.io/internal/auth"
)

type userUpdateRequest struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Password *string `json:"password"`
}

func (a *API) handleSelfUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	user, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var req userUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := auth.ContextWithUser(r.Context(), *user)
	updated, err := a.directory.UpdateSelf(ctx, user, auth.UserUpdate{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "user.profile.update", map[string]any{"user_id": user.ID})
	writeJSON(w, http.StatusOK, updated)
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, privilegesMsg)
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "email already registered")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
