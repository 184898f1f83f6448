package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"homegrid.io/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "

	credentialsMsg = "could not validate credentials"
	privilegesMsg  = "the user doesn't have enough privileges"
)

// identity resolves the bearer token on the request to a directory user.
// An absent Authorization header is anonymous (nil, nil); a malformed or
// rejected token is an error the caller decides how to surface.
func (a *API) identity(r *http.Request) (*auth.User, error) {
	header := strings.TrimSpace(r.Header.Get(authHeader))
	if header == "" {
		return nil, nil
	}
	token, err := extractBearerToken(header)
	if err != nil {
		return nil, err
	}
	return a.auth.Authenticate(r.Context(), token)
}

// requireUser resolves and demands an authenticated caller, writing the
// generic 401 on failure. The caller must return when ok is false.
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, err := a.identity(r)
	if err != nil || user == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusUnauthorized, credentialsMsg)
		return nil, false
	}
	return user, true
}

// requireAdmin demands an authenticated admin caller.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user, ok := a.requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !user.IsAdmin() {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, r, http.StatusForbidden, privilegesMsg)
		return nil, false
	}
	return user, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
