package httpapi

import (
	"net/http"
	"strconv"

	"homegrid.io/internal/audit"
	"homegrid.io/internal/auth"
)

type createAgentRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

func (a *API) handleAgentsCollection(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := auth.ContextWithUser(r.Context(), *admin)

	switch r.Method {
	case http.MethodGet:
		agents, err := a.directory.ListAgents(ctx, admin)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if agents == nil {
			agents = []auth.User{}
		}
		writeJSON(w, http.StatusOK, agents)
	case http.MethodPost:
		var req createAgentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.directory.CreateAgent(ctx, admin, auth.NewAgent{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Phone:    req.Phone,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(ctx, "admin.agent.create", map[string]any{
			"agent_id": created.ID,
			"email":    created.Email,
		})
		w.Header().Set("Location", "/v1/admin/agents/"+strconv.FormatInt(created.ID, 10))
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAgentResource(w http.ResponseWriter, r *http.Request) {
	admin, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	raw := trimID(r.URL.Path, "/v1/admin/agents/")
	id, err := parseID(raw)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "agent not found")
		return
	}
	ctx := auth.ContextWithUser(r.Context(), *admin)

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var req userUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := a.directory.UpdateAgent(ctx, admin, id, auth.UserUpdate{
			Email:    req.Email,
			Name:     req.Name,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(ctx, "admin.agent.update", map[string]any{"agent_id": id})
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := a.directory.DeleteAgent(ctx, admin, id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(ctx, "admin.agent.delete", map[string]any{"agent_id": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) handleAllProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	admin, ok := a.requireAdmin(w, r)
	if !ok {
		return
	}
	offset, limit, err := pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	props, err := a.listings.ListAll(r.Context(), admin, offset, limit)
	if err != nil {
		handleListingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, props)
}
