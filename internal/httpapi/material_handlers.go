package httpapi

import (
	"net/http"
	"strings"
)

func (a *API) handleMaterialResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/materials/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	id, action, hasAction := strings.Cut(path, "/")
	if id == "" || (hasAction && strings.Contains(action, "/")) {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if !hasAction {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		m, err := a.materials.Get(r.Context(), id)
		if err != nil {
			a.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	switch action {
	case "approve":
		m, err := a.materials.Approve(r.Context(), id)
		if err != nil {
			a.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	case "reject":
		m, err := a.materials.Reject(r.Context(), id)
		if err != nil {
			a.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
