package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"studyswap.org/internal/match"
)

type requestMatchRequest struct {
	ReceiverID string `json:"receiver_id"`
	MaterialID string `json:"material_id"`
}

type listMatchesResponse struct {
	Items []match.Match `json:"items"`
	AsOf  time.Time     `json:"as_of"`
}

func (a *API) handleMatchesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.requestMatch(w, r)
	case http.MethodGet:
		a.listMatches(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMatchResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/matches/")
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
		switch r.Method {
		case http.MethodGet:
			a.getMatch(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet)
		}
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	switch action {
	case "accept":
		a.transition(w, r, id, a.matches.Accept)
	case "reject":
		a.transition(w, r, id, a.matches.Reject)
	case "complete":
		a.transition(w, r, id, a.matches.Complete)
	case "report":
		a.reportMatch(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) requestMatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}

	var req requestMatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ReceiverID) == "" {
		writeError(w, r, http.StatusBadRequest, "receiver_id is required")
		return
	}
	if strings.TrimSpace(req.MaterialID) == "" {
		writeError(w, r, http.StatusBadRequest, "material_id is required")
		return
	}

	m, err := a.matches.Request(r.Context(), userID, req.MaterialID, req.ReceiverID)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/matches/"+m.ID)
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}

	var (
		items []match.Match
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		items, err = a.matches.ListActiveByUser(r.Context(), userID)
	} else {
		items, err = a.matches.ListByUser(r.Context(), userID)
	}
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listMatchesResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

func (a *API) getMatch(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	m, err := a.matches.Get(r.Context(), id)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	if !m.IsParticipant(userID) {
		a.handleDomainError(w, r, match.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) transition(w http.ResponseWriter, r *http.Request,
	id string, op func(ctx context.Context, matchID, actingUserID string) (match.Match, error),
) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	m, err := op(r.Context(), id, userID)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) reportMatch(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	if err := a.matches.Report(r.Context(), id, userID); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reported"})
}

func (a *API) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	materialID := r.URL.Query().Get("material_id")
	if materialID == "" {
		writeError(w, r, http.StatusBadRequest, "material_id is required")
		return
	}
	items, err := a.discovery.FindCandidates(r.Context(), userID, materialID)
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
