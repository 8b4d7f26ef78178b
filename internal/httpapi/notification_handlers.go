package httpapi

import (
	"net/http"
	"strings"
	"time"

	"studyswap.org/internal/notify"
)

type listNotificationsResponse struct {
	Items []notify.Notification `json:"items"`
	AsOf  time.Time             `json:"as_of"`
}

func (a *API) handleNotificationsCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}

	var (
		items []notify.Notification
		err   error
	)
	if r.URL.Query().Get("unread") == "true" {
		items, err = a.dispatcher.ListUnread(r.Context(), userID)
	} else {
		items, err = a.dispatcher.ListByUser(r.Context(), userID)
	}
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listNotificationsResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}

func (a *API) handleNotificationResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/notifications/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "read-all" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.markAllRead(w, r)
		return
	}

	id, action, hasAction := strings.Cut(path, "/")
	if id == "" || (hasAction && action != "read") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case hasAction: // POST /v1/notifications/{id}/read
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.markRead(w, r, id)
	case r.Method == http.MethodDelete:
		a.deleteNotification(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodDelete)
	}
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	if err := a.dispatcher.MarkRead(r.Context(), id, userID); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	if err := a.dispatcher.MarkAllRead(r.Context(), userID); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) deleteNotification(w http.ResponseWriter, r *http.Request, id string) {
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	if err := a.dispatcher.Delete(r.Context(), id, userID); err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
