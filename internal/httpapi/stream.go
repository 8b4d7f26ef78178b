package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Stream serves the per-user Server-Sent Events notification feed. Events
// carry kind "notification" with a JSON payload; idle connections get a
// payload-less "heartbeat" so clients and proxies can tell a quiet stream
// from a dead one.
func (a *API) Stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.registry.Subscribe(ctx, userID)

	// Establish the stream before the first event arrives.
	_, _ = w.Write([]byte(": stream attached\n\n"))
	flusher.Flush()

	heartbeat := time.NewTicker(a.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, open := <-ch:
			if !open {
				// Entry cleaned up (logout) or subscription ended.
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				continue
			}
			_, _ = w.Write([]byte("event: notification\ndata: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = w.Write([]byte("event: heartbeat\ndata: {}\n\n"))
			flusher.Flush()
		}
	}
}
