// Package httpapi is the HTTP boundary: routing, authn, middleware, the
// SSE notification stream and translation of domain errors into client
// status codes.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"studyswap.org/internal/auth"
	"studyswap.org/internal/catalog"
	"studyswap.org/internal/discovery"
	"studyswap.org/internal/fanout"
	"studyswap.org/internal/match"
	"studyswap.org/internal/notify"
	"studyswap.org/internal/obs"
	"studyswap.org/internal/trust"
)

// ReadyProbe checks backing dependencies (DB ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string
	log        *zap.Logger

	matches    *match.Service
	discovery  *discovery.Service
	materials  *catalog.Service
	dispatcher *notify.Dispatcher
	registry   *fanout.Registry
	verifier   *auth.Verifier

	heartbeat  time.Duration
	rateBurst  int
	ratePerSec int
}

// New assembles the API and registers routes.
func New(rp ReadyProbe, version string,
	matches *match.Service, disc *discovery.Service, materials *catalog.Service,
	dispatcher *notify.Dispatcher, registry *fanout.Registry,
	verifier *auth.Verifier, log *zap.Logger,
) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		log:        log,
		matches:    matches,
		discovery:  disc,
		materials:  materials,
		dispatcher: dispatcher,
		registry:   registry,
		verifier:   verifier,
		heartbeat:  30 * time.Second,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/matches", a.handleMatchesCollection)
	a.mux.HandleFunc("/v1/matches/", a.handleMatchResource)
	a.mux.HandleFunc("/v1/candidates", a.handleCandidates)

	a.mux.HandleFunc("/v1/notifications", a.handleNotificationsCollection)
	a.mux.HandleFunc("/v1/notifications/", a.handleNotificationResource)

	a.mux.HandleFunc("/v1/materials/", a.handleMaterialResource)

	a.mux.HandleFunc("/v1/stream", a.Stream)
	a.mux.HandleFunc("/v1/logout", a.Logout)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = a.Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- service handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "studyswap-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "studyswap-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// Logout closes every live stream of the calling user and removes the
// user's fanout entry.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID, ok := a.mustUser(w, r)
	if !ok {
		return
	}
	a.registry.Cleanup(userID)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError maps the recoverable error taxonomy onto status codes:
// unknown ids are 404, authorization failures 403, illegal transitions 409,
// the expiry gate 410, everything else about the request shape 400.
func (a *API) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, match.ErrNotFound),
		errors.Is(err, notify.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, trust.ErrNotFound),
		errors.Is(err, discovery.ErrNoMatchingArtifact):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, match.ErrForbidden),
		errors.Is(err, notify.ErrForbidden),
		errors.Is(err, match.ErrNotOwner),
		errors.Is(err, match.ErrNotApproved),
		errors.Is(err, match.ErrInsufficientTrust):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, match.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, match.ErrExpired):
		writeError(w, r, http.StatusGone, err.Error())
	case errors.Is(err, match.ErrSelfMatch),
		errors.Is(err, match.ErrNotParticipant),
		errors.Is(err, notify.ErrInvalidType):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		a.log.Error("internal error", zap.Error(err), zap.String("path", r.URL.Path))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
