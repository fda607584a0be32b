package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"reviewkit"
	wsadapter "reviewkit/adapters/websocket"
	"reviewkit/analytics"
	"reviewkit/core"
	"reviewkit/engine"
	"reviewkit/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
}

// InstallationView is the state of one installation as served by the API.
type InstallationView struct {
	Installation string           `json:"installation"`
	State        core.ReviewState `json:"state"`
	Eligible     bool             `json:"eligible"`
	NextPromptAt *time.Time       `json:"next_prompt_at,omitempty"`
}

// PromptView wraps the dialog descriptor; Prompt is null when the user must
// not be asked now.
type PromptView struct {
	Installation string               `json:"installation"`
	Prompt       *core.PromptDecision `json:"prompt"`
	StoreURL     string               `json:"store_url,omitempty"`
}

// ActionView is returned after a dialog choice was recorded. StoreURL is set
// for review so the client can open the store page itself.
type ActionView struct {
	InstallationView
	Action   core.Action `json:"action"`
	StoreURL string      `json:"store_url,omitempty"`
}

type api struct {
	installations *reviewkit.Installations
	funnel        *analytics.Funnel
}

// InstallationsView lists the installations with stored state.
type InstallationsView struct {
	Installations []string `json:"installations"`
}

// NewMux builds an http.Handler exposing the review REST API and WebSocket stream.
// Routes:
//   - GET    {prefix}/installations
//   - GET    {prefix}/installations/{id}
//   - GET    {prefix}/installations/{id}/prompt?locale=pt-BR
//   - POST   {prefix}/installations/{id}/actions/{review|remind-later|decline}
//   - DELETE {prefix}/installations/{id}
//   - GET    {prefix}/stats
//   - GET    {prefix}/healthz
//   - WS     {prefix}/ws?installation={id}
//
// hub and funnel may be nil, which disables /ws and /stats.
func NewMux(inst *reviewkit.Installations, hub *realtime.Hub, funnel *analytics.Funnel, opts Options) http.Handler {
	a := &api{installations: inst, funnel: funnel}
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+withPrefix(opts.PathPrefix, "/healthz"), a.healthCheck)
	if hub != nil {
		mux.Handle("GET "+withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}
	if funnel != nil {
		mux.HandleFunc("GET "+withPrefix(opts.PathPrefix, "/stats"), func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, a.funnel.Snapshot())
		})
	}

	mux.HandleFunc("GET "+withPrefix(opts.PathPrefix, "/installations"), a.listInstallations)
	mux.HandleFunc("GET "+withPrefix(opts.PathPrefix, "/installations/{id}"), a.reviewer(a.getInstallation))
	mux.HandleFunc("DELETE "+withPrefix(opts.PathPrefix, "/installations/{id}"), a.resetInstallation)
	mux.HandleFunc("GET "+withPrefix(opts.PathPrefix, "/installations/{id}/prompt"), a.reviewer(a.getPrompt))
	mux.HandleFunc("POST "+withPrefix(opts.PathPrefix, "/installations/{id}/actions/{action}"), a.reviewer(a.postAction))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

type reviewerHandler func(w http.ResponseWriter, r *http.Request, rv *engine.Reviewer)

// reviewer resolves {id} to the installation's reviewer.
func (a *api) reviewer(next reviewerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := core.NormalizeInstallationID(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_installation", err.Error(), nil)
			return
		}
		rv, err := a.installations.Get(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		next(w, r, rv)
	}
}

func (a *api) getInstallation(w http.ResponseWriter, r *http.Request, rv *engine.Reviewer) {
	view, err := describe(r.Context(), rv)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *api) getPrompt(w http.ResponseWriter, r *http.Request, rv *engine.Reviewer) {
	rv = rv.WithLocale(requestLocale(r))
	d, err := rv.RequestPrompt(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	view := PromptView{Installation: rv.Installation(), Prompt: d}
	if d != nil {
		// an unset app id surfaces when the review action is posted
		view.StoreURL, _ = rv.StoreURL()
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *api) postAction(w http.ResponseWriter, r *http.Request, rv *engine.Reviewer) {
	action, err := core.ParseAction(r.PathValue("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_action", err.Error(), nil)
		return
	}
	if err := rv.Handle(r.Context(), action); err != nil {
		writeEngineError(w, err)
		return
	}
	view, err := describe(r.Context(), rv)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := ActionView{InstallationView: view, Action: action}
	if action == core.ActionReview {
		resp.StoreURL, _ = rv.StoreURL()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) resetInstallation(w http.ResponseWriter, r *http.Request) {
	id, err := core.NormalizeInstallationID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_installation", err.Error(), nil)
		return
	}
	if err := a.installations.Reset(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}
	rv, err := a.installations.Get(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	a.getInstallation(w, r, rv)
}

func (a *api) listInstallations(w http.ResponseWriter, r *http.Request) {
	ids, err := a.installations.List(r.Context())
	if errors.Is(err, reviewkit.ErrListingUnsupported) {
		writeError(w, http.StatusNotImplemented, "not_implemented", err.Error(), nil)
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InstallationsView{Installations: ids})
}

func describe(ctx context.Context, rv *engine.Reviewer) (InstallationView, error) {
	st, err := rv.State(ctx)
	if err != nil {
		return InstallationView{}, err
	}
	eligible, err := rv.ShouldPrompt(ctx)
	if err != nil {
		return InstallationView{}, err
	}
	view := InstallationView{Installation: rv.Installation(), State: st, Eligible: eligible}
	if at, ok := core.NextPromptAt(st); ok && !eligible {
		view.NextPromptAt = &at
	}
	return view, nil
}

// requestLocale prefers ?locale= and falls back to the first Accept-Language tag.
func requestLocale(r *http.Request) string {
	if l := strings.TrimSpace(r.URL.Query().Get("locale")); l != "" {
		return l
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		tags, _, err := language.ParseAcceptLanguage(h)
		if err == nil && len(tags) > 0 {
			return tags[0].String()
		}
	}
	return ""
}

// Helpers

// healthCheck verifies the store is reachable without touching real installations.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}
	code := http.StatusOK
	if err := a.installations.Ping(r.Context()); err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	writeJSON(w, code, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSON(w, status, apiError{Code: code, Message: msg, Details: details})
}

func writeEngineError(w http.ResponseWriter, err error) {
	var cfgErr *core.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusBadRequest, "configuration_error", cfgErr.Error(), map[string]string{"field": cfgErr.Field})
	case errors.Is(err, core.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, "invalid_action", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key,Accept-Language")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiters := newLimiterSet(rate.Every(time.Minute/time.Duration(rpm)), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const limiterIdle = 10 * time.Minute

type limiterSet struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	m     map[string]*clientLimiter
	swept time.Time
}

type clientLimiter struct {
	*rate.Limiter
	seen time.Time
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{limit: limit, burst: burst, m: map[string]*clientLimiter{}, swept: time.Now()}
}

func (s *limiterSet) allow(key string) bool {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.swept) > limiterIdle {
		for k, l := range s.m {
			if now.Sub(l.seen) > limiterIdle {
				delete(s.m, k)
			}
		}
		s.swept = now
	}
	l, ok := s.m[key]
	if !ok {
		l = &clientLimiter{Limiter: rate.NewLimiter(s.limit, s.burst)}
		s.m[key] = l
	}
	l.seen = now
	return l.AllowN(now, 1)
}
