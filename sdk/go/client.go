package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"reviewkit/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the reviewkit HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// GetInstallation fetches the review state of an installation, creating it
// on the server if it is new.
func (c *Client) GetInstallation(ctx context.Context, id string) (Installation, error) {
	var out Installation
	err := c.do(ctx, http.MethodGet, c.installationURL(id, "", nil), &out)
	return out, err
}

// Prompt asks whether to show the review dialog now. locale may be empty.
func (c *Client) Prompt(ctx context.Context, id, locale string) (Prompt, error) {
	var q url.Values
	if locale != "" {
		q = url.Values{"locale": {locale}}
	}
	var out Prompt
	err := c.do(ctx, http.MethodGet, c.installationURL(id, "/prompt", q), &out)
	return out, err
}

// Act records the user's dialog choice.
func (c *Client) Act(ctx context.Context, id string, action core.Action) (ActionResult, error) {
	var out ActionResult
	err := c.do(ctx, http.MethodPost, c.installationURL(id, "/actions/"+url.PathEscape(string(action)), nil), &out)
	return out, err
}

func (c *Client) Review(ctx context.Context, id string) (ActionResult, error) {
	return c.Act(ctx, id, core.ActionReview)
}

func (c *Client) RemindLater(ctx context.Context, id string) (ActionResult, error) {
	return c.Act(ctx, id, core.ActionRememberLater)
}

func (c *Client) Decline(ctx context.Context, id string) (ActionResult, error) {
	return c.Act(ctx, id, core.ActionDecline)
}

// Reset wipes an installation and starts a new first-use period.
func (c *Client) Reset(ctx context.Context, id string) (Installation, error) {
	var out Installation
	err := c.do(ctx, http.MethodDelete, c.installationURL(id, "", nil), &out)
	return out, err
}

// ListInstallations returns the ids the server's store knows about. Stores
// that cannot enumerate keys answer with a 501 *APIError.
func (c *Client) ListInstallations(ctx context.Context) ([]string, error) {
	var out struct {
		Installations []string `json:"installations"`
	}
	err := c.do(ctx, http.MethodGet, c.baseURL+"/installations", &out)
	return out.Installations, err
}

// Stats fetches the prompt funnel counters.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.do(ctx, http.MethodGet, c.baseURL+"/stats", &out)
	return out, err
}

// Health calls /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, c.baseURL+"/healthz", &hs)
	return hs, err
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// A non-empty installation narrows the stream to that installation.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, installation string) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target := c.wsURL
	if installation != "" {
		target += "?" + url.Values{"installation": {installation}}.Encode()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target, c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, target string, out any) error {
	if target == "" {
		return ErrEmptyInstallation
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

// installationURL returns "" for an empty id.
func (c *Client) installationURL(id, suffix string, q url.Values) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	u := c.baseURL + "/installations/" + url.PathEscape(id) + suffix
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
