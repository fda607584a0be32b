package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"reviewkit/core"
)

// Installation mirrors the installation view served by the API.
type Installation struct {
	Installation string           `json:"installation"`
	State        core.ReviewState `json:"state"`
	Eligible     bool             `json:"eligible"`
	NextPromptAt *time.Time       `json:"next_prompt_at,omitempty"`
}

// Prompt carries the dialog to render. Prompt is nil when the user must not
// be asked now.
type Prompt struct {
	Installation string               `json:"installation"`
	Prompt       *core.PromptDecision `json:"prompt"`
	StoreURL     string               `json:"store_url,omitempty"`
}

// ActionResult is returned after a choice was recorded. For review, StoreURL
// is the page the app should open.
type ActionResult struct {
	Installation
	Action   core.Action `json:"action"`
	StoreURL string      `json:"store_url,omitempty"`
}

// Counts are prompt funnel counters.
type Counts struct {
	Prompted        int64 `json:"prompted"`
	Reviewed        int64 `json:"reviewed"`
	RemindedLater   int64 `json:"reminded_later"`
	Declined        int64 `json:"declined"`
	StoreOpenFailed int64 `json:"store_open_failed"`
}

// Stats mirrors the /stats response.
type Stats struct {
	Totals                Counts    `json:"totals"`
	UniqueInstallations   int       `json:"unique_installations"`
	PromptedInstallations int       `json:"prompted_installations"`
	ConversionRate        float64   `json:"conversion_rate"`
	DeclineRate           float64   `json:"decline_rate"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string         `json:"status"`
	Checks map[string]any `json:"checks"`
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// IsConfigurationError reports whether err is the server rejecting a review
// because the app id or store URL is not configured.
func IsConfigurationError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "configuration_error"
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(target)
}

// ErrEmptyInstallation is returned when the installation id is empty.
var ErrEmptyInstallation = errors.New("installation id is required")
