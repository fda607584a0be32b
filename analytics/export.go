package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Exporter ships funnel snapshots somewhere.
type Exporter interface {
	Export(ctx context.Context, s Snapshot) error
	Close() error
}

// HTTPExporter posts snapshots as JSON to an endpoint.
type HTTPExporter struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPExporter(endpoint, apiKey string) *HTTPExporter {
	return &HTTPExporter{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *HTTPExporter) Export(ctx context.Context, s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send analytics data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("analytics export failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (e *HTTPExporter) Close() error { return nil }

// LogExporter writes snapshots to a slog logger (for debugging).
type LogExporter struct {
	log *slog.Logger
}

func NewLogExporter(log *slog.Logger) *LogExporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogExporter{log: log}
}

func (e *LogExporter) Export(ctx context.Context, s Snapshot) error {
	e.log.InfoContext(ctx, "review funnel",
		"prompted", s.Totals.Prompted,
		"reviewed", s.Totals.Reviewed,
		"reminded_later", s.Totals.RemindedLater,
		"declined", s.Totals.Declined,
		"conversion_rate", s.ConversionRate)
	return nil
}

func (e *LogExporter) Close() error { return nil }

// Run exports a snapshot of f every interval until ctx is done, then exports
// once more and closes the exporter.
func Run(ctx context.Context, f *Funnel, exp Exporter, interval time.Duration, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := exp.Export(ctx, f.Snapshot()); err != nil {
				log.Warn("analytics export failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := exp.Export(final, f.Snapshot()); err != nil {
				log.Warn("final analytics export failed", "error", err)
			}
			cancel()
			_ = exp.Close()
			return
		}
	}
}
