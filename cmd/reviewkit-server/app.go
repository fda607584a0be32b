package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"reviewkit"
	"reviewkit/adapters/jsonfile"
	mem "reviewkit/adapters/memory"
	redisAdapter "reviewkit/adapters/redis"
	sqliteAdapter "reviewkit/adapters/sqlite"
	sqlxAdapter "reviewkit/adapters/sqlx"
	"reviewkit/analytics"
	"reviewkit/api/httpapi"
	"reviewkit/config"
	"reviewkit/core"
	"reviewkit/engine"
	"reviewkit/integrations/opener"
	"reviewkit/integrations/webhook"
	"reviewkit/realtime"
)

// EnvConfigFile points at an optional JSON config file.
const EnvConfigFile = "REVIEWKIT_CONFIG_FILE"

// App aggregates the assembled server components.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Hub           *realtime.Hub
	Funnel        *analytics.Funnel
	Exporter      analytics.Exporter
	Installations *reviewkit.Installations
	Handler       http.Handler
	Server        *http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(nil); err != nil {
		return nil, err
	}
	if path := os.Getenv(EnvConfigFile); path != "" {
		return config.LoadFromFile(path)
	}
	if profile := os.Getenv(config.EnvPrefix + "PROFILE"); profile != "" {
		return config.LoadProfile(profile)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, os.Stdout, os.Stderr)
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideFunnel() *analytics.Funnel {
	return analytics.NewFunnel()
}

func provideStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (engine.Storage, func(), error) {
	return setupStorage(ctx, cfg, log)
}

func provideWebhook(cfg *config.Config, log *slog.Logger) *webhook.Sink {
	opts := []webhook.Option{
		webhook.WithLogger(log),
		webhook.WithSecret(cfg.Webhooks.Secret),
		webhook.WithClient(&http.Client{Timeout: cfg.Webhooks.Timeout}),
	}
	if len(cfg.Webhooks.Events) > 0 {
		types := make([]core.EventType, len(cfg.Webhooks.Events))
		for i, e := range cfg.Webhooks.Events {
			types[i] = core.EventType(e)
		}
		opts = append(opts, webhook.WithEventTypes(types...))
	}
	return webhook.New(cfg.Webhooks.URLs, opts...)
}

// provideInstallations dispatches events asynchronously so webhook delivery
// never delays an API response. The server cannot launch URLs on a device;
// the store URL goes back to the client in the response.
func provideInstallations(cfg *config.Config, log *slog.Logger, storage engine.Storage, hub *realtime.Hub, funnel *analytics.Funnel, sink *webhook.Sink) (*reviewkit.Installations, func()) {
	inst := reviewkit.NewInstallations(
		reviewkit.WithSettings(cfg.Review.Settings()),
		reviewkit.WithStorage(storage),
		reviewkit.WithOpener(opener.Deferred{}),
		reviewkit.WithLogger(log),
		reviewkit.WithRealtime(hub),
		reviewkit.WithDispatchMode(engine.DispatchAsync),
		reviewkit.WithEventHandler(analytics.NewBridge(funnel, sink).OnEvent),
	)
	return inst, inst.Close
}

func provideExporter(cfg *config.Config, log *slog.Logger) analytics.Exporter {
	if cfg.Analytics.Endpoint != "" {
		return analytics.NewHTTPExporter(cfg.Analytics.Endpoint, cfg.Analytics.Token)
	}
	return analytics.NewLogExporter(log)
}

// startExporter runs the analytics loop on its own context so the final
// export happens only when stop is called. stop waits for that export.
func startExporter(app *App) (stop func()) {
	if !app.Config.Analytics.Enabled {
		return func() {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		analytics.Run(ctx, app.Funnel, app.Exporter, app.Config.Analytics.Interval, app.Logger)
	}()
	return func() {
		cancel()
		<-done
	}
}

func provideHandler(inst *reviewkit.Installations, hub *realtime.Hub, funnel *analytics.Funnel, cfg *config.Config) http.Handler {
	return httpapi.NewMux(inst, hub, funnel, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config, stdout, stderr io.Writer) *slog.Logger {
	var handler slog.Handler

	out := stdout
	if cfg.Logging.Output == "stderr" {
		out = stderr
	}
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the storage adapter named by the configuration. The
// returned cleanup closes it.
func setupStorage(_ context.Context, cfg *config.Config, log *slog.Logger) (engine.Storage, func(), error) {
	nop := func() {}
	switch cfg.Storage.Adapter {
	case config.AdapterMemory:
		return mem.New(), nop, nil
	case config.AdapterFile:
		s, err := jsonfile.New(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("file storage: %w", err)
		}
		return s, nop, nil
	case config.AdapterRedis:
		s, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("redis storage: %w", err)
		}
		return s, closer(s, log), nil
	case config.AdapterSQL:
		s, err := sqlxAdapter.New(cfg.Storage.SQL)
		if err != nil {
			return nil, nil, fmt.Errorf("sql storage: %w", err)
		}
		return s, closer(s, log), nil
	case config.AdapterSQLite:
		s, err := sqliteAdapter.Open(cfg.Storage.SQLite.Path, sqliteAdapter.Options{Logger: log, Debug: cfg.Storage.SQLite.Debug})
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite storage: %w", err)
		}
		return s, closer(s, log), nil
	}
	return nil, nil, errors.New("unknown storage adapter: " + cfg.Storage.Adapter)
}

func closer(c io.Closer, log *slog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			log.Warn("failed to close storage", "error", err)
		}
	}
}
