package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"reviewkit/adapters/sqlx"
	"reviewkit/core"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors runs the struct tags of v and renders each failure as a
// readable message.
func fieldErrors(v any) []string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, describe(fe))
	}
	return out
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " cannot be empty"
	case "gt":
		return field + " must be positive"
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "contains":
		return fmt.Sprintf("%s must contain %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate validates review configuration. The app id may be left empty in
// development and testing, where reviews are never submitted.
func (r *ReviewConfig) Validate(env Environment) error {
	errs := fieldErrors(r)
	if r.AppID == "" && (env == EnvStaging || env == EnvProduction) {
		errs = append(errs, fmt.Sprintf("app_id cannot be empty in %s", env))
	}
	if r.AppID != "" && len(errs) == 0 {
		if _, err := core.StoreURL(r.StoreURLTemplate, r.AppID); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return joinErrors(errs)
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	return joinErrors(fieldErrors(s))
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	var errs []string
	if err := validate.Var(s.Adapter, "oneof=memory file redis sql sqlite"); err != nil {
		errs = append(errs, "adapter must be one of: memory, file, redis, sql, sqlite")
	}

	// Validate adapter-specific configs
	switch s.Adapter {
	case AdapterFile:
		if err := s.File.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("file config: %v", err))
		}
	case AdapterSQLite:
		if strings.TrimSpace(s.SQLite.Path) == "" {
			errs = append(errs, "sqlite config: path cannot be empty")
		}
	case AdapterRedis:
		if strings.TrimSpace(s.Redis.Addr) == "" {
			errs = append(errs, "redis config: addr cannot be empty")
		}
	case AdapterSQL:
		if s.SQL.DSN == "" {
			errs = append(errs, "sql config: dsn cannot be empty")
		}
		if s.SQL.Driver != sqlx.DriverPostgres && s.SQL.Driver != sqlx.DriverMySQL {
			errs = append(errs, "sql config: driver must be one of: postgres, mysql")
		}
	}

	return joinErrors(errs)
}

// Validate validates file storage configuration
func (f *FileConfig) Validate() error {
	if f.Path == "" {
		return errors.New("path cannot be empty")
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	return joinErrors(fieldErrors(l))
}

// Validate validates analytics configuration
func (a *AnalyticsConfig) Validate() error {
	errs := fieldErrors(a)
	if a.Enabled && a.Interval <= 0 {
		errs = append(errs, "interval must be positive when analytics are enabled")
	}
	return joinErrors(errs)
}

// Validate validates security settings.
func (s *SecurityConfig) Validate() error {
	var errs []string
	if s.EnableRateLimit {
		if s.RateLimit.RequestsPerMinute <= 0 {
			errs = append(errs, "rate_limit.requests_per_minute must be > 0 when rate limiting is enabled")
		}
		if s.RateLimit.BurstSize <= 0 {
			errs = append(errs, "rate_limit.burst_size must be > 0 when rate limiting is enabled")
		}
	}
	for i, key := range s.APIKeys {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, fmt.Sprintf("api_keys[%d] is empty", i))
		}
	}
	return joinErrors(errs)
}

// Validate validates webhook delivery settings.
func (w *WebhookConfig) Validate() error {
	errs := fieldErrors(w)
	for _, name := range w.Events {
		if !knownEvent(core.EventType(name)) {
			errs = append(errs, fmt.Sprintf("events: unknown event type %q", name))
		}
	}
	return joinErrors(errs)
}

func knownEvent(t core.EventType) bool {
	for _, known := range core.EventTypes {
		if t == known {
			return true
		}
	}
	return false
}
