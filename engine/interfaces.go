package engine

import "context"

// Storage abstracts the key-value store review state lives in. Values are
// strings; Values layers typed access on top.
type Storage interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Load returns the existing values among keys. Missing keys are absent from the map.
	Load(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	// Save writes all values in one operation where the backend allows it.
	Save(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// InstallationLister is implemented by stores that can enumerate the
// installation namespaces holding values.
type InstallationLister interface {
	Installations(ctx context.Context) ([]string, error)
}

// URLOpener launches the store review page.
type URLOpener interface {
	CanOpen(ctx context.Context, url string) bool
	Open(ctx context.Context, url string) error
}

// Localizer resolves dialog strings for a locale.
type Localizer interface {
	String(key, locale string) string
}
