package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewkit/core"
)

func TestDefaultCatalogEnglish(t *testing.T) {
	c := Default()
	assert.Equal(t, "Review", c.String(core.KeyAlertTitle, "en"))
	assert.Equal(t, "Are you enjoying the app? Give us a Review", c.String(core.KeyAlertMessage, "en-US"))
	assert.Equal(t, "Sure", c.String(core.KeyReviewAction, ""))
	assert.Equal(t, "Remember me later", c.String(core.KeyRememberAction, "en"))
	assert.Equal(t, "Don't remember me again", c.String(core.KeyDeclineAction, "en"))
}

func TestMatch(t *testing.T) {
	c := Default()
	tests := map[string]string{
		"pt-BR":                   "pt-BR",
		"pt_BR.UTF-8":             "pt-BR",
		"es-MX":                   "es",
		"de_DE@euro":              "de",
		"fr-CA,fr;q=0.9,en;q=0.5": "fr",
		"ja":                      "en",
		"C":                       "en",
		"not a locale!":           "en",
	}
	for in, want := range tests {
		assert.Equal(t, want, c.Match(in).String(), in)
	}
}

func TestFallbackToBaseForMissingKeys(t *testing.T) {
	c := Default()
	assert.Equal(t, "Valoración", c.String(core.KeyAlertTitle, "es"))
	// status strings exist only in some catalogs
	assert.Equal(t, "A review prompt can be shown now.", c.String("status.eligible", "es"))
	assert.Equal(t, "missing.key", c.String("missing.key", "es"))
}

func TestPrinter(t *testing.T) {
	p := Default().Printer("pt-BR")
	assert.Equal(t, "Próximo pedido possível após amanhã.", p.Sprintf("status.next-prompt", "amanhã"))
}

func TestLoadFromFSRequiresBase(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/es.yaml": {Data: []byte("locale: es\nmessages:\n  alert.title: \"Valoración\"\n")},
	}
	_, err := LoadFromFS(fsys)
	require.Error(t, err)
}

func TestLoadFromFSRejectsBadYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"locales/en.yaml": {Data: []byte("locale: [en\n")},
	}
	_, err := LoadFromFS(fsys)
	require.Error(t, err)
}

func TestSystemLocale(t *testing.T) {
	t.Setenv("LC_ALL", "")
	t.Setenv("LC_MESSAGES", "")
	t.Setenv("LANG", "pt_BR.UTF-8")
	assert.Equal(t, "pt-BR", SystemLocale())

	t.Setenv("LC_ALL", "fr_FR.UTF-8")
	assert.Equal(t, "fr-FR", SystemLocale())

	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "C")
	assert.Equal(t, BaseLocale, SystemLocale())
}
