// Package i18n serves the review dialog strings from embedded YAML catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback for unknown locales and missing keys.
const BaseLocale = "en"

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

//go:embed locales/*.yaml
var embeddedFS embed.FS

// Catalog resolves message keys for a locale. Keys missing from a locale are
// filled from BaseLocale at load time, so every supported tag is complete.
type Catalog struct {
	tags     []language.Tag
	matcher  language.Matcher
	messages map[language.Tag]map[string]string
	builder  *catalog.Builder
}

var defaultCatalog = mustLoadEmbedded()

// Default returns the process-wide embedded catalog.
func Default() *Catalog { return defaultCatalog }

// LoadEmbedded loads the catalogs shipped with the package.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads locales/*.yaml from fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	base := language.Make(BaseLocale)
	raw := map[language.Tag]map[string]string{}
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var f catalogFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(f.Locale))
		if err != nil {
			return nil, fmt.Errorf("catalog %s: locale %q: %w", path, f.Locale, err)
		}
		if len(f.Messages) == 0 {
			return nil, fmt.Errorf("catalog %s: messages map is required", path)
		}
		if _, dup := raw[tag]; dup {
			return nil, fmt.Errorf("catalog %s: locale %s defined twice", path, tag)
		}
		raw[tag] = f.Messages
	}
	baseMessages, ok := raw[base]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	// base first so the matcher falls back to it
	tags := []language.Tag{base}
	for tag := range raw {
		if tag != base {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags[1:], func(i, j int) bool { return tags[1+i].String() < tags[1+j].String() })

	c := &Catalog{
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		messages: make(map[language.Tag]map[string]string, len(tags)),
		builder:  catalog.NewBuilder(catalog.Fallback(base)),
	}
	for _, tag := range tags {
		merged := make(map[string]string, len(baseMessages))
		for k, v := range baseMessages {
			merged[k] = v
		}
		for k, v := range raw[tag] {
			merged[k] = v
		}
		for k, v := range merged {
			if err := c.builder.SetString(tag, k, v); err != nil {
				return nil, fmt.Errorf("register %s %s: %w", tag, k, err)
			}
		}
		c.messages[tag] = merged
	}
	return c, nil
}

func mustLoadEmbedded() *Catalog {
	c, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return c
}

// Match returns the supported tag closest to locale. It accepts BCP 47 tags,
// POSIX locales (pt_BR.UTF-8) and Accept-Language header values.
func (c *Catalog) Match(locale string) language.Tag {
	if !strings.ContainsAny(locale, ",;") {
		locale = normalizePOSIX(locale)
	}
	if locale == "" {
		return c.tags[0]
	}
	desired, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(desired) == 0 {
		return c.tags[0]
	}
	_, idx, conf := c.matcher.Match(desired...)
	if conf == language.No {
		return c.tags[0]
	}
	return c.tags[idx]
}

// String returns the message for key in the best matching locale, falling
// back to BaseLocale and finally to the key itself.
func (c *Catalog) String(key, locale string) string {
	if msg, ok := c.messages[c.Match(locale)][key]; ok {
		return msg
	}
	return key
}

// Printer returns a formatter bound to the catalog for locale.
func (c *Catalog) Printer(locale string) *message.Printer {
	return message.NewPrinter(c.Match(locale), message.Catalog(c.builder))
}

// Locales lists the supported locale tags, base first.
func (c *Catalog) Locales() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

// SystemLocale reads the process locale from LC_ALL, LC_MESSAGES and LANG in
// that order and returns it as a BCP 47 tag, or BaseLocale when unset.
func SystemLocale() string {
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := normalizePOSIX(os.Getenv(env)); v != "" {
			return v
		}
	}
	return BaseLocale
}

// normalizePOSIX turns "pt_BR.UTF-8@euro" into "pt-BR". C and POSIX read as unset.
func normalizePOSIX(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexAny(v, ".@"); i >= 0 {
		v = v[:i]
	}
	if v == "C" || v == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(v, "_", "-")
}
