// Package i18n serves the portal's user-facing strings. Catalogs are
// embedded JSON files with nested sections; messages are addressed by
// dotted keys like "status.ap_active".
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

const DefaultLanguage = "en"

// supported lists the shipped catalogs. The first entry is the fallback
// the matcher picks when nothing else fits.
var supported = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
}

var supportedCodes = []string{"en", "es", "fr", "de"}

type Catalog struct {
	matcher  language.Matcher
	messages map[string]map[string]string
}

func NewCatalog() (*Catalog, error) {
	c := &Catalog{
		matcher:  language.NewMatcher(supported),
		messages: make(map[string]map[string]string, len(supportedCodes)),
	}
	for _, code := range supportedCodes {
		data, err := localeFS.ReadFile(path.Join("locales", code+".json"))
		if err != nil {
			return nil, fmt.Errorf("failed to read locale %s: %w", code, err)
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse locale %s: %w", code, err)
		}
		table := make(map[string]string)
		flatten("", raw, table)
		c.messages[code] = table
	}
	return c, nil
}

// Languages reports the catalog codes in matcher order.
func (c *Catalog) Languages() []string {
	codes := make([]string, len(supportedCodes))
	copy(codes, supportedCodes)
	return codes
}

// Match picks the best supported language for an Accept-Language header.
func (c *Catalog) Match(acceptLanguage string) string {
	if acceptLanguage == "" {
		return DefaultLanguage
	}
	_, index := language.MatchStrings(c.matcher, acceptLanguage)
	return supportedCodes[index]
}

// Lookup resolves a dotted key in the given language, falling back to
// English and finally to the key itself.
func (c *Catalog) Lookup(lang, key string) string {
	if table, ok := c.messages[lang]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := c.messages[DefaultLanguage][key]; ok {
		return msg
	}
	return key
}

// T is Lookup with the language negotiated from an Accept-Language header.
func (c *Catalog) T(acceptLanguage, key string) string {
	return c.Lookup(c.Match(acceptLanguage), key)
}

// Section returns every message under a dotted prefix, keyed by full key.
// The English table defines the key universe.
func (c *Catalog) Section(lang, prefix string) map[string]string {
	out := make(map[string]string)
	for key := range c.messages[DefaultLanguage] {
		if strings.HasPrefix(key, prefix+".") {
			out[key] = c.Lookup(lang, key)
		}
	}
	return out
}

func flatten(prefix string, value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			name := key
			if prefix != "" {
				name = prefix + "." + key
			}
			flatten(name, child, out)
		}
	case string:
		out[prefix] = v
	}
}
