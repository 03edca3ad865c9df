package paygin

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/paykit/lang"
)

// LanguageConfig controls how the request language for gate messages is
// inferred.
type LanguageConfig struct {
	Supported  []string
	Default    string
	QueryParam string
	CookieName string
}

func (c *LanguageConfig) defaulted() LanguageConfig {
	if c == nil {
		return LanguageConfig{Default: "en", QueryParam: "lang", CookieName: "lang"}
	}
	out := *c
	if strings.TrimSpace(out.Default) == "" {
		out.Default = "en"
	}
	if strings.TrimSpace(out.QueryParam) == "" {
		out.QueryParam = "lang"
	}
	if strings.TrimSpace(out.CookieName) == "" {
		out.CookieName = "lang"
	}
	return out
}

var reLangCode = regexp.MustCompile(`^[a-z]{2}$`)

func normalizeLangCode(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	if !reLangCode.MatchString(s) {
		return ""
	}
	return s
}

func supportedSet(supported []string) map[string]struct{} {
	if len(supported) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(supported))
	for _, s := range supported {
		if n := normalizeLangCode(s); n != "" {
			m[n] = struct{}{}
		}
	}
	return m
}

func accepted(code string, supported map[string]struct{}) bool {
	if code == "" {
		return false
	}
	if supported == nil {
		return true
	}
	_, ok := supported[code]
	return ok
}

func pickFromAcceptLanguage(header string, supported map[string]struct{}) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if i := strings.IndexByte(part, ';'); i >= 0 {
			part = part[:i]
		}
		if code := normalizeLangCode(part); accepted(code, supported) {
			return code
		}
	}
	return ""
}

// resolveRequestLanguage: `?lang` query param > `lang` cookie >
// `Accept-Language` header > configured default.
func resolveRequestLanguage(c *gin.Context, cfg LanguageConfig) string {
	supported := supportedSet(cfg.Supported)

	if code := normalizeLangCode(c.Query(cfg.QueryParam)); accepted(code, supported) {
		return code
	}
	if cv, err := c.Cookie(cfg.CookieName); err == nil {
		if code := normalizeLangCode(cv); accepted(code, supported) {
			return code
		}
	}
	if code := pickFromAcceptLanguage(c.GetHeader("Accept-Language"), supported); code != "" {
		return code
	}
	if code := normalizeLangCode(cfg.Default); accepted(code, supported) {
		return code
	}
	return "en"
}

// LanguageMiddleware infers the request language and attaches it to the
// request context so gate denial messages localize.
func LanguageMiddleware(cfg *LanguageConfig) gin.HandlerFunc {
	resolved := cfg.defaulted()
	return func(g *gin.Context) {
		code := resolveRequestLanguage(g, resolved)
		g.Set("paykit.language", code)
		g.Request = g.Request.WithContext(lang.WithLanguage(g.Request.Context(), code))
		g.Next()
	}
}
