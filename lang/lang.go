// Package lang carries the caller's display language through context so
// user-visible strings (gate denial messages) can be localized without
// threading a locale parameter through the engine.
package lang

import "context"

type ctxKey struct{}

// WithLanguage attaches a language code (e.g. "en", "es") to ctx.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, ctxKey{}, language)
}

// LanguageFromContext reads the language code from ctx, if one was set.
func LanguageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxKey{})
	s, ok := v.(string)
	return s, ok && s != ""
}
