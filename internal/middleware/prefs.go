package middleware

import (
	"context"
	"net/http"
	"net/url"
)

type ctxKey string

const ctxTheme ctxKey = "pref_theme"

// ThemeStore persists the theme preference between runs.
type ThemeStore interface {
	Theme() string
	SetTheme(theme string) error
}

// Prefs resolves the theme preference (query > persisted value) and stores it
// in the request context. A query-provided theme is persisted for the next
// start and echoed in a cookie so the page renders consistently right away.
func Prefs(store ThemeStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			theme := store.Theme()
			if qt := r.URL.Query().Get("theme"); qt == "light" || qt == "dark" {
				theme = qt
				_ = store.SetTheme(qt)
				http.SetCookie(w, &http.Cookie{Name: "theme", Value: theme, Path: "/", MaxAge: 86400 * 30})
			}
			ctx := context.WithValue(r.Context(), ctxTheme, theme)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ThemeFrom returns the theme preference from context or the light fallback.
func ThemeFrom(r *http.Request) string {
	if v, ok := r.Context().Value(ctxTheme).(string); ok && v != "" {
		return v
	}
	return "light"
}

// Flash sets a one-shot message cookie shown on the next rendered page.
func Flash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{Name: "flash", Value: url.QueryEscape(msg), Path: "/"})
}

// PopFlash reads and clears the flash message, if any.
func PopFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie("flash")
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: "flash", Value: "", Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}
