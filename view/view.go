// Package view renders the HTML pages. Templates are embedded and parsed
// once at startup; per-request values (theme, flash message, signed-in user)
// are injected through resolver callbacks set by the host application, so
// this package stays free of session and middleware imports.
package view

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"
)

//go:embed templates/*.html
var files embed.FS

var pages = map[string]*template.Template{}

var (
	themeResolver = func(_ *http.Request) string { return "light" }
	flashResolver = func(_ http.ResponseWriter, _ *http.Request) string { return "" }
	userResolver  = func(_ *http.Request) any { return nil }
	adminResolver = func(_ *http.Request) bool { return false }
)

// SetThemeResolver provides the per-request theme value.
func SetThemeResolver(f func(*http.Request) string) {
	if f != nil {
		themeResolver = f
	}
}

// SetFlashResolver provides (and consumes) the pending flash message.
func SetFlashResolver(f func(http.ResponseWriter, *http.Request) string) {
	if f != nil {
		flashResolver = f
	}
}

// SetUserResolver provides the signed-in profile for the nav bar, or nil.
func SetUserResolver(f func(*http.Request) any) {
	if f != nil {
		userResolver = f
	}
}

// SetIsAdminResolver reports whether the current user may see admin links.
func SetIsAdminResolver(f func(*http.Request) bool) {
	if f != nil {
		adminResolver = f
	}
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"year": func() int { return time.Now().Year() },
		// formatDue renders an ISO date (or full timestamp) as a short date.
		"formatDue": func(s string) string {
			for _, layout := range []string{time.RFC3339, "2006-01-02"} {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts.Format("Mon, Jan 2 2006")
				}
			}
			if s == "" {
				return "No due date"
			}
			return s
		},
	}
}

func init() {
	names := []string{
		"home.html", "addtodo.html", "login.html", "signup.html",
		"dashboard.html", "allusers.html", "usertodos.html",
	}
	for _, name := range names {
		pages[name] = template.Must(template.New("layout.html").Funcs(funcs()).
			ParseFS(files, "templates/layout.html", "templates/"+name))
	}
}

// Render executes the named page inside the shared layout.
// Common values (Theme, Flash, User, IsAdmin, Year) are injected unless the
// caller already set them. The page is buffered so a template error can still
// produce a clean 500 instead of a half-written body.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	t, ok := pages[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return nil
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, exists := data["Theme"]; !exists {
		data["Theme"] = themeResolver(r)
	}
	if _, exists := data["Flash"]; !exists {
		data["Flash"] = flashResolver(w, r)
	}
	if _, exists := data["User"]; !exists {
		data["User"] = userResolver(r)
	}
	if _, exists := data["IsAdmin"]; !exists {
		data["IsAdmin"] = adminResolver(r)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
