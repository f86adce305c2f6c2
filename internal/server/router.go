// Package server wires the routes, the route guard, and the middleware
// chain into the http.Handler the local UI runs on.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/gate"
	"github.com/diewo77/go-todos/httpx"
	"github.com/diewo77/go-todos/internal/api"
	"github.com/diewo77/go-todos/internal/handlers"
	"github.com/diewo77/go-todos/internal/middleware"
	"github.com/diewo77/go-todos/internal/models"
	"github.com/diewo77/go-todos/internal/session"
	"github.com/diewo77/go-todos/internal/state"
	"github.com/diewo77/go-todos/internal/todos"
	"github.com/diewo77/go-todos/view"
)

// Deps carries everything the router needs.
type Deps struct {
	API      *api.Client
	Sessions *session.Store
	Cache    *todos.Cache
	State    *state.Store
	Log      zerolog.Logger
}

// New constructs the root http.Handler with all routes and middleware applied.
func New(d Deps) http.Handler {
	// Admin-only resources are gated by role.
	g := gate.NewGate[models.Role]()
	g.Register("users", gate.AllowSubjects(models.RoleAdmin))

	wireView(d, g)

	authH := handlers.NewAuthHandler(d.API, d.Sessions, d.Cache, d.State, d.Log)
	todoH := handlers.NewTodoHandler(d.API, d.Sessions, d.Cache, d.Log)
	adminH := handlers.NewAdminHandler(d.API, d.Sessions, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.Recover(d.Log))
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Prefs(d.State))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public surface.
	r.Get("/", todoH.Home)
	r.Get("/login", authH.LoginPage)
	r.Post("/login", authH.Login)
	r.Get("/signup", authH.SignupPage)
	r.Post("/signup", authH.Signup)
	r.Post("/signup/verify", authH.VerifySignup)
	r.Post("/logout", authH.Logout)

	// Protected: any authenticated user.
	r.Group(func(pr chi.Router) {
		pr.Use(requireSession(d.Sessions))
		pr.Get("/addtodo", todoH.EditorPage)
		pr.Post("/addtodo", todoH.Create)
		pr.Post("/todos/update/{id}", todoH.Update)
		pr.Post("/todos/delete/{id}", todoH.Delete)
	})

	// Protected: admins only.
	r.Group(func(ar chi.Router) {
		ar.Use(requireSession(d.Sessions))
		ar.Use(requireRole(g, d.Sessions))
		ar.Get("/dashboard", adminH.Dashboard)
		ar.Get("/allusers", adminH.AllUsers)
		ar.Get("/usertodos/{id}", adminH.UserTodos)
	})

	return r
}

// requireSession is the route guard. It first waits out a still-loading
// session so a slow profile fetch does not cause a flash-redirect to login,
// then evaluates the guard fresh on every request.
func requireSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := store.Wait(r.Context())
			if !session.CanAccess(snap) {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireRole gates the admin views on the "users" resource policy.
func requireRole(g *gate.Gate[models.Role], store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := store.Current()
			if snap.Profile == nil || !g.Can(r.Context(), snap.Profile.Role, gate.ActionList, "users", nil) {
				middleware.Flash(w, "You are not allowed to view that page")
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// wireView points the template layer at per-request values without letting
// the view package import session or middleware types.
func wireView(d Deps, g *gate.Gate[models.Role]) {
	view.SetThemeResolver(middleware.ThemeFrom)
	view.SetFlashResolver(middleware.PopFlash)
	view.SetUserResolver(func(r *http.Request) any {
		snap := d.Sessions.Current()
		if snap.State != session.StateAuthenticated || snap.Profile == nil {
			return nil
		}
		return *snap.Profile
	})
	view.SetIsAdminResolver(func(r *http.Request) bool {
		snap := d.Sessions.Current()
		if snap.Profile == nil {
			return false
		}
		return g.Can(r.Context(), snap.Profile.Role, gate.ActionList, "users", nil)
	})
}
