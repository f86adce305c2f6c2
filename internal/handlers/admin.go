package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/internal/api"
	"github.com/diewo77/go-todos/internal/models"
	"github.com/diewo77/go-todos/internal/session"
)

// AdminHandler serves the admin-only views. Role enforcement happens in the
// router's gate middleware; these handlers assume an admin session.
type AdminHandler struct {
	api      *api.Client
	sessions *session.Store
	log      zerolog.Logger
}

func NewAdminHandler(client *api.Client, sessions *session.Store, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{api: client, sessions: sessions, log: log}
}

// Dashboard renders the admin panel for the signed-in profile.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Current()
	if snap.Profile == nil {
		http.Redirect(w, r, "/login", statusSeeOther)
		return
	}
	renderPage(w, r, "dashboard.html", map[string]any{"Profile": *snap.Profile})
}

// AllUsers lists every registered profile. A fetch failure is a transient
// notice over an empty table, never an error page.
func (h *AdminHandler) AllUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.api.AllUsers(r.Context())
	data := map[string]any{"Users": users}
	if err != nil {
		h.log.Debug().Err(err).Msg("user list fetch failed")
		data["Users"] = []models.Profile(nil)
		data["Flash"] = "Could not load users"
	}
	renderPage(w, r, "allusers.html", data)
}

// UserTodos shows the todos of one user, looked up by path id.
func (h *AdminHandler) UserTodos(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	list, err := h.api.TodosOfUser(r.Context(), userID)
	data := map[string]any{"UserID": userID, "Todos": list}
	if err != nil {
		h.log.Debug().Err(err).Str("user", userID).Msg("user todo fetch failed")
		data["Todos"] = []models.Todo(nil)
		data["Flash"] = "Could not load this user's todos"
	}
	renderPage(w, r, "usertodos.html", data)
}
