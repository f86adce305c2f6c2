package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/internal/api"
	"github.com/diewo77/go-todos/internal/middleware"
	"github.com/diewo77/go-todos/internal/models"
	"github.com/diewo77/go-todos/internal/session"
	"github.com/diewo77/go-todos/internal/todos"
	"github.com/diewo77/go-todos/validation"
)

// TodoHandler serves the todo list and editor. Mutations go to the remote
// API first; the local cache is only touched after the server acknowledged,
// so a failed call leaves the UI showing the last known good state.
type TodoHandler struct {
	api      *api.Client
	sessions *session.Store
	cache    *todos.Cache
	log      zerolog.Logger
}

func NewTodoHandler(client *api.Client, sessions *session.Store, cache *todos.Cache, log zerolog.Logger) *TodoHandler {
	return &TodoHandler{api: client, sessions: sessions, cache: cache, log: log}
}

// Home renders the todo list. The route is public; anonymous visitors get a
// login prompt instead of a redirect.
func (h *TodoHandler) Home(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Wait(r.Context())
	data := map[string]any{"Todos": []models.Todo(nil)}
	if session.CanAccess(snap) {
		data["Todos"] = h.cache.Todos()
	}
	renderPage(w, r, "home.html", data)
}

// EditorPage renders the create form with a due date two days out by default.
func (h *TodoHandler) EditorPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, "addtodo.html", editorData("", "", "", defaultDueDate()))
}

// Create validates the form, posts the todo, and appends the server's copy
// to the cache. Validation failures never reach the network.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.Flash(w, "Invalid form submission")
		http.Redirect(w, r, "/addtodo", statusSeeOther)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	timeOfDay := r.FormValue("time")
	dueDays := r.FormValue("dueDays")

	v := validation.Violations{}
	validation.Required("title", title, v)
	validation.Required("description", description, v)
	validation.Required("time", timeOfDay, v)
	validation.Required("dueDays", dueDays, v)
	if _, ok := v["time"]; !ok {
		validation.TimeOfDay("time", timeOfDay, v)
	}
	if !v.Empty() {
		data := editorData(title, description, timeOfDay, dueDays)
		data["Flash"] = "Please fill all the fields"
		renderPage(w, r, "addtodo.html", data)
		return
	}

	todo, err := h.api.AddTodo(r.Context(), api.TodoRequest{
		Title:       title,
		Description: description,
		DueDays:     dueDays,
		Time:        timeOfDay,
	})
	if err != nil {
		h.log.Debug().Err(err).Msg("add todo failed")
		data := editorData(title, description, timeOfDay, dueDays)
		data["Flash"] = "Failed to add todo: " + userMessage(err)
		renderPage(w, r, "addtodo.html", data)
		return
	}
	h.cache.Append(todo)
	middleware.Flash(w, "Todo added successfully!")
	http.Redirect(w, r, "/", statusSeeOther)
}

// Update replaces the four editable fields of one todo.
func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		middleware.Flash(w, "Invalid form submission")
		http.Redirect(w, r, "/", statusSeeOther)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	timeOfDay := r.FormValue("time")
	dueDays := r.FormValue("dueDays")

	// Description is the only optional field.
	v := validation.Violations{}
	validation.Required("title", title, v)
	validation.Required("time", timeOfDay, v)
	validation.Required("dueDays", dueDays, v)
	if !v.Empty() {
		middleware.Flash(w, "Title, Time, and Due Date are required!")
		http.Redirect(w, r, "/", statusSeeOther)
		return
	}

	req := api.TodoRequest{Title: title, Description: description, Time: timeOfDay, DueDays: dueDays}
	if err := h.api.UpdateTodo(r.Context(), id, req); err != nil {
		h.log.Debug().Err(err).Str("todo", id).Msg("update failed")
		middleware.Flash(w, "Failed to update todo")
		http.Redirect(w, r, "/", statusSeeOther)
		return
	}
	h.cache.Replace(models.Todo{ID: id, Title: title, Description: description, Time: timeOfDay, DueDays: dueDays})
	middleware.Flash(w, "Todo updated successfully!")
	http.Redirect(w, r, "/", statusSeeOther)
}

// Delete removes one todo. The cache entry is only dropped on a 2xx
// acknowledgment; deleting an id the server no longer knows leaves the
// local collection unchanged.
func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.api.DeleteTodo(r.Context(), id); err != nil {
		h.log.Debug().Err(err).Str("todo", id).Msg("delete failed")
		middleware.Flash(w, "Failed to delete todo")
		http.Redirect(w, r, "/", statusSeeOther)
		return
	}
	h.cache.Remove(id)
	middleware.Flash(w, "Todo deleted successfully!")
	http.Redirect(w, r, "/", statusSeeOther)
}

// defaultDueDate keeps the editor's convention of a due date two days out.
func defaultDueDate() string {
	return time.Now().AddDate(0, 0, 2).Format("2006-01-02")
}

func editorData(title, description, timeOfDay, dueDays string) map[string]any {
	return map[string]any{
		"Title":       title,
		"Description": description,
		"Time":        timeOfDay,
		"DueDays":     dueDays,
	}
}
