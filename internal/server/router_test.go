package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/internal/api"
	"github.com/diewo77/go-todos/internal/session"
	"github.com/diewo77/go-todos/internal/state"
	"github.com/diewo77/go-todos/internal/todos"
)

// fakeRemote is a minimal stand-in for the remote todo API.
type fakeRemote struct {
	mux        *http.ServeMux
	mu         sync.Mutex
	user       string // JSON for the authenticated user, "" for none
	loginUser  string // JSON the user becomes after a successful login
	todoFetch  atomic.Int32
	todosJSON  string
	addStatus  int
	addBody    string
	delStatus  map[string]int
	userTodos  string
	allUsers   string
	logoutHits atomic.Int32
}

func (f *fakeRemote) currentUser() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeRemote) setUser(u string) {
	f.mu.Lock()
	f.user = u
	f.mu.Unlock()
}

func newFakeRemote() *fakeRemote {
	f := &fakeRemote{
		mux:       http.NewServeMux(),
		todosJSON: `{"todos":[{"_id":"t1","title":"Buy milk","time":"08:00","dueDays":"2024-01-05"}]}`,
		addStatus: http.StatusCreated,
		addBody:   `{"todo":{"_id":"t9","title":"Buy milk","time":"08:00","dueDays":"2024-01-05"}}`,
		delStatus: map[string]int{},
		userTodos: `{"todos":[]}`,
		allUsers:  `{"users":[{"id":"u1","name":"Ada","email":"a@b.c","role":"admin"}]}`,
	}
	f.mux.HandleFunc("GET /userroute21/getauthuser", func(w http.ResponseWriter, _ *http.Request) {
		u := f.currentUser()
		if u == "" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":` + u + `}`))
	})
	f.mux.HandleFunc("GET /userroute21/allusertodo/", func(w http.ResponseWriter, _ *http.Request) {
		f.todoFetch.Add(1)
		_, _ = w.Write([]byte(f.todosJSON))
	})
	f.mux.HandleFunc("GET /userroute21/allusers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(f.allUsers))
	})
	f.mux.HandleFunc("GET /todosroute/userstodo/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(f.userTodos))
	})
	f.mux.HandleFunc("POST /todosroute/addtodo", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(f.addStatus)
		if f.addStatus < 300 {
			_, _ = w.Write([]byte(f.addBody))
		} else {
			_, _ = w.Write([]byte(`{"message":"failed"}`))
		}
	})
	f.mux.HandleFunc("PUT /todosroute/updatetodo/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	f.mux.HandleFunc("DELETE /todosroute/deletetodo/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/todosroute/deletetodo/")
		if st, ok := f.delStatus[id]; ok {
			w.WriteHeader(st)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	f.mux.HandleFunc("POST /userroute21/logout", func(w http.ResponseWriter, _ *http.Request) {
		f.logoutHits.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	f.mux.HandleFunc("POST /userroute21/login", func(w http.ResponseWriter, _ *http.Request) {
		if f.loginUser != "" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok123", Path: "/"})
			f.setUser(f.loginUser)
		}
		w.WriteHeader(http.StatusOK)
	})
	return f
}

type testApp struct {
	handler  http.Handler
	remote   *fakeRemote
	sessions *session.Store
	cache    *todos.Cache
}

func newTestApp(t *testing.T, remote *fakeRemote) *testApp {
	t.Helper()
	srv := httptest.NewServer(remote.mux)
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL, 5*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	st, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("state store: %v", err)
	}
	sessions := session.New(client, zerolog.Nop())
	cache := todos.NewCache(client, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cache.Run(ctx, sessions)
	sessions.Initialize(ctx)

	h := New(Deps{API: client, Sessions: sessions, Cache: cache, State: st, Log: zerolog.Nop()})
	return &testApp{handler: h, remote: remote, sessions: sessions, cache: cache}
}

func (a *testApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, r)
	return w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, newFakeRemote())
	w := app.get(t, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("health returned %d", w.Code)
	}
}

func TestAnonymousStartupRedirectsProtectedRoutes(t *testing.T) {
	app := newTestApp(t, newFakeRemote()) // no session cookie server-side

	if st := app.sessions.Current().State; st != session.StateAnonymous {
		t.Fatalf("session state = %v, want anonymous", st)
	}
	w := app.get(t, "/addtodo")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", w.Code, w.Header().Get("Location"))
	}
	// The dependent todo fetch must never have fired.
	if got := app.remote.todoFetch.Load(); got != 0 {
		t.Fatalf("todo fetch fired %d times while anonymous", got)
	}
}

func TestAuthenticatedStartupServesEditorAndFetchesOnce(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)

	if st := app.sessions.Current().State; st != session.StateAuthenticated {
		t.Fatalf("session state = %v, want authenticated", st)
	}
	waitFor(t, func() bool { return remote.todoFetch.Load() == 1 })

	w := app.get(t, "/addtodo")
	if w.Code != http.StatusOK {
		t.Fatalf("editor returned %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Create Todo") {
		t.Error("editor page body missing form")
	}
	if got := remote.todoFetch.Load(); got != 1 {
		t.Fatalf("todo fetch fired %d times, want exactly 1", got)
	}
}

func TestHomeListsCachedTodos(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })

	w := app.get(t, "/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Buy milk") {
		t.Fatalf("home page missing todos: %d", w.Code)
	}
}

func TestAdminRoutesDeniedForPlainUsers(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)

	for _, path := range []string{"/dashboard", "/allusers", "/usertodos/u2"} {
		w := app.get(t, path)
		if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
			t.Errorf("%s: expected redirect home, got %d %q", path, w.Code, w.Header().Get("Location"))
		}
	}
}

func TestAdminRoutesServedForAdmins(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"admin"}`
	app := newTestApp(t, remote)

	if w := app.get(t, "/dashboard"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Dashboard") {
		t.Fatalf("dashboard returned %d", w.Code)
	}
	if w := app.get(t, "/allusers"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Ada") {
		t.Fatalf("allusers returned %d", w.Code)
	}
	if w := app.get(t, "/usertodos/u2"); w.Code != http.StatusOK {
		t.Fatalf("usertodos returned %d", w.Code)
	}
}

func TestCreateTodoAppendsToCache(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })

	w := app.postForm(t, "/addtodo", url.Values{
		"title":       {"Buy milk"},
		"description": {"Semi-skimmed"},
		"time":        {"08:00"},
		"dueDays":     {"2024-01-05"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("create returned %d", w.Code)
	}
	got := app.cache.Todos()
	if len(got) != 2 {
		t.Fatalf("cache length = %d, want 2", len(got))
	}
	if got[1].Title != "Buy milk" {
		t.Fatalf("appended todo %+v", got[1])
	}
}

func TestCreateTodoValidationSkipsNetwork(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })

	w := app.postForm(t, "/addtodo", url.Values{"title": {"Only a title"}})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fill all the fields") {
		t.Fatalf("expected re-rendered form with message, got %d", w.Code)
	}
	if len(app.cache.Todos()) != 1 {
		t.Fatal("validation failure must not change the cache")
	}
}

func TestFailedCreateLeavesCacheUnchanged(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	remote.addStatus = http.StatusBadRequest
	app := newTestApp(t, remote)
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })

	app.postForm(t, "/addtodo", url.Values{
		"title": {"x"}, "description": {"y"}, "time": {"08:00"}, "dueDays": {"2024-01-05"},
	})
	if len(app.cache.Todos()) != 1 {
		t.Fatal("failed create must not change the cache")
	}
}

func TestDeleteOfUnknownIDLeavesCacheUnchanged(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	remote.delStatus["ghost"] = http.StatusNotFound
	app := newTestApp(t, remote)
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })

	w := app.postForm(t, "/todos/delete/ghost", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("delete returned %d", w.Code)
	}
	if got := app.cache.Todos(); len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("cache changed on failed delete: %+v", got)
	}
}

func TestDeleteRemovesTargetedTodo(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })

	app.postForm(t, "/todos/delete/t1", url.Values{})
	if got := app.cache.Todos(); len(got) != 0 {
		t.Fatalf("cache after delete: %+v", got)
	}
}

func TestLoginSignsInAndLoadsTodos(t *testing.T) {
	remote := newFakeRemote()
	remote.loginUser = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)

	if st := app.sessions.Current().State; st != session.StateAnonymous {
		t.Fatalf("session state before login = %v, want anonymous", st)
	}

	w := app.postForm(t, "/login", url.Values{"email": {"a@b.c"}, "password": {"pw"}})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Fatalf("login returned %d %q", w.Code, w.Header().Get("Location"))
	}
	snap := app.sessions.Current()
	if snap.State != session.StateAuthenticated || snap.Profile == nil || snap.Profile.ID != "u1" {
		t.Fatalf("session after login: %+v", snap)
	}
	// Signing in is a transition; the watcher reacts with the dependent fetch.
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })
	if got := remote.todoFetch.Load(); got != 1 {
		t.Fatalf("todo fetch fired %d times after login, want 1", got)
	}
}

func TestLogoutClearsSessionAndCache(t *testing.T) {
	remote := newFakeRemote()
	remote.user = `{"id":"u1","name":"Ada","email":"a@b.c","role":"user"}`
	app := newTestApp(t, remote)
	waitFor(t, func() bool { return len(app.cache.Todos()) == 1 })

	w := app.postForm(t, "/logout", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("logout returned %d", w.Code)
	}
	if remote.logoutHits.Load() != 1 {
		t.Fatal("remote logout endpoint was not called")
	}
	if st := app.sessions.Current().State; st != session.StateAnonymous {
		t.Fatalf("session state = %v after logout", st)
	}
	waitFor(t, func() bool { return len(app.cache.Todos()) == 0 })

	// The guard must deny from now on.
	if w := app.get(t, "/addtodo"); w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", w.Code)
	}
}
