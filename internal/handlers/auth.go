package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-todos/internal/api"
	"github.com/diewo77/go-todos/internal/middleware"
	"github.com/diewo77/go-todos/internal/session"
	"github.com/diewo77/go-todos/internal/state"
	"github.com/diewo77/go-todos/internal/todos"
	"github.com/diewo77/go-todos/validation"
	"github.com/diewo77/go-todos/view"
)

// Explicit constant for 303 See Other (Post/Redirect/Get)
const statusSeeOther = 303

// AuthHandler drives the login, two-phase signup, and logout flows.
type AuthHandler struct {
	api      *api.Client
	sessions *session.Store
	cache    *todos.Cache
	state    *state.Store
	log      zerolog.Logger
}

func NewAuthHandler(client *api.Client, sessions *session.Store, cache *todos.Cache, st *state.Store, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{api: client, sessions: sessions, cache: cache, state: st, log: log}
}

func renderPage(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name, data); err != nil {
		// Render already wrote a 500; just record it.
		zerolog.Ctx(r.Context()).Err(err).Str("template", name).Msg("render failed")
	}
}

// LoginPage renders the login form, or sends an already signed-in user home.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if session.CanAccess(h.sessions.Wait(r.Context())) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	renderPage(w, r, "login.html", map[string]any{"Email": ""})
}

// Login posts credentials to the remote API and, on success, fetches the
// profile behind the new cookie and signs the session in. The profile fetch
// is a direct call, not a store re-resolution: a startup Initialize still in
// flight predates the new cookie and would hand back a stale Anonymous.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.Flash(w, "Invalid form submission")
		http.Redirect(w, r, "/login", statusSeeOther)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	pass := r.FormValue("password")

	v := validation.Violations{}
	validation.Required("email", email, v)
	validation.Required("password", pass, v)
	if v.Empty() {
		validation.Email("email", email, v)
	}
	if !v.Empty() {
		renderPage(w, r, "login.html", map[string]any{"Email": email, "Flash": "Please fill all the fields"})
		return
	}

	if err := h.api.Login(r.Context(), api.Credentials{Email: email, Password: pass}); err != nil {
		h.log.Debug().Err(err).Msg("login rejected")
		renderPage(w, r, "login.html", map[string]any{"Email": email, "Flash": "Invalid credentials"})
		return
	}

	p, err := h.api.AuthUser(r.Context())
	if err != nil || p == nil {
		h.log.Warn().Err(err).Msg("profile fetch after login failed")
		renderPage(w, r, "login.html", map[string]any{"Email": email, "Flash": "Could not establish a session"})
		return
	}
	h.sessions.SignIn(*p)
	if err := h.state.SaveCookies(h.api.Cookies()); err != nil {
		h.log.Warn().Err(err).Msg("could not persist session cookie")
	}
	middleware.Flash(w, "Welcome back, "+p.Name)
	http.Redirect(w, r, "/", statusSeeOther)
}

// SignupPage renders the account form.
func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, "signup.html", signupData("", "", "", "user", false))
}

// Signup requests an OTP for the new account and switches the form to the
// verification stage. No network call is made while fields are missing.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.Flash(w, "Invalid form submission")
		http.Redirect(w, r, "/signup", statusSeeOther)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	pass := r.FormValue("password")
	role := r.FormValue("role")

	v := validation.Violations{}
	validation.Required("name", name, v)
	validation.Required("email", email, v)
	validation.Required("password", pass, v)
	validation.Required("role", role, v)
	if v.Empty() {
		validation.Email("email", email, v)
	}
	if !v.Empty() {
		data := signupData(name, email, pass, role, false)
		data["Flash"] = "Please fill all the fields"
		renderPage(w, r, "signup.html", data)
		return
	}

	req := api.SignupRequest{Name: name, Email: email, Password: pass, Role: role}
	if err := h.api.Signup(r.Context(), req); err != nil {
		data := signupData(name, email, pass, role, false)
		data["Flash"] = "Error signing up: " + userMessage(err)
		renderPage(w, r, "signup.html", data)
		return
	}
	data := signupData(name, email, pass, role, true)
	data["Flash"] = "OTP sent successfully"
	renderPage(w, r, "signup.html", data)
}

// VerifySignup completes signup with the OTP and sends the user to login.
func (h *AuthHandler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.Flash(w, "Invalid form submission")
		http.Redirect(w, r, "/signup", statusSeeOther)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	pass := r.FormValue("password")
	role := r.FormValue("role")
	otp := strings.TrimSpace(r.FormValue("otp"))

	if otp == "" {
		data := signupData(name, email, pass, role, true)
		data["Flash"] = "Please enter the OTP"
		renderPage(w, r, "signup.html", data)
		return
	}

	req := api.SignupRequest{Name: name, Email: email, Password: pass, Role: role, OTP: otp}
	if err := h.api.VerifySignup(r.Context(), req); err != nil {
		data := signupData(name, email, pass, role, true)
		data["Flash"] = "Error verifying OTP: " + userMessage(err)
		renderPage(w, r, "signup.html", data)
		return
	}
	middleware.Flash(w, "Signup successful")
	http.Redirect(w, r, "/login", statusSeeOther)
}

// Logout invalidates the remote session, then resets all local state.
// The local reset happens even when the server call fails: the user asked to
// be signed out and the client must not keep showing protected content.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.api.Logout(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("remote logout failed")
	}
	h.sessions.Logout()
	h.cache.Reset()
	if err := h.state.SaveCookies(h.api.Cookies()); err != nil {
		h.log.Warn().Err(err).Msg("could not persist cookie state")
	}
	middleware.Flash(w, "Logged out")
	http.Redirect(w, r, "/login", statusSeeOther)
}

func signupData(name, email, pass, role string, otpSent bool) map[string]any {
	return map[string]any{
		"Name":     name,
		"Email":    email,
		"Password": pass,
		"Role":     role,
		"OTPSent":  otpSent,
	}
}

// userMessage extracts the server-provided message when there is one.
func userMessage(err error) string {
	if se, ok := err.(*api.StatusError); ok && se.Message != "" {
		return se.Message
	}
	return "request failed"
}
