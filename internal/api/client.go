// Package api is the typed client for the remote todo REST server.
// The server owns all persistence and business logic; this package only
// shapes requests, decodes responses, and carries the credentialed session
// cookie between calls.
package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/diewo77/go-todos/internal/models"
)

// Client calls the remote todo API. All methods are safe for concurrent use.
type Client struct {
	base string
	http *http.Client
	cb   *gobreaker.CircuitBreaker[[]byte]
	log  zerolog.Logger
}

// New builds a Client for the API at baseURL. Each call is bounded by timeout;
// a circuit breaker rejects calls outright while the server is persistently
// failing so the UI degrades to its anonymous/empty states instead of hanging.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout, Jar: jar},
		log:  log,
	}
	c.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "todo-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx responses are the server talking to us, not an outage.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && se.Status < 500
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state change")
		},
	})
	return c, nil
}

// Cookies returns the cookies currently held for the API origin.
// Used to persist the remote session across restarts.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.base)
	if err != nil {
		return nil
	}
	return c.http.Jar.Cookies(u)
}

// SetCookies seeds the jar with previously persisted cookies for the API origin.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.base)
	if err != nil {
		return
	}
	c.http.Jar.SetCookies(u, cookies)
}

// do performs one API round trip through the circuit breaker.
// out may be nil when the caller only cares about success.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, in)
	})
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("api call failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, ErrUnauthenticated
		}
		se := &StatusError{Status: resp.StatusCode}
		var errBody struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			se.Message = errBody.Message
		}
		return nil, se
	}
	return body, nil
}

// rawProfile keeps the role as the open string the server sends.
type rawProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (p rawProfile) toModel() models.Profile {
	return models.Profile{ID: p.ID, Name: p.Name, Email: p.Email, Role: models.ParseRole(p.Role)}
}

// AuthUser fetches the profile behind the current session cookie.
// A successful response without a user (no session) yields (nil, nil).
func (c *Client) AuthUser(ctx context.Context) (*models.Profile, error) {
	var resp struct {
		User *rawProfile `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/userroute21/getauthuser", nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil || resp.User.ID == "" {
		return nil, nil
	}
	p := resp.User.toModel()
	return &p, nil
}

// UserTodos fetches the todo list owned by profileID.
func (c *Client) UserTodos(ctx context.Context, profileID string) ([]models.Todo, error) {
	var resp struct {
		Todos []models.Todo `json:"todos"`
	}
	if err := c.do(ctx, http.MethodGet, "/userroute21/allusertodo/"+url.PathEscape(profileID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Todos, nil
}

// AllUsers fetches every registered profile (admin view).
func (c *Client) AllUsers(ctx context.Context) ([]models.Profile, error) {
	var resp struct {
		Users []rawProfile `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/userroute21/allusers", nil, &resp); err != nil {
		return nil, err
	}
	users := make([]models.Profile, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, u.toModel())
	}
	return users, nil
}

// TodosOfUser fetches another user's todos (admin view).
func (c *Client) TodosOfUser(ctx context.Context, userID string) ([]models.Todo, error) {
	var resp struct {
		Todos []models.Todo `json:"todos"`
	}
	if err := c.do(ctx, http.MethodGet, "/todosroute/userstodo/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Todos, nil
}

// SignupRequest carries the fields of the two-phase signup flow.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	// OTP is only set for the verification call.
	OTP string `json:"otp,omitempty"`
}

// Signup requests an OTP for a new account.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPut, "/userroute21/signup", req, nil)
}

// VerifySignup completes signup with the OTP the user received.
func (c *Client) VerifySignup(ctx context.Context, req SignupRequest) error {
	return c.do(ctx, http.MethodPost, "/userroute21/signup/verify", req, nil)
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login establishes a session; the server answers with a Set-Cookie the jar
// retains for subsequent calls.
func (c *Client) Login(ctx context.Context, creds Credentials) error {
	return c.do(ctx, http.MethodPost, "/userroute21/login", creds, nil)
}

// Logout invalidates the remote session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/userroute21/logout", struct{}{}, nil)
}

// TodoRequest carries the four editable fields of a todo.
type TodoRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDays     string `json:"dueDays"`
	Time        string `json:"time"`
}

// AddTodo creates a todo and returns the server's copy. When the server does
// not echo the created document the submitted fields are returned with an
// empty id; the next full fetch reconciles it.
func (c *Client) AddTodo(ctx context.Context, req TodoRequest) (models.Todo, error) {
	var resp struct {
		Todo *models.Todo `json:"todo"`
	}
	if err := c.do(ctx, http.MethodPost, "/todosroute/addtodo", req, &resp); err != nil {
		return models.Todo{}, err
	}
	if resp.Todo != nil {
		return *resp.Todo, nil
	}
	return models.Todo{Title: req.Title, Description: req.Description, Time: req.Time, DueDays: req.DueDays}, nil
}

// UpdateTodo replaces the four editable fields of the todo with the given id.
func (c *Client) UpdateTodo(ctx context.Context, id string, req TodoRequest) error {
	return c.do(ctx, http.MethodPut, "/todosroute/updatetodo/"+url.PathEscape(id), req, nil)
}

// DeleteTodo removes the todo with the given id.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todosroute/deletetodo/"+url.PathEscape(id), nil, nil)
}
