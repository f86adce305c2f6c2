package models

// Role classifies what an account is allowed to see.
// The remote API transports it as an open string; ParseRole narrows it to the
// closed set and everything unrecognized becomes RoleUnknown.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleUnknown Role = "unknown"
)

// ParseRole maps a raw role string from the server to a Role.
func ParseRole(s string) Role {
	switch s {
	case string(RoleUser):
		return RoleUser
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// Profile is the identity record of an authenticated account.
// It is created server-side and never mutated by this client.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

// Todo is a single todo item as the remote API represents it.
// The id field is named "_id" on the wire (the server is document-backed).
type Todo struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Time        string `json:"time"`
	DueDays     string `json:"dueDays"`
}
