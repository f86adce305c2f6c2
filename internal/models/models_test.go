package models

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"user", RoleUser},
		{"admin", RoleAdmin},
		{"", RoleUnknown},
		{"superadmin", RoleUnknown},
		{"Admin", RoleUnknown},
	}
	for _, c := range cases {
		if got := ParseRole(c.in); got != c.want {
			t.Errorf("ParseRole(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestProfileIsAdmin(t *testing.T) {
	if (Profile{Role: RoleUser}).IsAdmin() {
		t.Error("user role reported as admin")
	}
	if !(Profile{Role: RoleAdmin}).IsAdmin() {
		t.Error("admin role not reported as admin")
	}
	if (Profile{Role: RoleUnknown}).IsAdmin() {
		t.Error("unknown role reported as admin")
	}
}
