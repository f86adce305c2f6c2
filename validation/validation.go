package validation

import "strings"

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// First returns one violation message for flash-style display.
func (v Violations) First() string {
	for field, msg := range v {
		return field + ": " + msg
	}
	return ""
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Email performs a cheap shape check; the server is the authority.
func Email(field, value string, v Violations) {
	at := strings.Index(value, "@")
	if at < 1 || at == len(value)-1 || !strings.Contains(value[at:], ".") {
		v[field] = "invalid_email"
	}
}

// TimeOfDay checks a HH:MM value.
func TimeOfDay(field, value string, v Violations) {
	if len(value) != 5 || value[2] != ':' {
		v[field] = "invalid_time"
		return
	}
	hh, mm := value[:2], value[3:]
	if !digits(hh) || !digits(mm) || hh > "23" || mm > "59" {
		v[field] = "invalid_time"
	}
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
