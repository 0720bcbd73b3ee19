// Package session defines the user identity the backend returns and the
// reduced summary the gateway exposes to browser scripts.
package session

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Role is the closed set of account roles the backend assigns.
type Role string

// Known roles, spelled as the backend sends them.
const (
	RoleCandidate Role = "CANDIDATE"
	RoleEmployer  Role = "EMPLOYER"
	RoleAdmin     Role = "ADMIN"
)

// ParseRole accepts the backend spelling of a role, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCandidate, RoleEmployer, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCandidate, RoleEmployer, RoleAdmin:
		return true
	}
	return false
}

// UnmarshalJSON accepts a JSON string naming a known role and rejects anything else.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("role must be a string: %w", err)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// UserIdentity is the user record the backend returns from login, register
// and /api/auth/me.
type UserIdentity struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// Summary is the only user data allowed in browser-readable storage.
// It has no token field and must never gain one.
type Summary struct {
	FirstName string `json:"first_name"`
	Role      Role   `json:"role"`
}

// Summary projects the identity onto the fields the browser may read.
func (u UserIdentity) Summary() Summary {
	return Summary{FirstName: u.FirstName, Role: u.Role}
}

// Valid reports whether the summary can be shown as a signed-in user.
func (s Summary) Valid() bool {
	return s.FirstName != "" && s.Role.Valid()
}
