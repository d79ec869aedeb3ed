package access

import (
	"fmt"
	"strings"
)

// Role is a principal's job function. The set is closed.
type Role string

const (
	RolePartner   Role = "partner"
	RoleAssociate Role = "associate"
	RoleStaff     Role = "staff"
	RoleClient    Role = "client"
)

var Roles = []Role{RolePartner, RoleAssociate, RoleStaff, RoleClient}

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	switch r {
	case RolePartner, RoleAssociate, RoleStaff, RoleClient:
		return true
	default:
		return false
	}
}

func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return r, nil
}
