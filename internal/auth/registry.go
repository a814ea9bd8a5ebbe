package auth

import (
	"errors"

	"github.com/google/uuid"
)

// Role names gate the administrative entry points.
type Role string

const (
	// RoleAdmin may change market lifecycle state, rate schedules and
	// escrow approvals.
	RoleAdmin Role = "admin"
	// RoleSettler marks authorized price sources: the only callers of
	// the settlement entry point and of cancel finalization.
	RoleSettler Role = "settler"
)

// ErrUnauthorized is returned when a caller lacks the required role.
var ErrUnauthorized = errors.New("auth: caller lacks required role")

// PermissionRegistry answers role membership questions. The ledger
// consumes this as a narrow external collaborator; production deploys
// back it with whatever identity system the operator runs.
type PermissionRegistry interface {
	HasRole(role Role, caller uuid.UUID) bool
}

// StaticRegistry is an in-memory registry configured at startup.
// Multiple settlers may be authorized simultaneously so price sources
// can be rotated without downtime.
type StaticRegistry struct {
	members map[Role]map[uuid.UUID]bool
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{members: make(map[Role]map[uuid.UUID]bool)}
}

// Grant adds a caller to a role.
func (r *StaticRegistry) Grant(role Role, caller uuid.UUID) {
	if r.members[role] == nil {
		r.members[role] = make(map[uuid.UUID]bool)
	}
	r.members[role][caller] = true
}

// Revoke removes a caller from a role.
func (r *StaticRegistry) Revoke(role Role, caller uuid.UUID) {
	delete(r.members[role], caller)
}

func (r *StaticRegistry) HasRole(role Role, caller uuid.UUID) bool {
	return r.members[role][caller]
}

// Require returns ErrUnauthorized unless the caller holds the role.
func Require(reg PermissionRegistry, role Role, caller uuid.UUID) error {
	if !reg.HasRole(role, caller) {
		return ErrUnauthorized
	}
	return nil
}
