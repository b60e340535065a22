package rbac

import (
	"time"
)

// Scope identifies which permission catalog and role set applies.
type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeWorkspace    Scope = "workspace"
)

// Valid reports whether s is one of the two known scopes.
func (s Scope) Valid() bool {
	return s == ScopeOrganization || s == ScopeWorkspace
}

// Permission is one catalog entry owned by a single organization.
type Permission struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Scope          Scope     `json:"scope"`
	OrganizationID string    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Role is a named permission set owned by exactly one organization or one
// workspace, never both.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Scope       Scope  `json:"scope"`
	// IsDefault marks the role assigned to invited members; exactly one
	// role per owning scope carries it.
	IsDefault bool `json:"is_default"`
	// IsSeeded is set for the four roles materialized by the Seeder; seeded
	// roles cannot be edited through the custom role manager.
	IsSeeded bool `json:"is_seeded"`

	OrganizationID string `json:"organization_id"`
	// WorkspaceID is empty for organization-scope roles.
	WorkspaceID string `json:"workspace_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID returns the id of the scope owning the role: the workspace id for
// workspace roles, the organization id otherwise.
func (r *Role) OwnerID() string {
	if r.Scope == ScopeWorkspace {
		return r.WorkspaceID
	}
	return r.OrganizationID
}

// Binding joins one role to one permission. Both sides must belong to the
// same scope and organization.
type Binding struct {
	RoleID       string `json:"role_id"`
	PermissionID string `json:"permission_id"`
}

// WorkspaceGrant is the per-workspace slice of an effective permission
// snapshot. The field names are part of the credential payload contract.
type WorkspaceGrant struct {
	WorkspaceID   string   `json:"workspaceId"`
	WorkspaceName string   `json:"workspaceName"`
	Permissions   []string `json:"permissions"`
}

// Snapshot is a user's effective permission set, computed at login,
// registration, and refresh, then embedded read-only into the access
// credential for its lifetime.
type Snapshot struct {
	OrgPermissions       []string         `json:"orgPermissions"`
	WorkspacePermissions []WorkspaceGrant `json:"workspacePermissions"`
}

// MembershipAccess is one workspace membership as loaded by the store for
// resolution: the workspace identity plus the permission names granted by
// the member's single workspace role.
type MembershipAccess struct {
	WorkspaceID   string
	WorkspaceName string
	Permissions   []string
}

// UserAccess is everything the resolver needs about one user: the permission
// names of their single organization role (nil when no role is assigned) and
// every workspace membership.
type UserAccess struct {
	UserID             string
	OrganizationID     string
	OrgRolePermissions []string
	Memberships        []MembershipAccess
}
