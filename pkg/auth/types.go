package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teamplane/teamplane/pkg/rbac"
)

var (
	// ErrInvalidToken is returned when a credential is malformed, expired,
	// or carries a bad signature.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the user identity embedded in both credentials.
type Identity struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	OrganizationID string `json:"organizationId"`
	LastLogin      string `json:"lastLogin,omitempty"`
}

// AccessClaims is the payload of the short-lived access credential: identity
// plus the full effective permission snapshot. The snapshot is authoritative
// for the credential's lifetime; it is never re-read mid-session.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email                string                `json:"email"`
	Name                 string                `json:"name"`
	OrganizationID       string                `json:"organizationId"`
	LastLogin            string                `json:"lastLogin,omitempty"`
	OrgPermissions       []string              `json:"orgPermissions"`
	WorkspacePermissions []rbac.WorkspaceGrant `json:"workspacePermissions"`
}

// Snapshot rebuilds the embedded permission snapshot for the gate.
func (c *AccessClaims) Snapshot() *rbac.Snapshot {
	if c == nil {
		return nil
	}
	return &rbac.Snapshot{
		OrgPermissions:       c.OrgPermissions,
		WorkspacePermissions: c.WorkspacePermissions,
	}
}

// Identity returns the identity claims.
func (c *AccessClaims) Identity() Identity {
	return Identity{
		ID:             c.Subject,
		Email:          c.Email,
		Name:           c.Name,
		OrganizationID: c.OrganizationID,
		LastLogin:      c.LastLogin,
	}
}

// RefreshClaims is the payload of the long-lived refresh credential. It
// deliberately carries no permission snapshot: refresh re-resolves against
// the live store, never trusts stale embedded permissions.
type RefreshClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}
