package orgs

import (
	"errors"
	"time"
)

var (
	// ErrOrganizationNotFound is returned when an organization does not exist.
	ErrOrganizationNotFound = errors.New("organization not found")

	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when signup or onboarding reuses an email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed password check.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Organization is a tenant. Each organization owns its own copies of the
// permission catalogs and role sets.
type Organization struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// User belongs to exactly one organization and holds exactly one
// organization role there. PasswordHash never serializes.
type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Name               string    `json:"name"`
	PasswordHash       string    `json:"-"`
	OrganizationID     string    `json:"organizationId"`
	OrganizationRoleID string    `json:"organizationRoleId,omitempty"`
	LastLogin          time.Time `json:"lastLogin,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Member is a user projected with their organization role name for member
// listings.
type Member struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	RoleID   string `json:"roleId"`
	RoleName string `json:"roleName"`
}
