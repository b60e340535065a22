package orgs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/rbac"
)

// Service manages organizations and their users.
type Service interface {
	// CreateOrganization inserts an organization and seeds its default roles
	// and permission catalogs.
	CreateOrganization(ctx context.Context, name, description string) (*Organization, error)

	// GetOrganization retrieves an organization by id. Returns
	// ErrOrganizationNotFound when absent.
	GetOrganization(ctx context.Context, id string) (*Organization, error)

	// CreateUser inserts a user with a bcrypt-hashed password. Returns
	// ErrEmailTaken when the email is already registered.
	CreateUser(ctx context.Context, user *User, password string) error

	// Authenticate verifies an email/password pair. Returns
	// ErrInvalidCredentials on any mismatch, without distinguishing an
	// unknown email from a wrong password.
	Authenticate(ctx context.Context, email, password string) (*User, error)

	// GetUserByID retrieves a user by id. Returns ErrUserNotFound when
	// absent.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// UpdateLastLogin stamps the user's last login time and returns it.
	UpdateLastLogin(ctx context.Context, userID string) (time.Time, error)

	// OnboardUser creates a user inside an existing organization. An empty
	// roleID assigns the organization's invite-default role.
	OnboardUser(ctx context.Context, organizationID, email, name, password, roleID string) (*User, error)

	// RemoveUser deletes a user and their workspace memberships.
	RemoveUser(ctx context.Context, userID string) error

	// ChangeUserRole reassigns a user's organization role. The role must be
	// organization-scoped and belong to the user's organization.
	ChangeUserRole(ctx context.Context, userID, roleID string) error

	// ListMembers lists an organization's users with their role names.
	ListMembers(ctx context.Context, organizationID string) ([]Member, error)
}

// PostgresService implements Service on PostgreSQL.
type PostgresService struct {
	db     *sql.DB
	store  rbac.Store
	seeder *rbac.Seeder
	logger *observability.Logger
}

// NewPostgresService creates a new PostgresService.
func NewPostgresService(db *sql.DB, store rbac.Store, seeder *rbac.Seeder, logger *observability.Logger) *PostgresService {
	return &PostgresService{db: db, store: store, seeder: seeder, logger: logger}
}

// CreateOrganization inserts an organization and seeds its defaults.
func (s *PostgresService) CreateOrganization(ctx context.Context, name, description string) (*Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}

	org := &Organization{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}

	query := `
		INSERT INTO organizations (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, org.ID, org.Name, org.Description).
		Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	if err := s.seeder.SeedOrganizationDefaults(ctx, org.ID); err != nil {
		return nil, err
	}

	s.logger.WithField("organization_id", org.ID).Info("created organization")
	return org, nil
}

// GetOrganization retrieves an organization by id.
func (s *PostgresService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.Description, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// CreateUser inserts a user with a bcrypt-hashed password.
func (s *PostgresService) CreateUser(ctx context.Context, user *User, password string) error {
	if user.Email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, user.Email,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return ErrEmailTaken
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, organization_id, organization_role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query, user.ID, user.Email, user.Name,
		user.PasswordHash, user.OrganizationID, user.OrganizationRoleID).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// Authenticate verifies an email/password pair.
func (s *PostgresService) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.getUserByEmail(ctx, email)
	if err == ErrUserNotFound {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUserByID retrieves a user by id.
func (s *PostgresService) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresService) getUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *PostgresService) getUser(ctx context.Context, where string, arg interface{}) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, organization_id,
		       COALESCE(organization_role_id, ''), COALESCE(last_login, 'epoch'::timestamptz),
		       created_at, updated_at
		FROM users
	` + where

	user := &User{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.OrganizationID,
		&user.OrganizationRoleID, &user.LastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateLastLogin stamps the user's last login time.
func (s *PostgresService) UpdateLastLogin(ctx context.Context, userID string) (time.Time, error) {
	var lastLogin time.Time
	err := s.db.QueryRowContext(ctx,
		`UPDATE users SET last_login = NOW(), updated_at = NOW() WHERE id = $1 RETURNING last_login`,
		userID,
	).Scan(&lastLogin)
	if err == sql.ErrNoRows {
		return time.Time{}, ErrUserNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to update last login: %w", err)
	}

	return lastLogin, nil
}

// OnboardUser creates a user inside an existing organization.
func (s *PostgresService) OnboardUser(ctx context.Context, organizationID, email, name, password, roleID string) (*User, error) {
	if _, err := s.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}

	if roleID == "" {
		defaultRole, err := s.defaultOrgRole(ctx, organizationID)
		if err != nil {
			return nil, err
		}
		roleID = defaultRole
	} else if err := s.validateOrgRole(ctx, organizationID, roleID); err != nil {
		return nil, err
	}

	user := &User{
		Email:              email,
		Name:               name,
		OrganizationID:     organizationID,
		OrganizationRoleID: roleID,
	}
	if err := s.CreateUser(ctx, user, password); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":         user.ID,
		"organization_id": organizationID,
	}).Info("onboarded user")
	return user, nil
}

// RemoveUser deletes a user and their workspace memberships.
func (s *PostgresService) RemoveUser(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workspace_members WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ChangeUserRole reassigns a user's organization role.
func (s *PostgresService) ChangeUserRole(ctx context.Context, userID, roleID string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.validateOrgRole(ctx, user.OrganizationID, roleID); err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET organization_role_id = $1, updated_at = NOW() WHERE id = $2`,
		roleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to change user role: %w", err)
	}

	return nil
}

// ListMembers lists an organization's users with their role names.
func (s *PostgresService) ListMembers(ctx context.Context, organizationID string) ([]Member, error) {
	query := `
		SELECT u.id, u.email, u.name, COALESCE(u.organization_role_id, ''), COALESCE(r.name, '')
		FROM users u
		LEFT JOIN roles r ON r.id = u.organization_role_id
		WHERE u.organization_id = $1
		ORDER BY u.name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.RoleID, &m.RoleName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// defaultOrgRole finds the invite-default role of one organization.
func (s *PostgresService) defaultOrgRole(ctx context.Context, organizationID string) (string, error) {
	roles, err := s.store.ListRoles(ctx, rbac.ScopeOrganization, organizationID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r.IsDefault {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("organization %s has no default role", organizationID)
}

// validateOrgRole checks a role is organization-scoped within the given
// organization.
func (s *PostgresService) validateOrgRole(ctx context.Context, organizationID, roleID string) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Scope != rbac.ScopeOrganization || role.OrganizationID != organizationID {
		return fmt.Errorf("%w: role %s is not an organization role of %s", rbac.ErrScopeMismatch, roleID, organizationID)
	}
	return nil
}
