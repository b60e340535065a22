package rbac

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Store owns persistence for roles, permissions, and role-permission
// bindings. The Seeder, Resolver, and Manager only ever touch the catalog
// through this interface, which keeps them testable against an in-memory
// double.
type Store interface {
	// ListPermissions returns the catalog copy of one scope owned by the
	// given organization.
	ListPermissions(ctx context.Context, scope Scope, organizationID string) ([]Permission, error)

	// CreatePermissions bulk-inserts catalog entries, skipping names that
	// already exist for the (scope, organization) pair.
	CreatePermissions(ctx context.Context, scope Scope, organizationID string, names []string) error

	// GetPermissionsByID loads permission rows by id; missing ids are simply
	// absent from the result.
	GetPermissionsByID(ctx context.Context, ids []string) ([]Permission, error)

	// ListRoles returns the roles owned by one scope instance: the workspace
	// for ScopeWorkspace, the organization otherwise.
	ListRoles(ctx context.Context, scope Scope, ownerID string) ([]Role, error)

	// GetRole loads one role. Returns ErrRoleNotFound when absent.
	GetRole(ctx context.Context, roleID string) (*Role, error)

	// CreateRoles bulk-inserts roles, skipping duplicates by (name, owner).
	// Generated ids are written back into the slice.
	CreateRoles(ctx context.Context, roles []Role) error

	// UpdateRole renames and redescribes a role.
	UpdateRole(ctx context.Context, role *Role) error

	// ListRoleBindings returns the permission ids currently bound to a role.
	ListRoleBindings(ctx context.Context, roleID string) ([]string, error)

	// CreateBindings bulk-inserts role-permission joins, skipping pairs that
	// already exist.
	CreateBindings(ctx context.Context, bindings []Binding) error

	// DeleteBindings removes the given permission ids from a role.
	DeleteBindings(ctx context.Context, roleID string, permissionIDs []string) error

	// GetUserAccess loads everything resolution needs for one user: the
	// permission names of their organization role and every workspace
	// membership with its role's permission names.
	GetUserAccess(ctx context.Context, userID string) (*UserAccess, error)
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListPermissions returns one organization's catalog copy for a scope.
func (s *PostgresStore) ListPermissions(ctx context.Context, scope Scope, organizationID string) ([]Permission, error) {
	query := `
		SELECT id, name, scope, organization_id, created_at
		FROM permissions
		WHERE scope = $1 AND organization_id = $2
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, scope, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Scope, &p.OrganizationID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}

	return perms, rows.Err()
}

// CreatePermissions bulk-inserts catalog entries with skip-duplicate
// semantics keyed by (name, scope, organization_id).
func (s *PostgresStore) CreatePermissions(ctx context.Context, scope Scope, organizationID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	query := `
		INSERT INTO permissions (id, name, scope, organization_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, scope, organization_id) DO NOTHING
	`

	now := time.Now()
	for _, name := range names {
		if _, err := s.db.ExecContext(ctx, query, uuid.NewString(), name, scope, organizationID, now); err != nil {
			return fmt.Errorf("failed to create permission %q: %w", name, err)
		}
	}

	return nil
}

// GetPermissionsByID loads permission rows by id.
func (s *PostgresStore) GetPermissionsByID(ctx context.Context, ids []string) ([]Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, scope, organization_id, created_at
		FROM permissions
		WHERE id = ANY($1)
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Scope, &p.OrganizationID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}

	return perms, rows.Err()
}

// ListRoles returns the roles owned by one scope instance.
func (s *PostgresStore) ListRoles(ctx context.Context, scope Scope, ownerID string) ([]Role, error) {
	var query string
	if scope == ScopeWorkspace {
		query = `
			SELECT id, name, description, scope, is_default, is_seeded, organization_id, COALESCE(workspace_id, ''), created_at, updated_at
			FROM roles
			WHERE scope = $1 AND workspace_id = $2
			ORDER BY name ASC
		`
	} else {
		query = `
			SELECT id, name, description, scope, is_default, is_seeded, organization_id, COALESCE(workspace_id, ''), created_at, updated_at
			FROM roles
			WHERE scope = $1 AND organization_id = $2
			ORDER BY name ASC
		`
	}

	rows, err := s.db.QueryContext(ctx, query, scope, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Scope, &r.IsDefault, &r.IsSeeded,
			&r.OrganizationID, &r.WorkspaceID, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}

	return roles, rows.Err()
}

// GetRole loads one role by id.
func (s *PostgresStore) GetRole(ctx context.Context, roleID string) (*Role, error) {
	query := `
		SELECT id, name, description, scope, is_default, is_seeded, organization_id, COALESCE(workspace_id, ''), created_at, updated_at
		FROM roles
		WHERE id = $1
	`

	var r Role
	err := s.db.QueryRowContext(ctx, query, roleID).Scan(
		&r.ID, &r.Name, &r.Description, &r.Scope, &r.IsDefault, &r.IsSeeded,
		&r.OrganizationID, &r.WorkspaceID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &r, nil
}

// CreateRoles bulk-inserts roles with skip-duplicate semantics keyed by
// (name, owning scope id).
func (s *PostgresStore) CreateRoles(ctx context.Context, roles []Role) error {
	query := `
		INSERT INTO roles (id, name, description, scope, is_default, is_seeded, organization_id, workspace_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $9)
		ON CONFLICT DO NOTHING
	`

	now := time.Now()
	for i := range roles {
		r := &roles[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := s.db.ExecContext(ctx, query, r.ID, r.Name, r.Description, r.Scope,
			r.IsDefault, r.IsSeeded, r.OrganizationID, r.WorkspaceID, now); err != nil {
			return fmt.Errorf("failed to create role %q: %w", r.Name, err)
		}
		r.CreatedAt = now
		r.UpdatedAt = now
	}

	return nil
}

// UpdateRole renames and redescribes a role.
func (s *PostgresStore) UpdateRole(ctx context.Context, role *Role) error {
	query := `
		UPDATE roles
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`

	role.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, query, role.Name, role.Description, role.UpdatedAt, role.ID)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRoleNotFound
	}

	return nil
}

// ListRoleBindings returns the permission ids bound to a role.
func (s *PostgresStore) ListRoleBindings(ctx context.Context, roleID string) ([]string, error) {
	query := `
		SELECT permission_id
		FROM role_permissions
		WHERE role_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role bindings: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// CreateBindings bulk-inserts role-permission joins, skipping existing pairs.
func (s *PostgresStore) CreateBindings(ctx context.Context, bindings []Binding) error {
	query := `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`

	for _, b := range bindings {
		if _, err := s.db.ExecContext(ctx, query, b.RoleID, b.PermissionID); err != nil {
			return fmt.Errorf("failed to create binding: %w", err)
		}
	}

	return nil
}

// DeleteBindings removes the given permission ids from a role.
func (s *PostgresStore) DeleteBindings(ctx context.Context, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}

	query := `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = ANY($2)
	`

	if _, err := s.db.ExecContext(ctx, query, roleID, pq.Array(permissionIDs)); err != nil {
		return fmt.Errorf("failed to delete bindings: %w", err)
	}

	return nil
}

// GetUserAccess loads the user's organization role permissions and every
// workspace membership with the permission names of its role.
func (s *PostgresStore) GetUserAccess(ctx context.Context, userID string) (*UserAccess, error) {
	access := &UserAccess{UserID: userID}

	var orgID, orgRoleID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT organization_id, organization_role_id FROM users WHERE id = $1`,
		userID,
	).Scan(&orgID, &orgRoleID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	access.OrganizationID = orgID.String

	// No organization role means no organization permissions, not an error.
	if orgRoleID.Valid {
		orgPermQuery := `
			SELECT p.name
			FROM role_permissions rp
			JOIN permissions p ON p.id = rp.permission_id
			WHERE rp.role_id = $1
			ORDER BY p.name ASC
		`
		rows, err := s.db.QueryContext(ctx, orgPermQuery, orgRoleID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to get organization permissions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return nil, fmt.Errorf("failed to scan permission name: %w", err)
			}
			access.OrgRolePermissions = append(access.OrgRolePermissions, name)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}

	// LEFT JOIN keeps memberships whose role has no bindings yet; they
	// resolve to an empty permission set.
	membershipQuery := `
		SELECT w.id, w.name, p.name
		FROM workspace_members m
		JOIN workspaces w ON w.id = m.workspace_id
		LEFT JOIN role_permissions rp ON rp.role_id = m.role_id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE m.user_id = $1
		ORDER BY w.name ASC, p.name ASC
	`

	rows, err := s.db.QueryContext(ctx, membershipQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace memberships: %w", err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var wsID, wsName string
		var permName sql.NullString
		if err := rows.Scan(&wsID, &wsName, &permName); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}

		i, ok := index[wsID]
		if !ok {
			i = len(access.Memberships)
			index[wsID] = i
			access.Memberships = append(access.Memberships, MembershipAccess{
				WorkspaceID:   wsID,
				WorkspaceName: wsName,
			})
		}
		if permName.Valid {
			access.Memberships[i].Permissions = append(access.Memberships[i].Permissions, permName.String)
		}
	}

	return access, rows.Err()
}
