package rbac

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the permission/role/binding schema migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permissions (
					id UUID PRIMARY KEY,
					name VARCHAR(100) NOT NULL,
					scope VARCHAR(20) NOT NULL,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(name, scope, organization_id)
				);

				CREATE INDEX IF NOT EXISTS idx_permissions_organization_id ON permissions(organization_id);
				CREATE INDEX IF NOT EXISTS idx_permissions_scope ON permissions(scope);
			`,
		},
		{
			Version:     2,
			Description: "Create roles table",
			SQL: `
				CREATE TABLE IF NOT EXISTS roles (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					scope VARCHAR(20) NOT NULL,
					is_default BOOLEAN NOT NULL DEFAULT FALSE,
					is_seeded BOOLEAN NOT NULL DEFAULT FALSE,
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					workspace_id UUID REFERENCES workspaces(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					CHECK ((scope = 'workspace') = (workspace_id IS NOT NULL))
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_roles_owner_name
					ON roles(name, scope, organization_id, COALESCE(workspace_id, '00000000-0000-0000-0000-000000000000'::uuid));
				CREATE INDEX IF NOT EXISTS idx_roles_organization_id ON roles(organization_id);
				CREATE INDEX IF NOT EXISTS idx_roles_workspace_id ON roles(workspace_id);
			`,
		},
		{
			Version:     3,
			Description: "Create role_permissions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS role_permissions (
					role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					permission_id UUID NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, permission_id)
				);

				CREATE INDEX IF NOT EXISTS idx_role_permissions_permission_id ON role_permissions(permission_id);
			`,
		},
	}
}
