package workspaces

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the workspace/membership/project/task schema
// migrations. The membership migration depends on the roles table and runs
// after the role migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create workspaces table",
			SQL: `
				CREATE TABLE IF NOT EXISTS workspaces (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_workspaces_organization_id ON workspaces(organization_id);
			`,
		},
		{
			Version:     2,
			Description: "Create workspace_members table",
			SQL: `
				CREATE TABLE IF NOT EXISTS workspace_members (
					workspace_id UUID NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role_id UUID NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
					joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (workspace_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_workspace_members_user_id ON workspace_members(user_id);
			`,
		},
		{
			Version:     3,
			Description: "Create projects table",
			SQL: `
				CREATE TABLE IF NOT EXISTS projects (
					id UUID PRIMARY KEY,
					workspace_id UUID NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					created_by UUID NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_projects_workspace_id ON projects(workspace_id);
			`,
		},
		{
			Version:     4,
			Description: "Create tasks table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tasks (
					id UUID PRIMARY KEY,
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					workspace_id UUID NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
					title VARCHAR(500) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'todo',
					assignee_id UUID,
					created_by UUID NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
				CREATE INDEX IF NOT EXISTS idx_tasks_workspace_id ON tasks(workspace_id);
			`,
		},
	}
}
