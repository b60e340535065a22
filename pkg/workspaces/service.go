package workspaces

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/rbac"
)

// Service manages workspaces, their members, and the projects and tasks
// inside them.
type Service interface {
	// CreateWorkspace inserts a workspace, seeds its default roles, and adds
	// the creator as its Owner.
	CreateWorkspace(ctx context.Context, organizationID, name, description, creatorUserID string) (*Workspace, error)

	// GetWorkspace retrieves a workspace by id. Returns ErrWorkspaceNotFound
	// when absent.
	GetWorkspace(ctx context.Context, id string) (*Workspace, error)

	// ListWorkspaces lists an organization's workspaces.
	ListWorkspaces(ctx context.Context, organizationID string) ([]*Workspace, error)

	// DeleteWorkspace removes a workspace with its memberships, roles,
	// projects, and tasks.
	DeleteWorkspace(ctx context.Context, id string) error

	// AddMember adds a user to a workspace. The user must belong to the
	// workspace's organization; an empty roleID assigns the invite-default
	// role.
	AddMember(ctx context.Context, workspaceID, userID, roleID string) (*Member, error)

	// RemoveMember removes a user from a workspace.
	RemoveMember(ctx context.Context, workspaceID, userID string) error

	// ChangeMemberRole reassigns a member's workspace role. The role must be
	// workspace-scoped and owned by this workspace.
	ChangeMemberRole(ctx context.Context, workspaceID, userID, roleID string) error

	// ListMembers lists a workspace's members with user and role names.
	ListMembers(ctx context.Context, workspaceID string) ([]Member, error)

	// CreateProject inserts a project into a workspace.
	CreateProject(ctx context.Context, workspaceID, name, description, createdBy string) (*Project, error)

	// ListProjects lists a workspace's projects.
	ListProjects(ctx context.Context, workspaceID string) ([]*Project, error)

	// DeleteProject removes a project and its tasks. The project must belong
	// to the given workspace.
	DeleteProject(ctx context.Context, workspaceID, projectID string) error

	// CreateTask inserts a task into a project. The project must belong to
	// the task's workspace.
	CreateTask(ctx context.Context, task *Task) error

	// ListTasks lists a project's tasks. The project must belong to the
	// given workspace.
	ListTasks(ctx context.Context, workspaceID, projectID string) ([]*Task, error)

	// UpdateTaskStatus moves a task between statuses. The task must belong
	// to the given workspace.
	UpdateTaskStatus(ctx context.Context, workspaceID, taskID, status string) error

	// DeleteTask removes a task. The task must belong to the given workspace.
	DeleteTask(ctx context.Context, workspaceID, taskID string) error
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

// CreateWorkspace inserts a workspace, seeds defaults, and enrolls the
// creator as Owner.
func (s *PostgresService) CreateWorkspace(ctx context.Context, organizationID, name, description, creatorUserID string) (*Workspace, error) {
	if name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}

	ws := &Workspace{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		OrganizationID: organizationID,
	}

	query := `
		INSERT INTO workspaces (id, name, description, organization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, ws.ID, ws.Name, ws.Description, ws.OrganizationID).
		Scan(&ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	if err := s.seeder.SeedWorkspaceDefaults(ctx, ws.ID, organizationID); err != nil {
		return nil, err
	}

	if creatorUserID != "" {
		owner, err := s.roleByName(ctx, ws.ID, rbac.RoleOwner)
		if err != nil {
			return nil, err
		}
		if err := s.insertMember(ctx, ws.ID, creatorUserID, owner); err != nil {
			return nil, err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"workspace_id":    ws.ID,
		"organization_id": organizationID,
	}).Info("created workspace")
	return ws, nil
}

// GetWorkspace retrieves a workspace by id.
func (s *PostgresService) GetWorkspace(ctx context.Context, id string) (*Workspace, error) {
	query := `
		SELECT id, name, description, organization_id, created_at, updated_at
		FROM workspaces
		WHERE id = $1
	`
	ws := &Workspace{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ws.ID, &ws.Name, &ws.Description, &ws.OrganizationID, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}

	return ws, nil
}

// ListWorkspaces lists an organization's workspaces.
func (s *PostgresService) ListWorkspaces(ctx context.Context, organizationID string) ([]*Workspace, error) {
	query := `
		SELECT id, name, description, organization_id, created_at, updated_at
		FROM workspaces
		WHERE organization_id = $1
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		ws := &Workspace{}
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.OrganizationID, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		out = append(out, ws)
	}

	return out, rows.Err()
}

// DeleteWorkspace removes a workspace; dependent rows cascade.
func (s *PostgresService) DeleteWorkspace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

// AddMember adds a user to a workspace.
func (s *PostgresService) AddMember(ctx context.Context, workspaceID, userID, roleID string) (*Member, error) {
	ws, err := s.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	var userOrg string
	err = s.db.QueryRowContext(ctx, `SELECT organization_id FROM users WHERE id = $1`, userID).Scan(&userOrg)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if userOrg != ws.OrganizationID {
		return nil, ErrNotSameOrganization
	}

	if roleID == "" {
		roleID, err = s.defaultRole(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
	} else if err := s.validateWorkspaceRole(ctx, workspaceID, roleID); err != nil {
		return nil, err
	}

	if err := s.insertMember(ctx, workspaceID, userID, roleID); err != nil {
		return nil, err
	}

	member := &Member{UserID: userID, WorkspaceID: workspaceID, RoleID: roleID}
	return member, nil
}

// RemoveMember removes a user from a workspace.
func (s *PostgresService) RemoveMember(ctx context.Context, workspaceID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`,
		workspaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// ChangeMemberRole reassigns a member's workspace role.
func (s *PostgresService) ChangeMemberRole(ctx context.Context, workspaceID, userID, roleID string) error {
	if err := s.validateWorkspaceRole(ctx, workspaceID, roleID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE workspace_members SET role_id = $1 WHERE workspace_id = $2 AND user_id = $3`,
		roleID, workspaceID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to change member role: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %s is not a member of workspace %s", userID, workspaceID)
	}

	return nil
}

// ListMembers lists a workspace's members with user and role names.
func (s *PostgresService) ListMembers(ctx context.Context, workspaceID string) ([]Member, error) {
	query := `
		SELECT m.user_id, m.workspace_id, m.role_id, r.name, u.name, m.joined_at
		FROM workspace_members m
		JOIN roles r ON r.id = m.role_id
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = $1
		ORDER BY u.name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.WorkspaceID, &m.RoleID, &m.RoleName, &m.UserName, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// CreateProject inserts a project into a workspace.
func (s *PostgresService) CreateProject(ctx context.Context, workspaceID, name, description, createdBy string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	p := &Project{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
	}

	query := `
		INSERT INTO projects (id, workspace_id, name, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, query, p.ID, p.WorkspaceID, p.Name, p.Description, p.CreatedBy).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return p, nil
}

// ListProjects lists a workspace's projects.
func (s *PostgresService) ListProjects(ctx context.Context, workspaceID string) ([]*Project, error) {
	query := `
		SELECT id, workspace_id, name, description, created_by, created_at, updated_at
		FROM projects
		WHERE workspace_id = $1
		ORDER BY name ASC
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p := &Project{}
		if err := rows.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// DeleteProject removes a project; its tasks cascade. The project must
// belong to the given workspace, so a permission granted in one workspace
// never reaches objects of another.
func (s *PostgresService) DeleteProject(ctx context.Context, workspaceID, projectID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1 AND workspace_id = $2`,
		projectID, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// CreateTask inserts a task into a project.
func (s *PostgresService) CreateTask(ctx context.Context, task *Task) error {
	if task.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = TaskStatusTodo
	}

	// The project must live in the workspace the caller was authorized for.
	var projectWorkspaceID string
	err := s.db.QueryRowContext(ctx,
		`SELECT workspace_id FROM projects WHERE id = $1`, task.ProjectID,
	).Scan(&projectWorkspaceID)
	if err == sql.ErrNoRows {
		return ErrProjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up project: %w", err)
	}
	if projectWorkspaceID != task.WorkspaceID {
		return ErrProjectNotFound
	}

	query := `
		INSERT INTO tasks (id, project_id, workspace_id, title, description, status, assignee_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, query, task.ID, task.ProjectID, task.WorkspaceID,
		task.Title, task.Description, task.Status, task.AssigneeID, task.CreatedBy).
		Scan(&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// ListTasks lists a project's tasks. The workspace filter keeps the listing
// inside the workspace the caller was authorized for.
func (s *PostgresService) ListTasks(ctx context.Context, workspaceID, projectID string) ([]*Task, error) {
	query := `
		SELECT id, project_id, workspace_id, title, description, status, COALESCE(assignee_id, ''), created_by, created_at, updated_at
		FROM tasks
		WHERE project_id = $1 AND workspace_id = $2
		ORDER BY created_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, projectID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		task := &Task{}
		err := rows.Scan(&task.ID, &task.ProjectID, &task.WorkspaceID, &task.Title, &task.Description,
			&task.Status, &task.AssigneeID, &task.CreatedBy, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, task)
	}

	return out, rows.Err()
}

// UpdateTaskStatus moves a task between statuses. The task must belong to
// the given workspace.
func (s *PostgresService) UpdateTaskStatus(ctx context.Context, workspaceID, taskID, status string) error {
	switch status {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
	default:
		return fmt.Errorf("invalid task status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = $1, updated_at = NOW() WHERE id = $2 AND workspace_id = $3`,
		status, taskID, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// DeleteTask removes a task. The task must belong to the given workspace.
func (s *PostgresService) DeleteTask(ctx context.Context, workspaceID, taskID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND workspace_id = $2`,
		taskID, workspaceID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (s *PostgresService) insertMember(ctx context.Context, workspaceID, userID, roleID string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role_id, joined_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (workspace_id, user_id) DO NOTHING
	`, workspaceID, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrAlreadyMember
	}
	return nil
}

// roleByName finds one of the workspace's roles by name.
func (s *PostgresService) roleByName(ctx context.Context, workspaceID, name string) (string, error) {
	roles, err := s.store.ListRoles(ctx, rbac.ScopeWorkspace, workspaceID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r.Name == name {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("workspace %s has no %s role", workspaceID, name)
}

// defaultRole finds the workspace's invite-default role.
func (s *PostgresService) defaultRole(ctx context.Context, workspaceID string) (string, error) {
	roles, err := s.store.ListRoles(ctx, rbac.ScopeWorkspace, workspaceID)
	if err != nil {
		return "", err
	}
	for _, r := range roles {
		if r.IsDefault {
			return r.ID, nil
		}
	}
	return "", fmt.Errorf("workspace %s has no default role", workspaceID)
}

// validateWorkspaceRole checks a role is workspace-scoped and owned by the
// given workspace.
func (s *PostgresService) validateWorkspaceRole(ctx context.Context, workspaceID, roleID string) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Scope != rbac.ScopeWorkspace || role.WorkspaceID != workspaceID {
		return fmt.Errorf("%w: role %s is not a role of workspace %s", rbac.ErrScopeMismatch, roleID, workspaceID)
	}
	return nil
}
