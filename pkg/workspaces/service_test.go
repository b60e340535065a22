package workspaces

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/rbac"
)

// stubStore is a minimal in-memory rbac.Store; enough for workspace seeding
// and role validation.
type stubStore struct {
	perms    map[string]rbac.Permission
	roles    map[string]rbac.Role
	bindings map[string][]string
}

func newStubStore() *stubStore {
	return &stubStore{
		perms:    make(map[string]rbac.Permission),
		roles:    make(map[string]rbac.Role),
		bindings: make(map[string][]string),
	}
}

func (s *stubStore) ListPermissions(_ context.Context, scope rbac.Scope, organizationID string) ([]rbac.Permission, error) {
	var out []rbac.Permission
	for _, p := range s.perms {
		if p.Scope == scope && p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (s *stubStore) CreatePermissions(_ context.Context, scope rbac.Scope, organizationID string, names []string) error {
	for _, name := range names {
		id := string(scope) + "/" + organizationID + "/" + name
		s.perms[id] = rbac.Permission{ID: id, Name: name, Scope: scope, OrganizationID: organizationID}
	}
	return nil
}
func (s *stubStore) GetPermissionsByID(_ context.Context, ids []string) ([]rbac.Permission, error) {
	var out []rbac.Permission
	for _, id := range ids {
		if p, ok := s.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
func (s *stubStore) ListRoles(_ context.Context, scope rbac.Scope, ownerID string) ([]rbac.Role, error) {
	var out []rbac.Role
	for _, r := range s.roles {
		if r.Scope == scope && r.OwnerID() == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}
func (s *stubStore) GetRole(_ context.Context, roleID string) (*rbac.Role, error) {
	r, ok := s.roles[roleID]
	if !ok {
		return nil, rbac.ErrRoleNotFound
	}
	return &r, nil
}
func (s *stubStore) CreateRoles(_ context.Context, roles []rbac.Role) error {
	for i := range roles {
		r := &roles[i]
		if r.ID == "" {
			r.ID = r.Name + "@" + r.OwnerID()
		}
		s.roles[r.ID] = *r
	}
	return nil
}
func (s *stubStore) UpdateRole(_ context.Context, role *rbac.Role) error {
	s.roles[role.ID] = *role
	return nil
}
func (s *stubStore) ListRoleBindings(_ context.Context, roleID string) ([]string, error) {
	return s.bindings[roleID], nil
}
func (s *stubStore) CreateBindings(_ context.Context, bindings []rbac.Binding) error {
	for _, b := range bindings {
		s.bindings[b.RoleID] = append(s.bindings[b.RoleID], b.PermissionID)
	}
	return nil
}
func (s *stubStore) DeleteBindings(context.Context, string, []string) error { return nil }
func (s *stubStore) GetUserAccess(context.Context, string) (*rbac.UserAccess, error) {
	return &rbac.UserAccess{}, nil
}

func newMockService(t *testing.T, store rbac.Store) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	if store == nil {
		store = newStubStore()
	}
	return NewPostgresService(db, store, rbac.NewSeeder(store, observability.Nop()), observability.Nop()), mock
}

func workspaceRows(ws *Workspace) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "description", "organization_id", "created_at", "updated_at"}).
		AddRow(ws.ID, ws.Name, ws.Description, ws.OrganizationID, now, now)
}

func TestCreateWorkspaceSeedsAndEnrollsOwner(t *testing.T) {
	store := newStubStore()
	svc, mock := newMockService(t, store)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO workspaces")).
		WithArgs(sqlmock.AnyArg(), "Platform", "infra", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workspace_members")).
		WithArgs(sqlmock.AnyArg(), "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ws, err := svc.CreateWorkspace(context.Background(), "org-1", "Platform", "infra", "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, ws.ID)

	// The workspace's four default roles were seeded.
	roles, err := store.ListRoles(context.Background(), rbac.ScopeWorkspace, ws.ID)
	require.NoError(t, err)
	assert.Len(t, roles, 4)
}

func TestGetWorkspaceNotFound(t *testing.T) {
	svc, mock := newMockService(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM workspaces")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetWorkspace(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrWorkspaceNotFound)
}

func TestAddMemberRejectsForeignOrganization(t *testing.T) {
	svc, mock := newMockService(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM workspaces")).
		WithArgs("ws-1").
		WillReturnRows(workspaceRows(&Workspace{ID: "ws-1", Name: "Platform", OrganizationID: "org-1"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT organization_id FROM users")).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-2"))

	_, err := svc.AddMember(context.Background(), "ws-1", "user-2", "")
	assert.ErrorIs(t, err, ErrNotSameOrganization)
}

func TestAddMemberAssignsDefaultRole(t *testing.T) {
	store := newStubStore()
	store.roles["viewer"] = rbac.Role{ID: "viewer", Name: "Viewer", Scope: rbac.ScopeWorkspace, OrganizationID: "org-1", WorkspaceID: "ws-1", IsDefault: true}
	svc, mock := newMockService(t, store)

	mock.ExpectQuery(regexp.QuoteMeta("FROM workspaces")).
		WithArgs("ws-1").
		WillReturnRows(workspaceRows(&Workspace{ID: "ws-1", Name: "Platform", OrganizationID: "org-1"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT organization_id FROM users")).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workspace_members")).
		WithArgs("ws-1", "user-2", "viewer").
		WillReturnResult(sqlmock.NewResult(0, 1))

	member, err := svc.AddMember(context.Background(), "ws-1", "user-2", "")
	require.NoError(t, err)
	assert.Equal(t, "viewer", member.RoleID)
}

func TestAddMemberRejectsCrossWorkspaceRole(t *testing.T) {
	store := newStubStore()
	store.roles["other"] = rbac.Role{ID: "other", Name: "Admin", Scope: rbac.ScopeWorkspace, OrganizationID: "org-1", WorkspaceID: "ws-2"}
	svc, mock := newMockService(t, store)

	mock.ExpectQuery(regexp.QuoteMeta("FROM workspaces")).
		WithArgs("ws-1").
		WillReturnRows(workspaceRows(&Workspace{ID: "ws-1", Name: "Platform", OrganizationID: "org-1"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT organization_id FROM users")).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))

	_, err := svc.AddMember(context.Background(), "ws-1", "user-2", "other")
	assert.ErrorIs(t, err, rbac.ErrScopeMismatch)
}

func TestAddMemberAlreadyMember(t *testing.T) {
	store := newStubStore()
	store.roles["viewer"] = rbac.Role{ID: "viewer", Name: "Viewer", Scope: rbac.ScopeWorkspace, OrganizationID: "org-1", WorkspaceID: "ws-1", IsDefault: true}
	svc, mock := newMockService(t, store)

	mock.ExpectQuery(regexp.QuoteMeta("FROM workspaces")).
		WithArgs("ws-1").
		WillReturnRows(workspaceRows(&Workspace{ID: "ws-1", Name: "Platform", OrganizationID: "org-1"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT organization_id FROM users")).
		WithArgs("user-2").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow("org-1"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO workspace_members")).
		WithArgs("ws-1", "user-2", "viewer").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.AddMember(context.Background(), "ws-1", "user-2", "")
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestChangeMemberRole(t *testing.T) {
	store := newStubStore()
	store.roles["admin"] = rbac.Role{ID: "admin", Name: "Admin", Scope: rbac.ScopeWorkspace, OrganizationID: "org-1", WorkspaceID: "ws-1"}
	svc, mock := newMockService(t, store)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE workspace_members SET role_id")).
		WithArgs("admin", "ws-1", "user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.ChangeMemberRole(context.Background(), "ws-1", "user-2", "admin"))
}

func TestCreateTaskDefaultsStatus(t *testing.T) {
	svc, mock := newMockService(t, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT workspace_id FROM projects")).
		WithArgs("proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"workspace_id"}).AddRow("ws-1"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(sqlmock.AnyArg(), "proj-1", "ws-1", "Fix flaky test", "", TaskStatusTodo, "", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	task := &Task{ProjectID: "proj-1", WorkspaceID: "ws-1", Title: "Fix flaky test", CreatedBy: "user-1"}
	require.NoError(t, svc.CreateTask(context.Background(), task))
	assert.Equal(t, TaskStatusTodo, task.Status)
	assert.NotEmpty(t, task.ID)
}

func TestCreateTaskRejectsProjectOutsideWorkspace(t *testing.T) {
	svc, mock := newMockService(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT workspace_id FROM projects")).
		WithArgs("proj-1").
		WillReturnRows(sqlmock.NewRows([]string{"workspace_id"}).AddRow("ws-other"))

	task := &Task{ProjectID: "proj-1", WorkspaceID: "ws-1", Title: "Sneak in", CreatedBy: "user-1"}
	assert.ErrorIs(t, svc.CreateTask(context.Background(), task), ErrProjectNotFound)
}

func TestUpdateTaskStatusValidates(t *testing.T) {
	svc, mock := newMockService(t, nil)

	err := svc.UpdateTaskStatus(context.Background(), "ws-1", "task-1", "bogus")
	assert.Error(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET status")).
		WithArgs(TaskStatusDone, "task-1", "ws-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.UpdateTaskStatus(context.Background(), "ws-1", "task-1", TaskStatusDone))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tasks SET status")).
		WithArgs(TaskStatusDone, "missing", "ws-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.UpdateTaskStatus(context.Background(), "ws-1", "missing", TaskStatusDone), ErrTaskNotFound)
}

func TestDeleteProjectScopedToWorkspace(t *testing.T) {
	svc, mock := newMockService(t, nil)

	// A project id from another workspace matches no row and is reported as
	// absent rather than deleted.
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM projects WHERE id = $1 AND workspace_id = $2")).
		WithArgs("proj-1", "ws-other").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.DeleteProject(context.Background(), "ws-other", "proj-1"), ErrProjectNotFound)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM projects WHERE id = $1 AND workspace_id = $2")).
		WithArgs("proj-1", "ws-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, svc.DeleteProject(context.Background(), "ws-1", "proj-1"))
}

func TestDeleteTaskScopedToWorkspace(t *testing.T) {
	svc, mock := newMockService(t, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tasks WHERE id = $1 AND workspace_id = $2")).
		WithArgs("task-1", "ws-other").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, svc.DeleteTask(context.Background(), "ws-other", "task-1"), ErrTaskNotFound)
}

func TestListProjects(t *testing.T) {
	svc, mock := newMockService(t, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM projects")).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "name", "description", "created_by", "created_at", "updated_at"}).
			AddRow("p1", "ws-1", "Backend", "", "user-1", now, now).
			AddRow("p2", "ws-1", "Frontend", "", "user-1", now, now))

	projects, err := svc.ListProjects(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "Backend", projects[0].Name)
}

func TestDeleteWorkspaceNotFound(t *testing.T) {
	svc, mock := newMockService(t, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM workspaces")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, svc.DeleteWorkspace(context.Background(), "missing"), ErrWorkspaceNotFound)
}
