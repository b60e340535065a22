package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teamplane/teamplane/pkg/audit"
	"github.com/teamplane/teamplane/pkg/orgs"
	"github.com/teamplane/teamplane/pkg/rbac"
	"github.com/teamplane/teamplane/pkg/workspaces"
)

// fakeStore is a functional in-memory rbac.Store that also tracks role
// assignments, so the resolver produces real snapshots end to end.
type fakeStore struct {
	mu sync.Mutex

	perms    map[string]rbac.Permission
	roles    map[string]rbac.Role
	bindings map[string][]string

	orgRoles       map[string]string            // user id -> org role id
	memberships    map[string]map[string]string // user id -> workspace id -> role id
	userOrgs       map[string]string            // user id -> organization id
	workspaceNames map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		perms:          make(map[string]rbac.Permission),
		roles:          make(map[string]rbac.Role),
		bindings:       make(map[string][]string),
		orgRoles:       make(map[string]string),
		memberships:    make(map[string]map[string]string),
		userOrgs:       make(map[string]string),
		workspaceNames: make(map[string]string),
	}
}

func (f *fakeStore) ListPermissions(_ context.Context, scope rbac.Scope, organizationID string) ([]rbac.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rbac.Permission
	for _, p := range f.perms {
		if p.Scope == scope && p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePermissions(_ context.Context, scope rbac.Scope, organizationID string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range names {
		id := string(scope) + "/" + organizationID + "/" + name
		f.perms[id] = rbac.Permission{ID: id, Name: name, Scope: scope, OrganizationID: organizationID}
	}
	return nil
}

func (f *fakeStore) GetPermissionsByID(_ context.Context, ids []string) ([]rbac.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rbac.Permission
	for _, id := range ids {
		if p, ok := f.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRoles(_ context.Context, scope rbac.Scope, ownerID string) ([]rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rbac.Role
	for _, r := range f.roles {
		if r.Scope == scope && r.OwnerID() == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRole(_ context.Context, roleID string) (*rbac.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.roles[roleID]
	if !ok {
		return nil, rbac.ErrRoleNotFound
	}
	return &r, nil
}

func (f *fakeStore) CreateRoles(_ context.Context, roles []rbac.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range roles {
		r := &roles[i]
		duplicate := false
		for _, existing := range f.roles {
			if existing.Name == r.Name && existing.Scope == r.Scope && existing.OwnerID() == r.OwnerID() {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		if r.ID == "" {
			r.ID = r.Name + "@" + r.OwnerID()
		}
		f.roles[r.ID] = *r
	}
	return nil
}

func (f *fakeStore) UpdateRole(_ context.Context, role *rbac.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.roles[role.ID]; !ok {
		return rbac.ErrRoleNotFound
	}
	f.roles[role.ID] = *role
	return nil
}

func (f *fakeStore) ListRoleBindings(_ context.Context, roleID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.bindings[roleID]...), nil
}

func (f *fakeStore) CreateBindings(_ context.Context, bindings []rbac.Binding) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bindings {
		f.bindings[b.RoleID] = append(f.bindings[b.RoleID], b.PermissionID)
	}
	return nil
}

func (f *fakeStore) DeleteBindings(_ context.Context, roleID string, permissionIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := make(map[string]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		drop[id] = struct{}{}
	}
	var kept []string
	for _, id := range f.bindings[roleID] {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	f.bindings[roleID] = kept
	return nil
}

func (f *fakeStore) GetUserAccess(_ context.Context, userID string) (*rbac.UserAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	access := &rbac.UserAccess{UserID: userID, OrganizationID: f.userOrgs[userID]}
	if roleID, ok := f.orgRoles[userID]; ok {
		access.OrgRolePermissions = f.permissionNamesLocked(roleID)
	}
	for wsID, roleID := range f.memberships[userID] {
		access.Memberships = append(access.Memberships, rbac.MembershipAccess{
			WorkspaceID:   wsID,
			WorkspaceName: f.workspaceNames[wsID],
			Permissions:   f.permissionNamesLocked(roleID),
		})
	}
	return access, nil
}

func (f *fakeStore) permissionNamesLocked(roleID string) []string {
	names := []string{}
	for _, permID := range f.bindings[roleID] {
		if p, ok := f.perms[permID]; ok {
			names = append(names, p.Name)
		}
	}
	return names
}

func (f *fakeStore) assignOrgRole(userID, organizationID, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userOrgs[userID] = organizationID
	if roleID != "" {
		f.orgRoles[userID] = roleID
	} else {
		delete(f.orgRoles, userID)
	}
}

func (f *fakeStore) assignMembership(userID, workspaceID, roleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.memberships[userID] == nil {
		f.memberships[userID] = make(map[string]string)
	}
	f.memberships[userID][workspaceID] = roleID
}

func (f *fakeStore) removeMembership(userID, workspaceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.memberships[userID], workspaceID)
}

func (f *fakeStore) defaultRole(scope rbac.Scope, ownerID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles {
		if r.Scope == scope && r.OwnerID() == ownerID && r.IsDefault {
			return r.ID, true
		}
	}
	return "", false
}

// fakeOrgService implements orgs.Service in memory on top of the fakeStore,
// seeding defaults exactly like the real service does.
type fakeOrgService struct {
	mu sync.Mutex

	store  *fakeStore
	seeder *rbac.Seeder

	organizations map[string]*orgs.Organization
	users         map[string]*orgs.User
	passwords     map[string]string
	seq           int
}

func newFakeOrgService(store *fakeStore, seeder *rbac.Seeder) *fakeOrgService {
	return &fakeOrgService{
		store:         store,
		seeder:        seeder,
		organizations: make(map[string]*orgs.Organization),
		users:         make(map[string]*orgs.User),
		passwords:     make(map[string]string),
	}
}

func (s *fakeOrgService) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeOrgService) CreateOrganization(ctx context.Context, name, description string) (*orgs.Organization, error) {
	s.mu.Lock()
	org := &orgs.Organization{ID: s.nextID("org"), Name: name, Description: description, CreatedAt: time.Now()}
	s.organizations[org.ID] = org
	s.mu.Unlock()

	if err := s.seeder.SeedOrganizationDefaults(ctx, org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *fakeOrgService) GetOrganization(_ context.Context, id string) (*orgs.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, orgs.ErrOrganizationNotFound
	}
	return org, nil
}

func (s *fakeOrgService) CreateUser(_ context.Context, user *orgs.User, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return orgs.ErrEmailTaken
		}
	}
	if user.ID == "" {
		user.ID = s.nextID("user")
	}
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	s.passwords[user.ID] = password
	s.store.assignOrgRole(user.ID, user.OrganizationID, user.OrganizationRoleID)
	return nil
}

func (s *fakeOrgService) Authenticate(_ context.Context, email, password string) (*orgs.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email == email {
			if s.passwords[id] != password {
				return nil, orgs.ErrInvalidCredentials
			}
			copied := *u
			return &copied, nil
		}
	}
	return nil, orgs.ErrInvalidCredentials
}

func (s *fakeOrgService) GetUserByID(_ context.Context, id string) (*orgs.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, orgs.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *fakeOrgService) UpdateLastLogin(_ context.Context, userID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return time.Time{}, orgs.ErrUserNotFound
	}
	u.LastLogin = time.Now()
	return u.LastLogin, nil
}

func (s *fakeOrgService) OnboardUser(ctx context.Context, organizationID, email, name, password, roleID string) (*orgs.User, error) {
	if roleID == "" {
		defaultID, ok := s.store.defaultRole(rbac.ScopeOrganization, organizationID)
		if !ok {
			return nil, rbac.ErrRoleNotFound
		}
		roleID = defaultID
	} else if err := s.validateOrgRole(ctx, organizationID, roleID); err != nil {
		return nil, err
	}

	user := &orgs.User{Email: email, Name: name, OrganizationID: organizationID, OrganizationRoleID: roleID}
	if err := s.CreateUser(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *fakeOrgService) RemoveUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return orgs.ErrUserNotFound
	}
	delete(s.users, userID)
	delete(s.passwords, userID)
	s.store.assignOrgRole(userID, "", "")
	return nil
}

func (s *fakeOrgService) ChangeUserRole(ctx context.Context, userID, roleID string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.validateOrgRole(ctx, user.OrganizationID, roleID); err != nil {
		return err
	}

	s.mu.Lock()
	s.users[userID].OrganizationRoleID = roleID
	s.mu.Unlock()
	s.store.assignOrgRole(userID, user.OrganizationID, roleID)
	return nil
}

func (s *fakeOrgService) validateOrgRole(ctx context.Context, organizationID, roleID string) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Scope != rbac.ScopeOrganization || role.OrganizationID != organizationID {
		return rbac.ErrScopeMismatch
	}
	return nil
}

func (s *fakeOrgService) ListMembers(_ context.Context, organizationID string) ([]orgs.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orgs.Member
	for _, u := range s.users {
		if u.OrganizationID != organizationID {
			continue
		}
		m := orgs.Member{UserID: u.ID, Email: u.Email, Name: u.Name, RoleID: u.OrganizationRoleID}
		if role, ok := s.store.roles[u.OrganizationRoleID]; ok {
			m.RoleName = role.Name
		}
		out = append(out, m)
	}
	return out, nil
}

// fakeWorkspaceService implements workspaces.Service in memory.
type fakeWorkspaceService struct {
	mu sync.Mutex

	store  *fakeStore
	seeder *rbac.Seeder
	orgSvc *fakeOrgService

	byID     map[string]*workspaces.Workspace
	projects map[string]*workspaces.Project
	tasks    map[string]*workspaces.Task
	seq      int
}

func newFakeWorkspaceService(store *fakeStore, seeder *rbac.Seeder, orgSvc *fakeOrgService) *fakeWorkspaceService {
	return &fakeWorkspaceService{
		store:    store,
		seeder:   seeder,
		orgSvc:   orgSvc,
		byID:     make(map[string]*workspaces.Workspace),
		projects: make(map[string]*workspaces.Project),
		tasks:    make(map[string]*workspaces.Task),
	}
}

func (s *fakeWorkspaceService) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeWorkspaceService) CreateWorkspace(ctx context.Context, organizationID, name, description, creatorUserID string) (*workspaces.Workspace, error) {
	s.mu.Lock()
	ws := &workspaces.Workspace{
		ID:             s.nextID("ws"),
		OrganizationID: organizationID,
		Name:           name,
		Description:    description,
		CreatedAt:      time.Now(),
	}
	s.byID[ws.ID] = ws
	s.mu.Unlock()

	s.store.mu.Lock()
	s.store.workspaceNames[ws.ID] = name
	s.store.mu.Unlock()

	if err := s.seeder.SeedWorkspaceDefaults(ctx, ws.ID, organizationID); err != nil {
		return nil, err
	}

	roles, err := s.store.ListRoles(ctx, rbac.ScopeWorkspace, ws.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.Name == rbac.RoleOwner {
			s.store.assignMembership(creatorUserID, ws.ID, r.ID)
			break
		}
	}
	return ws, nil
}

func (s *fakeWorkspaceService) GetWorkspace(_ context.Context, id string) (*workspaces.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.byID[id]
	if !ok {
		return nil, workspaces.ErrWorkspaceNotFound
	}
	return ws, nil
}

func (s *fakeWorkspaceService) ListWorkspaces(_ context.Context, organizationID string) ([]*workspaces.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*workspaces.Workspace
	for _, ws := range s.byID {
		if ws.OrganizationID == organizationID {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (s *fakeWorkspaceService) DeleteWorkspace(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return workspaces.ErrWorkspaceNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *fakeWorkspaceService) AddMember(ctx context.Context, workspaceID, userID, roleID string) (*workspaces.Member, error) {
	ws, err := s.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	user, err := s.orgSvc.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.OrganizationID != ws.OrganizationID {
		return nil, workspaces.ErrNotSameOrganization
	}

	if roleID == "" {
		defaultID, ok := s.store.defaultRole(rbac.ScopeWorkspace, workspaceID)
		if !ok {
			return nil, rbac.ErrRoleNotFound
		}
		roleID = defaultID
	} else {
		role, err := s.store.GetRole(ctx, roleID)
		if err != nil {
			return nil, err
		}
		if role.Scope != rbac.ScopeWorkspace || role.WorkspaceID != workspaceID {
			return nil, rbac.ErrScopeMismatch
		}
	}

	s.store.mu.Lock()
	_, already := s.store.memberships[userID][workspaceID]
	s.store.mu.Unlock()
	if already {
		return nil, workspaces.ErrAlreadyMember
	}

	s.store.assignMembership(userID, workspaceID, roleID)
	return &workspaces.Member{UserID: userID, WorkspaceID: workspaceID, RoleID: roleID, JoinedAt: time.Now()}, nil
}

func (s *fakeWorkspaceService) RemoveMember(_ context.Context, workspaceID, userID string) error {
	s.store.removeMembership(userID, workspaceID)
	return nil
}

func (s *fakeWorkspaceService) ChangeMemberRole(ctx context.Context, workspaceID, userID, roleID string) error {
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Scope != rbac.ScopeWorkspace || role.WorkspaceID != workspaceID {
		return rbac.ErrScopeMismatch
	}
	s.store.assignMembership(userID, workspaceID, roleID)
	return nil
}

func (s *fakeWorkspaceService) ListMembers(_ context.Context, workspaceID string) ([]workspaces.Member, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	var out []workspaces.Member
	for userID, wsRoles := range s.store.memberships {
		if roleID, ok := wsRoles[workspaceID]; ok {
			out = append(out, workspaces.Member{UserID: userID, WorkspaceID: workspaceID, RoleID: roleID})
		}
	}
	return out, nil
}

func (s *fakeWorkspaceService) CreateProject(_ context.Context, workspaceID, name, description, createdBy string) (*workspaces.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &workspaces.Project{
		ID:          s.nextID("proj"),
		WorkspaceID: workspaceID,
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now(),
	}
	s.projects[p.ID] = p
	return p, nil
}

func (s *fakeWorkspaceService) ListProjects(_ context.Context, workspaceID string) ([]*workspaces.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*workspaces.Project
	for _, p := range s.projects {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeWorkspaceService) DeleteProject(_ context.Context, workspaceID, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.WorkspaceID != workspaceID {
		return workspaces.ErrProjectNotFound
	}
	delete(s.projects, projectID)
	return nil
}

func (s *fakeWorkspaceService) CreateTask(_ context.Context, task *workspaces.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[task.ProjectID]
	if !ok || p.WorkspaceID != task.WorkspaceID {
		return workspaces.ErrProjectNotFound
	}
	if task.ID == "" {
		task.ID = s.nextID("task")
	}
	if task.Status == "" {
		task.Status = workspaces.TaskStatusTodo
	}
	task.CreatedAt = time.Now()
	s.tasks[task.ID] = task
	return nil
}

func (s *fakeWorkspaceService) ListTasks(_ context.Context, workspaceID, projectID string) ([]*workspaces.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*workspaces.Task
	for _, task := range s.tasks {
		if task.ProjectID == projectID && task.WorkspaceID == workspaceID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (s *fakeWorkspaceService) UpdateTaskStatus(_ context.Context, workspaceID, taskID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok || task.WorkspaceID != workspaceID {
		return workspaces.ErrTaskNotFound
	}
	switch status {
	case workspaces.TaskStatusTodo, workspaces.TaskStatusInProgress, workspaces.TaskStatusDone:
		task.Status = status
		return nil
	default:
		return fmt.Errorf("invalid task status %q", status)
	}
}

func (s *fakeWorkspaceService) DeleteTask(_ context.Context, workspaceID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok || task.WorkspaceID != workspaceID {
		return workspaces.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

// fakeAuditLister records nothing and lists a fixed set of entries.
type fakeAuditLister struct {
	entries   []audit.Entry
	lastLimit int
}

func (f *fakeAuditLister) List(_ context.Context, workspaceID string, limit int) ([]audit.Entry, error) {
	f.lastLimit = limit
	var out []audit.Entry
	for _, e := range f.entries {
		if e.WorkspaceID == workspaceID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
