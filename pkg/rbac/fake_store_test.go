package rbac

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store double used by the seeder, resolver, and
// manager tests. It mirrors the skip-duplicate insert semantics of the
// PostgreSQL implementation.
type fakeStore struct {
	mu sync.Mutex

	perms    map[string]Permission          // id -> permission
	roles    map[string]Role                // id -> role
	bindings map[string]map[string]struct{} // role id -> permission ids

	orgOf       map[string]string // user id -> organization id
	orgRoleOf   map[string]string // user id -> organization role id
	memberships []fakeMembership
}

type fakeMembership struct {
	userID        string
	workspaceID   string
	workspaceName string
	roleID        string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		perms:     make(map[string]Permission),
		roles:     make(map[string]Role),
		bindings:  make(map[string]map[string]struct{}),
		orgOf:     make(map[string]string),
		orgRoleOf: make(map[string]string),
	}
}

func (f *fakeStore) ListPermissions(_ context.Context, scope Scope, organizationID string) ([]Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Permission
	for _, p := range f.perms {
		if p.Scope == scope && p.OrganizationID == organizationID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) CreatePermissions(_ context.Context, scope Scope, organizationID string, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, name := range names {
		exists := false
		for _, p := range f.perms {
			if p.Name == name && p.Scope == scope && p.OrganizationID == organizationID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		id := uuid.NewString()
		f.perms[id] = Permission{ID: id, Name: name, Scope: scope, OrganizationID: organizationID, CreatedAt: time.Now()}
	}
	return nil
}

func (f *fakeStore) GetPermissionsByID(_ context.Context, ids []string) ([]Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Permission
	for _, id := range ids {
		if p, ok := f.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ListRoles(_ context.Context, scope Scope, ownerID string) ([]Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Role
	for _, r := range f.roles {
		if r.Scope != scope {
			continue
		}
		if r.OwnerID() == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) GetRole(_ context.Context, roleID string) (*Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.roles[roleID]
	if !ok {
		return nil, ErrRoleNotFound
	}
	copied := r
	return &copied, nil
}

func (f *fakeStore) CreateRoles(_ context.Context, roles []Role) error {
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
			r.ID = uuid.NewString()
		}
		now := time.Now()
		r.CreatedAt = now
		r.UpdatedAt = now
		f.roles[r.ID] = *r
	}
	return nil
}

func (f *fakeStore) UpdateRole(_ context.Context, role *Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.roles[role.ID]; !ok {
		return ErrRoleNotFound
	}
	role.UpdatedAt = time.Now()
	f.roles[role.ID] = *role
	return nil
}

func (f *fakeStore) ListRoleBindings(_ context.Context, roleID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for id := range f.bindings[roleID] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeStore) CreateBindings(_ context.Context, bindings []Binding) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range bindings {
		if f.bindings[b.RoleID] == nil {
			f.bindings[b.RoleID] = make(map[string]struct{})
		}
		f.bindings[b.RoleID][b.PermissionID] = struct{}{}
	}
	return nil
}

func (f *fakeStore) DeleteBindings(_ context.Context, roleID string, permissionIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range permissionIDs {
		delete(f.bindings[roleID], id)
	}
	return nil
}

func (f *fakeStore) GetUserAccess(_ context.Context, userID string) (*UserAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	access := &UserAccess{UserID: userID, OrganizationID: f.orgOf[userID]}

	if roleID, ok := f.orgRoleOf[userID]; ok {
		access.OrgRolePermissions = f.permissionNamesLocked(roleID)
	}

	for _, m := range f.memberships {
		if m.userID != userID {
			continue
		}
		access.Memberships = append(access.Memberships, MembershipAccess{
			WorkspaceID:   m.workspaceID,
			WorkspaceName: m.workspaceName,
			Permissions:   f.permissionNamesLocked(m.roleID),
		})
	}

	return access, nil
}

func (f *fakeStore) permissionNamesLocked(roleID string) []string {
	var names []string
	for permID := range f.bindings[roleID] {
		if p, ok := f.perms[permID]; ok {
			names = append(names, p.Name)
		}
	}
	return names
}

// roleByName finds a role by name within one scope instance; fails the
// calling test through the returned error when absent.
func (f *fakeStore) roleByName(scope Scope, ownerID, name string) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.roles {
		if r.Scope == scope && r.OwnerID() == ownerID && r.Name == name {
			return r, nil
		}
	}
	return Role{}, fmt.Errorf("role %q not found in %s %s", name, scope, ownerID)
}

// permissionIDByName resolves a permission name within one organization's
// catalog copy.
func (f *fakeStore) permissionIDByName(scope Scope, organizationID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.perms {
		if p.Scope == scope && p.OrganizationID == organizationID && p.Name == name {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("permission %q not found in %s catalog of %s", name, scope, organizationID)
}
