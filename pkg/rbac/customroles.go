package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/teamplane/teamplane/pkg/audit"
	"github.com/teamplane/teamplane/pkg/observability"
)

// CustomRoleInput carries the caller-supplied fields of a custom role. The
// permission id set is authoritative: after create or update the role's
// bindings equal exactly this set.
type CustomRoleInput struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

// Manager creates and edits custom roles with arbitrary subsets of a scope's
// permission catalog. Authorization (the custom-role create/edit permission
// in the target scope) is enforced by the caller through the gate before any
// Manager method runs.
type Manager struct {
	store  Store
	audit  audit.Logger
	logger *observability.Logger
}

// NewManager creates a custom role Manager.
func NewManager(store Store, auditLogger audit.Logger, logger *observability.Logger) *Manager {
	return &Manager{store: store, audit: auditLogger, logger: logger}
}

// CreateCustomRole inserts a role owned by one scope instance and binds it to
// the provided permission ids. Every permission id must belong to the same
// scope and organization as the role; a cross-scope id rejects the whole
// operation with ErrScopeMismatch. Role names are unique per scope instance;
// a taken name rejects with ErrRoleExists.
//
// ownerID is the workspace id for ScopeWorkspace and the organization id
// otherwise.
func (m *Manager) CreateCustomRole(ctx context.Context, scope Scope, ownerID, organizationID string, in CustomRoleInput, actorID string) (*Role, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("unknown scope %q", scope)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("role name is required")
	}

	existing, err := m.store.ListRoles(ctx, scope, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	for _, r := range existing {
		if r.Name == in.Name {
			return nil, fmt.Errorf("%w: %s", ErrRoleExists, in.Name)
		}
	}

	if err := m.validatePermissionIDs(ctx, scope, organizationID, in.PermissionIDs); err != nil {
		return nil, err
	}

	role := Role{
		Name:           in.Name,
		Description:    in.Description,
		Scope:          scope,
		OrganizationID: organizationID,
	}
	if scope == ScopeWorkspace {
		role.WorkspaceID = ownerID
	}

	roles := []Role{role}
	if err := m.store.CreateRoles(ctx, roles); err != nil {
		return nil, fmt.Errorf("failed to create custom role: %w", err)
	}
	created := &roles[0]

	// CreateRoles skips rows that collide on name, so a concurrent create of
	// the same name may have won the race. A skipped row never persisted;
	// report the conflict instead of returning a role that does not exist.
	if _, err := m.store.GetRole(ctx, created.ID); err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRoleExists, in.Name)
		}
		return nil, fmt.Errorf("failed to verify custom role: %w", err)
	}

	bindings := make([]Binding, 0, len(in.PermissionIDs))
	for _, permID := range in.PermissionIDs {
		bindings = append(bindings, Binding{RoleID: created.ID, PermissionID: permID})
	}
	if err := m.store.CreateBindings(ctx, bindings); err != nil {
		return nil, fmt.Errorf("failed to bind permissions to custom role: %w", err)
	}

	m.recordAudit(ctx, created, "create", fmt.Sprintf("Custom role %q created with %d permissions.", created.Name, len(in.PermissionIDs)), actorID)

	return created, nil
}

// UpdateCustomRole renames, redescribes, and rebinds a custom role so its
// binding set equals exactly the provided permission ids. The reconciliation
// deletes bindings for removed ids and inserts bindings for added ids;
// unchanged bindings are untouched.
//
// Already-issued access credentials keep their embedded snapshot; the change
// becomes visible at the holder's next refresh or login.
func (m *Manager) UpdateCustomRole(ctx context.Context, roleID string, in CustomRoleInput, actorID string) (*Role, error) {
	role, err := m.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if role.IsSeeded {
		return nil, ErrSeededRole
	}

	if err := m.validatePermissionIDs(ctx, role.Scope, role.OrganizationID, in.PermissionIDs); err != nil {
		return nil, err
	}

	current, err := m.store.ListRoleBindings(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load current bindings: %w", err)
	}

	desired := make(map[string]struct{}, len(in.PermissionIDs))
	for _, id := range in.PermissionIDs {
		desired[id] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}

	var toDelete []string
	for _, id := range current {
		if _, ok := desired[id]; !ok {
			toDelete = append(toDelete, id)
		}
	}
	var toAdd []Binding
	for _, id := range in.PermissionIDs {
		if _, ok := have[id]; !ok {
			toAdd = append(toAdd, Binding{RoleID: roleID, PermissionID: id})
		}
	}

	if err := m.store.DeleteBindings(ctx, roleID, toDelete); err != nil {
		return nil, fmt.Errorf("failed to remove bindings: %w", err)
	}
	if err := m.store.CreateBindings(ctx, toAdd); err != nil {
		return nil, fmt.Errorf("failed to add bindings: %w", err)
	}

	if in.Name != "" {
		role.Name = in.Name
	}
	role.Description = in.Description
	if err := m.store.UpdateRole(ctx, role); err != nil {
		return nil, err
	}

	m.recordAudit(ctx, role, "update", fmt.Sprintf("Custom role %q updated: %d permissions added, %d removed.", role.Name, len(toAdd), len(toDelete)), actorID)

	return role, nil
}

// validatePermissionIDs checks that every id exists and belongs to the given
// scope and organization.
func (m *Manager) validatePermissionIDs(ctx context.Context, scope Scope, organizationID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	perms, err := m.store.GetPermissionsByID(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load permissions: %w", err)
	}

	found := make(map[string]Permission, len(perms))
	for _, p := range perms {
		found[p.ID] = p
	}

	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrPermissionNotFound, id)
		}
		if p.Scope != scope || p.OrganizationID != organizationID {
			return fmt.Errorf("%w: permission %s belongs to scope %s", ErrScopeMismatch, id, p.Scope)
		}
	}

	return nil
}

// recordAudit appends a role-change record. Audit failures never roll back
// the mutation.
func (m *Manager) recordAudit(ctx context.Context, role *Role, action, message, actorID string) {
	if err := m.audit.Record(ctx, audit.EntityRole, action, message, actorID, role.WorkspaceID); err != nil {
		m.logger.WithError(err).Warn("failed to record role audit entry")
	}
}
