package rbac

import (
	"context"
	"fmt"

	"github.com/teamplane/teamplane/pkg/observability"
)

// Seeder materializes the default role sets and permission catalogs for
// newly created organizations and workspaces.
//
// Seeding is not transactional; it is instead a set-reconciliation that is
// safe to re-run: each step computes the desired end state, diffs it against
// what exists, and inserts only the missing rows with skip-duplicate
// semantics. A crash between steps leaves a partial seed that the next
// invocation converges to completion, and concurrent seeding of the same
// scope resolves through the store's conflict-skipping inserts.
type Seeder struct {
	store   Store
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewSeeder creates a Seeder on top of the given store.
func NewSeeder(store Store, logger *observability.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

// NewSeederWithMetrics creates a Seeder that counts seed runs per scope and
// outcome. A nil metrics is allowed and disables counting.
func NewSeederWithMetrics(store Store, logger *observability.Logger, metrics *observability.Metrics) *Seeder {
	return &Seeder{store: store, logger: logger, metrics: metrics}
}

func (s *Seeder) countRun(scope Scope, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.metrics.SeedRunsTotal.WithLabelValues(string(scope), outcome).Inc()
}

// SeedOrganizationDefaults creates the organization-scope permission catalog
// copy, the four default roles, and their permission bindings for one
// organization. Idempotent; re-running heals a partial seed.
func (s *Seeder) SeedOrganizationDefaults(ctx context.Context, organizationID string) error {
	names := make([]string, 0, len(OrgCatalog()))
	for _, p := range OrgCatalog() {
		names = append(names, string(p))
	}

	grants := make(map[string][]string, len(DefaultOrgRoleGrants()))
	for role, perms := range DefaultOrgRoleGrants() {
		grantNames := make([]string, 0, len(perms))
		for _, p := range perms {
			grantNames = append(grantNames, string(p))
		}
		grants[role] = grantNames
	}

	err := s.seedScope(ctx, ScopeOrganization, organizationID, organizationID, names, DefaultOrgRoles(), grants)
	s.countRun(ScopeOrganization, err)
	if err != nil {
		return fmt.Errorf("failed to seed organization defaults: %w", err)
	}

	s.logger.WithField("organization_id", organizationID).Info("seeded organization default roles")
	return nil
}

// SeedWorkspaceDefaults creates the four default workspace roles for one
// workspace and, on first use within the organization, the shared
// workspace-scope permission catalog copy. Idempotent.
func (s *Seeder) SeedWorkspaceDefaults(ctx context.Context, workspaceID, organizationID string) error {
	names := make([]string, 0, len(WorkspaceCatalog()))
	for _, p := range WorkspaceCatalog() {
		names = append(names, string(p))
	}

	grants := make(map[string][]string, len(DefaultWorkspaceRoleGrants()))
	for role, perms := range DefaultWorkspaceRoleGrants() {
		grantNames := make([]string, 0, len(perms))
		for _, p := range perms {
			grantNames = append(grantNames, string(p))
		}
		grants[role] = grantNames
	}

	err := s.seedScope(ctx, ScopeWorkspace, workspaceID, organizationID, names, DefaultWorkspaceRoles(), grants)
	s.countRun(ScopeWorkspace, err)
	if err != nil {
		return fmt.Errorf("failed to seed workspace defaults: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"workspace_id":    workspaceID,
		"organization_id": organizationID,
	}).Info("seeded workspace default roles")
	return nil
}

// seedScope reconciles one scope instance toward the desired permission
// catalog, role set, and role-permission bindings.
func (s *Seeder) seedScope(ctx context.Context, scope Scope, ownerID, organizationID string,
	catalog []string, roleSeeds []RoleSeed, grants map[string][]string) error {

	// Step 1: permissions. Insert only catalog names missing from this
	// organization's copy.
	existing, err := s.store.ListPermissions(ctx, scope, organizationID)
	if err != nil {
		return err
	}
	have := make(map[string]string, len(existing)) // name -> id
	for _, p := range existing {
		have[p.Name] = p.ID
	}

	var missing []string
	for _, name := range catalog {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		if err := s.store.CreatePermissions(ctx, scope, organizationID, missing); err != nil {
			return err
		}
		// Re-read to pick up ids, including rows a concurrent seeder won.
		existing, err = s.store.ListPermissions(ctx, scope, organizationID)
		if err != nil {
			return err
		}
		for _, p := range existing {
			have[p.Name] = p.ID
		}
	}

	// Step 2: roles. Same reconciliation keyed by name within the owner.
	existingRoles, err := s.store.ListRoles(ctx, scope, ownerID)
	if err != nil {
		return err
	}
	roleIDs := make(map[string]string, len(existingRoles))
	for _, r := range existingRoles {
		roleIDs[r.Name] = r.ID
	}

	var newRoles []Role
	for _, seed := range roleSeeds {
		if _, ok := roleIDs[seed.Name]; ok {
			continue
		}
		role := Role{
			Name:           seed.Name,
			Description:    seed.Description,
			Scope:          scope,
			IsDefault:      seed.IsDefault,
			IsSeeded:       true,
			OrganizationID: organizationID,
		}
		if scope == ScopeWorkspace {
			role.WorkspaceID = ownerID
		}
		newRoles = append(newRoles, role)
	}
	if len(newRoles) > 0 {
		if err := s.store.CreateRoles(ctx, newRoles); err != nil {
			return err
		}
		existingRoles, err = s.store.ListRoles(ctx, scope, ownerID)
		if err != nil {
			return err
		}
		for _, r := range existingRoles {
			roleIDs[r.Name] = r.ID
		}
	}

	// Step 3: bindings. For each default role, diff desired permission ids
	// against current bindings and insert the difference.
	for roleName, permNames := range grants {
		roleID, ok := roleIDs[roleName]
		if !ok {
			return fmt.Errorf("seeded role %q missing after creation", roleName)
		}

		bound, err := s.store.ListRoleBindings(ctx, roleID)
		if err != nil {
			return err
		}
		boundSet := make(map[string]struct{}, len(bound))
		for _, id := range bound {
			boundSet[id] = struct{}{}
		}

		var bindings []Binding
		for _, name := range permNames {
			permID, ok := have[name]
			if !ok {
				return fmt.Errorf("permission %q missing from catalog for scope %s", name, scope)
			}
			if _, ok := boundSet[permID]; ok {
				continue
			}
			bindings = append(bindings, Binding{RoleID: roleID, PermissionID: permID})
		}
		if len(bindings) > 0 {
			if err := s.store.CreateBindings(ctx, bindings); err != nil {
				return err
			}
		}
	}

	return nil
}
