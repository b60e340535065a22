// Package rbac implements the permission-resolution and authorization core
// for the multi-tenant project-management backend.
//
// Two independent permission scopes exist: organization and workspace. Each
// organization owns one copy of each catalog; workspace roles are owned by a
// single workspace while workspace permissions are shared across all
// workspaces of an organization.
//
// The package provides:
//
//   - the closed permission catalogs and the default role-to-permission maps
//   - a Store interface (with a PostgreSQL implementation) owning roles,
//     permissions, and role-permission bindings
//   - the Seeder, which materializes the default Owner/Admin/Member/Viewer
//     role sets for a newly created organization or workspace
//   - the Resolver, which projects a user's memberships into an effective
//     permission Snapshot
//   - the Snapshot authorization gate, consulted by every protected operation
//   - the Manager for custom roles with arbitrary permission subsets
//
// Snapshots travel inside access credentials and are never refreshed in
// place; role or binding edits become visible at the next login or token
// refresh.
package rbac
