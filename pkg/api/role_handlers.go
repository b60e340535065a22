package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamplane/teamplane/pkg/httputil"
	"github.com/teamplane/teamplane/pkg/middleware"
	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/rbac"
)

// RoleHandlers exposes the permission catalogs and custom role management
// for both scopes.
type RoleHandlers struct {
	roles  *rbac.Manager
	store  rbac.Store
	logger *observability.Logger
}

// NewRoleHandlers creates a new RoleHandlers.
func NewRoleHandlers(roles *rbac.Manager, store rbac.Store, logger *observability.Logger) *RoleHandlers {
	return &RoleHandlers{roles: roles, store: store, logger: logger}
}

// RegisterRoutes registers role routes on a credentialed router. Both
// permission catalogs are keyed by the caller's organization; workspace
// roles are owned per workspace.
func (h *RoleHandlers) RegisterRoutes(router *mux.Router, pm *middleware.PermissionMiddleware) {
	router.Handle("/org/permissions",
		pm.RequireOrgPermission(rbac.PermOrgView)(http.HandlerFunc(h.ListOrgPermissions))).Methods("GET")
	router.Handle("/org/roles",
		pm.RequireOrgPermission(rbac.PermOrgView)(http.HandlerFunc(h.ListOrgRoles))).Methods("GET")
	router.Handle("/org/roles",
		pm.RequireOrgPermission(rbac.PermOrgCustomRoleCreate)(http.HandlerFunc(h.CreateOrgRole))).Methods("POST")
	router.Handle("/org/roles/{roleID}",
		pm.RequireOrgPermission(rbac.PermOrgCustomRoleEdit)(http.HandlerFunc(h.UpdateOrgRole))).Methods("PUT")

	router.Handle("/workspaces/{workspaceID}/permissions",
		pm.RequireWorkspaceMembership()(http.HandlerFunc(h.ListWorkspacePermissions))).Methods("GET")
	router.Handle("/workspaces/{workspaceID}/roles",
		pm.RequireWorkspaceMembership()(http.HandlerFunc(h.ListWorkspaceRoles))).Methods("GET")
	router.Handle("/workspaces/{workspaceID}/roles",
		pm.RequireWorkspacePermission(rbac.PermCreateCustomWorkspaceRole)(http.HandlerFunc(h.CreateWorkspaceRole))).Methods("POST")
	router.Handle("/workspaces/{workspaceID}/roles/{roleID}",
		pm.RequireWorkspacePermission(rbac.PermEditCustomWorkspaceRole)(http.HandlerFunc(h.UpdateWorkspaceRole))).Methods("PUT")
}

// ListOrgPermissions returns the organization-scope permission catalog.
func (h *RoleHandlers) ListOrgPermissions(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	perms, err := h.store.ListPermissions(r.Context(), rbac.ScopeOrganization, session.OrganizationID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, perms)
}

// ListOrgRoles returns the organization's roles, seeded and custom.
func (h *RoleHandlers) ListOrgRoles(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	roles, err := h.store.ListRoles(r.Context(), rbac.ScopeOrganization, session.OrganizationID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, h.withBindings(r, roles))
}

// CreateOrgRole creates a custom organization-scope role.
func (h *RoleHandlers) CreateOrgRole(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	var in rbac.CustomRoleInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	role, err := h.roles.CreateCustomRole(r.Context(), rbac.ScopeOrganization, session.OrganizationID, session.OrganizationID, in, session.Subject)
	if err != nil {
		writeRoleError(w, err)
		return
	}

	httputil.WriteCreated(w, role)
}

// UpdateOrgRole renames a custom organization role and replaces its bindings.
func (h *RoleHandlers) UpdateOrgRole(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	roleID := mux.Vars(r)["roleID"]

	var in rbac.CustomRoleInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	role, err := h.getOwnedRole(r, roleID, rbac.ScopeOrganization, session.OrganizationID)
	if err != nil {
		writeRoleError(w, err)
		return
	}

	updated, err := h.roles.UpdateCustomRole(r.Context(), role.ID, in, session.Subject)
	if err != nil {
		writeRoleError(w, err)
		return
	}

	httputil.WriteSuccess(w, updated)
}

// ListWorkspacePermissions returns the workspace-scope catalog, which is
// shared by every workspace of the organization.
func (h *RoleHandlers) ListWorkspacePermissions(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	perms, err := h.store.ListPermissions(r.Context(), rbac.ScopeWorkspace, session.OrganizationID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, perms)
}

// ListWorkspaceRoles returns one workspace's roles.
func (h *RoleHandlers) ListWorkspaceRoles(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceID"]

	roles, err := h.store.ListRoles(r.Context(), rbac.ScopeWorkspace, workspaceID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, h.withBindings(r, roles))
}

// CreateWorkspaceRole creates a custom role owned by one workspace.
func (h *RoleHandlers) CreateWorkspaceRole(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	workspaceID := mux.Vars(r)["workspaceID"]

	var in rbac.CustomRoleInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	role, err := h.roles.CreateCustomRole(r.Context(), rbac.ScopeWorkspace, workspaceID, session.OrganizationID, in, session.Subject)
	if err != nil {
		writeRoleError(w, err)
		return
	}

	httputil.WriteCreated(w, role)
}

// UpdateWorkspaceRole renames a custom workspace role and replaces its
// bindings.
func (h *RoleHandlers) UpdateWorkspaceRole(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	vars := mux.Vars(r)

	var in rbac.CustomRoleInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	role, err := h.getOwnedRole(r, vars["roleID"], rbac.ScopeWorkspace, vars["workspaceID"])
	if err != nil {
		writeRoleError(w, err)
		return
	}

	updated, err := h.roles.UpdateCustomRole(r.Context(), role.ID, in, session.Subject)
	if err != nil {
		writeRoleError(w, err)
		return
	}

	httputil.WriteSuccess(w, updated)
}

// getOwnedRole loads a role and hides it behind ErrRoleNotFound when it is
// owned by a different scope instance than the route names.
func (h *RoleHandlers) getOwnedRole(r *http.Request, roleID string, scope rbac.Scope, ownerID string) (*rbac.Role, error) {
	role, err := h.store.GetRole(r.Context(), roleID)
	if err != nil {
		return nil, err
	}
	if role.Scope != scope || role.OwnerID() != ownerID {
		return nil, rbac.ErrRoleNotFound
	}
	return role, nil
}

type roleResponse struct {
	rbac.Role
	PermissionIDs []string `json:"permissionIds"`
}

func (h *RoleHandlers) withBindings(r *http.Request, roles []rbac.Role) []roleResponse {
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		ids, err := h.store.ListRoleBindings(r.Context(), role.ID)
		if err != nil {
			h.logger.WithError(err).Warn("failed to load role bindings")
			ids = []string{}
		}
		if ids == nil {
			ids = []string{}
		}
		out = append(out, roleResponse{Role: role, PermissionIDs: ids})
	}
	return out
}
