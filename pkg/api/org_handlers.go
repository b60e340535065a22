package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamplane/teamplane/pkg/httputil"
	"github.com/teamplane/teamplane/pkg/middleware"
	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/orgs"
	"github.com/teamplane/teamplane/pkg/rbac"
)

// OrgHandlers handles organization-related HTTP requests. Every route is
// scoped to the caller's own organization, taken from the access claims.
type OrgHandlers struct {
	orgs   orgs.Service
	store  rbac.Store
	logger *observability.Logger
}

// NewOrgHandlers creates a new OrgHandlers.
func NewOrgHandlers(orgService orgs.Service, store rbac.Store, logger *observability.Logger) *OrgHandlers {
	return &OrgHandlers{orgs: orgService, store: store, logger: logger}
}

// RegisterRoutes registers organization routes on a credentialed router.
func (h *OrgHandlers) RegisterRoutes(router *mux.Router, pm *middleware.PermissionMiddleware) {
	router.Handle("/org",
		pm.RequireOrgPermission(rbac.PermOrgView)(http.HandlerFunc(h.GetOrganization))).Methods("GET")

	router.Handle("/org/members",
		pm.RequireOrgPermission(rbac.PermOrgView)(http.HandlerFunc(h.ListMembers))).Methods("GET")
	router.Handle("/org/members",
		pm.RequireOrgPermission(rbac.PermOrgOnboardUser)(http.HandlerFunc(h.OnboardMember))).Methods("POST")
	router.Handle("/org/members/{userID}",
		pm.RequireOrgPermission(rbac.PermOrgRemoveUser)(http.HandlerFunc(h.RemoveMember))).Methods("DELETE")
	router.Handle("/org/members/{userID}/role",
		pm.RequireOrgPermission(rbac.PermOrgChangeUserRole)(http.HandlerFunc(h.ChangeMemberRole))).Methods("PUT")
}

// GetOrganization returns the caller's organization.
func (h *OrgHandlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	org, err := h.orgs.GetOrganization(r.Context(), session.OrganizationID)
	if err == orgs.ErrOrganizationNotFound {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, org)
}

// ListMembers lists the organization's users with their roles.
func (h *OrgHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	members, err := h.orgs.ListMembers(r.Context(), session.OrganizationID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if members == nil {
		members = []orgs.Member{}
	}

	httputil.WriteSuccess(w, members)
}

type onboardRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	RoleID   string `json:"roleId,omitempty"`
}

// OnboardMember creates a user inside the caller's organization. An omitted
// roleId assigns the invite-default role.
func (h *OrgHandlers) OnboardMember(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	var req onboardRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	user, err := h.orgs.OnboardUser(r.Context(), session.OrganizationID, req.Email, req.Name, req.Password, req.RoleID)
	if err != nil {
		writeMemberError(w, err)
		return
	}

	httputil.WriteCreated(w, user)
}

// RemoveMember deletes a user from the caller's organization.
func (h *OrgHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	userID, ok := httputil.PathVar(w, r, "userID")
	if !ok {
		return
	}

	// Only users of the caller's own organization can be removed.
	user, err := h.orgs.GetUserByID(r.Context(), userID)
	if err == orgs.ErrUserNotFound || (err == nil && user.OrganizationID != session.OrganizationID) {
		httputil.WriteNotFoundError(w, orgs.ErrUserNotFound.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if err := h.orgs.RemoveUser(r.Context(), userID); err != nil {
		writeMemberError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

type changeRoleRequest struct {
	RoleID string `json:"roleId"`
}

// ChangeMemberRole reassigns a member's organization role.
func (h *OrgHandlers) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	userID, ok := httputil.PathVar(w, r, "userID")
	if !ok {
		return
	}

	var req changeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.RoleID == "" {
		httputil.WriteBadRequest(w, "roleId is required")
		return
	}

	user, err := h.orgs.GetUserByID(r.Context(), userID)
	if err == orgs.ErrUserNotFound || (err == nil && user.OrganizationID != session.OrganizationID) {
		httputil.WriteNotFoundError(w, orgs.ErrUserNotFound.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if err := h.orgs.ChangeUserRole(r.Context(), userID, req.RoleID); err != nil {
		writeMemberError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}
