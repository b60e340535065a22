package api

import (
	"net/http"
	"time"

	"github.com/teamplane/teamplane/pkg/auth"
	"github.com/teamplane/teamplane/pkg/httputil"
	"github.com/teamplane/teamplane/pkg/middleware"
	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/orgs"
	"github.com/teamplane/teamplane/pkg/rbac"
)

// AuthHandlers handles signup, login, credential refresh, and logout.
type AuthHandlers struct {
	orgs     orgs.Service
	store    rbac.Store
	resolver *rbac.Resolver
	tokens   *auth.TokenProvider
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewAuthHandlers creates a new AuthHandlers.
func NewAuthHandlers(orgService orgs.Service, store rbac.Store, resolver *rbac.Resolver,
	tokens *auth.TokenProvider, metrics *observability.Metrics, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{
		orgs:     orgService,
		store:    store,
		resolver: resolver,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}
}

type registerRequest struct {
	OrganizationName string `json:"organizationName"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Password         string `json:"password"`
}

type sessionResponse struct {
	User                 *orgs.User            `json:"user"`
	Organization         *orgs.Organization    `json:"organization,omitempty"`
	OrgPermissions       []string              `json:"orgPermissions"`
	WorkspacePermissions []rbac.WorkspaceGrant `json:"workspacePermissions"`
}

// Register creates an organization together with its first user, who gets
// the Owner role, then opens a session.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.OrganizationName == "" || req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "organizationName, email, and password are required")
		return
	}

	org, err := h.orgs.CreateOrganization(r.Context(), req.OrganizationName, "")
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	ownerRole, err := h.orgRoleByName(r, org.ID, rbac.RoleOwner)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	user := &orgs.User{
		Email:              req.Email,
		Name:               req.Name,
		OrganizationID:     org.ID,
		OrganizationRoleID: ownerRole,
	}
	if err := h.orgs.CreateUser(r.Context(), user, req.Password); err != nil {
		if err == orgs.ErrEmailTaken {
			httputil.WriteConflict(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	snapshot, err := h.openSession(w, r, user)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"user_id":         user.ID,
		"organization_id": org.ID,
	}).Info("registered organization owner")

	httputil.WriteCreated(w, sessionResponse{
		User:                 user,
		Organization:         org,
		OrgPermissions:       snapshot.OrgPermissions,
		WorkspacePermissions: snapshot.WorkspacePermissions,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials, stamps last login, resolves a fresh permission
// snapshot, and sets both session cookies.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.orgs.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.countLogin("failure")
		httputil.WriteUnauthorized(w, orgs.ErrInvalidCredentials.Error())
		return
	}

	if lastLogin, err := h.orgs.UpdateLastLogin(r.Context(), user.ID); err == nil {
		user.LastLogin = lastLogin
	}

	snapshot, err := h.openSession(w, r, user)
	if err != nil {
		h.countLogin("error")
		httputil.WriteInternalError(w, err)
		return
	}

	h.countLogin("success")
	httputil.WriteSuccess(w, sessionResponse{
		User:                 user,
		OrgPermissions:       snapshot.OrgPermissions,
		WorkspacePermissions: snapshot.WorkspacePermissions,
	})
}

// Refresh validates the refresh credential and reissues both credentials
// with a freshly resolved snapshot. This is the moment role edits become
// visible to an existing session.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshCookieName)
	if err != nil {
		h.countRefresh("missing")
		httputil.WriteUnauthorized(w, "refresh credential required")
		return
	}

	claims, err := h.tokens.ParseRefresh(cookie.Value)
	if err != nil {
		h.countRefresh("invalid")
		httputil.WriteForbidden(w, "invalid refresh credential")
		return
	}

	user, err := h.orgs.GetUserByID(r.Context(), claims.Subject)
	if err != nil {
		h.countRefresh("invalid")
		httputil.WriteForbidden(w, "unknown user")
		return
	}

	snapshot, err := h.openSession(w, r, user)
	if err != nil {
		h.countRefresh("error")
		httputil.WriteInternalError(w, err)
		return
	}

	h.countRefresh("success")
	httputil.WriteSuccess(w, sessionResponse{
		User:                 user,
		OrgPermissions:       snapshot.OrgPermissions,
		WorkspacePermissions: snapshot.WorkspacePermissions,
	})
}

// Logout clears both session cookies. There is no server-side revocation;
// outstanding credentials age out on their own.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookies(w)
	httputil.WriteNoContent(w)
}

// Me returns the caller's identity and the snapshot embedded in their
// access credential, without touching the store.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	if session == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"user":                 session.Identity(),
		"orgPermissions":       session.OrgPermissions,
		"workspacePermissions": session.WorkspacePermissions,
	})
}

// openSession resolves the user's effective permissions, issues both
// credentials, and writes the session cookies.
func (h *AuthHandlers) openSession(w http.ResponseWriter, r *http.Request, user *orgs.User) (*rbac.Snapshot, error) {
	snapshot, err := h.resolver.ResolveEffectivePermissions(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}

	identity := auth.Identity{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		OrganizationID: user.OrganizationID,
	}
	if !user.LastLogin.IsZero() {
		identity.LastLogin = user.LastLogin.UTC().Format(time.RFC3339)
	}

	accessToken, err := h.tokens.IssueAccess(identity, snapshot)
	if err != nil {
		return nil, err
	}
	refreshToken, err := h.tokens.IssueRefresh(identity)
	if err != nil {
		return nil, err
	}

	auth.SetAccessCookie(w, accessToken, h.tokens.AccessTTL())
	auth.SetRefreshCookie(w, refreshToken, h.tokens.RefreshTTL())
	return snapshot, nil
}

func (h *AuthHandlers) orgRoleByName(r *http.Request, organizationID, name string) (string, error) {
	roles, err := h.store.ListRoles(r.Context(), rbac.ScopeOrganization, organizationID)
	if err != nil {
		return "", err
	}
	for _, role := range roles {
		if role.Name == name {
			return role.ID, nil
		}
	}
	return "", rbac.ErrRoleNotFound
}

func (h *AuthHandlers) countLogin(outcome string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *AuthHandlers) countRefresh(outcome string) {
	if h.metrics != nil {
		h.metrics.TokenRefreshesTotal.WithLabelValues(outcome).Inc()
	}
}
