package middleware

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/rbac"
)

// PermissionMiddleware gates protected routes on the permission snapshot
// embedded in the caller's access credential. It never consults the role
// store; a stale snapshot stays authoritative until the holder refreshes.
type PermissionMiddleware struct {
	metrics *observability.Metrics
}

// NewPermissionMiddleware creates a permission middleware. metrics may be
// nil.
func NewPermissionMiddleware(metrics *observability.Metrics) *PermissionMiddleware {
	return &PermissionMiddleware{metrics: metrics}
}

// RequireOrgPermission denies the request unless the snapshot grants the
// organization-scope permission.
func (pm *PermissionMiddleware) RequireOrgPermission(perm rbac.OrgPermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r)
			if session == nil {
				unauthenticatedResponse(w)
				return
			}

			allowed := session.Snapshot().HasOrgPermission(perm)
			pm.record(string(rbac.ScopeOrganization), allowed)
			if !allowed {
				forbiddenResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireWorkspacePermission denies the request unless the snapshot grants
// the workspace-scope permission within the workspace named by the
// {workspaceID} route variable. A workspace the caller is not a member of
// denies like any other missing permission.
func (pm *PermissionMiddleware) RequireWorkspacePermission(perm rbac.WorkspacePermission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r)
			if session == nil {
				unauthenticatedResponse(w)
				return
			}

			workspaceID := mux.Vars(r)["workspaceID"]
			allowed := session.Snapshot().HasWorkspacePermission(perm, workspaceID)
			pm.record(string(rbac.ScopeWorkspace), allowed)
			if !allowed {
				forbiddenResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireWorkspaceMembership denies the request unless the snapshot carries
// any grant entry for the workspace, regardless of which permissions it
// holds there. Listing members and roles only needs membership.
func (pm *PermissionMiddleware) RequireWorkspaceMembership() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r)
			if session == nil {
				unauthenticatedResponse(w)
				return
			}

			workspaceID := mux.Vars(r)["workspaceID"]
			allowed := workspaceID != "" && session.Snapshot().WorkspaceGrantFor(workspaceID) != nil
			pm.record(string(rbac.ScopeWorkspace), allowed)
			if !allowed {
				forbiddenResponse(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (pm *PermissionMiddleware) record(scope string, allowed bool) {
	if pm.metrics == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	pm.metrics.AuthzDecisionsTotal.WithLabelValues(scope, outcome).Inc()
}

func forbiddenResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(`{"error":"insufficient permissions"}`))
}
