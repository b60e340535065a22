package api

import (
	"errors"
	"net/http"

	"github.com/teamplane/teamplane/pkg/httputil"
	"github.com/teamplane/teamplane/pkg/orgs"
	"github.com/teamplane/teamplane/pkg/rbac"
	"github.com/teamplane/teamplane/pkg/workspaces"
)

// writeMemberError maps membership and role-assignment failures to HTTP
// statuses. Scope integrity violations are the caller's mistake, not a
// permission denial, so they map to 400 rather than 403.
func writeMemberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orgs.ErrEmailTaken), errors.Is(err, workspaces.ErrAlreadyMember):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, orgs.ErrUserNotFound),
		errors.Is(err, orgs.ErrOrganizationNotFound),
		errors.Is(err, workspaces.ErrWorkspaceNotFound),
		errors.Is(err, rbac.ErrRoleNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, rbac.ErrScopeMismatch),
		errors.Is(err, rbac.ErrPermissionNotFound),
		errors.Is(err, workspaces.ErrNotSameOrganization):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

// writeRoleError maps custom role failures to HTTP statuses.
func writeRoleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rbac.ErrRoleNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, rbac.ErrRoleExists):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, rbac.ErrSeededRole),
		errors.Is(err, rbac.ErrScopeMismatch),
		errors.Is(err, rbac.ErrPermissionNotFound):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
