package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/teamplane/teamplane/pkg/httputil"
	"github.com/teamplane/teamplane/pkg/middleware"
	"github.com/teamplane/teamplane/pkg/observability"
	"github.com/teamplane/teamplane/pkg/rbac"
	"github.com/teamplane/teamplane/pkg/workspaces"
)

// WorkspaceHandlers handles workspace, project, and task HTTP requests.
type WorkspaceHandlers struct {
	workspaces workspaces.Service
	store      rbac.Store
	audit      AuditLister
	logger     *observability.Logger
}

// NewWorkspaceHandlers creates a new WorkspaceHandlers.
func NewWorkspaceHandlers(wsService workspaces.Service, store rbac.Store, auditLister AuditLister, logger *observability.Logger) *WorkspaceHandlers {
	return &WorkspaceHandlers{workspaces: wsService, store: store, audit: auditLister, logger: logger}
}

// RegisterRoutes registers workspace routes on a credentialed router.
// Workspace creation and deletion are organization-level concerns; work
// inside a workspace is gated by the caller's grant entry for it.
func (h *WorkspaceHandlers) RegisterRoutes(router *mux.Router, pm *middleware.PermissionMiddleware) {
	router.Handle("/workspaces",
		pm.RequireOrgPermission(rbac.PermOrgWorkspaceView)(http.HandlerFunc(h.ListWorkspaces))).Methods("GET")
	router.Handle("/workspaces",
		pm.RequireOrgPermission(rbac.PermOrgWorkspaceCreate)(http.HandlerFunc(h.CreateWorkspace))).Methods("POST")
	router.Handle("/workspaces/{workspaceID}",
		pm.RequireOrgPermission(rbac.PermOrgWorkspaceView)(http.HandlerFunc(h.GetWorkspace))).Methods("GET")
	router.Handle("/workspaces/{workspaceID}",
		pm.RequireOrgPermission(rbac.PermOrgWorkspaceDelete)(http.HandlerFunc(h.DeleteWorkspace))).Methods("DELETE")

	router.Handle("/workspaces/{workspaceID}/members",
		pm.RequireWorkspaceMembership()(http.HandlerFunc(h.ListMembers))).Methods("GET")
	router.Handle("/workspaces/{workspaceID}/members",
		pm.RequireWorkspacePermission(rbac.PermAddMember)(http.HandlerFunc(h.AddMember))).Methods("POST")
	router.Handle("/workspaces/{workspaceID}/members/{userID}",
		pm.RequireWorkspacePermission(rbac.PermRemoveMember)(http.HandlerFunc(h.RemoveMember))).Methods("DELETE")
	router.Handle("/workspaces/{workspaceID}/members/{userID}/role",
		pm.RequireWorkspacePermission(rbac.PermChangeMemberRole)(http.HandlerFunc(h.ChangeMemberRole))).Methods("PUT")

	router.Handle("/workspaces/{workspaceID}/projects",
		pm.RequireWorkspacePermission(rbac.PermViewProject)(http.HandlerFunc(h.ListProjects))).Methods("GET")
	router.Handle("/workspaces/{workspaceID}/projects",
		pm.RequireWorkspacePermission(rbac.PermCreateProject)(http.HandlerFunc(h.CreateProject))).Methods("POST")
	router.Handle("/workspaces/{workspaceID}/projects/{projectID}",
		pm.RequireWorkspacePermission(rbac.PermDeleteProject)(http.HandlerFunc(h.DeleteProject))).Methods("DELETE")

	router.Handle("/workspaces/{workspaceID}/projects/{projectID}/tasks",
		pm.RequireWorkspacePermission(rbac.PermViewTask)(http.HandlerFunc(h.ListTasks))).Methods("GET")
	router.Handle("/workspaces/{workspaceID}/projects/{projectID}/tasks",
		pm.RequireWorkspacePermission(rbac.PermCreateTask)(http.HandlerFunc(h.CreateTask))).Methods("POST")
	router.Handle("/workspaces/{workspaceID}/tasks/{taskID}/status",
		pm.RequireWorkspacePermission(rbac.PermEditTask)(http.HandlerFunc(h.UpdateTaskStatus))).Methods("PATCH")
	router.Handle("/workspaces/{workspaceID}/tasks/{taskID}",
		pm.RequireWorkspacePermission(rbac.PermDeleteTask)(http.HandlerFunc(h.DeleteTask))).Methods("DELETE")

	if h.audit != nil {
		router.Handle("/workspaces/{workspaceID}/audit",
			pm.RequireWorkspaceMembership()(http.HandlerFunc(h.ListAuditEntries))).Methods("GET")
	}
}

type createWorkspaceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateWorkspace creates a workspace in the caller's organization and
// enrolls the caller as its Owner.
func (h *WorkspaceHandlers) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	var req createWorkspaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	ws, err := h.workspaces.CreateWorkspace(r.Context(), session.OrganizationID, req.Name, req.Description, session.Subject)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, ws)
}

// ListWorkspaces lists the caller's organization's workspaces.
func (h *WorkspaceHandlers) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)

	list, err := h.workspaces.ListWorkspaces(r.Context(), session.OrganizationID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if list == nil {
		list = []*workspaces.Workspace{}
	}

	httputil.WriteSuccess(w, list)
}

// GetWorkspace returns one workspace of the caller's organization.
func (h *WorkspaceHandlers) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	workspaceID := mux.Vars(r)["workspaceID"]

	ws, err := h.workspaces.GetWorkspace(r.Context(), workspaceID)
	if err == workspaces.ErrWorkspaceNotFound || (err == nil && ws.OrganizationID != session.OrganizationID) {
		httputil.WriteNotFoundError(w, workspaces.ErrWorkspaceNotFound.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, ws)
}

// DeleteWorkspace removes a workspace.
func (h *WorkspaceHandlers) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	workspaceID := mux.Vars(r)["workspaceID"]

	ws, err := h.workspaces.GetWorkspace(r.Context(), workspaceID)
	if err == workspaces.ErrWorkspaceNotFound || (err == nil && ws.OrganizationID != session.OrganizationID) {
		httputil.WriteNotFoundError(w, workspaces.ErrWorkspaceNotFound.Error())
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if err := h.workspaces.DeleteWorkspace(r.Context(), workspaceID); err != nil {
		writeMemberError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ListMembers lists a workspace's members.
func (h *WorkspaceHandlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceID"]

	members, err := h.workspaces.ListMembers(r.Context(), workspaceID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if members == nil {
		members = []workspaces.Member{}
	}

	httputil.WriteSuccess(w, members)
}

type addMemberRequest struct {
	UserID string `json:"userId"`
	RoleID string `json:"roleId,omitempty"`
}

// AddMember adds an organization user to the workspace. An omitted roleId
// assigns the invite-default role.
func (h *WorkspaceHandlers) AddMember(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceID"]

	var req addMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "userId is required")
		return
	}

	member, err := h.workspaces.AddMember(r.Context(), workspaceID, req.UserID, req.RoleID)
	if err != nil {
		writeMemberError(w, err)
		return
	}

	httputil.WriteCreated(w, member)
}

// RemoveMember removes a user from the workspace.
func (h *WorkspaceHandlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.workspaces.RemoveMember(r.Context(), vars["workspaceID"], vars["userID"]); err != nil {
		writeMemberError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ChangeMemberRole reassigns a member's workspace role.
func (h *WorkspaceHandlers) ChangeMemberRole(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req changeRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.RoleID == "" {
		httputil.WriteBadRequest(w, "roleId is required")
		return
	}

	if err := h.workspaces.ChangeMemberRole(r.Context(), vars["workspaceID"], vars["userID"], req.RoleID); err != nil {
		writeMemberError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateProject creates a project inside the workspace.
func (h *WorkspaceHandlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	workspaceID := mux.Vars(r)["workspaceID"]

	var req createProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	project, err := h.workspaces.CreateProject(r.Context(), workspaceID, req.Name, req.Description, session.Subject)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, project)
}

// ListProjects lists the workspace's projects.
func (h *WorkspaceHandlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceID"]

	projects, err := h.workspaces.ListProjects(r.Context(), workspaceID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if projects == nil {
		projects = []*workspaces.Project{}
	}

	httputil.WriteSuccess(w, projects)
}

// DeleteProject removes a project and its tasks.
func (h *WorkspaceHandlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.workspaces.DeleteProject(r.Context(), vars["workspaceID"], vars["projectID"]); err != nil {
		if err == workspaces.ErrProjectNotFound {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssigneeID  string `json:"assigneeId,omitempty"`
}

// CreateTask creates a task inside a project.
func (h *WorkspaceHandlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r)
	vars := mux.Vars(r)

	var req createTaskRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}

	task := &workspaces.Task{
		ProjectID:   vars["projectID"],
		WorkspaceID: vars["workspaceID"],
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   session.Subject,
	}
	if err := h.workspaces.CreateTask(r.Context(), task); err != nil {
		if err == workspaces.ErrProjectNotFound {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteCreated(w, task)
}

// ListTasks lists a project's tasks.
func (h *WorkspaceHandlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	tasks, err := h.workspaces.ListTasks(r.Context(), vars["workspaceID"], vars["projectID"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*workspaces.Task{}
	}

	httputil.WriteSuccess(w, tasks)
}

type updateTaskStatusRequest struct {
	Status string `json:"status"`
}

// UpdateTaskStatus moves a task between statuses.
func (h *WorkspaceHandlers) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req updateTaskStatusRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.workspaces.UpdateTaskStatus(r.Context(), vars["workspaceID"], vars["taskID"], req.Status); err != nil {
		if err == workspaces.ErrTaskNotFound {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteNoContent(w)
}

// DeleteTask removes a task.
func (h *WorkspaceHandlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.workspaces.DeleteTask(r.Context(), vars["workspaceID"], vars["taskID"]); err != nil {
		if err == workspaces.ErrTaskNotFound {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// maxAuditPageSize bounds the audit page size a caller can request.
const maxAuditPageSize = 200

// ListAuditEntries returns the workspace's recent audit trail.
func (h *WorkspaceHandlers) ListAuditEntries(w http.ResponseWriter, r *http.Request) {
	workspaceID := mux.Vars(r)["workspaceID"]

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}

	entries, err := h.audit.List(r.Context(), workspaceID, limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, entries)
}
