package rbac

// OrgPermission names an organization-scope capability.
type OrgPermission string

// Organization-scope permission catalog. Closed set; seeded per organization.
const (
	PermOwner OrgPermission = "OWNER"

	PermOrgView   OrgPermission = "ORG_VIEW"
	PermOrgEdit   OrgPermission = "ORG_EDIT"
	PermOrgDelete OrgPermission = "ORG_DELETE"

	PermOrgOnboardUser    OrgPermission = "ORG_ONBOARD_USER"
	PermOrgRemoveUser     OrgPermission = "ORG_REMOVE_USER"
	PermOrgChangeUserRole OrgPermission = "ORG_CHANGE_USER_ROLE"

	PermOrgWorkspaceView   OrgPermission = "ORG_WORKSPACE_VIEW"
	PermOrgWorkspaceCreate OrgPermission = "ORG_WORKSPACE_CREATE"
	PermOrgWorkspaceEdit   OrgPermission = "ORG_WORKSPACE_EDIT"
	PermOrgWorkspaceDelete OrgPermission = "ORG_WORKSPACE_DELETE"

	PermOrgCustomRoleCreate OrgPermission = "ORG_CUSTOM_ROLE_CREATE"
	PermOrgCustomRoleEdit   OrgPermission = "ORG_CUSTOM_ROLE_EDIT"
	PermOrgCustomRoleDelete OrgPermission = "ORG_CUSTOM_ROLE_DELETE"
)

// WorkspacePermission names a workspace-scope capability.
type WorkspacePermission string

// Workspace-scope permission catalog (v2). Closed set; seeded once per
// organization and shared by all of its workspaces.
const (
	PermAddMember        WorkspacePermission = "ADD_MEMBER"
	PermRemoveMember     WorkspacePermission = "REMOVE_MEMBER"
	PermChangeMemberRole WorkspacePermission = "CHANGE_MEMBER_ROLE"

	PermAllProject    WorkspacePermission = "ALL_PROJECT"
	PermCreateProject WorkspacePermission = "CREATE_PROJECT"
	PermEditProject   WorkspacePermission = "EDIT_PROJECT"
	PermDeleteProject WorkspacePermission = "DELETE_PROJECT"
	PermViewProject   WorkspacePermission = "VIEW_PROJECT"

	PermAllTask     WorkspacePermission = "ALL_TASK"
	PermCreateTask  WorkspacePermission = "CREATE_TASK"
	PermEditTask    WorkspacePermission = "EDIT_TASK"
	PermEditAnyTask WorkspacePermission = "EDIT_ANY_TASK"
	PermDeleteTask  WorkspacePermission = "DELETE_TASK"
	PermViewTask    WorkspacePermission = "VIEW_TASK"

	PermCreateEvent  WorkspacePermission = "CREATE_EVENT"
	PermEditEvent    WorkspacePermission = "EDIT_EVENT"
	PermEditAnyEvent WorkspacePermission = "EDIT_ANY_EVENT"
	PermCancelEvent  WorkspacePermission = "CANCEL_EVENT"
	PermDeleteEvent  WorkspacePermission = "DELETE_EVENT"
	PermViewEvent    WorkspacePermission = "VIEW_EVENT"

	PermCreateDepartment WorkspacePermission = "CREATE_DEPARTMENT"
	PermEditDepartment   WorkspacePermission = "EDIT_DEPARTMENT"
	PermDeleteDepartment WorkspacePermission = "DELETE_DEPARTMENT"
	PermViewDepartment   WorkspacePermission = "VIEW_DEPARTMENT"

	PermCreateCustomWorkspaceRole WorkspacePermission = "CREATE_CUSTOM_WORKSPACE_ROLE"
	PermEditCustomWorkspaceRole   WorkspacePermission = "EDIT_CUSTOM_WORKSPACE_ROLE"
	PermDeleteCustomWorkspaceRole WorkspacePermission = "DELETE_CUSTOM_WORKSPACE_ROLE"
)

// Default role names seeded at both scopes.
const (
	RoleOwner  = "Owner"
	RoleAdmin  = "Admin"
	RoleMember = "Member"
	RoleViewer = "Viewer"
)

// OrgCatalog returns every organization-scope permission name.
func OrgCatalog() []OrgPermission {
	return []OrgPermission{
		PermOwner,
		PermOrgView,
		PermOrgEdit,
		PermOrgDelete,
		PermOrgOnboardUser,
		PermOrgRemoveUser,
		PermOrgChangeUserRole,
		PermOrgWorkspaceView,
		PermOrgWorkspaceCreate,
		PermOrgWorkspaceEdit,
		PermOrgWorkspaceDelete,
		PermOrgCustomRoleCreate,
		PermOrgCustomRoleEdit,
		PermOrgCustomRoleDelete,
	}
}

// WorkspaceCatalog returns every workspace-scope permission name.
func WorkspaceCatalog() []WorkspacePermission {
	return []WorkspacePermission{
		PermAddMember,
		PermRemoveMember,
		PermChangeMemberRole,
		PermAllProject,
		PermCreateProject,
		PermEditProject,
		PermDeleteProject,
		PermViewProject,
		PermAllTask,
		PermCreateTask,
		PermEditTask,
		PermEditAnyTask,
		PermDeleteTask,
		PermViewTask,
		PermCreateEvent,
		PermEditEvent,
		PermEditAnyEvent,
		PermCancelEvent,
		PermDeleteEvent,
		PermViewEvent,
		PermCreateDepartment,
		PermEditDepartment,
		PermDeleteDepartment,
		PermViewDepartment,
		PermCreateCustomWorkspaceRole,
		PermEditCustomWorkspaceRole,
		PermDeleteCustomWorkspaceRole,
	}
}

// RoleSeed describes one default role at seed time.
type RoleSeed struct {
	Name        string
	Description string
	IsDefault   bool
}

// DefaultOrgRoles returns the four roles seeded for every organization.
// Viewer is the invite default.
func DefaultOrgRoles() []RoleSeed {
	return []RoleSeed{
		{Name: RoleOwner, Description: "Full control over organization"},
		{Name: RoleAdmin, Description: "Manage users and workspaces"},
		{Name: RoleMember, Description: "Standard member with limited access"},
		{Name: RoleViewer, Description: "Read-only access to organization", IsDefault: true},
	}
}

// DefaultWorkspaceRoles returns the four roles seeded for every workspace.
func DefaultWorkspaceRoles() []RoleSeed {
	return []RoleSeed{
		{Name: RoleOwner, Description: "Full control over workspace"},
		{Name: RoleAdmin, Description: "Manage projects and tasks, moderate members"},
		{Name: RoleMember, Description: "Can work on assigned projects and tasks"},
		{Name: RoleViewer, Description: "Read-only access to all workspace data", IsDefault: true},
	}
}

// DefaultOrgRoleGrants maps each default role name to the organization
// permissions it receives at seed time.
func DefaultOrgRoleGrants() map[string][]OrgPermission {
	return map[string][]OrgPermission{
		RoleOwner: OrgCatalog(),
		RoleAdmin: {
			PermOrgView,
			PermOrgWorkspaceView,
			PermOrgWorkspaceCreate,
			PermOrgWorkspaceEdit,
			PermOrgCustomRoleCreate,
			PermOrgCustomRoleEdit,
			PermOrgCustomRoleDelete,
		},
		RoleMember: {PermOrgView, PermOrgWorkspaceView},
		RoleViewer: {PermOrgView, PermOrgWorkspaceView},
	}
}

// DefaultWorkspaceRoleGrants maps each default role name to the workspace
// permissions it receives at seed time.
func DefaultWorkspaceRoleGrants() map[string][]WorkspacePermission {
	return map[string][]WorkspacePermission{
		RoleOwner: WorkspaceCatalog(),
		RoleAdmin: WorkspaceCatalog(),
		RoleMember: {
			PermCreateTask,
			PermEditTask,
			PermDeleteTask,
			PermViewTask,
			PermViewProject,
			PermViewDepartment,
			PermCreateEvent,
			PermEditEvent,
			PermCancelEvent,
			PermViewEvent,
		},
		RoleViewer: {
			PermViewProject,
			PermViewTask,
			PermViewEvent,
			PermViewDepartment,
		},
	}
}
