package workspaces

import (
	"errors"
	"time"
)

var (
	// ErrWorkspaceNotFound is returned when a workspace does not exist.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrProjectNotFound is returned when a project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrTaskNotFound is returned when a task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotSameOrganization is returned when adding a member from another
	// organization.
	ErrNotSameOrganization = errors.New("user belongs to a different organization")

	// ErrAlreadyMember is returned when adding an existing member.
	ErrAlreadyMember = errors.New("user is already a workspace member")
)

// Workspace is a unit of collaboration within one organization.
type Workspace struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OrganizationID string    `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Member links a user to a workspace through exactly one workspace role.
type Member struct {
	UserID      string    `json:"userId"`
	WorkspaceID string    `json:"workspaceId"`
	RoleID      string    `json:"roleId"`
	RoleName    string    `json:"roleName,omitempty"`
	UserName    string    `json:"userName,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Project groups tasks within a workspace.
type Project struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspaceId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Task statuses.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// Task is a unit of work inside a project.
type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"projectId"`
	WorkspaceID string    `json:"workspaceId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
