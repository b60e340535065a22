package audit

import "time"

// EntityType categorizes what an audit entry is about.
type EntityType string

const (
	EntityUser         EntityType = "user"
	EntityOrganization EntityType = "organization"
	EntityWorkspace    EntityType = "workspace"
	EntityProject      EntityType = "project"
	EntityTask         EntityType = "task"
	EntityRole         EntityType = "role"
	EntitySetting      EntityType = "setting"
	EntityEvent        EntityType = "calendar_event"
)

// Entry is one structured action record. WorkspaceID is empty for
// organization-level actions.
type Entry struct {
	ID          string     `json:"id"`
	EntityType  EntityType `json:"entity_type"`
	Action      string     `json:"action"`
	Message     string     `json:"message"`
	ActorUserID string     `json:"actor_user_id"`
	WorkspaceID string     `json:"workspace_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
