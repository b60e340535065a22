package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasOrgPermission(t *testing.T) {
	snapshot := &Snapshot{
		OrgPermissions: []string{string(PermOrgView), string(PermOrgWorkspaceCreate)},
	}

	assert.True(t, snapshot.HasOrgPermission(PermOrgView))
	assert.True(t, snapshot.HasOrgPermission(PermOrgWorkspaceCreate))
	assert.False(t, snapshot.HasOrgPermission(PermOrgDelete))
	assert.False(t, snapshot.HasOrgPermission(PermOwner))
}

func TestHasWorkspacePermissionIsPerWorkspace(t *testing.T) {
	snapshot := &Snapshot{
		WorkspacePermissions: []WorkspaceGrant{
			{WorkspaceID: "ws-a", Permissions: []string{string(PermCreateTask), string(PermViewTask)}},
			{WorkspaceID: "ws-b", Permissions: []string{string(PermViewTask)}},
		},
	}

	assert.True(t, snapshot.HasWorkspacePermission(PermCreateTask, "ws-a"))
	assert.False(t, snapshot.HasWorkspacePermission(PermCreateTask, "ws-b"))
	assert.True(t, snapshot.HasWorkspacePermission(PermViewTask, "ws-b"))
	assert.False(t, snapshot.HasWorkspacePermission(PermCreateTask, "ws-c"))
}

func TestGateFailsClosed(t *testing.T) {
	var nilSnapshot *Snapshot
	assert.False(t, nilSnapshot.HasOrgPermission(PermOrgView))
	assert.False(t, nilSnapshot.HasWorkspacePermission(PermViewTask, "ws-a"))
	assert.Nil(t, nilSnapshot.WorkspaceGrantFor("ws-a"))

	empty := &Snapshot{}
	assert.False(t, empty.HasOrgPermission(PermOrgView))
	assert.False(t, empty.HasWorkspacePermission(PermViewTask, "ws-a"))

	populated := &Snapshot{
		WorkspacePermissions: []WorkspaceGrant{
			{WorkspaceID: "ws-a", Permissions: []string{string(PermViewTask)}},
		},
	}
	assert.False(t, populated.HasWorkspacePermission(PermViewTask, ""))
}

func TestScopesNeverCross(t *testing.T) {
	// An org permission name inside a workspace grant must not satisfy an
	// org-scope check, and vice versa.
	snapshot := &Snapshot{
		OrgPermissions: []string{string(PermOrgView)},
		WorkspacePermissions: []WorkspaceGrant{
			{WorkspaceID: "ws-a", Permissions: []string{string(PermViewTask)}},
		},
	}

	assert.False(t, snapshot.HasWorkspacePermission(WorkspacePermission(PermOrgView), "ws-a"))
	assert.False(t, snapshot.HasOrgPermission(OrgPermission(PermViewTask)))
}

func TestWorkspaceGrantFor(t *testing.T) {
	snapshot := &Snapshot{
		WorkspacePermissions: []WorkspaceGrant{
			{WorkspaceID: "ws-a", WorkspaceName: "Alpha", Permissions: []string{string(PermViewTask)}},
		},
	}

	grant := snapshot.WorkspaceGrantFor("ws-a")
	require.NotNil(t, grant)
	assert.Equal(t, "Alpha", grant.WorkspaceName)

	assert.Nil(t, snapshot.WorkspaceGrantFor("ws-z"))
}
