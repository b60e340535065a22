package rbac

// The authorization gate. Every protected operation consults the snapshot
// embedded in the caller's access credential before doing anything else; the
// gate never reaches back to the store, which is why role edits only take
// effect after the next login or refresh.
//
// All checks fail closed: a nil snapshot, an unknown workspace id, or a
// missing permission name all resolve to deny.

// HasOrgPermission reports whether the snapshot grants an organization-scope
// permission.
func (s *Snapshot) HasOrgPermission(perm OrgPermission) bool {
	if s == nil {
		return false
	}
	for _, name := range s.OrgPermissions {
		if name == string(perm) {
			return true
		}
	}
	return false
}

// HasWorkspacePermission reports whether the snapshot grants a
// workspace-scope permission within the given workspace. Denies when the
// user has no grant entry for the workspace at all.
func (s *Snapshot) HasWorkspacePermission(perm WorkspacePermission, workspaceID string) bool {
	if s == nil || workspaceID == "" {
		return false
	}
	for _, grant := range s.WorkspacePermissions {
		if grant.WorkspaceID != workspaceID {
			continue
		}
		for _, name := range grant.Permissions {
			if name == string(perm) {
				return true
			}
		}
		return false
	}
	return false
}

// WorkspaceGrantFor returns the grant entry for a workspace, or nil when the
// user is not a member.
func (s *Snapshot) WorkspaceGrantFor(workspaceID string) *WorkspaceGrant {
	if s == nil {
		return nil
	}
	for i := range s.WorkspacePermissions {
		if s.WorkspacePermissions[i].WorkspaceID == workspaceID {
			return &s.WorkspacePermissions[i]
		}
	}
	return nil
}
