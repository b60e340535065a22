package rbac

import (
	"context"
	"fmt"
	"sort"
)

// Resolver computes a user's Effective Permission Snapshot from the Role &
// Binding Store. Resolution is a pure read with no side effects and may run
// concurrently for the same user.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver on top of the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveEffectivePermissions loads the user's single organization role and
// every workspace membership role and projects them into a Snapshot.
//
// A user with no organization role gets an empty org permission set; a user
// with no workspace memberships gets an empty grant list. Absence of a role
// is equivalent to no permissions, never an error.
func (r *Resolver) ResolveEffectivePermissions(ctx context.Context, userID string) (*Snapshot, error) {
	access, err := r.store.GetUserAccess(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions for user %s: %w", userID, err)
	}

	snapshot := &Snapshot{
		OrgPermissions:       dedupe(access.OrgRolePermissions),
		WorkspacePermissions: make([]WorkspaceGrant, 0, len(access.Memberships)),
	}

	for _, m := range access.Memberships {
		snapshot.WorkspacePermissions = append(snapshot.WorkspacePermissions, WorkspaceGrant{
			WorkspaceID:   m.WorkspaceID,
			WorkspaceName: m.WorkspaceName,
			Permissions:   dedupe(m.Permissions),
		})
	}

	return snapshot, nil
}

// dedupe returns a sorted copy of names with duplicates removed. Always
// non-nil so snapshots marshal as empty arrays rather than null.
func dedupe(names []string) []string {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
