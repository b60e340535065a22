package rbac

import "errors"

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrPermissionNotFound indicates one of the referenced permission ids
	// does not exist.
	ErrPermissionNotFound = errors.New("permission not found")

	// ErrScopeMismatch indicates a role/permission/binding operation spans
	// mismatched scopes. Cross-scope writes are rejected, never retried.
	ErrScopeMismatch = errors.New("role and permission scopes do not match")

	// ErrSeededRole indicates an attempt to edit one of the four seeded
	// default roles through the custom role manager.
	ErrSeededRole = errors.New("seeded default roles cannot be modified")

	// ErrRoleExists indicates a role with the same name already exists in
	// the target scope instance.
	ErrRoleExists = errors.New("a role with this name already exists")
)
