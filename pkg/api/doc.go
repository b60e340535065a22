// Package api wires the HTTP surface: authentication endpoints that issue
// and refresh credential cookies, and the protected organization, workspace,
// role, project, and task routes gated by the permission snapshot.
package api
