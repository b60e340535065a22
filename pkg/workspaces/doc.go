// Package workspaces manages workspaces inside an organization: membership
// with per-workspace roles, plus the projects and tasks that workspace
// permissions protect. Creating a workspace seeds its default role set and,
// once per organization, the shared workspace permission catalog.
package workspaces
