// Package orgs manages organizations and their user accounts: signup,
// credential verification, member onboarding, and organization role
// assignment. Every new organization gets its default role set and
// permission catalogs seeded on creation.
package orgs
