// Package audit appends structured action records for mutations across the
// backend: who did what, in which workspace, with a human-readable message.
//
// Recording is fire-and-forget by contract; audit failures are logged by the
// caller and never affect the outcome of the audited operation.
package audit
