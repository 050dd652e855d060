// Package config loads and validates the cluster specification file.
//
// A [Spec] is read once per invocation and treated as immutable; the only
// write-back is [UpdateK3sVersion], which rewrites the version field in place
// after a successful upgrade. Validation collects every violation into
// [ValidationErrors] so operators see all problems at once.
package config
