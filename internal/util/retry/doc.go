// Package retry holds the two retry shapes used by k3zner.
//
// [WithExponentialBackoff] retries cloud API operations that fail on locked
// or conflicting resources. [Policy] drives attempt-bounded loops for remote
// shell sessions and returns a tagged [Result] instead of a bare error, so
// callers can tell a fatal failure from an exhausted retry budget.
package retry
