// Package async runs independent units of work concurrently and joins them.
//
// Each fan-out writes into its own result slot, so no locking is needed to
// collect results. [RunParallel] is for error-only tasks, [Map] for tasks that
// produce a value per input item.
package async
