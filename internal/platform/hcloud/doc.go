// Package hcloud wraps the Hetzner Cloud API for cluster provisioning.
//
// # Generic Operations
//
// Every resource kind is handled through two generic operations:
//
//   - EnsureOperation looks a resource up by its deterministic name and
//     returns it unchanged when found. Otherwise it creates the resource
//     and waits for the creation actions.
//   - DeleteOperation removes a resource by name and succeeds when the
//     resource does not exist. Locked resources are retried with
//     exponential backoff.
//
// Both report what happened through an Events sink so callers can log
// "already exists" without treating it as an error.
//
// # Transport
//
// RealClient talks to the API through a transport that rate limits
// requests, bounds every attempt with its own timeout and retries
// attempts that ran into a transport timeout. Non-2xx responses surface
// as hcloud.Error values and are classified in errors.go.
//
// # Configuration
//
// Timeouts and retry budgets come from config.Timeouts:
//
//   - HCLOUD_TIMEOUT_API_CALL: one request attempt (default: 30s)
//   - HCLOUD_API_ATTEMPTS: attempts on transport timeouts (default: 3)
//   - HCLOUD_TIMEOUT_SERVER_CREATE: server creation (default: 10m)
//   - HCLOUD_TIMEOUT_DELETE: resource deletion (default: 5m)
//   - HCLOUD_RETRY_MAX_ATTEMPTS: retries on locked resources (default: 5)
//   - HCLOUD_RETRY_INITIAL_DELAY: first delay between retries (default: 1s)
//
// FakeClient is an in-memory InfrastructureManager for tests of code
// that drives the provider.
package hcloud
