// Package ssh runs commands on cluster nodes as root over SSH.
//
// Every command is retried under a retry.Policy. Transient connectivity
// failures (timeouts, refused or reset connections, unreachable hosts,
// disconnects) are retried up to MaxAttempts. Authentication failures and
// host key mismatches end the run immediately with ErrAuthentication and
// ErrHostKeyMismatch.
//
// Host keys are verified against known_hosts when VerifyHostKey is set.
// Unknown hosts are added on first contact. ECDSA host keys and ecdh-sha2
// key exchanges are never negotiated.
package ssh
