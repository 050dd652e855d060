// Package destroy handles cluster teardown and resource cleanup.
package destroy
