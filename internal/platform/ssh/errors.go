package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/imamik/k3zner/internal/util/retry"
)

var (
	// ErrAuthentication means the node rejected every offered key.
	ErrAuthentication = errors.New("ssh authentication failed")

	// ErrHostKeyMismatch means the node's host key differs from the one
	// recorded in known_hosts.
	ErrHostKeyMismatch = errors.New("ssh host key mismatch")

	errNotReady = errors.New("node is not ready yet")
)

// CommandError is returned when a remote command exits with a non-zero status.
type CommandError struct {
	Status int
	Output string
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("exit status %d", e.Status)
	}
	return fmt.Sprintf("exit status %d: %s", e.Status, e.Output)
}

func authenticationError(host Host, err error) error {
	return fmt.Errorf("%w for root@%s: make sure private_ssh_key_path points to the key whose public half "+
		"was uploaded, or that the key is loaded in your ssh agent: %v", ErrAuthentication, host.Address, err)
}

func hostKeyMismatchError(address string) error {
	return fmt.Errorf("%w for %s: the fingerprint in known_hosts does not match the server's host key. "+
		"This also happens when a new server gets an address you used before. If you are sure nothing is wrong, "+
		"remove the entry with `ssh-keygen -R %s` or set verify_host_key to false", ErrHostKeyMismatch, address, address)
}

// classifyDialError maps handshake failures to the sentinel errors.
func classifyDialError(host Host, err error) error {
	if errors.Is(err, ErrHostKeyMismatch) {
		return err
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return authenticationError(host, err)
	}
	return err
}

// isFatal reports whether err must stop any retry loop.
func isFatal(err error) bool {
	return errors.Is(err, ErrAuthentication) || errors.Is(err, ErrHostKeyMismatch) || retry.IsFatal(err)
}

var transientErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
	syscall.EPIPE,
	syscall.EBADF,
	syscall.EIO,
	syscall.ETIMEDOUT,
}

var transientMessages = []string{
	"i/o timeout",
	"connection refused",
	"connection reset",
	"no route to host",
	"network is unreachable",
	"host is unreachable",
	"broken pipe",
	"bad file descriptor",
	"input/output error",
	"use of closed network connection",
	"eof",
}

// isRetryable reports whether a failed command is worth another attempt.
func isRetryable(err error) bool {
	if err == nil || isFatal(err) {
		return false
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return false
	}
	if strings.Contains(strings.ToLower(err.Error()), "too many authentication failures") {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range transientMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
