package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "host unreachable", err: fmt.Errorf("dial: %w", syscall.EHOSTUNREACH), want: true},
		{name: "network unreachable", err: fmt.Errorf("dial: %w", syscall.ENETUNREACH), want: true},
		{name: "broken pipe", err: fmt.Errorf("write: %w", syscall.EPIPE), want: true},
		{name: "bad file descriptor", err: fmt.Errorf("read: %w", syscall.EBADF), want: true},
		{name: "eof", err: fmt.Errorf("ssh: handshake failed: %w", io.EOF), want: true},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "timeout message", err: errors.New("read tcp 1.2.3.4:22: i/o timeout"), want: true},
		{name: "too many auth failures", err: errors.New("ssh: disconnect, reason 2: Too many authentication failures"), want: false},
		{name: "authentication", err: authenticationError(testHost, errors.New("x")), want: false},
		{name: "host key mismatch", err: hostKeyMismatchError("h"), want: false},
		{name: "command failure", err: &CommandError{Status: 1, Output: "EOF"}, want: false},
		{name: "unknown", err: errors.New("something else"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestClassifyDialError(t *testing.T) {
	t.Parallel()
	err := classifyDialError(testHost, errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey]"))
	assert.ErrorIs(t, err, ErrAuthentication)

	plain := errors.New("ssh: handshake failed: EOF")
	assert.Equal(t, plain, classifyDialError(testHost, plain))
}

func TestWithoutExcluded(t *testing.T) {
	t.Parallel()
	got := withoutExcluded([]string{"curve25519-sha256", "ecdh-sha2-nistp256", "ecdsa-sha2-nistp384", "ssh-ed25519"})
	assert.Equal(t, []string{"curve25519-sha256", "ssh-ed25519"}, got)
}

func TestPrefixWriter(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	w := newPrefixWriter(&out, "node1")

	_, _ = w.Write([]byte("line one\nline "))
	_, _ = w.Write([]byte("two\npartial"))
	w.Flush()

	assert.Equal(t, "[node1] line one\n[node1] line two\n[node1] partial\n", out.String())
}
