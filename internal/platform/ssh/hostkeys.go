package ssh

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// excludedAlgorithm matches ECDSA host keys and ecdh-sha2 key exchanges.
var excludedAlgorithm = regexp.MustCompile(`^ecd(sa|h)-sha2`)

func withoutExcluded(algorithms []string) []string {
	return slices.DeleteFunc(slices.Clone(algorithms), excludedAlgorithm.MatchString)
}

// knownHosts verifies host keys against a known_hosts file and appends
// hosts it has not seen before.
type knownHosts struct {
	mu    sync.Mutex
	path  string
	check ssh.HostKeyCallback
	added map[string]ssh.PublicKey
}

func newKnownHosts(path string) (*knownHosts, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create known_hosts directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600) // #nosec G304 -- operator known_hosts
	if err != nil {
		return nil, fmt.Errorf("failed to open known_hosts: %w", err)
	}
	_ = f.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read known_hosts: %w", err)
	}
	return &knownHosts{path: path, check: check, added: make(map[string]ssh.PublicKey)}, nil
}

func (k *knownHosts) callback(hostname string, remote net.Addr, key ssh.PublicKey) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	address := knownhosts.Normalize(hostname)
	if known, ok := k.added[address]; ok {
		if bytes.Equal(known.Marshal(), key.Marshal()) {
			return nil
		}
		return hostKeyMismatchError(hostname)
	}

	err := k.check(hostname, remote, key)
	if err == nil {
		return nil
	}

	var keyErr *knownhosts.KeyError
	if !errors.As(err, &keyErr) {
		return err
	}
	// Only a recorded key of the same type can contradict the offered one.
	for _, want := range keyErr.Want {
		if want.Key.Type() == key.Type() {
			return hostKeyMismatchError(hostname)
		}
	}
	return k.add(address, key)
}

func (k *knownHosts) add(address string, key ssh.PublicKey) error {
	f, err := os.OpenFile(k.path, os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- operator known_hosts
	if err != nil {
		return fmt.Errorf("failed to open known_hosts: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, knownhosts.Line([]string{address}, key)); err != nil {
		return fmt.Errorf("failed to add %s to known_hosts: %w", address, err)
	}
	k.added[address] = key
	return nil
}
