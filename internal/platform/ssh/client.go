package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/imamik/k3zner/internal/metrics"
	"github.com/imamik/k3zner/internal/util/retry"
)

const (
	defaultUser         = "root"
	defaultPort         = 22
	defaultDialTimeout  = 10 * time.Second
	defaultMaxAttempts  = 15
	defaultProbeTimeout = 5 * time.Second
	defaultRetryDelay   = 2 * time.Second

	readyCommand = "cat /etc/ready"
)

// Host is a node addressed by its public IP. Name prefixes streamed output.
type Host struct {
	Name    string
	Address string
}

// Config holds SSH client configuration.
type Config struct {
	User string
	Port int

	// PrivateKeyPath is read at construction. When both PrivateKey and
	// PrivateKeyPath are empty, keys are taken from the agent behind
	// SSH_AUTH_SOCK.
	PrivateKeyPath string
	PrivateKey     []byte

	// VerifyHostKey enables known_hosts checking against KnownHostsPath
	// (default ~/.ssh/known_hosts).
	VerifyHostKey  bool
	KnownHostsPath string

	DialTimeout  time.Duration
	MaxAttempts  int
	ProbeTimeout time.Duration
	RetryDelay   time.Duration

	// Output receives command output line by line, prefixed with the host
	// name. Nil disables streaming.
	Output io.Writer

	Logger  logr.Logger
	Metrics *metrics.Recorder
}

// Executor runs commands on nodes.
type Executor interface {
	Exec(ctx context.Context, host Host, command string) (string, error)
	WaitUntilReachable(ctx context.Context, host Host) error
}

// Client executes commands on nodes. Connections are opened per attempt.
type Client struct {
	config       Config
	clientConfig *ssh.ClientConfig
	agentConn    net.Conn

	// run performs a single attempt and is replaced in tests.
	run func(ctx context.Context, host Host, command string) (string, error)
}

var _ Executor = (*Client)(nil)

// NewClient creates a client, loading the key and known_hosts up front.
func NewClient(cfg Config) (*Client, error) {
	if cfg.User == "" {
		cfg.User = defaultUser
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}

	c := &Client{config: cfg}
	c.run = c.execOnce

	auth, err := c.authMethod()
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // verification is opt-in via verify_host_key
	if cfg.VerifyHostKey {
		path := cfg.KnownHostsPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to locate known_hosts: %w", err)
			}
			path = filepath.Join(home, ".ssh", "known_hosts")
		}
		kh, err := newKnownHosts(path)
		if err != nil {
			return nil, err
		}
		hostKeyCallback = kh.callback
	}

	supported := ssh.SupportedAlgorithms()
	c.clientConfig = &ssh.ClientConfig{
		Config: ssh.Config{
			KeyExchanges: withoutExcluded(supported.KeyExchanges),
			Ciphers:      supported.Ciphers,
			MACs:         supported.MACs,
		},
		User:              cfg.User,
		Auth:              []ssh.AuthMethod{auth},
		HostKeyCallback:   hostKeyCallback,
		HostKeyAlgorithms: withoutExcluded(supported.HostKeys),
		Timeout:           cfg.DialTimeout,
	}
	return c, nil
}

func (c *Client) authMethod() (ssh.AuthMethod, error) {
	key := c.config.PrivateKey
	if len(key) == 0 && c.config.PrivateKeyPath != "" {
		data, err := os.ReadFile(c.config.PrivateKeyPath) // #nosec G304 -- operator supplied key path
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		key = data
	}

	if len(key) > 0 {
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil
	}

	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("no private key configured and SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ssh agent: %w", err)
	}
	c.agentConn = conn
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// Close releases the agent connection, if any.
func (c *Client) Close() error {
	if c.agentConn != nil {
		return c.agentConn.Close()
	}
	return nil
}

// Exec runs command on host and returns its combined output without the
// trailing newline. A non-zero exit status is returned as an error
// together with the output and is not retried.
func (c *Client) Exec(ctx context.Context, host Host, command string) (string, error) {
	var output string
	policy := retry.Policy{
		MaxAttempts: c.config.MaxAttempts,
		Delay:       c.config.RetryDelay,
		Retryable:   isRetryable,
		OnRetry: func(attempt int, err error) {
			c.config.Logger.V(1).Info("retrying remote command", "server", host.Name, "attempt", attempt, "error", err.Error())
		},
	}

	res := policy.Run(ctx, func(ctx context.Context) error {
		out, err := c.run(ctx, host, command)
		c.observe(err)
		output = out
		return err
	})
	if err := res.Error(); err != nil {
		return output, fmt.Errorf("command on %s failed: %w", host.Name, err)
	}
	return output, nil
}

// WaitUntilReachable probes host until `cat /etc/ready` prints "true".
// Each probe has its own timeout; a probe that fails early waits out the
// rest of its window.
func (c *Client) WaitUntilReachable(ctx context.Context, host Host) error {
	policy := retry.Policy{
		MaxAttempts:    c.config.MaxAttempts,
		AttemptTimeout: c.config.ProbeTimeout,
		Retryable:      func(err error) bool { return !isFatal(err) },
	}

	res := policy.Run(ctx, func(ctx context.Context) error {
		out, err := c.run(ctx, host, readyCommand)
		c.observe(err)
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) != "true" {
			return errNotReady
		}
		return nil
	})
	if err := res.Error(); err != nil {
		return fmt.Errorf("server %s (%s) did not become reachable: %w", host.Name, host.Address, err)
	}
	return nil
}

func (c *Client) observe(err error) {
	switch {
	case err == nil:
		c.config.Metrics.ObserveSSHAttempt("success")
	case isFatal(err):
		c.config.Metrics.ObserveSSHAttempt("fatal")
	default:
		c.config.Metrics.ObserveSSHAttempt("error")
	}
}

// execOnce opens a connection, runs one command and closes everything.
func (c *Client) execOnce(ctx context.Context, host Host, command string) (string, error) {
	addr := net.JoinHostPort(host.Address, strconv.Itoa(c.config.Port))

	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.config.DialTimeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, c.clientConfig)
	if err != nil {
		_ = conn.Close()
		return "", classifyDialError(host, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		_ = conn.SetDeadline(time.Time{})
	}

	client := ssh.NewClient(sshConn, chans, reqs)
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open session on %s: %w", host.Name, err)
	}
	defer func() { _ = session.Close() }()

	var buf bytes.Buffer
	var w io.Writer = &buf
	if c.config.Output != nil {
		pw := newPrefixWriter(c.config.Output, host.Name)
		defer pw.Flush()
		w = io.MultiWriter(&buf, pw)
	}
	session.Stdout = w
	session.Stderr = w

	err = session.Run(command)
	output := strings.TrimRight(buf.String(), "\r\n")
	if ctxErr := ctx.Err(); ctxErr != nil {
		return output, ctxErr
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return output, &CommandError{Status: exitErr.ExitStatus(), Output: output}
	}
	return output, err
}
