package ssh

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type testResponse struct {
	output string
	status uint32
}

// testSSHServer is an in-process SSH server answering exec requests from
// a fixed table.
type testSSHServer struct {
	port    int
	hostKey ssh.Signer
}

func startSSHServer(t *testing.T, authorized ssh.PublicKey, responses map[string]testResponse) *testSSHServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return &ssh.Permissions{}, nil
			}
			return nil, errors.New("unauthorized key")
		},
	}
	cfg.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, cfg, responses)
		}
	}()

	return &testSSHServer{port: ln.Addr().(*net.TCPAddr).Port, hostKey: hostKey}
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig, responses map[string]testResponse) {
	defer func() { _ = conn.Close() }()
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only sessions")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			return
		}
		go serveSession(ch, requests, responses)
	}
}

func serveSession(ch ssh.Channel, requests <-chan *ssh.Request, responses map[string]testResponse) {
	defer func() { _ = ch.Close() }()
	for req := range requests {
		if req.Type != "exec" {
			_ = req.Reply(false, nil)
			continue
		}
		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		resp, ok := responses[payload.Command]
		if !ok {
			resp = testResponse{output: "command not found\n", status: 127}
		}
		_, _ = ch.Write([]byte(resp.output))
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{resp.status}))
		return
	}
}
