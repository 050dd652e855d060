package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	for _, env := range []string{
		"HCLOUD_TIMEOUT_API_CALL", "HCLOUD_API_ATTEMPTS", "HCLOUD_API_RATE_LIMIT",
		"K3ZNER_SSH_MAX_ATTEMPTS", "K3ZNER_SSH_PROBE_TIMEOUT", "K3ZNER_TIMEOUT_STABILIZE",
	} {
		t.Setenv(env, "")
	}

	to := LoadTimeouts()

	assert.Equal(t, 30*time.Second, to.APICall)
	assert.Equal(t, 3, to.APIAttempts)
	assert.InDelta(t, 5.0, to.APIRateLimit, 0.001)
	assert.Equal(t, 15, to.SSHMaxAttempts)
	assert.Equal(t, 5*time.Second, to.SSHProbeTimeout)
	assert.Equal(t, 10*time.Second, to.Stabilize)
}

func TestLoadTimeouts_Overrides(t *testing.T) {
	t.Setenv("HCLOUD_TIMEOUT_API_CALL", "45s")
	t.Setenv("K3ZNER_SSH_MAX_ATTEMPTS", "20")
	t.Setenv("HCLOUD_API_RATE_LIMIT", "2.5")
	t.Setenv("K3ZNER_SSH_PROBE_TIMEOUT", "garbage")

	to := LoadTimeouts()

	assert.Equal(t, 45*time.Second, to.APICall)
	assert.Equal(t, 20, to.SSHMaxAttempts)
	assert.InDelta(t, 2.5, to.APIRateLimit, 0.001)
	assert.Equal(t, 5*time.Second, to.SSHProbeTimeout)
}
