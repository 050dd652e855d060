package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds per-attempt timeouts and retry budgets. Every value can be
// overridden through the environment.
type Timeouts struct {
	APICall           time.Duration // one Hetzner Cloud API request attempt
	APIAttempts       int           // attempts per API request on transport timeouts
	APIRateLimit      float64       // API requests per second
	ServerCreate      time.Duration // creating one server including its actions
	Delete            time.Duration // any delete operation
	RetryMaxAttempts  int           // retries on locked resources
	RetryInitialDelay time.Duration // first delay between those retries
	SSHMaxAttempts    int           // attempts per remote command
	SSHDialTimeout    time.Duration // one SSH dial
	SSHProbeTimeout   time.Duration // one reachability probe
	Stabilize         time.Duration // pause after bootstrap
	NodeRegister      time.Duration // waiting for nodes to appear in the API
}

// LoadTimeouts reads timeouts from the environment, falling back to defaults.
//
// Environment Variables:
//   - HCLOUD_TIMEOUT_API_CALL (default: 30s)
//   - HCLOUD_API_ATTEMPTS (default: 3)
//   - HCLOUD_API_RATE_LIMIT (default: 5 requests/s)
//   - HCLOUD_TIMEOUT_SERVER_CREATE (default: 10m)
//   - HCLOUD_TIMEOUT_DELETE (default: 5m)
//   - HCLOUD_RETRY_MAX_ATTEMPTS (default: 5)
//   - HCLOUD_RETRY_INITIAL_DELAY (default: 1s)
//   - K3ZNER_SSH_MAX_ATTEMPTS (default: 15)
//   - K3ZNER_SSH_DIAL_TIMEOUT (default: 10s)
//   - K3ZNER_SSH_PROBE_TIMEOUT (default: 5s)
//   - K3ZNER_TIMEOUT_STABILIZE (default: 10s)
//   - K3ZNER_TIMEOUT_NODE_REGISTER (default: 5m)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		APICall:           parseDuration("HCLOUD_TIMEOUT_API_CALL", 30*time.Second),
		APIAttempts:       parseInt("HCLOUD_API_ATTEMPTS", 3),
		APIRateLimit:      parseFloat("HCLOUD_API_RATE_LIMIT", 5),
		ServerCreate:      parseDuration("HCLOUD_TIMEOUT_SERVER_CREATE", 10*time.Minute),
		Delete:            parseDuration("HCLOUD_TIMEOUT_DELETE", 5*time.Minute),
		RetryMaxAttempts:  parseInt("HCLOUD_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("HCLOUD_RETRY_INITIAL_DELAY", 1*time.Second),
		SSHMaxAttempts:    parseInt("K3ZNER_SSH_MAX_ATTEMPTS", 15),
		SSHDialTimeout:    parseDuration("K3ZNER_SSH_DIAL_TIMEOUT", 10*time.Second),
		SSHProbeTimeout:   parseDuration("K3ZNER_SSH_PROBE_TIMEOUT", 5*time.Second),
		Stabilize:         parseDuration("K3ZNER_TIMEOUT_STABILIZE", 10*time.Second),
		NodeRegister:      parseDuration("K3ZNER_TIMEOUT_NODE_REGISTER", 5*time.Minute),
	}
}

// TestTimeouts returns short timeouts for tests.
func TestTimeouts() *Timeouts {
	return &Timeouts{
		APICall:           time.Second,
		APIAttempts:       3,
		APIRateLimit:      1000,
		ServerCreate:      5 * time.Second,
		Delete:            5 * time.Second,
		RetryMaxAttempts:  2,
		RetryInitialDelay: 10 * time.Millisecond,
		SSHMaxAttempts:    3,
		SSHDialTimeout:    100 * time.Millisecond,
		SSHProbeTimeout:   50 * time.Millisecond,
		Stabilize:         0,
		NodeRegister:      time.Second,
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

func parseFloat(envVar string, defaultVal float64) float64 {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		return defaultVal
	}
	return f
}
