// Package metrics records what one k3zner invocation did: cloud API
// requests, SSH attempts, phase durations and resource outcomes.
//
// A Recorder owns its own registry and lives for one invocation. The CLI
// can export it in the node-exporter textfile format.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "k3zner"

// Recorder collects metrics for one invocation. A nil Recorder discards
// everything.
type Recorder struct {
	registry *prometheus.Registry

	apiRequests   *prometheus.CounterVec
	apiDuration   *prometheus.HistogramVec
	sshAttempts   *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	resources     *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cloud_api",
				Name:      "requests_total",
				Help:      "Hetzner Cloud API request attempts by method and status code (0 for transport errors)",
			},
			[]string{"method", "code"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cloud_api",
				Name:      "request_duration_seconds",
				Help:      "Duration of Hetzner Cloud API request attempts",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"method"},
		),
		sshAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ssh",
				Name:      "attempts_total",
				Help:      "Remote command attempts by result",
			},
			[]string{"result"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provisioning",
				Name:      "phase_duration_seconds",
				Help:      "Duration of provisioning phases",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
			},
			[]string{"phase", "result"},
		),
		resources: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provisioning",
				Name:      "resources_total",
				Help:      "Cloud resources handled by type and outcome",
			},
			[]string{"type", "outcome"},
		),
	}
	r.registry.MustRegister(r.apiRequests, r.apiDuration, r.sshAttempts, r.phaseDuration, r.resources)
	return r
}

// Registry returns the registry backing the Recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAPIRequest records one API request attempt.
func (r *Recorder) ObserveAPIRequest(method string, code int, d time.Duration) {
	if r == nil {
		return
	}
	r.apiRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.apiDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveSSHAttempt records one remote command attempt.
func (r *Recorder) ObserveSSHAttempt(result string) {
	if r == nil {
		return
	}
	r.sshAttempts.WithLabelValues(result).Inc()
}

// ObservePhase records the duration of a provisioning phase.
func (r *Recorder) ObservePhase(phase string, err error, d time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.phaseDuration.WithLabelValues(phase, result).Observe(d.Seconds())
}

// CountResource records what happened to one cloud resource,
// e.g. ("network", "created") or ("firewall", "absent").
func (r *Recorder) CountResource(resourceType, outcome string) {
	if r == nil {
		return
	}
	r.resources.WithLabelValues(resourceType, outcome).Inc()
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
