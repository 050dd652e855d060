package provisioning

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/k3zner/internal/metrics"
	hcloud_internal "github.com/imamik/k3zner/internal/platform/hcloud"
)

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	// Printf logs a free-form progress message.
	Printf(format string, v ...any)

	// Event emits a structured event
	Event(event Event)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "infrastructure", "compute")
	Message   string            // Human-readable message
	Resource  string            // Resource name if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"

	EventResourceCreating EventType = "resource.creating"
	EventResourceCreated  EventType = "resource.created"
	EventResourceExists   EventType = "resource.exists"
	EventResourceDeleting EventType = "resource.deleting"
	EventResourceDeleted  EventType = "resource.deleted"
	EventResourceAbsent   EventType = "resource.absent"
	EventResourceSkipped  EventType = "resource.skipped"

	EventValidationWarning EventType = "validation.warning"
)

// LogrObserver implements Observer on top of a logr.Logger.
type LogrObserver struct {
	logger        logr.Logger
	contextFields map[string]string
}

// NewLogrObserver creates an observer writing to logger.
func NewLogrObserver(logger logr.Logger) *LogrObserver {
	return &LogrObserver{
		logger:        logger,
		contextFields: make(map[string]string),
	}
}

// Printf implements Observer.
func (o *LogrObserver) Printf(format string, v ...any) {
	o.logger.Info(fmt.Sprintf(format, v...), o.keysAndValues(nil)...)
}

// Event implements Observer.
func (o *LogrObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	kv := []any{"event", string(event.Type)}
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Resource != "" {
		kv = append(kv, "resource", event.Resource)
	}
	kv = append(kv, o.keysAndValues(event.Fields)...)

	if event.Type == EventPhaseFailed {
		o.logger.Error(nil, event.Message, kv...)
		return
	}
	o.logger.Info(event.Message, kv...)
}

// WithFields implements Observer.
func (o *LogrObserver) WithFields(fields map[string]string) Observer {
	return &LogrObserver{logger: o.logger, contextFields: o.merge(fields)}
}

func (o *LogrObserver) merge(fields map[string]string) map[string]string {
	merged := make(map[string]string, len(o.contextFields)+len(fields))
	maps.Copy(merged, o.contextFields)
	maps.Copy(merged, fields)
	return merged
}

// keysAndValues merges context fields with event fields, event fields
// winning, in sorted key order.
func (o *LogrObserver) keysAndValues(fields map[string]string) []any {
	merged := o.merge(fields)
	kv := make([]any, 0, 2*len(merged))
	for _, k := range slices.Sorted(maps.Keys(merged)) {
		kv = append(kv, k, merged[k])
	}
	return kv
}

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// LogResourceCreating logs a resource creation start event.
func LogResourceCreating(observer Observer, phase, resourceType, resourceName string) {
	logResource(observer, EventResourceCreating, phase, resourceType, resourceName, fmt.Sprintf("creating %s", resourceType))
}

// LogResourceCreated logs a successful resource creation event.
func LogResourceCreated(observer Observer, phase, resourceType, resourceName string) {
	logResource(observer, EventResourceCreated, phase, resourceType, resourceName, fmt.Sprintf("%s created", resourceType))
}

// LogResourceExists logs when a resource already exists.
func LogResourceExists(observer Observer, phase, resourceType, resourceName string) {
	logResource(observer, EventResourceExists, phase, resourceType, resourceName, fmt.Sprintf("%s already exists, skipping create", resourceType))
}

// LogResourceDeleting logs a resource deletion start event.
func LogResourceDeleting(observer Observer, phase, resourceType, resourceName string) {
	logResource(observer, EventResourceDeleting, phase, resourceType, resourceName, fmt.Sprintf("deleting %s", resourceType))
}

// LogResourceDeleted logs a successful resource deletion event.
func LogResourceDeleted(observer Observer, phase, resourceType, resourceName string) {
	logResource(observer, EventResourceDeleted, phase, resourceType, resourceName, fmt.Sprintf("%s deleted", resourceType))
}

// LogResourceAbsent logs a delete of a resource that does not exist.
func LogResourceAbsent(observer Observer, phase, resourceType, resourceName string) {
	logResource(observer, EventResourceAbsent, phase, resourceType, resourceName, fmt.Sprintf("%s does not exist, skipping delete", resourceType))
}

// LogResourceSkipped logs a resource left alone because the cluster does not own it.
func LogResourceSkipped(observer Observer, phase, resourceType, resourceName string) {
	logResource(observer, EventResourceSkipped, phase, resourceType, resourceName, fmt.Sprintf("%s existed before cluster, skipping", resourceType))
}

func logResource(observer Observer, eventType EventType, phase, resourceType, resourceName, message string) {
	observer.Event(Event{
		Type:     eventType,
		Phase:    phase,
		Resource: resourceName,
		Message:  message,
		Fields: map[string]string{
			"type": resourceType,
		},
	})
}

// resourceEvents forwards cloud client outcomes to an observer and counts
// them.
type resourceEvents struct {
	observer Observer
	metrics  *metrics.Recorder
}

// NewResourceEvents adapts an observer to the cloud client's event sink.
func NewResourceEvents(observer Observer, rec *metrics.Recorder) hcloud_internal.Events {
	return &resourceEvents{observer: observer, metrics: rec}
}

const cloudPhase = "cloud"

func (e *resourceEvents) ResourceExists(kind, name string) {
	LogResourceExists(e.observer, cloudPhase, kind, name)
	e.metrics.CountResource(kind, "exists")
}

func (e *resourceEvents) ResourceCreating(kind, name string) {
	LogResourceCreating(e.observer, cloudPhase, kind, name)
}

func (e *resourceEvents) ResourceCreated(kind, name string) {
	LogResourceCreated(e.observer, cloudPhase, kind, name)
	e.metrics.CountResource(kind, "created")
}

func (e *resourceEvents) ResourceDeleting(kind, name string) {
	LogResourceDeleting(e.observer, cloudPhase, kind, name)
}

func (e *resourceEvents) ResourceDeleted(kind, name string) {
	LogResourceDeleted(e.observer, cloudPhase, kind, name)
	e.metrics.CountResource(kind, "deleted")
}

func (e *resourceEvents) ResourceAbsent(kind, name string) {
	LogResourceAbsent(e.observer, cloudPhase, kind, name)
	e.metrics.CountResource(kind, "absent")
}
