// Package audit logs store/retrieve/guard outcomes, adapted from the
// gateway's encrypt/decrypt audit trail (internal/audit/audit.go) to the
// fragment pipeline's domain: a store or retrieve is identified by its
// payload checksum, not a bucket/key pair, and the event records
// fragment/replica counts and any missing fragment-ids rather than a
// key version.
package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// EventType represents the type of audit event.
type EventType string

const (
	// EventTypeStore represents a producer.Store call.
	EventTypeStore EventType = "store"
	// EventTypeRetrieve represents a consumer.Retrieve call.
	EventTypeRetrieve EventType = "retrieve"
	// EventTypeGuardClaim represents a write-once guard decision.
	EventTypeGuardClaim EventType = "guard_claim"
)

// AuditEvent represents a single audit log event.
type AuditEvent struct {
	Timestamp         time.Time              `json:"timestamp"`
	EventType         EventType              `json:"event_type"`
	Operation         string                 `json:"operation"`
	PayloadChecksum   string                 `json:"payload_checksum,omitempty"`
	FragmentCount     int                    `json:"fragment_count,omitempty"`
	ReplicationFactor int                    `json:"replication_factor,omitempty"`
	Missing           []int                  `json:"missing,omitempty"`
	RequestID         string                 `json:"request_id,omitempty"`
	Success           bool                   `json:"success"`
	Error             string                 `json:"error,omitempty"`
	Duration          time.Duration          `json:"duration_ms"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// Logger is the interface for audit logging.
type Logger interface {
	// Log logs an audit event.
	Log(event *AuditEvent) error

	// LogStore logs a producer.Store call.
	LogStore(payloadChecksum string, fragmentCount, replicationFactor int, success bool, err error, duration time.Duration)

	// LogRetrieve logs a consumer.Retrieve call.
	LogRetrieve(payloadChecksum string, fragmentCount int, missing []int, success bool, err error, duration time.Duration)

	// LogGuardClaim logs a write-once guard decision.
	LogGuardClaim(payloadChecksum string, claimed bool)

	// GetEvents returns all audit events (for testing/querying).
	GetEvents() []*AuditEvent

	// Close closes the logger and its underlying writer.
	Close() error
}

// auditLogger implements the Logger interface.
type auditLogger struct {
	mu         sync.Mutex
	events     []*AuditEvent
	maxEvents  int
	writer     EventWriter
	redactKeys []string
}

// EventWriter is an interface for writing audit events.
type EventWriter interface {
	WriteEvent(event *AuditEvent) error
}

// NewLogger creates a new audit logger.
func NewLogger(maxEvents int, writer EventWriter) Logger {
	return NewLoggerWithRedaction(maxEvents, writer, nil)
}

// NewLoggerWithRedaction creates a new audit logger with redaction keys.
func NewLoggerWithRedaction(maxEvents int, writer EventWriter, redactKeys []string) Logger {
	if writer == nil {
		writer = &defaultWriter{}
	}

	return &auditLogger{
		events:     make([]*AuditEvent, 0, maxEvents),
		maxEvents:  maxEvents,
		writer:     writer,
		redactKeys: redactKeys,
	}
}

// SinkConfig configures NewLoggerFromSinkConfig's underlying writer. It
// is driven from cmd/fragvaultctl's YAML config, kept out of the core
// pipeline which consumes no environment/config input of its own.
type SinkConfig struct {
	Type                string
	Endpoint            string
	Headers             map[string]string
	FilePath            string
	BatchSize           int
	FlushInterval       time.Duration
	RetryCount          int
	RetryBackoff        time.Duration
	MaxEvents           int
	RedactMetadataKeys  []string
}

// NewLoggerFromSinkConfig builds a Logger from a SinkConfig.
func NewLoggerFromSinkConfig(cfg SinkConfig) (Logger, error) {
	var writer EventWriter

	switch cfg.Type {
	case "http":
		writer = NewHTTPSink(cfg.Endpoint, cfg.Headers)
	case "file":
		writer = NewFileSink(cfg.FilePath)
	case "stdout", "":
		writer = &defaultWriter{}
	default:
		return nil, fmt.Errorf("unknown audit sink type: %s", cfg.Type)
	}

	if cfg.BatchSize > 0 || cfg.FlushInterval > 0 {
		writer = NewBatchSink(writer, cfg.BatchSize, cfg.FlushInterval, cfg.RetryCount, cfg.RetryBackoff)
	}

	return NewLoggerWithRedaction(cfg.MaxEvents, writer, cfg.RedactMetadataKeys), nil
}

// Log logs an audit event.
func (l *auditLogger) Log(event *AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer != nil {
		_ = l.writer.WriteEvent(event)
	}

	l.events = append(l.events, event)

	if l.maxEvents > 0 && len(l.events) > l.maxEvents {
		l.events = l.events[len(l.events)-l.maxEvents:]
	}

	return nil
}

// Close closes the logger and its underlying writer.
func (l *auditLogger) Close() error {
	if closer, ok := l.writer.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// LogStore logs a producer.Store call.
func (l *auditLogger) LogStore(payloadChecksum string, fragmentCount, replicationFactor int, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp:         time.Now(),
		EventType:         EventTypeStore,
		Operation:         "store",
		PayloadChecksum:   payloadChecksum,
		FragmentCount:     fragmentCount,
		ReplicationFactor: replicationFactor,
		Success:           success,
		Duration:          duration,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = l.Log(event)
}

// LogRetrieve logs a consumer.Retrieve call.
func (l *auditLogger) LogRetrieve(payloadChecksum string, fragmentCount int, missing []int, success bool, err error, duration time.Duration) {
	event := &AuditEvent{
		Timestamp:       time.Now(),
		EventType:       EventTypeRetrieve,
		Operation:       "retrieve",
		PayloadChecksum: payloadChecksum,
		FragmentCount:   fragmentCount,
		Missing:         missing,
		Success:         success,
		Duration:        duration,
	}
	if err != nil {
		event.Error = err.Error()
	}
	_ = l.Log(event)
}

// LogGuardClaim logs a write-once guard decision.
func (l *auditLogger) LogGuardClaim(payloadChecksum string, claimed bool) {
	event := &AuditEvent{
		Timestamp:       time.Now(),
		EventType:       EventTypeGuardClaim,
		Operation:       "guard_claim",
		PayloadChecksum: payloadChecksum,
		Success:         claimed,
	}
	_ = l.Log(event)
}

// GetEvents returns all audit events (for testing/querying).
func (l *auditLogger) GetEvents() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*AuditEvent, len(l.events))
	copy(events, l.events)
	return events
}

// defaultWriter is a default implementation that writes to stdout as JSON.
type defaultWriter struct{}

func (w *defaultWriter) WriteEvent(event *AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	fmt.Printf("%s\n", string(data))
	return nil
}
