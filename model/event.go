package model

// Persisted event types reported by the external session-lifecycle agent.
const (
	EventTypeSessionStart = "session.start"
	EventTypeSessionEnd   = "session.end"
)

// EventKind classifies a notable state transition derived at
// reconciliation time. Kinds are notification-only; they are not
// persisted as SessionEvents.
type EventKind string

const (
	EventNone        EventKind = ""
	EventCreated     EventKind = "created"
	EventConnected   EventKind = "connected"
	EventUsageIntent EventKind = "usage-intent"
	EventEnded       EventKind = "ended"
)

type ClientEnvironment struct {
	OperatingSystem string `bson:"operating_system,omitempty" json:"operatingSystem,omitempty"`
	Application     string `bson:"application,omitempty" json:"application,omitempty"`
}

type ResourceMetrics struct {
	CPUTimeSeconds  *float64 `bson:"cpu_time_seconds,omitempty" json:"cpuTimeSeconds,omitempty"`
	WorkingSetBytes *int64   `bson:"working_set_bytes,omitempty" json:"workingSetBytes,omitempty"`
	ProcessCount    *int     `bson:"process_count,omitempty" json:"processCount,omitempty"`
}

// SessionEvent is the append-only raw record of a start/end report.
// Events are never mutated after creation.
type SessionEvent struct {
	ID                        string             `bson:"id" json:"id"`
	Type                      string             `bson:"type" json:"type"`
	Timestamp                 string             `bson:"timestamp" json:"timestamp"`
	SessionID                 string             `bson:"session_id,omitempty" json:"sessionId,omitempty"`
	ResourceID                string             `bson:"resource_id,omitempty" json:"resourceId,omitempty"`
	UserID                    string             `bson:"user_id,omitempty" json:"userId,omitempty"`
	Channel                   string             `bson:"channel,omitempty" json:"channel,omitempty"`
	ClientEnvironment         *ClientEnvironment `bson:"client_environment,omitempty" json:"clientEnvironment,omitempty"`
	MFAResult                 string             `bson:"mfa_result,omitempty" json:"mfaResult,omitempty"`
	DisconnectReason          string             `bson:"disconnect_reason,omitempty" json:"disconnectReason,omitempty"`
	SessionDurationSeconds    *float64           `bson:"session_duration_seconds,omitempty" json:"sessionDurationSeconds,omitempty"`
	SecondsSinceLastHeartbeat *float64           `bson:"seconds_since_last_heartbeat,omitempty" json:"secondsSinceLastHeartbeat,omitempty"`
	LastObservedIdleSeconds   *float64           `bson:"last_observed_idle_seconds,omitempty" json:"lastObservedIdleSeconds,omitempty"`
	ResourceMetrics           *ResourceMetrics   `bson:"resource_metrics,omitempty" json:"resourceMetrics,omitempty"`
	Payload                   map[string]any     `bson:"payload,omitempty" json:"payload,omitempty"`
}
