package model

import "strings"

type SessionStatus string

const (
	StatusConnected    SessionStatus = "connected"
	StatusDisconnected SessionStatus = "disconnected"
)

type ProcessStatus struct {
	Name        string `bson:"name" json:"name"`
	Running     bool   `bson:"running" json:"running"`
	LastChecked string `bson:"last_checked,omitempty" json:"lastChecked,omitempty"`
}

// Session is the tracked connection record for one physical machine.
// Timestamps are RFC 3339 strings; LastUpdated doubles as the optimistic
// concurrency token compared against the If-Match header.
type Session struct {
	ID                  string          `bson:"id" json:"id"`
	ExternalSessionID   string          `bson:"external_session_id,omitempty" json:"externalSessionId,omitempty"`
	Hostname            string          `bson:"hostname" json:"hostname"`
	IPAddress           string          `bson:"ip_address" json:"ipAddress"`
	Username            string          `bson:"username" json:"username"`
	RemoteUser          string          `bson:"remote_user" json:"remoteUser"`
	RemoteHost          string          `bson:"remote_host" json:"remoteHost"`
	RemoteHostIPAddress string          `bson:"remote_host_ip_address" json:"remoteHostIpAddress"`
	RemoteControlled    RemoteControl   `bson:"remote_controlled" json:"remoteControlled"`
	Status              SessionStatus   `bson:"status" json:"status"`
	LastSeen            string          `bson:"last_seen" json:"lastSeen"`
	LastUpdated         string          `bson:"last_updated" json:"lastUpdated"`
	StartedAt           string          `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	EndedAt             string          `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	DisconnectReason    string          `bson:"disconnect_reason,omitempty" json:"disconnectReason,omitempty"`
	LastIdleSeconds     *float64        `bson:"last_idle_seconds,omitempty" json:"lastIdleSeconds,omitempty"`
	Notes               string          `bson:"notes" json:"notes"`
	ExpectedProcesses   []string        `bson:"expected_processes" json:"expectedProcesses"`
	ProcessStatuses     []ProcessStatus `bson:"process_statuses" json:"processStatuses"`
}

// Normalize repairs a session loaded from storage: nil slices become
// empty, process entries without a name are dropped, expected-process
// entries are trimmed and deduplicated.
func (s *Session) Normalize() {
	expected := make([]string, 0, len(s.ExpectedProcesses))
	seen := make(map[string]bool, len(s.ExpectedProcesses))
	for _, name := range s.ExpectedProcesses {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		expected = append(expected, trimmed)
	}
	s.ExpectedProcesses = expected

	statuses := make([]ProcessStatus, 0, len(s.ProcessStatuses))
	for _, entry := range s.ProcessStatuses {
		entry.Name = strings.TrimSpace(entry.Name)
		if entry.Name == "" {
			continue
		}
		statuses = append(statuses, entry)
	}
	s.ProcessStatuses = statuses

	if s.Status != StatusDisconnected {
		s.Status = StatusConnected
	}
}

// Clone returns a copy safe to hand to the notifier: mutating the
// original afterwards must not affect the copy.
func (s *Session) Clone() *Session {
	copied := *s
	copied.ExpectedProcesses = append([]string(nil), s.ExpectedProcesses...)
	copied.ProcessStatuses = append([]ProcessStatus(nil), s.ProcessStatuses...)
	if s.LastIdleSeconds != nil {
		idle := *s.LastIdleSeconds
		copied.LastIdleSeconds = &idle
	}
	return &copied
}
