package model

import "github.com/google/uuid"

// Document is the whole persisted state: every session plus the
// append-only raw event log, read and rewritten as one unit.
type Document struct {
	Sessions      []*Session      `bson:"sessions" json:"sessions"`
	SessionEvents []*SessionEvent `bson:"session_events" json:"sessionEvents"`
}

func NewDocument() *Document {
	return &Document{
		Sessions:      []*Session{},
		SessionEvents: []*SessionEvent{},
	}
}

// Normalize repairs a freshly loaded document so callers never see nil
// slices or half-formed entries. Events missing an id or timestamp get
// one assigned rather than being dropped; the raw log stays complete.
func (d *Document) Normalize(now string) {
	if d.Sessions == nil {
		d.Sessions = []*Session{}
	}
	sessions := d.Sessions[:0]
	for _, session := range d.Sessions {
		if session == nil {
			continue
		}
		session.Normalize()
		sessions = append(sessions, session)
	}
	d.Sessions = sessions

	if d.SessionEvents == nil {
		d.SessionEvents = []*SessionEvent{}
	}
	events := d.SessionEvents[:0]
	for _, event := range d.SessionEvents {
		if event == nil {
			continue
		}
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		if event.Type == "" {
			event.Type = "unknown"
		}
		if event.Timestamp == "" {
			event.Timestamp = now
		}
		events = append(events, event)
	}
	d.SessionEvents = events
}
