package usecase

import (
	"strings"

	"rdpmon/model"
)

// FindSession resolves a start/end report to an existing session.
// Lookup order, case-insensitive, first match wins: the reported session
// id against externalSessionId, then against our own id, then the
// reported resource id against hostname.
func FindSession(sessions []*model.Session, sessionID, resourceID string) *model.Session {
	if sessionID = strings.TrimSpace(sessionID); sessionID != "" {
		lower := strings.ToLower(sessionID)
		for _, session := range sessions {
			if strings.ToLower(strings.TrimSpace(session.ExternalSessionID)) == lower && session.ExternalSessionID != "" {
				return session
			}
		}
		for _, session := range sessions {
			if strings.ToLower(strings.TrimSpace(session.ID)) == lower {
				return session
			}
		}
	}
	if resourceID = strings.TrimSpace(resourceID); resourceID != "" {
		lower := strings.ToLower(resourceID)
		for _, session := range sessions {
			if strings.ToLower(strings.TrimSpace(session.Hostname)) == lower {
				return session
			}
		}
	}
	return nil
}

// FindByAddress resolves a heartbeat to an existing session. The client
// IP is the primary key; the reported hostname is consulted only when
// one was actually supplied.
func FindByAddress(sessions []*model.Session, clientIP, hostname string, hostnameSupplied bool) *model.Session {
	for _, session := range sessions {
		if session.IPAddress == clientIP {
			return session
		}
	}
	if hostnameSupplied {
		for _, session := range sessions {
			if session.Hostname == hostname {
				return session
			}
		}
	}
	return nil
}

// FindByID resolves an API path id to a session and its index.
func FindByID(sessions []*model.Session, id string) (int, *model.Session) {
	for i, session := range sessions {
		if session.ID == id {
			return i, session
		}
	}
	return -1, nil
}
