package utils

import "time"

// NowStamp returns the current UTC time in the RFC 3339 form stored on
// sessions and events. Nanosecond precision keeps successive stamps
// distinct enough to serve as concurrency tokens.
func NowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// ParseStamp re-renders a caller-supplied timestamp in canonical form.
func ParseStamp(value string) (string, bool) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Format(time.RFC3339Nano), true
		}
	}
	return "", false
}
