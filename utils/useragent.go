package utils

import (
	"strings"

	ua "github.com/mileusna/useragent"
)

// ParseClientEnvironment extracts an operating system and application
// name from a User-Agent string, for start events that did not report a
// client environment themselves.
func ParseClientEnvironment(userAgent string) (operatingSystem, application string) {
	if strings.TrimSpace(userAgent) == "" {
		return "", ""
	}
	parsed := ua.Parse(userAgent)
	if parsed.OS != "" {
		operatingSystem = strings.TrimSpace(parsed.OS)
		if parsed.OSVersion != "" {
			operatingSystem += " " + strings.TrimSpace(parsed.OSVersion)
		}
	}
	application = strings.TrimSpace(parsed.Name)
	return operatingSystem, application
}
