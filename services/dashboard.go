package services

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// NormalizeProtocol canonicalizes a scheme value to "http"/"https",
// or "" when the value is anything else.
func NormalizeProtocol(value string) string {
	text := strings.ToLower(strings.TrimSpace(value))
	text = strings.TrimSuffix(text, ":")
	if text == "http" || text == "https" {
		return text
	}
	return ""
}

// ParsePort parses a TCP port, returning 0 for anything out of range.
func ParsePort(value string) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		return 0
	}
	return port
}

// IsLoopbackHost reports whether a hostname refers to the local machine.
// Loopback hosts are useless in a notification link, so they are
// excluded from dashboard URL candidates.
func IsLoopbackHost(hostname string) bool {
	normalized := strings.ToLower(strings.TrimSpace(hostname))
	normalized = strings.TrimPrefix(normalized, "[")
	normalized = strings.TrimSuffix(normalized, "]")
	if normalized == "" {
		return true
	}
	switch normalized {
	case "localhost", "0.0.0.0", "::1", "::":
		return true
	}
	return strings.HasPrefix(normalized, "127.") || strings.HasPrefix(normalized, "::ffff:127.")
}

// ParseHostHeader splits a Host header into hostname and optional port,
// handling bracketed IPv6 forms.
func ParseHostHeader(value string) (string, int) {
	text := strings.TrimSpace(value)
	if text == "" {
		return "", 0
	}
	if strings.HasPrefix(text, "[") {
		closing := strings.Index(text, "]")
		if closing == -1 {
			return text, 0
		}
		host := text[1:closing]
		remainder := text[closing+1:]
		port := 0
		if strings.HasPrefix(remainder, ":") {
			port = ParsePort(remainder[1:])
		}
		return host, port
	}
	parts := strings.Split(text, ":")
	if len(parts) == 2 {
		if port := ParsePort(parts[1]); port > 0 {
			return parts[0], port
		}
	}
	return text, 0
}

// FormatHostForURL strips any IPv6 zone suffix and brackets bare IPv6
// addresses for URL use.
func FormatHostForURL(hostname string) string {
	if hostname == "" {
		return ""
	}
	if zone := strings.Index(hostname, "%"); zone != -1 {
		hostname = hostname[:zone]
	}
	if strings.Contains(hostname, ":") && !strings.HasPrefix(hostname, "[") {
		return "[" + hostname + "]"
	}
	return hostname
}

// DetectPrimaryExternalAddress picks the first non-loopback interface
// address, preferring IPv4, as a last-resort dashboard host.
func DetectPrimaryExternalAddress() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	ipv6 := ""
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
		if ipv6 == "" && ipNet.IP.IsGlobalUnicast() {
			ipv6 = ipNet.IP.String()
		}
	}
	return ipv6
}

func (n *Notifier) buildURLFromParts(protocol, hostname string, port int) string {
	if hostname == "" {
		return ""
	}
	scheme := NormalizeProtocol(protocol)
	if scheme == "" {
		scheme = n.defaultProtocol
	}
	effectivePort := port
	if effectivePort == 0 {
		effectivePort = n.publicPort
	}
	omitPort := effectivePort == 0 ||
		(scheme == "http" && effectivePort == 80) ||
		(scheme == "https" && effectivePort == 443)
	portSegment := ""
	if !omitPort {
		portSegment = fmt.Sprintf(":%d", effectivePort)
	}
	return scheme + "://" + FormatHostForURL(hostname) + portSegment + "/"
}

// sanitizeDashboardURL validates a candidate dashboard URL, rejecting
// loopback hosts and normalizing scheme, port, and trailing slash.
func (n *Notifier) sanitizeDashboardURL(candidate, defaultProtocol string) string {
	raw := strings.TrimSpace(candidate)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Hostname() == "" {
		parsed, err = url.Parse(defaultProtocol + "://" + raw)
		if err != nil {
			return ""
		}
	}
	hostname := parsed.Hostname()
	if hostname == "" || IsLoopbackHost(hostname) {
		return ""
	}
	scheme := NormalizeProtocol(parsed.Scheme)
	if scheme == "" {
		scheme = NormalizeProtocol(defaultProtocol)
	}
	if scheme == "" {
		scheme = "http"
	}
	port := ParsePort(parsed.Port())
	pathname := parsed.Path
	if pathname == "" {
		pathname = "/"
	}
	if !strings.HasPrefix(pathname, "/") {
		pathname = "/" + pathname
	}
	if pathname != "/" && !strings.HasSuffix(pathname, "/") {
		pathname += "/"
	}
	omitPort := port == 0 ||
		(scheme == "http" && port == 80) ||
		(scheme == "https" && port == 443)
	portSegment := ""
	if !omitPort {
		portSegment = fmt.Sprintf(":%d", port)
	}
	return scheme + "://" + FormatHostForURL(hostname) + portSegment + pathname
}

// ResolveDashboardURL picks the best reachable dashboard link: an
// explicit candidate, then the configured public URL, then the request's
// host header, then the server's own external address.
func (n *Notifier) ResolveDashboardURL(explicit, requestHostHeader, requestProtocol string) string {
	protocol := NormalizeProtocol(requestProtocol)
	if protocol == "" {
		protocol = n.defaultProtocol
	}
	candidates := []string{}
	if explicit != "" {
		candidates = append(candidates, explicit)
	}
	if n.configuredDashboardURL != "" {
		candidates = append(candidates, n.configuredDashboardURL)
	}
	if requestHostHeader != "" {
		hostname, port := ParseHostHeader(requestHostHeader)
		if hostname != "" && !IsLoopbackHost(hostname) {
			if candidate := n.buildURLFromParts(protocol, hostname, port); candidate != "" {
				candidates = append(candidates, candidate)
			}
		}
	}
	if n.externalHost != "" && !IsLoopbackHost(n.externalHost) {
		if candidate := n.buildURLFromParts(protocol, n.externalHost, 0); candidate != "" {
			candidates = append(candidates, candidate)
		}
	}
	for _, candidate := range candidates {
		if sanitized := n.sanitizeDashboardURL(candidate, protocol); sanitized != "" {
			return sanitized
		}
	}
	return ""
}
