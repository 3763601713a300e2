package utils

import (
	"encoding/base64"
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the reporting client's address: first hop of
// X-Forwarded-For when present, else the socket address with any
// IPv4-mapped prefix stripped.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	return strings.TrimPrefix(remote, "::ffff:")
}

// RequestHostHeader prefers the first X-Forwarded-Host entry over the
// plain Host header.
func RequestHostHeader(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		primary := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if primary != "" {
			return primary
		}
	}
	return strings.TrimSpace(r.Host)
}

// RequestProtocol resolves the effective scheme: X-Forwarded-Proto first,
// then the connection itself, then the supplied default.
func RequestProtocol(r *http.Request, defaultProtocol string) string {
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		primary := strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
		if primary != "" {
			return primary
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return defaultProtocol
}

// RequesterInfo identifies who invoked an endpoint, as well as the
// request headers can tell.
type RequesterInfo struct {
	Host string
	User string
}

var requesterUserHeaders = []string{
	"X-Remote-User",
	"X-Forwarded-User",
	"Remote-User",
	"X-Authenticated-User",
	"X-Authenticated-Userid",
	"X-Authenticated-Username",
	"X-User",
	"X-Forwarded-Preferred-Username",
	"X-Forwarded-Email",
}

// RequesterUser extracts a username from the reverse-proxy identity
// header family, falling back to the Basic auth username. Used for
// notification text only, never for authorization.
func RequesterUser(r *http.Request) string {
	for _, header := range requesterUserHeaders {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
	}
	authorization := r.Header.Get("Authorization")
	if strings.HasPrefix(authorization, "Basic ") {
		encoded := strings.TrimSpace(authorization[len("Basic "):])
		if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			if colon := strings.IndexByte(string(decoded), ':'); colon > 0 {
				if username := strings.TrimSpace(string(decoded[:colon])); username != "" {
					return username
				}
			}
		}
	}
	return ""
}

// Requester combines the caller's user and address, or nil when neither
// is determinable.
func Requester(r *http.Request) *RequesterInfo {
	host := ClientIP(r)
	user := RequesterUser(r)
	if host == "" && user == "" {
		return nil
	}
	return &RequesterInfo{Host: host, User: user}
}

// IfMatchToken returns the trimmed If-Match header, or "" when absent.
func IfMatchToken(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("If-Match"))
}
