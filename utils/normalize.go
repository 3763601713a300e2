package utils

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"rdpmon/model"
)

// Tri is the result of normalizing a loosely typed boolean field.
// TriNull covers explicit "not remote" / "unknown" signals; TriUnrepresented
// means the value carried no usable boolean meaning at all.
type Tri int

const (
	TriUnrepresented Tri = iota
	TriTrue
	TriFalse
	TriNull
)

var truthyTokens = map[string]bool{
	"true": true, "1": true, "yes": true, "y": true, "on": true,
	"remote": true, "rdp": true,
}

var falsyTokens = map[string]bool{
	"false": true, "0": true, "no": true, "n": true, "off": true,
	"local": true, "console": true,
}

var nullTokens = map[string]bool{
	"null": true, "unknown": true, "unset": true,
}

// NormalizeBool maps any input to the tri-state vocabulary. It is total:
// no input is an error.
func NormalizeBool(value any) Tri {
	switch v := value.(type) {
	case nil:
		return TriNull
	case bool:
		if v {
			return TriTrue
		}
		return TriFalse
	case float64:
		if v != 0 {
			return TriTrue
		}
		return TriFalse
	case int:
		if v != 0 {
			return TriTrue
		}
		return TriFalse
	case json.Number:
		if f, err := v.Float64(); err == nil {
			if f != 0 {
				return TriTrue
			}
			return TriFalse
		}
		return TriUnrepresented
	case string:
		token := strings.ToLower(strings.TrimSpace(v))
		switch {
		case token == "":
			return TriNull
		case truthyTokens[token]:
			return TriTrue
		case falsyTokens[token]:
			return TriFalse
		case nullTokens[token]:
			return TriNull
		}
		return TriUnrepresented
	}
	return TriUnrepresented
}

// CoerceBool collapses the tri-state to a plain bool: only an
// unambiguously truthy value counts as true.
func CoerceBool(value any) bool {
	return NormalizeBool(value) == TriTrue
}

// NormalizeStringList accepts a comma-separated string or a list and
// returns trimmed, non-empty, deduplicated entries in first-seen order.
func NormalizeStringList(value any) []string {
	var raw []string
	switch v := value.(type) {
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				raw = append(raw, s)
			}
		}
	}
	result := []string{}
	seen := make(map[string]bool, len(raw))
	for _, entry := range raw {
		trimmed := strings.TrimSpace(entry)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		result = append(result, trimmed)
	}
	return result
}

// NormalizeProcessStatuses accepts a single object or a list and keeps
// only well-formed entries: a non-empty name plus a coerced running flag.
func NormalizeProcessStatuses(value any) []model.ProcessStatus {
	var entries []any
	switch v := value.(type) {
	case map[string]any:
		entries = []any{v}
	case []any:
		entries = v
	}
	result := []model.ProcessStatus{}
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, ok := obj["name"].(string)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		running := false
		if raw, present := obj["running"]; present {
			if b, isBool := raw.(bool); isBool {
				running = b
			} else {
				running = CoerceBool(raw)
			}
		}
		result = append(result, model.ProcessStatus{Name: name, Running: running})
	}
	return result
}

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
var ipv6Chars = regexp.MustCompile(`^[0-9a-fA-F:]+$`)

// IsLikelyIP reports whether a value looks like an IPv4 or IPv6 address.
// IPv6 acceptance is loose on purpose: anything with a colon and hex
// characters passes, which is enough to tell an address from a hostname.
func IsLikelyIP(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	if ipv4Pattern.MatchString(trimmed) {
		for _, octet := range strings.Split(trimmed, ".") {
			n, err := strconv.Atoi(octet)
			if err != nil || n > 255 {
				return false
			}
		}
		return true
	}
	if strings.Contains(trimmed, ":") {
		return ipv6Chars.MatchString(trimmed)
	}
	return false
}

// NormalizeRemoteHostIP prefers an explicitly supplied IP-ish value and
// otherwise falls back to the remote-host string when that itself looks
// like an IP.
func NormalizeRemoteHostIP(value any, fallbackHost string) string {
	if value == nil {
		if IsLikelyIP(fallbackHost) {
			return strings.TrimSpace(fallbackHost)
		}
		return ""
	}
	asString := OptionalString(value)
	if asString != "" {
		return asString
	}
	if IsLikelyIP(fallbackHost) {
		return strings.TrimSpace(fallbackHost)
	}
	return ""
}

// OptionalString renders any scalar as a trimmed string; "" means absent.
func OptionalString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return strings.TrimSpace(v.String())
	}
	return ""
}

// OptionalNumber extracts a finite number from a scalar if one is there.
func OptionalNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, true
		}
	}
	return 0, false
}

// FirstPresent returns the value of the first key present in the payload,
// regardless of its value.
func FirstPresent(payload map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := payload[key]; ok {
			return value, true
		}
	}
	return nil, false
}

// SanitizeEventPayload produces a JSON-safe deep copy of a raw report for
// the append-only event log. Anything that does not survive a JSON round
// trip is dropped.
func SanitizeEventPayload(payload map[string]any) map[string]any {
	if len(payload) == 0 {
		return map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{}
	}
	sanitized := map[string]any{}
	if err := json.Unmarshal(data, &sanitized); err != nil {
		return map[string]any{}
	}
	return sanitized
}

// SanitizeResourceMetrics extracts the recognized metric fields from a
// reported metrics object, or nil when nothing usable is present.
func SanitizeResourceMetrics(value any) *model.ResourceMetrics {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	metrics := &model.ResourceMetrics{}
	populated := false
	if raw, present := FirstPresent(obj, "cpuTimeSeconds", "cpuSeconds"); present {
		if n, valid := OptionalNumber(raw); valid {
			metrics.CPUTimeSeconds = &n
			populated = true
		}
	}
	if raw, present := FirstPresent(obj, "workingSetBytes", "workingSet"); present {
		if n, valid := OptionalNumber(raw); valid {
			bytes := int64(math.Trunc(n))
			if bytes < 0 {
				bytes = 0
			}
			metrics.WorkingSetBytes = &bytes
			populated = true
		}
	}
	if raw, present := obj["processCount"]; present {
		if n, valid := OptionalNumber(raw); valid {
			count := int(math.Round(n))
			if count < 0 {
				count = 0
			}
			metrics.ProcessCount = &count
			populated = true
		}
	}
	if !populated {
		return nil
	}
	return metrics
}
