package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatDuration renders a second count as "Xh Ym Zs", omitting leading
// zero units. Negative or non-finite input yields "".
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return ""
	}
	rounded := int64(math.Round(seconds))
	hours := rounded / 3600
	minutes := (rounded % 3600) / 60
	secs := rounded % 60
	parts := []string{}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// FormatBytes renders a byte count with binary prefixes, keeping one
// decimal place below ten units.
func FormatBytes(bytes float64) string {
	if math.IsNaN(bytes) || math.IsInf(bytes, 0) || bytes < 0 {
		return ""
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	value := bytes
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	if value >= 10 {
		return fmt.Sprintf("%d%s", int64(math.Round(value)), units[unit])
	}
	return fmt.Sprintf("%g%s", math.Round(value*10)/10, units[unit])
}
