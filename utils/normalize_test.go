package utils

import (
	"reflect"
	"testing"
)

func TestNormalizeBool(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Tri
	}{
		{"nil", nil, TriNull},
		{"bool true", true, TriTrue},
		{"bool false", false, TriFalse},
		{"number nonzero", float64(2), TriTrue},
		{"number zero", float64(0), TriFalse},
		{"string true", "true", TriTrue},
		{"string yes spaced", "  YES ", TriTrue},
		{"string remote", "remote", TriTrue},
		{"string rdp", "rdp", TriTrue},
		{"string false", "false", TriFalse},
		{"string console", "console", TriFalse},
		{"string local", "local", TriFalse},
		{"string unknown", "unknown", TriNull},
		{"string null", "null", TriNull},
		{"string empty", "", TriNull},
		{"string garbage", "maybe", TriUnrepresented},
		{"unsupported type", []string{"true"}, TriUnrepresented},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBool(tt.input); got != tt.want {
				t.Errorf("NormalizeBool(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeStringList(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []string
	}{
		{"comma string with dupes", "a, b ,a", []string{"a", "b"}},
		{"list input", []any{"chrome", " edge ", "chrome"}, []string{"chrome", "edge"}},
		{"drops empties", ",, ,x", []string{"x"}},
		{"non-string entries skipped", []any{"a", 4, "b"}, []string{"a", "b"}},
		{"nil", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeStringList(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeStringList(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeProcessStatuses(t *testing.T) {
	t.Run("keeps well-formed entries only", func(t *testing.T) {
		input := []any{
			map[string]any{"name": "winword", "running": true},
			map[string]any{"name": "  ", "running": true},
			map[string]any{"running": true},
			map[string]any{"name": "excel", "running": "yes"},
			"not an object",
		}
		got := NormalizeProcessStatuses(input)
		if len(got) != 2 {
			t.Fatalf("got %d entries, want 2: %v", len(got), got)
		}
		if got[0].Name != "winword" || !got[0].Running {
			t.Errorf("first entry = %+v", got[0])
		}
		if got[1].Name != "excel" || !got[1].Running {
			t.Errorf("second entry = %+v", got[1])
		}
	})

	t.Run("single object accepted", func(t *testing.T) {
		got := NormalizeProcessStatuses(map[string]any{"name": "mstsc", "running": 0})
		if len(got) != 1 || got[0].Running {
			t.Errorf("got %v, want single stopped mstsc", got)
		}
	})
}

func TestIsLikelyIP(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"10.0.0.5", true},
		{"255.255.255.255", true},
		{"256.0.0.1", false},
		{"10.0.0", false},
		{"fe80::1", true},
		{"::1", true},
		{"user.laptop", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsLikelyIP(tt.input); got != tt.want {
			t.Errorf("IsLikelyIP(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeRemoteHostIP(t *testing.T) {
	if got := NormalizeRemoteHostIP("192.168.1.9", "whatever"); got != "192.168.1.9" {
		t.Errorf("explicit value not preferred: %q", got)
	}
	if got := NormalizeRemoteHostIP(nil, "10.1.2.3"); got != "10.1.2.3" {
		t.Errorf("IP-like host not adopted: %q", got)
	}
	if got := NormalizeRemoteHostIP(nil, "user.laptop"); got != "" {
		t.Errorf("hostname should not become an IP: %q", got)
	}
}

func TestSanitizeResourceMetrics(t *testing.T) {
	t.Run("recognized fields extracted", func(t *testing.T) {
		got := SanitizeResourceMetrics(map[string]any{
			"cpuTimeSeconds":  float64(12.5),
			"workingSetBytes": float64(2048),
			"processCount":    float64(3),
			"extra":           "ignored",
		})
		if got == nil {
			t.Fatal("got nil metrics")
		}
		if *got.CPUTimeSeconds != 12.5 || *got.WorkingSetBytes != 2048 || *got.ProcessCount != 3 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("nothing usable yields nil", func(t *testing.T) {
		if got := SanitizeResourceMetrics(map[string]any{"foo": "bar"}); got != nil {
			t.Errorf("got %+v, want nil", got)
		}
		if got := SanitizeResourceMetrics("not an object"); got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})
}
