package model

import (
	"encoding/json"
	"testing"
)

func TestRemoteControlJSON(t *testing.T) {
	t.Run("confirmed marshals as true", func(t *testing.T) {
		data, err := json.Marshal(RemoteConfirmed())
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "true" {
			t.Errorf("got %s, want true", data)
		}
	})

	t.Run("unknown marshals as null, never false", func(t *testing.T) {
		data, err := json.Marshal(RemoteUnknown())
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "null" {
			t.Errorf("got %s, want null", data)
		}
	})

	t.Run("only literal true confirms on unmarshal", func(t *testing.T) {
		for raw, want := range map[string]bool{
			"true":   true,
			"false":  false,
			"null":   false,
			`"true"`: false,
		} {
			var rc RemoteControl
			if err := json.Unmarshal([]byte(raw), &rc); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", raw, err)
			}
			if rc.IsConfirmed() != want {
				t.Errorf("Unmarshal(%s).IsConfirmed() = %v, want %v", raw, rc.IsConfirmed(), want)
			}
		}
	})
}

func TestSessionNormalize(t *testing.T) {
	session := &Session{
		ID:                "s-1",
		ExpectedProcesses: []string{" a ", "", "a", "b"},
		ProcessStatuses: []ProcessStatus{
			{Name: "winword", Running: true},
			{Name: "", Running: true},
		},
	}
	session.Normalize()

	if len(session.ExpectedProcesses) != 2 || session.ExpectedProcesses[0] != "a" || session.ExpectedProcesses[1] != "b" {
		t.Errorf("expectedProcesses = %v", session.ExpectedProcesses)
	}
	if len(session.ProcessStatuses) != 1 || session.ProcessStatuses[0].Name != "winword" {
		t.Errorf("processStatuses = %v", session.ProcessStatuses)
	}
	if session.Status != StatusConnected {
		t.Errorf("status default = %v", session.Status)
	}
}
