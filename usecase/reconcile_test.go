package usecase

import (
	"context"
	"errors"
	"testing"

	"rdpmon/model"
)

// memStore keeps the document in memory for engine tests.
type memStore struct {
	doc   *model.Document
	saves int
}

func newMemStore() *memStore {
	return &memStore{doc: model.NewDocument()}
}

func (m *memStore) LoadAll(_ context.Context) (*model.Document, error) {
	return m.doc, nil
}

func (m *memStore) SaveAll(_ context.Context, doc *model.Document) error {
	m.doc = doc
	m.saves++
	return nil
}

func newTestService() (*SessionService, *memStore) {
	store := newMemStore()
	return NewSessionService(store, nil), store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to connected", func(t *testing.T) {
		service, _ := newTestService()
		outcome, err := service.Create(ctx, map[string]any{
			"hostname": "PC1", "ipAddress": "10.0.0.5",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		session := outcome.Session
		if session.Status != model.StatusConnected {
			t.Errorf("status = %v, want connected", session.Status)
		}
		if session.RemoteControlled.IsConfirmed() {
			t.Error("remoteControlled should start unknown")
		}
		if len(session.ExpectedProcesses) != 0 {
			t.Errorf("expectedProcesses = %v, want empty", session.ExpectedProcesses)
		}
		if outcome.Event != model.EventCreated {
			t.Errorf("event = %v, want created", outcome.Event)
		}
		if session.ID == "" || session.LastUpdated == "" {
			t.Errorf("missing id or lastUpdated: %+v", session)
		}
	})

	t.Run("explicit disconnected honored", func(t *testing.T) {
		service, _ := newTestService()
		outcome, err := service.Create(ctx, map[string]any{
			"hostname": "PC1", "ipAddress": "10.0.0.5", "status": "disconnected",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if outcome.Session.Status != model.StatusDisconnected {
			t.Errorf("status = %v, want disconnected", outcome.Session.Status)
		}
	})

	t.Run("missing required fields", func(t *testing.T) {
		service, _ := newTestService()
		_, err := service.Create(ctx, map[string]any{"hostname": "PC1"})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("expected processes normalized", func(t *testing.T) {
		service, _ := newTestService()
		outcome, err := service.Create(ctx, map[string]any{
			"hostname": "PC1", "ipAddress": "10.0.0.5",
			"expectedProcesses": "a, b ,a",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got := outcome.Session.ExpectedProcesses
		if len(got) != 2 || got[0] != "a" || got[1] != "b" {
			t.Errorf("expectedProcesses = %v, want [a b]", got)
		}
	})
}

func TestAutoHeartbeat(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a client IP", func(t *testing.T) {
		service, _ := newTestService()
		_, err := service.AutoHeartbeat(ctx, map[string]any{}, "")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("creates then reconnects", func(t *testing.T) {
		service, _ := newTestService()

		first, err := service.AutoHeartbeat(ctx, map[string]any{"hostname": "PC1"}, "10.0.0.5")
		if err != nil {
			t.Fatalf("first heartbeat error = %v", err)
		}
		if first.Event != model.EventCreated {
			t.Errorf("first event = %v, want created", first.Event)
		}
		if first.Session.Hostname != "PC1" || first.Session.IPAddress != "10.0.0.5" {
			t.Errorf("session = %+v", first.Session)
		}

		second, err := service.AutoHeartbeat(ctx, map[string]any{"hostname": "PC1"}, "10.0.0.5")
		if err != nil {
			t.Fatalf("second heartbeat error = %v", err)
		}
		if second.Event != model.EventNone {
			t.Errorf("identical heartbeat classified %v, want none", second.Event)
		}
		if second.Session.ID != first.Session.ID {
			t.Error("heartbeat created a duplicate session")
		}
		if second.Session.Status != model.StatusConnected {
			t.Errorf("status = %v", second.Session.Status)
		}

		third, err := service.AutoHeartbeat(ctx, map[string]any{
			"hostname": "PC1", "remoteHost": "user.laptop",
		}, "10.0.0.5")
		if err != nil {
			t.Fatalf("third heartbeat error = %v", err)
		}
		if third.Event != model.EventConnected {
			t.Errorf("new remoteHost classified %v, want connected", third.Event)
		}
		if third.Session.RemoteHost != "user.laptop" {
			t.Errorf("remoteHost = %q", third.Session.RemoteHost)
		}
	})

	t.Run("hostname falls back to client IP", func(t *testing.T) {
		service, _ := newTestService()
		outcome, err := service.AutoHeartbeat(ctx, map[string]any{}, "10.0.0.9")
		if err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}
		if outcome.Session.Hostname != "10.0.0.9" {
			t.Errorf("hostname = %q, want client IP", outcome.Session.Hostname)
		}
	})

	t.Run("remote control stickiness", func(t *testing.T) {
		service, _ := newTestService()

		outcome, err := service.AutoHeartbeat(ctx, map[string]any{
			"hostname": "PC1", "remoteControlled": true,
		}, "10.0.0.5")
		if err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}
		if !outcome.Session.RemoteControlled.IsConfirmed() {
			t.Fatal("remoteControlled not confirmed after explicit true")
		}

		outcome, err = service.AutoHeartbeat(ctx, map[string]any{"hostname": "PC1"}, "10.0.0.5")
		if err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}
		if !outcome.Session.RemoteControlled.IsConfirmed() {
			t.Error("silent heartbeat cleared a confirmed flag")
		}

		outcome, err = service.AutoHeartbeat(ctx, map[string]any{
			"hostname": "PC1", "remoteControlled": "false",
		}, "10.0.0.5")
		if err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}
		if outcome.Session.RemoteControlled.IsConfirmed() {
			t.Error("explicit false did not clear the flag")
		}
	})

	t.Run("absent fields never overwrite", func(t *testing.T) {
		service, _ := newTestService()

		if _, err := service.AutoHeartbeat(ctx, map[string]any{
			"hostname": "PC1", "username": "alice", "notes": "rack 3",
		}, "10.0.0.5"); err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}

		outcome, err := service.AutoHeartbeat(ctx, map[string]any{"hostname": "PC1"}, "10.0.0.5")
		if err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}
		if outcome.Session.Username != "alice" || outcome.Session.Notes != "rack 3" {
			t.Errorf("fields clobbered: %+v", outcome.Session)
		}
	})

	t.Run("explicit process statuses replace wholesale", func(t *testing.T) {
		service, _ := newTestService()
		outcome, err := service.AutoHeartbeat(ctx, map[string]any{
			"hostname": "PC1",
			"processStatuses": []any{
				map[string]any{"name": "winword", "running": true},
			},
		}, "10.0.0.5")
		if err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}
		statuses := outcome.Session.ProcessStatuses
		if len(statuses) != 1 || statuses[0].Name != "winword" || !statuses[0].Running || statuses[0].LastChecked == "" {
			t.Errorf("processStatuses = %+v", statuses)
		}
	})

	t.Run("running list computed against expected processes", func(t *testing.T) {
		service, _ := newTestService()
		if _, err := service.AutoHeartbeat(ctx, map[string]any{
			"hostname":          "PC1",
			"expectedProcesses": "winword,excel",
		}, "10.0.0.5"); err != nil {
			t.Fatalf("seed heartbeat error = %v", err)
		}
		outcome, err := service.AutoHeartbeat(ctx, map[string]any{
			"hostname":         "PC1",
			"runningProcesses": []any{"WINWORD"},
		}, "10.0.0.5")
		if err != nil {
			t.Fatalf("heartbeat error = %v", err)
		}
		statuses := outcome.Session.ProcessStatuses
		if len(statuses) != 2 {
			t.Fatalf("statuses = %+v, want 2 entries", statuses)
		}
		byName := map[string]bool{}
		for _, status := range statuses {
			byName[status.Name] = status.Running
		}
		if !byName["winword"] || byName["excel"] {
			t.Errorf("running flags = %v", byName)
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*SessionService, *model.Session) {
		t.Helper()
		service, _ := newTestService()
		outcome, err := service.Create(ctx, map[string]any{
			"hostname": "PC1", "ipAddress": "10.0.0.5", "notes": "keep me",
		})
		if err != nil {
			t.Fatalf("seed create error = %v", err)
		}
		return service, outcome.Session
	}

	t.Run("unknown id", func(t *testing.T) {
		service, _ := seed(t)
		_, err := service.Update(ctx, "missing", map[string]any{}, "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("omitted keys never clear", func(t *testing.T) {
		service, session := seed(t)
		outcome, err := service.Update(ctx, session.ID, map[string]any{"username": "bob"}, "")
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if outcome.Session.Notes != "keep me" {
			t.Errorf("notes cleared: %q", outcome.Session.Notes)
		}
		if outcome.Session.Username != "bob" {
			t.Errorf("username = %q", outcome.Session.Username)
		}
	})

	t.Run("stale token conflicts", func(t *testing.T) {
		service, session := seed(t)
		stale := session.LastUpdated

		if _, err := service.Update(ctx, session.ID, map[string]any{"notes": "first"}, stale); err != nil {
			t.Fatalf("first update error = %v", err)
		}
		_, err := service.Update(ctx, session.ID, map[string]any{"notes": "second"}, stale)
		if !errors.Is(err, ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})

	t.Run("reconnect classified", func(t *testing.T) {
		service, session := seed(t)
		if _, err := service.Update(ctx, session.ID, map[string]any{"status": "disconnected"}, ""); err != nil {
			t.Fatalf("disconnect error = %v", err)
		}
		outcome, err := service.Update(ctx, session.ID, map[string]any{"status": "connected"}, "")
		if err != nil {
			t.Fatalf("reconnect error = %v", err)
		}
		if outcome.Event != model.EventConnected {
			t.Errorf("event = %v, want connected", outcome.Event)
		}
	})

	t.Run("new remote user classified", func(t *testing.T) {
		service, session := seed(t)
		outcome, err := service.Update(ctx, session.ID, map[string]any{"remoteUser": "mallory"}, "")
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if outcome.Event != model.EventConnected {
			t.Errorf("event = %v, want connected", outcome.Event)
		}
	})

	t.Run("explicit remoteControlled clears", func(t *testing.T) {
		service, session := seed(t)
		if _, err := service.Update(ctx, session.ID, map[string]any{"remoteControlled": "true"}, ""); err != nil {
			t.Fatalf("confirm error = %v", err)
		}
		outcome, err := service.Update(ctx, session.ID, map[string]any{"remoteControlled": "false"}, "")
		if err != nil {
			t.Fatalf("clear error = %v", err)
		}
		if outcome.Session.RemoteControlled.IsConfirmed() {
			t.Error("explicit false left the flag confirmed")
		}
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("start creates when unmatched", func(t *testing.T) {
		service, store := newTestService()
		result, err := service.RecordStart(ctx, map[string]any{
			"sessionId": "ext-9", "resourceId": "PC1", "userId": "alice",
		}, nil)
		if err != nil {
			t.Fatalf("RecordStart() error = %v", err)
		}
		if result.EventID == "" {
			t.Error("missing event id")
		}
		if result.Outcome.Event != model.EventCreated {
			t.Errorf("event = %v, want created", result.Outcome.Event)
		}
		session := result.Outcome.Session
		if session.Hostname != "PC1" || session.Username != "alice" || session.ExternalSessionID != "ext-9" {
			t.Errorf("session = %+v", session)
		}
		if session.StartedAt == "" || session.Status != model.StatusConnected {
			t.Errorf("lifecycle fields = %+v", session)
		}
		if len(store.doc.SessionEvents) != 1 || store.doc.SessionEvents[0].Type != model.EventTypeSessionStart {
			t.Errorf("events = %+v", store.doc.SessionEvents)
		}
	})

	t.Run("start reconnects a disconnected session", func(t *testing.T) {
		service, _ := newTestService()
		create, err := service.Create(ctx, map[string]any{
			"hostname": "PC1", "ipAddress": "10.0.0.5", "status": "disconnected",
		})
		if err != nil {
			t.Fatalf("seed error = %v", err)
		}
		result, err := service.RecordStart(ctx, map[string]any{"resourceId": "PC1"}, nil)
		if err != nil {
			t.Fatalf("RecordStart() error = %v", err)
		}
		if result.Outcome.Event != model.EventConnected {
			t.Errorf("event = %v, want connected", result.Outcome.Event)
		}
		if result.Outcome.Session.ID != create.Session.ID {
			t.Error("start created a duplicate session")
		}
	})

	t.Run("end resets remote control but notifies with prior value", func(t *testing.T) {
		service, _ := newTestService()
		if _, err := service.Create(ctx, map[string]any{
			"hostname": "PC1", "ipAddress": "10.0.0.5", "remoteControlled": true,
		}); err != nil {
			t.Fatalf("seed error = %v", err)
		}
		result, err := service.RecordEnd(ctx, map[string]any{
			"resourceId": "PC1", "disconnectReason": "logoff",
			"lastObservedIdleSeconds": float64(120),
		})
		if err != nil {
			t.Fatalf("RecordEnd() error = %v", err)
		}
		session := result.Outcome.Session
		if session.Status != model.StatusDisconnected || session.EndedAt == "" {
			t.Errorf("session = %+v", session)
		}
		if session.RemoteControlled.IsConfirmed() {
			t.Error("persisted remoteControlled should reset to unknown")
		}
		if !result.Outcome.Notify.RemoteControlled.IsConfirmed() {
			t.Error("notification snapshot lost the pre-reset value")
		}
		if session.DisconnectReason != "logoff" {
			t.Errorf("disconnectReason = %q", session.DisconnectReason)
		}
		if session.LastIdleSeconds == nil || *session.LastIdleSeconds != 120 {
			t.Errorf("lastIdleSeconds = %v", session.LastIdleSeconds)
		}
		if result.Outcome.Event != model.EventEnded {
			t.Errorf("event = %v, want ended", result.Outcome.Event)
		}
	})

	t.Run("end with no match still records the event", func(t *testing.T) {
		service, store := newTestService()
		result, err := service.RecordEnd(ctx, map[string]any{"resourceId": "ghost"})
		if err != nil {
			t.Fatalf("RecordEnd() error = %v", err)
		}
		if result.Outcome.Event != model.EventNone || result.Outcome.Session != nil {
			t.Errorf("outcome = %+v, want no session", result.Outcome)
		}
		if len(store.doc.SessionEvents) != 1 {
			t.Errorf("events = %d, want 1", len(store.doc.SessionEvents))
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	service, store := newTestService()

	outcome, err := service.Create(ctx, map[string]any{
		"hostname": "PC1", "ipAddress": "10.0.0.5",
	})
	if err != nil {
		t.Fatalf("seed error = %v", err)
	}

	if err := service.Delete(ctx, outcome.Session.ID, "wrong-token"); !errors.Is(err, ErrConflict) {
		t.Errorf("stale delete error = %v, want ErrConflict", err)
	}
	if err := service.Delete(ctx, outcome.Session.ID, outcome.Session.LastUpdated); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(store.doc.Sessions) != 0 {
		t.Errorf("sessions remaining = %d", len(store.doc.Sessions))
	}
	if err := service.Delete(ctx, outcome.Session.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}
