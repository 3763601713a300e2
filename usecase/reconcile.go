package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"rdpmon/model"
	"rdpmon/repository"
	"rdpmon/utils"
)

// ListCache caches the rendered session list between mutations.
// Implemented by services.SessionCache; optional.
type ListCache interface {
	GetSessions(ctx context.Context) ([]*model.Session, bool)
	SetSessions(ctx context.Context, sessions []*model.Session)
	Invalidate(ctx context.Context)
}

// SessionService is the reconciliation engine: each entry point loads
// the whole document, merges one report into it, saves it back, and
// classifies the resulting transition.
type SessionService struct {
	Store repository.Store
	Cache ListCache
}

func NewSessionService(store repository.Store, cache ListCache) *SessionService {
	return &SessionService{Store: store, Cache: cache}
}

// Outcome is the result of reconciling one report.
type Outcome struct {
	Session *model.Session
	// Event classifies the transition; EventNone when nothing notable
	// happened.
	Event model.EventKind
	// Notify is the snapshot handed to the notifier. For ended sessions
	// it keeps the pre-reset remote-control flag so the notification can
	// still say "via remote control".
	Notify *model.Session
}

// EndDetails carries the end report's context fields into the
// notification; none of them are persisted on the session except the
// idle time and disconnect reason.
type EndDetails struct {
	DisconnectReason          string
	SessionDurationSeconds    *float64
	SecondsSinceLastHeartbeat *float64
	LastIdleSeconds           *float64
	ResourceMetrics           *model.ResourceMetrics
}

// LifecycleResult is the outcome of recording a start/end event.
type LifecycleResult struct {
	EventID string
	Outcome Outcome
	End     *EndDetails
}

// Remote-host IP aliases accepted from heartbeat reporters; manual
// updates accept the first four.
var heartbeatRemoteIPKeys = []string{
	"remoteHostIpAddress",
	"remoteHostIp",
	"remoteIpAddress",
	"remoteIp",
	"remoteHostAddress",
	"connectionSourceIp",
	"accessHostIp",
}

var updateRemoteIPKeys = heartbeatRemoteIPKeys[:4]

// List returns all tracked sessions, through the cache when one is
// configured.
func (s *SessionService) List(ctx context.Context) ([]*model.Session, error) {
	if s.Cache != nil {
		if sessions, ok := s.Cache.GetSessions(ctx); ok {
			return sessions, nil
		}
	}
	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.SetSessions(ctx, doc.Sessions)
	}
	return doc.Sessions, nil
}

func (s *SessionService) save(ctx context.Context, doc *model.Document) error {
	if err := s.Store.SaveAll(ctx, doc); err != nil {
		return err
	}
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
	return nil
}

// Create registers a session from an explicit manual report. Requires
// hostname and ipAddress; always classifies as created.
func (s *SessionService) Create(ctx context.Context, payload map[string]any) (*Outcome, error) {
	hostname := utils.OptionalString(payload["hostname"])
	ipAddress := utils.OptionalString(payload["ipAddress"])
	if hostname == "" || ipAddress == "" {
		return nil, fmt.Errorf("%w: hostname and ipAddress are required", ErrValidation)
	}

	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	now := utils.NowStamp()
	statuses := utils.NormalizeProcessStatuses(payload["processStatuses"])
	for i := range statuses {
		statuses[i].LastChecked = now
	}
	remoteHost := utils.OptionalString(payload["remoteHost"])
	remoteIPInput, _ := utils.FirstPresent(payload, updateRemoteIPKeys...)
	inference := InferRemoteControl(payload, model.RemoteUnknown())

	status := model.StatusConnected
	if utils.OptionalString(payload["status"]) == string(model.StatusDisconnected) {
		status = model.StatusDisconnected
	}

	session := &model.Session{
		ID:                  uuid.NewString(),
		Hostname:            hostname,
		IPAddress:           ipAddress,
		Username:            utils.OptionalString(payload["username"]),
		RemoteUser:          utils.OptionalString(payload["remoteUser"]),
		RemoteHost:          remoteHost,
		RemoteHostIPAddress: utils.NormalizeRemoteHostIP(remoteIPInput, remoteHost),
		RemoteControlled:    inference.Value,
		Status:              status,
		LastSeen:            now,
		LastUpdated:         now,
		Notes:               utils.OptionalString(payload["notes"]),
		ExpectedProcesses:   utils.NormalizeStringList(payload["expectedProcesses"]),
		ProcessStatuses:     statuses,
	}
	doc.Sessions = append(doc.Sessions, session)

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	return &Outcome{Session: session, Event: model.EventCreated, Notify: session.Clone()}, nil
}

// AutoHeartbeat merges a periodic liveness report, matched by client IP
// first and reported hostname second. Only fields actually present in
// the report overwrite existing data.
func (s *SessionService) AutoHeartbeat(ctx context.Context, payload map[string]any, clientIP string) (*Outcome, error) {
	if clientIP == "" {
		return nil, fmt.Errorf("%w: unable to determine client IP address", ErrValidation)
	}

	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	now := utils.NowStamp()
	reportedHostname := utils.OptionalString(payload["hostname"])
	hostname := reportedHostname
	if hostname == "" {
		hostname = clientIP
	}
	username := utils.OptionalString(payload["username"])

	_, hasRemoteHost := payload["remoteHost"]
	remoteHost := ""
	if hasRemoteHost {
		remoteHost = utils.OptionalString(payload["remoteHost"])
	}
	remoteIPInput, hasRemoteIPKey := utils.FirstPresent(payload, heartbeatRemoteIPKeys...)
	remoteHostIP := utils.NormalizeRemoteHostIP(remoteIPInput, remoteHost)
	hasRemoteIP := hasRemoteIPKey || (hasRemoteHost && utils.IsLikelyIP(remoteHost))
	_, hasRemoteUser := payload["remoteUser"]
	remoteUser := ""
	if hasRemoteUser {
		remoteUser = utils.OptionalString(payload["remoteUser"])
	}
	notes := utils.OptionalString(payload["notes"])
	expected := utils.NormalizeStringList(payload["expectedProcesses"])
	running := utils.NormalizeStringList(payload["runningProcesses"])
	if len(running) == 0 {
		running = utils.NormalizeStringList(payload["processes"])
	}
	reported := utils.NormalizeProcessStatuses(payload["processStatuses"])

	session := FindByAddress(doc.Sessions, clientIP, hostname, reportedHostname != "")
	had := session != nil

	previousRemote := model.RemoteUnknown()
	previousStatus := model.SessionStatus("")
	previousRemoteHost := ""
	previousRemoteUser := ""
	previousRemoteHostIP := ""
	if had {
		previousRemote = session.RemoteControlled
		previousStatus = session.Status
		previousRemoteHost = session.RemoteHost
		previousRemoteUser = session.RemoteUser
		previousRemoteHostIP = session.RemoteHostIPAddress
	}
	inference := InferRemoteControl(payload, previousRemote)

	if had {
		session.Hostname = hostname
		if username != "" {
			session.Username = username
		}
		if hasRemoteHost {
			session.RemoteHost = remoteHost
		}
		if hasRemoteIP {
			session.RemoteHostIPAddress = remoteHostIP
		}
		if hasRemoteUser {
			session.RemoteUser = remoteUser
		}
		if notes != "" {
			session.Notes = notes
		}
		session.IPAddress = clientIP
		session.Status = model.StatusConnected
		session.LastSeen = now
		session.LastUpdated = now

		// Explicit signals and unknown state adopt the inference
		// outright; a standing confirmed value only ever upgrades.
		if inference.Explicit || !session.RemoteControlled.IsConfirmed() {
			session.RemoteControlled = inference.Value
		} else if inference.Value.IsConfirmed() {
			session.RemoteControlled = model.RemoteConfirmed()
		}

		if len(expected) > 0 {
			session.ExpectedProcesses = expected
		}
		if len(reported) > 0 {
			session.ProcessStatuses = stampStatuses(reported, now)
		} else if len(running) > 0 {
			session.ProcessStatuses = statusesFromRunning(session.ExpectedProcesses, running, now)
		}
	} else {
		session = &model.Session{
			ID:                uuid.NewString(),
			Hostname:          hostname,
			IPAddress:         clientIP,
			Username:          username,
			RemoteUser:        remoteUser,
			RemoteHost:        remoteHost,
			RemoteControlled:  inference.Value,
			Status:            model.StatusConnected,
			LastSeen:          now,
			LastUpdated:       now,
			Notes:             notes,
			ExpectedProcesses: expected,
		}
		if hasRemoteIP {
			session.RemoteHostIPAddress = remoteHostIP
		}
		if len(reported) > 0 {
			session.ProcessStatuses = stampStatuses(reported, now)
		} else {
			session.ProcessStatuses = make([]model.ProcessStatus, 0, len(running))
			for _, name := range running {
				session.ProcessStatuses = append(session.ProcessStatuses, model.ProcessStatus{
					Name: name, Running: true, LastChecked: now,
				})
			}
		}
		doc.Sessions = append(doc.Sessions, session)
	}

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	event := model.EventNone
	switch {
	case !had:
		event = model.EventCreated
	case previousStatus != model.StatusConnected:
		event = model.EventConnected
	case (remoteHost != "" && remoteHost != previousRemoteHost) ||
		(remoteUser != "" && remoteUser != previousRemoteUser) ||
		(hasRemoteIP && remoteHostIP != previousRemoteHostIP):
		event = model.EventConnected
	}
	return &Outcome{Session: session, Event: event, Notify: session.Clone()}, nil
}

// Update applies a manual field edit. Only fields present in the payload
// change; an omitted key never clears anything.
func (s *SessionService) Update(ctx context.Context, id string, payload map[string]any, matchToken string) (*Outcome, error) {
	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	_, session := FindByID(doc.Sessions, id)
	if session == nil {
		return nil, ErrNotFound
	}
	if matchToken != "" && matchToken != session.LastUpdated {
		return nil, ErrConflict
	}

	previousStatus := session.Status
	previousRemoteHost := session.RemoteHost
	previousRemoteUser := session.RemoteUser
	previousRemoteHostIP := session.RemoteHostIPAddress

	updated := false
	if hostname := utils.OptionalString(payload["hostname"]); hostname != "" {
		session.Hostname = hostname
		updated = true
	}
	if ipAddress := utils.OptionalString(payload["ipAddress"]); ipAddress != "" {
		session.IPAddress = ipAddress
		updated = true
	}
	if _, present := payload["username"]; present {
		session.Username = utils.OptionalString(payload["username"])
		updated = true
	}
	if _, present := payload["remoteHost"]; present {
		session.RemoteHost = utils.OptionalString(payload["remoteHost"])
		updated = true
	}
	remoteIPInput, hasRemoteIP := utils.FirstPresent(payload, updateRemoteIPKeys...)
	if hasRemoteIP {
		session.RemoteHostIPAddress = utils.NormalizeRemoteHostIP(remoteIPInput, session.RemoteHost)
		updated = true
	}
	if _, present := payload["remoteUser"]; present {
		session.RemoteUser = utils.OptionalString(payload["remoteUser"])
		updated = true
	}
	if value, present := payload["remoteControlled"]; present {
		if utils.NormalizeBool(value) == utils.TriTrue {
			session.RemoteControlled = model.RemoteConfirmed()
		} else {
			session.RemoteControlled = model.RemoteUnknown()
		}
		updated = true
	}
	if _, present := payload["notes"]; present {
		session.Notes = utils.OptionalString(payload["notes"])
		updated = true
	}
	if _, present := payload["expectedProcesses"]; present {
		session.ExpectedProcesses = utils.NormalizeStringList(payload["expectedProcesses"])
		updated = true
	}
	if _, present := payload["processStatuses"]; present {
		session.ProcessStatuses = stampStatuses(
			utils.NormalizeProcessStatuses(payload["processStatuses"]), utils.NowStamp())
		updated = true
	}
	if status := utils.OptionalString(payload["status"]); status != "" {
		next := model.StatusConnected
		if status == string(model.StatusDisconnected) {
			next = model.StatusDisconnected
		}
		if session.Status != next {
			session.Status = next
			session.LastUpdated = utils.NowStamp()
		}
		updated = true
	}
	if lastSeen := utils.OptionalString(payload["lastSeen"]); lastSeen != "" {
		if stamp, ok := utils.ParseStamp(lastSeen); ok {
			session.LastSeen = stamp
			updated = true
		}
	}

	event := model.EventNone
	if updated {
		session.LastUpdated = utils.NowStamp()
		if err := s.save(ctx, doc); err != nil {
			return nil, err
		}
		_, hasRemoteHost := payload["remoteHost"]
		_, hasRemoteUser := payload["remoteUser"]
		switch {
		case session.Status == model.StatusConnected && previousStatus != model.StatusConnected:
			event = model.EventConnected
		case (hasRemoteHost && session.RemoteHost != "" && session.RemoteHost != previousRemoteHost) ||
			(hasRemoteUser && session.RemoteUser != "" && session.RemoteUser != previousRemoteUser) ||
			(hasRemoteIP && session.RemoteHostIPAddress != "" && session.RemoteHostIPAddress != previousRemoteHostIP):
			event = model.EventConnected
		}
	}
	return &Outcome{Session: session, Event: event, Notify: session.Clone()}, nil
}

// Heartbeat refreshes liveness for a known session id.
func (s *SessionService) Heartbeat(ctx context.Context, id, matchToken string) (*model.Session, error) {
	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	_, session := FindByID(doc.Sessions, id)
	if session == nil {
		return nil, ErrNotFound
	}
	if matchToken != "" && matchToken != session.LastUpdated {
		return nil, ErrConflict
	}
	session.LastSeen = utils.NowStamp()
	session.Status = model.StatusConnected
	session.LastUpdated = session.LastSeen
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	return session, nil
}

// Announce stamps the session and classifies a usage-intent event.
func (s *SessionService) Announce(ctx context.Context, id, matchToken string) (*Outcome, error) {
	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	_, session := FindByID(doc.Sessions, id)
	if session == nil {
		return nil, ErrNotFound
	}
	if matchToken != "" && matchToken != session.LastUpdated {
		return nil, ErrConflict
	}
	session.LastUpdated = utils.NowStamp()
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	return &Outcome{Session: session, Event: model.EventUsageIntent, Notify: session.Clone()}, nil
}

// Delete removes a session by explicit operator action.
func (s *SessionService) Delete(ctx context.Context, id, matchToken string) error {
	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return err
	}
	index, session := FindByID(doc.Sessions, id)
	if session == nil {
		return ErrNotFound
	}
	if matchToken != "" && matchToken != session.LastUpdated {
		return ErrConflict
	}
	doc.Sessions = append(doc.Sessions[:index], doc.Sessions[index+1:]...)
	return s.save(ctx, doc)
}

// RecordStart records a session.start report: the raw event is always
// appended, and the matched (or newly created) session is marked
// connected.
func (s *SessionService) RecordStart(ctx context.Context, payload map[string]any, fallbackEnv *model.ClientEnvironment) (*LifecycleResult, error) {
	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := utils.NowStamp()
	sessionID := firstOptionalString(payload, "sessionId", "sessionName")
	resourceID := firstOptionalString(payload, "resourceId", "hostname")
	userID := firstOptionalString(payload, "userId", "username")

	event := &model.SessionEvent{
		ID:         uuid.NewString(),
		Type:       model.EventTypeSessionStart,
		Timestamp:  timestamp,
		SessionID:  sessionID,
		ResourceID: resourceID,
		UserID:     userID,
		Channel:    utils.OptionalString(payload["channel"]),
		MFAResult:  mfaResult(payload),
		Payload:    utils.SanitizeEventPayload(payload),
	}
	if env := clientEnvironment(payload, fallbackEnv); env != nil {
		event.ClientEnvironment = env
	}
	doc.SessionEvents = append(doc.SessionEvents, event)

	target := FindSession(doc.Sessions, sessionID, resourceID)
	previousStatus := model.SessionStatus("")
	created := false
	if target == nil {
		target = &model.Session{
			ID:                uuid.NewString(),
			Hostname:          resourceID,
			Username:          userID,
			RemoteControlled:  model.RemoteUnknown(),
			Status:            model.StatusConnected,
			ExpectedProcesses: []string{},
			ProcessStatuses:   []model.ProcessStatus{},
		}
		doc.Sessions = append(doc.Sessions, target)
		created = true
	} else {
		previousStatus = target.Status
	}

	if sessionID != "" {
		target.ExternalSessionID = sessionID
	}
	if resourceID != "" && target.Hostname == "" {
		target.Hostname = resourceID
	}
	if userID != "" && target.Username == "" {
		target.Username = userID
	}
	target.Status = model.StatusConnected
	target.LastUpdated = timestamp
	target.LastSeen = timestamp
	target.StartedAt = timestamp
	target.EndedAt = ""
	target.DisconnectReason = ""

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	kind := model.EventNone
	if created {
		kind = model.EventCreated
	} else if previousStatus != model.StatusConnected {
		kind = model.EventConnected
	}
	return &LifecycleResult{
		EventID: event.ID,
		Outcome: Outcome{Session: target, Event: kind, Notify: target.Clone()},
	}, nil
}

// RecordEnd records a session.end report. The raw event is appended even
// when no session matches; a matched session is marked disconnected and
// its remote-control flag resets to unknown. The notification snapshot
// keeps the pre-reset flag.
func (s *SessionService) RecordEnd(ctx context.Context, payload map[string]any) (*LifecycleResult, error) {
	doc, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := utils.NowStamp()
	sessionID := firstOptionalString(payload, "sessionId", "sessionName")
	resourceID := firstOptionalString(payload, "resourceId", "hostname")
	userID := firstOptionalString(payload, "userId", "username")
	disconnectReason := utils.OptionalString(payload["disconnectReason"])
	duration := optionalNumberPtr(payload["sessionDurationSeconds"])
	heartbeatGap := optionalNumberPtr(payload["secondsSinceLastHeartbeat"])
	lastIdle := optionalNumberPtr(payload["lastObservedIdleSeconds"])
	metrics := utils.SanitizeResourceMetrics(payload["resourceMetrics"])

	event := &model.SessionEvent{
		ID:                        uuid.NewString(),
		Type:                      model.EventTypeSessionEnd,
		Timestamp:                 timestamp,
		SessionID:                 sessionID,
		ResourceID:                resourceID,
		UserID:                    userID,
		DisconnectReason:          disconnectReason,
		SessionDurationSeconds:    duration,
		SecondsSinceLastHeartbeat: heartbeatGap,
		LastObservedIdleSeconds:   lastIdle,
		ResourceMetrics:           metrics,
		Payload:                   utils.SanitizeEventPayload(payload),
	}
	doc.SessionEvents = append(doc.SessionEvents, event)

	target := FindSession(doc.Sessions, sessionID, resourceID)
	var notify *model.Session
	if target != nil {
		previousRemote := target.RemoteControlled
		target.Status = model.StatusDisconnected
		target.LastUpdated = timestamp
		target.LastSeen = timestamp
		target.EndedAt = timestamp
		target.RemoteControlled = model.RemoteUnknown()
		if disconnectReason != "" {
			target.DisconnectReason = disconnectReason
		}
		if sessionID != "" {
			target.ExternalSessionID = sessionID
		}
		if userID != "" && target.Username == "" {
			target.Username = userID
		}
		target.LastIdleSeconds = lastIdle

		notify = target.Clone()
		notify.RemoteControlled = previousRemote
	} else {
		log.Printf("session.end report matched no session (sessionId=%q resourceId=%q); event %s recorded", sessionID, resourceID, event.ID)
	}

	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}

	kind := model.EventNone
	if target != nil {
		kind = model.EventEnded
	}
	return &LifecycleResult{
		EventID: event.ID,
		Outcome: Outcome{Session: target, Event: kind, Notify: notify},
		End: &EndDetails{
			DisconnectReason:          disconnectReason,
			SessionDurationSeconds:    duration,
			SecondsSinceLastHeartbeat: heartbeatGap,
			LastIdleSeconds:           lastIdle,
			ResourceMetrics:           metrics,
		},
	}, nil
}

func stampStatuses(statuses []model.ProcessStatus, now string) []model.ProcessStatus {
	stamped := make([]model.ProcessStatus, len(statuses))
	for i, entry := range statuses {
		entry.LastChecked = now
		stamped[i] = entry
	}
	return stamped
}

// statusesFromRunning computes running/stopped flags for the tracked
// process list from a flat report of currently running names. Without a
// tracked list the reported names themselves are tracked.
func statusesFromRunning(expected, running []string, now string) []model.ProcessStatus {
	runningSet := make(map[string]bool, len(running))
	for _, name := range running {
		runningSet[strings.ToLower(name)] = true
	}
	tracked := expected
	if len(tracked) == 0 {
		tracked = running
	}
	statuses := make([]model.ProcessStatus, 0, len(tracked))
	for _, name := range tracked {
		statuses = append(statuses, model.ProcessStatus{
			Name:        name,
			Running:     runningSet[strings.ToLower(name)],
			LastChecked: now,
		})
	}
	return statuses
}

func firstOptionalString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := utils.OptionalString(payload[key]); value != "" {
			return value
		}
	}
	return ""
}

func optionalNumberPtr(value any) *float64 {
	if n, ok := utils.OptionalNumber(value); ok {
		return &n
	}
	return nil
}

func mfaResult(payload map[string]any) string {
	if auth, ok := payload["authentication"].(map[string]any); ok {
		if result := utils.OptionalString(auth["mfa"]); result != "" {
			return result
		}
		return ""
	}
	return utils.OptionalString(payload["mfaResult"])
}

// clientEnvironment assembles the reported client environment, falling
// back to flat fields and finally to what the transport (User-Agent)
// could tell.
func clientEnvironment(payload map[string]any, fallback *model.ClientEnvironment) *model.ClientEnvironment {
	env := &model.ClientEnvironment{}
	if nested, ok := payload["clientEnvironment"].(map[string]any); ok {
		env.OperatingSystem = utils.OptionalString(nested["operatingSystem"])
		env.Application = utils.OptionalString(nested["application"])
	}
	if env.OperatingSystem == "" {
		env.OperatingSystem = utils.OptionalString(payload["clientOperatingSystem"])
	}
	if env.Application == "" {
		env.Application = utils.OptionalString(payload["clientApplication"])
	}
	if env.OperatingSystem == "" && env.Application == "" && fallback != nil {
		env.OperatingSystem = fallback.OperatingSystem
		env.Application = fallback.Application
	}
	if env.OperatingSystem == "" && env.Application == "" {
		return nil
	}
	return env
}
