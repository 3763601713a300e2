package usecase

import (
	"strings"

	"rdpmon/model"
	"rdpmon/utils"
)

// Inference is the outcome of classifying a report's remote-control
// signals. Explicit means the report itself decided the value; an
// implicit result merely carries forward or suggests state.
type Inference struct {
	Value    model.RemoteControl
	Explicit bool
}

// directFlagKeys are the boolean-ish fields a reporter can use to state
// remote control outright.
var directFlagKeys = []string{
	"remoteControlled",
	"isRemoteControlled",
	"remoteSession",
	"isRemoteSession",
	"remoteDesktopActive",
	"rdpActive",
}

type inferenceRule struct {
	name  string
	apply func(payload map[string]any, previous model.RemoteControl) (Inference, bool)
}

// remoteControlRules is the ordered inference policy: first match wins.
// An explicit flag always beats heuristics, including clearing a prior
// confirmed value; a confirmed value is sticky against reports that say
// nothing about remote control.
var remoteControlRules = []inferenceRule{
	{
		name: "direct-flag",
		apply: func(payload map[string]any, _ model.RemoteControl) (Inference, bool) {
			for _, key := range directFlagKeys {
				value, present := payload[key]
				if !present {
					continue
				}
				switch utils.NormalizeBool(value) {
				case utils.TriTrue:
					return Inference{Value: model.RemoteConfirmed(), Explicit: true}, true
				case utils.TriFalse, utils.TriNull:
					return Inference{Value: model.RemoteUnknown(), Explicit: true}, true
				}
				// Unrepresented values fall through to the next key.
			}
			return Inference{}, false
		},
	},
	{
		name: "rdp-session-name",
		apply: func(payload map[string]any, _ model.RemoteControl) (Inference, bool) {
			name := stringField(payload, "sessionName", "session")
			if name != "" && strings.HasPrefix(strings.ToLower(name), "rdp") {
				return Inference{Value: model.RemoteConfirmed(), Explicit: true}, true
			}
			return Inference{}, false
		},
	},
	{
		name: "rdp-protocol",
		apply: func(payload map[string]any, _ model.RemoteControl) (Inference, bool) {
			protocol := stringField(payload, "sessionProtocol", "protocol")
			if protocol != "" && strings.Contains(strings.ToLower(protocol), "rdp") {
				return Inference{Value: model.RemoteConfirmed(), Explicit: true}, true
			}
			return Inference{}, false
		},
	},
	{
		name: "client-name-present",
		apply: func(payload map[string]any, _ model.RemoteControl) (Inference, bool) {
			if stringField(payload, "clientName") != "" {
				return Inference{Value: model.RemoteConfirmed(), Explicit: true}, true
			}
			return Inference{}, false
		},
	},
	{
		name: "remote-host-present",
		apply: func(payload map[string]any, _ model.RemoteControl) (Inference, bool) {
			if stringField(payload, "remoteHost") != "" {
				return Inference{Value: model.RemoteConfirmed(), Explicit: true}, true
			}
			return Inference{}, false
		},
	},
	{
		name: "sticky-previous-confirmed",
		apply: func(_ map[string]any, previous model.RemoteControl) (Inference, bool) {
			if previous.IsConfirmed() {
				return Inference{Value: model.RemoteConfirmed(), Explicit: false}, true
			}
			return Inference{}, false
		},
	},
}

// InferRemoteControl classifies a report's remote-control state from the
// ordered rule table.
func InferRemoteControl(payload map[string]any, previous model.RemoteControl) Inference {
	for _, rule := range remoteControlRules {
		if result, matched := rule.apply(payload, previous); matched {
			return result
		}
	}
	return Inference{Value: model.RemoteUnknown(), Explicit: false}
}

// stringField returns the first of the named fields that is a non-empty
// string. Non-string values never match: a numeric "session" field says
// nothing about remote control.
func stringField(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := payload[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
