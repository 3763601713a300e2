package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rdpmon/model"
	"rdpmon/utils"
)

const deliveryTimeout = 5 * time.Second

// NotifierConfig is everything the notifier needs up front; there is no
// process-wide webhook state.
type NotifierConfig struct {
	// WebhookURL is the chat webhook endpoint; empty disables delivery.
	WebhookURL string
	// WebhookSource labels where the URL came from, for startup logs.
	WebhookSource string
	// DashboardPublicURL, when set, beats any request-derived candidate.
	DashboardPublicURL string
	// DefaultProtocol and PublicPort shape request-derived dashboard URLs.
	DefaultProtocol string
	PublicPort      int
}

// Notifier formats session transitions as human-readable messages and
// delivers them to the configured webhook, best effort.
type Notifier struct {
	webhook                *url.URL
	client                 *http.Client
	configuredDashboardURL string
	defaultProtocol        string
	publicPort             int
	externalHost           string
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	n := &Notifier{
		client:          &http.Client{Timeout: deliveryTimeout},
		defaultProtocol: NormalizeProtocol(cfg.DefaultProtocol),
		publicPort:      cfg.PublicPort,
		externalHost:    DetectPrimaryExternalAddress(),
	}
	if n.defaultProtocol == "" {
		n.defaultProtocol = "http"
	}
	if trimmed := strings.TrimSpace(cfg.WebhookURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Host == "" {
			source := cfg.WebhookSource
			if source == "" {
				source = "configuration"
			}
			log.Printf("Invalid webhook URL provided via %s; notifications are disabled", source)
		} else {
			n.webhook = parsed
		}
	}
	n.configuredDashboardURL = n.sanitizeDashboardURL(cfg.DashboardPublicURL, n.defaultProtocol)
	return n
}

// Enabled reports whether an outbound webhook is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.webhook != nil
}

// Context carries per-request information into a notification.
type Context struct {
	Trigger           string
	RequestHostHeader string
	RequestProtocol   string
	Requester         *utils.RequesterInfo

	// End-of-session extras; only set for ended notifications.
	DisconnectReason          string
	SessionDurationSeconds    *float64
	SecondsSinceLastHeartbeat *float64
	LastIdleSeconds           *float64
	ResourceMetrics           *model.ResourceMetrics
}

// Notify formats and delivers a notification. Failures are logged and
// swallowed; reconciliation never fails because a webhook is down.
func (n *Notifier) Notify(kind model.EventKind, session *model.Session, ctx Context) {
	if !n.Enabled() || session == nil || kind == model.EventNone {
		return
	}
	text := n.Format(kind, session, ctx)
	if text == "" {
		return
	}
	n.post(text)
}

// Format renders the multi-line notification text for an event kind.
func (n *Notifier) Format(kind model.EventKind, session *model.Session, ctx Context) string {
	headline := "📢 RDP session notification"
	extra := []string{}

	switch kind {
	case model.EventCreated:
		headline = "🆕 New RDP session registered"
	case model.EventConnected:
		headline = "📡 Connection to RDP session detected"
	case model.EventUsageIntent:
		headline = "🧑‍💻 Upcoming machine use announced"
		extra = append(extra, "Action: this machine is about to be used")
		if line := formatRequester(ctx.Requester); line != "" {
			extra = append(extra, line)
		}
	case model.EventEnded:
		headline = "🔚 RDP session end detected"
		extra = append(extra, "Action: machine use has ended")
		if ctx.SessionDurationSeconds != nil {
			if formatted := utils.FormatDuration(*ctx.SessionDurationSeconds); formatted != "" {
				extra = append(extra, "Session duration: "+formatted)
			}
		}
		if ctx.LastIdleSeconds != nil {
			if formatted := utils.FormatDuration(*ctx.LastIdleSeconds); formatted != "" {
				extra = append(extra, "Time since last input: "+formatted)
			}
		}
		if ctx.SecondsSinceLastHeartbeat != nil {
			if formatted := utils.FormatDuration(*ctx.SecondsSinceLastHeartbeat); formatted != "" {
				extra = append(extra, "Time since last heartbeat: "+formatted)
			}
		}
		if line := formatResourceMetrics(ctx.ResourceMetrics); line != "" {
			extra = append(extra, line)
		}
		if ctx.DisconnectReason != "" {
			extra = append(extra, "Disconnect reason: "+ctx.DisconnectReason)
		}
	}

	if session.RemoteControlled.IsConfirmed() {
		extra = append(extra, "Remote control: via remote desktop")
	}

	hostname := session.Hostname
	if hostname == "" {
		hostname = "(unnamed)"
	}
	ipAddress := session.IPAddress
	if ipAddress == "" {
		ipAddress = "unknown IP"
	}

	lines := []string{
		headline,
		fmt.Sprintf("Machine: %s (%s)", hostname, ipAddress),
	}
	if session.RemoteHostIPAddress != "" {
		lines = append(lines, "Connection source IP: "+session.RemoteHostIPAddress)
	}
	if session.RemoteHost != "" {
		lines = append(lines, "Connection source host: "+session.RemoteHost)
	}
	if session.Notes != "" {
		lines = append(lines, "Notes: "+session.Notes)
	}
	lines = append(lines, extra...)
	if ctx.Trigger != "" {
		lines = append(lines, "Trigger: "+ctx.Trigger)
	}
	if dashboardURL := n.ResolveDashboardURL("", ctx.RequestHostHeader, ctx.RequestProtocol); dashboardURL != "" {
		lines = append(lines, "Dashboard: "+dashboardURL)
	}
	return strings.Join(lines, "\n")
}

func (n *Notifier) post(text string) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		log.Printf("Failed to encode webhook payload: %v", err)
		return
	}
	response, err := n.client.Post(n.webhook.String(), "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("Webhook request failed: %v", err)
		return
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		log.Printf("Webhook request returned status %d", response.StatusCode)
	}
}

func formatRequester(requester *utils.RequesterInfo) string {
	if requester == nil {
		return ""
	}
	parts := []string{}
	if requester.User != "" {
		parts = append(parts, requester.User)
	}
	if requester.Host != "" {
		parts = append(parts, requester.Host)
	}
	if len(parts) == 0 {
		return ""
	}
	return "Requested by: " + strings.Join(parts, " @ ")
}

func formatResourceMetrics(metrics *model.ResourceMetrics) string {
	if metrics == nil {
		return ""
	}
	parts := []string{}
	if metrics.CPUTimeSeconds != nil {
		if formatted := utils.FormatDuration(*metrics.CPUTimeSeconds); formatted != "" {
			parts = append(parts, "CPU time "+formatted)
		}
	}
	if metrics.WorkingSetBytes != nil {
		if formatted := utils.FormatBytes(float64(*metrics.WorkingSetBytes)); formatted != "" {
			parts = append(parts, "Memory "+formatted)
		}
	}
	if metrics.ProcessCount != nil {
		parts = append(parts, fmt.Sprintf("Processes %d", *metrics.ProcessCount))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Resources at end: " + strings.Join(parts, " / ")
}
