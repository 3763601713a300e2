package handler

import (
	"github.com/gin-gonic/gin"

	"rdpmon/middleware"
	"rdpmon/services"
	"rdpmon/usecase"
	"rdpmon/utils"
)

// AutoHeartbeatHandler accepts liveness reports on GET (query params)
// and POST (query params merged with the JSON body, body wins). The
// session is matched by the caller's IP address.
func AutoHeartbeatHandler(c *gin.Context, service *usecase.SessionService, notifier *services.Notifier, defaultProtocol string) {
	payload := map[string]any{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	if c.Request.Method == "POST" {
		body, ok := bindPayload(c)
		if !ok {
			return
		}
		for key, value := range body {
			payload[key] = value
		}
	}

	middleware.HeartbeatsTotal.Inc()

	outcome, err := service.AutoHeartbeat(c, payload, utils.ClientIP(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}

	dispatch(notifier, outcome, notifyContext(c, "auto-heartbeat", defaultProtocol))
	refreshSessionGauges(c, service)
	utils.Success(c, gin.H{"session": outcome.Session})
}

// HeartbeatHandler refreshes liveness for one known session by id.
func HeartbeatHandler(c *gin.Context, service *usecase.SessionService) {
	middleware.HeartbeatsTotal.Inc()

	session, err := service.Heartbeat(c, c.Param("id"), utils.IfMatchToken(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}
	refreshSessionGauges(c, service)
	utils.Success(c, gin.H{"session": session})
}

// AnnounceHandler flags an upcoming use of the machine and notifies
// the configured webhook.
func AnnounceHandler(c *gin.Context, service *usecase.SessionService, notifier *services.Notifier, defaultProtocol string) {
	outcome, err := service.Announce(c, c.Param("id"), utils.IfMatchToken(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}

	dispatch(notifier, outcome, notifyContext(c, "manual-announce", defaultProtocol))
	utils.Success(c, gin.H{
		"session":      outcome.Session,
		"slackEnabled": notifier.Enabled(),
	})
}
