package handler

import (
	"github.com/gin-gonic/gin"

	"rdpmon/model"
	"rdpmon/services"
	"rdpmon/usecase"
	"rdpmon/utils"
)

// SessionStartHandler records a session.start report. The raw event is
// always appended; a session is created when none matches.
func SessionStartHandler(c *gin.Context, service *usecase.SessionService, notifier *services.Notifier, defaultProtocol string) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	var fallbackEnv *model.ClientEnvironment
	if operatingSystem, application := utils.ParseClientEnvironment(c.Request.UserAgent()); operatingSystem != "" || application != "" {
		fallbackEnv = &model.ClientEnvironment{
			OperatingSystem: operatingSystem,
			Application:     application,
		}
	}

	result, err := service.RecordStart(c, payload, fallbackEnv)
	if err != nil {
		respondError(c, err)
		return
	}

	dispatch(notifier, &result.Outcome, notifyContext(c, "session-start-event", defaultProtocol))
	refreshSessionGauges(c, service)
	utils.Accepted(c, gin.H{"accepted": true, "eventId": result.EventID})
}

// SessionEndHandler records a session.end report. The event is recorded
// even when it matches no session.
func SessionEndHandler(c *gin.Context, service *usecase.SessionService, notifier *services.Notifier, defaultProtocol string) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	result, err := service.RecordEnd(c, payload)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := notifyContext(c, "session-end-event", defaultProtocol)
	if result.End != nil {
		ctx.DisconnectReason = result.End.DisconnectReason
		ctx.SessionDurationSeconds = result.End.SessionDurationSeconds
		ctx.SecondsSinceLastHeartbeat = result.End.SecondsSinceLastHeartbeat
		ctx.LastIdleSeconds = result.End.LastIdleSeconds
		ctx.ResourceMetrics = result.End.ResourceMetrics
	}
	dispatch(notifier, &result.Outcome, ctx)
	refreshSessionGauges(c, service)
	utils.Success(c, gin.H{"accepted": true, "eventId": result.EventID})
}
