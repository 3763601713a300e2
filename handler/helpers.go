package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"rdpmon/middleware"
	"rdpmon/model"
	"rdpmon/services"
	"rdpmon/usecase"
	"rdpmon/utils"
)

// bindPayload reads the JSON body as a loose map so the normalizers can
// distinguish absent fields from empty ones. An empty body is fine.
func bindPayload(c *gin.Context) (map[string]any, bool) {
	payload := map[string]any{}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return payload, true
	}
	if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			utils.PayloadTooLarge(c)
			return nil, false
		}
		utils.BadRequest(c, "Invalid JSON body")
		return nil, false
	}
	return payload, true
}

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		middleware.TrackError("validation")
		utils.BadRequest(c, err.Error())
	case errors.Is(err, usecase.ErrNotFound):
		middleware.TrackError("not_found")
		utils.NotFound(c, "session not found")
	case errors.Is(err, usecase.ErrConflict):
		middleware.TrackError("conflict")
		utils.Conflict(c, "session was updated by someone else; refresh and retry")
	default:
		middleware.TrackError("store")
		utils.InternalError(c, "internal server error")
	}
}

// notifyContext assembles the per-request context handed to the
// notifier.
func notifyContext(c *gin.Context, trigger, defaultProtocol string) services.Context {
	return services.Context{
		Trigger:           trigger,
		RequestHostHeader: utils.RequestHostHeader(c.Request),
		RequestProtocol:   utils.RequestProtocol(c.Request, defaultProtocol),
		Requester:         utils.Requester(c.Request),
	}
}

// dispatch sends the outcome's notification, if any, and counts it.
func dispatch(notifier *services.Notifier, outcome *usecase.Outcome, ctx services.Context) {
	if outcome == nil || outcome.Event == model.EventNone {
		return
	}
	middleware.TrackNotification(string(outcome.Event))
	notifier.Notify(outcome.Event, outcome.Notify, ctx)
}

// refreshSessionGauges recounts the session gauges after a mutation.
func refreshSessionGauges(ctx context.Context, service *usecase.SessionService) {
	sessions, err := service.List(ctx)
	if err != nil {
		return
	}
	connected := 0
	for _, session := range sessions {
		if session.Status == model.StatusConnected {
			connected++
		}
	}
	middleware.UpdateSessionGauges(len(sessions), connected)
}
