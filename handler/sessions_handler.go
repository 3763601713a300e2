package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"rdpmon/middleware"
	"rdpmon/model"
	"rdpmon/services"
	"rdpmon/usecase"
	"rdpmon/utils"
)

type createSessionRequest struct {
	Hostname  string `json:"hostname" binding:"required"`
	IPAddress string `json:"ipAddress" binding:"required,iplike"`
}

func ListSessionsHandler(c *gin.Context, service *usecase.SessionService) {
	sessions, err := service.List(c)
	if err != nil {
		respondError(c, err)
		return
	}
	connected := 0
	for _, session := range sessions {
		if session.Status == model.StatusConnected {
			connected++
		}
	}
	middleware.UpdateSessionGauges(len(sessions), connected)
	utils.Success(c, gin.H{"sessions": sessions})
}

func CreateSessionHandler(c *gin.Context, service *usecase.SessionService, notifier *services.Notifier, defaultProtocol string) {
	var req createSessionRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		utils.BadRequest(c, "hostname and ipAddress are required")
		return
	}
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	outcome, err := service.Create(c, payload)
	if err != nil {
		respondError(c, err)
		return
	}

	dispatch(notifier, outcome, notifyContext(c, "manual-create", defaultProtocol))
	refreshSessionGauges(c, service)
	utils.Created(c, gin.H{"session": outcome.Session})
}

func UpdateSessionHandler(c *gin.Context, service *usecase.SessionService, notifier *services.Notifier, defaultProtocol string) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	outcome, err := service.Update(c, c.Param("id"), payload, utils.IfMatchToken(c.Request))
	if err != nil {
		respondError(c, err)
		return
	}

	dispatch(notifier, outcome, notifyContext(c, "manual-update", defaultProtocol))
	refreshSessionGauges(c, service)
	utils.Success(c, gin.H{"session": outcome.Session})
}

func DeleteSessionHandler(c *gin.Context, service *usecase.SessionService) {
	if err := service.Delete(c, c.Param("id"), utils.IfMatchToken(c.Request)); err != nil {
		respondError(c, err)
		return
	}
	refreshSessionGauges(c, service)
	utils.NoContent(c)
}
