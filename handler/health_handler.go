package handler

import (
	"github.com/gin-gonic/gin"

	"rdpmon/model"
	"rdpmon/usecase"
	"rdpmon/utils"
)

// HealthHandler reports service liveness plus a quick fleet summary.
func HealthHandler(c *gin.Context, service *usecase.SessionService) {
	sessions, err := service.List(c)
	if err != nil {
		utils.InternalError(c, "store unavailable")
		return
	}
	connected := 0
	for _, session := range sessions {
		if session.Status == model.StatusConnected {
			connected++
		}
	}

	utils.Success(c, gin.H{
		"status":            "ok",
		"sessions":          len(sessions),
		"connected":         connected,
		"cpuPercent":        utils.GetCPUUsage(),
		"memoryUsedPercent": utils.GetMemoryUsedPercent(),
	})
}
