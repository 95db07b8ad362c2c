package approuters

import (
	"parley/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/pl/api/chat")
	{
		chatRoute.GET("/initial-info", container.ChatHandler.GetInitialInfo)
		chatRoute.GET("/rooms/:roomId/messages", container.ChatHandler.GetRoomMessages)
	}
}
