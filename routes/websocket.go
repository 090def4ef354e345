package routes

import (
	"github.com/gin-gonic/gin"

	"taskboard-app/taskboard/services"
)

func RegisterWebSocketRoutes(group *gin.RouterGroup, wsService services.WebSocketServiceInterface) {
	group.GET("/ws", func(c *gin.Context) { wsService.HandleConnection(c) })
}
