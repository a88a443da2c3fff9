package router

import (
	"github.com/gin-gonic/gin"

	"alt-text-ai-api/internal/interfaces/http/middleware"
)

// RegisterAdminRoutes 注册后台路由
func RegisterAdminRoutes(admin *gin.RouterGroup, h Handlers) {
	admin.GET("/settings", h.Settings.Page)
	admin.POST("/settings", h.Settings.Save)
	admin.GET("/notices", h.Notices.List)
}

// RegisterHookRoutes 注册宿主 webhook 路由
func RegisterHookRoutes(v1 *gin.RouterGroup, h Handlers, secret string) {
	hooks := v1.Group("/hooks", middleware.HookToken(secret))
	{
		hooks.POST("/attachments", h.Hooks.AttachmentAdded)
	}
}
