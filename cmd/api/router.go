package api

import (
	"net/http"

	"github.com/eliOcs/crm-backend/internal/mailbox/delivery"
	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"
	"github.com/eliOcs/crm-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, webhookHandler *delivery.WebhookHandler, importHandler *delivery.ImportHandler, accountHandler *delivery.AccountHandler) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Provider webhook ingress: validation handshake + notification
		// batches arrive unauthenticated on this fixed path.
		api.POST("/graph/notifications", webhookHandler.HandleNotification)

		// OAuth callback is reached by browser redirect, outside any session.
		api.GET(trimAPIPrefix(usecase.CallbackPath), accountHandler.Callback)

		// Mailbox routes (protected)
		mailbox := api.Group("/mailbox")
		mailbox.Use(delivery.AuthMiddleware(cfg.JWTSecret))
		{
			mailbox.GET("/connect", accountHandler.Connect)
			mailbox.POST("/disconnect", accountHandler.Disconnect)
			mailbox.POST("/import", importHandler.StartImport)
			mailbox.POST("/import/cancel", importHandler.CancelImport)
			mailbox.GET("/import/status", importHandler.GetImportStatus)
		}
	}
}

func trimAPIPrefix(path string) string {
	const prefix = "/api"
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix):]
	}
	return path
}
