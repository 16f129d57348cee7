package api

import (
	"github.com/eliOcs/crm-backend/internal/mailbox/delivery"
	"github.com/eliOcs/crm-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	config         *config.Config
	webhookHandler *delivery.WebhookHandler
	importHandler  *delivery.ImportHandler
	accountHandler *delivery.AccountHandler
}

func NewHandler(cfg *config.Config, webhookHandler *delivery.WebhookHandler, importHandler *delivery.ImportHandler, accountHandler *delivery.AccountHandler) *Handler {
	return &Handler{
		config:         cfg,
		webhookHandler: webhookHandler,
		importHandler:  importHandler,
		accountHandler: accountHandler,
	}
}

func (h *Handler) Start(addr string) error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	SetupRoutes(r, h.config, h.webhookHandler, h.importHandler, h.accountHandler)

	return r.Run(addr)
}
