package delivery

import (
	"errors"
	"net/http"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/dto"
	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"

	"github.com/gin-gonic/gin"
)

type ImportHandler struct {
	runs usecase.RunUsecase
}

func NewImportHandler(runs usecase.RunUsecase) *ImportHandler {
	return &ImportHandler{runs: runs}
}

func (h *ImportHandler) StartImport(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.StartImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, err := h.runs.Start(c.Request.Context(), userID, domain.ImportRange(req.Range))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrNotConnected):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrRunActive):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, run)
}

func (h *ImportHandler) CancelImport(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.runs.Cancel(userID); err != nil {
		if errors.Is(err, usecase.ErrNoActiveRun) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	userID := c.GetString("userID")

	run, err := h.runs.Status(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no import run found"})
		return
	}

	// Progress must always be current; defeat intermediate caches.
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, run)
}
