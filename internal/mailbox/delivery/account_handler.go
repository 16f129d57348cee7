package delivery

import (
	"net/http"

	"github.com/eliOcs/crm-backend/internal/mailbox/dto"
	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accounts usecase.AccountUsecase
}

func NewAccountHandler(accounts usecase.AccountUsecase) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Connect returns the provider consent URL for the authenticated user.
func (h *AccountHandler) Connect(c *gin.Context) {
	userID := c.GetString("userID")
	c.JSON(http.StatusOK, dto.ConnectResponse{URL: h.accounts.ConnectURL(userID)})
}

// Callback completes the OAuth flow. The state parameter carries the user
// id the consent flow was started for.
func (h *AccountHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	userID := c.Query("state")
	if code == "" || userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code or state"})
		return
	}

	cred, err := h.accounts.CompleteConnect(c.Request.Context(), userID, code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cred)
}

func (h *AccountHandler) Disconnect(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.accounts.Disconnect(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
