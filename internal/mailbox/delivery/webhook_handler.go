package delivery

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/eliOcs/crm-backend/internal/mailbox/dto"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"
	"github.com/eliOcs/crm-backend/pkg/jobs"

	"github.com/gin-gonic/gin"
)

// WebhookHandler is the externally reachable notification ingress. It must
// answer fast and never surface a failure to the provider, or the provider
// disables the subscription.
type WebhookHandler struct {
	subRepo  repository.SubscriptionRepository
	importer usecase.ImportUsecase
	queue    usecase.JobQueue
}

func NewWebhookHandler(subRepo repository.SubscriptionRepository, importer usecase.ImportUsecase, queue usecase.JobQueue) *WebhookHandler {
	return &WebhookHandler{subRepo: subRepo, importer: importer, queue: queue}
}

// HandleNotification answers the validation handshake and notification
// batches on the same fixed path.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	// Validation handshake: echo the token verbatim, nothing else.
	if token := c.Query("validationToken"); token != "" {
		c.Data(http.StatusOK, "text/plain", []byte(token))
		return
	}

	var batch dto.NotificationBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		log.Printf("[Webhook] Undecodable notification body: %v", err)
		c.Status(http.StatusAccepted)
		return
	}

	for _, entry := range batch.Value {
		sub, err := h.subRepo.FindByProviderID(entry.SubscriptionID)
		if err != nil {
			log.Printf("[Webhook] Subscription lookup failed for %s: %v", entry.SubscriptionID, err)
			continue
		}
		if sub == nil {
			log.Printf("[Webhook] Unknown subscription %s, skipping", entry.SubscriptionID)
			continue
		}

		if subtle.ConstantTimeCompare([]byte(entry.ClientState), []byte(sub.ClientState)) != 1 {
			log.Printf("[Webhook] Client state mismatch for subscription %s, skipping", entry.SubscriptionID)
			continue
		}

		userID := sub.UserID
		messageID := entry.ResourceData.ID
		h.queue.Submit(jobs.Job{
			Name: "webhook-fetch " + messageID,
			Run: func() {
				if _, err := h.importer.ImportByID(context.Background(), userID, messageID); err != nil {
					log.Printf("[Webhook] Import failed for message %s: %v", messageID, err)
				}
			},
		})
	}

	c.Status(http.StatusAccepted)
}
