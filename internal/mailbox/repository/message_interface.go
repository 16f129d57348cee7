package repository

import "github.com/eliOcs/crm-backend/internal/mailbox/domain"

// MessageRepository persists imported messages. The unique (user, provider
// id) constraint is the system-wide dedup point.
type MessageRepository interface {
	FindByProviderID(userID, providerID string) (*domain.Message, error)
	// Create stores the message and its attachments in one transaction.
	Create(msg *domain.Message) error
	CountByUser(userID string) (int64, error)
}
