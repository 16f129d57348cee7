package repository

import (
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
)

// SubscriptionRepository mirrors provider webhook subscriptions locally.
type SubscriptionRepository interface {
	// FindByProviderID returns (nil, nil) for unknown subscription ids.
	FindByProviderID(providerID string) (*domain.Subscription, error)
	FindByUserAndFolder(userID, folder string) (*domain.Subscription, error)
	FindByUserID(userID string) ([]domain.Subscription, error)
	// FindExpiring returns subscriptions whose expiry falls before the cutoff.
	FindExpiring(before time.Time) ([]domain.Subscription, error)
	Create(sub *domain.Subscription) error
	Update(sub *domain.Subscription) error
	Delete(id string) error
}
