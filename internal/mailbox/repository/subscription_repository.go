package repository

import (
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) FindByProviderID(providerID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.Where("provider_id = ?", providerID).First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByUserAndFolder(userID, folder string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.Where("user_id = ? AND folder = ?", userID, folder).First(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindByUserID(userID string) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := r.db.Where("user_id = ?", userID).Order("folder").Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) FindExpiring(before time.Time) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	err := r.db.Where("expires_at < ?", before).Order("expires_at").Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) Create(sub *domain.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return r.db.Create(sub).Error
}

func (r *subscriptionRepository) Update(sub *domain.Subscription) error {
	sub.UpdatedAt = time.Now()
	return r.db.Save(sub).Error
}

func (r *subscriptionRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&domain.Subscription{}).Error
}
