package repository

import (
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) FindByProviderID(userID, providerID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.Where("user_id = ? AND provider_id = ?", userID, providerID).First(&msg).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) Create(msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now

	for i := range msg.Attachments {
		if msg.Attachments[i].ID == "" {
			msg.Attachments[i].ID = uuid.New().String()
		}
		msg.Attachments[i].MessageID = msg.ID
		msg.Attachments[i].CreatedAt = now
	}

	return r.db.Create(msg).Error
}

func (r *messageRepository) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Message{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
