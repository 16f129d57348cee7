package repository

import (
	"strings"

	"github.com/eliOcs/crm-backend/internal/crm/domain"

	"gorm.io/gorm"
)

// ContactRepository is the sync engine's read-only view of CRM contacts.
type ContactRepository interface {
	// FindByEmail returns (nil, nil) when no contact matches the address.
	FindByEmail(userID, email string) (*domain.Contact, error)
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) FindByEmail(userID, email string) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.Where("user_id = ? AND email = ?", userID, strings.ToLower(email)).First(&contact).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}
