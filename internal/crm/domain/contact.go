package domain

import "time"

// Contact is the CRM contact record. The sync engine only reads it to link
// imported messages to a known sender; all contact CRUD lives elsewhere.
type Contact struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index:idx_contacts_user_email,unique;not null"`
	Email     string    `json:"email" gorm:"index:idx_contacts_user_email,unique;not null"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
