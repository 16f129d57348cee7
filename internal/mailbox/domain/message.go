package domain

import "time"

// Message is one locally persisted mail message. ProviderID is unique per
// user; that constraint is the dedup point shared by the live webhook path
// and the historical backfill.
type Message struct {
	ID             string              `json:"id" gorm:"primaryKey"`
	UserID         string              `json:"user_id" gorm:"index:idx_messages_user_provider,unique;not null"`
	ProviderID     string              `json:"provider_id" gorm:"index:idx_messages_user_provider,unique;not null"`
	ConversationID string              `json:"conversation_id"`
	Subject        string              `json:"subject"`
	Preview        string              `json:"preview"`
	Body           string              `json:"body" gorm:"type:text"`
	IsHTML         bool                `json:"is_html"`
	FromName       string              `json:"from_name"`
	FromEmail      string              `json:"from_email" gorm:"index"`
	ToEmails       string              `json:"to_emails"`
	CcEmails       string              `json:"cc_emails"`
	ReceivedAt     time.Time           `json:"received_at"`
	IsRead         bool                `json:"is_read"`
	WebLink        string              `json:"web_link"`
	ContactID      *string             `json:"contact_id,omitempty" gorm:"index"`
	Attachments    []MessageAttachment `json:"attachments" gorm:"foreignKey:MessageID"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// MessageAttachment is a decoded file attachment belonging to a message.
type MessageAttachment struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	MessageID  string    `json:"message_id" gorm:"index;not null"`
	ProviderID string    `json:"provider_id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Content    []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
