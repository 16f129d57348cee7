package domain

import "time"

// Subscription mirrors one provider webhook subscription, one per watched
// folder per user. ClientState is the shared secret echoed on every
// notification; it is compared in constant time at the ingress.
type Subscription struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	UserID      string    `json:"user_id" gorm:"index:idx_subscriptions_user_folder,unique;not null"`
	Folder      string    `json:"folder" gorm:"index:idx_subscriptions_user_folder,unique;not null"`
	ProviderID  string    `json:"provider_id" gorm:"uniqueIndex;not null"`
	Resource    string    `json:"resource"`
	ClientState string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RenewalBuffer is how close to expiry a subscription may get before the
// sweep renews it.
const RenewalBuffer = 30 * time.Minute
