package domain

import "time"

// Credential is the stored OAuth token pair for one connected mailbox.
// At most one per user. Token fields hold ciphertext in the database; the
// repository encrypts and decrypts at the boundary.
type Credential struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UserID       string    `json:"user_id" gorm:"uniqueIndex;not null"`
	AccountID    string    `json:"account_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshBuffer is how close to expiry a token may get before it is
// refreshed ahead of use.
const RefreshBuffer = 5 * time.Minute

// NeedsRefresh reports whether the access token expires within the buffer.
func (c *Credential) NeedsRefresh(now time.Time) bool {
	return c.ExpiresAt.Before(now.Add(RefreshBuffer))
}
