package repository

import "github.com/eliOcs/crm-backend/internal/mailbox/domain"

// CredentialRepository persists OAuth credentials. Implementations encrypt
// token fields before they reach the store and decrypt on the way out.
type CredentialRepository interface {
	// FindByUserID returns (nil, nil) when the user has no connected mailbox.
	FindByUserID(userID string) (*domain.Credential, error)
	Create(cred *domain.Credential) error
	// Update persists new tokens and expiry in a single write.
	Update(cred *domain.Credential) error
	DeleteByUserID(userID string) error
}
