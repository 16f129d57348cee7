package repository

import (
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/pkg/encryption"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// credentialRepository implements CredentialRepository. Tokens are stored
// as AES-GCM ciphertext; the rest of the application only ever sees
// plaintext and never logs it.
type credentialRepository struct {
	db  *gorm.DB
	box *encryption.Box
}

func NewCredentialRepository(db *gorm.DB, box *encryption.Box) CredentialRepository {
	return &credentialRepository{db: db, box: box}
}

func (r *credentialRepository) FindByUserID(userID string) (*domain.Credential, error) {
	var cred domain.Credential
	err := r.db.Where("user_id = ?", userID).First(&cred).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	if err := r.open(&cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepository) Create(cred *domain.Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	now := time.Now()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	sealed, err := r.seal(cred)
	if err != nil {
		return err
	}
	return r.db.Create(sealed).Error
}

func (r *credentialRepository) Update(cred *domain.Credential) error {
	cred.UpdatedAt = time.Now()

	sealed, err := r.seal(cred)
	if err != nil {
		return err
	}
	return r.db.Save(sealed).Error
}

func (r *credentialRepository) DeleteByUserID(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&domain.Credential{}).Error
}

// seal returns a copy with token fields encrypted, leaving the caller's
// plaintext credential untouched.
func (r *credentialRepository) seal(cred *domain.Credential) (*domain.Credential, error) {
	sealed := *cred

	var err error
	if sealed.AccessToken, err = r.box.Encrypt(cred.AccessToken); err != nil {
		return nil, err
	}
	if sealed.RefreshToken, err = r.box.Encrypt(cred.RefreshToken); err != nil {
		return nil, err
	}
	return &sealed, nil
}

func (r *credentialRepository) open(cred *domain.Credential) error {
	var err error
	if cred.AccessToken, err = r.box.Decrypt(cred.AccessToken); err != nil {
		return err
	}
	if cred.RefreshToken, err = r.box.Decrypt(cred.RefreshToken); err != nil {
		return err
	}
	return nil
}
