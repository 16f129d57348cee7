package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
)

// CallbackPath is where the OAuth consent flow returns.
const CallbackPath = "/api/mailbox/callback"

type accountUsecase struct {
	credRepo repository.CredentialRepository
	subRepo  repository.SubscriptionRepository
	subs     SubscriptionUsecase
	client   GraphClient
	baseURL  string
	folders  []string
}

func NewAccountUsecase(
	credRepo repository.CredentialRepository,
	subRepo repository.SubscriptionRepository,
	subs SubscriptionUsecase,
	client GraphClient,
	baseURL string,
	folders []string,
) AccountUsecase {
	return &accountUsecase{
		credRepo: credRepo,
		subRepo:  subRepo,
		subs:     subs,
		client:   client,
		baseURL:  baseURL,
		folders:  folders,
	}
}

func (u *accountUsecase) ConnectURL(userID string) string {
	return u.client.AuthCodeURL(userID, u.baseURL+CallbackPath)
}

// CompleteConnect exchanges the authorization code, resolves the account
// identity and stores the credential, then subscribes to every watched
// folder.
func (u *accountUsecase) CompleteConnect(ctx context.Context, userID, code string) (*domain.Credential, error) {
	token, err := u.client.Exchange(ctx, code, u.baseURL+CallbackPath)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}

	profile, err := u.client.GetProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account identity: %w", err)
	}

	cred, err := u.credRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}

	if cred == nil {
		cred = &domain.Credential{UserID: userID}
	}
	cred.AccountID = profile.ID
	cred.Email = strings.ToLower(profile.Mail)
	cred.AccessToken = token.AccessToken
	cred.RefreshToken = token.RefreshToken
	cred.ExpiresAt = token.Expiry
	cred.Scope = strings.Join(u.client.Scope(), " ")

	if cred.CreatedAt.IsZero() {
		err = u.credRepo.Create(cred)
	} else {
		err = u.credRepo.Update(cred)
	}
	if err != nil {
		return nil, err
	}

	for _, folder := range u.folders {
		if _, err := u.subs.CreateForFolder(ctx, userID, folder); err != nil {
			return nil, fmt.Errorf("failed to subscribe folder %s: %w", folder, err)
		}
	}

	log.Printf("[Account] Connected mailbox %s for user %s", cred.Email, userID)
	return cred, nil
}

// Disconnect tears down subscriptions first, then removes the credential.
func (u *accountUsecase) Disconnect(ctx context.Context, userID string) error {
	subs, err := u.subRepo.FindByUserID(userID)
	if err != nil {
		return err
	}

	for i := range subs {
		if err := u.subs.Delete(ctx, &subs[i]); err != nil {
			return err
		}
	}

	if err := u.credRepo.DeleteByUserID(userID); err != nil {
		return err
	}

	log.Printf("[Account] Disconnected mailbox for user %s", userID)
	return nil
}
