package usecase

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/pkg/graph"
)

// NotificationPath is the fixed webhook ingress path, appended to the
// public base URL when building the subscription callback.
const NotificationPath = "/api/graph/notifications"

type subscriptionUsecase struct {
	subRepo    repository.SubscriptionRepository
	credRepo   repository.CredentialRepository
	tokens     TokenUsecase
	client     GraphClient
	baseURL    string
	retryDelay time.Duration
}

func NewSubscriptionUsecase(
	subRepo repository.SubscriptionRepository,
	credRepo repository.CredentialRepository,
	tokens TokenUsecase,
	client GraphClient,
	baseURL string,
) SubscriptionUsecase {
	return &subscriptionUsecase{
		subRepo:    subRepo,
		credRepo:   credRepo,
		tokens:     tokens,
		client:     client,
		baseURL:    baseURL,
		retryDelay: time.Second,
	}
}

// CreateForFolder replaces any existing subscription for (user, folder)
// with a fresh one, so a folder never carries two live subscriptions.
func (u *subscriptionUsecase) CreateForFolder(ctx context.Context, userID, folder string) (*domain.Subscription, error) {
	cred, err := u.credRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotConnected
	}

	existing, err := u.subRepo.FindByUserAndFolder(userID, folder)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := u.Delete(ctx, existing); err != nil {
			return nil, err
		}
	}

	clientState, err := newClientState()
	if err != nil {
		return nil, err
	}

	resource := fmt.Sprintf("me/mailFolders('%s')/messages", folder)
	request := graph.Subscription{
		ChangeType:         "created",
		NotificationURL:    u.baseURL + NotificationPath,
		Resource:           resource,
		ExpirationDateTime: time.Now().Add(graph.MaxSubscriptionLifetime).UTC(),
		ClientState:        clientState,
	}

	var created *graph.Subscription
	err = withRetry(ctx, subscriptionRetryAttempts, u.retryDelay, func() error {
		return callWithToken(ctx, u.tokens, cred, func(accessToken string) error {
			var callErr error
			created, callErr = u.client.CreateSubscription(ctx, accessToken, request)
			return callErr
		})
	})
	if err != nil {
		return nil, fmt.Errorf("subscription create failed for folder %s: %w", folder, err)
	}

	sub := &domain.Subscription{
		UserID:      userID,
		Folder:      folder,
		ProviderID:  created.ID,
		Resource:    resource,
		ClientState: clientState,
		// provider expiry is authoritative
		ExpiresAt: created.ExpirationDateTime,
	}
	if err := u.subRepo.Create(sub); err != nil {
		return nil, err
	}

	log.Printf("[Subscription] Created %s for user %s folder %s, expires %s", created.ID, userID, folder, sub.ExpiresAt)
	return sub, nil
}

// Renew extends the remote expiry and mirrors whatever expiry the provider
// actually granted.
func (u *subscriptionUsecase) Renew(ctx context.Context, sub *domain.Subscription) error {
	cred, err := u.credRepo.FindByUserID(sub.UserID)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNotConnected
	}

	requested := time.Now().Add(graph.MaxSubscriptionLifetime).UTC()

	var renewed *graph.Subscription
	err = withRetry(ctx, subscriptionRetryAttempts, u.retryDelay, func() error {
		return callWithToken(ctx, u.tokens, cred, func(accessToken string) error {
			var callErr error
			renewed, callErr = u.client.RenewSubscription(ctx, accessToken, sub.ProviderID, requested)
			return callErr
		})
	})
	if err != nil {
		return fmt.Errorf("subscription renew failed for %s: %w", sub.ProviderID, err)
	}

	sub.ExpiresAt = renewed.ExpirationDateTime
	return u.subRepo.Update(sub)
}

// Delete removes the subscription remotely and locally. When the remote
// delete fails the provider record is assumed gone and the local mirror is
// removed anyway.
func (u *subscriptionUsecase) Delete(ctx context.Context, sub *domain.Subscription) error {
	cred, err := u.credRepo.FindByUserID(sub.UserID)
	if err != nil {
		return err
	}

	if cred != nil {
		err := callWithToken(ctx, u.tokens, cred, func(accessToken string) error {
			return u.client.DeleteSubscription(ctx, accessToken, sub.ProviderID)
		})
		if err != nil {
			log.Printf("[Subscription] Remote delete failed for %s (removing local mirror anyway): %v", sub.ProviderID, err)
		}
	}

	return u.subRepo.Delete(sub.ID)
}

// newClientState generates the random shared secret echoed back on every
// notification.
func newClientState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
