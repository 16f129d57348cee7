package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/pkg/graph"
)

// tokenUsecase implements TokenUsecase.
type tokenUsecase struct {
	credRepo repository.CredentialRepository
	client   GraphClient
}

func NewTokenUsecase(credRepo repository.CredentialRepository, client GraphClient) TokenUsecase {
	return &tokenUsecase{credRepo: credRepo, client: client}
}

// EnsureFresh refreshes the access token when it expires within the buffer
// and persists the new token pair before returning. Refresh failures
// propagate un-retried; retry policy lives with the enclosing task.
func (u *tokenUsecase) EnsureFresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	if !cred.NeedsRefresh(time.Now()) {
		return cred, nil
	}
	return u.ForceRefresh(ctx, cred)
}

// ForceRefresh performs the refresh exchange unconditionally. Used when
// the provider rejects a token the expiry said was still valid.
func (u *tokenUsecase) ForceRefresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	token, err := u.client.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	cred.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		cred.RefreshToken = token.RefreshToken
	}
	cred.ExpiresAt = token.Expiry

	if err := u.credRepo.Update(cred); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	return cred, nil
}

// callWithToken runs fn with a fresh access token. When the provider still
// answers 401 the token is force-refreshed and fn retried once; a second
// 401 is reported as a generic API error.
func callWithToken(ctx context.Context, tokens TokenUsecase, cred *domain.Credential, fn func(accessToken string) error) error {
	cred, err := tokens.EnsureFresh(ctx, cred)
	if err != nil {
		return err
	}

	err = fn(cred.AccessToken)
	if !errors.Is(err, graph.ErrTokenExpired) {
		return err
	}

	cred, err = tokens.ForceRefresh(ctx, cred)
	if err != nil {
		return err
	}

	err = fn(cred.AccessToken)
	if errors.Is(err, graph.ErrTokenExpired) {
		return &graph.APIError{StatusCode: http.StatusUnauthorized, Message: "token rejected after refresh"}
	}
	return err
}
