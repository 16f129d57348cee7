package usecase

import (
	"context"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/pkg/graph"

	"golang.org/x/oauth2"
)

// GraphClient is the provider API surface the usecases depend on.
// *graph.Service satisfies it; tests substitute fakes.
type GraphClient interface {
	GetProfile(ctx context.Context, accessToken string) (*graph.Profile, error)
	ListMessages(ctx context.Context, accessToken, folder string, opts graph.ListOptions) (*graph.MessagePage, error)
	CountMessages(ctx context.Context, accessToken, folder string, receivedAfter time.Time) (int64, error)
	NextPage(ctx context.Context, accessToken, nextLink string) (*graph.MessagePage, error)
	GetMessage(ctx context.Context, accessToken, messageID string) (*graph.Message, error)
	ListAttachments(ctx context.Context, accessToken, messageID string) ([]graph.Attachment, error)
	CreateSubscription(ctx context.Context, accessToken string, sub graph.Subscription) (*graph.Subscription, error)
	RenewSubscription(ctx context.Context, accessToken, subscriptionID string, expiresAt time.Time) (*graph.Subscription, error)
	DeleteSubscription(ctx context.Context, accessToken, subscriptionID string) error
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
	Scope() []string
}

// TokenUsecase owns the credential lifecycle. Every provider call routes
// its token through EnsureFresh first; there is no other path to a valid
// token.
type TokenUsecase interface {
	EnsureFresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
	ForceRefresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
}

// SubscriptionUsecase manages webhook subscription lifecycle against the
// provider and the local mirror.
type SubscriptionUsecase interface {
	CreateForFolder(ctx context.Context, userID, folder string) (*domain.Subscription, error)
	Renew(ctx context.Context, sub *domain.Subscription) error
	Delete(ctx context.Context, sub *domain.Subscription) error
}

// ImportResult is the outcome of an idempotent message import.
type ImportResult struct {
	Message       *domain.Message
	AlreadyExists bool
}

// ImportUsecase converts one provider message into a local record. Both
// the live webhook path and the historical backfill go through it.
type ImportUsecase interface {
	ImportByID(ctx context.Context, userID, messageID string) (*ImportResult, error)
}

// RunUsecase drives the historical import state machine.
type RunUsecase interface {
	Start(ctx context.Context, userID string, rng domain.ImportRange) (*domain.ImportRun, error)
	Cancel(userID string) error
	Status(userID string) (*domain.ImportRun, error)
	// Advance performs exactly one step and re-enqueues itself while the
	// run is non-terminal. It is the only entry point of the state machine.
	Advance(ctx context.Context, runID string) error
	// Resume re-enqueues non-terminal runs whose step chain died with the
	// process or was dropped by a full queue. Called at startup and from
	// the periodic rescue sweep.
	Resume(olderThan time.Duration) error
}

// AccountUsecase connects and disconnects a user's mailbox.
type AccountUsecase interface {
	ConnectURL(userID string) string
	CompleteConnect(ctx context.Context, userID, code string) (*domain.Credential, error)
	Disconnect(ctx context.Context, userID string) error
}
