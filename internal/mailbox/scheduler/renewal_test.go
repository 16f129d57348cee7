package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"
	"github.com/eliOcs/crm-backend/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestSubRepo(t *testing.T) repository.SubscriptionRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Subscription{}))
	return repository.NewSubscriptionRepository(db)
}

// fakeSubs scripts renew outcomes per provider subscription id.
type fakeSubs struct {
	renewErr  map[string]error
	renewed   []string
	recreated []string
}

func (f *fakeSubs) CreateForFolder(_ context.Context, userID, folder string) (*domain.Subscription, error) {
	f.recreated = append(f.recreated, userID+"/"+folder)
	return &domain.Subscription{UserID: userID, Folder: folder, ProviderID: "fresh-" + folder}, nil
}

func (f *fakeSubs) Renew(_ context.Context, sub *domain.Subscription) error {
	if err := f.renewErr[sub.ProviderID]; err != nil {
		return err
	}
	f.renewed = append(f.renewed, sub.ProviderID)
	return nil
}

func (f *fakeSubs) Delete(context.Context, *domain.Subscription) error {
	return errors.New("not used")
}

func seedSub(t *testing.T, repo repository.SubscriptionRepository, providerID, folder string, expiresIn time.Duration) {
	t.Helper()
	require.NoError(t, repo.Create(&domain.Subscription{
		UserID:     "user-1",
		Folder:     folder,
		ProviderID: providerID,
		ExpiresAt:  time.Now().Add(expiresIn),
	}))
}

func TestSweepRenewsOnlyExpiring(t *testing.T) {
	repo := newTestSubRepo(t)
	seedSub(t, repo, "sub-soon", "inbox", 10*time.Minute)
	seedSub(t, repo, "sub-later", "sentitems", 72*time.Hour)

	subs := &fakeSubs{}
	s := NewRenewalScheduler(repo, subs, time.Minute)
	s.Sweep(context.Background())

	assert.Equal(t, []string{"sub-soon"}, subs.renewed)
}

func TestSweepFailureDoesNotBlockOthers(t *testing.T) {
	repo := newTestSubRepo(t)
	seedSub(t, repo, "sub-a", "inbox", 5*time.Minute)
	seedSub(t, repo, "sub-b", "sentitems", 10*time.Minute)

	subs := &fakeSubs{renewErr: map[string]error{"sub-a": errors.New("throttled")}}
	s := NewRenewalScheduler(repo, subs, time.Minute)
	s.Sweep(context.Background())

	assert.Equal(t, []string{"sub-b"}, subs.renewed)

	// The failed one stays for the next sweep.
	remaining, err := repo.FindByProviderID("sub-a")
	require.NoError(t, err)
	assert.NotNil(t, remaining)
}

func TestSweepRecreatesForgottenSubscriptions(t *testing.T) {
	repo := newTestSubRepo(t)
	seedSub(t, repo, "sub-gone", "inbox", 5*time.Minute)

	// The provider dropped the subscription on its side; renewing it can
	// only ever 404.
	notFound := fmt.Errorf("subscription renew failed for sub-gone: %w", &graph.APIError{
		StatusCode: http.StatusNotFound,
		Code:       "ResourceNotFound",
		Message:    "The specified object was not found in the store.",
	})
	subs := &fakeSubs{renewErr: map[string]error{"sub-gone": notFound}}
	s := NewRenewalScheduler(repo, subs, time.Minute)
	s.Sweep(context.Background())

	assert.Empty(t, subs.renewed)
	assert.Equal(t, []string{"user-1/inbox"}, subs.recreated)
}

func TestSweepDropsOrphanedSubscriptions(t *testing.T) {
	repo := newTestSubRepo(t)
	seedSub(t, repo, "sub-orphan", "inbox", 5*time.Minute)

	subs := &fakeSubs{renewErr: map[string]error{"sub-orphan": usecase.ErrNotConnected}}
	s := NewRenewalScheduler(repo, subs, time.Minute)
	s.Sweep(context.Background())

	gone, err := repo.FindByProviderID("sub-orphan")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
