package usecase

import (
	"context"
	"testing"
	"time"

	crmdomain "github.com/eliOcs/crm-backend/internal/crm/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/pkg/encryption"
	"github.com/eliOcs/crm-backend/pkg/graph"
	"github.com/eliOcs/crm-backend/pkg/jobs"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Credential{},
		&domain.Subscription{},
		&domain.ImportRun{},
		&domain.Message{},
		&domain.MessageAttachment{},
		&crmdomain.Contact{},
	))
	return db
}

func newTestBox(t *testing.T) *encryption.Box {
	t.Helper()
	box, err := encryption.NewBox("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return box
}

func seedCredential(t *testing.T, credRepo repository.CredentialRepository, userID string) *domain.Credential {
	t.Helper()
	cred := &domain.Credential{
		UserID:       userID,
		AccountID:    "acc-" + userID,
		Email:        userID + "@example.com",
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour),
		Scope:        "Mail.Read offline_access",
	}
	require.NoError(t, credRepo.Create(cred))
	return cred
}

// fakeGraph is a scriptable GraphClient. Unset operations fail the test if
// reached.
type fakeGraph struct {
	t *testing.T

	profileFn     func(accessToken string) (*graph.Profile, error)
	listFn        func(accessToken, folder string, opts graph.ListOptions) (*graph.MessagePage, error)
	countFn       func(accessToken, folder string, after time.Time) (int64, error)
	nextFn        func(accessToken, link string) (*graph.MessagePage, error)
	getMessageFn  func(accessToken, id string) (*graph.Message, error)
	attachmentsFn func(accessToken, id string) ([]graph.Attachment, error)
	createSubFn   func(accessToken string, sub graph.Subscription) (*graph.Subscription, error)
	renewSubFn    func(accessToken, id string, exp time.Time) (*graph.Subscription, error)
	deleteSubFn   func(accessToken, id string) error
	exchangeFn    func(code string) (*oauth2.Token, error)
	refreshFn     func(refreshToken string) (*oauth2.Token, error)
}

func (f *fakeGraph) GetProfile(_ context.Context, accessToken string) (*graph.Profile, error) {
	if f.profileFn == nil {
		f.t.Fatal("unexpected GetProfile call")
	}
	return f.profileFn(accessToken)
}

func (f *fakeGraph) ListMessages(_ context.Context, accessToken, folder string, opts graph.ListOptions) (*graph.MessagePage, error) {
	if f.listFn == nil {
		f.t.Fatal("unexpected ListMessages call")
	}
	return f.listFn(accessToken, folder, opts)
}

func (f *fakeGraph) CountMessages(_ context.Context, accessToken, folder string, after time.Time) (int64, error) {
	if f.countFn == nil {
		f.t.Fatal("unexpected CountMessages call")
	}
	return f.countFn(accessToken, folder, after)
}

func (f *fakeGraph) NextPage(_ context.Context, accessToken, link string) (*graph.MessagePage, error) {
	if f.nextFn == nil {
		f.t.Fatal("unexpected NextPage call")
	}
	return f.nextFn(accessToken, link)
}

func (f *fakeGraph) GetMessage(_ context.Context, accessToken, id string) (*graph.Message, error) {
	if f.getMessageFn == nil {
		f.t.Fatal("unexpected GetMessage call")
	}
	return f.getMessageFn(accessToken, id)
}

func (f *fakeGraph) ListAttachments(_ context.Context, accessToken, id string) ([]graph.Attachment, error) {
	if f.attachmentsFn == nil {
		f.t.Fatal("unexpected ListAttachments call")
	}
	return f.attachmentsFn(accessToken, id)
}

func (f *fakeGraph) CreateSubscription(_ context.Context, accessToken string, sub graph.Subscription) (*graph.Subscription, error) {
	if f.createSubFn == nil {
		f.t.Fatal("unexpected CreateSubscription call")
	}
	return f.createSubFn(accessToken, sub)
}

func (f *fakeGraph) RenewSubscription(_ context.Context, accessToken, id string, exp time.Time) (*graph.Subscription, error) {
	if f.renewSubFn == nil {
		f.t.Fatal("unexpected RenewSubscription call")
	}
	return f.renewSubFn(accessToken, id, exp)
}

func (f *fakeGraph) DeleteSubscription(_ context.Context, accessToken, id string) error {
	if f.deleteSubFn == nil {
		f.t.Fatal("unexpected DeleteSubscription call")
	}
	return f.deleteSubFn(accessToken, id)
}

func (f *fakeGraph) AuthCodeURL(state, redirectURL string) string {
	return "https://login.example.com/authorize?state=" + state + "&redirect_uri=" + redirectURL
}

func (f *fakeGraph) Exchange(_ context.Context, code, _ string) (*oauth2.Token, error) {
	if f.exchangeFn == nil {
		f.t.Fatal("unexpected Exchange call")
	}
	return f.exchangeFn(code)
}

func (f *fakeGraph) Refresh(_ context.Context, refreshToken string) (*oauth2.Token, error) {
	if f.refreshFn == nil {
		f.t.Fatal("unexpected Refresh call")
	}
	return f.refreshFn(refreshToken)
}

func (f *fakeGraph) Scope() []string {
	return []string{"https://graph.microsoft.com/Mail.Read", "offline_access"}
}

// fakeQueue collects submitted jobs so tests can drive step chaining by
// hand instead of through a real worker pool.
type fakeQueue struct {
	pending []jobs.Job
}

func (q *fakeQueue) Submit(job jobs.Job) bool {
	q.pending = append(q.pending, job)
	return true
}

// drain runs queued jobs, including ones they enqueue, until quiet.
func (q *fakeQueue) drain() {
	for len(q.pending) > 0 {
		job := q.pending[0]
		q.pending = q.pending[1:]
		job.Run()
	}
}
