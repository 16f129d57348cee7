package delivery

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// fakeRuns scripts the orchestrator behind the HTTP surface.
type fakeRuns struct {
	startFn  func(userID string, rng domain.ImportRange) (*domain.ImportRun, error)
	cancelFn func(userID string) error
	statusFn func(userID string) (*domain.ImportRun, error)
}

func (f *fakeRuns) Start(_ context.Context, userID string, rng domain.ImportRange) (*domain.ImportRun, error) {
	return f.startFn(userID, rng)
}

func (f *fakeRuns) Cancel(userID string) error { return f.cancelFn(userID) }

func (f *fakeRuns) Status(userID string) (*domain.ImportRun, error) { return f.statusFn(userID) }

func (f *fakeRuns) Advance(context.Context, string) error { return nil }

func (f *fakeRuns) Resume(time.Duration) error { return nil }

func newImportRouter(runs usecase.RunUsecase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewImportHandler(runs)

	r := gin.New()
	// Stand-in for the auth middleware.
	r.Use(func(c *gin.Context) { c.Set("userID", "user-1") })
	r.POST("/api/mailbox/import", handler.StartImport)
	r.POST("/api/mailbox/import/cancel", handler.CancelImport)
	r.GET("/api/mailbox/import/status", handler.GetImportStatus)
	return r
}

func TestStartImportAccepted(t *testing.T) {
	runs := &fakeRuns{
		startFn: func(userID string, rng domain.ImportRange) (*domain.ImportRun, error) {
			assert.Equal(t, "user-1", userID)
			assert.Equal(t, domain.RangeOneYear, rng)
			return &domain.ImportRun{ID: "run-1", Status: domain.StatusPending}, nil
		},
	}
	r := newImportRouter(runs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mailbox/import",
		bytes.NewBufferString(`{"range":"last_1_year"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"pending"`)
}

func TestStartImportErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid range", usecase.ErrInvalidRange, http.StatusBadRequest},
		{"not connected", usecase.ErrNotConnected, http.StatusConflict},
		{"run active", usecase.ErrRunActive, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runs := &fakeRuns{
				startFn: func(string, domain.ImportRange) (*domain.ImportRun, error) {
					return nil, tc.err
				},
			}
			r := newImportRouter(runs)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/mailbox/import",
				bytes.NewBufferString(`{"range":"last_1_year"}`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestStartImportMissingRange(t *testing.T) {
	r := newImportRouter(&fakeRuns{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mailbox/import",
		bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelImport(t *testing.T) {
	runs := &fakeRuns{cancelFn: func(string) error { return nil }}
	r := newImportRouter(runs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mailbox/import/cancel", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCancelImportWithoutRun(t *testing.T) {
	runs := &fakeRuns{cancelFn: func(string) error { return usecase.ErrNoActiveRun }}
	r := newImportRouter(runs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/mailbox/import/cancel", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportStatusIsNeverCached(t *testing.T) {
	runs := &fakeRuns{
		statusFn: func(string) (*domain.ImportRun, error) {
			return &domain.ImportRun{
				ID:             "run-1",
				Status:         domain.StatusImporting,
				TotalEmails:    12,
				ImportedEmails: 4,
				StartedAt:      time.Now(),
			}, nil
		},
	}
	r := newImportRouter(runs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/mailbox/import/status", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), `"importing"`)
}

func TestImportStatusWithoutRun(t *testing.T) {
	runs := &fakeRuns{statusFn: func(string) (*domain.ImportRun, error) { return nil, nil }}
	r := newImportRouter(runs)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/mailbox/import/status", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
