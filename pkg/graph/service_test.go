package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(handler http.Handler) (*Service, *httptest.Server) {
	server := httptest.NewServer(handler)
	svc := NewService("client-id", "client-secret", "common")
	svc.BaseURL = server.URL
	return svc, server
}

func TestGetProfile(t *testing.T) {
	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{
			"id":                "acc-1",
			"displayName":       "Jane Doe",
			"userPrincipalName": "jane@example.com",
		})
	}))
	defer server.Close()

	profile, err := svc.GetProfile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", profile.ID)
	// mail falls back to the UPN for personal accounts
	assert.Equal(t, "jane@example.com", profile.Mail)
}

func TestUnauthorizedIsTokenExpired(t *testing.T) {
	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := svc.GetProfile(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAPIErrorDecoding(t *testing.T) {
	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":"ApplicationThrottled","message":"slow down"}}`)
	}))
	defer server.Close()

	_, err := svc.GetProfile(context.Background(), "tok")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "ApplicationThrottled", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "slow down")
}

func TestListMessagesQuery(t *testing.T) {
	after := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/mailFolders/inbox/messages", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "50", q.Get("$top"))
		assert.Equal(t, "receivedDateTime desc", q.Get("$orderby"))
		assert.Equal(t, "receivedDateTime ge 2025-06-01T00:00:00Z", q.Get("$filter"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"value":           []map[string]string{{"id": "m1"}, {"id": "m2"}},
			"@odata.nextLink": "https://graph.example.com/next?$skiptoken=abc",
		})
	}))
	defer server.Close()

	page, err := svc.ListMessages(context.Background(), "tok", "inbox", ListOptions{ReceivedAfter: after})
	require.NoError(t, err)
	assert.Len(t, page.Value, 2)
	assert.Equal(t, "https://graph.example.com/next?$skiptoken=abc", page.NextLink)
}

func TestNextPageReplaysLinkVerbatim(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.RequestURI()
		json.NewEncoder(w).Encode(map[string]interface{}{"value": []map[string]string{{"id": "m3"}}})
	}))
	defer server.Close()

	svc := NewService("id", "secret", "common")
	page, err := svc.NextPage(context.Background(), "tok", server.URL+"/me/mailFolders/inbox/messages?$skiptoken=opaque%3D%3D")
	require.NoError(t, err)
	assert.Equal(t, "/me/mailFolders/inbox/messages?$skiptoken=opaque%3D%3D", gotURL)
	assert.Len(t, page.Value, 1)
	assert.Empty(t, page.NextLink)
}

func TestCountMessages(t *testing.T) {
	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("$count"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"@odata.count": 128,
			"value":        []map[string]string{{"id": "m1"}},
		})
	}))
	defer server.Close()

	count, err := svc.CountMessages(context.Background(), "tok", "inbox", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(128), count)
}

func TestDeleteSubscriptionIdempotent(t *testing.T) {
	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"ResourceNotFound","message":"gone"}}`)
	}))
	defer server.Close()

	err := svc.DeleteSubscription(context.Background(), "tok", "sub-1")
	assert.NoError(t, err)
}

func TestDeleteSubscriptionOtherErrors(t *testing.T) {
	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := svc.DeleteSubscription(context.Background(), "tok", "sub-1")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestCreateSubscription(t *testing.T) {
	expiry := time.Now().Add(MaxSubscriptionLifetime).UTC().Truncate(time.Second)

	svc, server := newTestService(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscriptions", r.URL.Path)
		var sub Subscription
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Equal(t, "created", sub.ChangeType)
		assert.Equal(t, "me/mailFolders('inbox')/messages", sub.Resource)

		sub.ID = "provider-sub-1"
		// provider trims the requested expiry
		sub.ExpirationDateTime = expiry.Add(-time.Minute)
		json.NewEncoder(w).Encode(sub)
	}))
	defer server.Close()

	created, err := svc.CreateSubscription(context.Background(), "tok", Subscription{
		ChangeType:         "created",
		NotificationURL:    "https://crm.example.com/api/graph/notifications",
		Resource:           "me/mailFolders('inbox')/messages",
		ExpirationDateTime: expiry,
		ClientState:        "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "provider-sub-1", created.ID)
	assert.True(t, created.ExpirationDateTime.Before(expiry))
}

func TestAttachmentIsFile(t *testing.T) {
	assert.True(t, Attachment{ODataType: "#microsoft.graph.fileAttachment"}.IsFile())
	assert.False(t, Attachment{ODataType: "#microsoft.graph.itemAttachment"}.IsFile())
	assert.False(t, Attachment{ODataType: "#microsoft.graph.referenceAttachment"}.IsFile())
}
