package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// MaxSubscriptionLifetime is the longest expiry Graph accepts for mail
// resources (4230 minutes, just under 3 days).
const MaxSubscriptionLifetime = 4230 * time.Minute

type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	Resource           string    `json:"resource"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	ClientState        string    `json:"clientState"`
}

// CreateSubscription registers a webhook subscription. The provider calls
// the notification URL with a validation token before this returns.
func (s *Service) CreateSubscription(ctx context.Context, accessToken string, sub Subscription) (*Subscription, error) {
	var created Subscription
	if err := s.do(ctx, accessToken, http.MethodPost, s.BaseURL+"/subscriptions", sub, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// RenewSubscription extends a subscription's expiry. The returned expiry is
// authoritative; it may differ from the requested one.
func (s *Service) RenewSubscription(ctx context.Context, accessToken, subscriptionID string, expiresAt time.Time) (*Subscription, error) {
	body := struct {
		ExpirationDateTime time.Time `json:"expirationDateTime"`
	}{ExpirationDateTime: expiresAt}

	var renewed Subscription
	endpoint := fmt.Sprintf("%s/subscriptions/%s", s.BaseURL, url.PathEscape(subscriptionID))
	if err := s.do(ctx, accessToken, http.MethodPatch, endpoint, body, &renewed); err != nil {
		return nil, err
	}
	return &renewed, nil
}

// DeleteSubscription removes a subscription. Deleting one the provider has
// already forgotten counts as success.
func (s *Service) DeleteSubscription(ctx context.Context, accessToken, subscriptionID string) error {
	endpoint := fmt.Sprintf("%s/subscriptions/%s", s.BaseURL, url.PathEscape(subscriptionID))
	err := s.do(ctx, accessToken, http.MethodDelete, endpoint, nil, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}
