// Package graph is a thin HTTP wrapper around the Microsoft Graph mail API.
// Every call takes a bearer access token; token lifecycle lives in the
// mailbox usecase layer, not here.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// ErrTokenExpired is returned on HTTP 401. Callers refresh the credential
// and retry once; a second 401 is treated like any other APIError.
var ErrTokenExpired = errors.New("access token expired")

// APIError is any non-2xx Graph response other than 401.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph api error %d: %s", e.StatusCode, e.Message)
}

type Service struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	// BaseURL is overridable for tests.
	BaseURL string
}

func NewService(clientID, clientSecret, tenantID string) *Service {
	if tenantID == "" {
		tenantID = "common"
	}

	return &Service{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes: []string{
				"https://graph.microsoft.com/Mail.Read",
				"https://graph.microsoft.com/User.Read",
				"offline_access",
			},
			Endpoint: microsoft.AzureADEndpoint(tenantID),
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    defaultBaseURL,
	}
}

func (s *Service) do(ctx context.Context, accessToken, method, url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrTokenExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Service) get(ctx context.Context, accessToken, url string, out interface{}) error {
	return s.do(ctx, accessToken, http.MethodGet, url, nil, out)
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Code != "" {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	} else {
		apiErr.Message = string(raw)
	}

	return apiErr
}

// Profile is the connected account identity from /me.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// GetProfile resolves the identity of the account the token belongs to.
func (s *Service) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	if err := s.get(ctx, accessToken, s.BaseURL+"/me", &profile); err != nil {
		return nil, err
	}

	// Personal accounts leave mail empty and put the address in the UPN.
	if profile.Mail == "" {
		profile.Mail = profile.UserPrincipalName
	}

	return &profile, nil
}
