package graph

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

const messageSelect = "id,conversationId,subject,bodyPreview,body,from,toRecipients,ccRecipients,receivedDateTime,hasAttachments,isRead,webLink"

type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type Message struct {
	ID               string      `json:"id"`
	ConversationID   string      `json:"conversationId"`
	Subject          string      `json:"subject"`
	BodyPreview      string      `json:"bodyPreview"`
	Body             ItemBody    `json:"body"`
	From             *Recipient  `json:"from"`
	ToRecipients     []Recipient `json:"toRecipients"`
	CcRecipients     []Recipient `json:"ccRecipients"`
	ReceivedDateTime time.Time   `json:"receivedDateTime"`
	HasAttachments   bool        `json:"hasAttachments"`
	IsRead           bool        `json:"isRead"`
	WebLink          string      `json:"webLink"`
}

// MessagePage is one page of a folder listing. NextLink is an opaque
// provider-issued URL: store and replay it, never construct or parse it.
type MessagePage struct {
	Value    []Message `json:"value"`
	NextLink string    `json:"@odata.nextLink"`
	Count    int64     `json:"@odata.count"`
}

type Attachment struct {
	ODataType    string `json:"@odata.type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	IsInline     bool   `json:"isInline"`
	ContentBytes string `json:"contentBytes"`
}

// IsFile reports whether the attachment carries inline base64 content.
// Item and reference attachments have no contentBytes and are skipped.
func (a Attachment) IsFile() bool {
	return a.ODataType == "#microsoft.graph.fileAttachment"
}

type ListOptions struct {
	Top           int
	ReceivedAfter time.Time
}

// ListMessages fetches the first page of a folder listing, newest first.
func (s *Service) ListMessages(ctx context.Context, accessToken, folder string, opts ListOptions) (*MessagePage, error) {
	top := opts.Top
	if top <= 0 || top > 50 {
		top = 50
	}

	params := url.Values{}
	params.Set("$top", fmt.Sprintf("%d", top))
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$select", messageSelect)
	if !opts.ReceivedAfter.IsZero() {
		params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", opts.ReceivedAfter.UTC().Format(time.RFC3339)))
	}

	var page MessagePage
	endpoint := fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", s.BaseURL, url.PathEscape(folder), params.Encode())
	if err := s.get(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CountMessages returns the number of messages in a folder matching the
// time filter without fetching the records themselves.
func (s *Service) CountMessages(ctx context.Context, accessToken, folder string, receivedAfter time.Time) (int64, error) {
	params := url.Values{}
	params.Set("$count", "true")
	params.Set("$top", "1")
	params.Set("$select", "id")
	if !receivedAfter.IsZero() {
		params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", receivedAfter.UTC().Format(time.RFC3339)))
	}

	var page MessagePage
	endpoint := fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", s.BaseURL, url.PathEscape(folder), params.Encode())
	if err := s.get(ctx, accessToken, endpoint, &page); err != nil {
		return 0, err
	}
	return page.Count, nil
}

// NextPage replays a stored @odata.nextLink verbatim.
func (s *Service) NextPage(ctx context.Context, accessToken, nextLink string) (*MessagePage, error) {
	var page MessagePage
	if err := s.get(ctx, accessToken, nextLink, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetMessage fetches a single message by provider id.
func (s *Service) GetMessage(ctx context.Context, accessToken, messageID string) (*Message, error) {
	params := url.Values{}
	params.Set("$select", messageSelect)

	var msg Message
	endpoint := fmt.Sprintf("%s/me/messages/%s?%s", s.BaseURL, url.PathEscape(messageID), params.Encode())
	if err := s.get(ctx, accessToken, endpoint, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListAttachments fetches attachment metadata plus inline base64 content.
func (s *Service) ListAttachments(ctx context.Context, accessToken, messageID string) ([]Attachment, error) {
	var resp struct {
		Value []Attachment `json:"value"`
	}
	endpoint := fmt.Sprintf("%s/me/messages/%s/attachments", s.BaseURL, url.PathEscape(messageID))
	if err := s.get(ctx, accessToken, endpoint, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}
