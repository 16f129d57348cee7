package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/eliOcs/crm-backend/internal/crm"
	crmrepo "github.com/eliOcs/crm-backend/internal/crm/repository"
	"github.com/eliOcs/crm-backend/internal/mailbox/domain"
	"github.com/eliOcs/crm-backend/internal/mailbox/repository"
	"github.com/eliOcs/crm-backend/pkg/graph"
)

// importUsecase implements ImportUsecase. It is the single choke point
// through which both the live webhook path and the historical backfill
// create messages, so dedup and field mapping behave identically
// everywhere.
type importUsecase struct {
	msgRepo     repository.MessageRepository
	credRepo    repository.CredentialRepository
	contactRepo crmrepo.ContactRepository
	tokens      TokenUsecase
	client      GraphClient
	enricher    crm.Enricher
}

func NewImportUsecase(
	msgRepo repository.MessageRepository,
	credRepo repository.CredentialRepository,
	contactRepo crmrepo.ContactRepository,
	tokens TokenUsecase,
	client GraphClient,
	enricher crm.Enricher,
) ImportUsecase {
	return &importUsecase{
		msgRepo:     msgRepo,
		credRepo:    credRepo,
		contactRepo: contactRepo,
		tokens:      tokens,
		client:      client,
		enricher:    enricher,
	}
}

// ImportByID idempotently imports one provider message. The existence
// check is the final word on duplication: the webhook path and a running
// backfill may both attempt the same id concurrently.
func (u *importUsecase) ImportByID(ctx context.Context, userID, messageID string) (*ImportResult, error) {
	existing, err := u.msgRepo.FindByProviderID(userID, messageID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ImportResult{Message: existing, AlreadyExists: true}, nil
	}

	cred, err := u.credRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrNotConnected
	}

	var remote *graph.Message
	err = callWithToken(ctx, u.tokens, cred, func(accessToken string) error {
		var callErr error
		remote, callErr = u.client.GetMessage(ctx, accessToken, messageID)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}

	msg := mapMessage(userID, remote)

	if remote.HasAttachments {
		var attachments []graph.Attachment
		err = callWithToken(ctx, u.tokens, cred, func(accessToken string) error {
			var callErr error
			attachments, callErr = u.client.ListAttachments(ctx, accessToken, messageID)
			return callErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch attachments for %s: %w", messageID, err)
		}
		msg.Attachments = mapAttachments(attachments)
	}

	if msg.FromEmail != "" {
		contact, err := u.contactRepo.FindByEmail(userID, msg.FromEmail)
		if err != nil {
			return nil, err
		}
		if contact != nil {
			msg.ContactID = &contact.ID
		}
	}

	if err := u.msgRepo.Create(msg); err != nil {
		// Lost the race against a concurrent import of the same id; the
		// unique constraint is the authority.
		if winner, findErr := u.msgRepo.FindByProviderID(userID, messageID); findErr == nil && winner != nil {
			return &ImportResult{Message: winner, AlreadyExists: true}, nil
		}
		return nil, err
	}

	if u.enricher != nil {
		go func(messageID string) {
			if err := u.enricher.Enrich(context.Background(), userID, messageID); err != nil {
				log.Printf("[Import] Enrichment failed for message %s: %v", messageID, err)
			}
		}(msg.ID)
	}

	return &ImportResult{Message: msg}, nil
}

func mapMessage(userID string, remote *graph.Message) *domain.Message {
	msg := &domain.Message{
		UserID:         userID,
		ProviderID:     remote.ID,
		ConversationID: remote.ConversationID,
		Subject:        remote.Subject,
		Preview:        remote.BodyPreview,
		Body:           remote.Body.Content,
		IsHTML:         strings.EqualFold(remote.Body.ContentType, "html"),
		ToEmails:       joinAddresses(remote.ToRecipients),
		CcEmails:       joinAddresses(remote.CcRecipients),
		ReceivedAt:     remote.ReceivedDateTime,
		IsRead:         remote.IsRead,
		WebLink:        remote.WebLink,
	}

	if remote.From != nil {
		msg.FromName = remote.From.EmailAddress.Name
		msg.FromEmail = strings.ToLower(remote.From.EmailAddress.Address)
	}

	return msg
}

func mapAttachments(attachments []graph.Attachment) []domain.MessageAttachment {
	var mapped []domain.MessageAttachment
	for _, att := range attachments {
		if !att.IsFile() {
			log.Printf("[Import] Skipping unsupported attachment kind %s (%s)", att.ODataType, att.Name)
			continue
		}

		content, err := base64.StdEncoding.DecodeString(att.ContentBytes)
		if err != nil {
			log.Printf("[Import] Skipping attachment %s: invalid base64 content: %v", att.Name, err)
			continue
		}

		mapped = append(mapped, domain.MessageAttachment{
			ProviderID: att.ID,
			Name:       att.Name,
			MimeType:   att.ContentType,
			Size:       att.Size,
			Content:    content,
		})
	}
	return mapped
}

func joinAddresses(recipients []graph.Recipient) string {
	var addresses []string
	for _, r := range recipients {
		if r.EmailAddress.Address != "" {
			addresses = append(addresses, strings.ToLower(r.EmailAddress.Address))
		}
	}
	return strings.Join(addresses, ", ")
}
