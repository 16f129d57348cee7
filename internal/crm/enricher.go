package crm

import (
	"context"
	"log"
)

// Enricher consumes "message imported" events. The real implementation
// (entity resolution, company matching, task extraction) lives outside the
// sync engine; the engine only fires the event asynchronously after a
// message is persisted.
type Enricher interface {
	Enrich(ctx context.Context, userID, messageID string) error
}

// LogEnricher is the default no-op collaborator wired in development.
type LogEnricher struct{}

func (LogEnricher) Enrich(_ context.Context, userID, messageID string) error {
	log.Printf("[Enricher] message imported user=%s message=%s", userID, messageID)
	return nil
}
