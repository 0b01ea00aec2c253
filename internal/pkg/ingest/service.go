package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/app/repository"
	"github.com/LinkTally/LinkTally/internal/pkg/attribution"
	"github.com/LinkTally/LinkTally/internal/pkg/revenue"
	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

// stripeAccountPlatform is the synthetic account id used when an event
// carries no connected-account header (direct platform events).
const stripeAccountPlatform = "platform"

// LinkMatcher is the matching-engine surface the processor needs.
type LinkMatcher interface {
	Match(userID uint, sig attribution.Signals) (*models.TrackingLink, error)
}

// Ledger is the revenue-ledger surface the processor needs.
type Ledger interface {
	RecordAutomatic(ctx context.Context, in revenue.AutomaticEntry) (*models.RevenueEntry, bool, error)
}

// Service is the webhook processing state machine. Signature verification
// happens before the service is invoked (an unverified payload's claimed
// event id cannot be trusted, so it never reaches the log); everything after
// that point is recorded in the event log with its resolution outcome.
type Service struct {
	repo    Repository
	matcher LinkMatcher
	ledger  Ledger
}

// NewService creates a webhook processor from injected collaborators.
func NewService(repo Repository, matcher LinkMatcher, ledger Ledger) *Service {
	return &Service{repo: repo, matcher: matcher, ledger: ledger}
}

// NewServiceFromDB wires the processor against GORM-backed stores.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(
		NewRepository(db),
		attribution.NewMatcher(repository.NewTrackingLinkRepository(db)),
		revenue.NewServiceFromDB(db),
	)
}

// ProcessStripeEvent runs one verified Stripe event through the pipeline:
//
//	lookup connection -> pending log (idempotent) -> dispatch by kind ->
//	match -> record revenue -> terminal log status
//
// An error return means processing failed after the pending row was written;
// the caller surfaces it as a 500 so the processor redelivers. Redelivery is
// safe: terminal rows short-circuit, non-terminal rows resume, and the
// ledger's own idempotency key prevents duplicate revenue either way.
func (s *Service) ProcessStripeEvent(ctx context.Context, event *stripe.Event, rawPayload []byte) (Outcome, error) {
	accountID := event.Account
	if accountID == "" {
		accountID = stripeAccountPlatform
	}

	conn, err := s.repo.GetActiveConnection(models.PaymentProviderStripe, accountID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Outcome{}, fmt.Errorf("connection lookup failed: %w", err)
	}

	logEntry := &models.WebhookEventLog{
		Provider:  models.PaymentProviderStripe,
		EventID:   event.ID,
		EventType: string(event.Type),
		Payload:   string(rawPayload),
	}
	if conn != nil {
		logEntry.ConnectionID = &conn.ID
	}

	created, stored, err := s.repo.CreatePendingIfNotExists(logEntry)
	if err != nil {
		return Outcome{}, fmt.Errorf("webhook log persist failed: %w", err)
	}

	if !created && stored.IsTerminal() {
		// Replay of an already-resolved delivery: resolve to the prior
		// outcome without re-running matching or recording.
		return Outcome{
			Status:         stored.Status,
			LogID:          stored.ID,
			RevenueEntryID: stored.RevenueEntryID,
			Duplicate:      true,
		}, nil
	}
	// A non-terminal existing row (pending or failed) is a redelivery of an
	// unfinished attempt and must resume processing.

	if conn == nil {
		// Logged for audit, never produces revenue.
		s.markIgnored(stored.ID, "no active connection for account "+accountID)
		return Outcome{Status: OutcomeIgnored, LogID: stored.ID}, nil
	}

	outcome, procErr := s.processPurchase(ctx, event, conn, stored.ID)
	if procErr != nil {
		if err := s.repo.MarkFailed(stored.ID, procErr.Error()); err != nil {
			procErr = fmt.Errorf("%w (additionally failed to record failure: %v)", procErr, err)
		}
		return Outcome{Status: models.WebhookStatusFailed, LogID: stored.ID}, procErr
	}
	outcome.LogID = stored.ID
	return outcome, nil
}

func (s *Service) processPurchase(ctx context.Context, event *stripe.Event, conn *models.PaymentConnection, logID uint) (Outcome, error) {
	purchase, err := ParsePurchase(event)
	if err != nil {
		return Outcome{}, err
	}
	if purchase.Kind == EventKindUnsupported {
		s.markIgnored(logID, "unsupported event type "+string(event.Type))
		return Outcome{Status: OutcomeIgnored}, nil
	}

	link, err := s.matcher.Match(conn.UserID, purchase.Signals)
	if errors.Is(err, attribution.ErrNoSignal) {
		s.markIgnored(logID, "event carries no attribution metadata")
		return Outcome{Status: OutcomeIgnored}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	if link == nil {
		s.markIgnored(logID, "no matching tracking link found")
		return Outcome{Status: OutcomeIgnored}, nil
	}

	description := "Stripe payment"
	if purchase.CustomerEmail != "" {
		description = "Stripe payment from " + purchase.CustomerEmail
	}

	entry, _, err := s.ledger.RecordAutomatic(ctx, revenue.AutomaticEntry{
		UserID:              conn.UserID,
		TrackingLinkID:      link.ID,
		AmountCents:         purchase.AmountCents,
		Currency:            purchase.Currency,
		Description:         description,
		Processor:           models.RevenueProcessorStripe,
		UpstreamPaymentID:   purchase.PaymentID,
		PaymentConnectionID: &conn.ID,
		EntryDate:           time.Unix(event.Created, 0),
	})
	if err != nil {
		return Outcome{}, err
	}

	if err := s.repo.MarkProcessed(logID, entry.ID); err != nil {
		return Outcome{}, fmt.Errorf("failed to mark webhook processed: %w", err)
	}
	entryID := entry.ID
	return Outcome{Status: OutcomeProcessed, RevenueEntryID: &entryID}, nil
}

func (s *Service) markIgnored(logID uint, reason string) {
	if err := s.repo.MarkIgnored(logID, reason); err != nil {
		// The event itself was handled; a failed status write only degrades
		// the audit trail, which the next redelivery repairs.
		log.Printf("failed to mark webhook log %d ignored: %v", logID, err)
	}
}
