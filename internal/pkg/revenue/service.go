package revenue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LinkTally/LinkTally/app/models"
	"gorm.io/gorm"
)

// Service is the append-only revenue ledger. Entries link revenue to exactly
// one tracking link; processor-sourced entries additionally carry the
// upstream payment identity that makes recording at-most-once.
type Service struct {
	repo Repository
}

// NewService creates a ledger service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// RecordAutomatic records processor-sourced revenue. When an upstream
// payment id is present the insert is idempotent on (processor, upstream
// payment id): replays and sibling event types reporting the same underlying
// charge resolve to the stored entry instead of a duplicate. This guard is
// independent of the webhook event log's own dedup, covering the case where
// the log's event identity and the payment's true identity diverge.
//
// The returned bool is true when a new entry was inserted.
func (s *Service) RecordAutomatic(ctx context.Context, in AutomaticEntry) (*models.RevenueEntry, bool, error) {
	_ = ctx
	if in.UserID == 0 || in.TrackingLinkID == 0 {
		return nil, false, fmt.Errorf("%w: user and tracking link are required", ErrValidation)
	}
	if in.AmountCents < 0 {
		return nil, false, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	processor := strings.ToLower(strings.TrimSpace(in.Processor))
	if processor == "" {
		return nil, false, fmt.Errorf("%w: processor is required", ErrValidation)
	}

	entry := &models.RevenueEntry{
		UserID:              in.UserID,
		TrackingLinkID:      in.TrackingLinkID,
		AmountCents:         in.AmountCents,
		Currency:            normalizeCurrency(in.Currency),
		Description:         strings.TrimSpace(in.Description),
		Source:              models.RevenueSourceAutomatic,
		Processor:           processor,
		PaymentConnectionID: in.PaymentConnectionID,
		EntryDate:           entryDate(in.EntryDate),
	}

	paymentID := strings.TrimSpace(in.UpstreamPaymentID)
	if paymentID == "" {
		// Direct-API ingests have no processor-guaranteed redelivery to
		// protect against; they are appended without a dedup key.
		if err := s.repo.CreateEntry(entry); err != nil {
			return nil, false, err
		}
		return entry, true, nil
	}

	entry.UpstreamPaymentID = &paymentID
	created, stored, err := s.repo.CreateEntryIfAbsent(entry)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

// RecordManual appends a user-entered revenue entry. Zero amounts are valid,
// negative amounts are not.
func (s *Service) RecordManual(ctx context.Context, in ManualEntry) (*models.RevenueEntry, error) {
	_ = ctx
	if in.UserID == 0 || in.TrackingLinkID == 0 {
		return nil, fmt.Errorf("%w: user and tracking link are required", ErrValidation)
	}
	if in.AmountCents < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if _, err := s.repo.GetOwnedLink(in.UserID, in.TrackingLinkID); err != nil {
		return nil, fmt.Errorf("%w: tracking link not found for user", ErrValidation)
	}

	entry := &models.RevenueEntry{
		UserID:         in.UserID,
		TrackingLinkID: in.TrackingLinkID,
		AmountCents:    in.AmountCents,
		Currency:       normalizeCurrency(in.Currency),
		Description:    strings.TrimSpace(in.Description),
		Source:         models.RevenueSourceManual,
		EntryDate:      entryDate(in.EntryDate),
	}
	if err := s.repo.CreateEntry(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// SumByLink returns aggregate revenue in minor units per tracking link.
func (s *Service) SumByLink(ctx context.Context, userID uint) (map[uint]int64, error) {
	_ = ctx
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is required", ErrValidation)
	}
	return s.repo.SumCentsByLink(userID)
}

// ListEntries returns a page of entries, newest entry date first, optionally
// filtered to one tracking link.
func (s *Service) ListEntries(ctx context.Context, userID, trackingLinkID uint, offset, limit int) ([]models.RevenueEntry, error) {
	_ = ctx
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(userID, trackingLinkID, offset, limit)
}

func normalizeCurrency(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return "usd"
	}
	return c
}

func entryDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
