package ingest

import (
	"log"
	"time"

	"github.com/LinkTally/LinkTally/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the webhook processor.
type Repository interface {
	GetActiveConnection(provider, accountID string) (*models.PaymentConnection, error)
	CreatePendingIfNotExists(entry *models.WebhookEventLog) (bool, *models.WebhookEventLog, error)
	MarkProcessed(logID uint, revenueEntryID uint) error
	MarkIgnored(logID uint, reason string) error
	MarkFailed(logID uint, errMsg string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a webhook-event repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetActiveConnection(provider, accountID string) (*models.PaymentConnection, error) {
	var conn models.PaymentConnection
	err := r.db.Where("provider = ? AND account_id = ? AND status = ?",
		provider, accountID, models.ConnectionStatusActive).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// CreatePendingIfNotExists inserts the event log row unless one with the
// same (provider, event_id) exists, and returns the stored row either way.
// The conflict handling is part of the insert statement, so two concurrent
// deliveries of the same upstream event resolve to a single row without a
// read-then-write race.
func (r *gormRepository) CreatePendingIfNotExists(entry *models.WebhookEventLog) (bool, *models.WebhookEventLog, error) {
	entry.Status = models.WebhookStatusPending
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "event_id"},
		},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEventLog
	if err := r.db.Where("provider = ? AND event_id = ?", entry.Provider, entry.EventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkProcessed(logID uint, revenueEntryID uint) error {
	return r.transition(logID, map[string]interface{}{
		"status":           models.WebhookStatusProcessed,
		"revenue_entry_id": revenueEntryID,
	})
}

func (r *gormRepository) MarkIgnored(logID uint, reason string) error {
	return r.transition(logID, map[string]interface{}{
		"status":        models.WebhookStatusIgnored,
		"error_message": reason,
	})
}

func (r *gormRepository) MarkFailed(logID uint, errMsg string) error {
	return r.transition(logID, map[string]interface{}{
		"status":        models.WebhookStatusFailed,
		"error_message": errMsg,
	})
}

// transition applies a terminal-status update. The WHERE clause excludes
// rows that already reached processed/ignored, so a double-delivery race
// cannot rewrite a terminal outcome; losing the race is a warn-and-noop.
func (r *gormRepository) transition(logID uint, updates map[string]interface{}) error {
	now := time.Now()
	updates["processed_at"] = &now

	tx := r.db.Model(&models.WebhookEventLog{}).
		Where("id = ? AND status NOT IN ?", logID,
			[]string{models.WebhookStatusProcessed, models.WebhookStatusIgnored}).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		log.Printf("webhook log %d already terminal, skipping transition to %v", logID, updates["status"])
	}
	return nil
}
