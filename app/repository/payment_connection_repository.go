package repository

import (
	"github.com/LinkTally/LinkTally/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentConnectionRepository implements PaymentConnectionRepository
type paymentConnectionRepository struct {
	db *gorm.DB
}

// NewPaymentConnectionRepository creates a new payment-connection repository instance
func NewPaymentConnectionRepository(db *gorm.DB) PaymentConnectionRepository {
	return &paymentConnectionRepository{db: db}
}

// Upsert creates the connection or, on a reconnect of the same
// (user, provider, account), refreshes credentials and reactivates the
// existing row instead of duplicating it.
func (r *paymentConnectionRepository) Upsert(conn *models.PaymentConnection) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "provider"},
			{Name: "account_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token_enc",
			"refresh_token_enc",
			"scope",
			"status",
			"updated_at",
		}),
	}).Create(conn).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("user_id = ? AND provider = ? AND account_id = ?",
		conn.UserID, conn.Provider, conn.AccountID).First(conn).Error
}

// GetByID retrieves a connection by ID
func (r *paymentConnectionRepository) GetByID(id uint) (*models.PaymentConnection, error) {
	var conn models.PaymentConnection
	err := r.db.First(&conn, id).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// GetActiveByAccount resolves a processor account to its active connection
func (r *paymentConnectionRepository) GetActiveByAccount(provider, accountID string) (*models.PaymentConnection, error) {
	var conn models.PaymentConnection
	err := r.db.Where("provider = ? AND account_id = ? AND status = ?",
		provider, accountID, models.ConnectionStatusActive).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// ListByUser returns all connections for a user, newest first
func (r *paymentConnectionRepository) ListByUser(userID uint) ([]models.PaymentConnection, error) {
	var conns []models.PaymentConnection
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&conns).Error
	return conns, err
}

// UpdateStatus flips the connection status (active/revoked/error)
func (r *paymentConnectionRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&models.PaymentConnection{}).
		Where("id = ?", id).Update("status", status).Error
}
