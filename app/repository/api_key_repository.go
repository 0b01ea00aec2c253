package repository

import (
	"strings"
	"time"

	"github.com/LinkTally/LinkTally/app/models"
	"gorm.io/gorm"
)

// apiKeyRepository implements the ApiKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewApiKeyRepository creates a new API-key repository instance
func NewApiKeyRepository(db *gorm.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

// RotateKey revokes all active keys for the owner and inserts the new key
// inside one transaction. Concurrent generation requests serialize on the
// transaction, so at most one non-revoked key exists at any point.
func (r *apiKeyRepository) RotateKey(key *models.ApiKey) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&models.ApiKey{}).
			Where("user_id = ? AND revoked_at IS NULL", key.UserID).
			Update("revoked_at", now).Error; err != nil {
			return err
		}
		return tx.Create(key).Error
	})
}

// GetActiveByHash resolves an API-key hash to its non-revoked record
func (r *apiKeyRepository) GetActiveByHash(hash string) (*models.ApiKey, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var key models.ApiKey
	err := r.db.Where("key_hash = ? AND revoked_at IS NULL", trimmed).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// ListByUser returns all keys for a user, newest first
func (r *apiKeyRepository) ListByUser(userID uint) ([]models.ApiKey, error) {
	var keys []models.ApiKey
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// TouchUsage refreshes the last-used timestamp best-effort
func (r *apiKeyRepository) TouchUsage(id uint) error {
	now := time.Now()
	return r.db.Model(&models.ApiKey{}).Where("id = ?", id).
		Update("last_used_at", now).Error
}
