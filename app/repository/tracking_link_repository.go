package repository

import (
	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/internal/pkg/attribution"
	"gorm.io/gorm"
)

// trackingLinkRepository implements the TrackingLinkRepository interface
type trackingLinkRepository struct {
	db *gorm.DB
}

// NewTrackingLinkRepository creates a new tracking-link repository instance
func NewTrackingLinkRepository(db *gorm.DB) TrackingLinkRepository {
	return &trackingLinkRepository{db: db}
}

// Create stores a new tracking link
func (r *trackingLinkRepository) Create(link *models.TrackingLink) error {
	return r.db.Create(link).Error
}

// GetByID retrieves a tracking link by its numeric ID
func (r *trackingLinkRepository) GetByID(id uint) (*models.TrackingLink, error) {
	var link models.TrackingLink
	err := r.db.First(&link, id).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetByUUID retrieves a tracking link by its public UUID
func (r *trackingLinkRepository) GetByUUID(uuid string) (*models.TrackingLink, error) {
	var link models.TrackingLink
	err := r.db.Where("uuid = ?", uuid).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetByShortCode retrieves a tracking link by its short code
func (r *trackingLinkRepository) GetByShortCode(code string) (*models.TrackingLink, error) {
	var link models.TrackingLink
	err := r.db.Where("short_code = ?", code).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// GetOwned retrieves a tracking link by UUID scoped to its owner
func (r *trackingLinkRepository) GetOwned(userID uint, uuid string) (*models.TrackingLink, error) {
	var link models.TrackingLink
	err := r.db.Where("uuid = ? AND user_id = ?", uuid, userID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListByUser returns all links for a user, newest first
func (r *trackingLinkRepository) ListByUser(userID uint) ([]models.TrackingLink, error) {
	var links []models.TrackingLink
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&links).Error
	return links, err
}

// Update updates an existing tracking link
func (r *trackingLinkRepository) Update(link *models.TrackingLink) error {
	return r.db.Save(link).Error
}

// Delete soft deletes a tracking link
func (r *trackingLinkRepository) Delete(id uint) error {
	return r.db.Delete(&models.TrackingLink{}, id).Error
}

// ShortCodeExists reports whether a short code is already taken, including
// by soft-deleted links, so a reused code can never resurrect old traffic.
func (r *trackingLinkRepository) ShortCodeExists(code string) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&models.TrackingLink{}).
		Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindBySignals returns exact-equality candidates for the matcher, newest
// first. The ordering is load-bearing: the multi-match tie-break picks the
// most recently created link.
func (r *trackingLinkRepository) FindBySignals(userID uint, q attribution.LinkQuery) ([]models.TrackingLink, error) {
	query := r.db.Where("user_id = ?", userID)
	if q.UTMSource != nil {
		query = query.Where("utm_source = ?", *q.UTMSource)
	}
	if q.UTMCampaign != nil {
		query = query.Where("utm_campaign = ?", *q.UTMCampaign)
	}
	if q.UTMContent != nil {
		query = query.Where("utm_content = ?", *q.UTMContent)
	}

	var links []models.TrackingLink
	err := query.Order("created_at DESC").Find(&links).Error
	return links, err
}

// CountByUser returns the number of links a user owns
func (r *trackingLinkRepository) CountByUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TrackingLink{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
