package revenue

import (
	"github.com/LinkTally/LinkTally/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ledger service.
type Repository interface {
	CreateEntry(entry *models.RevenueEntry) error
	CreateEntryIfAbsent(entry *models.RevenueEntry) (bool, *models.RevenueEntry, error)
	GetOwnedLink(userID, linkID uint) (*models.TrackingLink, error)
	SumCentsByLink(userID uint) (map[uint]int64, error)
	ListByUser(userID uint, trackingLinkID uint, offset, limit int) ([]models.RevenueEntry, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEntry(entry *models.RevenueEntry) error {
	return r.db.Create(entry).Error
}

// CreateEntryIfAbsent inserts the entry unless a row with the same
// (processor, upstream_payment_id) already exists, in which case the stored
// row is returned. The conflict handling runs inside the insert so two
// concurrent deliveries of the same underlying payment cannot both commit.
func (r *gormRepository) CreateEntryIfAbsent(entry *models.RevenueEntry) (bool, *models.RevenueEntry, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "processor"},
			{Name: "upstream_payment_id"},
		},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.RevenueEntry
	if err := r.db.Where("processor = ? AND upstream_payment_id = ?", entry.Processor, entry.UpstreamPaymentID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) GetOwnedLink(userID, linkID uint) (*models.TrackingLink, error) {
	var link models.TrackingLink
	err := r.db.Where("id = ? AND user_id = ?", linkID, userID).First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *gormRepository) SumCentsByLink(userID uint) (map[uint]int64, error) {
	type row struct {
		TrackingLinkID uint
		Total          int64
	}
	var rows []row
	err := r.db.Model(&models.RevenueEntry{}).
		Select("tracking_link_id, SUM(amount_cents) AS total").
		Where("user_id = ?", userID).
		Group("tracking_link_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[uint]int64, len(rows))
	for _, r := range rows {
		totals[r.TrackingLinkID] = r.Total
	}
	return totals, nil
}

func (r *gormRepository) ListByUser(userID uint, trackingLinkID uint, offset, limit int) ([]models.RevenueEntry, error) {
	q := r.db.Where("user_id = ?", userID)
	if trackingLinkID != 0 {
		q = q.Where("tracking_link_id = ?", trackingLinkID)
	}
	var entries []models.RevenueEntry
	err := q.Order("entry_date DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, err
}
