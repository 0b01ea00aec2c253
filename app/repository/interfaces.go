package repository

import (
	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/internal/pkg/attribution"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// TrackingLinkRepository defines the interface for tracking-link operations.
// It doubles as the matcher's LinkSource: FindBySignals is the raw
// exact-equality lookup the matching engine cascades over.
type TrackingLinkRepository interface {
	Create(link *models.TrackingLink) error
	GetByID(id uint) (*models.TrackingLink, error)
	GetByUUID(uuid string) (*models.TrackingLink, error)
	GetByShortCode(code string) (*models.TrackingLink, error)
	GetOwned(userID uint, uuid string) (*models.TrackingLink, error)
	ListByUser(userID uint) ([]models.TrackingLink, error)
	Update(link *models.TrackingLink) error
	Delete(id uint) error
	ShortCodeExists(code string) (bool, error)
	FindBySignals(userID uint, q attribution.LinkQuery) ([]models.TrackingLink, error)
	CountByUser(userID uint) (int64, error)
}

// PaymentConnectionRepository defines the interface for processor-connection
// operations. Upsert carries the reconnect invariant: one row per
// (user, provider, account).
type PaymentConnectionRepository interface {
	Upsert(conn *models.PaymentConnection) error
	GetByID(id uint) (*models.PaymentConnection, error)
	GetActiveByAccount(provider, accountID string) (*models.PaymentConnection, error)
	ListByUser(userID uint) ([]models.PaymentConnection, error)
	UpdateStatus(id uint, status string) error
}

// ApiKeyRepository defines the interface for public-API key operations.
type ApiKeyRepository interface {
	// RotateKey revokes every active key for the user and inserts the new
	// one in a single transaction, so there is never a window with two
	// active keys under concurrent generation.
	RotateKey(key *models.ApiKey) error
	GetActiveByHash(hash string) (*models.ApiKey, error)
	ListByUser(userID uint) ([]models.ApiKey, error)
	TouchUsage(id uint) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	User              UserRepository
	TrackingLink      TrackingLinkRepository
	PaymentConnection PaymentConnectionRepository
	ApiKey            ApiKeyRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:              NewUserRepository(db),
		TrackingLink:      NewTrackingLinkRepository(db),
		PaymentConnection: NewPaymentConnectionRepository(db),
		ApiKey:            NewApiKeyRepository(db),
	}
}
