package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PlatformInstagram = "instagram"
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
	PlatformTwitter   = "twitter"
	PlatformOther     = "other"
)

// TrackingLink represents one piece of published content and its campaign
// metadata. FullTrackingURL is always derived from DestinationURL plus the
// UTM fields and must never be edited independently.
type TrackingLink struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UUID            string         `gorm:"type:char(36);uniqueIndex" json:"uuid"`
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	Title           string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=1,max=200"`
	Platform        string         `gorm:"type:varchar(20);not null" json:"platform" validate:"required,oneof=instagram tiktok youtube twitter other"`
	DestinationURL  string         `gorm:"type:varchar(2048);not null" json:"destination_url" validate:"required,url"`
	UTMSource       string         `gorm:"type:varchar(255);default:''" json:"utm_source"`
	UTMMedium       string         `gorm:"type:varchar(255);default:''" json:"utm_medium"`
	UTMCampaign     string         `gorm:"type:varchar(255);default:'';index" json:"utm_campaign"`
	UTMTerm         string         `gorm:"type:varchar(255);default:''" json:"utm_term"`
	UTMContent      string         `gorm:"type:varchar(255);default:''" json:"utm_content"`
	ShortCode       string         `gorm:"type:varchar(16);not null;uniqueIndex" json:"short_code"`
	FullTrackingURL string         `gorm:"type:varchar(2048);not null" json:"full_tracking_url"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (l *TrackingLink) Validate() error {
	v := validator.New()

	return v.Struct(l)
}

// BeforeCreate assigns the public UUID used by the API.
func (l *TrackingLink) BeforeCreate(tx *gorm.DB) error {
	if l.UUID == "" {
		l.UUID = uuid.New().String()
	}
	return nil
}
