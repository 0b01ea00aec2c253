package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/LinkTally/LinkTally/app/models"
	"github.com/LinkTally/LinkTally/internal/pkg/attribution"
)

func seedTrackingLink(t *testing.T, db *gorm.DB, userID uint, code string, mutate func(*models.TrackingLink)) *models.TrackingLink {
	t.Helper()
	link := &models.TrackingLink{
		UserID:          userID,
		Title:           "Link " + code,
		Platform:        models.PlatformInstagram,
		DestinationURL:  "https://shop.example/p",
		ShortCode:       code,
		FullTrackingURL: "https://shop.example/p",
	}
	if mutate != nil {
		mutate(link)
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

func TestFindBySignalsExactEquality(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackingLinkRepository(db)

	match := seedTrackingLink(t, db, 1, "aaa1", func(l *models.TrackingLink) {
		l.UTMSource = "instagram"
		l.UTMCampaign = "summer"
	})
	seedTrackingLink(t, db, 1, "aaa2", func(l *models.TrackingLink) {
		l.UTMSource = "instagram"
		l.UTMCampaign = "winter"
	})
	// Prefix overlap must not match: equality, not LIKE.
	seedTrackingLink(t, db, 1, "aaa3", func(l *models.TrackingLink) {
		l.UTMSource = "instagram"
		l.UTMCampaign = "summer-sale"
	})

	source := "instagram"
	campaign := "summer"
	links, err := repo.FindBySignals(1, attribution.LinkQuery{UTMSource: &source, UTMCampaign: &campaign})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, match.ID, links[0].ID)
}

func TestFindBySignalsEmptyStringFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackingLinkRepository(db)

	blank := seedTrackingLink(t, db, 1, "bbb1", nil)
	seedTrackingLink(t, db, 1, "bbb2", func(l *models.TrackingLink) {
		l.UTMCampaign = "summer"
	})

	// A pointer to "" filters on the empty value; a nil pointer skips the
	// column entirely.
	empty := ""
	links, err := repo.FindBySignals(1, attribution.LinkQuery{UTMCampaign: &empty})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, blank.ID, links[0].ID)

	all, err := repo.FindBySignals(1, attribution.LinkQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFindBySignalsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackingLinkRepository(db)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var newest *models.TrackingLink
	for i := 0; i < 3; i++ {
		createdAt := base.Add(time.Duration(i) * time.Hour)
		newest = seedTrackingLink(t, db, 1, fmt.Sprintf("ccc%d", i), func(l *models.TrackingLink) {
			l.UTMCampaign = "summer"
			l.CreatedAt = createdAt
		})
	}

	campaign := "summer"
	links, err := repo.FindBySignals(1, attribution.LinkQuery{UTMCampaign: &campaign})
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, newest.ID, links[0].ID)
}

func TestFindBySignalsScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackingLinkRepository(db)

	seedTrackingLink(t, db, 1, "ddd1", func(l *models.TrackingLink) {
		l.UTMCampaign = "summer"
	})
	seedTrackingLink(t, db, 2, "ddd2", func(l *models.TrackingLink) {
		l.UTMCampaign = "summer"
	})

	campaign := "summer"
	links, err := repo.FindBySignals(2, attribution.LinkQuery{UTMCampaign: &campaign})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, uint(2), links[0].UserID)
}

func TestShortCodeExistsIncludesSoftDeleted(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackingLinkRepository(db)

	link := seedTrackingLink(t, db, 1, "eee1", nil)

	exists, err := repo.ShortCodeExists("eee1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Delete(link.ID))

	// Soft-deleted links still reserve their code.
	exists, err = repo.ShortCodeExists("eee1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ShortCodeExists("never-used")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteHidesLinkFromLookups(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackingLinkRepository(db)

	link := seedTrackingLink(t, db, 1, "fff1", nil)
	require.NoError(t, repo.Delete(link.ID))

	_, err := repo.GetByShortCode("fff1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.GetByUUID(link.UUID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGetOwnedEnforcesOwnership(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackingLinkRepository(db)

	link := seedTrackingLink(t, db, 1, "ggg1", nil)

	got, err := repo.GetOwned(1, link.UUID)
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)

	_, err = repo.GetOwned(2, link.UUID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
