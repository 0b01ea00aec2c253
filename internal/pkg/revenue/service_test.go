package revenue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LinkTally/LinkTally/app/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:revenue_%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TrackingLink{}, &models.RevenueEntry{}))
	return db
}

func seedLink(t *testing.T, db *gorm.DB, userID uint) *models.TrackingLink {
	t.Helper()
	link := &models.TrackingLink{
		UserID:          userID,
		Title:           "Reel A",
		Platform:        models.PlatformInstagram,
		DestinationURL:  "https://shop.example/x",
		UTMCampaign:     "reelA",
		ShortCode:       fmt.Sprintf("c%s%d", t.Name()[len(t.Name())-4:], userID),
		FullTrackingURL: "https://shop.example/x?utm_campaign=reelA",
	}
	require.NoError(t, db.Create(link).Error)
	return link
}

func TestRecordAutomaticIdempotent(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, 1)
	svc := NewServiceFromDB(db)

	in := AutomaticEntry{
		UserID:            1,
		TrackingLinkID:    link.ID,
		AmountCents:       2500,
		Processor:         models.RevenueProcessorStripe,
		UpstreamPaymentID: "pi_123",
	}

	first, created, err := svc.RecordAutomatic(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, created)

	// Replaying the same payment N times never creates a second row.
	for i := 0; i < 5; i++ {
		again, createdAgain, err := svc.RecordAutomatic(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, createdAgain)
		assert.Equal(t, first.ID, again.ID)
	}

	var count int64
	require.NoError(t, db.Model(&models.RevenueEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordAutomaticDistinctPaymentsCoexist(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, 1)
	svc := NewServiceFromDB(db)

	for _, pid := range []string{"pi_1", "pi_2", "pi_3"} {
		_, created, err := svc.RecordAutomatic(context.Background(), AutomaticEntry{
			UserID:            1,
			TrackingLinkID:    link.ID,
			AmountCents:       1000,
			Processor:         models.RevenueProcessorStripe,
			UpstreamPaymentID: pid,
		})
		require.NoError(t, err)
		assert.True(t, created)
	}

	var count int64
	require.NoError(t, db.Model(&models.RevenueEntry{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRecordAutomaticWithoutPaymentIDAlwaysAppends(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, 1)
	svc := NewServiceFromDB(db)

	// Direct-API entries carry no upstream payment id and are never
	// deduplicated against each other.
	for i := 0; i < 3; i++ {
		_, created, err := svc.RecordAutomatic(context.Background(), AutomaticEntry{
			UserID:         1,
			TrackingLinkID: link.ID,
			AmountCents:    5000,
			Processor:      models.RevenueProcessorAPI,
		})
		require.NoError(t, err)
		assert.True(t, created)
	}

	var count int64
	require.NoError(t, db.Model(&models.RevenueEntry{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRecordAutomaticValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewServiceFromDB(db)

	tests := []struct {
		name string
		in   AutomaticEntry
	}{
		{"missing user", AutomaticEntry{TrackingLinkID: 1, AmountCents: 100, Processor: "stripe"}},
		{"missing link", AutomaticEntry{UserID: 1, AmountCents: 100, Processor: "stripe"}},
		{"negative amount", AutomaticEntry{UserID: 1, TrackingLinkID: 1, AmountCents: -1, Processor: "stripe"}},
		{"missing processor", AutomaticEntry{UserID: 1, TrackingLinkID: 1, AmountCents: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.RecordAutomatic(context.Background(), tt.in)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestRecordManualAmountBoundaries(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, 1)
	svc := NewServiceFromDB(db)

	// -1 cent fails validation.
	_, err := svc.RecordManual(context.Background(), ManualEntry{
		UserID: 1, TrackingLinkID: link.ID, AmountCents: -1,
	})
	assert.True(t, errors.Is(err, ErrValidation))

	// Zero is a legal (free/refunded) entry.
	entry, err := svc.RecordManual(context.Background(), ManualEntry{
		UserID: 1, TrackingLinkID: link.ID, AmountCents: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), entry.AmountCents)
	assert.Equal(t, models.RevenueSourceManual, entry.Source)
}

func TestRecordManualRejectsForeignLink(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, 2) // owned by someone else
	svc := NewServiceFromDB(db)

	_, err := svc.RecordManual(context.Background(), ManualEntry{
		UserID: 1, TrackingLinkID: link.ID, AmountCents: 100,
	})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestSumByLink(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, 1)
	svc := NewServiceFromDB(db)

	for _, cents := range []int64{1000, 2500, 0} {
		_, err := svc.RecordManual(context.Background(), ManualEntry{
			UserID: 1, TrackingLinkID: link.ID, AmountCents: cents,
		})
		require.NoError(t, err)
	}

	sums, err := svc.SumByLink(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), sums[link.ID])
}

func TestListEntriesFilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	linkA := seedLink(t, db, 1)
	linkB := &models.TrackingLink{
		UserID: 1, Title: "Reel B", Platform: models.PlatformTikTok,
		DestinationURL: "https://shop.example/y", ShortCode: "listB123",
		FullTrackingURL: "https://shop.example/y",
	}
	require.NoError(t, db.Create(linkB).Error)

	svc := NewServiceFromDB(db)
	now := time.Now()
	for i, target := range []*models.TrackingLink{linkA, linkB, linkA} {
		_, err := svc.RecordManual(context.Background(), ManualEntry{
			UserID: 1, TrackingLinkID: target.ID, AmountCents: 100,
			EntryDate: now.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	all, err := svc.ListEntries(context.Background(), 1, 0, 0, 50)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// newest entry date first
	assert.True(t, !all[0].EntryDate.Before(all[1].EntryDate))

	onlyA, err := svc.ListEntries(context.Background(), 1, linkA.ID, 0, 50)
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)
}
