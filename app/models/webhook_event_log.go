package models

import "time"

const (
	WebhookStatusPending   = "pending"
	WebhookStatusProcessed = "processed"
	WebhookStatusIgnored   = "ignored"
	WebhookStatusFailed    = "failed"
)

// WebhookEventLog is the durable record of one inbound processor event. The
// unique (provider, event_id) index is the primary replay-safety mechanism:
// payment processors deliver at-least-once, so the same upstream event may
// arrive multiple times and must map to a single row.
type WebhookEventLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ConnectionID   *uint      `gorm:"index" json:"connection_id,omitempty"`
	Provider       string     `gorm:"type:varchar(20);not null;index:ux_webhook_event_logs_provider_event,unique,priority:1;index" json:"provider"`
	EventID        string     `gorm:"type:varchar(191);not null;index:ux_webhook_event_logs_provider_event,unique,priority:2" json:"event_id"`
	EventType      string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Payload        string     `gorm:"type:longtext;not null" json:"payload"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RevenueEntryID *uint      `gorm:"index" json:"revenue_entry_id,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message"`
	ProcessedAt    *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the event has reached a final status. Terminal
// rows must never transition again; replays of terminal events are
// short-circuited without side effects.
func (e *WebhookEventLog) IsTerminal() bool {
	switch e.Status {
	case WebhookStatusProcessed, WebhookStatusIgnored:
		return true
	default:
		return false
	}
}

// IsResumable reports whether a replay of this event should run the
// processing pipeline again. Pending rows (a concurrent or crashed first
// delivery) and failed rows (processor-triggered redelivery after a 500)
// are safe to reprocess because the ledger carries its own idempotency key.
func (e *WebhookEventLog) IsResumable() bool {
	return e.Status == WebhookStatusPending || e.Status == WebhookStatusFailed
}
