package attribution

import (
	"errors"
	"fmt"
	"log"

	"github.com/LinkTally/LinkTally/app/models"
)

// ErrNoSignal is returned when a caller supplies neither an explicit
// campaign id nor any UTM field. Callers are expected to reject such input
// before matching; this error is the backstop.
var ErrNoSignal = errors.New("no attribution signal supplied")

// Signals is the set of attribution fields extracted from an inbound
// purchase event. CampaignID is the explicit campaign identifier and is
// treated as equivalent to UTMCampaign.
type Signals struct {
	CampaignID  string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMTerm     string
	UTMContent  string
}

// HasAny reports whether at least one usable signal is present.
func (s Signals) HasAny() bool {
	return s.CampaignID != "" || s.UTMSource != "" || s.UTMMedium != "" ||
		s.UTMCampaign != "" || s.UTMTerm != "" || s.UTMContent != ""
}

// LinkQuery is an exact-equality filter over tracking-link UTM columns. Nil
// fields are unconstrained.
type LinkQuery struct {
	UTMSource   *string
	UTMCampaign *string
	UTMContent  *string
}

// LinkSource is the read contract the matcher needs from the link registry.
// Results must be ordered newest-created first; the multi-match tie-break
// depends on that ordering.
type LinkSource interface {
	FindBySignals(userID uint, q LinkQuery) ([]models.TrackingLink, error)
}

// Matcher selects at most one tracking link for a set of signals, scoped to
// an owner. Matching is deterministic single-touch: the highest-priority
// signal that yields candidates wins.
type Matcher struct {
	links LinkSource
}

func NewMatcher(links LinkSource) *Matcher {
	return &Matcher{links: links}
}

// Match runs the priority cascade:
//
//  1. explicit campaign id (matched against utm_campaign)
//  2. utm_source + utm_campaign + utm_content, when all three are present
//  3. utm_campaign alone
//  4. utm_source alone
//
// A priority level with zero candidates falls through to the next. A level
// with multiple candidates resolves to the most recently created link; that
// tie-break can silently misattribute between same-named campaigns, so it is
// logged. Exhausting all levels returns (nil, nil): "no match" is a valid
// outcome, not an error.
func (m *Matcher) Match(userID uint, sig Signals) (*models.TrackingLink, error) {
	if !sig.HasAny() {
		return nil, ErrNoSignal
	}

	for _, q := range m.cascade(sig) {
		candidates, err := m.links.FindBySignals(userID, q)
		if err != nil {
			return nil, fmt.Errorf("link lookup failed: %w", err)
		}
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			log.Printf("attribution: %d links match signal for user %d, picking most recent (link %d)",
				len(candidates), userID, candidates[0].ID)
		}
		link := candidates[0]
		return &link, nil
	}

	return nil, nil
}

func (m *Matcher) cascade(sig Signals) []LinkQuery {
	queries := make([]LinkQuery, 0, 4)

	if sig.CampaignID != "" {
		queries = append(queries, LinkQuery{UTMCampaign: &sig.CampaignID})
	}
	if sig.UTMSource != "" && sig.UTMCampaign != "" && sig.UTMContent != "" {
		queries = append(queries, LinkQuery{
			UTMSource:   &sig.UTMSource,
			UTMCampaign: &sig.UTMCampaign,
			UTMContent:  &sig.UTMContent,
		})
	}
	if sig.UTMCampaign != "" {
		queries = append(queries, LinkQuery{UTMCampaign: &sig.UTMCampaign})
	}
	if sig.UTMSource != "" {
		queries = append(queries, LinkQuery{UTMSource: &sig.UTMSource})
	}

	return queries
}
