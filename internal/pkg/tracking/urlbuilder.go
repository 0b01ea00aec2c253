package tracking

import (
	"fmt"
	"net/url"
)

// UTMFields carries the five standard UTM query parameters attached to a
// tracking link. Empty fields are omitted from the generated URL.
type UTMFields struct {
	Source   string
	Medium   string
	Campaign string
	Term     string
	Content  string
}

// utmOrder fixes the parameter order in generated URLs: source, medium,
// campaign, term, content. The order is part of the URL contract and is
// relied on by the round-trip tests.
var utmOrder = [5]string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content"}

func (u UTMFields) get(param string) string {
	switch param {
	case "utm_source":
		return u.Source
	case "utm_medium":
		return u.Medium
	case "utm_campaign":
		return u.Campaign
	case "utm_term":
		return u.Term
	case "utm_content":
		return u.Content
	default:
		return ""
	}
}

// IsEmpty reports whether no UTM field is set.
func (u UTMFields) IsEmpty() bool {
	return u.Source == "" && u.Medium == "" && u.Campaign == "" && u.Term == "" && u.Content == ""
}

// BuildTrackingURL derives the full tracking URL from a destination URL and
// a set of UTM fields. It is a pure function: the stored full_tracking_url
// column is always regenerated through it and never edited by hand.
//
// Existing query parameters on the destination are preserved; UTM parameters
// overwrite same-named existing ones. Non-UTM parameters come out
// alphabetically (url.Values.Encode ordering) ahead of the appended UTM
// block.
func BuildTrackingURL(destination string, utm UTMFields) (string, error) {
	parsed, err := url.Parse(destination)
	if err != nil {
		return "", fmt.Errorf("invalid destination url: %w", err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return "", fmt.Errorf("destination url must be absolute: %q", destination)
	}

	query := parsed.Query()
	for _, param := range utmOrder {
		query.Del(param)
	}

	// Encode the non-UTM parameters first, then append UTM fields in fixed
	// order. url.Values.Encode sorts keys, so the UTM block is assembled
	// manually to keep the documented ordering.
	encoded := query.Encode()
	for _, param := range utmOrder {
		value := utm.get(param)
		if value == "" {
			continue
		}
		pair := url.QueryEscape(param) + "=" + url.QueryEscape(value)
		if encoded == "" {
			encoded = pair
		} else {
			encoded += "&" + pair
		}
	}

	parsed.RawQuery = encoded
	return parsed.String(), nil
}

// ExtractUTMFields parses the UTM parameters back out of a URL. Used by
// tests to verify the round-trip property and by the redirect handler to
// echo campaign metadata.
func ExtractUTMFields(rawURL string) (UTMFields, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return UTMFields{}, fmt.Errorf("invalid url: %w", err)
	}
	query := parsed.Query()
	return UTMFields{
		Source:   query.Get("utm_source"),
		Medium:   query.Get("utm_medium"),
		Campaign: query.Get("utm_campaign"),
		Term:     query.Get("utm_term"),
		Content:  query.Get("utm_content"),
	}, nil
}
