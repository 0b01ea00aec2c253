package stripeconnect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/LinkTally/LinkTally/internal/pkg/env"
)

const (
	defaultAuthorizeURL   = "https://connect.stripe.com/oauth/authorize"
	defaultTokenURL       = "https://connect.stripe.com/oauth/token"
	defaultDeauthorizeURL = "https://connect.stripe.com/oauth/deauthorize"
)

// Client drives the Stripe Connect standard OAuth flow. Token exchange and
// deauthorization talk to connect.stripe.com directly; everything after the
// exchange (webhooks, event payloads) goes through stripe-go.
type Client struct {
	ClientID    string
	SecretKey   string
	RedirectURI string

	AuthorizeURL   string
	TokenURL       string
	DeauthorizeURL string

	HTTPClient *http.Client
}

type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	StripeUserID     string `json:"stripe_user_id"`
	Scope            string `json:"scope"`
	TokenType        string `json:"token_type"`
	Livemode         bool   `json:"livemode"`
	StripePubKey     string `json:"stripe_publishable_key"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func NewClientFromEnv() *Client {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	redirectURI := strings.TrimSpace(env.GetEnv("STRIPE_CONNECT_REDIRECT_URI", ""))
	if redirectURI == "" && base != "" {
		redirectURI = base + "/stripe/callback"
	}

	return &Client{
		ClientID:       strings.TrimSpace(env.GetEnv("STRIPE_CLIENT_ID", "")),
		SecretKey:      strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		RedirectURI:    redirectURI,
		AuthorizeURL:   strings.TrimSpace(env.GetEnv("STRIPE_AUTHORIZE_URL", defaultAuthorizeURL)),
		TokenURL:       strings.TrimSpace(env.GetEnv("STRIPE_TOKEN_URL", defaultTokenURL)),
		DeauthorizeURL: strings.TrimSpace(env.GetEnv("STRIPE_DEAUTHORIZE_URL", defaultDeauthorizeURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// AuthorizeURLWithState builds the connect.stripe.com authorize URL the user
// is redirected to. The state value is checked again in the callback.
func (c *Client) AuthorizeURLWithState(state string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" {
		return "", errors.New("STRIPE_CLIENT_ID is not configured")
	}
	if strings.TrimSpace(c.RedirectURI) == "" {
		return "", errors.New("STRIPE_CONNECT_REDIRECT_URI is not configured")
	}
	u, err := url.Parse(c.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("invalid STRIPE_AUTHORIZE_URL: %w", err)
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("scope", "read_write")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode trades the callback code for the connected account's tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("STRIPE_CLIENT_ID/STRIPE_SECRET_KEY are not configured")
	}
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oauth code is required")
	}

	form := url.Values{}
	form.Set("code", strings.TrimSpace(code))
	form.Set("grant_type", "authorization_code")
	form.Set("client_secret", c.SecretKey)

	out, err := c.postForm(ctx, c.TokenURL, form)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return nil, errors.New("stripe token exchange returned empty access_token")
	}
	if strings.TrimSpace(out.StripeUserID) == "" {
		return nil, errors.New("stripe token exchange returned empty stripe_user_id")
	}
	return out, nil
}

// Deauthorize disconnects the connected account from the platform. Stripe
// stops delivering its events afterwards; the local connection row is marked
// revoked by the caller.
func (c *Client) Deauthorize(ctx context.Context, stripeUserID string) error {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("STRIPE_CLIENT_ID/STRIPE_SECRET_KEY are not configured")
	}
	if strings.TrimSpace(stripeUserID) == "" {
		return errors.New("stripe account id is required")
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.SecretKey)
	form.Set("stripe_user_id", strings.TrimSpace(stripeUserID))

	_, err := c.postForm(ctx, c.DeauthorizeURL, form)
	return err
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe connect request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out TokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.ErrorCode != "" {
		return nil, fmt.Errorf("stripe connect error: %s (%s)", out.ErrorCode, out.ErrorDescription)
	}
	return &out, nil
}
