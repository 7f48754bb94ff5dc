package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds MTN MoMo collection API credentials and endpoints.
type Config struct {
	BaseURL           string
	SubscriptionKey   string
	APIUser           string
	APIKey            string
	TargetEnvironment string
	CallbackURL       string
}

// Client is a thin HTTP client for the MoMo collection API. Bearer tokens
// are obtained through a Basic-auth exchange and cached until shortly
// before expiry.
type Client struct {
	cfg   Config
	httpc *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Client for the given gateway configuration.
func NewClient(cfg Config) *Client {
	if cfg.TargetEnvironment == "" {
		cfg.TargetEnvironment = "sandbox"
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 15 * time.Second},
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// bearer returns a cached bearer token, renewing it through the Basic-auth
// exchange when missing or stale. A failed exchange fails the calling
// request; it never crashes the process.
func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/collection/token/", nil)
	if err != nil {
		return "", errors.Wrap(err, "build token request")
	}
	req.SetBasicAuth(c.cfg.APIUser, c.cfg.APIKey)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "token exchange")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("token exchange: gateway returned %d: %s", resp.StatusCode, body)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", errors.Wrap(err, "decode token response")
	}

	c.token = tok.AccessToken
	// Renew 30 seconds before the gateway expires the token.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)
	return c.token, nil
}

type requestToPayBody struct {
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	ExternalID   string `json:"externalId"`
	Payer        payer  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

type payer struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

// RequestToPay posts a collection request keyed by reference. The gateway
// acknowledges with 202 Accepted; payment confirmation arrives later via
// PaymentStatus polling.
func (c *Client) RequestToPay(ctx context.Context, reference string, amount decimal.Decimal, currency, payerNumber string) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return errors.Wrap(err, "obtain bearer token")
	}

	body, err := json.Marshal(requestToPayBody{
		Amount:       amount.StringFixed(2),
		Currency:     currency,
		ExternalID:   reference,
		Payer:        payer{PartyIDType: "MSISDN", PartyID: payerNumber},
		PayerMessage: "Kivumart order payment",
		PayeeNote:    "Kivumart order " + reference,
	})
	if err != nil {
		return errors.Wrap(err, "marshal request body")
	}

	url := c.cfg.BaseURL + "/collection/v1_0/requesttopay"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Reference-Id", reference)
	req.Header.Set("X-Target-Environment", c.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	if c.cfg.CallbackURL != "" {
		req.Header.Set("X-Callback-Url", c.cfg.CallbackURL)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "request to pay")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("request to pay: gateway returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

type statusResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// PaymentStatus polls the gateway for the state of a collection request.
// The raw gateway status string is returned unmodified.
func (c *Client) PaymentStatus(ctx context.Context, reference string) (string, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return "", errors.Wrap(err, "obtain bearer token")
	}

	url := fmt.Sprintf("%s/collection/v1_0/requesttopay/%s", c.cfg.BaseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Target-Environment", c.cfg.TargetEnvironment)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "payment status")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.Errorf("payment status: gateway returned %d: %s", resp.StatusCode, respBody)
	}

	var st statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return "", errors.Wrap(err, "decode status response")
	}
	return st.Status, nil
}
