// Package mpesa implements the Daraja API client for STK push payments:
// OAuth token fetch, prompt initiation and callback parsing. The client is
// a thin REST wrapper; all lifecycle decisions live in the coordinator
// service.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/trainrup/billing/internal/config"
	"github.com/trainrup/billing/internal/errs"
)

const (
	sandboxURL    = "https://sandbox.safaricom.co.ke"
	productionURL = "https://api.safaricom.co.ke"
)

// Client talks to the Daraja gateway.
type Client struct {
	consumerKey    string
	consumerSecret string
	shortCode      string
	passkey        string
	callbackURL    string
	baseURL        string
	httpClient     *http.Client
}

// NewClient creates a gateway client from config. The sandbox base URL is
// used unless the environment is set to production.
func NewClient(cfg config.Mpesa) *Client {
	baseURL := sandboxURL
	if cfg.Environment == "production" {
		baseURL = productionURL
	}
	return &Client{
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortCode:      cfg.ShortCode,
		passkey:        cfg.Passkey,
		callbackURL:    cfg.CallbackURL,
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

// getAccessToken fetches an OAuth token with the client credentials grant.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	const op = "mpesa.getAccessToken"

	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.consumerKey + ":" + c.consumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, errs.ErrGateway, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: %w: auth status %s", op, errs.ErrGateway, resp.Status)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, errs.ErrGateway, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%s: %w: empty access token", op, errs.ErrGateway)
	}
	return tok.AccessToken, nil
}

// password builds the base64(shortcode + passkey + timestamp) STK password.
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passkey + timestamp))
}

// InitiateSTKPush asks the gateway to push an authorization prompt to the
// payer's phone. The returned acknowledgement means "prompt sent", never
// completion; confirmation arrives later through the callback. Any
// transport or gateway-side failure is reported as errs.ErrGateway so
// callers know a retry is permitted.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber string, amount float64, accountReference, description string) (*STKPushResponse, error) {
	const op = "mpesa.InitiateSTKPush"

	if c.consumerKey == "" || c.consumerSecret == "" || c.shortCode == "" || c.passkey == "" {
		return nil, fmt.Errorf("%s: %w: gateway credentials not configured", op, errs.ErrGateway)
	}

	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	body := STKPushRequest{
		BusinessShortCode: c.shortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int(amount),
		PartyA:            phoneNumber,
		PartyB:            c.shortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountReference,
		TransactionDesc:   description,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mpesa/stkpush/v1/processrequest", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrGateway, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var pushResp STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrGateway, err)
	}
	if resp.StatusCode != http.StatusOK || pushResp.ResponseCode != "0" {
		return nil, fmt.Errorf("%s: %w: %s", op, errs.ErrGateway, pushResp.ResponseDescription)
	}
	return &pushResp, nil
}

func formatMSISDN(v float64) string {
	return strconv.FormatInt(int64(v), 10)
}
