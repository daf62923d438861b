// Package e2 is a client for the e2payments mobile-money gateway: OAuth
// client-credentials tokens, C2B collections from M-Pesa and eMola wallets,
// and wallet/payment listings.
package e2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultTokenTimeout = 60 * time.Second
	DefaultPayTimeout   = 60 * time.Second
	DefaultListTimeout  = 20 * time.Second

	// tokens with less than this validity left are refreshed before use
	tokenSafetyMargin = 30 * time.Second
	defaultTokenTTL   = time.Hour
)

type Provider string

const (
	ProviderMpesa Provider = "mpesa"
	ProviderEmola Provider = "emola"
)

var (
	ErrInvalidPhone     = errors.New("phone must be 9 digits starting with 82-87")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidReference = errors.New("reference required")
	ErrInvalidProvider  = errors.New("unknown mobile-money provider")
	ErrGatewayTimeout   = errors.New("payment gateway timed out")
)

// GatewayError is a non-2xx answer from the gateway.
type GatewayError struct {
	Status  int
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("e2 gateway error (%d): %s", e.Status, e.Message)
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenCache holds the bearer token between calls. Implementations must be
// safe for concurrent use.
type TokenCache interface {
	Get() (Token, bool)
	Set(Token)
}

type MemoryTokenCache struct {
	mu  sync.Mutex
	tok Token
	ok  bool
}

func (c *MemoryTokenCache) Get() (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tok, c.ok
}

func (c *MemoryTokenCache) Set(t Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tok, c.ok = t, true
}

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	HTTP  *http.Client
	Cache TokenCache
	Now   func() time.Time

	TokenTimeout time.Duration
	PayTimeout   time.Duration
	ListTimeout  time.Duration
}

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	http         *http.Client
	cache        TokenCache
	now          func() time.Time

	tokenTimeout time.Duration
	payTimeout   time.Duration
	listTimeout  time.Duration

	// serializes token refreshes
	mu sync.Mutex
}

func NewClient(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.BaseURL) == "" {
		missing = append(missing, "base url")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		missing = append(missing, "client id")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		missing = append(missing, "client secret")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("e2 config incomplete: missing %s", strings.Join(missing, ", "))
	}
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		clientID:     strings.TrimSpace(cfg.ClientID),
		clientSecret: strings.TrimSpace(cfg.ClientSecret),
		http:         cfg.HTTP,
		cache:        cfg.Cache,
		now:          cfg.Now,
		tokenTimeout: cfg.TokenTimeout,
		payTimeout:   cfg.PayTimeout,
		listTimeout:  cfg.ListTimeout,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.cache == nil {
		c.cache = &MemoryTokenCache{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.tokenTimeout <= 0 {
		c.tokenTimeout = DefaultTokenTimeout
	}
	if c.payTimeout <= 0 {
		c.payTimeout = DefaultPayTimeout
	}
	if c.listTimeout <= 0 {
		c.listTimeout = DefaultListTimeout
	}
	return c, nil
}

var mobilePhone = regexp.MustCompile(`^8[2-7][0-9]{7}$`)

// NormalizePhone strips every non-digit and checks the result is a local
// mobile number.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	p := b.String()
	if !mobilePhone.MatchString(p) {
		return "", ErrInvalidPhone
	}
	return p, nil
}

// SanitizeReference removes all whitespace from a payment reference.
func SanitizeReference(ref string) string {
	return strings.Join(strings.Fields(ref), "")
}

type tokenResp struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	AccessToken string `json:"access_token"`
}

// token returns a cached bearer token or fetches a fresh one.
func (c *Client) token(ctx context.Context) (string, error) {
	if t, ok := c.cache.Get(); ok && t.ExpiresAt.Sub(c.now()) > tokenSafetyMargin {
		return t.Value, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// another caller may have refreshed while we waited
	if t, ok := c.cache.Get(); ok && t.ExpiresAt.Sub(c.now()) > tokenSafetyMargin {
		return t.Value, nil
	}

	body := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}
	var out tokenResp
	if err := c.do(ctx, c.tokenTimeout, http.MethodPost, "/oauth/token", "", body, &out); err != nil {
		return "", fmt.Errorf("e2 token: %w", err)
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", fmt.Errorf("e2 token: missing access_token")
	}
	ttl := time.Duration(out.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	c.cache.Set(Token{Value: out.AccessToken, ExpiresAt: c.now().Add(ttl)})
	return out.AccessToken, nil
}

type C2BRequest struct {
	Provider  Provider
	WalletID  string
	Amount    decimal.Decimal
	Phone     string
	Reference string
}

type C2BResult struct {
	Provider  Provider        `json:"provider"`
	Phone     string          `json:"phone"`
	Reference string          `json:"reference"`
	Payload   json.RawMessage `json:"payload"`
}

type c2bBody struct {
	ClientID  string `json:"client_id"`
	Amount    string `json:"amount"`
	Phone     string `json:"phone"`
	Reference string `json:"reference"`
}

// PayC2B asks the customer's wallet to pay amount. Input is checked before
// any request is made. There is no retry; callers pass a fresh reference per
// attempt.
func (c *Client) PayC2B(ctx context.Context, in C2BRequest) (*C2BResult, error) {
	if in.Provider != ProviderMpesa && in.Provider != ProviderEmola {
		return nil, ErrInvalidProvider
	}
	phone, err := NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	ref := SanitizeReference(in.Reference)
	if ref == "" {
		return nil, ErrInvalidReference
	}
	if strings.TrimSpace(in.WalletID) == "" {
		return nil, fmt.Errorf("e2 %s wallet id not configured", in.Provider)
	}

	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	body := c2bBody{
		ClientID:  c.clientID,
		Amount:    in.Amount.StringFixed(2),
		Phone:     phone,
		Reference: ref,
	}
	var raw json.RawMessage
	path := fmt.Sprintf("/v1/c2b/%s-payment/%s", in.Provider, strings.TrimSpace(in.WalletID))
	if err := c.do(ctx, c.payTimeout, http.MethodPost, path, tok, body, &raw); err != nil {
		return nil, err
	}
	return &C2BResult{Provider: in.Provider, Phone: phone, Reference: ref, Payload: raw}, nil
}

// ListWallets returns the gateway's wallet listing for the provider as sent.
func (c *Client) ListWallets(ctx context.Context, p Provider) (json.RawMessage, error) {
	return c.list(ctx, fmt.Sprintf("/v1/wallets/%s/get/all", p), p)
}

// ListPayments returns the gateway's payment history for the provider.
func (c *Client) ListPayments(ctx context.Context, p Provider) (json.RawMessage, error) {
	return c.list(ctx, fmt.Sprintf("/v1/payments/%s/get/all", p), p)
}

func (c *Client) list(ctx context.Context, path string, p Provider) (json.RawMessage, error) {
	if p != ProviderMpesa && p != ProviderEmola {
		return nil, ErrInvalidProvider
	}
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	err = c.do(ctx, c.listTimeout, http.MethodPost, path, tok, map[string]string{"client_id": c.clientID}, &raw)
	return raw, err
}

func (c *Client) do(ctx context.Context, timeout time.Duration, method, path, bearer string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return ErrGatewayTimeout
		}
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return ErrGatewayTimeout
		}
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{Status: resp.StatusCode, Message: gatewayMessage(body, resp.StatusCode)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode e2 response: %w", err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// gatewayMessage picks the gateway's own error text out of body.
func gatewayMessage(body []byte, status int) string {
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		for _, k := range []string{"error", "message", "error_description"} {
			if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return fmt.Sprintf("payment gateway request failed with status %d", status)
}
