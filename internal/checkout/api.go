package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"furnish-backend/internal/domain"
	"furnish-backend/internal/usecase"

	"github.com/shopspring/decimal"
)

// API is the part of the shop server the checkout talks to.
type API interface {
	ShippingRules(ctx context.Context) ([]domain.ShippingRule, error)
	ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*usecase.CouponResult, error)
	CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error)
	InitiateC2B(ctx context.Context, in usecase.C2BInput) (*usecase.C2BPayment, error)
	Order(ctx context.Context, id uint) (*domain.Order, error)
}

// APIError is a non-2xx answer from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  []usecase.FieldError
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

type HTTPClient struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	HTTP  *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 90 * time.Second},
	}
}

func (c *HTTPClient) ShippingRules(ctx context.Context) ([]domain.ShippingRule, error) {
	var out []domain.ShippingRule
	err := c.do(ctx, http.MethodGet, "/api/shipping/rules", nil, &out)
	return out, err
}

func (c *HTTPClient) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*usecase.CouponResult, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("subtotal", subtotal.StringFixed(2))
	var out usecase.CouponResult
	if err := c.do(ctx, http.MethodGet, "/api/coupons/validate?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) InitiateC2B(ctx context.Context, in usecase.C2BInput) (*usecase.C2BPayment, error) {
	var out usecase.C2BPayment
	if err := c.do(ctx, http.MethodPost, "/api/payments/e2/c2b", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Order(ctx context.Context, id uint) (*domain.Order, error) {
	var out domain.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+strconv.FormatUint(uint64(id), 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProductLine looks up a product by slug and returns it as a cart line of
// the given quantity.
func (c *HTTPClient) ProductLine(ctx context.Context, slug string, qty int) (Line, error) {
	var p struct {
		ID       uint            `json:"id"`
		Name     string          `json:"name"`
		Price    decimal.Decimal `json:"price"`
		WeightKg decimal.Decimal `json:"weightKg"`
		Images   []string        `json:"images"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(slug), nil, &p); err != nil {
		return Line{}, err
	}
	l := Line{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: qty, WeightKg: p.WeightKg}
	if len(p.Images) > 0 {
		l.Image = p.Images[0]
	}
	return l, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env struct {
			Error struct {
				Code    string               `json:"code"`
				Message string               `json:"message"`
				Fields  []usecase.FieldError `json:"fields"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &env)
		return &APIError{Status: resp.StatusCode, Code: env.Error.Code, Message: env.Error.Message, Fields: env.Error.Fields}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
