package paypal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	liveBaseURL    = "https://api.paypal.com"
	sandboxBaseURL = "https://api.sandbox.paypal.com"

	// tokenExpirySlack is subtracted from expires_in so a cached token is
	// never used right at its expiry boundary.
	tokenExpirySlack = 60 * time.Second
)

// Config is the gateway configuration for one PayPal client id.
type Config struct {
	ClientID              string
	Secret                string
	Mode                  string // "live" or "test"
	Intent                string // "capture" or "authorize"
	ShippingPreference    string // "no_shipping" | "get_from_file" | "set_provided_address"
	UpdateBillingProfile  bool
	UpdateShippingProfile bool
	BrandName             string
}

// CheckoutAPI is the remote order surface the reconciler depends on.
type CheckoutAPI interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)
	GetOrder(ctx context.Context, remoteID string) (*Order, error)
	UpdateOrder(ctx context.Context, remoteID string, req *OrderRequest) error
	AuthorizeOrder(ctx context.Context, remoteID string) (*Order, error)
	CaptureOrder(ctx context.Context, remoteID string) (*Order, error)
	CapturePayment(ctx context.Context, authorizationID string, req *CaptureRequest) (*Capture, error)
	ReauthorizePayment(ctx context.Context, authorizationID string, req *ReauthorizeRequest) (*Authorization, error)
	RefundPayment(ctx context.Context, captureID string, req *RefundRequest) (*Refund, error)
	VoidPayment(ctx context.Context, authorizationID string) error
	GetClientToken(ctx context.Context) (*ClientTokenResponse, error)
	CheckAccess(ctx context.Context) error
}

// APIError is a non-2xx response from PayPal, kept verbatim for operator
// diagnosis. User-facing messages must not expose it.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal API error (status %d): %s", e.StatusCode, e.Body)
}

// Client is a typed wrapper over the PayPal Checkout REST API.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     *zap.Logger
}

// NewClient creates a client for the given gateway configuration. Live mode
// talks to api.paypal.com, everything else to the sandbox.
func NewClient(cfg Config, tokens TokenStore, logger *zap.Logger) *Client {
	baseURL := sandboxBaseURL
	if cfg.Mode == "live" {
		baseURL = liveBaseURL
	}
	return &Client{
		cfg:     cfg,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: tokens,
		logger: logger,
	}
}

// Configuration returns the gateway configuration the client was built with.
func (c *Client) Configuration() Config {
	return c.cfg
}

// GetAccessToken fetches a fresh OAuth2 token using client credentials.
func (c *Client) GetAccessToken(ctx context.Context) (*AccessTokenResponse, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.Secret))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var token AccessTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &token, nil
}

// CheckAccess drops any cached token and verifies the credentials by
// fetching a fresh one.
func (c *Client) CheckAccess(ctx context.Context) error {
	if err := c.tokens.Delete(ctx); err != nil {
		c.logger.Warn("failed to drop cached paypal token", zap.Error(err))
	}
	_, err := c.accessToken(ctx)
	return err
}

// accessToken returns a cached bearer token or fetches and caches a new one.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	cached, err := c.tokens.Get(ctx)
	if err != nil {
		c.logger.Warn("paypal token store read failed", zap.Error(err))
	}
	if cached != "" {
		return cached, nil
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return "", err
	}
	ttl := time.Duration(token.ExpiresIn)*time.Second - tokenExpirySlack
	if ttl > 0 {
		if err := c.tokens.Set(ctx, token.AccessToken, ttl); err != nil {
			c.logger.Warn("paypal token store write failed", zap.Error(err))
		}
	}
	return token.AccessToken, nil
}

// GetClientToken fetches a client token for the hosted-fields widget.
func (c *Client) GetClientToken(ctx context.Context) (*ClientTokenResponse, error) {
	var out ClientTokenResponse
	if _, err := c.doRequest(ctx, http.MethodPost, "/v1/identity/generate-token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder creates a remote order.
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	var out Order
	if _, err := c.doRequest(ctx, http.MethodPost, "/v2/checkout/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches a remote order by id.
func (c *Client) GetOrder(ctx context.Context, remoteID string) (*Order, error) {
	var out Order
	if _, err := c.doRequest(ctx, http.MethodGet, "/v2/checkout/orders/"+remoteID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrder replaces the default purchase unit of a remote order with the
// latest local order snapshot, via JSON-Patch.
func (c *Client) UpdateOrder(ctx context.Context, remoteID string, req *OrderRequest) error {
	if len(req.PurchaseUnits) == 0 {
		return fmt.Errorf("update order: request has no purchase units")
	}
	patch := []map[string]interface{}{
		{
			"op":    "replace",
			"path":  "/purchase_units/@reference_id=='default'",
			"value": req.PurchaseUnits[0],
		},
	}
	_, err := c.doRequest(ctx, http.MethodPatch, "/v2/checkout/orders/"+remoteID, patch, nil)
	return err
}

// AuthorizeOrder authorizes payment for an approved remote order.
func (c *Client) AuthorizeOrder(ctx context.Context, remoteID string) (*Order, error) {
	var out Order
	if _, err := c.doRequest(ctx, http.MethodPost, "/v2/checkout/orders/"+remoteID+"/authorize", emptyBody{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptureOrder captures payment for an approved remote order.
func (c *Client) CaptureOrder(ctx context.Context, remoteID string) (*Order, error) {
	var out Order
	if _, err := c.doRequest(ctx, http.MethodPost, "/v2/checkout/orders/"+remoteID+"/capture", emptyBody{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CapturePayment captures an authorized payment by id.
func (c *Client) CapturePayment(ctx context.Context, authorizationID string, req *CaptureRequest) (*Capture, error) {
	var out Capture
	if _, err := c.doRequest(ctx, http.MethodPost, "/v2/payments/authorizations/"+authorizationID+"/capture", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReauthorizePayment reauthorizes an authorized payment by id.
func (c *Client) ReauthorizePayment(ctx context.Context, authorizationID string, req *ReauthorizeRequest) (*Authorization, error) {
	var out Authorization
	if _, err := c.doRequest(ctx, http.MethodPost, "/v2/payments/authorizations/"+authorizationID+"/reauthorize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefundPayment refunds a captured payment by id.
func (c *Client) RefundPayment(ctx context.Context, captureID string, req *RefundRequest) (*Refund, error) {
	var out Refund
	if _, err := c.doRequest(ctx, http.MethodPost, "/v2/payments/captures/"+captureID+"/refund", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VoidPayment cancels an authorized payment. PayPal answers a successful void
// with 204 No Content; anything else is treated as a failure.
func (c *Client) VoidPayment(ctx context.Context, authorizationID string) error {
	status, err := c.doRequest(ctx, http.MethodPost, "/v2/payments/authorizations/"+authorizationID+"/void", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("void payment: unexpected status %d", status)
	}
	return nil
}

// emptyBody forces an empty JSON object body on POSTs that require one.
type emptyBody struct{}

// doRequest performs an authenticated JSON request and decodes the response
// into out when provided. Non-2xx responses become an APIError carrying the
// raw body.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) (int, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return 0, err
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("paypal API call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBytes)),
		)
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Body: string(respBytes)}
	}

	if out != nil && len(respBytes) > 0 {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
