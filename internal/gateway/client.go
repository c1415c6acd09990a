package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"cartsync/internal/model"
	"cartsync/internal/transport"
)

// =============================================================================
// REST BINDING
// =============================================================================
//
//   fetchCart               GET    /cart
//   addLine                 POST   /cart/items                      {itemId, quantity}
//   updateLine              PATCH  /cart/items/{lineId}             {quantity}
//   removeLine              DELETE /cart/items/{lineId}
//   clearCart               DELETE /cart
//   fetchWishlist           GET    /wishlist
//   addWishlistItem         POST   /wishlist/items                  {itemId}
//   removeWishlistItem      DELETE /wishlist/items/{itemId}
//   moveWishlistItemToCart  POST   /wishlist/items/{itemId}/move-to-cart
//
// Every request sends "Authorization: Bearer <credential>" and a Cart-Client
// header. Writes also send a fresh Idempotency-Key so a backend that
// deduplicates can absorb a client-side resend; the client itself never
// resends.
//
// Status mapping:
//   401, 403           → Unauthorized
//   404                → ItemNotFound / LineNotFound depending on the call
//   400, 409, 422      → validation
//   429, 5xx, network  → Unreachable
// =============================================================================

// Config holds backend connection settings.
type Config struct {
	BaseURL       string
	ClientID      string
	ClientVersion string
	APIKey        string // optional storefront key sent as X-Api-Key
	Timeout       time.Duration
	Transport     http.RoundTripper // default: transport.New with a 10s dial timeout
	Logger        *slog.Logger
}

// Client implements Gateway over HTTP.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	clientHeader string
	logger       *slog.Logger
}

// New creates a REST gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "cartsync"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = transport.New(transport.Options{})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	header, err := FormatClientHeader(cfg.ClientID, cfg.ClientVersion)
	if err != nil {
		return nil, fmt.Errorf("building %s header: %w", HeaderClient, err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		clientHeader: header,
		logger:       cfg.Logger,
	}, nil
}

type addLineRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

type addWishlistRequest struct {
	ItemID string `json:"itemId"`
}

type wishlistResponse struct {
	Items model.Wishlist `json:"items"`
}

// errorResponse is the backend's error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FetchCart implements Gateway.
func (c *Client) FetchCart(ctx context.Context, credential string) (*model.AuthenticatedCart, error) {
	var cart model.AuthenticatedCart
	resp, err := c.do(ctx, "fetchCart", http.MethodGet, "/cart", credential, nil, &cart, nil)
	if err != nil {
		return nil, err
	}
	if cart.Lines == nil {
		cart.Lines = []model.CartLine{}
	}

	if h := resp.Header.Get(HeaderSchema); h != "" {
		version, err := ParseSchemaHeader(h)
		if err != nil {
			c.logger.Warn("ignoring malformed schema header",
				slog.String("header", h),
				slog.String("error", err.Error()),
			)
		} else {
			cart.SchemaVersion = version
		}
	}
	return &cart, nil
}

// AddLine implements Gateway.
func (c *Client) AddLine(ctx context.Context, credential, itemID string, qty int) error {
	body := addLineRequest{ItemID: itemID, Quantity: qty}
	_, err := c.do(ctx, "addLine", http.MethodPost, "/cart/items", credential, body, nil, func() error {
		return model.NewItemNotFoundError(itemID)
	})
	return err
}

// UpdateLine implements Gateway.
func (c *Client) UpdateLine(ctx context.Context, credential, lineID string, qty int) error {
	path := "/cart/items/" + url.PathEscape(lineID)
	_, err := c.do(ctx, "updateLine", http.MethodPatch, path, credential, updateLineRequest{Quantity: qty}, nil, func() error {
		return model.NewLineNotFoundError(lineID)
	})
	return err
}

// RemoveLine implements Gateway.
func (c *Client) RemoveLine(ctx context.Context, credential, lineID string) error {
	path := "/cart/items/" + url.PathEscape(lineID)
	_, err := c.do(ctx, "removeLine", http.MethodDelete, path, credential, nil, nil, func() error {
		return model.NewLineNotFoundError(lineID)
	})
	return err
}

// ClearCart implements Gateway.
func (c *Client) ClearCart(ctx context.Context, credential string) error {
	_, err := c.do(ctx, "clearCart", http.MethodDelete, "/cart", credential, nil, nil, nil)
	return err
}

// FetchWishlist implements Gateway.
func (c *Client) FetchWishlist(ctx context.Context, credential string) (*model.Wishlist, error) {
	var out wishlistResponse
	if _, err := c.do(ctx, "fetchWishlist", http.MethodGet, "/wishlist", credential, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out.Items, nil
}

// AddWishlistItem implements Gateway.
func (c *Client) AddWishlistItem(ctx context.Context, credential, itemID string) error {
	_, err := c.do(ctx, "addWishlistItem", http.MethodPost, "/wishlist/items", credential, addWishlistRequest{ItemID: itemID}, nil, func() error {
		return model.NewItemNotFoundError(itemID)
	})
	return err
}

// RemoveWishlistItem implements Gateway.
func (c *Client) RemoveWishlistItem(ctx context.Context, credential, itemID string) error {
	path := "/wishlist/items/" + url.PathEscape(itemID)
	_, err := c.do(ctx, "removeWishlistItem", http.MethodDelete, path, credential, nil, nil, func() error {
		return model.NewItemNotFoundError(itemID)
	})
	return err
}

// MoveWishlistItemToCart implements Gateway.
func (c *Client) MoveWishlistItemToCart(ctx context.Context, credential, itemID string) error {
	path := "/wishlist/items/" + url.PathEscape(itemID) + "/move-to-cart"
	_, err := c.do(ctx, "moveWishlistItemToCart", http.MethodPost, path, credential, nil, nil, func() error {
		return model.NewItemNotFoundError(itemID)
	})
	return err
}

// do issues one request. body (if non-nil) is sent as JSON; out (if non-nil)
// receives the decoded 2xx response. notFound builds the 404 error.
func (c *Client) do(ctx context.Context, op, method, path, credential string, body, out any, notFound func() error) (*http.Response, error) {
	if credential == "" {
		return nil, model.NewUnauthorizedError(op + ": no credential")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, model.NewInternalError(fmt.Errorf("%s: encoding request: %w", op, err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, model.NewInternalError(fmt.Errorf("%s: building request: %w", op, err))
	}
	c.setHeaders(req, credential, body != nil)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewUnreachableError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewUnreachableError(op, fmt.Errorf("reading response: %w", err))
	}

	c.logger.Debug("gateway call",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return nil, c.parseErrorResponse(op, resp.StatusCode, respBody, notFound)
	}

	if out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, model.NewUnreachableError(op, fmt.Errorf("decoding response: %w", err))
		}
	}
	return resp, nil
}

func (c *Client) setHeaders(req *http.Request, credential string, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set(HeaderClient, c.clientHeader)
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Method != http.MethodGet {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}
}

// parseErrorResponse maps a backend failure onto the sync error taxonomy.
func (c *Client) parseErrorResponse(op string, statusCode int, body []byte, notFound func() error) error {
	var envelope errorResponse
	_ = json.Unmarshal(body, &envelope)
	msg := envelope.Message
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return model.NewUnauthorizedError(fmt.Sprintf("%s: %s", op, msg))
	case statusCode == http.StatusNotFound:
		if notFound != nil {
			return notFound()
		}
		return model.NewUnreachableError(op, errors.New("endpoint not found"))
	case statusCode == http.StatusBadRequest || statusCode == http.StatusConflict || statusCode == http.StatusUnprocessableEntity:
		return model.NewValidationError("request", msg)
	case statusCode == http.StatusTooManyRequests || statusCode >= 500:
		return model.NewUnreachableError(op, fmt.Errorf("status %d: %s", statusCode, msg))
	default:
		return model.NewInternalError(fmt.Errorf("%s: unexpected status %d: %s", op, statusCode, msg))
	}
}

// Verify Client implements Gateway interface at compile time.
var _ Gateway = (*Client)(nil)
