package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrCartNotFound means the backend reports no open order for the table.
var ErrCartNotFound = errors.New("no active cart for table")

// ActiveCart is the backend's view of the open order bound to a table.
type ActiveCart struct {
	CartID    string  `json:"cart_id"`
	TableID   string  `json:"table_id"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"item_count"`
}

// CartClient talks to the backend cart service, which owns the active order
// per table and is the single writer for it.
type CartClient struct {
	client *Client
}

func NewCartClient(baseURL string, timeout time.Duration, log *zap.Logger) *CartClient {
	return &CartClient{client: NewClient("cart-service", baseURL, timeout, log)}
}

// GetActiveCart resolves the canonical open order for the table.
func (c *CartClient) GetActiveCart(ctx context.Context, tableID string) (*ActiveCart, error) {
	var cart ActiveCart
	path := "/api/v1/tables/" + url.PathEscape(tableID) + "/cart"
	if err := c.client.do(ctx, http.MethodGet, path, nil, &cart); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to resolve active cart: %w", err)
	}
	if cart.CartID == "" {
		return nil, ErrCartNotFound
	}
	return &cart, nil
}

type completeRequest struct {
	Notes string `json:"notes,omitempty"`
}

// Complete closes the order on the backend.
func (c *CartClient) Complete(ctx context.Context, cartID, notes string) error {
	path := "/api/v1/carts/" + url.PathEscape(cartID) + "/complete"
	if err := c.client.do(ctx, http.MethodPost, path, completeRequest{Notes: notes}, nil); err != nil {
		return fmt.Errorf("failed to complete cart %s: %w", cartID, err)
	}
	return nil
}

type resetRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Reset frees the table for the next customer.
func (c *CartClient) Reset(ctx context.Context, cartID, reason string) error {
	path := "/api/v1/carts/" + url.PathEscape(cartID) + "/reset"
	if err := c.client.do(ctx, http.MethodPost, path, resetRequest{Reason: reason}, nil); err != nil {
		return fmt.Errorf("failed to reset cart %s: %w", cartID, err)
	}
	return nil
}
