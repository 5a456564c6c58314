package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// PaymentItem is the line item shape the gateway expects.
type PaymentItem struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	TaxClass  string `json:"tax_class"`
}

// PaymentRequest is the full capture request, compliance fields included.
type PaymentRequest struct {
	CustomerID              string        `json:"customer_id"`
	Items                   []PaymentItem `json:"items"`
	PaymentMethod           string        `json:"payment_method"`
	Amount                  *float64      `json:"amount,omitempty"` // cash tender, absent otherwise
	FiscalSignatureRequired bool          `json:"fiscal_signature_required"`
	TableID                 string        `json:"table_id"`
	CashierID               string        `json:"cashier_id"`
	TotalAmount             float64       `json:"total_amount"`
	FiscalTaxID             string        `json:"fiscal_tax_id"`
	RegisterID              string        `json:"register_id"`
	Notes                   string        `json:"notes,omitempty"`
}

// PaymentResult carries the gateway's decision. Success=false with a message
// is a decline, not a transport error.
type PaymentResult struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"payment_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
}

// PaymentClient talks to the payment gateway.
type PaymentClient struct {
	client *Client
}

func NewPaymentClient(baseURL string, timeout time.Duration, log *zap.Logger) *PaymentClient {
	return &PaymentClient{client: NewClient("payment-gateway", baseURL, timeout, log)}
}

// Process authorizes and captures the charge. Declines come back in the
// result, transport failures as an error.
func (c *PaymentClient) Process(ctx context.Context, req *PaymentRequest) (*PaymentResult, error) {
	var result PaymentResult
	if err := c.client.do(ctx, http.MethodPost, "/api/v1/payments", req, &result); err != nil {
		// The gateway reports declines in the body of a 402 as well.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusPaymentRequired {
			return &PaymentResult{Success: false, Error: apiErr.Code, Message: apiErr.Message}, nil
		}
		return nil, fmt.Errorf("payment capture failed: %w", err)
	}
	return &result, nil
}
