package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// PrinterClient talks to the receipt printer service. Printing is idempotent
// per payment id: repeated calls only re-emit the receipt.
type PrinterClient struct {
	client *Client
}

func NewPrinterClient(baseURL string, timeout time.Duration, log *zap.Logger) *PrinterClient {
	return &PrinterClient{client: NewClient("receipt-printer", baseURL, timeout, log)}
}

func (c *PrinterClient) Print(ctx context.Context, paymentID string) error {
	path := "/api/v1/receipts/" + url.PathEscape(paymentID) + "/print"
	if err := c.client.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("failed to print receipt for payment %s: %w", paymentID, err)
	}
	return nil
}
