package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DeviceStatus is the fiscal signature device's self report. A transaction
// that requires signing must not be submitted while the device cannot sign.
type DeviceStatus struct {
	Connected          bool   `json:"connected"`
	SignatureAvailable bool   `json:"signature_available"`
	SerialNumber       string `json:"serial_number,omitempty"`
}

func (s *DeviceStatus) CanSign() bool {
	return s.Connected && s.SignatureAvailable
}

// FiscalClient probes the TSE status endpoint.
type FiscalClient struct {
	client *Client
}

func NewFiscalClient(baseURL string, timeout time.Duration, log *zap.Logger) *FiscalClient {
	return &FiscalClient{client: NewClient("fiscal-device", baseURL, timeout, log)}
}

func (c *FiscalClient) Status(ctx context.Context) (*DeviceStatus, error) {
	var status DeviceStatus
	if err := c.client.do(ctx, http.MethodGet, "/api/v1/tse/status", nil, &status); err != nil {
		return nil, fmt.Errorf("failed to query fiscal device status: %w", err)
	}
	return &status, nil
}
