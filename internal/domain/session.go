package domain

import (
	"errors"
	"time"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodVoucher  PaymentMethod = "voucher"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

// GuestCustomerID is the well-known fallback when no customer is assigned.
const GuestCustomerID = "walk-in-guest"

var ErrPaymentIDAlreadySet = errors.New("payment id is write-once and already set")

type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxClass  string  `json:"tax_class"`
	LineTotal float64 `json:"line_total"`
}

// CheckoutSession is the unit of work for one checkout attempt at a table.
// It lives in memory only; a crash between capture and printing is recovered
// out of band (see DESIGN.md).
type CheckoutSession struct {
	ID         string `json:"id"`
	TableID    string `json:"table_id"`
	CashierID  string `json:"cashier_id"`
	CustomerID string `json:"customer_id"`

	Items          []LineItem    `json:"items"`
	Method         PaymentMethod `json:"payment_method"`
	AmountTendered float64       `json:"amount_tendered,omitempty"` // cash only

	FiscalSignatureRequired bool `json:"fiscal_signature_required"`

	// CartID is resolved once per session and reused for every finalize
	// call, never re-derived from local state.
	CartID string `json:"cart_id,omitempty"`

	// paymentID is write-once; set only after a successful capture.
	paymentID string

	Phase     Phase  `json:"phase"`
	LastError string `json:"last_error,omitempty"`

	// FinalizeWarnings collects complete/reset failures that happened after
	// the capture. They require manual follow-up, they never block the flow.
	FinalizeWarnings []string  `json:"finalize_warnings,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// TotalAmount is always the sum of the line totals, never cached anywhere.
func (s *CheckoutSession) TotalAmount() float64 {
	var total float64
	for _, item := range s.Items {
		total += item.LineTotal
	}
	return total
}

// SetPaymentID stores the captured payment id. A second write is refused:
// a retry of any later step must reuse the stored value and must never
// correspond to a second capture.
func (s *CheckoutSession) SetPaymentID(id string) error {
	if s.paymentID != "" {
		return ErrPaymentIDAlreadySet
	}
	s.paymentID = id
	return nil
}

func (s *CheckoutSession) PaymentID() string {
	return s.paymentID
}

// Clone returns a deep copy, payment id included. Readers hold a clone so
// they never observe a partially applied mutation from an in-flight
// operation.
func (s *CheckoutSession) Clone() *CheckoutSession {
	clone := *s
	clone.Items = append([]LineItem(nil), s.Items...)
	clone.FinalizeWarnings = append([]string(nil), s.FinalizeWarnings...)
	return &clone
}

// RequiresFiscalSignature derives the signing requirement from the payment
// method and the register's compliance mode. In strict mode every transaction
// is signed; otherwise only cash movements go through the signature device.
func RequiresFiscalSignature(method PaymentMethod, strictCompliance bool) bool {
	if strictCompliance {
		return true
	}
	return method == PaymentMethodCash
}
