// Package service holds the checkout orchestrator: the state machine that
// drives a session from validation through payment capture, order
// finalization and receipt printing, in that order and never reordered.
package service

import (
	"context"
	"time"

	"github.com/Jukingen/Regkasse-sub000/internal/audit"
	"github.com/Jukingen/Regkasse-sub000/internal/backend"
	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"github.com/Jukingen/Regkasse-sub000/internal/validation"
	"go.uber.org/zap"
)

// CartService is the backend cart collaborator contract.
type CartService interface {
	GetActiveCart(ctx context.Context, tableID string) (*backend.ActiveCart, error)
	Complete(ctx context.Context, cartID, notes string) error
	Reset(ctx context.Context, cartID, reason string) error
}

// PaymentGateway authorizes and captures a charge.
type PaymentGateway interface {
	Process(ctx context.Context, req *backend.PaymentRequest) (*backend.PaymentResult, error)
}

// ReceiptPrinter is idempotent per payment id: repeated calls only re-emit
// the receipt.
type ReceiptPrinter interface {
	Print(ctx context.Context, paymentID string) error
}

// FiscalDevice reports whether the signature unit can sign right now.
type FiscalDevice interface {
	Status(ctx context.Context) (*backend.DeviceStatus, error)
}

// ConfirmFunc is the pure confirmation contract for destructive operator
// actions. It returns the operator's decision; the UI decides how to ask.
type ConfirmFunc func() bool

// Result is the deterministic outcome of one orchestrator operation: the
// phase the session is now in plus an optional operator-facing message.
type Result struct {
	Phase       d.Phase                `json:"phase"`
	FieldErrors validation.FieldErrors `json:"field_errors,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
}

type CheckoutService struct {
	gate    *validation.Gate
	cart    *CartHandler
	payment *PaymentHandler
	printer *PrinterHandler
	fiscal  *FiscalHandler
	audit   audit.Publisher
	log     *zap.Logger
}

func NewCheckoutService(
	gate *validation.Gate,
	cart *CartHandler,
	payment *PaymentHandler,
	printer *PrinterHandler,
	fiscal *FiscalHandler,
	auditPublisher audit.Publisher,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		gate:    gate,
		cart:    cart,
		payment: payment,
		printer: printer,
		fiscal:  fiscal,
		audit:   auditPublisher,
		log:     log,
	}
}

// transition moves the session along a valid edge. Callers inside one
// operation only ever request edges the map allows, so a failure here is a
// programming error surfaced as IllegalTransitionError.
func (s *CheckoutService) transition(session *d.CheckoutSession, to d.Phase) error {
	if !d.CanTransitionTo(session.Phase, to) {
		return IllegalTransitionError
	}
	s.log.Info("phase transition",
		zap.String("session_id", session.ID),
		zap.String("table_id", session.TableID),
		zap.String("from", session.Phase.String()),
		zap.String("to", to.String()))
	session.Phase = to
	return nil
}

// publish emits an audit event. Failures are logged, never propagated: the
// audit trail must not be able to block money movement.
func (s *CheckoutService) publish(ctx context.Context, eventType string, session *d.CheckoutSession, detail string) {
	event := audit.Event{
		Type:        eventType,
		SessionID:   session.ID,
		TableID:     session.TableID,
		CartID:      session.CartID,
		CashierID:   session.CashierID,
		PaymentID:   session.PaymentID(),
		Method:      string(session.Method),
		TotalAmount: session.TotalAmount(),
		Detail:      detail,
		OccurredAt:  time.Now(),
	}
	if err := s.audit.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish audit event",
			zap.String("event_type", eventType),
			zap.String("session_id", session.ID),
			zap.Error(err))
	}
}
