package service

import (
	"context"

	"github.com/Jukingen/Regkasse-sub000/internal/audit"
	"github.com/Jukingen/Regkasse-sub000/internal/backend"
	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"go.uber.org/zap"
)

// Submit runs the checkout sequence for the session: validate, resolve the
// cart, capture the payment, finalize the order, print the receipt. Once the
// capture succeeds the sequence runs forward to COMPLETED or PRINT_ERROR;
// there is no way to cancel it mid-flight.
func (s *CheckoutService) Submit(ctx context.Context, session *d.CheckoutSession, notes string) (*Result, error) {
	if !d.CanTransitionTo(session.Phase, d.PhaseSubmitting) {
		return nil, IllegalTransitionError
	}

	// 1. Local validation. On failure no remote collaborator is contacted
	// and the session stays where it is.
	if errs := s.gate.Validate(session); !errs.Ok() {
		return &Result{Phase: session.Phase, FieldErrors: errs}, nil
	}

	// 2. Resolve the active cart once; every later finalize call reuses the
	// stored id so payment and finalization target the same order.
	if session.CartID == "" {
		cartCtx, cancel := context.WithTimeout(ctx, s.cart.timeout)
		cart, err := s.cart.cart.GetActiveCart(cartCtx, session.TableID)
		cancel()
		if err != nil {
			s.log.Warn("cart resolution failed",
				zap.String("table_id", session.TableID),
				zap.Error(err))
			session.LastError = msgCartUnavailable
			return &Result{Phase: session.Phase, Message: msgCartUnavailable}, nil
		}
		session.CartID = cart.CartID
	}

	// 3. Capture. A decline or an unreachable gateway commits nothing: the
	// session returns to the editable phase and the attempt is fully
	// retryable from scratch.
	if err := s.transition(session, d.PhaseSubmitting); err != nil {
		return nil, err
	}
	s.publish(ctx, audit.EventCheckoutSubmitted, session, "")

	payCtx, cancel := context.WithTimeout(ctx, s.payment.timeout)
	payResult, payErr := s.payment.gateway.Process(payCtx, s.buildPaymentRequest(session, notes))
	cancel()
	if payErr != nil {
		session.LastError = msgGatewayUnreachable
		if err := s.transition(session, d.PhaseEditable); err != nil {
			return nil, err
		}
		return &Result{Phase: session.Phase, Message: msgGatewayUnreachable}, nil
	}
	if !payResult.Success {
		message := payResult.Message
		if message == "" {
			message = payResult.Error
		}
		session.LastError = message
		if err := s.transition(session, d.PhaseEditable); err != nil {
			return nil, err
		}
		return &Result{Phase: session.Phase, Message: message}, nil
	}

	// Money has moved. The payment id is permanent for this session from
	// here on.
	if err := session.SetPaymentID(payResult.PaymentID); err != nil {
		return nil, err
	}
	s.publish(ctx, audit.EventPaymentCaptured, session, "")

	// 4+5. Finalize: complete then reset, both always attempted. Failures
	// are warnings for manual follow-up, never an abort.
	if err := s.transition(session, d.PhaseFinalizing); err != nil {
		return nil, err
	}
	warnings := s.finalizeOrder(ctx, session, notes)

	// 6. Print.
	if err := s.transition(session, d.PhasePrinting); err != nil {
		return nil, err
	}
	return s.print(ctx, session, warnings)
}

func (s *CheckoutService) buildPaymentRequest(session *d.CheckoutSession, notes string) *backend.PaymentRequest {
	items := make([]backend.PaymentItem, len(session.Items))
	for i, item := range session.Items {
		items[i] = backend.PaymentItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			TaxClass:  item.TaxClass,
		}
	}

	customerID := session.CustomerID
	if customerID == "" {
		customerID = d.GuestCustomerID
	}

	req := &backend.PaymentRequest{
		CustomerID:              customerID,
		Items:                   items,
		PaymentMethod:           string(session.Method),
		FiscalSignatureRequired: session.FiscalSignatureRequired,
		TableID:                 session.TableID,
		CashierID:               session.CashierID,
		TotalAmount:             session.TotalAmount(),
		FiscalTaxID:             s.gate.FiscalTaxID(),
		RegisterID:              s.gate.RegisterID(),
		Notes:                   notes,
	}
	if session.Method == d.PaymentMethodCash {
		tendered := session.AmountTendered
		req.Amount = &tendered
	}
	return req
}
