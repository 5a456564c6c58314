package service

import (
	"context"

	"github.com/Jukingen/Regkasse-sub000/internal/audit"
	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"go.uber.org/zap"
)

// print issues the receipt for the stored payment id. The session must be in
// PRINTING when called.
func (s *CheckoutService) print(ctx context.Context, session *d.CheckoutSession, warnings []string) (*Result, error) {
	printCtx, cancel := context.WithTimeout(ctx, s.printer.timeout)
	err := s.printer.printer.Print(printCtx, session.PaymentID())
	cancel()
	if err != nil {
		s.log.Warn("receipt printing failed",
			zap.String("payment_id", session.PaymentID()),
			zap.Error(err))
		session.LastError = msgPrintFailed
		if trErr := s.transition(session, d.PhasePrintError); trErr != nil {
			return nil, trErr
		}
		return &Result{Phase: session.Phase, Message: msgPrintFailed, Warnings: warnings}, nil
	}

	s.publish(ctx, audit.EventReceiptPrinted, session, "")
	return s.completeSession(ctx, session, warnings)
}

// RetryPrint repeats only the print step, reusing the stored payment id. It
// never re-triggers the capture or the finalize calls.
func (s *CheckoutService) RetryPrint(ctx context.Context, session *d.CheckoutSession) (*Result, error) {
	if session.Phase != d.PhasePrintError {
		return nil, IllegalTransitionError
	}
	if err := s.transition(session, d.PhasePrinting); err != nil {
		return nil, err
	}
	return s.print(ctx, session, nil)
}

// SkipPrint acknowledges the print failure and completes the session without
// a receipt. The payment id stays on record.
func (s *CheckoutService) SkipPrint(ctx context.Context, session *d.CheckoutSession) (*Result, error) {
	if session.Phase != d.PhasePrintError {
		return nil, IllegalTransitionError
	}
	s.publish(ctx, audit.EventReceiptSkipped, session, session.LastError)
	return s.completeSession(ctx, session, nil)
}

func (s *CheckoutService) completeSession(ctx context.Context, session *d.CheckoutSession, warnings []string) (*Result, error) {
	if err := s.transition(session, d.PhaseCompleted); err != nil {
		return nil, err
	}
	session.LastError = ""
	s.publish(ctx, audit.EventCheckoutCompleted, session, "")
	return &Result{Phase: session.Phase, Warnings: warnings}, nil
}
