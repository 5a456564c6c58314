package service

import (
	"context"

	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"go.uber.org/zap"
)

// Advance moves a wizard-presentation session one pre-phase forward. The
// wizard walks COLLECTING_CUSTOMER -> SELECTING_METHOD -> CONFIRMING ->
// (VERIFYING_FISCAL_DEVICE) -> READY; a session opened in EDITABLE never
// calls this. There is no backward step: field edits stay possible in every
// pre-phase, so there is nothing to go back for.
func (s *CheckoutService) Advance(ctx context.Context, session *d.CheckoutSession) (*Result, error) {
	switch session.Phase {
	case d.PhaseCollectingCustomer:
		if session.CustomerID == "" {
			session.CustomerID = d.GuestCustomerID
		}
		if err := s.transition(session, d.PhaseSelectingMethod); err != nil {
			return nil, err
		}

	case d.PhaseSelectingMethod:
		if err := s.transition(session, d.PhaseConfirming); err != nil {
			return nil, err
		}

	case d.PhaseConfirming:
		if !session.FiscalSignatureRequired {
			if err := s.transition(session, d.PhaseReady); err != nil {
				return nil, err
			}
			break
		}
		if err := s.transition(session, d.PhaseVerifyingFiscal); err != nil {
			return nil, err
		}
		return s.verifyFiscalDevice(ctx, session)

	case d.PhaseVerifyingFiscal:
		// A previous probe failed; advancing again re-probes.
		return s.verifyFiscalDevice(ctx, session)

	default:
		return nil, IllegalTransitionError
	}

	return &Result{Phase: session.Phase}, nil
}

// verifyFiscalDevice probes the TSE. While the device cannot sign, the
// session stays in VERIFYING_FISCAL_DEVICE and the operator may retry.
func (s *CheckoutService) verifyFiscalDevice(ctx context.Context, session *d.CheckoutSession) (*Result, error) {
	statusCtx, cancel := context.WithTimeout(ctx, s.fiscal.timeout)
	status, err := s.fiscal.device.Status(statusCtx)
	cancel()
	if err != nil {
		s.log.Warn("fiscal device probe failed", zap.Error(err))
		session.LastError = msgFiscalUnavailable
		return &Result{Phase: session.Phase, Message: msgFiscalUnavailable}, nil
	}
	if !status.CanSign() {
		session.LastError = msgFiscalUnavailable
		return &Result{Phase: session.Phase, Message: msgFiscalUnavailable}, nil
	}

	session.LastError = ""
	if err := s.transition(session, d.PhaseReady); err != nil {
		return nil, err
	}
	return &Result{Phase: session.Phase}, nil
}
