package service

import (
	"context"
	"fmt"

	"github.com/Jukingen/Regkasse-sub000/internal/audit"
	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"go.uber.org/zap"
)

// resetReason accompanies every table reset so the backend records why the
// order was cleared.
const resetReason = "checkout completed at register"

// finalizeOrder closes the order and frees the table, always in that order
// and always both. The payment is already captured at this point, so a
// failure of either call is recorded as a warning for manual reconciliation
// and never aborts the flow; in particular reset is attempted even when
// complete failed, because the table must not stay occupied by a stale order.
func (s *CheckoutService) finalizeOrder(ctx context.Context, session *d.CheckoutSession, notes string) []string {
	var warnings []string

	completeCtx, cancel := context.WithTimeout(ctx, s.cart.timeout)
	err := s.cart.cart.Complete(completeCtx, session.CartID, notes)
	cancel()
	if err != nil {
		warning := fmt.Sprintf("order completion failed for cart %s: %v", session.CartID, err)
		warnings = append(warnings, warning)
		s.log.Warn("order completion failed after capture",
			zap.String("cart_id", session.CartID),
			zap.String("payment_id", session.PaymentID()),
			zap.Error(err))
		s.publish(ctx, audit.EventFinalizeWarning, session, warning)
	}

	resetCtx, cancel := context.WithTimeout(ctx, s.cart.timeout)
	err = s.cart.cart.Reset(resetCtx, session.CartID, resetReason)
	cancel()
	if err != nil {
		warning := fmt.Sprintf("table reset failed for cart %s: %v", session.CartID, err)
		warnings = append(warnings, warning)
		s.log.Warn("table reset failed after capture",
			zap.String("cart_id", session.CartID),
			zap.String("payment_id", session.PaymentID()),
			zap.Error(err))
		s.publish(ctx, audit.EventFinalizeWarning, session, warning)
	}

	session.FinalizeWarnings = append(session.FinalizeWarnings, warnings...)
	return warnings
}
