package service

import (
	"context"

	"github.com/Jukingen/Regkasse-sub000/internal/audit"
	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
)

// Cancel discards the session without contacting any collaborator. Valid
// only from an editable phase: once SUBMITTING is entered the sequence runs
// to a terminal or recoverable phase and cannot be interrupted.
//
// confirm is consulted before discarding; a nil confirm means no
// confirmation is required. The caller removes the session from the store
// when the returned flag is true.
func (s *CheckoutService) Cancel(ctx context.Context, session *d.CheckoutSession, confirm ConfirmFunc) (bool, error) {
	if !session.Phase.IsEditable() {
		return false, IllegalTransitionError
	}
	if confirm != nil && !confirm() {
		return false, nil
	}
	s.publish(ctx, audit.EventCheckoutCancelled, session, "")
	return true, nil
}
