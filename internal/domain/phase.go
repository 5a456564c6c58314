package domain

// Phase is the checkout state machine variant for a session. The wizard
// presentation walks the pre-phases one by one; the single-screen presentation
// starts directly in EDITABLE. Both funnel into SUBMITTING.
type Phase string

const (
	PhaseCollectingCustomer Phase = "COLLECTING_CUSTOMER"
	PhaseSelectingMethod    Phase = "SELECTING_METHOD"
	PhaseConfirming         Phase = "CONFIRMING"
	PhaseVerifyingFiscal    Phase = "VERIFYING_FISCAL_DEVICE"
	PhaseReady              Phase = "READY"
	PhaseEditable           Phase = "EDITABLE"
	PhaseSubmitting         Phase = "SUBMITTING"
	PhaseFinalizing         Phase = "FINALIZING"
	PhasePrinting           Phase = "PRINTING"
	PhasePrintError         Phase = "PRINT_ERROR"
	PhaseCompleted          Phase = "COMPLETED"
)

// AllowedTransitions defines the valid phase edges. The key is the current
// phase, the value the set of phases reachable from it. The only backward
// edges are SUBMITTING -> EDITABLE (capture failed, nothing committed) and
// PRINT_ERROR -> PRINTING (retry with the stored payment id).
var AllowedTransitions = map[Phase][]Phase{
	PhaseCollectingCustomer: {PhaseSelectingMethod},
	PhaseSelectingMethod:    {PhaseConfirming},
	PhaseConfirming:         {PhaseVerifyingFiscal, PhaseReady},
	PhaseVerifyingFiscal:    {PhaseReady},
	PhaseReady:              {PhaseSubmitting},
	PhaseEditable:           {PhaseSubmitting},
	PhaseSubmitting:         {PhaseFinalizing, PhaseEditable},
	PhaseFinalizing:         {PhasePrinting},
	PhasePrinting:           {PhaseCompleted, PhasePrintError},
	PhasePrintError:         {PhasePrinting, PhaseCompleted},
	PhaseCompleted:          {}, // terminal
}

// CanTransitionTo reports whether the edge from -> to is a valid one.
func CanTransitionTo(from, to Phase) bool {
	allowed, exists := AllowedTransitions[from]
	if !exists {
		return false
	}
	for _, p := range allowed {
		if p == to {
			return true
		}
	}
	return false
}

// IsEditable reports whether the session can still be mutated and cancelled.
// No remote collaborator has been contacted in any of these phases.
func (p Phase) IsEditable() bool {
	switch p {
	case PhaseCollectingCustomer, PhaseSelectingMethod, PhaseConfirming,
		PhaseVerifyingFiscal, PhaseReady, PhaseEditable:
		return true
	}
	return false
}

// IsBusy reports whether a collaborator call may be in flight. No second
// submission is permitted while busy.
func (p Phase) IsBusy() bool {
	return p == PhaseSubmitting || p == PhaseFinalizing || p == PhasePrinting
}

func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted
}

// String representation (for logging)
func (p Phase) String() string {
	return string(p)
}
