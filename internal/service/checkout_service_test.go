package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Jukingen/Regkasse-sub000/internal/backend"
	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func editableSession() *d.CheckoutSession {
	return &d.CheckoutSession{
		ID:         "sess-1",
		TableID:    "table-7",
		CashierID:  "cashier-1",
		CustomerID: d.GuestCustomerID,
		Method:     d.PaymentMethodCard,
		Items: []d.LineItem{
			{ProductID: "p1", Name: "Schnitzel", Quantity: 1, UnitPrice: 14.50, TaxClass: "A", LineTotal: 14.50},
			{ProductID: "p2", Name: "Soda", Quantity: 2, UnitPrice: 3.00, TaxClass: "B", LineTotal: 6.00},
		},
		Phase: d.PhaseEditable,
	}
}

// --- Submit: local failures, nothing remote committed ---

func TestSubmit_ValidationFailure_NoRemoteCall(t *testing.T) {
	f := newTestFixture()
	session := editableSession()
	session.Items = nil

	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseEditable, result.Phase)
	assert.False(t, result.FieldErrors.Ok())
	assert.Zero(t, f.cart.GetCalls)
	assert.Zero(t, f.gateway.Calls)
	assert.Empty(t, session.PaymentID())
}

func TestSubmit_CartUnavailable_StaysEditable(t *testing.T) {
	f := newTestFixture()
	f.cart.GetErr = errors.New("backend down")
	session := editableSession()

	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseEditable, result.Phase)
	assert.Contains(t, result.Message, "cart unavailable")
	assert.Zero(t, f.gateway.Calls)
	assert.Empty(t, session.CartID)
}

func TestSubmit_WhileBusy_Rejected(t *testing.T) {
	f := newTestFixture()
	session := editableSession()
	session.Phase = d.PhaseSubmitting

	_, err := f.svc.Submit(context.Background(), session, "")

	assert.ErrorIs(t, err, IllegalTransitionError)
}

func TestSubmit_MidWizard_Rejected(t *testing.T) {
	f := newTestFixture()
	session := editableSession()
	session.Phase = d.PhaseSelectingMethod

	_, err := f.svc.Submit(context.Background(), session, "")

	assert.ErrorIs(t, err, IllegalTransitionError)
}

// --- Submit: gateway failures are fully retryable ---

func TestSubmit_GatewayDecline(t *testing.T) {
	// Scenario: {success: false, message: "insufficient funds"}.
	f := newTestFixture()
	f.gateway.Result.Success = false
	f.gateway.Result.PaymentID = ""
	f.gateway.Result.Message = "insufficient funds"
	session := editableSession()

	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseEditable, result.Phase)
	assert.Equal(t, d.PhaseEditable, session.Phase)
	assert.Equal(t, "insufficient funds", result.Message)
	assert.Equal(t, "insufficient funds", session.LastError)
	assert.Empty(t, session.PaymentID())

	// Nothing else is called after a decline.
	assert.Zero(t, f.cart.CompleteCalls)
	assert.Zero(t, f.cart.ResetCalls)
	assert.Zero(t, f.printer.Calls)
}

func TestSubmit_GatewayUnreachable(t *testing.T) {
	f := newTestFixture()
	f.gateway.Err = errors.New("connection refused")
	session := editableSession()

	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseEditable, result.Phase)
	assert.Empty(t, session.PaymentID())
	assert.Zero(t, f.cart.CompleteCalls)
	assert.Zero(t, f.printer.Calls)
}

func TestSubmit_DeclineThenRetrySucceeds(t *testing.T) {
	f := newTestFixture()
	f.gateway.Result.Success = false
	f.gateway.Result.Message = "insufficient funds"
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")
	require.NoError(t, err)
	require.Equal(t, d.PhaseEditable, session.Phase)

	f.gateway.Result = &backend.PaymentResult{Success: true, PaymentID: "pay_456"}
	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseCompleted, result.Phase)
	// The cart was resolved on the first attempt and reused on the second.
	assert.Equal(t, 1, f.cart.GetCalls)
}

// --- Submit: happy path ---

func TestSubmit_HappyPath(t *testing.T) {
	f := newTestFixture()
	session := editableSession()

	result, err := f.svc.Submit(context.Background(), session, "no onions")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseCompleted, result.Phase)
	assert.Equal(t, d.PhaseCompleted, session.Phase)
	assert.Equal(t, "pay_123", session.PaymentID())
	assert.Equal(t, "cart-42", session.CartID)
	assert.Empty(t, session.FinalizeWarnings)

	assert.Equal(t, []string{
		"cart.get",
		"payment.process",
		"cart.complete",
		"cart.reset",
		"printer.print",
	}, f.recorder.Calls())
}

func TestSubmit_PaymentRequestCarriesComplianceFields(t *testing.T) {
	f := newTestFixture()
	session := editableSession()
	session.Method = d.PaymentMethodCash
	session.AmountTendered = 50.00
	session.FiscalSignatureRequired = true

	_, err := f.svc.Submit(context.Background(), session, "table notes")

	require.NoError(t, err)
	req := f.gateway.LastReq
	require.NotNil(t, req)
	assert.Equal(t, "ATU12345678", req.FiscalTaxID)
	assert.Equal(t, "REG-001", req.RegisterID)
	assert.Equal(t, "cashier-1", req.CashierID)
	assert.Equal(t, "table-7", req.TableID)
	assert.InDelta(t, 20.50, req.TotalAmount, 1e-9)
	assert.True(t, req.FiscalSignatureRequired)
	require.NotNil(t, req.Amount)
	assert.InDelta(t, 50.00, *req.Amount, 1e-9)
	assert.Len(t, req.Items, 2)
	assert.Equal(t, "table notes", req.Notes)
}

func TestSubmit_CardRequestOmitsTender(t *testing.T) {
	f := newTestFixture()
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Nil(t, f.gateway.LastReq.Amount)
}

func TestSubmit_ReusesResolvedCartID(t *testing.T) {
	f := newTestFixture()
	session := editableSession()
	session.CartID = "cart-previously-resolved"

	_, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Zero(t, f.cart.GetCalls)
	assert.Equal(t, "cart-previously-resolved", session.CartID)
}

// --- Finalization warnings never abort ---

func TestSubmit_CompleteFails_ResetStillCalled(t *testing.T) {
	// Scenario: capture succeeds, then complete fails with a network error.
	f := newTestFixture()
	f.cart.CompleteErr = errors.New("network error")
	session := editableSession()

	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseCompleted, result.Phase)
	assert.Equal(t, 1, f.cart.ResetCalls)
	require.Len(t, session.FinalizeWarnings, 1)
	assert.Contains(t, session.FinalizeWarnings[0], "order completion failed")
	// The flow still proceeded to printing.
	assert.Equal(t, 1, f.printer.Calls)
}

func TestSubmit_CompleteAndResetFail_TwoWarnings(t *testing.T) {
	f := newTestFixture()
	f.cart.CompleteErr = errors.New("network error")
	f.cart.ResetErr = errors.New("still down")
	session := editableSession()

	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhaseCompleted, result.Phase)
	assert.Len(t, session.FinalizeWarnings, 2)
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, 1, f.printer.Calls)
}

func TestFinalize_ResetNeverBeforeComplete(t *testing.T) {
	f := newTestFixture()
	f.cart.CompleteErr = errors.New("network error")
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")
	require.NoError(t, err)

	calls := f.recorder.Calls()
	completeIdx, resetIdx := -1, -1
	for i, c := range calls {
		switch c {
		case "cart.complete":
			completeIdx = i
		case "cart.reset":
			resetIdx = i
		}
	}
	require.NotEqual(t, -1, completeIdx)
	require.NotEqual(t, -1, resetIdx)
	assert.Less(t, completeIdx, resetIdx)
}

// --- Print error recovery ---

func TestSubmit_PrintFails_EntersPrintError(t *testing.T) {
	f := newTestFixture()
	f.printer.Errs = []error{errors.New("printer jam")}
	session := editableSession()

	result, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, d.PhasePrintError, result.Phase)
	assert.Equal(t, "pay_123", session.PaymentID())
	assert.NotEmpty(t, session.LastError)
}

func TestRetryPrint_SecondAttemptSucceeds(t *testing.T) {
	// Scenario: print fails once, retry succeeds; payment id unchanged.
	f := newTestFixture()
	f.printer.Errs = []error{errors.New("printer jam")}
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")
	require.NoError(t, err)
	require.Equal(t, d.PhasePrintError, session.Phase)

	result, err := f.svc.RetryPrint(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, d.PhaseCompleted, result.Phase)
	assert.Equal(t, []string{"pay_123", "pay_123"}, f.printer.PaymentIDs)
	// Retrying the print never re-triggers the capture or finalize.
	assert.Equal(t, 1, f.gateway.Calls)
	assert.Equal(t, 1, f.cart.CompleteCalls)
	assert.Equal(t, 1, f.cart.ResetCalls)
}

func TestRetryPrint_RepeatedFailures_NeverRecapture(t *testing.T) {
	f := newTestFixture()
	f.printer.Errs = []error{
		errors.New("printer jam"),
		errors.New("printer jam"),
		errors.New("printer jam"),
	}
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, retryErr := f.svc.RetryPrint(context.Background(), session)
		require.NoError(t, retryErr)
		assert.Equal(t, d.PhasePrintError, result.Phase)
	}

	assert.Equal(t, 1, f.gateway.Calls)
	assert.Equal(t, 3, f.printer.Calls)
	assert.Equal(t, "pay_123", session.PaymentID())
}

func TestSkipPrint_CompletesWithoutPrinting(t *testing.T) {
	f := newTestFixture()
	f.printer.Errs = []error{errors.New("printer jam")}
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")
	require.NoError(t, err)

	result, err := f.svc.SkipPrint(context.Background(), session)

	require.NoError(t, err)
	assert.Equal(t, d.PhaseCompleted, result.Phase)
	assert.Equal(t, 1, f.printer.Calls) // only the failed attempt
	assert.Equal(t, "pay_123", session.PaymentID())
}

func TestRetryPrint_OnlyValidFromPrintError(t *testing.T) {
	f := newTestFixture()
	session := editableSession()

	_, err := f.svc.RetryPrint(context.Background(), session)
	assert.ErrorIs(t, err, IllegalTransitionError)

	_, err = f.svc.SkipPrint(context.Background(), session)
	assert.ErrorIs(t, err, IllegalTransitionError)
}

// --- Cancel ---

func TestCancel_Editable(t *testing.T) {
	f := newTestFixture()
	session := editableSession()

	discarded, err := f.svc.Cancel(context.Background(), session, func() bool { return true })

	require.NoError(t, err)
	assert.True(t, discarded)
	assert.Zero(t, f.cart.GetCalls)
	assert.Zero(t, f.gateway.Calls)
}

func TestCancel_ConfirmationDeclined(t *testing.T) {
	f := newTestFixture()
	session := editableSession()

	discarded, err := f.svc.Cancel(context.Background(), session, func() bool { return false })

	require.NoError(t, err)
	assert.False(t, discarded)
}

func TestCancel_NilConfirmSkipsConfirmation(t *testing.T) {
	f := newTestFixture()
	session := editableSession()

	discarded, err := f.svc.Cancel(context.Background(), session, nil)

	require.NoError(t, err)
	assert.True(t, discarded)
}

func TestCancel_AfterCapture_Rejected(t *testing.T) {
	f := newTestFixture()
	f.printer.Errs = []error{errors.New("printer jam")}
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")
	require.NoError(t, err)
	require.Equal(t, d.PhasePrintError, session.Phase)

	_, err = f.svc.Cancel(context.Background(), session, nil)

	assert.ErrorIs(t, err, IllegalTransitionError)
}

// --- Audit trail ---

func TestSubmit_EmitsAuditTrail(t *testing.T) {
	f := newTestFixture()
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Equal(t, []string{
		"checkout.submitted",
		"payment.captured",
		"receipt.printed",
		"checkout.completed",
	}, f.audit.Types())
}

func TestSubmit_AuditCarriesFinalizeWarning(t *testing.T) {
	f := newTestFixture()
	f.cart.CompleteErr = errors.New("network error")
	session := editableSession()

	_, err := f.svc.Submit(context.Background(), session, "")

	require.NoError(t, err)
	assert.Contains(t, f.audit.Types(), "finalize.warning")
}
