package service

import (
	"context"
	"sync"
	"time"

	"github.com/Jukingen/Regkasse-sub000/internal/audit"
	"github.com/Jukingen/Regkasse-sub000/internal/backend"
	"github.com/Jukingen/Regkasse-sub000/internal/validation"
	"go.uber.org/zap"
)

// callRecorder keeps the cross-collaborator call order so ordering
// invariants (capture before complete before reset before print) can be
// asserted.
type callRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *callRecorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name)
}

func (r *callRecorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// MockCartService implements CartService for testing
type MockCartService struct {
	recorder    *callRecorder
	Cart        *backend.ActiveCart
	GetErr      error
	CompleteErr error
	ResetErr    error

	GetCalls      int
	CompleteCalls int
	ResetCalls    int
}

func (m *MockCartService) GetActiveCart(_ context.Context, _ string) (*backend.ActiveCart, error) {
	m.GetCalls++
	m.recorder.record("cart.get")
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Cart, nil
}

func (m *MockCartService) Complete(_ context.Context, _, _ string) error {
	m.CompleteCalls++
	m.recorder.record("cart.complete")
	return m.CompleteErr
}

func (m *MockCartService) Reset(_ context.Context, _, _ string) error {
	m.ResetCalls++
	m.recorder.record("cart.reset")
	return m.ResetErr
}

// MockPaymentGateway implements PaymentGateway for testing
type MockPaymentGateway struct {
	recorder *callRecorder
	Result   *backend.PaymentResult
	Err      error

	Calls   int
	LastReq *backend.PaymentRequest
}

func (m *MockPaymentGateway) Process(_ context.Context, req *backend.PaymentRequest) (*backend.PaymentResult, error) {
	m.Calls++
	m.LastReq = req
	m.recorder.record("payment.process")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockReceiptPrinter implements ReceiptPrinter for testing. Errs is consumed
// one entry per call; once exhausted printing succeeds.
type MockReceiptPrinter struct {
	recorder *callRecorder
	Errs     []error

	Calls      int
	PaymentIDs []string
}

func (m *MockReceiptPrinter) Print(_ context.Context, paymentID string) error {
	m.Calls++
	m.PaymentIDs = append(m.PaymentIDs, paymentID)
	m.recorder.record("printer.print")
	if len(m.Errs) == 0 {
		return nil
	}
	err := m.Errs[0]
	m.Errs = m.Errs[1:]
	return err
}

// MockFiscalDevice implements FiscalDevice for testing
type MockFiscalDevice struct {
	Status_ *backend.DeviceStatus
	Err     error
	Calls   int
}

func (m *MockFiscalDevice) Status(_ context.Context) (*backend.DeviceStatus, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Status_, nil
}

// RecordingPublisher captures audit events.
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []audit.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
	return nil
}

func (p *RecordingPublisher) Close() error { return nil }

func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.Events))
	for i, e := range p.Events {
		types[i] = e.Type
	}
	return types
}

type testFixture struct {
	recorder *callRecorder
	cart     *MockCartService
	gateway  *MockPaymentGateway
	printer  *MockReceiptPrinter
	fiscal   *MockFiscalDevice
	audit    *RecordingPublisher
	svc      *CheckoutService
}

// newTestFixture creates a fully wired CheckoutService whose collaborators
// succeed by default.
func newTestFixture() *testFixture {
	recorder := &callRecorder{}
	cart := &MockCartService{
		recorder: recorder,
		Cart:     &backend.ActiveCart{CartID: "cart-42", TableID: "table-7"},
	}
	gateway := &MockPaymentGateway{
		recorder: recorder,
		Result:   &backend.PaymentResult{Success: true, PaymentID: "pay_123"},
	}
	printer := &MockReceiptPrinter{recorder: recorder}
	fiscal := &MockFiscalDevice{
		Status_: &backend.DeviceStatus{Connected: true, SignatureAvailable: true},
	}
	publisher := &RecordingPublisher{}

	gate, err := validation.NewGate(validation.Config{
		FiscalTaxID:       "ATU12345678",
		RegisterID:        "REG-001",
		FiscalTaxIDFormat: `^ATU\d{8}$`,
		RegisterIDFormat:  `^REG-\d{3}$`,
	})
	if err != nil {
		panic(err)
	}

	timeout := 5 * time.Second
	svc := NewCheckoutService(
		gate,
		NewCartHandler(cart, timeout),
		NewPaymentHandler(gateway, timeout),
		NewPrinterHandler(printer, timeout),
		NewFiscalHandler(fiscal, timeout),
		publisher,
		zap.NewNop(),
	)

	return &testFixture{
		recorder: recorder,
		cart:     cart,
		gateway:  gateway,
		printer:  printer,
		fiscal:   fiscal,
		audit:    publisher,
		svc:      svc,
	}
}
