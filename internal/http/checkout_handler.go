package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Jukingen/Regkasse-sub000/internal/cash"
	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"github.com/Jukingen/Regkasse-sub000/internal/service"
	"github.com/Jukingen/Regkasse-sub000/internal/session"
)

// CheckoutHandler translates terminal UI events into orchestrator calls. It
// renders nothing; responses carry the phase and messages for the UI.
type CheckoutHandler struct {
	service          *service.CheckoutService
	store            *session.Store
	strictCompliance bool
	log              *zap.Logger
}

func NewCheckoutHandler(svc *service.CheckoutService, store *session.Store, strictCompliance bool, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service:          svc,
		store:            store,
		strictCompliance: strictCompliance,
		log:              log,
	}
}

func (h *CheckoutHandler) Routes(r chi.Router) {
	r.Route("/tables/{table_id}/session", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Get("/", h.GetSession)
		r.Put("/", h.UpdateSession)
		r.Post("/advance", h.Advance)
		r.Post("/submit", h.Submit)
		r.Post("/retry-print", h.RetryPrint)
		r.Post("/skip-print", h.SkipPrint)
		r.Post("/cancel", h.Cancel)
	})
}

// --- DTOs ---

type OpenSessionRequestDTO struct {
	Wizard bool `json:"wizard"`
}

type LineItemDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	TaxClass  string  `json:"tax_class"`
}

type UpdateSessionRequestDTO struct {
	CustomerID     *string       `json:"customer_id,omitempty"`
	Items          []LineItemDTO `json:"items,omitempty"`
	PaymentMethod  *string       `json:"payment_method,omitempty"`
	AmountTendered *float64      `json:"amount_tendered,omitempty"`
}

type SubmitRequestDTO struct {
	Notes string `json:"notes"`
}

type CancelRequestDTO struct {
	Confirmed bool `json:"confirmed"`
}

type SessionResponseDTO struct {
	ID               string            `json:"id"`
	TableID          string            `json:"table_id"`
	CashierID        string            `json:"cashier_id"`
	CustomerID       string            `json:"customer_id"`
	Items            []LineItemDTO     `json:"items"`
	PaymentMethod    string            `json:"payment_method,omitempty"`
	AmountTendered   float64           `json:"amount_tendered,omitempty"`
	TotalAmount      float64           `json:"total_amount"`
	CashPresets      []float64         `json:"cash_presets,omitempty"`
	Change           *float64          `json:"change,omitempty"`
	Phase            string            `json:"phase"`
	PaymentID        string            `json:"payment_id,omitempty"`
	LastError        string            `json:"last_error,omitempty"`
	FinalizeWarnings []string          `json:"finalize_warnings,omitempty"`
	FieldErrors      map[string]string `json:"field_errors,omitempty"`
	Message          string            `json:"message,omitempty"`
}

func sessionDTO(s *d.CheckoutSession, result *service.Result) SessionResponseDTO {
	items := make([]LineItemDTO, len(s.Items))
	for i, item := range s.Items {
		items[i] = LineItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			TaxClass:  item.TaxClass,
		}
	}

	dto := SessionResponseDTO{
		ID:               s.ID,
		TableID:          s.TableID,
		CashierID:        s.CashierID,
		CustomerID:       s.CustomerID,
		Items:            items,
		PaymentMethod:    string(s.Method),
		AmountTendered:   s.AmountTendered,
		TotalAmount:      s.TotalAmount(),
		Phase:            s.Phase.String(),
		PaymentID:        s.PaymentID(),
		LastError:        s.LastError,
		FinalizeWarnings: s.FinalizeWarnings,
	}

	if s.Method == d.PaymentMethodCash {
		total := s.TotalAmount()
		dto.CashPresets = cash.Presets(total)
		if change, err := cash.Change(s.AmountTendered, total); err == nil && s.AmountTendered > 0 {
			dto.Change = &change
		}
	}

	if result != nil {
		dto.FieldErrors = result.FieldErrors
		dto.Message = result.Message
	}
	return dto
}

// decodeOptionalBody decodes a JSON body into dst. An absent body is fine;
// ContentLength is not consulted so chunked requests decode too.
func decodeOptionalBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// --- handlers ---

// POST /api/v1/tables/{table_id}/session
func (h *CheckoutHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table_id")
	cashierID := getCashierID(r.Context())
	if cashierID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing cashier identification")
		return
	}

	var req OpenSessionRequestDTO
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s, err := h.store.Open(tableID, cashierID, req.Wizard)
	if err != nil {
		if errors.Is(err, session.ErrSessionExists) {
			respondError(w, http.StatusConflict, "session_exists", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, sessionDTO(s, nil))
}

// GET /api/v1/tables/{table_id}/session
func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Get(chi.URLParam(r, "table_id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sessionDTO(s, nil))
}

// PUT /api/v1/tables/{table_id}/session
func (h *CheckoutHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var req UpdateSessionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.withSession(w, r, func(s *d.CheckoutSession) (*service.Result, error) {
		if !s.Phase.IsEditable() {
			return nil, service.IllegalTransitionError
		}

		if req.CustomerID != nil {
			s.CustomerID = *req.CustomerID
			if s.CustomerID == "" {
				s.CustomerID = d.GuestCustomerID
			}
		}
		if req.Items != nil {
			items := make([]d.LineItem, len(req.Items))
			for i, item := range req.Items {
				items[i] = d.LineItem{
					ProductID: item.ProductID,
					Name:      item.Name,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
					TaxClass:  item.TaxClass,
					LineTotal: item.UnitPrice * float64(item.Quantity),
				}
			}
			s.Items = items
		}
		if req.PaymentMethod != nil {
			s.Method = d.PaymentMethod(*req.PaymentMethod)
			s.FiscalSignatureRequired = d.RequiresFiscalSignature(s.Method, h.strictCompliance)
		}
		if req.AmountTendered != nil {
			s.AmountTendered = *req.AmountTendered
		}
		return nil, nil
	})
}

// POST /api/v1/tables/{table_id}/session/advance
func (h *CheckoutHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *d.CheckoutSession) (*service.Result, error) {
		return h.service.Advance(r.Context(), s)
	})
}

// POST /api/v1/tables/{table_id}/session/submit
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestDTO
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	h.withSession(w, r, func(s *d.CheckoutSession) (*service.Result, error) {
		return h.service.Submit(r.Context(), s, req.Notes)
	})
}

// POST /api/v1/tables/{table_id}/session/retry-print
func (h *CheckoutHandler) RetryPrint(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *d.CheckoutSession) (*service.Result, error) {
		return h.service.RetryPrint(r.Context(), s)
	})
}

// POST /api/v1/tables/{table_id}/session/skip-print
func (h *CheckoutHandler) SkipPrint(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(s *d.CheckoutSession) (*service.Result, error) {
		return h.service.SkipPrint(r.Context(), s)
	})
}

// POST /api/v1/tables/{table_id}/session/cancel
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table_id")

	var req CancelRequestDTO
	if err := decodeOptionalBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s, release, err := h.store.Acquire(tableID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	discarded, err := h.service.Cancel(r.Context(), s, func() bool { return req.Confirmed })
	if err != nil {
		release()
		respondError(w, http.StatusConflict, "not_cancellable", "session can only be cancelled while editable")
		return
	}
	if !discarded {
		// Confirmation declined; nothing changed.
		dto := sessionDTO(s, nil)
		release()
		respondJSON(w, http.StatusOK, dto)
		return
	}
	release()

	h.store.Discard(tableID)
	w.WriteHeader(http.StatusNoContent)
}

// withSession acquires the table's session, runs op under the exclusivity
// guard, and renders the outcome. The response DTO and phase are captured
// before the guard is released so a concurrent operation cannot race the
// encoding. Completed sessions get their auto-close armed here.
func (h *CheckoutHandler) withSession(w http.ResponseWriter, r *http.Request, op func(*d.CheckoutSession) (*service.Result, error)) {
	tableID := chi.URLParam(r, "table_id")

	s, release, err := h.store.Acquire(tableID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	result, opErr := op(s)
	phase := s.Phase
	var dto SessionResponseDTO
	if opErr == nil {
		dto = sessionDTO(s, result)
	}
	release()

	if opErr != nil {
		if errors.Is(opErr, service.IllegalTransitionError) {
			respondError(w, http.StatusConflict, "illegal_transition",
				"operation is not valid in phase "+phase.String())
			return
		}
		h.log.Error("checkout operation failed", zap.String("table_id", tableID), zap.Error(opErr))
		respondError(w, http.StatusInternalServerError, "internal_error", opErr.Error())
		return
	}

	if phase.IsTerminal() {
		h.store.ScheduleClose(tableID)
	}
	respondJSON(w, http.StatusOK, dto)
}

func (h *CheckoutHandler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, session.ErrSessionBusy):
		respondError(w, http.StatusConflict, "session_busy", "a submission is already in flight for this table")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
