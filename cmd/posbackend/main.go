// posbackend is a development stub standing in for the real cart service,
// payment gateway, receipt printer and fiscal signature device, so the
// terminal can run end to end on a laptop.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Jukingen/Regkasse-sub000/internal/backend"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ChargeDecider decides the outcome of a charge. Tests plug in a
// deterministic one; the binary charges like a slightly flaky gateway.
type ChargeDecider interface {
	Decide() (success bool, message string)
}

type RandomDecider struct{}

func (RandomDecider) Decide() (bool, string) {
	switch n := rand.Intn(100); {
	case n < 92:
		return true, ""
	case n < 96:
		return false, "insufficient funds"
	default:
		return false, "card declined"
	}
}

type stubBackend struct {
	decider ChargeDecider

	mu        sync.Mutex
	carts     map[string]string // table id -> open cart id
	completed map[string]bool
	printed   map[string]int // payment id -> print count
}

func newStubBackend(decider ChargeDecider) *stubBackend {
	return &stubBackend{
		decider:   decider,
		carts:     make(map[string]string),
		completed: make(map[string]bool),
		printed:   make(map[string]int),
	}
}

// GET /api/v1/tables/{table_id}/cart
func (b *stubBackend) getActiveCart(w http.ResponseWriter, r *http.Request) {
	tableID := chi.URLParam(r, "table_id")

	b.mu.Lock()
	cartID, exists := b.carts[tableID]
	if !exists {
		cartID = "cart-" + uuid.NewString()
		b.carts[tableID] = cartID
	}
	b.mu.Unlock()

	respondJSON(w, http.StatusOK, backend.ActiveCart{
		CartID:  cartID,
		TableID: tableID,
	})
}

// POST /api/v1/carts/{cart_id}/complete
func (b *stubBackend) completeCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cart_id")

	b.mu.Lock()
	b.completed[cartID] = true
	b.mu.Unlock()

	log.Printf("cart %s completed", cartID)
	w.WriteHeader(http.StatusOK)
}

// POST /api/v1/carts/{cart_id}/reset
func (b *stubBackend) resetCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cart_id")

	b.mu.Lock()
	for tableID, id := range b.carts {
		if id == cartID {
			delete(b.carts, tableID)
		}
	}
	b.mu.Unlock()

	log.Printf("cart %s reset", cartID)
	w.WriteHeader(http.StatusOK)
}

// POST /api/v1/payments
func (b *stubBackend) processPayment(w http.ResponseWriter, r *http.Request) {
	success, message := b.decider.Decide()
	if !success {
		respondJSON(w, http.StatusOK, backend.PaymentResult{
			Success: false,
			Error:   "payment_declined",
			Message: message,
		})
		return
	}
	respondJSON(w, http.StatusOK, backend.PaymentResult{
		Success:   true,
		PaymentID: fmt.Sprintf("pay_%s", uuid.NewString()),
	})
}

// POST /api/v1/receipts/{payment_id}/print
// Printing is idempotent: a repeated call only re-emits the receipt.
func (b *stubBackend) printReceipt(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "payment_id")

	b.mu.Lock()
	b.printed[paymentID]++
	count := b.printed[paymentID]
	b.mu.Unlock()

	log.Printf("receipt for %s printed (copy %d)", paymentID, count)
	w.WriteHeader(http.StatusOK)
}

// GET /api/v1/tse/status
func (b *stubBackend) tseStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, backend.DeviceStatus{
		Connected:          true,
		SignatureAvailable: true,
		SerialNumber:       "TSE-STUB-0001",
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func main() {
	port := getEnv("HTTP_PORT", "8091")

	b := newStubBackend(RandomDecider{})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tables/{table_id}/cart", b.getActiveCart)
		r.Post("/carts/{cart_id}/complete", b.completeCart)
		r.Post("/carts/{cart_id}/reset", b.resetCart)
		r.Post("/payments", b.processPayment)
		r.Post("/receipts/{payment_id}/print", b.printReceipt)
		r.Get("/tse/status", b.tseStatus)
	})

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		log.Printf("stub backend listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("stub backend stopped")
}
