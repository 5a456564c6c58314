// Package session keeps the in-memory checkout sessions, one per table. A
// session never outlives the process; crash recovery between capture and
// printing is handled out of band via the audit trail.
package session

import (
	"errors"
	"sync"
	"time"

	d "github.com/Jukingen/Regkasse-sub000/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSessionExists   = errors.New("table already has an open checkout session")
	ErrSessionNotFound = errors.New("no checkout session for table")
	ErrSessionBusy     = errors.New("checkout session has a submission in flight")
)

// Entry pairs a session with its exclusivity guard. All orchestrator calls
// for one table are serialized through the entry's mutex.
type Entry struct {
	mu          sync.Mutex
	Session     *d.CheckoutSession
	cancelClose func()
}

// Store owns the live sessions keyed by table id.
type Store struct {
	mu             sync.RWMutex
	entries        map[string]*Entry
	scheduler      Scheduler
	autoCloseDelay time.Duration
	log            *zap.Logger
}

func NewStore(scheduler Scheduler, autoCloseDelay time.Duration, log *zap.Logger) *Store {
	return &Store{
		entries:        make(map[string]*Entry),
		scheduler:      scheduler,
		autoCloseDelay: autoCloseDelay,
		log:            log,
	}
}

// Open creates the session for a table. wizard selects the stepwise
// presentation; otherwise the session starts directly in EDITABLE.
func (s *Store) Open(tableID, cashierID string, wizard bool) (*d.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[tableID]; exists {
		return nil, ErrSessionExists
	}

	phase := d.PhaseEditable
	if wizard {
		phase = d.PhaseCollectingCustomer
	}
	session := &d.CheckoutSession{
		ID:         uuid.NewString(),
		TableID:    tableID,
		CashierID:  cashierID,
		CustomerID: d.GuestCustomerID,
		Phase:      phase,
		CreatedAt:  time.Now(),
	}
	s.entries[tableID] = &Entry{Session: session}
	return session, nil
}

// Acquire locks the table's session for one orchestrator operation and
// returns it with a release func. A busy session (collaborator call in
// flight from another request) is refused rather than waited on, so the
// trigger stays disabled for the operator instead of queueing a second
// submission.
func (s *Store) Acquire(tableID string) (*d.CheckoutSession, func(), error) {
	s.mu.RLock()
	entry, exists := s.entries[tableID]
	s.mu.RUnlock()
	if !exists {
		return nil, nil, ErrSessionNotFound
	}

	if !entry.mu.TryLock() {
		return nil, nil, ErrSessionBusy
	}
	return entry.Session, entry.mu.Unlock, nil
}

// Get returns a snapshot of the table's session, copied under the operation
// guard. It waits out an in-flight operation rather than racing its writes;
// the caller owns the returned copy.
func (s *Store) Get(tableID string) (*d.CheckoutSession, error) {
	s.mu.RLock()
	entry, exists := s.entries[tableID]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	snapshot := entry.Session.Clone()
	entry.mu.Unlock()
	return snapshot, nil
}

// Discard drops the session and cancels any pending auto-close.
func (s *Store) Discard(tableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, exists := s.entries[tableID]; exists && entry.cancelClose != nil {
		entry.cancelClose()
	}
	delete(s.entries, tableID)
}

// ScheduleClose arms the auto-close for a completed session. Re-arming
// replaces the previous event.
func (s *Store) ScheduleClose(tableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[tableID]
	if !exists {
		return
	}
	if entry.cancelClose != nil {
		entry.cancelClose()
	}
	entry.cancelClose = s.scheduler.Schedule(s.autoCloseDelay, func() {
		s.log.Info("auto-closing completed checkout session",
			zap.String("table_id", tableID))
		s.Discard(tableID)
	})
}
