package sales

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a sale with the given ID is not found.
var ErrNotFound = errors.New("sale not found")

// ErrEmptyID is returned when trying to store a sale with an empty ID.
var ErrEmptyID = errors.New("empty sale ID")

// ErrStaleState is returned when a compare-and-set transition loses a race:
// the sale's current status no longer matches what the caller expected.
var ErrStaleState = errors.New("sale status changed concurrently")

// TransitionExtra carries the optional fields a transition may write in the
// same atomic step as the status change.
type TransitionExtra struct {
	PaymentCode  string
	CancelReason string
}

// Storage is the main interface for the sale record layer. Transition is
// the concurrency guard for every forward move: it verifies the current
// status against the caller's expectation and writes the new status (plus
// any extra fields) atomically, so two concurrent advances of the same
// sale can never both succeed.
type Storage interface {
	Set(sale *Sale) error
	Read(id string) (*Sale, error)
	GetAll() ([]*Sale, error)
	Transition(id string, expected, next Status, extra *TransitionExtra) (*Sale, error)
}

// LocalStorage provides an in-memory implementation for storing sales.
type LocalStorage struct {
	mu sync.Mutex
	m  map[string]*Sale
}

// NewLocalStorage instantiates a new LocalStorage for sales with an empty map.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m: map[string]*Sale{},
	}
}

// Returns ErrEmptyID if the sale has an empty ID.
func (l *LocalStorage) Set(sale *Sale) error {
	if sale.ID == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[sale.ID] = sale
	return nil
}

// Read retrieves a sale from the local storage by ID.
// Returns ErrNotFound if the sale is not found.
func (l *LocalStorage) Read(id string) (*Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// GetAll retrieves all sales from the local storage.
func (l *LocalStorage) GetAll() ([]*Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]*Sale, 0, len(l.m))
	for _, s := range l.m {
		cp := *s
		result = append(result, &cp)
	}
	return result, nil
}

// Transition performs a compare-and-set status update. The payment code is
// write-once: it is only accepted on the move into CODE_GENERATED and is
// never overwritten afterwards.
func (l *LocalStorage) Transition(id string, expected, next Status, extra *TransitionExtra) (*Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.m[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Status != expected {
		return nil, ErrStaleState
	}

	s.Status = next
	if extra != nil {
		if extra.PaymentCode != "" && s.PaymentCode == "" && next == StatusCodeGenerated {
			s.PaymentCode = extra.PaymentCode
		}
		if extra.CancelReason != "" && next == StatusCanceled {
			s.CancelReason = extra.CancelReason
		}
	}
	s.UpdatedAt = time.Now()
	s.Version++

	cp := *s
	return &cp, nil
}
