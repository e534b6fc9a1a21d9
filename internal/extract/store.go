// Package extract drives batched product extraction runs and owns the product
// collection state.
package extract

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
)

// Store errors.
var (
	ErrUnknownProduct    = errors.New("unknown product")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Store holds the product collection for the current load. Every mutation
// replaces the whole matching record under the lock, so concurrent readers
// never observe a partially written product. Status moves only forward; the
// one exception is Requeue, an explicit operator action.
type Store struct {
	mu       sync.RWMutex
	order    []string
	products map[string]catalog.Product
}

// NewStore creates a store over the given products.
func NewStore(products []catalog.Product) *Store {
	s := &Store{}
	s.Replace(products)
	return s
}

// Replace swaps in a whole new product set. Used on reload and on link-column
// change.
func (s *Store) Replace(products []catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(products))
	s.products = make(map[string]catalog.Product, len(products))
	for _, p := range products {
		s.order = append(s.order, p.ID)
		s.products[p.ID] = p
	}
}

// Get returns a copy of the product with the given ID.
func (s *Store) Get(id string) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return p, ok
}

// Snapshot returns all products in original row order.
func (s *Store) Snapshot() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}

// Pending returns the products still awaiting extraction, in order.
func (s *Store) Pending() []catalog.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Product
	for _, id := range s.order {
		if p := s.products[id]; p.Status == catalog.StatusPending {
			out = append(out, p)
		}
	}
	return out
}

// Counts returns the number of products per status.
func (s *Store) Counts() map[catalog.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[catalog.Status]int, 4)
	for _, p := range s.products {
		counts[p.Status]++
	}
	return counts
}

// MarkProcessing moves a pending product into processing.
func (s *Store) MarkProcessing(id string) error {
	return s.transition(id, catalog.StatusProcessing, func(p *catalog.Product) {})
}

// Complete records a successful extraction.
func (s *Store) Complete(id string, result catalog.Extraction) error {
	return s.transition(id, catalog.StatusCompleted, func(p *catalog.Product) {
		p.Title = result.Title
		p.Images = result.Images
		if p.Images == nil {
			p.Images = []string{}
		}
		p.Sources = result.Sources
		p.Error = ""
	})
}

// Fail records a failed extraction.
func (s *Store) Fail(id string, message string) error {
	if message == "" {
		message = "extraction failed"
	}
	return s.transition(id, catalog.StatusFailed, func(p *catalog.Product) {
		p.Error = message
		p.Images = []string{}
	})
}

// Requeue moves a failed product back to pending so a later run picks it up.
// This deliberately steps outside the forward-only transition rule and only
// happens on explicit request.
func (s *Store) Requeue(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	if p.Status != catalog.StatusFailed {
		return fmt.Errorf("%w: %s is %s, not %s", ErrInvalidTransition, id, p.Status, catalog.StatusFailed)
	}

	p.Status = catalog.StatusPending
	p.Error = ""
	p.Images = []string{}
	s.products[id] = p
	return nil
}

// transition applies mutate and the new status to a fresh copy of the record,
// then swaps the copy in.
func (s *Store) transition(id string, next catalog.Status, mutate func(*catalog.Product)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s for %s", ErrInvalidTransition, p.Status, next, id)
	}

	p.Status = next
	mutate(&p)
	s.products[id] = p
	return nil
}
