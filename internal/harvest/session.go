// Package harvest owns the application state for one loaded sheet: the table,
// the column selection, and the product collection derived from them.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/extract"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
	"github.com/kostadindraganov/amazon-extractor/internal/sheet"
)

// ErrNotLoaded means no sheet has been loaded yet.
var ErrNotLoaded = errors.New("no sheet loaded")

// ErrUnknownColumn means the requested link column is not one of the table's
// headers.
var ErrUnknownColumn = errors.New("unknown column")

// NoLinksError reports a load or remap that produced zero recognizable product
// links. It is non-fatal: the table is kept so the user can pick another
// column without re-fetching.
type NoLinksError struct {
	Column string
}

func (e *NoLinksError) Error() string {
	return fmt.Sprintf("no valid Amazon links found in column %q", e.Column)
}

// Config holds session settings.
type Config struct {
	BatchSize int
	OnUpdate  func(catalog.Product)
}

// State is a snapshot of the session for the presentation layer.
type State struct {
	Headers       []string              `json:"headers"`
	LinkColumn    string                `json:"linkColumn"`
	LinkRationale catalog.LinkRationale `json:"linkRationale"`
	GroupColumn   string                `json:"groupColumn,omitempty"`
	RowCount      int                   `json:"rowCount"`
	Products      []catalog.Product     `json:"products"`
}

// Session is the single controller owning the mutable application state. All
// state changes go through its methods; readers get copies.
type Session struct {
	logger  *observability.Logger
	loader  *sheet.Loader
	service extract.Service
	cfg     Config

	mu            sync.Mutex
	table         *sheet.Table
	linkColumn    string
	linkRationale catalog.LinkRationale
	groupColumn   string
	store         *extract.Store
	orchestrator  *extract.Orchestrator
}

// NewSession creates a session over the given loader and extraction service.
func NewSession(logger *observability.Logger, loader *sheet.Loader, service extract.Service, cfg Config) *Session {
	return &Session{
		logger:  logger,
		loader:  loader,
		service: service,
		cfg:     cfg,
	}
}

// LoadSheet fetches the sheet behind shareURL and replaces all session state
// with a freshly derived product set. A *NoLinksError return still replaces
// the state; the caller surfaces it as a banner rather than a failure.
func (s *Session) LoadSheet(ctx context.Context, shareURL string) (*State, error) {
	table, err := s.loader.Load(ctx, shareURL)
	if err != nil {
		return nil, err
	}

	linkColumn, rationale := catalog.DetectLinkColumn(table.Headers, table.Rows)
	groupColumn := catalog.DetectGroupColumn(table.Headers)
	products := catalog.MapProducts(table.Rows, linkColumn, groupColumn)

	s.mu.Lock()
	s.table = table
	s.linkColumn = linkColumn
	s.linkRationale = rationale
	s.groupColumn = groupColumn
	s.store = extract.NewStore(products)
	s.orchestrator = extract.NewOrchestrator(s.logger, s.service, s.store, extract.Options{
		BatchSize: s.cfg.BatchSize,
		OnUpdate:  s.cfg.OnUpdate,
	})
	state := s.stateLocked()
	s.mu.Unlock()

	s.logger.Info().
		Str("link_column", linkColumn).
		Str("link_rationale", string(rationale)).
		Str("group_column", groupColumn).
		Int("products", len(products)).
		Msg("Sheet state replaced")

	if len(products) == 0 {
		return state, &NoLinksError{Column: linkColumn}
	}
	return state, nil
}

// SetLinkColumn re-derives the product set from the held table with a user
// chosen link column. No re-fetch happens; the group column is re-detected
// from the same headers.
func (s *Session) SetLinkColumn(name string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil, ErrNotLoaded
	}

	found := false
	for _, h := range s.table.Headers {
		if h == name {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}

	s.linkColumn = name
	s.linkRationale = ""
	s.groupColumn = catalog.DetectGroupColumn(s.table.Headers)

	products := catalog.MapProducts(s.table.Rows, s.linkColumn, s.groupColumn)
	s.store.Replace(products)

	state := s.stateLocked()
	if len(products) == 0 {
		return state, &NoLinksError{Column: name}
	}
	return state, nil
}

// Extract runs the extraction pipeline over the current pending products.
// A second call while a run is in flight returns extract.ErrRunInFlight.
func (s *Session) Extract(ctx context.Context, opts extract.RunOptions) (*extract.RunReport, error) {
	s.mu.Lock()
	orch := s.orchestrator
	s.mu.Unlock()

	if orch == nil {
		return nil, ErrNotLoaded
	}
	return orch.Run(ctx, opts)
}

// Extracting reports whether an extraction run is in flight.
func (s *Session) Extracting() bool {
	s.mu.Lock()
	orch := s.orchestrator
	s.mu.Unlock()

	return orch != nil && orch.Running()
}

// State returns a snapshot of the current session state.
func (s *Session) State() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil, ErrNotLoaded
	}
	return s.stateLocked(), nil
}

// Products returns the current product collection in row order.
func (s *Session) Products() []catalog.Product {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Snapshot()
}

// Grouped returns the current products bucketed for display.
func (s *Session) Grouped() []catalog.Grouped {
	return catalog.GroupProducts(s.Products())
}

// Counts returns the number of products per status.
func (s *Session) Counts() map[catalog.Status]int {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return map[catalog.Status]int{}
	}
	return store.Counts()
}

func (s *Session) stateLocked() *State {
	return &State{
		Headers:       append([]string(nil), s.table.Headers...),
		LinkColumn:    s.linkColumn,
		LinkRationale: s.linkRationale,
		GroupColumn:   s.groupColumn,
		RowCount:      len(s.table.Rows),
		Products:      s.store.Snapshot(),
	}
}
