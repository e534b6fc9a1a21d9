package extract

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kostadindraganov/amazon-extractor/internal/catalog"
	"github.com/kostadindraganov/amazon-extractor/internal/observability"
)

// ErrRunInFlight means an extraction run is already active for this store.
var ErrRunInFlight = errors.New("extraction run already in flight")

// Options configure an orchestrator.
type Options struct {
	// BatchSize bounds simultaneous calls against the extraction service.
	// This is backpressure for a rate-limited upstream, not a throughput
	// knob.
	BatchSize int
	// OnUpdate, when set, is invoked with a copy of the product after every
	// state change, for live progress display.
	OnUpdate func(catalog.Product)
}

// Orchestrator runs extraction over a product store in fixed-size batches.
// Batches execute strictly in order; within a batch all calls run
// concurrently and the batch joins before the next one dispatches. One item
// failing never aborts its siblings or later batches, and nothing is retried.
type Orchestrator struct {
	logger    *observability.Logger
	service   Service
	store     *Store
	batchSize int
	onUpdate  func(catalog.Product)
	running   atomic.Bool
}

// NewOrchestrator creates an orchestrator over the given store and service.
func NewOrchestrator(logger *observability.Logger, service Service, store *Store, opts Options) *Orchestrator {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 2
	}

	return &Orchestrator{
		logger:    logger,
		service:   service,
		store:     store,
		batchSize: batchSize,
		onUpdate:  opts.OnUpdate,
	}
}

// RunOptions control one extraction run.
type RunOptions struct {
	// IncludeFailed re-queues failed products before the run starts. Off by
	// default: a failed item stays failed until the sheet is reloaded.
	IncludeFailed bool
}

// RunReport summarizes one extraction run.
type RunReport struct {
	RunID     string        `json:"runId"`
	Total     int           `json:"total"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration"`
}

// Running reports whether a run is currently active.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}

// Run processes every pending product. A second call while one run is in
// flight returns ErrRunInFlight without touching any state. Cancellation is
// honored between batches: the in-flight batch finishes, later batches stay
// pending.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInFlight
	}
	defer o.running.Store(false)

	if opts.IncludeFailed {
		for _, p := range o.store.Snapshot() {
			if p.Status == catalog.StatusFailed {
				if err := o.store.Requeue(p.ID); err != nil {
					o.logger.Warn().Err(err).Str("product_id", p.ID).Msg("Requeue failed")
				}
			}
		}
	}

	pending := o.store.Pending()
	report := &RunReport{
		RunID: uuid.NewString(),
		Total: len(pending),
	}

	log := o.logger.With().Str("run_id", report.RunID).Logger()
	log.Info().
		Int("products", len(pending)).
		Int("batch_size", o.batchSize).
		Msg("Extraction run started")

	start := time.Now()

	for from := 0; from < len(pending); from += o.batchSize {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		to := from + o.batchSize
		if to > len(pending) {
			to = len(pending)
		}
		o.runBatch(ctx, log, pending[from:to])
	}

	for _, p := range o.store.Snapshot() {
		switch p.Status {
		case catalog.StatusCompleted:
			report.Completed++
		case catalog.StatusFailed:
			report.Failed++
		}
	}
	report.Duration = time.Since(start)

	log.Info().
		Int("completed", report.Completed).
		Int("failed", report.Failed).
		Bool("cancelled", report.Cancelled).
		Dur("duration", report.Duration).
		Msg("Extraction run finished")

	if report.Cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

// runBatch dispatches every product of the batch concurrently and joins.
func (o *Orchestrator) runBatch(ctx context.Context, log *observability.Logger, batch []catalog.Product) {
	var wg sync.WaitGroup
	for _, p := range batch {
		wg.Add(1)
		go func(p catalog.Product) {
			defer wg.Done()
			o.processOne(ctx, log, p)
		}(p)
	}
	wg.Wait()
}

// processOne drives a single product to a terminal status.
func (o *Orchestrator) processOne(ctx context.Context, log *observability.Logger, p catalog.Product) {
	if err := o.store.MarkProcessing(p.ID); err != nil {
		log.Warn().Err(err).Str("product_id", p.ID).Msg("Skipping product")
		return
	}
	o.notify(p.ID)

	result, err := o.service.Extract(ctx, p.URL)
	if err != nil {
		log.Warn().Err(err).Str("product_id", p.ID).Str("url", p.URL).Msg("Extraction failed")
		if err := o.store.Fail(p.ID, err.Error()); err != nil {
			log.Error().Err(err).Str("product_id", p.ID).Msg("Recording failure failed")
		}
	} else {
		if err := o.store.Complete(p.ID, *result); err != nil {
			log.Error().Err(err).Str("product_id", p.ID).Msg("Recording result failed")
		}
	}
	o.notify(p.ID)
}

func (o *Orchestrator) notify(id string) {
	if o.onUpdate == nil {
		return
	}
	if p, ok := o.store.Get(id); ok {
		o.onUpdate(p)
	}
}
