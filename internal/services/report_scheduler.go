package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"invoicing/internal/core"
	"invoicing/internal/log"
	"invoicing/internal/ports"
)

// ErrSchedulerDraining is returned by Start while a Stop that timed out is
// still waiting for the last cycle or publish to finish.
var ErrSchedulerDraining = errors.New("report scheduler is still draining a previous stop")

// SchedulerState is the state of the report cycle, not of the timer.
type SchedulerState int32

const (
	StateIdle SchedulerState = iota
	StateRunning
)

func (s SchedulerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("SchedulerState(%d)", int32(s))
	}
}

// SchedulerConfig holds configuration for the report scheduler
type SchedulerConfig struct {
	// Interval is the tick cadence (default: 1m). It does not affect the window.
	Interval time.Duration

	// Anchor is the time of day that closes each reporting window (default: 12:00).
	Anchor core.TimeOfDay

	// Location is the time zone the anchor is interpreted in (default: Local).
	Location *time.Location

	// Topic is the routing key the report is published on.
	Topic string

	// PublishTimeout bounds how long a cycle waits for the publish outcome (default: 5s).
	PublishTimeout time.Duration

	// RunOnStart triggers a cycle as soon as the scheduler starts.
	RunOnStart bool
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:       time.Minute,
		Anchor:         core.TimeOfDay{Hour: 12},
		Location:       time.Local,
		Topic:          "report.generated",
		PublishTimeout: 5 * time.Second,
		RunOnStart:     true,
	}
}

// ReportScheduler periodically summarizes the invoices of the current daily
// window and publishes the result. At most one cycle is in flight; ticks that
// arrive while a cycle runs are dropped.
type ReportScheduler struct {
	store     ports.InvoiceReader
	publisher ports.SummaryPublisher
	now       func() time.Time
	logger    *log.Logger
	config    SchedulerConfig

	state   atomic.Int32
	cycles  sync.WaitGroup
	pending sync.WaitGroup

	// Lifecycle management
	mu       sync.Mutex
	started  bool
	draining bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewReportScheduler creates a scheduler. A nil clock means time.Now and a
// nil logger means log.Default.
func NewReportScheduler(
	store ports.InvoiceReader,
	publisher ports.SummaryPublisher,
	clock func() time.Time,
	logger *log.Logger,
	config SchedulerConfig,
) *ReportScheduler {
	defaults := DefaultSchedulerConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if config.Topic == "" {
		config.Topic = defaults.Topic
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaults.PublishTimeout
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}

	return &ReportScheduler{
		store:     store,
		publisher: publisher,
		now:       clock,
		logger:    logger.WithComponent(log.ComponentScheduler),
		config:    config,
	}
}

// Start begins the timer loop. Returns an error if already started.
// Cycles run on a context detached from ctx, so cancelling ctx stops the
// timer without aborting a cycle in flight.
func (s *ReportScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("report scheduler is already started")
	}
	if s.draining {
		s.mu.Unlock()
		return ErrSchedulerDraining
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	s.logger.InfoContext(ctx, "Report scheduler started",
		"interval", s.config.Interval,
		"anchor", s.config.Anchor.String(),
		"location", s.config.Location.String(),
		log.FieldTopic, s.config.Topic,
		"run_on_start", s.config.RunOnStart)

	return nil
}

// Stop halts the timer and waits for the in-flight cycle, and any publish it
// left pending, to finish. The wait is bounded by ctx. Until that work has
// actually finished no new cycle can start, even if ctx expired first.
func (s *ReportScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.draining = true
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh

	idle := make(chan struct{})
	go func() {
		s.cycles.Wait()
		s.pending.Wait()
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
		close(idle)
	}()

	select {
	case <-idle:
		s.logger.InfoContext(ctx, "Report scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Report scheduler stop timed out", log.FieldError, ctx.Err())
		return ctx.Err()
	}
}

// IsRunning reports whether a cycle is in flight.
func (s *ReportScheduler) IsRunning() bool {
	return s.State() == StateRunning
}

// State returns the current cycle state.
func (s *ReportScheduler) State() SchedulerState {
	return SchedulerState(s.state.Load())
}

func (s *ReportScheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	cycleCtx := context.WithoutCancel(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.Trigger(cycleCtx)
	}

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Trigger(cycleCtx)
		}
	}
}

// Trigger starts a cycle in its own goroutine unless one is already running.
// It reports whether a cycle was started and never blocks on I/O.
func (s *ReportScheduler) Trigger(ctx context.Context) bool {
	if !s.acquire(ctx) {
		return false
	}
	go func() {
		defer s.release()
		_ = s.runCycle(ctx)
	}()
	return true
}

// RunOnce runs a cycle synchronously unless one is already running.
// It reports whether the cycle ran, and the store or publish error if any.
// A publish that is still pending after PublishTimeout is not an error.
func (s *ReportScheduler) RunOnce(ctx context.Context) (bool, error) {
	if !s.acquire(ctx) {
		return false, nil
	}
	defer s.release()
	return true, s.runCycle(ctx)
}

// acquire moves Idle to Running. The cycle counter is raised under mu, before
// the caller spawns any goroutine, so it never races a draining Stop.
func (s *ReportScheduler) acquire(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		s.logger.DebugContext(ctx, "Skipping report cycle", "reason", "scheduler is stopping")
		return false
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		s.logger.DebugContext(ctx, "Skipping report cycle", "reason", "previous cycle still running")
		return false
	}
	s.cycles.Add(1)
	return true
}

func (s *ReportScheduler) release() {
	s.state.Store(int32(StateIdle))
	s.cycles.Done()
}

func (s *ReportScheduler) runCycle(ctx context.Context) error {
	started := s.now()
	window := core.DailyWindow(started.In(s.config.Location), s.config.Anchor)
	fields := log.NewFields().WithWindow(window.Start, window.End)

	invoices, err := s.store.FindByFilter(ctx, window.Filter())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load invoices for report",
			fields.WithError(err).ToSlice()...)
		return fmt.Errorf("load invoices for %s: %w", window, err)
	}

	report := core.Report{
		Summary:     core.Summarize(invoices),
		Window:      window,
		GeneratedAt: s.now(),
	}

	s.logger.DebugContext(ctx, "Sales report computed",
		append(fields.ToSlice(),
			log.FieldInvoices, len(invoices),
			log.FieldTotalSales, report.Summary.TotalSales.String(),
			log.FieldSKUCount, len(report.Summary.ItemsSummary))...)

	return s.publish(ctx, report)
}

// publish hands the report to the publisher in a goroutine and waits at most
// PublishTimeout for the outcome.
func (s *ReportScheduler) publish(ctx context.Context, report core.Report) error {
	result := make(chan error, 1)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		result <- s.publisher.PublishReport(context.WithoutCancel(ctx), report, s.config.Topic)
	}()

	timer := time.NewTimer(s.config.PublishTimeout)
	defer timer.Stop()

	fields := log.NewFields().
		WithWindow(report.Window.Start, report.Window.End).
		WithOperation(log.OpPublish)
	fields[log.FieldTopic] = s.config.Topic

	select {
	case err := <-result:
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sales report", fields.WithError(err).ToSlice()...)
			return fmt.Errorf("publish report: %w", err)
		}
		fields[log.FieldTotalSales] = report.Summary.TotalSales.String()
		fields[log.FieldSKUCount] = len(report.Summary.ItemsSummary)
		s.logger.InfoContext(ctx, "Sales report published", fields.ToSlice()...)
		return nil
	case <-timer.C:
		s.logger.WarnContext(ctx, "Sales report publish still pending, not waiting",
			append(fields.ToSlice(), "timeout", s.config.PublishTimeout)...)
		return nil
	}
}
