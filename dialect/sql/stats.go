package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/vellum/dialect"
)

// QueryStats holds query execution counters. All fields are safe for
// concurrent use.
type QueryStats struct {
	queries     atomic.Int64
	execs       atomic.Int64
	nanos       atomic.Int64
	slow        atomic.Int64
	errors      atomic.Int64
	maxDuration atomic.Int64
}

// Snapshot returns a point-in-time copy of the counters.
func (s *QueryStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Queries:     s.queries.Load(),
		Execs:       s.execs.Load(),
		Duration:    time.Duration(s.nanos.Load()),
		MaxDuration: time.Duration(s.maxDuration.Load()),
		Slow:        s.slow.Load(),
		Errors:      s.errors.Load(),
	}
}

// Reset resets all counters to zero.
func (s *QueryStats) Reset() {
	s.queries.Store(0)
	s.execs.Store(0)
	s.nanos.Store(0)
	s.maxDuration.Store(0)
	s.slow.Store(0)
	s.errors.Store(0)
}

func (s *QueryStats) observe(d time.Duration) {
	s.nanos.Add(int64(d))
	for {
		cur := s.maxDuration.Load()
		if int64(d) <= cur || s.maxDuration.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

// StatsSnapshot is a point-in-time snapshot of QueryStats.
type StatsSnapshot struct {
	Queries     int64
	Execs       int64
	Duration    time.Duration
	MaxDuration time.Duration
	Slow        int64
	Errors      int64
}

// Avg returns the average statement duration.
func (s StatsSnapshot) Avg() time.Duration {
	total := s.Queries + s.Execs
	if total == 0 {
		return 0
	}
	return s.Duration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s max=%s slow=%d errors=%d",
		s.Queries, s.Execs, s.Duration, s.Avg(), s.MaxDuration, s.Slow, s.Errors,
	)
}

// SlowQueryHook is called when a statement exceeds the slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver wraps a dialect.Driver and records statistics for every
// statement, including those run inside transactions it starts.
type StatsDriver struct {
	dialect.Driver
	stats *QueryStats

	mu        sync.RWMutex
	threshold time.Duration
	hooks     []SlowQueryHook
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowQueryHook adds a callback invoked for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithSlowQueryLog logs slow statements to the given logger, or to the
// default logger when l is nil.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		logger := l
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", len(args))
	})
}

// NewStatsDriver wraps drv with statistics collection.
//
//	drv, _ := sql.Open(dialect.Postgres, "pgx", dsn)
//	stats := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
//	catalog := sqlcatalog.NewManager(provider, stats)
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stats:     &QueryStats{},
		threshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.threshold
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

// Query executes a query and records statistics.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, args, time.Since(start), err, &d.stats.queries)
	return err
}

// Exec executes a statement and records statistics.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, query, args, time.Since(start), err, &d.stats.execs)
	return err
}

// Tx starts a transaction that also records statistics.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, driver: d}, nil
}

func (d *StatsDriver) record(ctx context.Context, query string, args any, elapsed time.Duration, err error, counter *atomic.Int64) {
	counter.Add(1)
	d.stats.observe(elapsed)
	if err != nil {
		d.stats.errors.Add(1)
	}
	d.mu.RLock()
	threshold, hooks := d.threshold, d.hooks
	d.mu.RUnlock()
	if elapsed <= threshold {
		return
	}
	d.stats.slow.Add(1)
	argv, _ := args.([]any)
	for _, hook := range hooks {
		hook(ctx, query, argv, elapsed)
	}
}

// statsTx wraps a transaction with statistics collection.
type statsTx struct {
	dialect.Tx
	driver *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, args, time.Since(start), err, &tx.driver.stats.queries)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, query, args, time.Since(start), err, &tx.driver.stats.execs)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
)
