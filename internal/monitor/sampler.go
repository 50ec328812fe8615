package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cptspacemanspiff/device-monitor/internal/collector"
	"github.com/cptspacemanspiff/device-monitor/internal/remote"
)

// Defaults for Options fields left zero.
const (
	DefaultInterval     = time.Second
	DefaultQueryTimeout = 5 * time.Second
	DefaultDiskPath     = "/data"
)

// Options configures a Sampler.
type Options struct {
	Interval        time.Duration
	QueryTimeout    time.Duration
	HistoryCapacity int
	DiskPath        string
	// OnCycle, if set, receives every published snapshot from the sampler
	// goroutine. It must not block for long.
	OnCycle func(*Snapshot)
}

// Sampler polls the device and publishes a Snapshot after every cycle.
// RunCycle and Run must be called from one goroutine at a time; Store,
// SetInterval and ResetBaselines are safe from any goroutine.
type Sampler struct {
	ch    remote.Channel
	opts  Options
	store Store
	log   *slog.Logger
	now   func() time.Time

	cpuRate collector.CPURate
	netRate collector.NetRate

	cpuHist *History
	memHist *History
	rxHist  *History
	txHist  *History

	cur   Snapshot
	cycle uint64

	interval     atomic.Int64
	intervalCh   chan struct{}
	resetPending atomic.Bool
}

// NewSampler returns a sampler issuing its queries over ch.
func NewSampler(ch remote.Channel, opts Options, logger *slog.Logger) *Sampler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.HistoryCapacity <= 0 {
		opts.HistoryCapacity = DefaultHistoryCapacity
	}
	if opts.DiskPath == "" {
		opts.DiskPath = DefaultDiskPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sampler{
		ch:         ch,
		opts:       opts,
		log:        logger,
		now:        time.Now,
		cpuHist:    NewHistory(opts.HistoryCapacity),
		memHist:    NewHistory(opts.HistoryCapacity),
		rxHist:     NewHistory(opts.HistoryCapacity),
		txHist:     NewHistory(opts.HistoryCapacity),
		intervalCh: make(chan struct{}, 1),
	}
	s.cur.DiskMount = opts.DiskPath
	s.cur.Status = make(map[string]MetricStatus, len(Metrics))
	s.interval.Store(int64(opts.Interval))
	return s
}

// Store returns the snapshot store readers poll.
func (s *Sampler) Store() *Store {
	return &s.store
}

// Interval returns the current cycle interval.
func (s *Sampler) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// SetInterval changes the cycle interval. A running loop picks it up after
// the current cycle.
func (s *Sampler) SetInterval(d time.Duration) {
	if d <= 0 || d == s.Interval() {
		return
	}
	s.interval.Store(int64(d))
	select {
	case s.intervalCh <- struct{}{}:
	default:
	}
}

// ResetBaselines makes the next cycle start fresh CPU and network delta
// windows, for instance after the host was suspended.
func (s *Sampler) ResetBaselines() {
	s.resetPending.Store(true)
}

// Run samples immediately and then once per interval until ctx is cancelled.
// Cancellation is checked between cycles; a cycle in flight finishes first.
func (s *Sampler) Run(ctx context.Context) error {
	// Queries stay bounded by the query timeout only.
	cycleCtx := context.WithoutCancel(ctx)
	s.RunCycle(cycleCtx)

	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.intervalCh:
			ticker.Reset(s.Interval())
			s.log.Info("sampling interval changed", "interval", s.Interval())
		case <-ticker.C:
			if ctx.Err() != nil {
				return nil
			}
			s.RunCycle(cycleCtx)
		}
	}
}

// RunCycle issues every query once, merges the results and publishes the new
// snapshot. A failed query leaves its metric at the previous value.
func (s *Sampler) RunCycle(ctx context.Context) *Snapshot {
	queries := cycleQueries(s.opts.DiskPath)
	results := make([]queryResult, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		i, q := i, q
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.runQuery(ctx, q.args)
		}()
	}
	wg.Wait()

	if s.resetPending.Swap(false) {
		s.cpuRate.Reset()
		s.netRate.Reset()
		s.log.Info("rate baselines reset")
	}

	s.cycle++
	next := s.cur
	next.Cycle = s.cycle
	next.CapturedAt = s.now()
	next.Status = maps.Clone(s.cur.Status)

	for i, q := range queries {
		log := s.log.With("topic", q.metric)
		res := results[i]
		err := res.err
		if err == nil {
			err = s.apply(&next, q.metric, res.raw, log)
		}
		if err != nil {
			log.Warn("query failed", "cycle", s.cycle, "err", err)
			st := next.Status[q.metric]
			st.Err = err.Error()
			next.Status[q.metric] = st
			continue
		}
		next.Status[q.metric] = MetricStatus{UpdatedAt: res.raw.CapturedAt}
	}

	next.CPUHistory = s.cpuHist.Values()
	next.MemHistory = s.memHist.Values()
	next.RxHistory = s.rxHist.Values()
	next.TxHistory = s.txHist.Values()

	s.cur = next
	snap := next
	s.store.publish(&snap)
	if s.opts.OnCycle != nil {
		s.opts.OnCycle(&snap)
	}
	return &snap
}

// runQuery executes args bounded by the query timeout. A channel that ignores
// cancellation is abandoned once the deadline passes.
func (s *Sampler) runQuery(ctx context.Context, args []string) queryResult {
	qctx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
	defer cancel()

	done := make(chan queryResult, 1)
	go func() {
		out, err := remote.Run(qctx, s.ch, args...)
		done <- queryResult{raw: collector.Raw{Text: out, CapturedAt: s.now()}, err: err}
	}()

	select {
	case res := <-done:
		return res
	case <-qctx.Done():
		if errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return queryResult{err: fmt.Errorf("%s: %w", strings.Join(args, " "), remote.ErrTimeout)}
		}
		return queryResult{err: qctx.Err()}
	}
}

// apply parses raw for metric and folds it into next and the histories.
func (s *Sampler) apply(next *Snapshot, metric string, raw collector.Raw, log *slog.Logger) error {
	switch metric {
	case MetricCPU:
		sample, err := collector.ParseCPU(raw.Text)
		if err != nil {
			return err
		}
		next.CPUPercent = s.cpuRate.Update(sample)
		s.cpuHist.Push(next.CPUPercent)
		log.Debug("sample", "cpu_pct", fmt.Sprintf("%.1f", next.CPUPercent))

	case MetricMemory:
		sample, err := collector.ParseMemory(raw.Text)
		if err != nil {
			return err
		}
		next.MemPercent = sample.Percent()
		next.MemTotalKB = sample.TotalKB
		next.MemUsedKB = sample.UsedKB()
		s.memHist.Push(next.MemPercent)
		log.Debug("sample", "mem_pct", fmt.Sprintf("%.1f", next.MemPercent), "total_kb", sample.TotalKB)

	case MetricNetwork:
		sample, err := collector.ParseNetwork(raw.Text)
		if err != nil {
			return err
		}
		next.RxBytesPerSec, next.TxBytesPerSec = s.netRate.Update(sample, raw.CapturedAt)
		s.rxHist.Push(next.RxBytesPerSec)
		s.txHist.Push(next.TxBytesPerSec)
		log.Debug("sample", "rx_bps", int64(next.RxBytesPerSec), "tx_bps", int64(next.TxBytesPerSec), "interfaces", sample.Interfaces)

	case MetricDisk:
		sample, err := collector.ParseDisk(raw.Text, s.opts.DiskPath)
		if err != nil {
			return err
		}
		next.DiskPercent = sample.Percent()
		next.DiskTotalKB = sample.TotalKB
		next.DiskUsedKB = sample.UsedKB
		next.DiskMount = sample.Mount
		log.Debug("sample", "disk_pct", fmt.Sprintf("%.1f", next.DiskPercent), "mount", sample.Mount)

	case MetricProcess:
		procs, err := collector.ParseProcesses(raw.Text)
		if err != nil {
			return err
		}
		next.Processes = procs
		log.Debug("sample", "processes", len(procs))

	default:
		return fmt.Errorf("unknown metric %q", metric)
	}
	return nil
}
