package collector

import "time"

// CPURate turns successive cumulative CPU samples into a busy percentage.
// The zero value is ready to use.
type CPURate struct {
	prevTotal uint64
	prevIdle  uint64
	primed    bool
	last      float64
}

// Update records s and returns the CPU usage since the previous sample.
// The first sample only sets the baseline and reports 0. When no ticks have
// elapsed (or the counters went backwards after a reboot) the previous usage is
// reported again.
func (r *CPURate) Update(s CPUSample) float64 {
	total, idle := s.Total(), s.Idle
	if !r.primed {
		r.prevTotal, r.prevIdle, r.primed = total, idle, true
		return r.last
	}

	dTotal := saturatingSub(total, r.prevTotal)
	dIdle := saturatingSub(idle, r.prevIdle)
	r.prevTotal, r.prevIdle = total, idle
	if dTotal == 0 {
		return r.last
	}

	usage := (1 - float64(dIdle)/float64(dTotal)) * 100
	r.last = clampPercent(usage)
	return r.last
}

// Last returns the most recently reported usage.
func (r *CPURate) Last() float64 {
	return r.last
}

// Reset drops the baseline so the next sample starts a new delta window.
// The last reported usage is kept.
func (r *CPURate) Reset() {
	r.primed = false
}

// NetRate turns successive cumulative byte counters into bytes per second.
// The zero value is ready to use.
type NetRate struct {
	prev   NetSample
	prevAt time.Time
	primed bool
}

// Update records s captured at and returns the receive and transmit rates in
// bytes per second since the previous sample. The first sample, and any sample
// not strictly later than its predecessor, yields zero rates.
func (r *NetRate) Update(s NetSample, at time.Time) (rx, tx float64) {
	prev, prevAt, primed := r.prev, r.prevAt, r.primed
	r.prev, r.prevAt, r.primed = s, at, true
	if !primed {
		return 0, 0
	}

	elapsed := at.Sub(prevAt).Seconds()
	if elapsed <= 0 {
		return 0, 0
	}
	rx = float64(saturatingSub(s.RxBytes, prev.RxBytes)) / elapsed
	tx = float64(saturatingSub(s.TxBytes, prev.TxBytes)) / elapsed
	return rx, tx
}

// Reset drops the baseline so the next sample starts a new delta window.
func (r *NetRate) Reset() {
	r.primed = false
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
