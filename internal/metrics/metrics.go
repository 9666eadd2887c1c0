// Package metrics provides process-local counters for provider traffic and
// settlement outcomes.
package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds application metrics. Counters are safe for concurrent use.
type Metrics struct {
	// Provider traffic
	rpcCallsTotal   atomic.Int64
	rpcErrorsTotal  atomic.Int64
	rpcLatencyNanos atomic.Int64

	// Settlement outcomes
	attemptsTotal  atomic.Int64
	confirmedTotal atomic.Int64
	failedTotal    atomic.Int64
	gasFallbacks   atomic.Int64
	releaseSkipped atomic.Int64

	mu             sync.Mutex
	failuresByCode map[string]int64
}

// Global is the process-wide metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordRPCCall records a provider request with its duration and outcome.
func (m *Metrics) RecordRPCCall(duration time.Duration, err error) {
	m.rpcCallsTotal.Add(1)
	m.rpcLatencyNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.rpcErrorsTotal.Add(1)
	}
}

// RecordAttempt records the start of a settlement attempt.
func (m *Metrics) RecordAttempt() {
	m.attemptsTotal.Add(1)
}

// RecordConfirmed records a settlement that was mined successfully.
func (m *Metrics) RecordConfirmed() {
	m.confirmedTotal.Add(1)
}

// RecordFailure records a failed settlement attempt by error code.
func (m *Metrics) RecordFailure(code string) {
	m.failedTotal.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failuresByCode == nil {
		m.failuresByCode = make(map[string]int64)
	}
	m.failuresByCode[code]++
}

// RecordGasFallback records a gas estimate that failed and was replaced by
// the fallback limit.
func (m *Metrics) RecordGasFallback() {
	m.gasFallbacks.Add(1)
}

// RecordReleaseSkipped records a release that had nothing to claim.
func (m *Metrics) RecordReleaseSkipped() {
	m.releaseSkipped.Add(1)
}

// CodeCount is a failure count for one error code.
type CodeCount struct {
	Code  string `json:"code"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	RPCCallsTotal   int64       `json:"rpc_calls_total"`
	RPCErrorsTotal  int64       `json:"rpc_errors_total"`
	RPCLatencyAvgMs float64     `json:"rpc_latency_avg_ms"`
	AttemptsTotal   int64       `json:"attempts_total"`
	ConfirmedTotal  int64       `json:"confirmed_total"`
	FailedTotal     int64       `json:"failed_total"`
	GasFallbacks    int64       `json:"gas_fallbacks"`
	ReleaseSkipped  int64       `json:"release_skipped"`
	Failures        []CodeCount `json:"failures,omitempty"`
}

// Snapshot returns a point-in-time copy of all metrics. Failures are
// sorted by code.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		RPCCallsTotal:   m.rpcCallsTotal.Load(),
		RPCErrorsTotal:  m.rpcErrorsTotal.Load(),
		RPCLatencyAvgMs: m.RPCLatencyAvgMs(),
		AttemptsTotal:   m.attemptsTotal.Load(),
		ConfirmedTotal:  m.confirmedTotal.Load(),
		FailedTotal:     m.failedTotal.Load(),
		GasFallbacks:    m.gasFallbacks.Load(),
		ReleaseSkipped:  m.releaseSkipped.Load(),
	}

	m.mu.Lock()
	for code, n := range m.failuresByCode {
		s.Failures = append(s.Failures, CodeCount{Code: code, Count: n})
	}
	m.mu.Unlock()
	sort.Slice(s.Failures, func(i, j int) bool { return s.Failures[i].Code < s.Failures[j].Code })
	return s
}

// RPCLatencyAvgMs returns the average provider latency in milliseconds.
// Returns 0 if no calls have been made.
func (m *Metrics) RPCLatencyAvgMs() float64 {
	calls := m.rpcCallsTotal.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.rpcLatencyNanos.Load()) / float64(calls) / 1e6
}

// Reset resets all metrics to zero.
func (m *Metrics) Reset() {
	m.rpcCallsTotal.Store(0)
	m.rpcErrorsTotal.Store(0)
	m.rpcLatencyNanos.Store(0)
	m.attemptsTotal.Store(0)
	m.confirmedTotal.Store(0)
	m.failedTotal.Store(0)
	m.gasFallbacks.Store(0)
	m.releaseSkipped.Store(0)

	m.mu.Lock()
	m.failuresByCode = nil
	m.mu.Unlock()
}
