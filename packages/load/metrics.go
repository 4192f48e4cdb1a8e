package load

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	qhttp "github.com/abdul-hamid-achik/qakit/packages/http"
)

// Latencies are recorded in microseconds between 1us and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics collects call results. It is safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	total    atomic.Int64
	success  atomic.Int64
	errors   atomic.Int64
	timeouts atomic.Int64

	histogram *hdrhistogram.Histogram
	statuses  map[int]int64

	startTime time.Time
	endTime   time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		statuses:  make(map[int]int64),
	}
}

// Start marks the beginning of the run
func (m *Metrics) Start() {
	m.startTime = time.Now()
}

// Stop marks the end of the run
func (m *Metrics) Stop() {
	m.endTime = time.Now()
}

// Record records one call. A call is successful when the transport
// succeeded and the status is below 400. Every call's latency is recorded,
// timed-out ones included, so latency thresholds see them.
func (m *Metrics) Record(resp *qhttp.Response, duration time.Duration, err error) {
	m.total.Add(1)

	if err != nil {
		m.errors.Add(1)
		if qhttp.IsTimeout(err) {
			m.timeouts.Add(1)
		}
	} else if !resp.IsClientError() && !resp.IsServerError() {
		m.success.Add(1)
	} else {
		m.errors.Add(1)
	}

	latencyUs := duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	if resp != nil {
		m.statuses[resp.StatusCode]++
	}
	m.mu.Unlock()
}

// Summary is the final result of a run.
type Summary struct {
	Duration     time.Duration
	Total        int64
	SuccessCount int64
	ErrorCount   int64
	TimeoutCount int64

	RPS       float64
	ErrorRate float64

	// Statuses counts responses by status code.
	Statuses map[int]int64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration
}

// StatusCodes returns the observed status codes in ascending order.
func (s *Summary) StatusCodes() []int {
	codes := make([]int, 0, len(s.Statuses))
	for code := range s.Statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

func (m *Metrics) Summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	total := m.total.Load()
	errors := m.errors.Load()

	rps := float64(0)
	if duration.Seconds() > 0 {
		rps = float64(total) / duration.Seconds()
	}
	errorRate := float64(0)
	if total > 0 {
		errorRate = float64(errors) / float64(total)
	}

	statuses := make(map[int]int64, len(m.statuses))
	for code, n := range m.statuses {
		statuses[code] = n
	}

	return &Summary{
		Duration:     duration,
		Total:        total,
		SuccessCount: m.success.Load(),
		ErrorCount:   errors,
		TimeoutCount: m.timeouts.Load(),
		RPS:          rps,
		ErrorRate:    errorRate,
		Statuses:     statuses,
		P50:          usec(m.histogram.ValueAtQuantile(50)),
		P95:          usec(m.histogram.ValueAtQuantile(95)),
		P99:          usec(m.histogram.ValueAtQuantile(99)),
		Min:          usec(m.histogram.Min()),
		Max:          usec(m.histogram.Max()),
		Mean:         usec(int64(m.histogram.Mean())),
		StdDev:       usec(int64(m.histogram.StdDev())),
	}
}

func usec(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}
