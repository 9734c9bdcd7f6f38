package loadtest

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/Amr-9/saylrun/pkg/models"
)

// monitor aggregates the outcome of every virtual request into atomic
// counters and an HDR histogram of step response times, the same
// instrument the teacher's stats.Monitor uses, retargeted to record
// whole-scenario outcomes rather than single attacker results.
type monitor struct {
	total, success, failure, errorCount int64

	statusCodes sync.Map // map[string]int
	errors      sync.Map // map[string]int

	mu            sync.Mutex
	histogram     *hdrhistogram.Histogram // microseconds, 1us-30s, 3 sig figs
	responseTimes []float64               // every step's response time in ms, for LoadResult.ResponseTimesMs
}

func newMonitor() *monitor {
	return &monitor{histogram: hdrhistogram.New(1, 30_000_000, 3)}
}

func (m *monitor) recordScenario(result models.ScenarioResult) {
	atomic.AddInt64(&m.total, 1)
	switch result.Outcome {
	case models.OutcomeSuccess:
		atomic.AddInt64(&m.success, 1)
	case models.OutcomeFailure:
		atomic.AddInt64(&m.failure, 1)
	default:
		atomic.AddInt64(&m.errorCount, 1)
	}

	for _, step := range result.Steps {
		if step.ResponseTimeMs > 0 {
			m.mu.Lock()
			_ = m.histogram.RecordValue(int64(step.ResponseTimeMs * 1000))
			m.responseTimes = append(m.responseTimes, step.ResponseTimeMs)
			m.mu.Unlock()
		}
		if step.StatusCode != 0 {
			key := strconv.Itoa(step.StatusCode)
			c, _ := m.statusCodes.LoadOrStore(key, 0)
			m.statusCodes.Store(key, c.(int)+1)
		}
		if step.ErrorMessage != "" {
			c, _ := m.errors.LoadOrStore(step.ErrorMessage, 0)
			m.errors.Store(step.ErrorMessage, c.(int)+1)
		}
	}
}

func (m *monitor) counts() (total, success, failure, errorCount int64) {
	return atomic.LoadInt64(&m.total),
		atomic.LoadInt64(&m.success),
		atomic.LoadInt64(&m.failure),
		atomic.LoadInt64(&m.errorCount)
}

// snapshot computes a LoadMetrics tick. Percentiles come from the
// shared histogram, which guarantees p50 <= p95 <= p99 by construction.
func (m *monitor) snapshot(elapsed time.Duration, active int64) models.LoadMetrics {
	total, success, failure, errorCount := m.counts()

	elapsedSeconds := elapsed.Seconds()
	currentTPS := 0.0
	if elapsedSeconds > 0 {
		currentTPS = float64(total) / elapsedSeconds
	}

	m.mu.Lock()
	h := m.histogram
	avg := h.Mean()
	min := float64(h.Min())
	max := float64(h.Max())
	p50 := float64(h.ValueAtQuantile(50))
	p95 := float64(h.ValueAtQuantile(95))
	p99 := float64(h.ValueAtQuantile(99))
	m.mu.Unlock()

	return models.LoadMetrics{
		Timestamp:      time.Now(),
		ElapsedSeconds: elapsedSeconds,
		Total:          total,
		Success:        success,
		Failure:        failure,
		Error:          errorCount,
		CurrentTPS:     currentTPS,
		AvgMs:          avg / 1000.0,
		MinMs:          min / 1000.0,
		MaxMs:          max / 1000.0,
		P50Ms:          p50 / 1000.0,
		P95Ms:          p95 / 1000.0,
		P99Ms:          p99 / 1000.0,
		ActiveInFlight: active,
	}
}

// responseTimesMs returns every recorded step response time in ms, in
// recording order, for LoadResult's raw-array accessor.
func (m *monitor) responseTimesMs() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64{}, m.responseTimes...)
}

func (m *monitor) statusCodeMap() map[string]int {
	out := make(map[string]int)
	m.statusCodes.Range(func(key, value any) bool {
		out[key.(string)] = value.(int)
		return true
	})
	return out
}

func (m *monitor) errorMap() map[string]int {
	out := make(map[string]int)
	m.errors.Range(func(key, value any) bool {
		out[key.(string)] = value.(int)
		return true
	})
	return out
}
