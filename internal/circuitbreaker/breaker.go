// Package circuitbreaker is an additive stop-condition on a running load
// test: a "errors > 10%"-style expression that, once enough samples have
// landed, can cancel the test early instead of running it to the
// configured duration. Dropped by the distillation but carried over
// from the teacher, reworked to evaluate loadtest's own LoadMetrics
// sampling ticks directly instead of a bag of positional counters.
package circuitbreaker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Amr-9/saylrun/pkg/models"
)

// conditionPattern matches expressions like "errors > 10%" or "error_rate > 0.1".
var conditionPattern = regexp.MustCompile(`(?i)(errors?|error_rate|failures?)\s*([><=]+)\s*([\d.]+)(%)?`)

// metric identifies which field of a LoadMetrics tick a condition reads.
type metric int

const (
	metricErrorRate metric = iota // (failure+error)/total, optionally as a percent
	metricFailures                // absolute failure+error count
)

// condition is a parsed "stop_if" expression: metric OP threshold.
type condition struct {
	kind      metric
	op        string
	threshold float64
	isPercent bool
	label     string // original metric word, for trip messages
}

// evaluate reads tick's counters for c's metric and reports the current value.
func (c condition) evaluate(tick models.LoadMetrics) float64 {
	total := float64(tick.Total)
	errs := float64(tick.Failure + tick.Error)

	switch c.kind {
	case metricFailures:
		return errs
	default: // metricErrorRate
		if total == 0 {
			return 0
		}
		if c.isPercent {
			return errs / total * 100
		}
		return errs / total
	}
}

func (c condition) trips(value float64) bool {
	switch c.op {
	case ">":
		return value > c.threshold
	case ">=":
		return value >= c.threshold
	case "<":
		return value < c.threshold
	case "<=":
		return value <= c.threshold
	default:
		return false
	}
}

func (c condition) reasonFor(value float64) string {
	if c.isPercent {
		return fmt.Sprintf("circuit breaker tripped: %s (%.1f%%) exceeded threshold (%.1f%%)", c.label, value, c.threshold)
	}
	return fmt.Sprintf("circuit breaker tripped: %s (%.3f) exceeded threshold (%.3f)", c.label, value, c.threshold)
}

// parseCondition turns a "stop_if" expression into a condition, normalizing
// the metric word into one of the two shapes evaluate understands.
func parseCondition(expr string) (condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return condition{}, fmt.Errorf("empty circuit breaker condition")
	}

	matches := conditionPattern.FindStringSubmatch(expr)
	if matches == nil {
		return condition{}, fmt.Errorf("invalid circuit breaker condition %q, expected a form like 'errors > 10%%' or 'error_rate > 0.1'", expr)
	}

	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("invalid threshold value %q: %w", matches[3], err)
	}

	label := strings.ToLower(matches[1])
	kind := metricErrorRate
	switch label {
	case "error", "errors":
		label = "errors"
	case "failure", "failures":
		label = "failures"
		kind = metricFailures
	case "error_rate":
		label = "error_rate"
	}

	return condition{
		kind:      kind,
		op:        matches[2],
		threshold: threshold,
		isPercent: matches[4] == "%",
		label:     label,
	}, nil
}

// ParseCondition parses cfg.StopIf and populates its derived fields, kept
// for callers (internal/config's validation path) that need to surface a
// malformed condition before a run starts without constructing a Breaker.
func ParseCondition(cfg *models.CircuitBreakerConfig) error {
	c, err := parseCondition(cfg.StopIf)
	if err != nil {
		return err
	}
	cfg.Metric = c.label
	cfg.Operator = c.op
	cfg.Threshold = c.threshold
	cfg.IsPercent = c.isPercent
	return nil
}

// Breaker watches successive LoadMetrics ticks from a running load test and
// trips once the configured condition is satisfied on a tick backed by
// enough samples.
type Breaker struct {
	cond       condition
	minSamples int64
	tripped    int32 // atomic: 0 = closed, 1 = open
	reason     string
	mu         sync.Mutex
}

// defaultMinSamples is the cold-start floor applied when a config omits
// min_samples: below it a handful of early failures could trip the breaker
// on noise alone.
const defaultMinSamples = 100

// NewBreaker builds a Breaker from cfg, or returns (nil, nil) for a nil
// cfg so call sites can treat "no breaker configured" as a no-op value.
func NewBreaker(cfg *models.CircuitBreakerConfig) (*Breaker, error) {
	if cfg == nil {
		return nil, nil
	}

	c, err := parseCondition(cfg.StopIf)
	if err != nil {
		return nil, err
	}
	cfg.Metric = c.label
	cfg.Operator = c.op
	cfg.Threshold = c.threshold
	cfg.IsPercent = c.isPercent

	minSamples := cfg.MinSamples
	if minSamples <= 0 {
		minSamples = defaultMinSamples
	}
	cfg.MinSamples = minSamples

	return &Breaker{cond: c, minSamples: minSamples}, nil
}

// Observe evaluates tick against the configured condition and trips the
// breaker the first time it is satisfied. It is idempotent once tripped:
// later ticks just confirm the already-open state.
func (b *Breaker) Observe(tick models.LoadMetrics) bool {
	if b == nil {
		return false
	}
	if atomic.LoadInt32(&b.tripped) == 1 {
		return true
	}
	if tick.Total < b.minSamples {
		return false
	}

	value := b.cond.evaluate(tick)
	if !b.cond.trips(value) {
		return false
	}

	b.mu.Lock()
	if atomic.CompareAndSwapInt32(&b.tripped, 0, 1) {
		b.reason = b.cond.reasonFor(value)
	}
	b.mu.Unlock()
	return true
}

// Check is Observe expressed over loadtest's raw scenario counters, for
// callers that have not assembled a full LoadMetrics tick.
func (b *Breaker) Check(totalRequests, failures, assertionFailures int64) bool {
	if b == nil {
		return false
	}
	return b.Observe(models.LoadMetrics{
		Total:   totalRequests,
		Failure: failures,
		Error:   assertionFailures,
	})
}

// IsTripped returns whether the breaker has tripped.
func (b *Breaker) IsTripped() bool {
	if b == nil {
		return false
	}
	return atomic.LoadInt32(&b.tripped) == 1
}

// Reason returns the reason the breaker tripped, or "" if it has not.
func (b *Breaker) Reason() string {
	if b == nil {
		return ""
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reason
}

// Reset clears a tripped breaker back to closed, for reuse across runs.
func (b *Breaker) Reset() {
	if b == nil {
		return
	}
	atomic.StoreInt32(&b.tripped, 0)
	b.mu.Lock()
	b.reason = ""
	b.mu.Unlock()
}
