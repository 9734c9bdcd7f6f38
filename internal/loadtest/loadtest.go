// Package loadtest implements the LoadEngine of §4.6: it repeatedly
// executes a scenario through a ScenarioEngine at a target transactions
// per second, following constant/linear/exponential ramp-up curves,
// dropping ticks rather than queueing them once a hard concurrency cap
// is hit, sampling aggregate metrics once a second, and draining
// in-flight work for up to 30s (polled every 100ms) once the run's
// duration elapses or a circuit breaker trips it early.
package loadtest

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Amr-9/saylrun/internal/circuitbreaker"
	"github.com/Amr-9/saylrun/internal/feeder"
	"github.com/Amr-9/saylrun/internal/scenario"
	"github.com/Amr-9/saylrun/pkg/models"
)

const (
	drainTimeout     = 30 * time.Second
	drainPollEvery   = 100 * time.Millisecond
	sampleInterval   = 1 * time.Second
	minEffectiveRate = 0.1 // prevents the limiter from stalling at elapsed=0 during ramp-up
)

// SampleFunc is invoked once per second with the latest metrics tick.
type SampleFunc func(models.LoadMetrics)

// Run drives sc repeatedly through eng according to cfg until its
// duration elapses, the parent context is cancelled, or an attached
// circuit breaker trips, then drains in-flight work and returns the
// assembled LoadResult.
func Run(ctx context.Context, eng *scenario.Engine, feeders map[string]feeder.Feeder, sc models.Scenario, cfg models.LoadConfig, sample SampleFunc) (models.LoadResult, error) {
	breaker, err := circuitbreaker.NewBreaker(cfg.CircuitBreaker)
	if err != nil {
		return models.LoadResult{}, err
	}

	m := newMonitor()
	start := time.Now()

	runCtx, cancelGenerator := context.WithCancel(ctx)
	defer cancelGenerator()

	var active int64
	var wg sync.WaitGroup

	var stopMu sync.Mutex
	var stoppedEarly bool
	var stopReason string

	var timelineMu sync.Mutex
	timeline := make([]models.LoadMetrics, 0)

	go generate(runCtx, ctx, eng, feeders, sc, cfg, m, &active, &wg)

	stopSampler := make(chan struct{})
	samplerDone := make(chan struct{})
	go func() {
		defer close(samplerDone)
		ticker := time.NewTicker(sampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopSampler:
				return
			case <-ticker.C:
				tick := m.snapshot(time.Since(start), atomic.LoadInt64(&active))
				timelineMu.Lock()
				timeline = append(timeline, tick)
				timelineMu.Unlock()
				if sample != nil {
					sample(tick)
				}
				if breaker != nil && breaker.Observe(tick) {
					stopMu.Lock()
					stoppedEarly = true
					stopReason = breaker.Reason()
					stopMu.Unlock()
					cancelGenerator()
				}
			}
		}
	}()

	select {
	case <-time.After(time.Duration(cfg.DurationSeconds) * time.Second):
	case <-ctx.Done():
	case <-runCtx.Done():
	}
	cancelGenerator()

	deadline := time.Now().Add(drainTimeout)
	for atomic.LoadInt64(&active) > 0 && time.Now().Before(deadline) {
		time.Sleep(drainPollEvery)
	}

	close(stopSampler)
	<-samplerDone
	wg.Wait()

	end := time.Now()
	duration := end.Sub(start)

	total, success, failure, errorCount := m.counts()
	actualAvgTPS := 0.0
	successRate := 0.0
	if duration.Seconds() > 0 {
		actualAvgTPS = float64(total) / duration.Seconds()
	}
	if total > 0 {
		successRate = float64(success) / float64(total) * 100
	}

	stopMu.Lock()
	early, reason := stoppedEarly, stopReason
	stopMu.Unlock()

	timelineMu.Lock()
	finalTimeline := append([]models.LoadMetrics{}, timeline...)
	timelineMu.Unlock()

	return models.LoadResult{
		TestName:        sc.Name,
		StartTime:       start,
		EndTime:         end,
		Duration:        duration,
		TargetTPS:       cfg.TargetTPS,
		ActualAvgTPS:    actualAvgTPS,
		Total:           total,
		Success:         success,
		Failure:         failure,
		Error:           errorCount,
		SuccessRate:     successRate,
		ResponseTimesMs: m.responseTimesMs(),
		StatusCodes:     m.statusCodeMap(),
		Errors:          m.errorMap(),
		Timeline:        finalTimeline,
		StoppedEarly:    early,
		StopReason:      reason,
	}, nil
}

// generate paces virtual requests at the ramp-adjusted target rate,
// dropping a tick rather than queueing it whenever max_concurrent
// in-flight scenarios are already running. Workers run on workerCtx, not
// ctx, so stopping the generator leaves in-flight scenarios to drain.
func generate(ctx, workerCtx context.Context, eng *scenario.Engine, feeders map[string]feeder.Feeder, sc models.Scenario, cfg models.LoadConfig, m *monitor, active *int64, wg *sync.WaitGroup) {
	start := time.Now()
	limiter := rate.NewLimiter(rate.Limit(math.Max(float64(cfg.TargetTPS), minEffectiveRate)), 1)

	for {
		elapsed := time.Since(start).Seconds()
		limiter.SetLimit(rate.Limit(math.Max(currentTPS(cfg, elapsed), minEffectiveRate)))

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		if atomic.LoadInt64(active) >= int64(cfg.MaxConcurrent) {
			continue // drop this tick — no queueing
		}

		atomic.AddInt64(active, 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer atomic.AddInt64(active, -1)
			executeOnce(workerCtx, eng, feeders, sc, m)
		}()
	}
}

// currentTPS applies the configured ramp-up distribution. Outside the
// ramp window (or with no ramp configured) the target rate is constant.
func currentTPS(cfg models.LoadConfig, elapsedSeconds float64) float64 {
	target := float64(cfg.TargetTPS)
	rampUp := float64(cfg.RampUpSeconds)
	if rampUp <= 0 || elapsedSeconds >= rampUp {
		return target
	}

	progress := elapsedSeconds / rampUp
	switch cfg.Distribution {
	case models.DistLinear:
		return target * progress
	case models.DistExponential:
		return target * progress * progress
	default:
		return target
	}
}

func executeOnce(ctx context.Context, eng *scenario.Engine, feeders map[string]feeder.Feeder, sc models.Scenario, m *monitor) {
	run := sc
	if len(feeders) > 0 {
		run.Variables = make(map[string]any, len(sc.Variables))
		for k, v := range sc.Variables {
			run.Variables[k] = v
		}
		for name, f := range feeders {
			for k, v := range f.Next() {
				run.Variables[name+"."+k] = v
			}
		}
	}

	result := eng.Execute(ctx, run, nil)
	m.recordScenario(result)
}
