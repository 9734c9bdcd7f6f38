// Package scenario implements the ScenarioEngine of §4.5: it drives an
// ordered, shared-variable-scope sequence of steps through an
// httpclient.Client, retrying a step whose request errors a fixed number
// of times with a flat one-second backoff (assertion failures are not
// retried), merging extracted variables forward,
// and honoring skip_on_failure continuation — ported from the original
// scenario_engine.py almost one-for-one, in Go idiom.
package scenario

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Amr-9/saylrun/internal/assertion"
	"github.com/Amr-9/saylrun/internal/fieldpath"
	"github.com/Amr-9/saylrun/internal/httpclient"
	"github.com/Amr-9/saylrun/internal/substitution"
	"github.com/Amr-9/saylrun/pkg/models"
)

// retryBackoff is the fixed delay between step retry attempts. The
// original implementation sleeps exactly one second between attempts
// regardless of attempt number — no exponential growth.
const retryBackoff = 1 * time.Second

// ProgressFunc is invoked before each step executes, 1-indexed.
type ProgressFunc func(stepName string, index, total int)

// Engine executes scenarios against one host.
type Engine struct {
	client *httpclient.Client
	host   models.HostConfig
	sub    *substitution.Processor
}

// New builds an Engine bound to a client and its host configuration.
func New(client *httpclient.Client, host models.HostConfig) *Engine {
	return &Engine{client: client, host: host, sub: substitution.New()}
}

// Execute runs every step of scenario in order, sharing and extending a
// single variable scope, and returns the aggregated ScenarioResult.
func (e *Engine) Execute(ctx context.Context, sc models.Scenario, progress ProgressFunc) models.ScenarioResult {
	start := time.Now()

	variables := make(map[string]any, len(sc.Variables))
	for k, v := range sc.Variables {
		variables[k] = v
	}

	total := len(sc.Steps)
	results := make([]models.StepResult, 0, total)
	outcome := models.OutcomeSuccess

	for idx, step := range sc.Steps {
		if progress != nil {
			progress(step.Name, idx+1, total)
		}

		stepResult := e.executeStepWithRetry(ctx, step, variables)
		results = append(results, stepResult)

		if stepResult.Outcome == models.OutcomeSuccess {
			for k, v := range stepResult.ExtractedVars {
				variables[k] = v
			}
		}

		switch stepResult.Outcome {
		case models.OutcomeFailure:
			if outcome != models.OutcomeError {
				outcome = models.OutcomeFailure
			}
			if !step.SkipOnFailure {
				goto done
			}
		case models.OutcomeError:
			outcome = models.OutcomeError
			if !step.SkipOnFailure {
				goto done
			}
		}
	}
done:

	end := time.Now()

	var success, failure, errs int
	for _, r := range results {
		switch r.Outcome {
		case models.OutcomeSuccess:
			success++
		case models.OutcomeFailure:
			failure++
		case models.OutcomeError:
			errs++
		}
	}

	return models.ScenarioResult{
		ScenarioName: sc.Name,
		Outcome:      outcome,
		StartTime:    start,
		EndTime:      end,
		Duration:     end.Sub(start),
		Steps:        results,
		Variables:    variables,
		Total:        len(results),
		Success:      success,
		Failure:      failure,
		Error:        errs,
	}
}

func (e *Engine) executeStepWithRetry(ctx context.Context, step models.Step, variables map[string]any) models.StepResult {
	attempts := step.Retry + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			return models.StepResult{
				StepName:     step.Name,
				Method:       step.Method,
				Outcome:      models.OutcomeError,
				ErrorMessage: ctx.Err().Error(),
				Timestamp:    time.Now(),
			}
		default:
		}

		result, err := e.executeStep(ctx, step, variables)
		if err == nil {
			return result
		}
		lastErr = err

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return models.StepResult{
					StepName:       step.Name,
					Method:         step.Method,
					URL:            e.buildURL(step, variables),
					Outcome:        models.OutcomeError,
					ResponseTimeMs: 0,
					RequestHeaders: step.Headers,
					RequestBody:    step.Body,
					ErrorMessage:   lastErr.Error(),
					Timestamp:      time.Now(),
				}
			case <-time.After(retryBackoff):
			}
		}
	}

	return models.StepResult{
		StepName:       step.Name,
		Method:         step.Method,
		URL:            e.buildURL(step, variables),
		Outcome:        models.OutcomeError,
		ResponseTimeMs: 0,
		RequestHeaders: step.Headers,
		RequestBody:    step.Body,
		ErrorMessage:   lastErr.Error(),
		Timestamp:      time.Now(),
	}
}

// executeStep performs one request attempt. Any transport-level failure
// is returned as an error so the retry loop can classify and retry it;
// a successful round trip always returns a StepResult, never an error,
// even when its assertions fail.
func (e *Engine) executeStep(ctx context.Context, step models.Step, variables map[string]any) (models.StepResult, error) {
	if step.DelayBefore > 0 {
		time.Sleep(step.DelayBefore)
	}

	rawURL := e.buildURL(step, variables)
	headers := e.mergedHeaders(step, variables)
	body := e.sub.ProcessValue(step.Body, variables)

	reqCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	resp, err := e.client.Do(reqCtx, httpclient.Request{
		Method:  step.Method,
		URL:     rawURL,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return models.StepResult{}, err
	}

	if step.DelayAfter > 0 {
		time.Sleep(step.DelayAfter)
	}

	tree := fieldpath.NewTree(resp.StatusCode, resp.Body)
	passed, failed, details := assertion.EvaluateAll(tree, step.Assertions)

	extracted := extractVariables(resp, step.Extract)

	outcome := models.OutcomeSuccess
	if failed > 0 {
		outcome = models.OutcomeFailure
	}

	return models.StepResult{
		StepName:         step.Name,
		Method:           step.Method,
		URL:              rawURL,
		Outcome:          outcome,
		StatusCode:       resp.StatusCode,
		ResponseTimeMs:   resp.ResponseTimeMs,
		RequestHeaders:   headers,
		RequestBody:      step.Body,
		ResponseHeaders:  resp.Headers,
		ResponseBody:     resp.Body,
		AssertionsPassed: passed,
		AssertionsFailed: failed,
		AssertionDetails: details,
		ExtractedVars:    extracted,
		Timestamp:        time.Now(),
	}, nil
}

// extractVariables resolves each extraction path against the response.
// A "header:Name" path reads a response header instead of the body, a
// supplemented form the distillation dropped but the teacher's attacker
// carried. Extraction always targets {body: ...}, never status, per the
// original's field-path contract.
func extractVariables(resp httpclient.Response, extract map[string]string) map[string]any {
	if len(extract) == 0 {
		return nil
	}
	out := make(map[string]any, len(extract))
	for name, path := range extract {
		if strings.HasPrefix(path, "header:") {
			headerName := strings.TrimPrefix(path, "header:")
			if v, ok := fieldpath.ResolveHeader(resp.Headers, headerName); ok {
				out[name] = v
			}
			continue
		}
		fullPath := path
		if !strings.HasPrefix(path, "body") {
			fullPath = "body." + path
		}
		if v, ok := fieldpath.Resolve(map[string]any{"body": resp.Body}, fullPath); ok && v != nil {
			out[name] = v
		}
	}
	return out
}

func (e *Engine) buildURL(step models.Step, variables map[string]any) string {
	base := strings.TrimRight(e.host.BaseURL, "/")
	path := e.sub.Process(step.Path, variables)
	full := base + path

	if len(step.QueryParams) == 0 {
		return full
	}
	q := url.Values{}
	for k, v := range step.QueryParams {
		q.Set(k, fmt.Sprint(e.sub.ProcessValue(v, variables)))
	}
	return full + "?" + q.Encode()
}

func (e *Engine) mergedHeaders(step models.Step, variables map[string]any) map[string]string {
	merged := make(map[string]string, len(e.host.Headers)+len(step.Headers))
	for k, v := range e.host.Headers {
		merged[k] = e.sub.Process(v, variables)
	}
	for k, v := range step.Headers {
		merged[k] = e.sub.Process(v, variables)
	}
	return merged
}
