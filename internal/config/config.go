// Package config loads scenario and host definitions from YAML files
// and validates them before a run starts, adapted from the teacher's
// pkg/config package and retargeted from its single-target Config onto
// the Scenario/HostConfig/LoadConfig shapes.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Amr-9/saylrun/internal/circuitbreaker"
	"github.com/Amr-9/saylrun/pkg/models"
)

// YAMLAssertion mirrors models.Assertion with YAML tags.
type YAMLAssertion struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value,omitempty"`
	Message  string `yaml:"message,omitempty"`
}

// YAMLStep mirrors models.Step with YAML tags and string durations.
type YAMLStep struct {
	Name          string            `yaml:"name"`
	Method        string            `yaml:"method"`
	Path          string            `yaml:"path"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	QueryParams   map[string]any    `yaml:"query_params,omitempty"`
	Body          any               `yaml:"body,omitempty"`
	Timeout       string            `yaml:"timeout,omitempty"`
	DelayBefore   string            `yaml:"delay_before,omitempty"`
	DelayAfter    string            `yaml:"delay_after,omitempty"`
	Assertions    []YAMLAssertion   `yaml:"assertions,omitempty"`
	Extract       map[string]string `yaml:"extract,omitempty"`
	SkipOnFailure bool              `yaml:"skip_on_failure,omitempty"`
	Retry         int               `yaml:"retry,omitempty"`
}

// YAMLLoad mirrors models.LoadConfig with YAML tags.
type YAMLLoad struct {
	DurationSeconds int    `yaml:"duration_seconds,omitempty"`
	TargetTPS       int    `yaml:"target_tps,omitempty"`
	RampUpSeconds   int    `yaml:"ramp_up_seconds,omitempty"`
	MaxConcurrent   int    `yaml:"max_concurrent,omitempty"`
	Distribution    string `yaml:"distribution,omitempty"`
	StopIf          string `yaml:"stop_if,omitempty"`
	MinSamples      int64  `yaml:"min_samples,omitempty"`
}

// YAMLDataSource mirrors models.DataSource.
type YAMLDataSource struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// YAMLScenario is the on-disk YAML shape for a Scenario.
type YAMLScenario struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Host        string           `yaml:"host,omitempty"`
	Variables   map[string]any   `yaml:"variables,omitempty"`
	Steps       []YAMLStep       `yaml:"steps"`
	Load        *YAMLLoad        `yaml:"load,omitempty"`
	Data        []YAMLDataSource `yaml:"data,omitempty"`
	Tags        []string         `yaml:"tags,omitempty"`
}

// YAMLHostConfig is the on-disk YAML shape for one HostConfig entry.
type YAMLHostConfig struct {
	BaseURL      string            `yaml:"base_url"`
	Timeout      string            `yaml:"timeout,omitempty"`
	Headers      map[string]string `yaml:"headers,omitempty"`
	VerifySSL    bool              `yaml:"verify_ssl,omitempty"`
	Auth         map[string]any    `yaml:"auth,omitempty"`
	H2C          bool              `yaml:"h2c,omitempty"`
	DisableHTTP2 bool              `yaml:"disable_http2,omitempty"`
}

// LoadScenarioFile reads and decodes a YAML scenario file into a
// models.Scenario, parsing durations and compiling the circuit breaker
// condition (if any) up front so load-time errors surface immediately.
func LoadScenarioFile(path string) (models.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Scenario{}, fmt.Errorf("read scenario file: %w", err)
	}

	var y YAMLScenario
	if err := yaml.Unmarshal(data, &y); err != nil {
		return models.Scenario{}, fmt.Errorf("parse scenario file: %w", err)
	}

	sc := models.Scenario{
		Name:        y.Name,
		Description: y.Description,
		Host:        y.Host,
		Variables:   y.Variables,
		Tags:        y.Tags,
	}

	for _, d := range y.Data {
		sc.Data = append(sc.Data, models.DataSource{Name: d.Name, Path: d.Path})
	}

	for i, s := range y.Steps {
		timeout, err := parseOptionalDuration(s.Timeout)
		if err != nil {
			return models.Scenario{}, fmt.Errorf("steps[%d].timeout: %w", i, err)
		}
		delayBefore, err := parseOptionalDuration(s.DelayBefore)
		if err != nil {
			return models.Scenario{}, fmt.Errorf("steps[%d].delay_before: %w", i, err)
		}
		delayAfter, err := parseOptionalDuration(s.DelayAfter)
		if err != nil {
			return models.Scenario{}, fmt.Errorf("steps[%d].delay_after: %w", i, err)
		}

		var assertions []models.Assertion
		for _, a := range s.Assertions {
			assertions = append(assertions, models.Assertion{
				Field:    a.Field,
				Operator: models.AssertionOperator(a.Operator),
				Value:    a.Value,
				Message:  a.Message,
			})
		}

		sc.Steps = append(sc.Steps, models.Step{
			Name:          s.Name,
			Method:        models.HTTPMethod(s.Method),
			Path:          s.Path,
			Headers:       s.Headers,
			QueryParams:   s.QueryParams,
			Body:          s.Body,
			Timeout:       timeout,
			DelayBefore:   delayBefore,
			DelayAfter:    delayAfter,
			Assertions:    assertions,
			Extract:       s.Extract,
			SkipOnFailure: s.SkipOnFailure,
			Retry:         s.Retry,
		})
	}

	if y.Load != nil {
		load := &models.LoadConfig{
			DurationSeconds: y.Load.DurationSeconds,
			TargetTPS:       y.Load.TargetTPS,
			RampUpSeconds:   y.Load.RampUpSeconds,
			MaxConcurrent:   y.Load.MaxConcurrent,
			Distribution:    models.Distribution(y.Load.Distribution),
		}
		if y.Load.StopIf != "" {
			load.CircuitBreaker = &models.CircuitBreakerConfig{
				StopIf:     y.Load.StopIf,
				MinSamples: y.Load.MinSamples,
			}
			if err := circuitbreaker.ParseCondition(load.CircuitBreaker); err != nil {
				return models.Scenario{}, fmt.Errorf("load.stop_if: %w", err)
			}
		}
		sc.Load = load
	}

	return sc, nil
}

// SaveScenarioFile writes sc back out as YAML, the inverse of
// LoadScenarioFile on every documented field.
func SaveScenarioFile(path string, sc models.Scenario) error {
	y := YAMLScenario{
		Name:        sc.Name,
		Description: sc.Description,
		Host:        sc.Host,
		Variables:   sc.Variables,
		Tags:        sc.Tags,
	}
	for _, d := range sc.Data {
		y.Data = append(y.Data, YAMLDataSource{Name: d.Name, Path: d.Path})
	}
	for _, s := range sc.Steps {
		var assertions []YAMLAssertion
		for _, a := range s.Assertions {
			assertions = append(assertions, YAMLAssertion{
				Field: a.Field, Operator: string(a.Operator), Value: a.Value, Message: a.Message,
			})
		}
		y.Steps = append(y.Steps, YAMLStep{
			Name:          s.Name,
			Method:        string(s.Method),
			Path:          s.Path,
			Headers:       s.Headers,
			QueryParams:   s.QueryParams,
			Body:          s.Body,
			Timeout:       durationString(s.Timeout),
			DelayBefore:   durationString(s.DelayBefore),
			DelayAfter:    durationString(s.DelayAfter),
			Assertions:    assertions,
			Extract:       s.Extract,
			SkipOnFailure: s.SkipOnFailure,
			Retry:         s.Retry,
		})
	}
	if sc.Load != nil {
		yl := &YAMLLoad{
			DurationSeconds: sc.Load.DurationSeconds,
			TargetTPS:       sc.Load.TargetTPS,
			RampUpSeconds:   sc.Load.RampUpSeconds,
			MaxConcurrent:   sc.Load.MaxConcurrent,
			Distribution:    string(sc.Load.Distribution),
		}
		if sc.Load.CircuitBreaker != nil {
			yl.StopIf = sc.Load.CircuitBreaker.StopIf
			yl.MinSamples = sc.Load.CircuitBreaker.MinSamples
		}
		y.Load = yl
	}

	data, err := yaml.Marshal(y)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadHostsFile reads a YAML file of name → HostConfig entries.
func LoadHostsFile(path string) (map[string]models.HostConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hosts file: %w", err)
	}
	var raw map[string]YAMLHostConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hosts file: %w", err)
	}

	hosts := make(map[string]models.HostConfig, len(raw))
	for name, h := range raw {
		timeout, err := parseOptionalDuration(h.Timeout)
		if err != nil {
			return nil, fmt.Errorf("hosts.%s.timeout: %w", name, err)
		}
		hosts[name] = models.HostConfig{
			BaseURL:      h.BaseURL,
			Timeout:      timeout,
			Headers:      h.Headers,
			VerifySSL:    h.VerifySSL,
			Auth:         h.Auth,
			H2C:          h.H2C,
			DisableHTTP2: h.DisableHTTP2,
		}
	}
	return hosts, nil
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func durationString(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
