package config

import (
	"fmt"
	"strings"

	"github.com/Amr-9/saylrun/pkg/models"
)

// ValidationError is a single validation failure with enough context
// to let a user fix it without re-reading the schema.
type ValidationError struct {
	Field      string
	Value      string
	Message    string
	Expected   string
	Hint       string
	DidYouMean string
}

// ValidationResult accumulates every ValidationError found during a
// pass over a scenario, rather than failing on the first one.
type ValidationResult struct {
	Errors []ValidationError
}

func (v *ValidationResult) add(err ValidationError) {
	v.Errors = append(v.Errors, err)
}

// HasErrors reports whether any validation error was recorded.
func (v *ValidationResult) HasErrors() bool {
	return len(v.Errors) > 0
}

// FormatErrors renders every recorded error as a human-readable report.
func (v *ValidationResult) FormatErrors() string {
	if !v.HasErrors() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\nscenario validation errors:\n")
	for i, err := range v.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %s\n", i+1, err.Field))
		if err.Value != "" {
			sb.WriteString(fmt.Sprintf("     value: %q\n", truncate(err.Value, 50)))
		}
		sb.WriteString(fmt.Sprintf("     error: %s\n", err.Message))
		if err.Expected != "" {
			sb.WriteString(fmt.Sprintf("     expected: %s\n", err.Expected))
		}
		if err.DidYouMean != "" {
			sb.WriteString(fmt.Sprintf("     did you mean: %q?\n", err.DidYouMean))
		}
		if err.Hint != "" {
			sb.WriteString(fmt.Sprintf("     hint: %s\n", err.Hint))
		}
	}
	return sb.String()
}

var validHTTPMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}
var validOperators = []string{
	"eq", "ne", "gt", "lt", "gte", "lte", "contains", "not_contains", "in", "not_in", "regex", "exists",
}
var validDistributions = []string{"constant", "linear", "exponential"}

var fieldHints = map[string]string{
	"name":                          "Give the scenario a short, unique name",
	"steps":                         "A scenario needs at least one step",
	"steps[].method":                "HTTP method: GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
	"steps[].path":                  "Path is appended to the host's base_url (e.g. /v1/users)",
	"steps[].assertions[].operator": "One of: eq, ne, gt, lt, gte, lte, contains, not_contains, in, not_in, regex, exists",
	"load.duration_seconds":         "Positive number of seconds the load test should run",
	"load.target_tps":               "Positive target transactions per second",
	"load.max_concurrent":           "Positive cap on in-flight virtual requests",
	"load.distribution":             "One of: constant, linear, exponential",
}

func getHint(field string) string {
	return fieldHints[field]
}

// Validate checks a Scenario against the documented schema, collecting
// every problem rather than stopping at the first.
func Validate(sc *models.Scenario) error {
	result := &ValidationResult{}

	if sc.Name == "" {
		result.add(ValidationError{Field: "name", Message: "missing required field", Hint: getHint("name")})
	}

	if len(sc.Steps) == 0 {
		result.add(ValidationError{Field: "steps", Message: "scenario has no steps", Hint: getHint("steps")})
	}

	for i, step := range sc.Steps {
		if step.Path == "" {
			result.add(ValidationError{
				Field: fmt.Sprintf("steps[%d].path", i), Message: "missing required path", Hint: getHint("steps[].path"),
			})
		}
		if step.Method == "" {
			result.add(ValidationError{
				Field: fmt.Sprintf("steps[%d].method", i), Message: "missing required HTTP method", Hint: getHint("steps[].method"),
			})
		} else if !contains(validHTTPMethods, string(step.Method)) {
			err := ValidationError{
				Field: fmt.Sprintf("steps[%d].method", i), Value: string(step.Method),
				Message: "invalid HTTP method", Expected: strings.Join(validHTTPMethods, ", "),
			}
			err.DidYouMean = findClosestMatch(string(step.Method), validHTTPMethods)
			result.add(err)
		}

		for j, a := range step.Assertions {
			if a.Field == "" {
				result.add(ValidationError{
					Field: fmt.Sprintf("steps[%d].assertions[%d].field", i, j), Message: "missing required field path",
				})
			}
			if !contains(validOperators, string(a.Operator)) {
				err := ValidationError{
					Field: fmt.Sprintf("steps[%d].assertions[%d].operator", i, j), Value: string(a.Operator),
					Message: "invalid operator", Expected: strings.Join(validOperators, ", "),
					Hint: getHint("steps[].assertions[].operator"),
				}
				err.DidYouMean = findClosestMatch(string(a.Operator), validOperators)
				result.add(err)
			}
		}

		if step.Retry < 0 {
			result.add(ValidationError{
				Field: fmt.Sprintf("steps[%d].retry", i), Value: fmt.Sprintf("%d", step.Retry),
				Message: "retry cannot be negative",
			})
		}
	}

	if sc.Load != nil {
		if sc.Load.DurationSeconds <= 0 {
			result.add(ValidationError{Field: "load.duration_seconds", Message: "must be greater than 0", Hint: getHint("load.duration_seconds")})
		}
		if sc.Load.TargetTPS <= 0 {
			result.add(ValidationError{Field: "load.target_tps", Message: "must be greater than 0", Hint: getHint("load.target_tps")})
		}
		if sc.Load.MaxConcurrent <= 0 {
			result.add(ValidationError{Field: "load.max_concurrent", Message: "must be greater than 0", Hint: getHint("load.max_concurrent")})
		}
		if sc.Load.Distribution != "" && !contains(validDistributions, string(sc.Load.Distribution)) {
			err := ValidationError{
				Field: "load.distribution", Value: string(sc.Load.Distribution),
				Message: "invalid distribution", Expected: strings.Join(validDistributions, ", "),
				Hint: getHint("load.distribution"),
			}
			err.DidYouMean = findClosestMatch(string(sc.Load.Distribution), validDistributions)
			result.add(err)
		}
	}

	if result.HasErrors() {
		return fmt.Errorf("%s", result.FormatErrors())
	}
	return nil
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return true
		}
	}
	return false
}

func findClosestMatch(input string, options []string) string {
	if input == "" {
		return ""
	}
	best := ""
	bestDistance := 100
	for _, option := range options {
		d := levenshteinDistance(input, option)
		if d < bestDistance && d <= len(option)/2+1 {
			bestDistance = d
			best = option
		}
	}
	if strings.EqualFold(input, best) {
		return ""
	}
	return best
}

func levenshteinDistance(a, b string) int {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			matrix[i][j] = minOf3(matrix[i-1][j]+1, matrix[i][j-1]+1, matrix[i-1][j-1]+cost)
		}
	}
	return matrix[len(a)][len(b)]
}

func minOf3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
