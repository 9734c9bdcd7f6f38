package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/saylrun/pkg/models"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadScenarioFile_ParsesStepsAndDurations(t *testing.T) {
	path := writeFile(t, `
name: checkout
host: prod
steps:
  - name: login
    method: POST
    path: /login
    delay_before: 100ms
    assertions:
      - field: status
        operator: eq
        value: 200
    extract:
      token: body.token
`)
	sc, err := LoadScenarioFile(path)
	require.NoError(t, err)
	assert.Equal(t, "checkout", sc.Name)
	assert.Equal(t, "prod", sc.Host)
	require.Len(t, sc.Steps, 1)
	assert.Equal(t, models.MethodPOST, sc.Steps[0].Method)
	assert.Equal(t, 100*time.Millisecond, sc.Steps[0].DelayBefore)
	assert.Equal(t, "body.token", sc.Steps[0].Extract["token"])
	require.Len(t, sc.Steps[0].Assertions, 1)
	assert.Equal(t, models.OpEQ, sc.Steps[0].Assertions[0].Operator)
}

func TestLoadScenarioFile_ParsesLoadAndCircuitBreaker(t *testing.T) {
	path := writeFile(t, `
name: soak
steps:
  - name: probe
    method: GET
    path: /health
load:
  duration_seconds: 30
  target_tps: 50
  max_concurrent: 20
  distribution: linear
  stop_if: "errors > 10%"
`)
	sc, err := LoadScenarioFile(path)
	require.NoError(t, err)
	require.NotNil(t, sc.Load)
	assert.Equal(t, 30, sc.Load.DurationSeconds)
	assert.Equal(t, models.DistLinear, sc.Load.Distribution)
	require.NotNil(t, sc.Load.CircuitBreaker)
	assert.Equal(t, "errors", sc.Load.CircuitBreaker.Metric)
	assert.True(t, sc.Load.CircuitBreaker.IsPercent)
}

func TestLoadScenarioFile_InvalidStopIfErrors(t *testing.T) {
	path := writeFile(t, `
name: soak
steps:
  - name: probe
    method: GET
    path: /health
load:
  duration_seconds: 30
  target_tps: 50
  max_concurrent: 20
  stop_if: "not a condition"
`)
	_, err := LoadScenarioFile(path)
	assert.Error(t, err)
}

func TestSaveScenarioFile_RoundTripsDocumentedFields(t *testing.T) {
	sc := models.Scenario{
		Name: "checkout",
		Steps: []models.Step{
			{Name: "login", Method: models.MethodPOST, Path: "/login", DelayBefore: 250 * time.Millisecond},
		},
		Load: &models.LoadConfig{DurationSeconds: 10, TargetTPS: 5, MaxConcurrent: 5},
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, SaveScenarioFile(path, sc))

	loaded, err := LoadScenarioFile(path)
	require.NoError(t, err)
	assert.Equal(t, sc.Name, loaded.Name)
	assert.Equal(t, sc.Steps[0].Path, loaded.Steps[0].Path)
	assert.Equal(t, sc.Steps[0].DelayBefore, loaded.Steps[0].DelayBefore)
	assert.Equal(t, sc.Load.TargetTPS, loaded.Load.TargetTPS)
}

func TestLoadHostsFile_ParsesTimeoutAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
prod:
  base_url: https://api.example.com
  timeout: 5s
  verify_ssl: true
  headers:
    X-Test: "1"
staging:
  base_url: http://localhost:8080
  h2c: true
`), 0o644))

	hosts, err := LoadHostsFile(path)
	require.NoError(t, err)
	require.Contains(t, hosts, "prod")
	assert.Equal(t, 5*time.Second, hosts["prod"].Timeout)
	assert.True(t, hosts["prod"].VerifySSL)
	assert.True(t, hosts["staging"].H2C)
}

func TestValidate_CatchesMissingAndInvalidFields(t *testing.T) {
	sc := &models.Scenario{
		Steps: []models.Step{
			{Method: "GRAB", Path: "", Assertions: []models.Assertion{{Operator: "eqq"}}},
		},
	}
	err := Validate(sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "invalid HTTP method")
	assert.Contains(t, err.Error(), "invalid operator")
}

func TestValidate_AcceptsWellFormedScenario(t *testing.T) {
	sc := &models.Scenario{
		Name: "checkout",
		Steps: []models.Step{
			{Name: "probe", Method: models.MethodGET, Path: "/health"},
		},
	}
	assert.NoError(t, Validate(sc))
}

func TestFindClosestMatch_SuggestsNearMisses(t *testing.T) {
	assert.Equal(t, "GET", findClosestMatch("GETT", validHTTPMethods))
	assert.Equal(t, "", findClosestMatch("GET", validHTTPMethods))
}
