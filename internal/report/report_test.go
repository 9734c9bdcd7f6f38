package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amr-9/saylrun/pkg/models"
)

func TestScenarioReportID_Format(t *testing.T) {
	at := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "scenario_checkout_20260730_120000", ScenarioReportID("checkout", at))
}

func TestLoadReportID_Format(t *testing.T) {
	at := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "loadtest_checkout_20260730_120000", LoadReportID("checkout", at))
}

func TestBuildScenarioReport_WrapsResult(t *testing.T) {
	result := models.ScenarioResult{ScenarioName: "checkout", Outcome: models.OutcomeSuccess, Total: 2, Success: 2}
	r := BuildScenarioReport("demo", result)
	assert.Equal(t, "scenario", r.TestType)
	require.Len(t, r.ScenarioResults, 1)
	assert.Equal(t, "checkout", r.ScenarioResults[0].ScenarioName)
	assert.Equal(t, 2, r.Summary["total"])
}

func TestBuildLoadReport_WrapsResult(t *testing.T) {
	result := models.LoadResult{TestName: "soak", Total: 100, SuccessRate: 99.5}
	r := BuildLoadReport("demo", result)
	assert.Equal(t, "load_test", r.TestType)
	require.NotNil(t, r.LoadTestResult)
	assert.Equal(t, "soak", r.LoadTestResult.TestName)
	assert.InDelta(t, 99.5, r.Summary["success_rate"], 0.001)
}

func TestRenderConsole_ScenarioReport(t *testing.T) {
	result := models.ScenarioResult{
		ScenarioName: "checkout",
		Outcome:      models.OutcomeFailure,
		Total:        2,
		Success:      1,
		Failure:      1,
		Duration:     500 * time.Millisecond,
		Steps: []models.StepResult{
			{StepName: "login", Method: models.MethodPOST, Outcome: models.OutcomeSuccess, StatusCode: 200, ResponseTimeMs: 12.5},
			{
				StepName:   "charge",
				Method:     models.MethodPOST,
				Outcome:    models.OutcomeFailure,
				StatusCode: 402,
				AssertionDetails: []models.AssertionDetail{
					{Field: "body.status", Operator: models.OpEQ, Passed: false, Message: "expected ok got declined"},
				},
			},
		},
	}
	r := BuildScenarioReport("demo", result)
	out := RenderConsole(r)
	assert.Contains(t, out, "checkout")
	assert.Contains(t, out, "login")
	assert.Contains(t, out, "charge")
	assert.Contains(t, out, "assertion failed")
}

func TestRenderConsole_LoadReport(t *testing.T) {
	result := models.LoadResult{
		TestName:     "soak",
		Total:        100,
		Success:      95,
		Failure:      5,
		SuccessRate:  95,
		TargetTPS:    20,
		ActualAvgTPS: 19.8,
		Duration:     10 * time.Second,
		StatusCodes:  map[string]int{"200": 95, "500": 5},
		Errors:       map[string]int{"connection reset": 5},
		Timeline: []models.LoadMetrics{
			{ElapsedSeconds: 1, Total: 20, P50Ms: 10, P95Ms: 20, P99Ms: 30, MinMs: 5, MaxMs: 35, AvgMs: 12},
			{ElapsedSeconds: 2, Total: 40, P50Ms: 11, P95Ms: 22, P99Ms: 33, MinMs: 5, MaxMs: 40, AvgMs: 13},
		},
	}
	r := BuildLoadReport("demo", result)
	out := RenderConsole(r)
	assert.Contains(t, out, "soak")
	assert.Contains(t, out, "200")
	assert.Contains(t, out, "connection reset")
}

func TestRenderConsole_UnknownTestTypeProducesHeaderOnly(t *testing.T) {
	r := models.Report{ReportID: "x", TestType: "unknown"}
	out := RenderConsole(r)
	assert.Contains(t, out, "x")
}

func TestGenerateHTML_WritesFileWithChartData(t *testing.T) {
	result := models.LoadResult{
		TestName:    "soak",
		Total:       10,
		Success:     10,
		SuccessRate: 100,
		StatusCodes: map[string]int{"200": 10},
		Timeline: []models.LoadMetrics{
			{ElapsedSeconds: 1, CurrentTPS: 10, P50Ms: 5, P95Ms: 8, P99Ms: 9, MinMs: 1, MaxMs: 10, Success: 10},
		},
	}
	r := BuildLoadReport("demo", result)

	dir := t.TempDir()
	path := filepath.Join(dir, "report.html")
	err := GenerateHTML(r, path, time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	html := string(contents)
	assert.Contains(t, html, "soak")
	assert.Contains(t, html, "chart.js")
	assert.Contains(t, html, "'200'")
}

func TestGenerateHTML_RejectsScenarioReport(t *testing.T) {
	r := BuildScenarioReport("demo", models.ScenarioResult{ScenarioName: "checkout"})
	err := GenerateHTML(r, filepath.Join(t.TempDir(), "out.html"), time.Now())
	assert.Error(t, err)
}
