// Package report assembles the normative Report wrapper around a
// scenario or load-test result, renders it to the terminal, and (for
// load tests) to a standalone HTML dashboard, grounded on the teacher's
// internal/report package: a lipgloss-styled console summary plus a
// Chart.js-based HTML template.
package report

import (
	"fmt"
	"time"

	"github.com/Amr-9/saylrun/pkg/models"
)

const timestampLayout = "20060102_150405"

// ScenarioReportID formats a scenario report_id: scenario_<name>_<ts>.
func ScenarioReportID(scenarioName string, at time.Time) string {
	return fmt.Sprintf("scenario_%s_%s", scenarioName, at.Format(timestampLayout))
}

// LoadReportID formats a load-test report_id: loadtest_<name>_<ts>.
func LoadReportID(testName string, at time.Time) string {
	return fmt.Sprintf("loadtest_%s_%s", testName, at.Format(timestampLayout))
}

// BuildScenarioReport wraps a single scenario result into the normative
// Report envelope.
func BuildScenarioReport(projectName string, result models.ScenarioResult) models.Report {
	now := time.Now()
	return models.Report{
		ReportID:        ScenarioReportID(result.ScenarioName, now),
		TestType:        "scenario",
		ProjectName:     projectName,
		CreatedAt:       now,
		ScenarioResults: []models.ScenarioResult{result},
		Summary: map[string]any{
			"outcome": result.Outcome,
			"total":   result.Total,
			"success": result.Success,
			"failure": result.Failure,
			"error":   result.Error,
		},
	}
}

// BuildLoadReport wraps a load-test result into the normative Report
// envelope.
func BuildLoadReport(projectName string, result models.LoadResult) models.Report {
	now := time.Now()
	return models.Report{
		ReportID:       LoadReportID(result.TestName, now),
		TestType:       "load_test",
		ProjectName:    projectName,
		CreatedAt:      now,
		LoadTestResult: &result,
		Summary: map[string]any{
			"total_requests": result.Total,
			"success_rate":   result.SuccessRate,
			"actual_avg_tps": result.ActualAvgTPS,
			"stopped_early":  result.StoppedEarly,
		},
	}
}
