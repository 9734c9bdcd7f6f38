package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Amr-9/saylrun/pkg/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")).Bold(true).MarginBottom(1)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF88")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true)
)

func stat(label, value string) string {
	return fmt.Sprintf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label+":")), valueStyle.Render(value))
}

func fmtMs(ms float64) string {
	d := time.Duration(ms * float64(time.Millisecond))
	if d < time.Millisecond {
		return fmt.Sprintf("%.0fus", ms*1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", ms)
	}
	return fmt.Sprintf("%.2fs", ms/1000)
}

// RenderConsole prints a Report summary in the teacher's box-and-bars
// style: scenario results get a pass/fail roll call, load-test results
// get the traffic/latency/status-code breakdown.
func RenderConsole(r models.Report) string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(fmt.Sprintf("saylrun report — %s", r.ReportID)))
	s.WriteString("\n")

	switch r.TestType {
	case "scenario":
		for _, sr := range r.ScenarioResults {
			renderScenarioResult(&s, sr)
		}
	case "load_test":
		if r.LoadTestResult != nil {
			renderLoadResult(&s, *r.LoadTestResult)
		}
	}
	return s.String()
}

func renderScenarioResult(s *strings.Builder, sr models.ScenarioResult) {
	s.WriteString(sectionStyle.Render(fmt.Sprintf("scenario: %s", sr.ScenarioName)))
	s.WriteString("\n")
	s.WriteString(stat("Outcome", outcomeLabel(sr.Outcome)))
	s.WriteString(stat("Duration", sr.Duration.String()))
	s.WriteString(stat("Steps", fmt.Sprintf("%d total, %d ok, %d failed, %d error", sr.Total, sr.Success, sr.Failure, sr.Error)))
	s.WriteString("\n")

	for i, step := range sr.Steps {
		mark := okStyle.Render("✓")
		switch step.Outcome {
		case models.OutcomeFailure:
			mark = warnStyle.Render("✗")
		case models.OutcomeError:
			mark = errStyle.Render("!")
		}
		s.WriteString(fmt.Sprintf("  %s %d. %-24s %-6s %3d  %8s\n",
			mark, i+1, step.StepName, step.Method, step.StatusCode, fmtMs(step.ResponseTimeMs)))
		if step.ErrorMessage != "" {
			s.WriteString(fmt.Sprintf("       %s\n", errStyle.Render(step.ErrorMessage)))
		}
		for _, d := range step.AssertionDetails {
			if !d.Passed {
				s.WriteString(fmt.Sprintf("       %s %s\n", warnStyle.Render("assertion failed:"), d.Message))
			}
		}
	}
	s.WriteString("\n")
}

func outcomeLabel(o models.Outcome) string {
	switch o {
	case models.OutcomeSuccess:
		return okStyle.Render(string(o))
	case models.OutcomeFailure:
		return warnStyle.Render(string(o))
	default:
		return errStyle.Render(string(o))
	}
}

func renderLoadResult(s *strings.Builder, lr models.LoadResult) {
	s.WriteString(sectionStyle.Render(fmt.Sprintf("load test: %s", lr.TestName)))
	s.WriteString("\n")

	s.WriteString(stat("Duration", lr.Duration.String()))
	s.WriteString(stat("Target TPS", fmt.Sprintf("%d", lr.TargetTPS)))
	s.WriteString(stat("Actual Avg TPS", fmt.Sprintf("%.2f", lr.ActualAvgTPS)))
	s.WriteString(stat("Total", fmt.Sprintf("%d", lr.Total)))
	s.WriteString(stat("Success Rate", fmt.Sprintf("%.2f%%", lr.SuccessRate)))
	if lr.StoppedEarly {
		s.WriteString(stat("Stopped Early", errStyle.Render(lr.StopReason)))
	}
	s.WriteString("\n")

	if len(lr.Timeline) > 0 {
		last := lr.Timeline[len(lr.Timeline)-1]
		s.WriteString(sectionStyle.Render("Latency Distribution (final tick)"))
		s.WriteString("\n")
		s.WriteString(stat("Min / Avg / Max", fmt.Sprintf("%s / %s / %s", fmtMs(last.MinMs), fmtMs(last.AvgMs), fmtMs(last.MaxMs))))
		s.WriteString(stat("P50 / P95 / P99", fmt.Sprintf("%s / %s / %s", fmtMs(last.P50Ms), fmtMs(last.P95Ms), fmtMs(last.P99Ms))))
		s.WriteString("\n")
	}

	if len(lr.StatusCodes) > 0 {
		s.WriteString(sectionStyle.Render("Status Codes"))
		s.WriteString("\n")
		renderBarChart(s, lr.StatusCodes, int(lr.Total))
		s.WriteString("\n")
	}

	if len(lr.Errors) > 0 {
		s.WriteString(errStyle.Render("Error Breakdown"))
		s.WriteString("\n")
		codes := make([]string, 0, len(lr.Errors))
		for k := range lr.Errors {
			codes = append(codes, k)
		}
		sort.Slice(codes, func(i, j int) bool { return lr.Errors[codes[i]] > lr.Errors[codes[j]] })
		for _, msg := range codes {
			clean := msg
			if len(clean) > 60 {
				clean = clean[:57] + "..."
			}
			s.WriteString(fmt.Sprintf("  %s %d\n", labelStyle.Render(fmt.Sprintf("%-62s", clean)), lr.Errors[msg]))
		}
	}
}

func renderBarChart(s *strings.Builder, counts map[string]int, total int) {
	type kv struct {
		code  string
		count int
	}
	sorted := make([]kv, 0, len(counts))
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].count > sorted[j].count })

	maxCount := 0
	for _, item := range sorted {
		if item.count > maxCount {
			maxCount = item.count
		}
	}

	const barWidth = 20
	for _, item := range sorted {
		style := okStyle
		if len(item.code) > 0 && item.code[0] >= '4' {
			style = errStyle
		}
		barLen := 0
		if maxCount > 0 {
			barLen = (item.count * barWidth) / maxCount
		}
		if barLen < 1 && item.count > 0 {
			barLen = 1
		}
		bar := strings.Repeat("█", barLen) + strings.Repeat("░", barWidth-barLen)
		pct := 0.0
		if total > 0 {
			pct = float64(item.count) / float64(total) * 100
		}
		s.WriteString(fmt.Sprintf("  %-6s %s %6d %s\n", item.code, style.Render(bar), item.count, labelStyle.Render(fmt.Sprintf("(%5.1f%%)", pct))))
	}
}
