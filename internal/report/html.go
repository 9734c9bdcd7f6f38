package report

import (
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Amr-9/saylrun/pkg/models"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.TestName}} — saylrun</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
            background: #eef1f6;
            color: #1f2430;
            padding: 24px;
        }
        .shell { max-width: 1320px; margin: 0 auto; }
        .topbar {
            display: flex;
            justify-content: space-between;
            align-items: center;
            flex-wrap: wrap;
            gap: 12px;
            background: #1f2430;
            color: #f5f7ff;
            padding: 20px 28px;
            border-radius: 10px;
            margin-bottom: 22px;
        }
        .topbar .title { font-size: 1.4rem; font-weight: 600; }
        .topbar .meta { color: #9aa3b8; font-size: 0.85rem; }
        .topbar .meta b { color: #f5f7ff; }
        .kpis {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
            gap: 14px;
            margin-bottom: 22px;
        }
        .kpi {
            background: #fff;
            border-radius: 10px;
            padding: 18px 20px;
            border-left: 4px solid #4f46e5;
            box-shadow: 0 1px 2px rgba(31,36,48,0.06);
        }
        .kpi.accent-ok { border-left-color: #0ea5a4; }
        .kpi.accent-warn { border-left-color: #dc2626; }
        .kpi-value { font-size: 1.9rem; font-weight: 700; line-height: 1.1; }
        .kpi-label {
            margin-top: 6px;
            color: #6b7280;
            font-size: 0.78rem;
            text-transform: uppercase;
            letter-spacing: 0.06em;
        }
        .panels {
            display: grid;
            grid-template-columns: repeat(2, 1fr);
            gap: 18px;
            margin-bottom: 22px;
        }
        @media (max-width: 1100px) {
            .panels { grid-template-columns: 1fr; }
        }
        .panel {
            background: #fff;
            border-radius: 10px;
            padding: 20px 22px;
            box-shadow: 0 1px 2px rgba(31,36,48,0.06);
        }
        .panel-title {
            font-size: 0.95rem;
            font-weight: 600;
            color: #374151;
            margin-bottom: 14px;
        }
        .canvas-box { position: relative; height: 280px; }
        .table-panel {
            background: #fff;
            border-radius: 10px;
            padding: 20px 22px;
            box-shadow: 0 1px 2px rgba(31,36,48,0.06);
            margin-bottom: 18px;
        }
        .table-panel.warn .panel-title { color: #dc2626; }
        table { width: 100%; border-collapse: collapse; }
        th, td {
            padding: 10px 12px;
            text-align: left;
            border-bottom: 1px solid #edf0f5;
            font-size: 0.9rem;
        }
        th {
            color: #6b7280;
            font-weight: 600;
            text-transform: uppercase;
            font-size: 0.72rem;
            letter-spacing: 0.05em;
        }
        tr:last-child td { border-bottom: none; }
        tr:hover td { background: #f8fafc; }
        .pill {
            display: inline-block;
            padding: 3px 11px;
            border-radius: 999px;
            font-size: 0.75rem;
            font-weight: 600;
        }
        .pill-ok { background: #d1fae5; color: #047857; }
        .pill-bad { background: #fee2e2; color: #b91c1c; }
        .error-msg { font-family: ui-monospace, Menlo, monospace; color: #9f1239; }
        .page-footer { text-align: center; padding: 18px; color: #9aa3b8; font-size: 0.8rem; }
    </style>
</head>
<body>
    <div class="shell">
        <div class="topbar">
            <div>
                <div class="title">{{.TestName}}</div>
                <div class="meta">generated {{.GeneratedAt}}</div>
            </div>
            <div class="meta">
                duration <b>{{.TestDuration}}</b> &nbsp;·&nbsp; target <b>{{.TargetTPS}} tps</b>
            </div>
        </div>

        <div class="kpis">
            <div class="kpi"><div class="kpi-value">{{.TotalRequests}}</div><div class="kpi-label">Total requests</div></div>
            <div class="kpi accent-ok"><div class="kpi-value">{{printf "%.1f" .SuccessRate}}%</div><div class="kpi-label">Success rate</div></div>
            <div class="kpi"><div class="kpi-value">{{printf "%.0f" .ActualAvgTPS}}</div><div class="kpi-label">Actual tps</div></div>
            <div class="kpi"><div class="kpi-value">{{.Min}}</div><div class="kpi-label">Min latency</div></div>
            <div class="kpi"><div class="kpi-value">{{.P50}}</div><div class="kpi-label">P50 latency</div></div>
            <div class="kpi"><div class="kpi-value">{{.P99}}</div><div class="kpi-label">P99 latency</div></div>
            <div class="kpi accent-warn"><div class="kpi-value">{{.Max}}</div><div class="kpi-label">Max latency</div></div>
            <div class="kpi accent-ok"><div class="kpi-value">{{.SuccessCount}}</div><div class="kpi-label">Successful</div></div>
        </div>

        <div class="panels">
            <div class="panel">
                <div class="panel-title">Transactions per second</div>
                <div class="canvas-box"><canvas id="tpsChart"></canvas></div>
            </div>
            <div class="panel">
                <div class="panel-title">Latency percentiles (ms)</div>
                <div class="canvas-box"><canvas id="latencyChart"></canvas></div>
            </div>
            <div class="panel">
                <div class="panel-title">Success vs failure per tick</div>
                <div class="canvas-box"><canvas id="successChart"></canvas></div>
            </div>
            <div class="panel">
                <div class="panel-title">Status code distribution</div>
                <div class="canvas-box"><canvas id="statusChart"></canvas></div>
            </div>
        </div>

        <div class="table-panel">
            <div class="panel-title">Status codes</div>
            <table>
                <thead>
                    <tr><th>Code</th><th>Count</th><th>Share</th><th>Status</th></tr>
                </thead>
                <tbody>
                    {{range .StatusCodesTable}}
                    <tr>
                        <td>{{.Code}}</td>
                        <td>{{.Count}}</td>
                        <td>{{printf "%.2f" .Percentage}}%</td>
                        <td>
                            {{if .IsSuccess}}<span class="pill pill-ok">ok</span>
                            {{else}}<span class="pill pill-bad">error</span>{{end}}
                        </td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>

        {{if .Errors}}
        <div class="table-panel warn">
            <div class="panel-title">Error distribution</div>
            <table>
                <thead><tr><th>Message</th><th>Count</th></tr></thead>
                <tbody>
                    {{range .Errors}}
                    <tr>
                        <td class="error-msg">{{.Message}}</td>
                        <td>{{.Count}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>
        {{end}}

        <div class="page-footer">saylrun load test report</div>
    </div>

    <script>
        Chart.defaults.color = '#6b7280';
        Chart.defaults.borderColor = '#edf0f5';
        Chart.defaults.font.family = "-apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif";

        const timeLabels = [{{.TimeLabels}}];
        const tpsData = [{{.TPSData}}];
        const p50Data = [{{.P50Data}}];
        const p95Data = [{{.P95Data}}];
        const p99Data = [{{.P99Data}}];
        const successData = [{{.SuccessData}}];
        const failureData = [{{.FailureData}}];

        new Chart(document.getElementById('tpsChart'), {
            type: 'line',
            data: { labels: timeLabels, datasets: [{ label: 'tps', data: tpsData, borderColor: '#4f46e5', backgroundColor: 'rgba(79,70,229,0.08)', fill: true, tension: 0.3, pointRadius: 2 }] },
            options: { responsive: true, maintainAspectRatio: false, plugins: { legend: { display: false } },
                scales: { y: { beginAtZero: true }, x: {} } }
        });

        new Chart(document.getElementById('latencyChart'), {
            type: 'line',
            data: { labels: timeLabels, datasets: [
                { label: 'p50', data: p50Data, borderColor: '#0ea5a4', tension: 0.3, pointRadius: 1 },
                { label: 'p95', data: p95Data, borderColor: '#f59e0b', tension: 0.3, pointRadius: 1 },
                { label: 'p99', data: p99Data, borderColor: '#dc2626', tension: 0.3, pointRadius: 1 }
            ] },
            options: { responsive: true, maintainAspectRatio: false, plugins: { legend: { position: 'bottom', labels: { usePointStyle: true } } },
                scales: { y: { beginAtZero: true }, x: {} } }
        });

        new Chart(document.getElementById('successChart'), {
            type: 'bar',
            data: { labels: timeLabels, datasets: [
                { label: 'success', data: successData, backgroundColor: '#0ea5a4' },
                { label: 'failure', data: failureData, backgroundColor: '#dc2626' }
            ] },
            options: { responsive: true, maintainAspectRatio: false, plugins: { legend: { position: 'bottom', labels: { usePointStyle: true } } },
                scales: { x: { stacked: true }, y: { stacked: true, beginAtZero: true } } }
        });

        new Chart(document.getElementById('statusChart'), {
            type: 'doughnut',
            data: { labels: [{{.StatusLabels}}], datasets: [{ data: [{{.StatusData}}], backgroundColor: ['#0ea5a4', '#4f46e5', '#f59e0b', '#dc2626', '#7c3aed', '#0284c7'] }] },
            options: { responsive: true, maintainAspectRatio: false, plugins: { legend: { position: 'right', labels: { usePointStyle: true } } } }
        });
    </script>
</body>
</html>`

// StatusCodeRow is a row in the status codes table.
type StatusCodeRow struct {
	Code       string
	Count      int
	Percentage float64
	IsSuccess  bool
}

// ErrorRow is a row in the errors table.
type ErrorRow struct {
	Message string
	Count   int
}

type htmlTemplateData struct {
	GeneratedAt      string
	TestName         string
	TestDuration     string
	TargetTPS        int
	TotalRequests    int64
	SuccessCount     int64
	FailureCount     int64
	SuccessRate      float64
	ActualAvgTPS     float64
	P50              string
	P95              string
	P99              string
	Max              string
	Min              string
	StatusCodesTable []StatusCodeRow
	Errors           []ErrorRow
	TimeLabels       template.JS
	TPSData          template.JS
	P50Data          template.JS
	P95Data          template.JS
	P99Data          template.JS
	SuccessData      template.JS
	FailureData      template.JS
	StatusLabels     template.JS
	StatusData       template.JS
}

// GenerateHTML renders a load-test Report as a standalone HTML
// dashboard with Chart.js time series and distribution charts.
func GenerateHTML(r models.Report, filename string, generatedAt time.Time) error {
	if r.LoadTestResult == nil {
		return fmt.Errorf("report %s has no load test result to render", r.ReportID)
	}
	lr := *r.LoadTestResult

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	var timeLabels, tpsData, p50Data, p95Data, p99Data, successData, failureData []string
	for _, tick := range lr.Timeline {
		timeLabels = append(timeLabels, fmt.Sprintf("'%.0fs'", tick.ElapsedSeconds))
		tpsData = append(tpsData, fmt.Sprintf("%.2f", tick.CurrentTPS))
		p50Data = append(p50Data, fmt.Sprintf("%.2f", tick.P50Ms))
		p95Data = append(p95Data, fmt.Sprintf("%.2f", tick.P95Ms))
		p99Data = append(p99Data, fmt.Sprintf("%.2f", tick.P99Ms))
		successData = append(successData, fmt.Sprintf("%d", tick.Success))
		failureData = append(failureData, fmt.Sprintf("%d", tick.Failure))
	}

	var statusLabels, statusData []string
	var statusRows []StatusCodeRow
	codes := make([]string, 0, len(lr.StatusCodes))
	for code := range lr.StatusCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		count := lr.StatusCodes[code]
		percentage := 0.0
		if lr.Total > 0 {
			percentage = float64(count) / float64(lr.Total) * 100
		}
		var codeInt int
		n, _ := fmt.Sscanf(code, "%d", &codeInt)
		isSuccess := n > 0 && codeInt >= 200 && codeInt < 300
		statusLabels = append(statusLabels, fmt.Sprintf("'%s'", code))
		statusData = append(statusData, fmt.Sprintf("%d", count))
		statusRows = append(statusRows, StatusCodeRow{Code: code, Count: count, Percentage: percentage, IsSuccess: isSuccess})
	}

	var errorRows []ErrorRow
	for msg, count := range lr.Errors {
		errorRows = append(errorRows, ErrorRow{Message: msg, Count: count})
	}
	sort.Slice(errorRows, func(i, j int) bool { return errorRows[i].Count > errorRows[j].Count })

	var lastTick models.LoadMetrics
	if len(lr.Timeline) > 0 {
		lastTick = lr.Timeline[len(lr.Timeline)-1]
	}

	data := htmlTemplateData{
		GeneratedAt:      generatedAt.Format("2006-01-02 15:04:05"),
		TestName:         lr.TestName,
		TestDuration:     lr.Duration.String(),
		TargetTPS:        lr.TargetTPS,
		TotalRequests:    lr.Total,
		SuccessCount:     lr.Success,
		FailureCount:     lr.Failure,
		SuccessRate:      lr.SuccessRate,
		ActualAvgTPS:     lr.ActualAvgTPS,
		P50:              fmtMs(lastTick.P50Ms),
		P95:              fmtMs(lastTick.P95Ms),
		P99:              fmtMs(lastTick.P99Ms),
		Max:              fmtMs(lastTick.MaxMs),
		Min:              fmtMs(lastTick.MinMs),
		StatusCodesTable: statusRows,
		Errors:           errorRows,
		TimeLabels:       template.JS(strings.Join(timeLabels, ",")),
		TPSData:          template.JS(strings.Join(tpsData, ",")),
		P50Data:          template.JS(strings.Join(p50Data, ",")),
		P95Data:          template.JS(strings.Join(p95Data, ",")),
		P99Data:          template.JS(strings.Join(p99Data, ",")),
		SuccessData:      template.JS(strings.Join(successData, ",")),
		FailureData:      template.JS(strings.Join(failureData, ",")),
		StatusLabels:     template.JS(strings.Join(statusLabels, ",")),
		StatusData:       template.JS(strings.Join(statusData, ",")),
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	return tmpl.Execute(file, data)
}
