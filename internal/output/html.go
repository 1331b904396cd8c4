package output

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/httpstorm/internal/metrics"
	"github.com/torosent/httpstorm/internal/threshold"
)

// htmlReportData contains all data needed for the HTML report template.
type htmlReportData struct {
	GeneratedAt      string
	Report           Report
	Verdict          string
	StatusCodes      []metrics.Count
	Errors           []errorRow
	ThresholdSummary *thresholdSummary
	HistoryJSON      string
}

type errorRow struct {
	Name  string
	Count int64
}

type thresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []threshold.Result
}

// GenerateHTMLReport generates a standalone HTML report with an embedded RPS
// history chart.
func GenerateHTMLReport(w io.Writer, r Report) error {
	var summary *thresholdSummary
	if len(r.Thresholds) > 0 {
		summary = &thresholdSummary{Total: len(r.Thresholds), Results: r.Thresholds}
		for _, tr := range r.Thresholds {
			if tr.Pass {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
	}

	var errs []errorRow
	for _, row := range metrics.SortedCounts(r.Stats.Errors) {
		errs = append(errs, errorRow{Name: metrics.FriendlyErrorName(row.Key), Count: row.Count})
	}

	history := r.RPSHistory
	if history == nil {
		history = []RPSPoint{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	data := htmlReportData{
		GeneratedAt:      time.Now().Format(time.RFC3339),
		Report:           r,
		Verdict:          Verdict(r.Stats),
		StatusCodes:      metrics.StatusCodeRows(r.Stats.StatusCodes),
		Errors:           errs,
		ThresholdSummary: summary,
		HistoryJSON:      string(historyJSON),
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Microsecond).String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			return fmt.Sprintf("%.1f", percent(part, total))
		},
		"formatBytes": formatBytes,
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>httpstorm Load Test Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background: #f4f5f9; color: #1f2933; padding: 24px; }
        .container { max-width: 1200px; margin: 0 auto; background: #fff; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.08); overflow: hidden; }
        header { background: #2d1b69; color: #fff; padding: 28px 36px; }
        header h1 { font-size: 1.8rem; margin-bottom: 8px; }
        header .meta { opacity: 0.85; font-size: 0.9rem; }
        .content { padding: 36px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 16px; margin-bottom: 32px; }
        .card { background: #f8f9fb; border-radius: 8px; padding: 18px; border-left: 4px solid #7d56f4; }
        .card h3 { font-size: 0.8rem; color: #6b7280; text-transform: uppercase; letter-spacing: 0.5px; margin-bottom: 8px; }
        .card .value { font-size: 1.8rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6b7280; margin-top: 4px; }
        .card.good { border-left-color: #04b575; }
        .card.bad { border-left-color: #ff5f87; }
        .card.warn { border-left-color: #ffaf00; }
        .section { margin-bottom: 32px; }
        .section h2 { font-size: 1.3rem; margin-bottom: 16px; padding-bottom: 8px; border-bottom: 2px solid #e5e7eb; }
        .chart { width: 100%; height: 300px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f8f9fb; font-size: 0.8rem; text-transform: uppercase; color: #4b5563; }
        .badge { display: inline-block; padding: 3px 10px; border-radius: 10px; font-size: 0.8rem; font-weight: 600; }
        .badge-pass { background: #d1fae5; color: #065f46; }
        .badge-fail { background: #fee2e2; color: #991b1b; }
        .no-data { text-align: center; padding: 40px; color: #6b7280; font-style: italic; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.iife.min.js"></script>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/uplot@1.6.24/dist/uPlot.min.css">
</head>
<body>
    <div class="container">
        <header>
            <h1>httpstorm Load Test Report</h1>
            <div class="meta">Target: {{.Report.Method}} {{.Report.Target}}</div>
            <div class="meta">Generated: {{.GeneratedAt}}{{if .Report.RunID}} | Run: {{.Report.RunID}}{{end}} | Mode: {{.Report.Mode}}{{if .Report.StopReason}} | Stopped: {{.Report.StopReason}}{{end}}</div>
        </header>

        <div class="content">
            {{if eq .Report.Stats.Total 0}}
            <div class="no-data">No requests completed</div>
            {{else}}
            <div class="grid">
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Report.Stats.Total}}</div>
                    <div class="subvalue">{{formatDuration .Report.Stats.Elapsed}}</div>
                </div>
                <div class="card good">
                    <h3>Successful</h3>
                    <div class="value">{{.Report.Stats.Successes}}</div>
                    <div class="subvalue">{{formatPercent .Report.Stats.Successes .Report.Stats.Total}}%</div>
                </div>
                <div class="card bad">
                    <h3>Failed</h3>
                    <div class="value">{{.Report.Stats.Failures}}</div>
                    <div class="subvalue">{{.Report.Stats.Timeouts}} timeouts</div>
                </div>
                <div class="card">
                    <h3>Requests/sec</h3>
                    <div class="value">{{formatFloat .Report.Stats.RequestsPerSec}}</div>
                </div>
                <div class="card {{if eq .Verdict "HEALTHY"}}good{{else if eq .Verdict "DEGRADED"}}warn{{else}}bad{{end}}">
                    <h3>Verdict</h3>
                    <div class="value">{{.Verdict}}</div>
                </div>
            </div>

            <div class="section">
                <h2>Requests Per Second</h2>
                {{if .Report.RPSHistory}}
                <div id="rps-chart" class="chart"></div>
                {{else}}
                <div class="no-data">No live samples recorded</div>
                {{end}}
            </div>

            <div class="section">
                <h2>Latency</h2>
                <table>
                    <thead><tr><th>Min</th><th>Mean</th><th>Median</th><th>P90</th><th>P95</th><th>P99</th><th>Max</th></tr></thead>
                    <tbody><tr>
                        <td>{{formatDuration .Report.Stats.MinLatency}}</td>
                        <td>{{formatDuration .Report.Stats.MeanLatency}}</td>
                        <td>{{formatDuration .Report.Stats.P50Latency}}</td>
                        <td>{{formatDuration .Report.Stats.P90Latency}}</td>
                        <td>{{formatDuration .Report.Stats.P95Latency}}</td>
                        <td>{{formatDuration .Report.Stats.P99Latency}}</td>
                        <td>{{formatDuration .Report.Stats.MaxLatency}}</td>
                    </tr></tbody>
                </table>
            </div>

            <div class="section">
                <h2>Transfer</h2>
                <table>
                    <thead><tr><th>Sent</th><th>Received</th></tr></thead>
                    <tbody><tr><td>{{formatBytes .Report.Stats.BytesSent}}</td><td>{{formatBytes .Report.Stats.BytesReceived}}</td></tr></tbody>
                </table>
            </div>

            {{if .StatusCodes}}
            <div class="section">
                <h2>Status Codes</h2>
                <table>
                    <thead><tr><th>Code</th><th>Count</th><th>Share</th></tr></thead>
                    <tbody>
                        {{range .StatusCodes}}
                        <tr><td>{{.Key}}</td><td>{{.Count}}</td><td>{{formatPercent .Count $.Report.Stats.Total}}%</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Errors}}
            <div class="section">
                <h2>Errors</h2>
                <table>
                    <thead><tr><th>Error</th><th>Count</th></tr></thead>
                    <tbody>
                        {{range .Errors}}
                        <tr><td>{{.Name}}</td><td>{{.Count}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead><tr><th>Threshold</th><th>Expected</th><th>Actual</th><th>Status</th></tr></thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Expr}}</td>
                            <td>{{.Threshold.Operator}} {{formatFloat .Threshold.Value}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>{{if .Pass}}<span class="badge badge-pass">PASS</span>{{else}}<span class="badge badge-fail">FAIL</span>{{end}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>

    {{if .Report.RPSHistory}}
    <script>
        const history = JSON.parse({{.HistoryJSON}});
        if (history.length > 0) {
            const start = new Date(history[0].timestamp).getTime();
            const xs = history.map(d => (new Date(d.timestamp).getTime() - start) / 1000);
            const el = document.getElementById('rps-chart');
            new uPlot({
                width: el.offsetWidth,
                height: 300,
                scales: { x: { time: false } },
                series: [
                    { label: "Time (s)" },
                    { label: "Current RPS", stroke: "#7d56f4", fill: "rgba(125, 86, 244, 0.1)", width: 2 },
                    { label: "Average RPS", stroke: "#04b575", width: 2 },
                    { label: "P95 (ms)", stroke: "#ffaf00", width: 1, scale: "ms" }
                ],
                axes: [
                    { label: "Time (seconds)" },
                    { label: "Requests/sec" },
                    { side: 1, scale: "ms", label: "Latency (ms)", grid: { show: false } }
                ]
            }, [xs, history.map(d => d.current_rps), history.map(d => d.average_rps), history.map(d => d.p95_latency_ms)], el);
        }
    </script>
    {{end}}
</body>
</html>
`
