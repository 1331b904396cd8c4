package output_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/torosent/httpstorm/internal/metrics"
	"github.com/torosent/httpstorm/internal/output"
	"github.com/torosent/httpstorm/internal/threshold"
)

func TestPrintReportBasic(t *testing.T) {
	report := output.Report{
		RunID:      "run-1",
		Target:     "http://localhost:8080/ok",
		StopReason: "request ceiling reached",
		Abandoned:  2,
		Stats:      sampleSnapshot(),
	}

	var buf bytes.Buffer
	output.PrintReport(&buf, report)

	out := buf.String()
	for _, want := range []string{
		"--- Load Test Results ---",
		"Run ID:            run-1",
		"Stopped:           request ceiling reached",
		"Total Requests:    100",
		"Successful:        95",
		"Failed:            5",
		"Timeouts:          2",
		"Requests/sec:      50.00",
		"Success Rate:      95.0%",
		"Abandoned:         2",
		"  Median:          45.00 ms",
		"  P95:             90.00 ms",
		"  Sent:            2.00 KiB",
		"  Received:        4.00 KiB",
		"  Total:           0.01 MB",
		"200: 95 (95.0%)",
		"Connection refused: 3",
		"Verdict:",
		"HEALTHY",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestPrintReportNoRequests(t *testing.T) {
	var buf bytes.Buffer
	output.PrintReport(&buf, output.Report{Target: "http://localhost"})

	out := buf.String()
	if !strings.Contains(out, "No requests completed") {
		t.Fatalf("expected no requests message, got %q", out)
	}
	for _, unwanted := range []string{"Requests/sec", "Verdict", "Latency"} {
		if strings.Contains(out, unwanted) {
			t.Errorf("empty report should not contain %q", unwanted)
		}
	}
}

func TestPrintReportBoxesSummary(t *testing.T) {
	var buf bytes.Buffer
	output.PrintReport(&buf, output.Report{
		Target:     "http://localhost",
		StopReason: "duration elapsed",
		Stats:      metrics.Snapshot{Total: 4, Successes: 4, SuccessRate: 100},
	})

	out := buf.String()
	for _, want := range []string{"╭", "╰", "│ Target:            http://localhost"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary box missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "│ Transfer:") {
		t.Errorf("transfer section should sit outside the summary box\n%s", out)
	}
}

func TestPrintReportHistoryAndThresholds(t *testing.T) {
	report := output.Report{
		Target: "http://localhost",
		Stats:  sampleSnapshot(),
		RPSHistory: []output.RPSPoint{
			{CurrentRPS: 10},
			{CurrentRPS: 40},
			{CurrentRPS: 80},
		},
		Thresholds: []threshold.Result{
			{Message: "PASS http_req_duration:p95 < 100: 90.00 < 100.00", Pass: true},
		},
	}

	var buf bytes.Buffer
	output.PrintReport(&buf, report)

	out := buf.String()
	if !strings.Contains(out, "RPS History:") || !strings.Contains(out, "█") {
		t.Errorf("expected RPS sparkline in report:\n%s", out)
	}
	if !strings.Contains(out, "PASS http_req_duration:p95 < 100") {
		t.Errorf("expected threshold line in report:\n%s", out)
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name string
		snap metrics.Snapshot
		want string
	}{
		{"no requests", metrics.Snapshot{}, ""},
		{"healthy", metrics.Snapshot{Total: 10, SuccessRate: 90}, output.VerdictHealthy},
		{"exactly 80 is degraded", metrics.Snapshot{Total: 10, SuccessRate: 80}, output.VerdictDegraded},
		{"degraded", metrics.Snapshot{Total: 10, SuccessRate: 60}, output.VerdictDegraded},
		{"exactly 50 is failing", metrics.Snapshot{Total: 10, SuccessRate: 50}, output.VerdictFailing},
		{"failing", metrics.Snapshot{Total: 10, SuccessRate: 0}, output.VerdictFailing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := output.Verdict(tt.snap); got != tt.want {
				t.Fatalf("Verdict() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrintJSONReport(t *testing.T) {
	report := output.Report{
		RunID:      "run-2",
		Target:     "http://localhost",
		Method:     "POST",
		Mode:       "tasks",
		StopReason: "duration elapsed",
		Stats:      sampleSnapshot(),
		RPSHistory: []output.RPSPoint{{CurrentRPS: 25}},
	}

	var buf bytes.Buffer
	if err := output.PrintJSONReport(&buf, report); err != nil {
		t.Fatalf("PrintJSONReport failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded["verdict"] != output.VerdictHealthy {
		t.Errorf("verdict = %v, want %s", decoded["verdict"], output.VerdictHealthy)
	}
	if decoded["mode"] != "tasks" {
		t.Errorf("mode = %v, want tasks", decoded["mode"])
	}
	stats, ok := decoded["stats"].(map[string]interface{})
	if !ok {
		t.Fatalf("stats missing from JSON: %s", buf.String())
	}
	if stats["total"] != float64(100) {
		t.Errorf("stats.total = %v, want 100", stats["total"])
	}
	if _, ok := decoded["rps_history"]; !ok {
		t.Errorf("rps_history missing from JSON")
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	output.PrintBanner(&buf, output.BannerInfo{
		RunID:        "run-3",
		Target:       "https://example.test/api",
		Method:       "POST",
		Duration:     30 * time.Second,
		Concurrency:  25,
		RPS:          100,
		Timeout:      5 * time.Second,
		Mode:         "workers",
		ArrivalModel: "poisson",
		Stealth:      true,
	})

	out := buf.String()
	for _, want := range []string{
		"httpstorm",
		"run-3",
		"https://example.test/api",
		"POST",
		"30s",
		"25",
		"100 req/s (poisson)",
		"Stealth:      on",
		"Random delay: off",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q\n%s", want, out)
		}
	}
}

func TestPrintBannerRequestCeiling(t *testing.T) {
	var buf bytes.Buffer
	output.PrintBanner(&buf, output.BannerInfo{Target: "http://localhost", Requests: 500, Duration: time.Minute})

	out := buf.String()
	if !strings.Contains(out, "Requests:     500") {
		t.Errorf("banner missing request ceiling\n%s", out)
	}
	if strings.Contains(out, "Duration:") {
		t.Errorf("banner should not show duration when a ceiling is set\n%s", out)
	}
	if !strings.Contains(out, "Rate:         unlimited") {
		t.Errorf("banner missing unlimited rate\n%s", out)
	}
}
