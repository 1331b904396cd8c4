package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/torosent/httpstorm/internal/metrics"
	"github.com/torosent/httpstorm/internal/threshold"
)

// Verdict values for the final report.
const (
	VerdictHealthy  = "HEALTHY"
	VerdictDegraded = "DEGRADED"
	VerdictFailing  = "FAILING"
)

const sparklineWidth = 60

// Report is everything the final report renders.
type Report struct {
	RunID      string             `json:"run_id,omitempty"`
	Target     string             `json:"target"`
	Method     string             `json:"method"`
	Mode       string             `json:"mode"`
	StopReason string             `json:"stop_reason,omitempty"`
	Abandoned  int                `json:"abandoned"`
	Verdict    string             `json:"verdict,omitempty"`
	Stats      metrics.Snapshot   `json:"stats"`
	RPSHistory []RPSPoint         `json:"rps_history,omitempty"`
	Thresholds []threshold.Result `json:"thresholds,omitempty"`
}

// Verdict grades a run by its success rate. Runs without attempts have no
// verdict.
func Verdict(snap metrics.Snapshot) string {
	switch {
	case snap.Total == 0:
		return ""
	case snap.SuccessRate > 80:
		return VerdictHealthy
	case snap.SuccessRate > 50:
		return VerdictDegraded
	default:
		return VerdictFailing
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report) {
	stats := r.Stats
	fmt.Fprintln(w, "\n--- Load Test Results ---")

	var summary strings.Builder
	if r.RunID != "" {
		fmt.Fprintf(&summary, "Run ID:            %s\n", r.RunID)
	}
	fmt.Fprintf(&summary, "Target:            %s\n", r.Target)
	if r.StopReason != "" {
		fmt.Fprintf(&summary, "Stopped:           %s\n", r.StopReason)
	}
	if stats.Total == 0 {
		summary.WriteString("No requests completed")
		fmt.Fprintln(w, bannerBox.Render(summary.String()))
		return
	}

	fmt.Fprintf(&summary, "Duration:          %s\n", stats.Elapsed.Round(10*time.Millisecond))
	fmt.Fprintf(&summary, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(&summary, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(&summary, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(&summary, "Timeouts:          %d\n", stats.Timeouts)
	fmt.Fprintf(&summary, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintf(&summary, "Success Rate:      %.1f%%", stats.SuccessRate)
	if r.Abandoned > 0 {
		fmt.Fprintf(&summary, "\nAbandoned:         %d", r.Abandoned)
	}
	fmt.Fprintln(w, bannerBox.Render(summary.String()))

	if stats.LatencySamples > 0 {
		fmt.Fprintln(w, "\nLatency:")
		fmt.Fprintf(w, "  Min:             %s\n", formatMs(stats.MinLatency))
		fmt.Fprintf(w, "  Max:             %s\n", formatMs(stats.MaxLatency))
		fmt.Fprintf(w, "  Mean:            %s\n", formatMs(stats.MeanLatency))
		fmt.Fprintf(w, "  Median:          %s\n", formatMs(stats.P50Latency))
		fmt.Fprintf(w, "  P90:             %s\n", formatMs(stats.P90Latency))
		fmt.Fprintf(w, "  P95:             %s\n", formatMs(stats.P95Latency))
		fmt.Fprintf(w, "  P99:             %s\n", formatMs(stats.P99Latency))
	}

	fmt.Fprintln(w, "\nTransfer:")
	fmt.Fprintf(w, "  Sent:            %s\n", formatBytes(stats.BytesSent))
	fmt.Fprintf(w, "  Received:        %s\n", formatBytes(stats.BytesReceived))
	fmt.Fprintf(w, "  Total:           %.2f MB\n", float64(stats.TotalBytes())/(1024*1024))

	if rows := metrics.StatusCodeRows(stats.StatusCodes); len(rows) > 0 {
		fmt.Fprintln(w, "\nStatus Codes:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", row.Key, row.Count, percent(row.Count, stats.Total))
		}
	}
	if rows := metrics.SortedCounts(stats.Errors); len(rows) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyErrorName(row.Key), row.Count)
		}
	}

	if len(r.RPSHistory) > 1 {
		values := make([]float64, len(r.RPSHistory))
		for i, p := range r.RPSHistory {
			values[i] = p.CurrentRPS
		}
		fmt.Fprintf(w, "\nRPS History:       %s\n", sparkline(values, sparklineWidth))
	}

	if len(r.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, res := range r.Thresholds {
			fmt.Fprintf(w, "  %s\n", res.Message)
		}
	}

	fmt.Fprintf(w, "\nVerdict:           %s\n", renderVerdict(Verdict(stats)))
}

func renderVerdict(v string) string {
	switch v {
	case VerdictHealthy:
		return goodStyle.Render(v)
	case VerdictDegraded:
		return warnStyle.Render(v)
	default:
		return badStyle.Render(v)
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	r.Verdict = Verdict(r.Stats)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
