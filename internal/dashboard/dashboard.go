// Package dashboard renders a live terminal view of a running load test.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/httpstorm/internal/metrics"
)

const (
	refreshInterval = 500 * time.Millisecond
	historyLimit    = 100
	maxListRows     = 10
)

// RunConfig holds the run parameters shown in the summary panel.
type RunConfig struct {
	TargetURL    string
	Method       string
	Mode         string
	ArrivalModel string
	Concurrency  int
	Duration     time.Duration // 0 = unlimited
	Total        int           // 0 = unlimited
	Rate         int           // 0 = unlimited
	Timeout      time.Duration
	Stealth      bool
	RandomDelay  bool
	ConfigFile   string
}

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	source       metrics.SnapshotSource
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid        *ui.Grid
	sparklines  *widgets.SparklineGroup
	latencyPara *widgets.Paragraph
	rpsGauge    *widgets.Gauge
	statusList  *widgets.List
	errorList   *widgets.List
	summaryPara *widgets.Paragraph
	metricsPara *widgets.Paragraph
	rpsHistory  []float64
	latencyHist []float64
	lastTotal   int64
	lastUpdate  time.Time
	startTime   time.Time
	runConfig   RunConfig
}

// New initializes the terminal and builds the dashboard. shutdownFunc is
// called when the operator presses q or Ctrl+C.
func New(source metrics.SnapshotSource, cfg RunConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	d := newDashboard(source, cfg, shutdownFunc)
	d.setupGrid()
	return d, nil
}

func newDashboard(source metrics.SnapshotSource, cfg RunConfig, shutdownFunc func()) *Dashboard {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	d := &Dashboard{
		source:       source,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		rpsHistory:   make([]float64, 0, historyLimit),
		latencyHist:  make([]float64, 0, historyLimit),
		lastUpdate:   now,
		startTime:    now,
		runConfig:    cfg,
	}
	d.initWidgets()
	return d
}

func (d *Dashboard) initWidgets() {
	rps := widgets.NewSparkline()
	rps.Title = "Requests/sec"
	rps.LineColor = ui.ColorBlue
	rps.Data = []float64{0}

	latency := widgets.NewSparkline()
	latency.Title = "Mean latency (ms)"
	latency.LineColor = ui.ColorGreen
	latency.Data = []float64{0}

	d.sparklines = widgets.NewSparklineGroup(rps, latency)
	d.sparklines.Title = "Throughput and Latency"
	d.sparklines.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Waiting for data..."
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Current RPS"
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"No errors"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Totals"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.22,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.32,
			ui.NewCol(0.65, d.sparklines),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.5, d.statusList),
			ui.NewCol(0.5, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	d.render()

	for {
		select {
		case <-d.ctx.Done():
			return
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.mu.Lock()
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				d.mu.Unlock()
				ui.Clear()
				d.render()
			}
		case now := <-ticker.C:
			d.update(d.source.Snapshot(), now)
			d.render()
		}
	}
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

// update refreshes all widget data from snap.
func (d *Dashboard) update(snap metrics.Snapshot, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := 0.0
	if window := now.Sub(d.lastUpdate).Seconds(); window > 0 {
		current = float64(snap.Total-d.lastTotal) / window
	}
	d.lastTotal = snap.Total
	d.lastUpdate = now

	d.rpsHistory = appendBounded(d.rpsHistory, current)
	d.sparklines.Sparklines[0].Data = d.rpsHistory
	if snap.LatencySamples > 0 {
		d.latencyHist = appendBounded(d.latencyHist, snap.MeanLatencyMs)
		d.sparklines.Sparklines[1].Data = d.latencyHist
	}

	d.rpsGauge.Percent = gaugePercent(current, d.runConfig.Rate)
	d.rpsGauge.Label = fmt.Sprintf("%.1f RPS", current)

	d.summaryPara.Text = fmt.Sprintf(
		"Target: %s %s\n%s\nElapsed: %s | Total: %d | Success Rate: %.1f%%",
		d.runConfig.Method,
		d.runConfig.TargetURL,
		formatRunParams(d.runConfig),
		now.Sub(d.startTime).Round(time.Second),
		snap.Total,
		snap.SuccessRate,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Total Requests:    %d\nSuccessful:        %d\nFailed:            %d\nTimeouts:          %d\nAverage RPS:       %.2f\nSent / Received:   %d / %d bytes",
		snap.Total,
		snap.Successes,
		snap.Failures,
		snap.Timeouts,
		snap.RequestsPerSec,
		snap.BytesSent,
		snap.BytesReceived,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP90:  %.2fms\nP95:  %.2fms\nP99:  %.2fms\nMax:  %.2fms",
		snap.MinLatencyMs,
		snap.MeanLatencyMs,
		snap.P50LatencyMs,
		snap.P90LatencyMs,
		snap.P95LatencyMs,
		snap.P99LatencyMs,
		snap.MaxLatencyMs,
	)

	d.statusList.Rows = formatStatusRows(snap)
	d.errorList.Rows = formatErrorRows(snap)
}

func appendBounded(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return history
}

// gaugePercent scales current against the target rate. Unpaced runs use a
// floor of 100 RPS so the gauge still moves.
func gaugePercent(current float64, target int) int {
	ceiling := float64(target)
	if ceiling <= 0 {
		ceiling = 100
		if current > ceiling {
			ceiling = current
		}
	}
	pct := int(current / ceiling * 100)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func formatStatusRows(snap metrics.Snapshot) []string {
	rows := metrics.StatusCodeRows(snap.StatusCodes)
	if len(rows) == 0 {
		return []string{"Awaiting data"}
	}
	if len(rows) > maxListRows {
		rows = rows[:maxListRows]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		color := "green"
		if strings.HasPrefix(row.Key, "4") || strings.HasPrefix(row.Key, "5") {
			color = "red"
		}
		share := 0.0
		if snap.Total > 0 {
			share = float64(row.Count) / float64(snap.Total) * 100
		}
		formatted = append(formatted, fmt.Sprintf("[%s](fg:%s) %d (%.1f%%)", row.Key, color, row.Count, share))
	}
	return formatted
}

func formatErrorRows(snap metrics.Snapshot) []string {
	rows := metrics.TopCounts(snap.Errors, maxListRows)
	if len(rows) == 0 && snap.Timeouts == 0 {
		return []string{"[No errors](fg:green)"}
	}
	formatted := make([]string, 0, len(rows)+1)
	if snap.Timeouts > 0 {
		formatted = append(formatted, fmt.Sprintf("[Timeout](fg:red) %d", snap.Timeouts))
	}
	for _, row := range rows {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", metrics.FriendlyErrorName(row.Key), row.Count))
	}
	return formatted
}

// formatRunParams formats the run configuration for the summary panel.
func formatRunParams(cfg RunConfig) string {
	var parts []string

	if cfg.Mode != "" {
		parts = append(parts, fmt.Sprintf("Mode: %s", cfg.Mode))
	}
	if cfg.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Concurrency: %d", cfg.Concurrency))
	}
	if cfg.Rate > 0 {
		rate := fmt.Sprintf("Rate: %d/s", cfg.Rate)
		if cfg.ArrivalModel != "" {
			rate += " " + cfg.ArrivalModel
		}
		parts = append(parts, rate)
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if cfg.Total > 0 {
		parts = append(parts, fmt.Sprintf("Total: %d", cfg.Total))
	} else if cfg.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", cfg.Duration))
	}
	if cfg.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", cfg.Timeout))
	}
	if cfg.Stealth {
		parts = append(parts, "Stealth")
	}
	if cfg.RandomDelay {
		parts = append(parts, "Random delay")
	}
	if cfg.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", cfg.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
