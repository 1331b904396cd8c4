package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// BannerInfo describes a run before it starts.
type BannerInfo struct {
	RunID        string
	Target       string
	Method       string
	Duration     time.Duration
	Requests     int
	Concurrency  int
	RPS          int
	Timeout      time.Duration
	Mode         string
	ArrivalModel string
	Stealth      bool
	RandomDelay  bool
}

// PrintBanner writes the boxed run summary shown before load starts.
func PrintBanner(w io.Writer, info BannerInfo) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("httpstorm"))
	b.WriteString("\n")
	if info.RunID != "" {
		fmt.Fprintf(&b, "Run ID:       %s\n", info.RunID)
	}
	fmt.Fprintf(&b, "Target:       %s\n", info.Target)
	fmt.Fprintf(&b, "Method:       %s\n", info.Method)
	switch {
	case info.Requests > 0:
		fmt.Fprintf(&b, "Requests:     %d\n", info.Requests)
	case info.Duration > 0:
		fmt.Fprintf(&b, "Duration:     %s\n", info.Duration)
	default:
		b.WriteString("Duration:     unlimited\n")
	}
	fmt.Fprintf(&b, "Concurrency:  %d\n", info.Concurrency)
	if info.RPS > 0 {
		fmt.Fprintf(&b, "Rate:         %d req/s (%s)\n", info.RPS, info.ArrivalModel)
	} else {
		b.WriteString("Rate:         unlimited\n")
	}
	fmt.Fprintf(&b, "Timeout:      %s\n", info.Timeout)
	fmt.Fprintf(&b, "Mode:         %s\n", info.Mode)
	fmt.Fprintf(&b, "Stealth:      %s\n", onOff(info.Stealth))
	fmt.Fprintf(&b, "Random delay: %s", onOff(info.RandomDelay))

	fmt.Fprintln(w, bannerBox.Render(b.String()))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
