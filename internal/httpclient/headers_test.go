package httpclient

import (
	"net"
	"strings"
	"testing"
)

// scriptedRand returns fixed values so header choices are predictable.
type scriptedRand struct {
	pickLast bool
	float    float64
}

func (s scriptedRand) IntN(n int) int {
	if s.pickLast {
		return n - 1
	}
	return 0
}

func (s scriptedRand) Int64N(n int64) int64 {
	if s.pickLast {
		return n - 1
	}
	return 0
}

func (s scriptedRand) Float64() float64 { return s.float }

func TestNewHeaderGeneratorRejectsInvalidHeaders(t *testing.T) {
	tests := []struct {
		name   string
		agents []string
		custom map[string]string
	}{
		{"no user agents", nil, nil},
		{"empty key", []string{"ua"}, map[string]string{"  ": "v"}},
		{"newline in value", []string{"ua"}, map[string]string{"X-Test": "a\r\nb"}},
		{"newline in key", []string{"ua"}, map[string]string{"X-\nTest": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHeaderGenerator(tt.agents, tt.custom, false); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGenerateBaselineHeaders(t *testing.T) {
	gen, err := NewHeaderGenerator([]string{"agent-a", "agent-b"}, nil, false)
	if err != nil {
		t.Fatalf("NewHeaderGenerator: %v", err)
	}

	first := gen.Generate(scriptedRand{})
	if got := first.Get("User-Agent"); got != "agent-a" {
		t.Errorf("User-Agent = %q, want agent-a", got)
	}
	if got := first.Get("Accept"); got != acceptOptions[0] {
		t.Errorf("Accept = %q", got)
	}
	if got := first.Get("Accept-Encoding"); got != "gzip, deflate, br" {
		t.Errorf("Accept-Encoding = %q", got)
	}

	last := gen.Generate(scriptedRand{pickLast: true, float: 0})
	if got := last.Get("User-Agent"); got != "agent-b" {
		t.Errorf("User-Agent = %q, want agent-b", got)
	}
	if got := last.Get("Accept-Language"); got != "zh-CN,zh;q=0.9" {
		t.Errorf("Accept-Language = %q", got)
	}
	if got := last.Get("Connection"); got != "close" {
		t.Errorf("Connection = %q", got)
	}
	if got := last.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	for _, h := range []string{"X-Forwarded-For", "X-Real-Ip", "Dnt"} {
		if last.Get(h) != "" {
			t.Errorf("%s set without stealth", h)
		}
	}
}

func TestGenerateStealthHeaders(t *testing.T) {
	gen, err := NewHeaderGenerator([]string{"ua"}, nil, true)
	if err != nil {
		t.Fatalf("NewHeaderGenerator: %v", err)
	}

	all := gen.Generate(scriptedRand{pickLast: true, float: 0})
	if got := all.Get("X-Forwarded-For"); got != "255.255.255.255" {
		t.Errorf("X-Forwarded-For = %q", got)
	}
	if got := all.Get("X-Real-Ip"); got != "255.255.255.255" {
		t.Errorf("X-Real-Ip = %q", got)
	}
	if got := all.Get("Dnt"); got != "1" {
		t.Errorf("Dnt = %q", got)
	}

	none := gen.Generate(scriptedRand{float: 0.99})
	for _, h := range []string{"X-Forwarded-For", "X-Real-Ip", "Dnt"} {
		if none.Get(h) != "" {
			t.Errorf("%s set although draw exceeded probability", h)
		}
	}

	// 0.35 clears the forwarded-for and real-ip thresholds but not DNT.
	some := gen.Generate(scriptedRand{float: 0.35})
	if some.Get("X-Forwarded-For") != "" || some.Get("X-Real-Ip") != "" {
		t.Error("forwarding headers set for draw 0.35")
	}
	if some.Get("Dnt") != "1" {
		t.Error("Dnt missing for draw 0.35")
	}
}

func TestStealthAddressesAreValid(t *testing.T) {
	gen, err := NewHeaderGenerator([]string{"ua"}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	rng := NewRand(7)
	for i := 0; i < 500; i++ {
		h := gen.Generate(rng)
		for _, key := range []string{"X-Forwarded-For", "X-Real-Ip"} {
			v := h.Get(key)
			if v == "" {
				continue
			}
			ip := net.ParseIP(v)
			if ip == nil || ip.To4() == nil {
				t.Fatalf("%s = %q is not an IPv4 address", key, v)
			}
			for _, octet := range ip.To4() {
				if octet == 0 {
					t.Fatalf("%s = %q contains a zero octet", key, v)
				}
			}
		}
	}
}

func TestCustomHeadersWin(t *testing.T) {
	gen, err := NewHeaderGenerator([]string{"ua"}, map[string]string{
		"user-agent": "custom-agent",
		"dnt":        "0",
		"X-Api-Key":  "secret",
	}, true)
	if err != nil {
		t.Fatalf("NewHeaderGenerator: %v", err)
	}
	h := gen.Generate(scriptedRand{float: 0})
	if got := h.Get("User-Agent"); got != "custom-agent" {
		t.Errorf("User-Agent = %q, want custom-agent", got)
	}
	if got := h.Get("Dnt"); got != "0" {
		t.Errorf("Dnt = %q, want 0", got)
	}
	if got := h.Get("X-Api-Key"); got != "secret" {
		t.Errorf("X-Api-Key = %q", got)
	}
}

func TestSelectionStaysWithinConfiguredLists(t *testing.T) {
	agents := []string{"one", "two", "three"}
	payloads := []string{`{"a":1}`, "plain", "[1,2]"}
	gen, err := NewHeaderGenerator(agents, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	picker := NewPayloadPicker(payloads)
	rng := NewRand(42)

	seenAgents := map[string]bool{}
	seenPayloads := map[string]bool{}
	for i := 0; i < 300; i++ {
		ua := gen.Generate(rng).Get("User-Agent")
		if !contains(agents, ua) {
			t.Fatalf("User-Agent %q not in configured list", ua)
		}
		seenAgents[ua] = true

		p := picker.Pick(rng)
		if !contains(payloads, p) {
			t.Fatalf("payload %q not in configured list", p)
		}
		seenPayloads[p] = true
	}
	if len(seenAgents) != len(agents) {
		t.Errorf("saw %d user agents, want %d", len(seenAgents), len(agents))
	}
	if len(seenPayloads) != len(payloads) {
		t.Errorf("saw %d payloads, want %d", len(seenPayloads), len(payloads))
	}
}

func TestSeededRandIsDeterministic(t *testing.T) {
	a, b := NewRand(99), NewRand(99)
	for i := 0; i < 50; i++ {
		if a.IntN(1000) != b.IntN(1000) {
			t.Fatal("same seed produced different sequences")
		}
	}
}

func TestEmptyPayloadPicker(t *testing.T) {
	p := NewPayloadPicker(nil)
	if p.Len() != 0 {
		t.Errorf("Len() = %d", p.Len())
	}
	if got := p.Pick(scriptedRand{}); got != "" {
		t.Errorf("Pick() = %q, want empty", got)
	}
	var nilPicker *PayloadPicker
	if nilPicker.Len() != 0 {
		t.Error("nil picker Len() != 0")
	}
}

func TestDelayRangeDraw(t *testing.T) {
	r := DelayRange{Min: 10, Max: 20}
	if got := r.draw(scriptedRand{}); got != 10 {
		t.Errorf("draw(low) = %v, want 10", got)
	}
	if got := r.draw(scriptedRand{pickLast: true}); got != 20 {
		t.Errorf("draw(high) = %v, want 20", got)
	}
	fixed := DelayRange{Min: 5, Max: 5}
	if got := fixed.draw(scriptedRand{pickLast: true}); got != 5 {
		t.Errorf("draw(fixed) = %v, want 5", got)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
