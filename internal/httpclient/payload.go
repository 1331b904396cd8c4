package httpclient

// PayloadPicker selects a request body from a fixed candidate list.
type PayloadPicker struct {
	payloads []string
}

// NewPayloadPicker returns a picker over payloads. An empty list yields a
// picker whose Pick always returns an empty body.
func NewPayloadPicker(payloads []string) *PayloadPicker {
	return &PayloadPicker{payloads: append([]string(nil), payloads...)}
}

// Len reports the number of candidate payloads.
func (p *PayloadPicker) Len() int {
	if p == nil {
		return 0
	}
	return len(p.payloads)
}

// Pick returns one payload drawn uniformly from the candidates.
func (p *PayloadPicker) Pick(rng Rand) string {
	if p.Len() == 0 {
		return ""
	}
	return p.payloads[rng.IntN(len(p.payloads))]
}
