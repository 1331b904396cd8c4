package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	acceptOptions = []string{
		"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"application/json,text/plain,*/*",
		"*/*",
	}
	acceptLanguageOptions = []string{
		"en-US,en;q=0.9",
		"es-ES,es;q=0.9",
		"fr-FR,fr;q=0.9",
		"de-DE,de;q=0.9",
		"zh-CN,zh;q=0.9",
	}
	connectionOptions   = []string{"keep-alive", "close"}
	cacheControlOptions = []string{"no-cache", "max-age=0", "no-store"}
)

const acceptEncoding = "gzip, deflate, br"

// Probabilities of each stealth header being attached to a request.
const (
	ForwardedForProbability = 0.3
	RealIPProbability       = 0.2
	DNTProbability          = 0.4
)

// HeaderGenerator produces a randomized header set for each request.
type HeaderGenerator struct {
	userAgents []string
	custom     http.Header
	stealth    bool
}

// NewHeaderGenerator validates custom headers and returns a generator.
// Custom headers replace generated ones with the same name.
func NewHeaderGenerator(userAgents []string, custom map[string]string, stealth bool) (*HeaderGenerator, error) {
	if len(userAgents) == 0 {
		return nil, errors.New("at least one user agent is required")
	}

	headers := http.Header{}
	for key, value := range custom {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}

	return &HeaderGenerator{
		userAgents: append([]string(nil), userAgents...),
		custom:     headers,
		stealth:    stealth,
	}, nil
}

// Generate returns a new header set drawn from rng.
func (g *HeaderGenerator) Generate(rng Rand) http.Header {
	h := make(http.Header, 10+len(g.custom))
	h.Set("User-Agent", pick(rng, g.userAgents))
	h.Set("Accept", pick(rng, acceptOptions))
	h.Set("Accept-Language", pick(rng, acceptLanguageOptions))
	h.Set("Accept-Encoding", acceptEncoding)
	h.Set("Connection", pick(rng, connectionOptions))
	h.Set("Cache-Control", pick(rng, cacheControlOptions))

	if g.stealth {
		if rng.Float64() < ForwardedForProbability {
			h.Set("X-Forwarded-For", randomIPv4(rng))
		}
		if rng.Float64() < RealIPProbability {
			h.Set("X-Real-Ip", randomIPv4(rng))
		}
		if rng.Float64() < DNTProbability {
			h.Set("Dnt", "1")
		}
	}

	for key, values := range g.custom {
		h[key] = append([]string(nil), values...)
	}
	return h
}

func pick(rng Rand, options []string) string {
	return options[rng.IntN(len(options))]
}

// randomIPv4 returns a dotted quad with every octet in [1, 255].
func randomIPv4(rng Rand) string {
	var b strings.Builder
	for i := 0; i < 4; i++ {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(rng.IntN(255) + 1))
	}
	return b.String()
}
