// Package pool caches HTTP clients so requests routed through the same proxy
// share one transport and its idle connections.
package pool

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Factory builds a client for a proxy. A nil proxy means a direct connection.
type Factory func(proxy *url.URL) *http.Client

// ClientPool lazily creates one client per proxy key.
type ClientPool struct {
	clients sync.Map // map[string]*http.Client
	mu      sync.Mutex
	factory Factory
}

// NewClientPool creates a pool that builds clients with factory.
func NewClientPool(factory Factory) *ClientPool {
	return &ClientPool{factory: factory}
}

// Get returns the client for key, creating it on first use. An empty key
// selects the direct client.
func (p *ClientPool) Get(key string) (*http.Client, error) {
	if v, ok := p.clients.Load(key); ok {
		return v.(*http.Client), nil
	}

	var proxy *url.URL
	if key != "" {
		u, err := ParseProxy(key)
		if err != nil {
			return nil, err
		}
		proxy = u
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.clients.Load(key); ok {
		return v.(*http.Client), nil
	}
	client := p.factory(proxy)
	p.clients.Store(key, client)
	return client, nil
}

// Len reports how many clients have been created.
func (p *ClientPool) Len() int {
	n := 0
	p.clients.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Keys returns the keys of all created clients in sorted order.
func (p *ClientPool) Keys() []string {
	var keys []string
	p.clients.Range(func(k, _ interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Close releases idle connections held by every client.
func (p *ClientPool) Close() {
	p.clients.Range(func(_, v interface{}) bool {
		v.(*http.Client).CloseIdleConnections()
		return true
	})
}

// ParseProxy validates a proxy URL.
func ParseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid proxy %q: %w", raw, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy %q: missing host", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("invalid proxy %q: unsupported scheme %q", raw, u.Scheme)
	}
	return u, nil
}
