package extractor

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Options configures a backend at construction time
type Options struct {
	Proxy string
}

// Factory builds a backend from options
type Factory func(opts Options) (Extractor, error)

// backendsByName maps backend names to their factories
var backendsByName = map[string]Factory{}

// DefaultBackend is used when no backend is configured
const DefaultBackend = "kkdai"

// Register adds a backend factory under one or more names
func Register(f Factory, names ...string) {
	for _, name := range names {
		backendsByName[strings.ToLower(name)] = f
	}
}

// New builds the backend registered under name. An empty name selects DefaultBackend.
func New(name string, opts Options) (Extractor, error) {
	if name == "" {
		name = DefaultBackend
	}
	f, ok := backendsByName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown extractor %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return f(opts)
}

// Names returns all registered backend names, sorted
func Names() []string {
	names := make([]string, 0, len(backendsByName))
	for name := range backendsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// httpClient builds the client shared by backends, honoring the proxy option
func httpClient(opts Options) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport}, nil
}
