package worker

import (
	"net/http"
	"strings"
)

// decision is the routing outcome for one intercepted request, evaluated
// highest-priority rule first.
type decision int

const (
	// decideBypass: non-GET or non-http(s); forwarded untouched, except
	// first-party writes that fail offline, which are queued.
	decideBypass decision = iota
	// decideNetworkFirst: data-API requests; live response preferred,
	// dynamic partition as the resilience net.
	decideNetworkFirst
	// decideCacheFirst: static assets; stable within a session, so the
	// static partition is consulted before the network.
	decideCacheFirst
	// decideNavigation: top-level page loads; must never surface a raw
	// transport error.
	decideNavigation
)

func (d decision) String() string {
	switch d {
	case decideBypass:
		return "bypass"
	case decideNetworkFirst:
		return "network_first"
	case decideCacheFirst:
		return "cache_first"
	case decideNavigation:
		return "navigation"
	default:
		return "unknown"
	}
}

// classify applies the routing table to an intercepted request.
func (w *Worker) classify(r *http.Request) decision {
	if r.Method != http.MethodGet {
		return decideBypass
	}
	if r.URL.IsAbs() && r.URL.Scheme != "http" && r.URL.Scheme != "https" {
		return decideBypass
	}
	if w.isAPIRequest(r) {
		return decideNetworkFirst
	}
	if w.isStaticAsset(r) {
		return decideCacheFirst
	}
	if isNavigation(r) {
		return decideNavigation
	}
	return decideNetworkFirst
}

// isAPIRequest matches the first-party API path prefix or the external
// backend-as-a-service host substring.
func (w *Worker) isAPIRequest(r *http.Request) bool {
	if w.cfg.APIPrefix != "" && strings.HasPrefix(r.URL.Path, w.cfg.APIPrefix) {
		return true
	}
	if w.cfg.BackendHost == "" {
		return false
	}
	if r.URL.IsAbs() && strings.Contains(r.URL.Host, w.cfg.BackendHost) {
		return true
	}
	return strings.Contains(r.Host, w.cfg.BackendHost)
}

// isStaticAsset suffix-matches the static-asset extension allow-list.
func (w *Worker) isStaticAsset(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	for _, suffix := range w.cfg.StaticSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// isNavigation reports whether the request is a top-level page load.
func isNavigation(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		strings.Contains(r.Header.Get("Accept"), "text/html")
}
