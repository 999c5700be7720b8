// Package network provides the tuned HTTP client shared by the mirror,
// manifest and backup lookups.
package network

import (
	"net/http"
	"time"
)

// Options tunes a client built by NewClient.
type Options struct {
	Timeout         time.Duration
	MaxConnsPerHost int
	// Fingerprint routes HTTPS requests through a browser TLS fingerprint.
	Fingerprint bool
}

// Client is the process-wide default used when no client is injected.
var Client = NewClient(Options{Timeout: time.Minute})

// NewClient builds an http.Client with pooled connections sized for a
// handful of mirror hosts.
func NewClient(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}

	base := newTransport(opts.MaxConnsPerHost)

	var rt http.RoundTripper = base
	if opts.Fingerprint {
		rt = NewFingerprintTransport(base, opts.Timeout)
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: rt,
	}
}

func newTransport(maxConnsPerHost int) *http.Transport {
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = 16
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = maxConnsPerHost
	t.MaxConnsPerHost = maxConnsPerHost
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = time.Second
	return t
}
