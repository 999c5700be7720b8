package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/anisan-cli/anistream/log"
	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// FingerprintTransport sends HTTPS requests with a Chrome 120 Client Hello.
// It tries HTTP/2 first and falls back to HTTP/1.1 when the server refuses
// h2. Plain HTTP requests go straight to the wrapped transport.
type FingerprintTransport struct {
	plain   http.RoundTripper
	h2      *http2.Transport
	h1      *http.Transport
	timeout time.Duration
}

// NewFingerprintTransport wraps plain, which keeps serving non-TLS requests.
func NewFingerprintTransport(plain http.RoundTripper, timeout time.Duration) *FingerprintTransport {
	t := &FingerprintTransport{plain: plain, timeout: timeout}

	t.h2 = &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return t.dial(ctx, network, addr, nil)
		},
	}
	t.h1 = &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return t.dial(ctx, network, addr, []string{"http/1.1"})
		},
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *FingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	if req.Body != nil && req.GetBody == nil {
		return nil, err
	}

	log.Debugf("h2 round trip to %s failed, retrying over http/1.1: %v", req.URL.Host, err)

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, bodyErr
		}
		retry.Body = body
	}
	return t.h1.RoundTrip(retry)
}

func (t *FingerprintTransport) dial(ctx context.Context, network, addr string, protos []string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	dialer := &net.Dialer{Timeout: t.timeout}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		NextProtos: protos,
	}, utls.HelloChrome_120)

	if err := tlsConn.Handshake(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
