// Package transport provides the HTTP transports used to reach storefronts.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// =============================================================================
// TLS FINGERPRINT TRANSPORT
// =============================================================================
//
// Storefront CDNs rate limit clients whose TLS ClientHello does not look like
// a browser. Product pages and cart endpoints are browser-facing, so requests
// present a browser fingerprint through uTLS:
//
//   1. uTLS with the browser's ClientHello
//   2. ALPN negotiates naturally (h2, http/1.1)
//   3. x/net/http2 frames the connection when h2 is negotiated
//
// Fingerprint "none" uses the standard library transport, which is what tests
// against httptest servers want.
// =============================================================================

// Fingerprint selects the ClientHello presented to storefronts.
type Fingerprint string

const (
	FingerprintChrome  Fingerprint = "chrome"
	FingerprintFirefox Fingerprint = "firefox"
	FingerprintNone    Fingerprint = "none"
)

// ParseFingerprint maps a config value to a Fingerprint. Empty means chrome.
func ParseFingerprint(s string) (Fingerprint, error) {
	switch f := Fingerprint(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FingerprintChrome, nil
	case FingerprintChrome, FingerprintFirefox, FingerprintNone:
		return f, nil
	default:
		return "", fmt.Errorf("unknown TLS fingerprint %q", s)
	}
}

// New returns a RoundTripper for the given fingerprint.
func New(fp Fingerprint, timeout time.Duration) http.RoundTripper {
	switch fp {
	case FingerprintNone:
		return &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
			TLSHandshakeTimeout: timeout,
			ForceAttemptHTTP2:   true,
		}
	case FingerprintFirefox:
		return newFingerprintTransport(timeout, utls.HelloFirefox_Auto)
	default:
		return NewChromeTransport(timeout)
	}
}

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint to upstream servers. Supports both HTTP/2 and HTTP/1.1 based on
// ALPN negotiation.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	return newFingerprintTransport(timeout, utls.HelloChrome_Auto)
}

func newFingerprintTransport(timeout time.Duration, hello utls.ClientHelloID) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2Transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialFingerprintTLS(ctx, dialer, hello, network, addr)
		},
	}

	h1Transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialFingerprintTLS(ctx, dialer, hello, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &fingerprintTransport{
		h2: h2Transport,
		h1: h1Transport,
	}
}

// fingerprintTransport wraps HTTP/2 and HTTP/1.1 transports sharing one
// ClientHello.
type fingerprintTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip implements http.RoundTripper.
// Plain http URLs skip TLS entirely; https tries HTTP/2 first and falls back
// to HTTP/1.1 when the server doesn't speak h2.
func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "http" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}
	if req.Body != nil && req.GetBody == nil {
		// body already consumed by the h2 attempt
		return nil, err
	}
	if req.GetBody != nil {
		body, berr := req.GetBody()
		if berr != nil {
			return nil, berr
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

// dialFingerprintTLS establishes a TLS connection with the given fingerprint.
func dialFingerprintTLS(ctx context.Context, dialer *net.Dialer, hello utls.ClientHelloID, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, hello)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}
