package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
)

// RawSnapshot is the pre-execution document: the response body exactly as
// delivered, before any script has run.
type RawSnapshot struct {
	Body       string
	StatusCode int
	FinalURL   string

	// Degraded is set when the snapshot was obtained on the fallback
	// transport (Chrome-fingerprint TLS, ALPN locked to http/1.1).
	Degraded bool
}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Should never happen with a valid utls version; the degraded
		// client then falls back to an uncustomized hello.
		return
	}
	// Drop h2 from the ALPN extension so the server never negotiates
	// HTTP/2, which Go's http.Transport cannot frame over a utls conn.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// RawFetcher captures pre-execution snapshots. The primary attempt uses the
// standard transport; exactly one fallback retry runs on the degraded
// transport when the primary fails at the protocol level.
type RawFetcher struct {
	primary  *http.Client
	degraded *http.Client
}

// NewRawFetcher builds both transports. proxy applies to the primary
// transport only; the degraded path dials TLS itself.
func NewRawFetcher(proxy string, timeout time.Duration) *RawFetcher {
	primaryTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}
	if proxy != "" {
		if u, err := url.Parse(proxy); err == nil {
			primaryTransport.Proxy = http.ProxyURL(u)
		}
	}

	degradedTransport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("rawfetch: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	}

	return &RawFetcher{
		primary: &http.Client{
			Transport:     primaryTransport,
			Timeout:       timeout,
			CheckRedirect: redirectPolicy,
		},
		degraded: &http.Client{
			Transport:     degradedTransport,
			Timeout:       timeout,
			CheckRedirect: redirectPolicy,
		},
	}
}

// FetchPrimary retrieves the raw document on the standard transport. Any
// HTTP response, including 4xx/5xx interstitials, yields a snapshot — the
// caller classifies those. Only transport failures are errors.
func (f *RawFetcher) FetchPrimary(ctx context.Context, rawURL, userAgent string) (*RawSnapshot, error) {
	return f.fetchWith(ctx, f.primary, rawURL, userAgent)
}

// FetchDegraded retrieves the raw document on the fallback transport:
// Chrome-fingerprint TLS with the protocol forced down to HTTP/1.1. The
// session runs this exactly once, after a protocol-level primary failure.
func (f *RawFetcher) FetchDegraded(ctx context.Context, rawURL, userAgent string) (*RawSnapshot, error) {
	snap, err := f.fetchWith(ctx, f.degraded, rawURL, userAgent)
	if err != nil {
		return nil, fmt.Errorf("degraded transport retry failed: %w", err)
	}
	snap.Degraded = true
	return snap, nil
}

func (f *RawFetcher) fetchWith(ctx context.Context, client *http.Client, rawURL, userAgent string) (*RawSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rawfetch: build request: %w", err)
	}

	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 10 MB cap to prevent unbounded memory use.
	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("rawfetch: read body: %w", err)
	}

	return &RawSnapshot{
		Body:       string(body),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// protocolErrorMarkers are substrings that identify a transport-level
// protocol failure (negotiation mismatch, framing error, TLS rejection)
// rather than an unreachable host or a timeout. Only these justify the
// degraded retry.
var protocolErrorMarkers = []string{
	"PROTOCOL_ERROR",
	"http2:",
	"http2 ",
	"malformed HTTP response",
	"malformed HTTP version",
	"oversized record received",
	"handshake failure",
	"tls: ",
	"unexpected EOF",
	"transport connection broken",
	"REFUSED_STREAM",
	"ENHANCE_YOUR_CALM",
}

// IsProtocolError reports whether err looks like a transport protocol
// failure. Context cancellation and deadline expiry are never protocol
// errors — those must fail the navigation outright.
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	for _, marker := range protocolErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
