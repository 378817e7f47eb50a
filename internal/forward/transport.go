// Package forward ships poll samples to a collector over HTTP/2.
package forward

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/http2"
)

// BuildHTTP2Client creates an HTTP/2 client for the collector at target.
//
// https targets negotiate TLS 1.3 using tlsConfig (nil uses system roots).
// http targets speak HTTP/2 in cleartext (h2c) with prior knowledge.
func BuildHTTP2Client(target *url.URL, tlsConfig *tls.Config) (*http.Client, error) {
	if target == nil {
		return nil, fmt.Errorf("target required")
	}

	var transport *http2.Transport
	switch target.Scheme {
	case "https":
		cfg := &tls.Config{MinVersion: tls.VersionTLS13}
		if tlsConfig != nil {
			cfg = tlsConfig.Clone()
			if cfg.MinVersion < tls.VersionTLS13 {
				cfg.MinVersion = tls.VersionTLS13
			}
		}
		transport = &http2.Transport{TLSClientConfig: cfg}
	case "http":
		transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	default:
		return nil, fmt.Errorf("unsupported collector scheme %q: must be http or https", target.Scheme)
	}

	return &http.Client{Transport: transport}, nil
}
