// Package http builds the HTTP client used for device-to-device file operations.
package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"os"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/net/http2"

	"github.com/filehop/filehop/internal/constants"
)

// ClientOptions tunes the transfer client.
type ClientOptions struct {
	// ProxyMode is "none" (default), "system" (HTTP_PROXY/NO_PROXY from the
	// environment) or "manual" (ProxyURL with NoProxy bypass list).
	ProxyMode string
	ProxyURL  string
	NoProxy   string

	// DisableHTTP2 forces HTTP/1.1 for TLS peers.
	DisableHTTP2 bool
}

// NewTransferClient creates a pooled client for file transfers.
//
// Key features:
//   - Pooled keep-alive connections per device (cleanhttp base transport)
//   - No overall timeout; a stalled transfer ends when the transport errors
//     or its context is cancelled
//   - Disabled compression (payloads are arbitrary files)
//   - HTTP/2 for TLS peers unless disabled (DISABLE_HTTP2=true also works)
func NewTransferClient(opts ClientOptions) (*nethttp.Client, error) {
	tr := cleanhttp.DefaultPooledTransport()

	tr.DialContext = (&net.Dialer{
		Timeout:   constants.HTTPDialTimeout,
		KeepAlive: constants.HTTPDialKeepAlive,
	}).DialContext
	tr.MaxIdleConnsPerHost = constants.HTTPMaxIdleConnsPerHost
	tr.IdleConnTimeout = constants.HTTPIdleConnTimeout
	tr.ExpectContinueTimeout = constants.HTTPExpectContinueTimeout
	tr.DisableCompression = true
	tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	proxy, err := proxyFunc(opts)
	if err != nil {
		return nil, err
	}
	tr.Proxy = proxy

	if opts.DisableHTTP2 || os.Getenv("DISABLE_HTTP2") == "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	} else {
		tr.ForceAttemptHTTP2 = true
		_ = http2.ConfigureTransport(tr)
	}

	return &nethttp.Client{
		Transport: tr,
		Timeout:   0, // per-operation deadlines come from the context
	}, nil
}
