package http

import (
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpproxy"
)

// proxyFunc resolves the transport's Proxy hook for the configured mode.
func proxyFunc(opts ClientOptions) (func(*nethttp.Request) (*url.URL, error), error) {
	switch strings.ToLower(opts.ProxyMode) {
	case "", "none", "no-proxy":
		return nil, nil
	case "system":
		return nethttp.ProxyFromEnvironment, nil
	case "manual":
		if opts.ProxyURL == "" {
			return nil, fmt.Errorf("proxy mode is manual but no proxy URL is set")
		}
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.ProxyURL, err)
		}
		return proxyFuncWithBypass(proxyURL, opts.NoProxy), nil
	default:
		return nil, fmt.Errorf("unsupported proxy mode: %s", opts.ProxyMode)
	}
}

// proxyFuncWithBypass returns a proxy function that respects the NoProxy bypass list.
// If noProxy is empty, behaves identically to nethttp.ProxyURL.
// When noProxy is set, uses golang.org/x/net/http/httpproxy to match hosts/CIDRs,
// which lets a LAN range such as 192.168.0.0/16 go direct.
func proxyFuncWithBypass(proxyURL *url.URL, noProxy string) func(*nethttp.Request) (*url.URL, error) {
	if noProxy == "" {
		return nethttp.ProxyURL(proxyURL)
	}
	cfg := httpproxy.Config{
		HTTPProxy:  proxyURL.String(),
		HTTPSProxy: proxyURL.String(),
		NoProxy:    noProxy,
	}
	pf := cfg.ProxyFunc()
	return func(req *nethttp.Request) (*url.URL, error) {
		return pf(req.URL)
	}
}
