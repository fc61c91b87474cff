package http

import (
	"crypto/tls"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
)

func TestNewTransferClient_Defaults(t *testing.T) {
	client, err := NewTransferClient(ClientOptions{})
	if err != nil {
		t.Fatalf("NewTransferClient: %v", err)
	}
	if client.Timeout != 0 {
		t.Errorf("expected no overall timeout, got %v", client.Timeout)
	}
	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if !tr.DisableCompression {
		t.Error("compression should be disabled")
	}
	if tr.Proxy != nil {
		t.Error("default mode should not use a proxy")
	}
	if tr.TLSClientConfig == nil || tr.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Error("expected TLS 1.2 minimum")
	}
}

func TestNewTransferClient_DisableHTTP2(t *testing.T) {
	client, err := NewTransferClient(ClientOptions{DisableHTTP2: true})
	if err != nil {
		t.Fatalf("NewTransferClient: %v", err)
	}
	tr := client.Transport.(*nethttp.Transport)
	if tr.ForceAttemptHTTP2 {
		t.Error("ForceAttemptHTTP2 should be false")
	}
	if tr.TLSNextProto == nil || len(tr.TLSNextProto) != 0 {
		t.Error("TLSNextProto should be an empty map to disable h2")
	}
}

func TestNewTransferClient_InvalidProxy(t *testing.T) {
	if _, err := NewTransferClient(ClientOptions{ProxyMode: "bogus"}); err == nil {
		t.Error("expected error for unsupported proxy mode")
	}
}

func TestNewTransferClient_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client, err := NewTransferClient(ClientOptions{})
	if err != nil {
		t.Fatalf("NewTransferClient: %v", err)
	}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}
