package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/models"
)

// Forwarder is a Sink that ships entries to a device's POST /api/logs.
// Entries written before the device answers a HEAD /api/device/info probe
// are held (up to LogForwardMaxPending, oldest dropped first) and flushed
// once it does. Delivery failures are ignored; the forwarder never logs
// through the Logger it feeds.
type Forwarder struct {
	client        *http.Client
	baseURL       string
	source        string
	probeInterval time.Duration

	mu      sync.Mutex
	ready   bool
	pending []models.LogRecord

	queue chan models.LogRecord
}

// NewForwarder creates a forwarder for the device at baseURL
// (e.g. "http://127.0.0.1:8090"). source tags every record.
func NewForwarder(baseURL, source string, client *http.Client) *Forwarder {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Forwarder{
		client:        client,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		source:        source,
		probeInterval: constants.LogForwardProbeInterval,
		queue:         make(chan models.LogRecord, constants.LogForwardMaxPending),
	}
}

// Write implements Sink. It never blocks.
func (f *Forwarder) Write(e Entry) {
	rec := models.LogRecord{
		Time:    e.Time,
		Level:   e.Level,
		Message: e.Message,
		Source:  f.source,
		Fields:  e.Fields,
	}
	if e.Component != "" {
		if rec.Fields == nil {
			rec.Fields = make(map[string]any, 1)
		}
		rec.Fields[FieldComponent] = e.Component
	}

	f.mu.Lock()
	if !f.ready {
		if len(f.pending) >= constants.LogForwardMaxPending {
			f.pending = f.pending[1:]
		}
		f.pending = append(f.pending, rec)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	select {
	case f.queue <- rec:
	default:
		// backend slower than the log rate; drop
	}
}

// Ready reports whether the backend has answered a probe.
func (f *Forwarder) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

// Pending returns the number of entries held until the backend is ready.
func (f *Forwarder) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Run probes the backend until it is reachable, flushes held entries and
// then delivers queued entries until ctx is done.
func (f *Forwarder) Run(ctx context.Context) {
	for !f.probe(ctx) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.probeInterval):
		}
	}

	f.mu.Lock()
	f.ready = true
	held := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, rec := range held {
		f.send(ctx, rec)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case rec := <-f.queue:
			f.send(ctx, rec)
		}
	}
}

func (f *Forwarder) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.baseURL+"/api/device/info", nil)
	if err != nil {
		return false
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (f *Forwarder) send(ctx context.Context, rec models.LogRecord) {
	body, err := json.Marshal(rec)
	if err != nil {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/api/logs", bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
