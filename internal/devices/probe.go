package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/models"
)

// Prober asks one peer address ("host:port") for its device info.
type Prober interface {
	Probe(ctx context.Context, addr string) (models.Device, error)
}

// retryLogger adapts the registry logger to retryablehttp.LeveledLogger.
// An offline peer fails every poll, so its warnings and errors are logged at
// debug level and info/debug chatter is dropped.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("probe retry error: " + msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("probe retry: " + msg)
}

// HTTPProber probes GET /api/device/info with a short timeout and a small
// number of retries.
type HTTPProber struct {
	client *http.Client
}

// ProberOptions tunes an HTTPProber. Zero values take the defaults from
// internal/constants.
type ProberOptions struct {
	Timeout   time.Duration
	Retries   int
	RetryWait time.Duration
	Logger    *logging.Logger
}

// NewHTTPProber builds a prober on a retrying client.
func NewHTTPProber(opts ProberOptions) *HTTPProber {
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DeviceProbeTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = constants.DeviceProbeRetryWait
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	base := cleanhttp.DefaultPooledClient()
	base.Timeout = opts.Timeout

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = opts.Retries
	retryClient.RetryWaitMin = opts.RetryWait
	retryClient.RetryWaitMax = opts.RetryWait * 4
	retryClient.Logger = &retryLogger{logger: logger}

	return &HTTPProber{client: retryClient.StandardClient()}
}

// Probe implements Prober. The returned device is keyed by the address it
// answered on: the probed host replaces whatever IP the peer reports about
// itself, and a missing port is filled from the address.
func (p *HTTPProber) Probe(ctx context.Context, addr string) (models.Device, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return models.Device{}, fmt.Errorf("invalid peer address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return models.Device{}, fmt.Errorf("invalid peer port %q: %w", addr, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/device/info", nil)
	if err != nil {
		return models.Device{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.Device{}, fmt.Errorf("probe %s: %w", addr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return models.Device{}, fmt.Errorf("probe %s: unexpected status %d", addr, resp.StatusCode)
	}

	var dev models.Device
	if err := json.NewDecoder(resp.Body).Decode(&dev); err != nil {
		return models.Device{}, fmt.Errorf("probe %s: decode device info: %w", addr, err)
	}
	dev.IP = host
	if dev.Port == 0 {
		dev.Port = port
	}
	if dev.Platform == "" {
		dev.Platform = models.PlatformUnknown
	}
	return dev, nil
}
