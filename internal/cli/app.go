package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/config"
	"github.com/filehop/filehop/internal/devices"
	"github.com/filehop/filehop/internal/http"
	"github.com/filehop/filehop/internal/models"
	"github.com/filehop/filehop/internal/notify"
	"github.com/filehop/filehop/internal/pathutil"
	"github.com/filehop/filehop/internal/services"
	"github.com/filehop/filehop/internal/state"
	"github.com/filehop/filehop/internal/transfer"
)

// loadConfig reads the --config file (or the default one) and validates it.
func loadConfig() (*config.Config, error) {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return loaded, nil
}

// getAPIClient creates the file-service client from the loaded config.
func getAPIClient() (*api.Client, error) {
	httpClient, err := http.NewTransferClient(cfg.HTTPOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}
	client, err := api.NewClient(api.Config{
		LocalOrigin: cfg.Client.LocalOrigin,
		HTTPClient:  httpClient,
		Logger:      GetLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return client, nil
}

// newRegistry builds a device registry over the configured peers.
func newRegistry(local models.Device) (*devices.Registry, error) {
	return devices.NewRegistry(devices.Config{
		Local:    local,
		Peers:    cfg.Discovery.Peers,
		Interval: cfg.PollInterval(),
		Prober: devices.NewHTTPProber(devices.ProberOptions{
			Retries: cfg.Discovery.ProbeRetries,
			Logger:  GetLogger(),
		}),
		Logger: GetLogger(),
	})
}

// session is what a device command works with: the client, the target
// endpoint and the browsing state opened at the device's home directory.
type session struct {
	client  *api.Client
	ep      api.Endpoint
	device  models.Device
	browser *state.Browser
}

// openSession resolves --device and asks the device who it is. A device
// that does not answer is an error; nothing else can work either.
func openSession(ctx context.Context) (*session, error) {
	client, err := getAPIClient()
	if err != nil {
		return nil, err
	}
	ep, err := api.ParseEndpoint(deviceAddr)
	if err != nil {
		return nil, err
	}
	device, err := client.DeviceInfo(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("device %s is not reachable: %w", ep, err)
	}

	browser := state.NewBrowser(client, nil, GetLogger())
	browser.SetDevice(device, ep)
	return &session{client: client, ep: ep, device: device, browser: browser}, nil
}

// resolve turns a command-line path into an absolute device path. Relative
// paths start at the device's home directory.
func (s *session) resolve(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return pathutil.Normalize(arg)
	}
	return pathutil.Normalize(pathutil.Join(s.browser.Path(), arg))
}

func (s *session) transfers(store *transfer.Store) *services.TransferService {
	return services.NewTransferService(services.TransferServiceConfig{
		Client:   s.client,
		Store:    store,
		Logger:   GetLogger(),
		Notifier: notify.NewNotifier(cfg.Notifications, GetLogger()),
	})
}

func (s *session) files() *services.FileService {
	return services.NewFileService(s.client, GetLogger())
}
