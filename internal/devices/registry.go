// Package devices keeps the set of reachable peers. A registry polls the
// configured peer addresses on a fixed interval and replaces its snapshot
// wholesale on every tick; a peer that misses one probe is gone until it
// answers again.
package devices

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/events"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/models"
)

// Config configures a Registry.
type Config struct {
	// Local is this machine's identity.
	Local models.Device

	// Peers are "host" or "host:port" addresses probed every interval.
	Peers []string

	Interval time.Duration
	Prober   Prober
	EventBus *events.EventBus
	Logger   *logging.Logger
}

// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	local    models.Device
	devices  []models.Device
	selected *models.Device
	lastPoll time.Time

	peers    []string
	interval time.Duration
	prober   Prober
	bus      *events.EventBus
	logger   *logging.Logger
}

// NewRegistry creates a registry. The local device starts selected.
func NewRegistry(cfg Config) (*Registry, error) {
	peers := make([]string, 0, len(cfg.Peers))
	seen := make(map[string]bool)
	for _, p := range cfg.Peers {
		addr, err := NormalizePeer(p)
		if err != nil {
			return nil, err
		}
		if !seen[addr] {
			seen[addr] = true
			peers = append(peers, addr)
		}
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = constants.DevicePollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	prober := cfg.Prober
	if prober == nil {
		prober = NewHTTPProber(ProberOptions{Retries: constants.DeviceProbeRetries, Logger: logger})
	}

	local := cfg.Local
	r := &Registry{
		local:    local,
		selected: &local,
		peers:    peers,
		interval: interval,
		prober:   prober,
		bus:      cfg.EventBus,
		logger:   logger.Component("devices"),
	}
	return r, nil
}

// NormalizePeer turns "host" or "host:port" into "host:port".
func NormalizePeer(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty peer address")
	}
	if host, port, err := net.SplitHostPort(p); err == nil {
		n, perr := strconv.Atoi(port)
		if host == "" || perr != nil || n <= 0 || n > 65535 {
			return "", fmt.Errorf("invalid peer address %q", p)
		}
		return net.JoinHostPort(host, port), nil
	}
	return net.JoinHostPort(strings.Trim(p, "[]"), strconv.Itoa(constants.DefaultPort)), nil
}

// Run polls until ctx is done. The first poll happens immediately.
func (r *Registry) Run(ctx context.Context) {
	r.Poll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Poll(ctx)
		}
	}
}

// Poll probes every peer once, concurrently, and replaces the snapshot with
// the peers that answered. Snapshot order follows the configured peer order.
func (r *Registry) Poll(ctx context.Context) []models.Device {
	results := make([]*models.Device, len(r.peers))
	var wg sync.WaitGroup
	for i, addr := range r.peers {
		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			dev, err := r.prober.Probe(ctx, addr)
			if err != nil {
				r.logger.Debug().Err(err).Str("peer", addr).Msg("peer unreachable")
				return
			}
			results[i] = &dev
		}(i, addr)
	}
	wg.Wait()

	snapshot := make([]models.Device, 0, len(results))
	seen := make(map[string]bool)
	for _, d := range results {
		if d == nil || seen[d.IP] {
			continue
		}
		seen[d.IP] = true
		snapshot = append(snapshot, *d)
	}

	r.mu.Lock()
	changed := !sameDevices(r.devices, snapshot)
	r.devices = snapshot
	r.lastPoll = time.Now()
	r.mu.Unlock()

	if changed {
		r.logger.Info().Int("count", len(snapshot)).Msg("device list changed")
	}
	r.bus.PublishDevicesChanged(len(snapshot))
	return Copy(snapshot)
}

// Devices returns the last polled snapshot.
func (r *Registry) Devices() []models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Copy(r.devices)
}

// Lookup finds a device in the snapshot by IP.
func (r *Registry) Lookup(ip string) (models.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.devices {
		if d.IP == ip {
			return d, true
		}
	}
	return models.Device{}, false
}

// LastPoll returns when the snapshot was last replaced.
func (r *Registry) LastPoll() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastPoll
}

// Local returns the local device identity.
func (r *Registry) Local() models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.local
}

// SetLocal replaces the local identity. It becomes the selection when
// nothing is selected yet.
func (r *Registry) SetLocal(d models.Device) {
	r.mu.Lock()
	wasLocal := r.selected != nil && r.selected.IP == r.local.IP
	r.local = d
	if r.selected == nil || wasLocal {
		local := d
		r.selected = &local
	}
	r.mu.Unlock()
}

// Select makes d the current device. The selection is kept even if d later
// drops out of the snapshot.
func (r *Registry) Select(d models.Device) {
	r.mu.Lock()
	r.selected = &d
	r.mu.Unlock()
	r.logger.Debug().Str("device", d.DisplayName()).Msg("device selected")
}

// SelectAddr selects by "local", "ip" or "ip:port". A remote address must be
// in the current snapshot.
func (r *Registry) SelectAddr(addr string) (models.Device, error) {
	ep, err := api.ParseEndpoint(addr)
	if err != nil {
		return models.Device{}, err
	}
	if ep.IsLocal() {
		d := r.Local()
		r.Select(d)
		return d, nil
	}
	d, ok := r.Lookup(ep.IP())
	if !ok {
		return models.Device{}, fmt.Errorf("device %s is not reachable", ep)
	}
	r.Select(d)
	return d, nil
}

// Selected returns the current device.
func (r *Registry) Selected() models.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected == nil {
		return r.local
	}
	return *r.selected
}

// SelectedEndpoint addresses the current device, using the local origin
// when the local device is selected.
func (r *Registry) SelectedEndpoint() api.Endpoint {
	return r.EndpointFor(r.Selected())
}

// EndpointFor returns api.Local() for the local device and a remote
// endpoint otherwise.
func (r *Registry) EndpointFor(d models.Device) api.Endpoint {
	if r.IsLocal(d) {
		return api.Local()
	}
	return api.ForDevice(d)
}

// IsLocal reports whether d is the local device.
func (r *Registry) IsLocal(d models.Device) bool {
	local := r.Local()
	return d.IP == local.IP && d.Port == local.Port
}

// Copy returns an independent copy of devices.
func Copy(devices []models.Device) []models.Device {
	out := make([]models.Device, len(devices))
	copy(out, devices)
	return out
}

func sameDevices(a, b []models.Device) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
