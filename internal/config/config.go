package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/http"
	"github.com/filehop/filehop/internal/logging"
)

// Config is the filehop configuration file.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\filehop\config
//   - Unix: ~/.config/filehop/config
//
// INI format:
//
//	[device]
//	name = workstation
//	port = 8090
//	root = /
//	home_dir = /home/me
//
//	[discovery]
//	peers = 192.168.1.20, 192.168.1.31:9000
//	interval_seconds = 3
//	probe_retries = 1
//
//	[client]
//	local_origin = http://127.0.0.1:8090
//	proxy_mode = none
//	proxy_url =
//	no_proxy =
//
//	[transfer]
//	download_dir = /home/me/Downloads
//
//	[logging]
//	level = info
//	file = /home/me/.config/filehop/logs/filehop.log
//	buffer_size = 1000
//	forward = false
//
//	[notifications]
//	enabled = true
//	show_complete = true
//	show_failed = true
type Config struct {
	Device        DeviceConfig
	Discovery     DiscoveryConfig
	Client        ClientConfig
	Transfer      TransferConfig
	Logging       LoggingConfig
	Notifications NotificationConfig
}

// DeviceConfig describes the file service this machine runs.
type DeviceConfig struct {
	// Name is reported by GET /api/device/info. Default: hostname.
	Name string `ini:"name"`

	// Port the file service listens on. Default: 8090.
	Port int `ini:"port"`

	// Root is the served directory. Default: "/" ("C:\" on Windows).
	Root string `ini:"root"`

	// HomeDir is the start path peers navigate to. Default: the user's home.
	HomeDir string `ini:"home_dir"`
}

// DiscoveryConfig controls the device registry.
type DiscoveryConfig struct {
	Peers           []string `ini:"peers"`
	IntervalSeconds int      `ini:"interval_seconds"`
	ProbeRetries    int      `ini:"probe_retries"`
}

// ClientConfig controls outgoing file-service requests.
type ClientConfig struct {
	LocalOrigin string `ini:"local_origin"`
	ProxyMode   string `ini:"proxy_mode"`
	ProxyURL    string `ini:"proxy_url"`
	NoProxy     string `ini:"no_proxy"`
}

// TransferConfig controls where transfers land locally.
type TransferConfig struct {
	DownloadDir string `ini:"download_dir"`
}

// LoggingConfig controls the log sinks.
type LoggingConfig struct {
	Level      string `ini:"level"`
	File       string `ini:"file"`
	BufferSize int    `ini:"buffer_size"`

	// Forward posts log entries to the local device's POST /api/logs.
	Forward bool `ini:"forward"`
}

// NotificationConfig contains settings for desktop notifications.
type NotificationConfig struct {
	// Enabled indicates whether notifications are shown.
	// Default: true
	Enabled bool `ini:"enabled"`

	// ShowComplete shows a notification when a batch completes without failures.
	// Default: true
	ShowComplete bool `ini:"show_complete"`

	// ShowFailed shows a notification when any transfer in a batch fails.
	// Default: true
	ShowFailed bool `ini:"show_failed"`
}

// Validation errors
var (
	ErrInvalidPort         = errors.New("device.port must be between 1 and 65535")
	ErrMissingRoot         = errors.New("device.root is required")
	ErrInvalidInterval     = errors.New("discovery.interval_seconds must be between 1 and 3600")
	ErrInvalidProbeRetries = errors.New("discovery.probe_retries must be between 0 and 10")
	ErrInvalidLocalOrigin  = errors.New("client.local_origin must be an http(s) URL")
	ErrInvalidProxyMode    = errors.New("client.proxy_mode must be none, system or manual")
	ErrMissingProxyURL     = errors.New("client.proxy_url is required when proxy_mode is manual")
	ErrInvalidLogLevel     = errors.New("logging.level must be debug, info, warn or error")
	ErrInvalidBufferSize   = errors.New("logging.buffer_size must not be negative")
)

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "filehop"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	return &Config{
		Device: DeviceConfig{
			Name:    name,
			Port:    constants.DefaultPort,
			Root:    defaultRoot(),
			HomeDir: home,
		},
		Discovery: DiscoveryConfig{
			IntervalSeconds: int(constants.DevicePollInterval / time.Second),
			ProbeRetries:    constants.DeviceProbeRetries,
		},
		Client: ClientConfig{
			LocalOrigin: constants.DefaultLocalOrigin,
			ProxyMode:   "none",
		},
		Transfer: TransferConfig{
			DownloadDir: DefaultDownloadDir(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			BufferSize: constants.LogBufferSize,
		},
		Notifications: NotificationConfig{
			Enabled:      true,
			ShowComplete: true,
			ShowFailed:   true,
		},
	}
}

func defaultRoot() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// Load loads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	device := iniFile.Section("device")
	cfg.Device.Name = device.Key("name").MustString(cfg.Device.Name)
	cfg.Device.Port = device.Key("port").MustInt(cfg.Device.Port)
	cfg.Device.Root = device.Key("root").MustString(cfg.Device.Root)
	cfg.Device.HomeDir = device.Key("home_dir").MustString(cfg.Device.HomeDir)

	discovery := iniFile.Section("discovery")
	cfg.Discovery.Peers = trimAll(discovery.Key("peers").Strings(","))
	cfg.Discovery.IntervalSeconds = discovery.Key("interval_seconds").MustInt(cfg.Discovery.IntervalSeconds)
	cfg.Discovery.ProbeRetries = discovery.Key("probe_retries").MustInt(cfg.Discovery.ProbeRetries)

	client := iniFile.Section("client")
	cfg.Client.LocalOrigin = client.Key("local_origin").MustString(cfg.Client.LocalOrigin)
	cfg.Client.ProxyMode = client.Key("proxy_mode").MustString(cfg.Client.ProxyMode)
	cfg.Client.ProxyURL = client.Key("proxy_url").String()
	cfg.Client.NoProxy = client.Key("no_proxy").String()

	transfer := iniFile.Section("transfer")
	cfg.Transfer.DownloadDir = transfer.Key("download_dir").MustString(cfg.Transfer.DownloadDir)

	logSection := iniFile.Section("logging")
	cfg.Logging.Level = logSection.Key("level").MustString(cfg.Logging.Level)
	cfg.Logging.File = logSection.Key("file").String()
	cfg.Logging.BufferSize = logSection.Key("buffer_size").MustInt(cfg.Logging.BufferSize)
	cfg.Logging.Forward = logSection.Key("forward").MustBool(false)

	notifySection := iniFile.Section("notifications")
	cfg.Notifications.Enabled = notifySection.Key("enabled").MustBool(true)
	cfg.Notifications.ShowComplete = notifySection.Key("show_complete").MustBool(true)
	cfg.Notifications.ShowFailed = notifySection.Key("show_failed").MustBool(true)

	return cfg, nil
}

// Save saves configuration to an INI file.
// Creates parent directories if they don't exist.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	sections := []struct {
		name   string
		values [][2]string
	}{
		{"device", [][2]string{
			{"name", cfg.Device.Name},
			{"port", fmt.Sprintf("%d", cfg.Device.Port)},
			{"root", cfg.Device.Root},
			{"home_dir", cfg.Device.HomeDir},
		}},
		{"discovery", [][2]string{
			{"peers", strings.Join(cfg.Discovery.Peers, ", ")},
			{"interval_seconds", fmt.Sprintf("%d", cfg.Discovery.IntervalSeconds)},
			{"probe_retries", fmt.Sprintf("%d", cfg.Discovery.ProbeRetries)},
		}},
		{"client", [][2]string{
			{"local_origin", cfg.Client.LocalOrigin},
			{"proxy_mode", cfg.Client.ProxyMode},
			{"proxy_url", cfg.Client.ProxyURL},
			{"no_proxy", cfg.Client.NoProxy},
		}},
		{"transfer", [][2]string{
			{"download_dir", cfg.Transfer.DownloadDir},
		}},
		{"logging", [][2]string{
			{"level", cfg.Logging.Level},
			{"file", cfg.Logging.File},
			{"buffer_size", fmt.Sprintf("%d", cfg.Logging.BufferSize)},
			{"forward", fmt.Sprintf("%t", cfg.Logging.Forward)},
		}},
		{"notifications", [][2]string{
			{"enabled", fmt.Sprintf("%t", cfg.Notifications.Enabled)},
			{"show_complete", fmt.Sprintf("%t", cfg.Notifications.ShowComplete)},
			{"show_failed", fmt.Sprintf("%t", cfg.Notifications.ShowFailed)},
		}},
	}
	for _, s := range sections {
		section, err := iniFile.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.name, err)
		}
		for _, kv := range s.values {
			section.Key(kv[0]).SetValue(kv[1])
		}
	}

	// Temporary file + rename so a crash never leaves a truncated config.
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the configuration. Returns nil if valid, or an error
// describing the first problem found.
func (cfg *Config) Validate() error {
	if cfg.Device.Port < 1 || cfg.Device.Port > 65535 {
		return ErrInvalidPort
	}
	if strings.TrimSpace(cfg.Device.Root) == "" {
		return ErrMissingRoot
	}
	if cfg.Discovery.IntervalSeconds < 1 || cfg.Discovery.IntervalSeconds > 3600 {
		return ErrInvalidInterval
	}
	if cfg.Discovery.ProbeRetries < 0 || cfg.Discovery.ProbeRetries > 10 {
		return ErrInvalidProbeRetries
	}

	u, err := url.Parse(cfg.Client.LocalOrigin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidLocalOrigin
	}
	switch strings.ToLower(cfg.Client.ProxyMode) {
	case "", "none", "system":
	case "manual":
		if strings.TrimSpace(cfg.Client.ProxyURL) == "" {
			return ErrMissingProxyURL
		}
	default:
		return ErrInvalidProxyMode
	}

	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return ErrInvalidLogLevel
	}
	if cfg.Logging.BufferSize < 0 {
		return ErrInvalidBufferSize
	}

	return nil
}

// PollInterval returns the discovery interval as a duration.
func (cfg *Config) PollInterval() time.Duration {
	return time.Duration(cfg.Discovery.IntervalSeconds) * time.Second
}

// HTTPOptions returns the transfer client options for this config.
func (cfg *Config) HTTPOptions() http.ClientOptions {
	return http.ClientOptions{
		ProxyMode: cfg.Client.ProxyMode,
		ProxyURL:  cfg.Client.ProxyURL,
		NoProxy:   cfg.Client.NoProxy,
	}
}

// LogFile returns the configured log file, or the default one.
func (cfg *Config) LogFile() string {
	if cfg.Logging.File != "" {
		return cfg.Logging.File
	}
	return DefaultLogFile()
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
