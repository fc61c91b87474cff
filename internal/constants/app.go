// Package constants holds tunables shared by the client, the file service and the CLI.
package constants

import (
	"time"
)

// Device defaults
const (
	// DefaultPort - port the file service listens on and peers are probed at
	DefaultPort = 8090

	// DefaultLocalOrigin - base URL for the "local" endpoint when none is configured
	DefaultLocalOrigin = "http://127.0.0.1:8090"

	// LocalDeviceID - sourceDevice/targetDevice value for the local device
	LocalDeviceID = "local"
)

// Device discovery
const (
	// DevicePollInterval - how often the registry re-probes its peers (3 seconds)
	DevicePollInterval = 3 * time.Second

	// DeviceProbeTimeout - per-peer probe deadline; a slow peer drops out of the snapshot
	DeviceProbeTimeout = 2 * time.Second

	// DeviceProbeRetries - retries for a single probe within one poll tick
	DeviceProbeRetries = 1

	// DeviceProbeRetryWait - wait between probe retries
	DeviceProbeRetryWait = 200 * time.Millisecond
)

// Disk space safety margin
const (
	// DiskSpaceBufferPercent - extra space required on top of a download's size (15%)
	DiskSpaceBufferPercent = 0.15
)

// Event bus configuration
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	// Transfer progress can burst one event per chunk, so keep it generous
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size to prevent unbounded memory growth
	EventBusMaxBuffer = 5000
)

// Download streaming
const (
	// ReadChunkSize - size of each body read while streaming a download (64 KB)
	// Every successful read reports progress, so this bounds progress granularity
	ReadChunkSize = 64 * 1024
)

// Logging
const (
	// LogBufferSize - entries kept in the in-memory log ring
	LogBufferSize = 1000

	// LogSubscriberBuffer - channel buffer per live log subscriber
	LogSubscriberBuffer = 100

	// LogFileMaxSizeMB - rotate the log file at this size
	LogFileMaxSizeMB = 10

	// LogFileMaxBackups - rotated log files to keep
	LogFileMaxBackups = 3

	// LogForwardProbeInterval - how often the log forwarder re-checks an unreachable backend
	LogForwardProbeInterval = 2 * time.Second

	// LogForwardMaxPending - entries held while the backend is unreachable
	LogForwardMaxPending = 500
)

// HTTP client configuration
const (
	// HTTPIdleConnTimeout - how long idle connections stay in the pool
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPExpectContinueTimeout - timeout for Expect: 100-continue
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - TCP connect timeout
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - TCP keepalive period
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPMaxIdleConnsPerHost - pooled connections per device
	HTTPMaxIdleConnsPerHost = 8
)

// File service
const (
	// ServerReadHeaderTimeout - bound on reading request headers
	ServerReadHeaderTimeout = 10 * time.Second

	// ServerShutdownTimeout - grace period for in-flight requests on shutdown
	ServerShutdownTimeout = 5 * time.Second

	// MaxJSONBody - limit for small JSON request bodies (rename, mkdir, throttle, logs)
	MaxJSONBody = 1024 * 1024
)

// UI refresh
const (
	// ProgressRefreshInterval - redraw rate of the terminal progress board
	ProgressRefreshInterval = 150 * time.Millisecond
)
