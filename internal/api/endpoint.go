package api

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/models"
)

// Endpoint addresses a device: either the local device (resolved against the
// client's local origin) or a remote device by ip and port.
type Endpoint struct {
	remote bool
	ip     string
	port   int
}

// Local addresses the device this process talks to as "local".
func Local() Endpoint {
	return Endpoint{}
}

// Remote addresses a peer by ip and port.
func Remote(ip string, port int) Endpoint {
	return Endpoint{remote: true, ip: ip, port: port}
}

// ForDevice returns a Remote endpoint for d.
func ForDevice(d models.Device) Endpoint {
	return Remote(d.IP, d.Port)
}

// ParseEndpoint accepts "local", "ip" or "ip:port" (default port when omitted).
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, constants.LocalDeviceID) {
		return Local(), nil
	}
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		// no port
		if ip := net.ParseIP(strings.Trim(s, "[]")); ip != nil {
			return Remote(ip.String(), constants.DefaultPort), nil
		}
		if !strings.Contains(s, ":") {
			return Remote(s, constants.DefaultPort), nil
		}
		return Endpoint{}, fmt.Errorf("invalid device address %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("invalid port in device address %q", s)
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("missing host in device address %q", s)
	}
	return Remote(host, port), nil
}

// IsLocal reports whether e addresses the local device.
func (e Endpoint) IsLocal() bool { return !e.remote }

// IP returns the remote ip, or "" for Local.
func (e Endpoint) IP() string { return e.ip }

// Port returns the remote port, or 0 for Local.
func (e Endpoint) Port() int { return e.port }

// DeviceID is the value recorded as a task's source or target device:
// "local" or the remote ip.
func (e Endpoint) DeviceID() string {
	if e.IsLocal() {
		return constants.LocalDeviceID
	}
	return e.ip
}

// String returns "local" or "ip:port".
func (e Endpoint) String() string {
	if e.IsLocal() {
		return constants.LocalDeviceID
	}
	return net.JoinHostPort(e.ip, strconv.Itoa(e.port))
}

// baseURL resolves e to an origin. localOrigin is used for Local.
func (e Endpoint) baseURL(localOrigin string) string {
	if e.IsLocal() {
		return strings.TrimSuffix(localOrigin, "/")
	}
	return "http://" + net.JoinHostPort(e.ip, strconv.Itoa(e.port))
}
