package models

import (
	"net"
	"strconv"
)

// Platform identifies the operating system a device reports.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformMacOS   Platform = "macos"
	PlatformWindows Platform = "windows"
	PlatformAndroid Platform = "android"
	PlatformUnknown Platform = "unknown"
)

// PlatformFromGOOS maps a runtime.GOOS value to the reported platform name.
func PlatformFromGOOS(goos string) Platform {
	switch goos {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "android":
		return PlatformAndroid
	default:
		return PlatformUnknown
	}
}

// Device is a peer that exposes the file service API.
// Devices are identified by IP; names are informational.
type Device struct {
	Name     string   `json:"name"`
	IP       string   `json:"ip"`
	Port     int      `json:"port"`
	Platform Platform `json:"platform"`
	HomeDir  string   `json:"home_dir,omitempty"`
}

// Addr returns the host:port the device serves on.
func (d Device) Addr() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// DisplayName returns the name, falling back to the address.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Addr()
}
