// filehop - browse and move files between devices on the local network.
package main

import (
	"os"

	"github.com/filehop/filehop/internal/cli"
	"github.com/filehop/filehop/internal/version"
)

// Version information, overridden with -ldflags at release time.
var (
	Version   = "v0.4.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
