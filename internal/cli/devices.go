package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/models"
	stringutil "github.com/filehop/filehop/internal/util/strings"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List the devices that are reachable now",
		Long: `Probe the local file service and every peer from [discovery] peers once,
and list the ones that answered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			local, err := client.DeviceInfo(ctx, api.Local())
			localOnline := err == nil
			if !localOnline {
				GetLogger().Debug().Err(err).Msg("local file service not running")
				local = models.Device{Name: cfg.Device.Name, IP: "127.0.0.1", Port: cfg.Device.Port}
			}

			registry, err := newRegistry(local)
			if err != nil {
				return err
			}
			peers := registry.Poll(ctx)

			out := cmd.OutOrStdout()
			printDeviceHeader(out)
			printDevice(out, local, localOnline, true)
			for _, d := range peers {
				if registry.IsLocal(d) {
					continue
				}
				printDevice(out, d, true, false)
			}
			fmt.Fprintf(out, "\n%s reachable of %s configured\n",
				stringutil.Count(len(peers), "peer"), stringutil.Count(len(cfg.Discovery.Peers), "peer"))
			return nil
		},
	}
}

func printDeviceHeader(w io.Writer) {
	fmt.Fprintf(w, "%-24s %-22s %-10s %s\n", "NAME", "ADDRESS", "PLATFORM", "STATUS")
}

func printDevice(w io.Writer, d models.Device, online, local bool) {
	status := "online"
	if !online {
		status = "not running"
	}
	if local {
		status += " (local)"
	}
	platform := string(d.Platform)
	if platform == "" {
		platform = "-"
	}
	fmt.Fprintf(w, "%-24s %-22s %-10s %s\n", d.DisplayName(), d.Addr(), platform, status)
}

func newThrottleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "throttle <bytes-per-sec>",
		Short: "Set the device's transfer throttle",
		Long: `Send a bandwidth limit in bytes per second to the device. 0 means no limit.
The device records the value; it does not enforce it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bps, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid bytes-per-sec %q: %w", args[0], err)
			}
			ctx := GetContext()
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			ep, err := api.ParseEndpoint(deviceAddr)
			if err != nil {
				return err
			}
			if err := client.SetThrottle(ctx, ep, bps); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Throttle on %s set to %s/s\n", ep, stringutil.Bytes(bps))
			return nil
		},
	}
}
