package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/filehop/filehop/internal/fileservice"
	"github.com/filehop/filehop/internal/metrics"
	"github.com/filehop/filehop/internal/notify"
)

func newServeCmd() *cobra.Command {
	var (
		root string
		port int
		name string
		home string
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the file service for this machine",
		Long: `Serve a local directory to other filehop clients. Flags override the
[device] section of the config file. Prometheus metrics are exposed at
/metrics on the same port. Stops on Ctrl+C after in-flight requests finish.

Examples:
  filehop serve
  filehop serve --root /srv/share --port 9000 --name media-box`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			logger := GetLogger().Component("serve")

			dc := cfg.Device
			if root != "" {
				dc.Root = root
			}
			if port != 0 {
				dc.Port = port
			}
			if name != "" {
				dc.Name = name
			}
			if home != "" {
				dc.HomeDir = home
			}

			m := metrics.New()
			server, err := fileservice.NewServer(fileservice.Config{
				Root:    dc.Root,
				Name:    dc.Name,
				Port:    dc.Port,
				HomeDir: dc.HomeDir,
				Metrics: m,
				Logger:  GetLogger(),
			})
			if err != nil {
				return err
			}

			registry, err := newRegistry(server.Device())
			if err != nil {
				return err
			}
			go registry.Run(ctx)

			addr := net.JoinHostPort(bind, strconv.Itoa(dc.Port))
			device := server.Device()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s as %q on %s (reported address %s)\n",
				server.Root(), device.Name, addr, device.Addr())

			if err := server.ListenAndServe(ctx, addr); err != nil {
				notify.NewNotifier(cfg.Notifications, GetLogger()).Alert("File service stopped: " + err.Error())
				return fmt.Errorf("file service failed: %w", err)
			}
			logger.Info().Msg("file service stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Directory to serve (default: [device] root)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: [device] port)")
	cmd.Flags().StringVar(&name, "name", "", "Device name reported to clients (default: [device] name)")
	cmd.Flags().StringVar(&home, "home", "", "Directory clients open first (default: [device] home_dir)")
	cmd.Flags().StringVar(&bind, "bind", "", "Address to bind (default: all interfaces)")
	return cmd
}
