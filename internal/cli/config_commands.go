package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/config"
	"github.com/filehop/filehop/internal/util/filter"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage filehop configuration",
		Long: `Configuration management commands for filehop.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Check the local file service and configured peers
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var (
		force    bool
		defaults bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for filehop.

The configuration is saved to ~/.config/filehop/config unless --config is
given. Press Enter to keep the value in brackets. Use --defaults to write
the defaults without asking, and --force to overwrite an existing file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			newCfg := config.NewConfig()
			if !defaults {
				if err := askConfig(bufio.NewReader(cmd.InOrStdin()), out, newCfg); err != nil {
					return err
				}
			}
			if err := newCfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(newCfg, path); err != nil {
				return err
			}

			GetLogger().Info().Str("path", path).Msg("configuration saved")
			fmt.Fprintf(out, "\n✓ Configuration saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Write the defaults without prompting")
	return cmd
}

// askConfig prompts for the settings most users change.
func askConfig(reader *bufio.Reader, out io.Writer, c *config.Config) error {
	fmt.Fprintln(out, "filehop Configuration Setup")
	fmt.Fprintln(out, "===========================")
	fmt.Fprintln(out)

	ask := func(label, current string) (string, error) {
		fmt.Fprintf(out, "%s [%s]: ", label, current)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" && err != io.EOF {
			return "", err
		}
		if v := strings.TrimSpace(input); v != "" {
			return v, nil
		}
		return current, nil
	}

	var err error
	if c.Device.Name, err = ask("Device name", c.Device.Name); err != nil {
		return err
	}
	port, err := ask("Port", strconv.Itoa(c.Device.Port))
	if err != nil {
		return err
	}
	if c.Device.Port, err = strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if c.Device.Root, err = ask("Directory to serve", c.Device.Root); err != nil {
		return err
	}
	peers, err := ask("Peers (comma-separated ip or ip:port)", strings.Join(c.Discovery.Peers, ", "))
	if err != nil {
		return err
	}
	c.Discovery.Peers = filter.ParsePatternList(peers)
	if c.Transfer.DownloadDir, err = ask("Download directory", c.Transfer.DownloadDir); err != nil {
		return err
	}
	return nil
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Device:")
			fmt.Fprintf(out, "  Name:     %s\n", cfg.Device.Name)
			fmt.Fprintf(out, "  Port:     %d\n", cfg.Device.Port)
			fmt.Fprintf(out, "  Root:     %s\n", cfg.Device.Root)
			fmt.Fprintf(out, "  Home dir: %s\n", cfg.Device.HomeDir)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Discovery:")
			if len(cfg.Discovery.Peers) > 0 {
				fmt.Fprintf(out, "  Peers:         %s\n", strings.Join(cfg.Discovery.Peers, ", "))
			} else {
				fmt.Fprintln(out, "  Peers:         <none>")
			}
			fmt.Fprintf(out, "  Interval:      %s\n", cfg.PollInterval())
			fmt.Fprintf(out, "  Probe retries: %d\n", cfg.Discovery.ProbeRetries)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Client:")
			fmt.Fprintf(out, "  Local origin: %s\n", cfg.Client.LocalOrigin)
			fmt.Fprintf(out, "  Proxy mode:   %s\n", cfg.Client.ProxyMode)
			if cfg.Client.ProxyURL != "" {
				fmt.Fprintf(out, "  Proxy URL:    %s\n", cfg.Client.ProxyURL)
			}
			if cfg.Client.NoProxy != "" {
				fmt.Fprintf(out, "  No proxy:     %s\n", cfg.Client.NoProxy)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Transfers:")
			fmt.Fprintf(out, "  Download dir: %s\n", cfg.Transfer.DownloadDir)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  Level:   %s\n", cfg.Logging.Level)
			fmt.Fprintf(out, "  File:    %s\n", cfg.LogFile())
			fmt.Fprintf(out, "  Forward: %t\n", cfg.Logging.Forward)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Notifications:")
			fmt.Fprintf(out, "  Enabled:  %t\n", cfg.Notifications.Enabled)
			fmt.Fprintf(out, "  Complete: %t\n", cfg.Notifications.ShowComplete)
			fmt.Fprintf(out, "  Failed:   %t\n", cfg.Notifications.ShowFailed)
			fmt.Fprintln(out)

			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			return nil
		},
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check the local file service and configured peers",
		Long: `Ask the local file service (client.local_origin) and every configured
peer for their device info, and report which ones answered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			failed := 0
			check := func(label string, ep api.Endpoint) {
				d, err := client.DeviceInfo(ctx, ep)
				if err != nil {
					failed++
					GetLogger().Debug().Err(err).Str("device", ep.String()).Msg("check failed")
					fmt.Fprintf(out, "✗ %-28s %v\n", label, err)
					return
				}
				fmt.Fprintf(out, "✓ %-28s %s (%s)\n", label, d.DisplayName(), d.Platform)
			}

			check("local ("+cfg.Client.LocalOrigin+")", api.Local())
			for _, peer := range cfg.Discovery.Peers {
				ep, err := api.ParseEndpoint(peer)
				if err != nil {
					failed++
					fmt.Fprintf(out, "✗ %-28s %v\n", peer, err)
					continue
				}
				check(ep.String(), ep)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d devices did not answer", failed, len(cfg.Discovery.Peers)+1)
			}
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path, err := configPath()
			if err != nil {
				return err
			}
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n\n", path)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:     %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: filehop config init")
			}
			return nil
		},
	}
}
