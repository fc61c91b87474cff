// Package cli provides the command-line interface for filehop.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/filehop/filehop/internal/config"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/version"
)

var (
	// Global flags
	cfgFile    string
	deviceAddr string
	verbose    bool

	// Loaded in PersistentPreRunE
	cfg       *config.Config
	logger    *logging.Logger
	logWriter *logging.Writer

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc

	// Runs on the first Ctrl+C instead of cancelling everything
	interruptMu sync.Mutex
	onInterrupt func() bool
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filehop",
		Short: "filehop - browse and move files between devices on your network",
		Long: `filehop ` + version.Version + ` - Built: ` + version.BuildTime + `
Browse, upload, download and manage files on any device running the
filehop file service.

Devices:
  Commands act on the local device unless --device names another one
  ("local", "ip" or "ip:port"). Run 'filehop devices' to see the peers
  from your config that are reachable right now.

Serving:
  'filehop serve' runs the file service for this machine.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = loaded
			return setupLogging(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logWriter != nil {
				logWriter.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&deviceAddr, "device", "d", "", `Device to act on: "local", "ip" or "ip:port" (default local)`)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newCompletionCmd(rootCmd))
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// setupLogging builds the global logger: the rotating log file always,
// the console when verbose or serving, and the forwarder when configured.
func setupLogging(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	logging.SetGlobalLevel(level)

	serving := cmd.Name() == "serve"
	logger, logWriter = logging.New(logging.Options{
		Console:    verbose || serving,
		ConsoleOut: cmd.ErrOrStderr(),
		File:       cfg.LogFile(),
		BufferSize: cfg.Logging.BufferSize,
	})

	if cfg.Logging.Forward && !serving {
		fw := logging.NewForwarder(cfg.Client.LocalOrigin, cfg.Device.Name, nil)
		logWriter.AddSink(fw)
		go fw.Run(GetContext())
	}

	logger.Debug().Str("command", cmd.CommandPath()).Str("log_file", cfg.LogFile()).Msg("starting")
	return nil
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				handleSignal(sig, cancelFunc, os.Stderr)
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// setInterruptHandler makes the next Ctrl+C call fn instead of cancelling
// the command. fn reports whether it handled the signal. The handler fires
// at most once; the returned func removes it if it has not fired.
func setInterruptHandler(fn func() bool) (remove func()) {
	interruptMu.Lock()
	onInterrupt = fn
	interruptMu.Unlock()
	return func() {
		interruptMu.Lock()
		onInterrupt = nil
		interruptMu.Unlock()
	}
}

// handleSignal runs the interrupt handler for Ctrl+C when one is set and
// cancels the command otherwise. It reports whether the command was cancelled.
func handleSignal(sig os.Signal, cancel context.CancelFunc, out io.Writer) bool {
	var fn func() bool
	if sig == os.Interrupt {
		interruptMu.Lock()
		fn, onInterrupt = onInterrupt, nil
		interruptMu.Unlock()
	}
	if fn != nil && fn() {
		fmt.Fprintln(out, "\nCancelled the current transfer. Press Ctrl+C again to stop the rest.")
		return false
	}
	fmt.Fprintf(out, "\nReceived signal %v, cancelling operations...\n", sig)
	cancel()
	return true
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newPutCmd())
	rootCmd.AddCommand(newRmCmd())
	rootCmd.AddCommand(newMvCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newThrottleCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for filehop.

QUICK START:

  bash:
    source <(filehop completion bash)

  zsh:
    filehop completion zsh > "${fpath[1]}/_filehop"

  fish:
    filehop completion fish > ~/.config/fish/completions/filehop.fish

  PowerShell:
    filehop completion powershell | Out-String | Invoke-Expression`,
	}

	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	return completionCmd
}
