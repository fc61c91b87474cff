package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

func newLogsCmd() *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the end of the local log file",
		Long: `Print the path of the local rotating log file followed by its last lines.
Older entries are in the rotated (compressed) files next to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 1 {
				return fmt.Errorf("--lines must be at least 1, got %d", lines)
			}
			path := cfg.LogFile()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Log file: %s\n\n", path)

			f, err := os.Open(path)
			if errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(out, "(no log entries yet)")
				return nil
			}
			if err != nil {
				return err
			}
			defer f.Close()

			tail, err := tailLines(f, lines)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	return cmd
}

// tailLines returns the last n lines of r.
func tailLines(r io.Reader, n int) ([]string, error) {
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	return ring, scanner.Err()
}
