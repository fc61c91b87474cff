package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/filehop/filehop/internal/services"
)

// maxListedItems bounds how many items a confirmation prompt lists.
const maxListedItems = 10

// promptConfirmer asks on out and reads the answer from in.
func promptConfirmer(in io.Reader, out io.Writer) services.Confirmer {
	reader := bufio.NewReader(in)
	return services.ConfirmFunc(func(ctx context.Context, prompt string, items []string) (bool, error) {
		fmt.Fprintf(out, "\n⚠️  %s This cannot be undone.\n", prompt)
		for i, item := range items {
			if i == maxListedItems {
				fmt.Fprintf(out, "  ... and %d more\n", len(items)-maxListedItems)
				break
			}
			fmt.Fprintf(out, "  %s\n", item)
		}
		return promptYesNo(reader, out, "Continue? [y/N]: ")
	})
}

// promptYesNo asks until it gets y, n or an empty answer (no).
func promptYesNo(reader *bufio.Reader, out io.Writer, question string) (bool, error) {
	for {
		fmt.Fprint(out, question)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer y or n.")
			if err != nil {
				return false, err
			}
		}
	}
}
