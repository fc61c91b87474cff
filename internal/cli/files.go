package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/filehop/filehop/internal/localfs"
	"github.com/filehop/filehop/internal/models"
	"github.com/filehop/filehop/internal/pathutil"
	"github.com/filehop/filehop/internal/progress"
	"github.com/filehop/filehop/internal/services"
	"github.com/filehop/filehop/internal/transfer"
	"github.com/filehop/filehop/internal/util/filter"
	stringutil "github.com/filehop/filehop/internal/util/strings"
)

// filterFlags are the --include/--exclude/--search flags shared by ls and put.
type filterFlags struct {
	include string
	exclude string
	search  string
	all     bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.include, "include", "", "Include only names matching these patterns (comma-separated globs, e.g. \"*.dat,*.log\")")
	cmd.Flags().StringVar(&f.exclude, "exclude", "", "Exclude names matching these patterns (comma-separated globs)")
	cmd.Flags().StringVar(&f.search, "search", "", "Include only names containing these terms (comma-separated, case-insensitive)")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "Include hidden files")
}

func (f *filterFlags) config() filter.Config {
	return filter.Config{
		Include: filter.ParsePatternList(f.include),
		Exclude: filter.ParsePatternList(f.exclude),
		Search:  filter.ParsePatternList(f.search),
	}
}

func newLsCmd() *cobra.Command {
	var filters filterFlags

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a directory on the device",
		Long: `List a directory on the device. Relative paths start at the device's
home directory; without a path the home directory itself is listed.

Examples:
  filehop ls
  filehop ls /srv/media --device 192.168.1.20
  filehop ls Documents --include "*.pdf"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				s.browser.Navigate(s.resolve(args[0]))
			}
			if err := s.browser.Refresh(ctx); err != nil {
				return fmt.Errorf("failed to list %s: %w", s.browser.Path(), err)
			}

			entries := s.browser.Entries()
			if !filters.all {
				visible := entries[:0:0]
				for _, e := range entries {
					if !e.IsHidden() {
						visible = append(visible, e)
					}
				}
				entries = visible
			}
			entries = filter.Entries(entries, filters.config())

			printListing(cmd.OutOrStdout(), s.device.DisplayName(), s.browser.Path(), entries)
			return nil
		},
	}
	filters.register(cmd)
	return cmd
}

func printListing(w io.Writer, device, dir string, entries []models.FileEntry) {
	fmt.Fprintf(w, "%s:%s (%s)\n\n", device, dir, stringutil.Count(len(entries), "item"))
	for _, e := range entries {
		size := stringutil.Bytes(e.Size)
		name := e.Name
		if e.IsDir {
			size = "-"
			name += "/"
		}
		fmt.Fprintf(w, "%10s  %s  %s\n", size, e.ModTime().Format("2006-01-02 15:04"), name)
	}
}

func newGetCmd() *cobra.Command {
	var (
		outputDir string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "get <path> [path...]",
		Short: "Download files from the device",
		Long: `Download files from the device into a local directory. Each file is a
separate transfer: one failing does not stop the others. Directories are
skipped. Existing local files get a numbered name unless --overwrite is set.
Ctrl+C cancels the file in flight and moves on; press it again to stop.

Examples:
  filehop get report.pdf
  filehop get /srv/media/a.mkv /srv/media/b.mkv -o ~/Videos --device 192.168.1.20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			if outputDir == "" {
				outputDir = cfg.Transfer.DownloadDir
			}
			saver, err := services.NewLocalSaver(outputDir, overwrite)
			if err != nil {
				return fmt.Errorf("failed to prepare %s: %w", outputDir, err)
			}

			s, err := openSession(ctx)
			if err != nil {
				return err
			}

			// Group the requested files by directory; one listing per directory
			// supplies their sizes.
			var dirs []string
			byDir := make(map[string][]models.FileEntry)
			listings := make(map[string][]models.FileEntry)
			for _, arg := range args {
				p := s.resolve(arg)
				dir, name := pathutil.Parent(p), pathutil.Base(p)
				listing, ok := listings[dir]
				if !ok {
					listing, err = s.client.List(ctx, s.ep, dir)
					if err != nil {
						return fmt.Errorf("failed to list %s: %w", dir, err)
					}
					listings[dir] = listing
				}
				entry, found := findEntry(listing, name)
				if !found {
					return fmt.Errorf("%s: no such file on %s", p, s.device.DisplayName())
				}
				if _, seen := byDir[dir]; !seen {
					dirs = append(dirs, dir)
				}
				byDir[dir] = append(byDir[dir], entry)
			}

			store := transfer.NewStore(nil)
			display := progress.New(cmd.ErrOrStderr(), len(args))
			unsubscribe := store.Subscribe(display)
			defer setInterruptHandler(func() bool { return cancelActive(store) })()
			svc := s.transfers(store)

			var results []services.Result
			for _, dir := range dirs {
				results = append(results, svc.Download(ctx, s.ep, dir, byDir[dir], saver)...)
			}
			unsubscribe()
			display.Wait()

			return reportBatch(cmd.OutOrStdout(), "downloaded", results)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outdir", "o", "", "Output directory (default: [transfer] download_dir)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing local files")
	return cmd
}

// cancelActive cancels the transfer in progress, if any.
func cancelActive(store *transfer.Store) bool {
	for _, t := range store.Tasks() {
		if !t.IsTerminal() && store.Cancel(t.ID) == nil {
			return true
		}
	}
	return false
}

func findEntry(entries []models.FileEntry, name string) (models.FileEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return models.FileEntry{}, false
}

func newPutCmd() *cobra.Command {
	var (
		targetDir string
		recursive bool
		filters   filterFlags
	)

	cmd := &cobra.Command{
		Use:   "put <file> [file...]",
		Short: "Upload files to the device",
		Long: `Upload local files to a directory on the device (its home directory
unless --to is given). A file with the same name on the device is replaced.
With -r, directories are uploaded with their structure; --include, --exclude
and --search then select which files go.
Ctrl+C cancels the file in flight and moves on; press it again to stop.

Examples:
  filehop put notes.txt photo.jpg
  filehop put -r ./project --to /srv/backup --exclude "*.tmp" --device 192.168.1.20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			var sources []services.UploadSource
			var trees []string
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if info.IsDir() {
					if !recursive {
						return fmt.Errorf("%s is a directory (use -r to upload it)", arg)
					}
					trees = append(trees, arg)
					continue
				}
				src, err := services.LocalFile(arg)
				if err != nil {
					return err
				}
				sources = append(sources, src)
			}

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			dir := s.browser.Path()
			if targetDir != "" {
				dir = s.resolve(targetDir)
			}

			total := len(sources)
			if len(trees) > 0 {
				total = 0
			}
			store := transfer.NewStore(nil)
			display := progress.New(cmd.ErrOrStderr(), total)
			unsubscribe := store.Subscribe(display)
			defer setInterruptHandler(func() bool { return cancelActive(store) })()
			svc := s.transfers(store)

			var results []services.Result
			if len(sources) > 0 {
				results = svc.Upload(ctx, s.ep, dir, sources)
			}
			var treeErr error
			for _, root := range trees {
				abs, err := filepath.Abs(root)
				if err != nil {
					treeErr = errors.Join(treeErr, err)
					continue
				}
				rs, err := svc.UploadTree(ctx, s.ep, dir, abs, localfs.WalkOptions{IncludeHidden: filters.all}, filters.config())
				results = append(results, rs...)
				if err != nil {
					treeErr = errors.Join(treeErr, fmt.Errorf("%s: %w", root, err))
				}
			}
			unsubscribe()
			display.Wait()

			if err := reportBatch(cmd.OutOrStdout(), "uploaded", results); err != nil {
				return errors.Join(err, treeErr)
			}
			return treeErr
		},
	}

	cmd.Flags().StringVar(&targetDir, "to", "", "Target directory on the device (default: its home directory)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Upload directories recursively")
	filters.register(cmd)
	return cmd
}

// reportBatch prints the batch summary and returns an error when any
// transfer failed.
func reportBatch(w io.Writer, verb string, results []services.Result) error {
	sum := services.Summarize(results)
	fmt.Fprintf(w, "\n%s %s", stringutil.Count(sum.Completed, "file"), verb)
	if sum.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", sum.Skipped)
	}
	if sum.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", sum.Failed)
	}
	fmt.Fprintln(w)
	for _, r := range results {
		if r.LocalPath != "" {
			fmt.Fprintf(w, "  %s\n", r.LocalPath)
		}
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d transfers failed", sum.Failed, len(results))
	}
	return nil
}

func newRmCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm <path> [path...]",
		Short: "Delete files or directories on the device",
		Long: `Delete files or directories (recursively) on the device. You are asked
to confirm first unless --yes is given. Each item is deleted independently.

Examples:
  filehop rm old.log
  filehop rm /tmp/a /tmp/b --yes --device 192.168.1.20`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}

			paths := make([]string, len(args))
			for i, arg := range args {
				paths[i] = s.resolve(arg)
			}

			var confirm services.Confirmer = services.AlwaysConfirm
			if !yes {
				confirm = promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			}

			results, err := s.files().Delete(ctx, s.ep, paths, confirm)
			if errors.Is(err, services.ErrNotConfirmed) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.OK() {
					fmt.Fprintf(out, "✓ Deleted %s\n", r.Path)
				} else {
					fmt.Fprintf(out, "✗ %s: %v\n", r.Path, r.Err)
				}
			}
			if sum := services.Summarize(results); sum.Failed > 0 {
				return fmt.Errorf("%d of %d deletions failed", sum.Failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <path> <new-name>",
		Short: "Rename a file or directory on the device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			p := s.resolve(args[0])
			if err := s.files().Rename(ctx, s.ep, pathutil.Parent(p), pathutil.Base(p), args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Renamed %s to %s\n", p, args[1])
			return nil
		},
	}
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory on the device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			p := s.resolve(args[0])
			if err := s.files().Mkdir(ctx, s.ep, pathutil.Parent(p), pathutil.Base(p)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", p)
			return nil
		},
	}
}
