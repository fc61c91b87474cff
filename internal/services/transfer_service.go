package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/download"
	"github.com/filehop/filehop/internal/localfs"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/models"
	"github.com/filehop/filehop/internal/pathutil"
	"github.com/filehop/filehop/internal/transfer"
	"github.com/filehop/filehop/internal/util/buffers"
	"github.com/filehop/filehop/internal/util/filter"
)

// TransferService moves batches of files between this machine and a device.
// Files in a batch go one after another; each gets its own task in the store,
// registered just before its network call, and fails independently.
type TransferService struct {
	client   RemoteFiles
	store    *transfer.Store
	logger   *logging.Logger
	notifier BatchNotifier
}

// TransferServiceConfig configures a TransferService.
type TransferServiceConfig struct {
	Client   RemoteFiles
	Store    *transfer.Store
	Logger   *logging.Logger
	Notifier BatchNotifier // optional
}

// NewTransferService creates a transfer service.
func NewTransferService(cfg TransferServiceConfig) *TransferService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &TransferService{
		client:   cfg.Client,
		store:    cfg.Store,
		logger:   logger.Component("transfer-service"),
		notifier: cfg.Notifier,
	}
}

// Store returns the task store the service reports into.
func (s *TransferService) Store() *transfer.Store {
	return s.store
}

// Upload sends sources into targetDir on ep. Once ctx is cancelled the
// current file ends as cancelled and the rest are skipped.
func (s *TransferService) Upload(ctx context.Context, ep api.Endpoint, targetDir string, sources []UploadSource) []Result {
	results := make([]Result, 0, len(sources))
	for _, src := range sources {
		dir := targetDir
		if src.TargetDir != "" {
			dir = src.TargetDir
		}
		if ctx.Err() != nil {
			results = append(results, Result{Name: src.Name, Path: pathutil.Join(dir, src.Name), Skipped: true})
			continue
		}
		results = append(results, s.uploadOne(ctx, ep, dir, src))
	}
	s.finishBatch(transfer.DirectionUpload, results)
	return results
}

func (s *TransferService) uploadOne(ctx context.Context, ep api.Endpoint, dir string, src UploadSource) Result {
	res := Result{Name: src.Name, Path: pathutil.Join(dir, src.Name)}

	task := transfer.NewTask(transfer.DirectionUpload, src.Name, src.Size, constants.LocalDeviceID, ep.DeviceID())
	res.TaskID = task.ID

	fileCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.store.AddTask(task)
	s.store.SetCancel(task.ID, cancel)

	err := s.upload(fileCtx, ep, dir, src)
	res.Err = s.settle(fileCtx, task, err)
	return res
}

func (s *TransferService) upload(ctx context.Context, ep api.Endpoint, dir string, src UploadSource) error {
	if src.Open == nil {
		return fmt.Errorf("no content for %s", src.Name)
	}
	rc, err := src.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", src.Name, err)
	}
	defer rc.Close()
	return s.client.Upload(ctx, ep, dir, src.Name, rc)
}

// Download fetches the non-directory entries of dir on ep and hands each
// body to saver. Directories are skipped.
func (s *TransferService) Download(ctx context.Context, ep api.Endpoint, dir string, entries []models.FileEntry, saver Saver) []Result {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		p := pathutil.Join(dir, e.Name)
		if e.IsDir || ctx.Err() != nil {
			results = append(results, Result{Name: e.Name, Path: p, Skipped: true})
			continue
		}
		results = append(results, s.downloadOne(ctx, ep, p, e, saver))
	}
	s.finishBatch(transfer.DirectionDownload, results)
	return results
}

func (s *TransferService) downloadOne(ctx context.Context, ep api.Endpoint, p string, e models.FileEntry, saver Saver) Result {
	res := Result{Name: e.Name, Path: p}

	task := transfer.NewTask(transfer.DirectionDownload, e.Name, e.Size, ep.DeviceID(), constants.LocalDeviceID)
	res.TaskID = task.ID

	fileCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.store.AddTask(task)
	s.store.SetCancel(task.ID, cancel)

	data, err := s.client.Download(fileCtx, ep, p, func(loaded, total uint64) {
		s.store.UpdateTask(task.ID, transfer.ProgressPatch(download.Percent(loaded, total)))
	})
	if err == nil {
		res.LocalPath, err = saver.Save(fileCtx, e.Name, data)
	}
	res.Err = s.settle(fileCtx, task, err)
	if res.Err != nil && res.LocalPath != "" {
		// Cancelled after the file was already written.
		os.Remove(res.LocalPath)
		res.LocalPath = ""
	}
	return res
}

// settle moves the task to its terminal state and returns the item error.
func (s *TransferService) settle(ctx context.Context, task transfer.TransferTask, err error) error {
	log := s.logger.With().
		Str("task", task.ID).
		Str("direction", string(task.Direction)).
		Str("file", task.FileName).
		Logger()

	if stored, ok := s.store.Task(task.ID); ok && stored.Status == transfer.StatusCancelled {
		// Cancelled through the store, possibly after the call had finished.
		log.Info().Msg("transfer cancelled")
		return context.Canceled
	}

	switch {
	case err == nil:
		s.store.UpdateTask(task.ID, transfer.CompletedPatch())
		log.Debug().Msg("transfer completed")
		return nil
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		s.store.UpdateTask(task.ID, transfer.CancelledPatch())
		log.Info().Msg("transfer cancelled")
		return context.Canceled
	default:
		s.store.UpdateTask(task.ID, transfer.FailedPatch(err))
		log.Error().Err(err).Msg("transfer failed")
		return err
	}
}

func (s *TransferService) finishBatch(dir transfer.Direction, results []Result) {
	sum := Summarize(results)
	if sum.Completed+sum.Failed == 0 {
		return
	}
	s.logger.Info().
		Str("direction", string(dir)).
		Int("completed", sum.Completed).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Int64("read_buffers", buffers.GetStats().Allocations).
		Msg("batch finished")
	if s.notifier != nil {
		s.notifier.BatchFinished(dir, sum.Completed, sum.Failed)
	}
}

// StartUpload runs Upload in the background. The channel receives the
// results once and is then closed.
func (s *TransferService) StartUpload(ctx context.Context, ep api.Endpoint, targetDir string, sources []UploadSource) <-chan []Result {
	out := make(chan []Result, 1)
	go func() {
		defer close(out)
		out <- s.Upload(ctx, ep, targetDir, sources)
	}()
	return out
}

// StartDownload runs Download in the background. The channel receives the
// results once and is then closed.
func (s *TransferService) StartDownload(ctx context.Context, ep api.Endpoint, dir string, entries []models.FileEntry, saver Saver) <-chan []Result {
	out := make(chan []Result, 1)
	go func() {
		defer close(out)
		out <- s.Download(ctx, ep, dir, entries, saver)
	}()
	return out
}

// UploadTree uploads localRoot (a file or a directory) into targetDir,
// recreating its directory structure on the device first. A directory is
// uploaded under its own name. Files rejected by f are left out.
func (s *TransferService) UploadTree(ctx context.Context, ep api.Endpoint, targetDir, localRoot string, opts localfs.WalkOptions, f filter.Config) ([]Result, error) {
	base := targetDir
	info, err := os.Stat(localRoot)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		base = pathutil.Join(targetDir, filepath.Base(localRoot))
		if err := s.ensureDir(ctx, ep, base); err != nil {
			return nil, err
		}
	}

	files, err := localfs.Walk(localRoot, opts, func(relDir string) error {
		return s.ensureDir(ctx, ep, joinRel(base, relDir))
	})
	if err != nil {
		return nil, err
	}
	files = filter.Files(files, f)

	sources := make([]UploadSource, 0, len(files))
	for _, lf := range files {
		sources = append(sources, UploadSource{
			Name:      lf.Name,
			Size:      lf.Size,
			Open:      lf.Open,
			TargetDir: joinRel(base, lf.RelDir),
		})
	}
	return s.Upload(ctx, ep, base, sources), nil
}

// ensureDir creates p on the device; an existing directory is fine.
func (s *TransferService) ensureDir(ctx context.Context, ep api.Endpoint, p string) error {
	if pathutil.IsRoot(p) {
		return nil
	}
	err := s.client.Mkdir(ctx, ep, p)
	if err != nil && !api.IsConflict(err) {
		return fmt.Errorf("create %s: %w", p, err)
	}
	return nil
}

func joinRel(base, rel string) string {
	for _, seg := range pathutil.Segments(rel) {
		base = pathutil.Join(base, seg)
	}
	return base
}
