package services

import (
	"context"
	"fmt"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/models"
	"github.com/filehop/filehop/internal/pathutil"
	stringutil "github.com/filehop/filehop/internal/util/strings"
	"github.com/filehop/filehop/internal/validation"
)

// FileService performs listing and mutations on a device's files.
// Mutations are not retried; callers refresh their listing afterwards.
type FileService struct {
	client RemoteFiles
	logger *logging.Logger
}

// NewFileService creates a file service.
func NewFileService(client RemoteFiles, logger *logging.Logger) *FileService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &FileService{client: client, logger: logger.Component("file-service")}
}

// List returns the contents of dir on ep.
func (s *FileService) List(ctx context.Context, ep api.Endpoint, dir string) ([]models.FileEntry, error) {
	return s.client.List(ctx, ep, pathutil.Normalize(dir))
}

// Delete removes every path after confirm approves the batch. Each item is
// attempted even if an earlier one failed. ErrNotConfirmed is returned when
// the user declines, in which case nothing is deleted.
func (s *FileService) Delete(ctx context.Context, ep api.Endpoint, paths []string, confirm Confirmer) ([]Result, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if confirm == nil {
		return nil, ErrNotConfirmed
	}
	prompt := fmt.Sprintf("Delete %s on %s?", stringutil.Count(len(paths), "item"), ep)
	ok, err := confirm.Confirm(ctx, prompt, paths)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotConfirmed
	}

	results := make([]Result, 0, len(paths))
	failed := 0
	for _, p := range paths {
		res := Result{Name: pathutil.Base(p), Path: p}
		if pathutil.IsRoot(p) {
			res.Err = fmt.Errorf("refusing to delete the root directory")
		} else {
			res.Err = s.client.Delete(ctx, ep, p)
		}
		if res.Err != nil {
			failed++
			s.logger.Error().Err(res.Err).Str("device", ep.String()).Str("path", p).Msg("delete failed")
		}
		results = append(results, res)
	}

	s.logger.Info().
		Str("device", ep.String()).
		Int("deleted", len(paths)-failed).
		Int("failed", failed).
		Msg("delete finished")
	return results, nil
}

// Rename renames the entry oldName in dir to newName.
func (s *FileService) Rename(ctx context.Context, ep api.Endpoint, dir, oldName, newName string) error {
	if err := validation.ValidateFilename(newName); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	dir = pathutil.Normalize(dir)
	oldPath, newPath := pathutil.Join(dir, oldName), pathutil.Join(dir, newName)
	if err := s.client.Rename(ctx, ep, oldPath, newPath); err != nil {
		s.logger.Error().Err(err).Str("device", ep.String()).Str("from", oldPath).Str("to", newPath).Msg("rename failed")
		return err
	}
	return nil
}

// Mkdir creates directory name inside dir.
func (s *FileService) Mkdir(ctx context.Context, ep api.Endpoint, dir, name string) error {
	if err := validation.ValidateFilename(name); err != nil {
		return err
	}
	p := pathutil.Join(pathutil.Normalize(dir), name)
	if err := s.client.Mkdir(ctx, ep, p); err != nil {
		s.logger.Error().Err(err).Str("device", ep.String()).Str("path", p).Msg("mkdir failed")
		return err
	}
	return nil
}
