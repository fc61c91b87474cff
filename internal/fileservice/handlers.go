package fileservice

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/localfs"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/metrics"
	"github.com/filehop/filehop/internal/models"
	"github.com/filehop/filehop/internal/validation"
)

var (
	errIsDirectory  = errors.New("is a directory")
	errNotDirectory = errors.New("not a directory")
	errRootDelete   = errors.New("cannot delete the root directory")
)

func (s *Server) handleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, s.device)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	dir, err := s.resolve(r.URL.Query().Get("path"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	info, err := os.Stat(dir)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if !info.IsDir() {
		s.sendError(w, r, fmt.Errorf("%s: %w", r.URL.Query().Get("path"), errNotDirectory))
		return
	}

	entries, err := localfs.List(dir, localfs.ListOptions{IncludeHidden: true})
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	p, err := s.resolve(r.URL.Query().Get("path"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	f, err := os.Open(p)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if info.IsDir() {
		s.sendError(w, r, fmt.Errorf("%s: %w", r.URL.Query().Get("path"), errIsDirectory))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name()}))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}

	n, err := io.Copy(w, f)
	s.recordBytes(metrics.BytesOut, n)
	if err != nil {
		// Headers are gone; the client sees a short body.
		s.logger.Warn().Err(err).Str("path", p).Int64("sent", n).Msg("download interrupted")
	}
}

// handleUpload reads a multipart body with a "path" field (target
// directory) followed by a "file" part. The file is written beside its
// destination and renamed into place, replacing an existing file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		s.sendError(w, r, badRequest(err))
		return
	}

	targetDir := ""
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			s.sendError(w, r, badRequest(errors.New("missing file part")))
			return
		}
		if err != nil {
			s.sendError(w, r, badRequest(err))
			return
		}

		switch part.FormName() {
		case "path":
			b, err := io.ReadAll(io.LimitReader(part, constants.MaxJSONBody))
			part.Close()
			if err != nil {
				s.sendError(w, r, badRequest(err))
				return
			}
			targetDir = string(b)
		case "file":
			dst, n, err := s.receiveFile(targetDir, part)
			part.Close()
			s.recordBytes(metrics.BytesIn, n)
			if err != nil {
				s.sendError(w, r, err)
				return
			}
			s.logger.Info().Str("file", dst).Int64("bytes", n).Msg("upload received")
			w.WriteHeader(http.StatusOK)
			return
		default:
			part.Close()
		}
	}
}

type namedReader interface {
	io.Reader
	FileName() string
}

func (s *Server) receiveFile(targetDir string, part namedReader) (string, int64, error) {
	if targetDir == "" {
		return "", 0, badRequest(errors.New("missing path field before file"))
	}
	dir, err := s.resolve(targetDir)
	if err != nil {
		return "", 0, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", 0, err
	}
	if !info.IsDir() {
		return "", 0, fmt.Errorf("%s: %w", targetDir, errNotDirectory)
	}
	name := part.FileName()
	if err := validation.ValidateFilename(name); err != nil {
		return "", 0, err
	}

	dst := filepath.Join(dir, name)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.filehop-tmp", name, uuid.New().String()[:8]))
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, part)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", n, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return "", n, err
	}
	return dst, n, nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqPath := r.URL.Query().Get("path")
	p, err := s.resolve(reqPath)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if p == s.root {
		s.sendError(w, r, badRequest(errRootDelete))
		return
	}
	if _, err := os.Lstat(p); err != nil {
		s.sendError(w, r, err)
		return
	}
	if err := os.RemoveAll(p); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.logger.Info().Str("path", reqPath).Msg("deleted")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req models.RenameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	oldPath, err := s.resolve(req.OldPath)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	newPath, err := s.resolve(req.NewPath)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if oldPath == s.root || newPath == s.root {
		s.sendError(w, r, badRequest(errors.New("cannot rename the root directory")))
		return
	}
	if _, err := os.Lstat(oldPath); err != nil {
		s.sendError(w, r, err)
		return
	}
	if _, err := os.Lstat(newPath); err == nil {
		s.sendError(w, r, fmt.Errorf("%s: %w", req.NewPath, fs.ErrExist))
		return
	}
	if err := s.requireDir(filepath.Dir(newPath)); err != nil {
		s.sendError(w, r, err)
		return
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.logger.Info().Str("from", req.OldPath).Str("to", req.NewPath).Msg("renamed")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	var req models.MkdirRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	p, err := s.resolve(req.Path)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if _, err := os.Lstat(p); err == nil {
		s.sendError(w, r, fmt.Errorf("%s: %w", req.Path, fs.ErrExist))
		return
	}
	if err := s.requireDir(filepath.Dir(p)); err != nil {
		s.sendError(w, r, err)
		return
	}
	if err := os.Mkdir(p, 0755); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.logger.Info().Str("path", req.Path).Msg("directory created")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleThrottle(w http.ResponseWriter, r *http.Request) {
	var req models.ThrottleRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	s.throttle.Store(req.BytesPerSec)
	s.logger.Info().Uint64("bytes_per_sec", req.BytesPerSec).Msg("throttle updated")
	w.WriteHeader(http.StatusNoContent)
}

// handleLogs writes a log entry forwarded by a client into the server log.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	var rec models.LogRecord
	if !s.decodeJSON(w, r, &rec) {
		return
	}
	level, err := logging.ParseLevel(rec.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	source := rec.Source
	if source == "" {
		source = r.RemoteAddr
	}

	zl := s.logger.Zerolog()
	ev := zl.WithLevel(level).Str("client", source)
	if !rec.Time.IsZero() {
		ev = ev.Time("client_time", rec.Time)
	}
	if len(rec.Fields) > 0 {
		ev = ev.Fields(rec.Fields)
	}
	ev.Msg(rec.Message)
	w.WriteHeader(http.StatusNoContent)
}

// resolve maps a request path onto the served root.
func (s *Server) resolve(requestPath string) (string, error) {
	return validation.ResolveUnderRoot(s.root, requestPath)
}

func (s *Server) requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errNotDirectory
	}
	return nil
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, constants.MaxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		s.sendError(w, r, badRequest(fmt.Errorf("invalid request body: %w", err)))
		return false
	}
	return true
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("failed to write response")
	}
}

// sendError writes err as plain text with the status its kind maps to.
func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		log = s.logger.Error()
	}
	log.Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	http.Error(w, err.Error(), status)
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return badRequestError{err: err} }

func statusFor(err error) int {
	var br badRequestError
	switch {
	case errors.As(err, &br),
		errors.Is(err, validation.ErrInvalidPath),
		errors.Is(err, errIsDirectory),
		errors.Is(err, errNotDirectory):
		return http.StatusBadRequest
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrExist):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) recordBytes(direction string, n int64) {
	if s.metrics != nil {
		s.metrics.RecordBytes(direction, n)
	}
}
