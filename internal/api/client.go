package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/download"
	"github.com/filehop/filehop/internal/http"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/models"
)

// maxErrorBody bounds how much of a failed response is kept as error detail.
const maxErrorBody = 64 * 1024

// Config configures a Client.
type Config struct {
	// LocalOrigin is the base URL the Local endpoint resolves to.
	LocalOrigin string

	// HTTPClient overrides the default transfer client.
	HTTPClient *nethttp.Client

	Logger *logging.Logger
}

// Client issues file-service requests to any device. It holds no per-device
// state and is safe for concurrent use. Requests are never retried.
type Client struct {
	httpClient  *nethttp.Client
	localOrigin string
	logger      *logging.Logger
}

// NewClient creates a new API client.
func NewClient(cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = http.NewTransferClient(http.ClientOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
		}
	}

	origin := cfg.LocalOrigin
	if origin == "" {
		origin = constants.DefaultLocalOrigin
	}
	if _, err := url.Parse(origin); err != nil {
		return nil, fmt.Errorf("invalid local origin %q: %w", origin, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Client{
		httpClient:  httpClient,
		localOrigin: strings.TrimSuffix(origin, "/"),
		logger:      logger.Component("api"),
	}, nil
}

// List returns the contents of directory dir (not recursive).
func (c *Client) List(ctx context.Context, ep Endpoint, dir string) ([]models.FileEntry, error) {
	resp, err := c.do(ctx, "list", ep, nethttp.MethodGet, "/api/files", pathQuery(dir), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []models.FileEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, &StreamError{Op: "list", Path: dir, Err: fmt.Errorf("decode listing: %w", err)}
	}
	if entries == nil {
		entries = []models.FileEntry{}
	}
	return entries, nil
}

// Download fetches the file at p into memory. onProgress (may be nil) is
// called after every chunk with the bytes received so far and the
// Content-Length (0 when the server sent none). A failure mid-body returns
// a *StreamError and no data.
func (c *Client) Download(ctx context.Context, ep Endpoint, p string, onProgress download.ProgressFunc) ([]byte, error) {
	resp, err := c.do(ctx, "download", ep, nethttp.MethodGet, "/api/files/download", pathQuery(p), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	total := download.TotalFromHeader(resp.Header)
	var loaded uint64
	d := &download.ChunkedDownloader{OnProgress: func(l, t uint64) {
		loaded = l
		if onProgress != nil {
			onProgress(l, t)
		}
	}}

	data, err := d.ReadAll(ctx, resp.Body, total)
	if err != nil {
		return nil, &StreamError{Op: "download", Path: p, Loaded: loaded, Err: err}
	}

	c.logger.Debug().
		Str("device", ep.String()).
		Str("path", p).
		Int("bytes", len(data)).
		Msg("download finished")
	return data, nil
}

// Upload sends content as file fileName into directory targetDir.
// The multipart body is streamed; no intermediate progress is reported.
func (c *Client) Upload(ctx context.Context, ep Endpoint, targetDir, fileName string, content io.Reader) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadBody(mw, targetDir, fileName, content)
		pw.CloseWithError(err)
	}()

	resp, err := c.do(ctx, "upload", ep, nethttp.MethodPost, "/api/files/upload", nil, pr, mw.FormDataContentType())
	// Unblock the writer goroutine if the request ended before reading the whole body.
	pr.CloseWithError(errors.New("upload request finished"))
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

func writeUploadBody(mw *multipart.Writer, targetDir, fileName string, content io.Reader) error {
	if err := mw.WriteField("path", targetDir); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("read upload source: %w", err)
	}
	return mw.Close()
}

// Delete removes the file or directory at p.
func (c *Client) Delete(ctx context.Context, ep Endpoint, p string) error {
	resp, err := c.do(ctx, "delete", ep, nethttp.MethodDelete, "/api/files", pathQuery(p), nil, "")
	if err != nil {
		return err
	}
	drainAndClose(resp)
	return nil
}

// Rename moves oldPath to newPath on the device.
func (c *Client) Rename(ctx context.Context, ep Endpoint, oldPath, newPath string) error {
	return c.doJSON(ctx, "rename", ep, nethttp.MethodPut, "/api/files/rename",
		models.RenameRequest{OldPath: oldPath, NewPath: newPath}, nil)
}

// Mkdir creates directory p. The device rejects an existing path or a missing parent.
func (c *Client) Mkdir(ctx context.Context, ep Endpoint, p string) error {
	return c.doJSON(ctx, "mkdir", ep, nethttp.MethodPost, "/api/files/mkdir",
		models.MkdirRequest{Path: p}, nil)
}

// DeviceInfo fetches the device's self-description.
func (c *Client) DeviceInfo(ctx context.Context, ep Endpoint) (models.Device, error) {
	var dev models.Device
	err := c.doJSON(ctx, "device info", ep, nethttp.MethodGet, "/api/device/info", nil, &dev)
	return dev, err
}

// SetThrottle sets the device's bandwidth limit; 0 means unlimited.
func (c *Client) SetThrottle(ctx context.Context, ep Endpoint, bytesPerSec uint64) error {
	return c.doJSON(ctx, "throttle", ep, nethttp.MethodPut, "/api/settings/throttle",
		models.ThrottleRequest{BytesPerSec: bytesPerSec}, nil)
}

// doJSON sends payload (if any) as JSON and decodes the response into out (if any).
func (c *Client) doJSON(ctx context.Context, op string, ep Endpoint, method, apiPath string, payload, out interface{}) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request body: %w", op, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, op, ep, method, apiPath, nil, body, contentType)
	if err != nil {
		return err
	}
	if out == nil {
		drainAndClose(resp)
		return nil
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &StreamError{Op: op, Path: apiPath, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// do performs one request. It returns a *TransportError when no response
// arrived and a *RemoteError (body consumed and closed) for non-2xx.
// On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op string, ep Endpoint, method, apiPath string, query url.Values, body io.Reader, contentType string) (*nethttp.Response, error) {
	u := ep.baseURL(c.localOrigin) + apiPath
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &TransportError{Op: op, URL: u, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Str("url", u).Msg("request failed")
		return nil, &TransportError{Op: op, URL: u, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rerr := &RemoteError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(detail)),
		}
		c.logger.Debug().Str("op", op).Str("url", u).Int("status", resp.StatusCode).Msg(rerr.Body)
		return nil, rerr
	}

	return resp, nil
}

func pathQuery(p string) url.Values {
	return url.Values{"path": []string{p}}
}

func drainAndClose(resp *nethttp.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
