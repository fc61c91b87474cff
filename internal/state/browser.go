// Package state provides the observable browsing state: which device and
// directory is open, its last listing, and the current selection.
package state

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/filehop/filehop/internal/api"
	"github.com/filehop/filehop/internal/events"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/models"
	"github.com/filehop/filehop/internal/pathutil"
)

// Lister fetches a directory listing. *api.Client satisfies it.
type Lister interface {
	List(ctx context.Context, ep api.Endpoint, dir string) ([]models.FileEntry, error)
}

// SortKey selects the listing order. Directories always come first.
type SortKey string

const (
	SortByName SortKey = "name"
	SortBySize SortKey = "size"
	SortByDate SortKey = "date"
)

// Browser is an observable listing container. Every change is published
// as an events.ListingEvent. Safe for concurrent use.
//
// Listings are not versioned: a refresh shows whatever the device reported
// when it answered, so it may or may not include a mutation that raced with
// it. A refresh that answers after the user moved to another device or
// directory is dropped.
type Browser struct {
	lister   Lister
	eventBus *events.EventBus
	logger   *logging.Logger

	mu        sync.RWMutex
	device    models.Device
	endpoint  api.Endpoint
	path      string
	entries   []models.FileEntry
	selected  map[string]bool
	sortBy    SortKey
	ascending bool
	loading   bool
	lastError error
	location  uint64 // bumped on every device or path change
}

// NewBrowser creates a Browser on the local endpoint at "/".
func NewBrowser(lister Lister, eventBus *events.EventBus, logger *logging.Logger) *Browser {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Browser{
		lister:    lister,
		eventBus:  eventBus,
		logger:    logger.Component("browser"),
		endpoint:  api.Local(),
		path:      pathutil.Root,
		entries:   []models.FileEntry{},
		selected:  make(map[string]bool),
		sortBy:    SortByName,
		ascending: true,
	}
}

// SetDevice switches to another device and opens its home directory (or
// the root). The listing and selection are cleared until the next Refresh.
func (b *Browser) SetDevice(d models.Device, ep api.Endpoint) {
	b.mu.Lock()
	b.device = d
	b.endpoint = ep
	b.path = pathutil.StartPath("", d.HomeDir)
	b.resetLocked()
	b.mu.Unlock()
	b.publish()
}

// Navigate opens p (normalized to an absolute path).
func (b *Browser) Navigate(p string) {
	p = pathutil.Normalize(p)
	b.mu.Lock()
	if p == b.path {
		b.mu.Unlock()
		return
	}
	b.path = p
	b.resetLocked()
	b.mu.Unlock()
	b.publish()
}

// Open navigates into the directory called name in the current listing.
// It reports whether navigation happened.
func (b *Browser) Open(name string) bool {
	e, ok := b.Find(name)
	if !ok || !e.IsDir {
		return false
	}
	b.Navigate(pathutil.Join(b.Path(), e.Name))
	return true
}

// Up navigates to the parent directory. The root's parent is the root.
func (b *Browser) Up() {
	b.Navigate(pathutil.Parent(b.Path()))
}

func (b *Browser) resetLocked() {
	b.entries = []models.FileEntry{}
	b.selected = make(map[string]bool)
	b.lastError = nil
	b.location++
}

// Refresh re-lists the current directory. On failure the previous entries
// stay in place, the error is logged and kept in Err, and it is returned.
func (b *Browser) Refresh(ctx context.Context) error {
	b.mu.Lock()
	ep, dir, loc := b.endpoint, b.path, b.location
	b.loading = true
	b.mu.Unlock()

	entries, err := b.lister.List(ctx, ep, dir)

	b.mu.Lock()
	b.loading = false
	if loc != b.location {
		b.mu.Unlock()
		b.logger.Debug().Str("path", dir).Msg("dropping listing for a directory no longer open")
		return nil
	}
	if err != nil {
		b.lastError = err
		b.mu.Unlock()
		b.logger.Error().Err(err).Str("device", ep.String()).Str("path", dir).Msg("listing failed, keeping previous entries")
		b.publish()
		return err
	}

	b.entries = entries
	b.sortLocked()
	b.lastError = nil

	// Drop selections that no longer exist.
	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name] = true
	}
	for name := range b.selected {
		if !present[name] {
			delete(b.selected, name)
		}
	}
	b.mu.Unlock()

	b.publish()
	return nil
}

func (b *Browser) publish() {
	if b.eventBus == nil {
		return
	}
	b.mu.RLock()
	ev := &events.ListingEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventListingChanged, Time: time.Now()},
		Device:    b.endpoint.DeviceID(),
		Path:      b.path,
		Entries:   len(b.entries),
		Error:     b.lastError,
	}
	b.mu.RUnlock()
	b.eventBus.Publish(ev)
}

// Device returns the current device and its endpoint.
func (b *Browser) Device() (models.Device, api.Endpoint) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.device, b.endpoint
}

// Path returns the current directory.
func (b *Browser) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Breadcrumbs returns the crumbs of the current directory.
func (b *Browser) Breadcrumbs() []pathutil.Crumb {
	return pathutil.Breadcrumbs(b.Path())
}

// Entries returns a copy of the current listing in display order.
func (b *Browser) Entries() []models.FileEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.FileEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Find looks an entry up by name.
func (b *Browser) Find(name string) (models.FileEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.entries {
		if e.Name == name {
			return e, true
		}
	}
	return models.FileEntry{}, false
}

// Loading reports whether a refresh is in flight.
func (b *Browser) Loading() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loading
}

// Err returns the error of the last refresh, nil if it succeeded.
func (b *Browser) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastError
}

// Select adds a name to the selection.
func (b *Browser) Select(name string) {
	b.mu.Lock()
	b.selected[name] = true
	b.mu.Unlock()
}

// Deselect removes a name from the selection.
func (b *Browser) Deselect(name string) {
	b.mu.Lock()
	delete(b.selected, name)
	b.mu.Unlock()
}

// ToggleSelect toggles a name's selection state.
func (b *Browser) ToggleSelect(name string) {
	b.mu.Lock()
	if b.selected[name] {
		delete(b.selected, name)
	} else {
		b.selected[name] = true
	}
	b.mu.Unlock()
}

// SetSelection replaces the selection.
func (b *Browser) SetSelection(names []string) {
	b.mu.Lock()
	b.selected = make(map[string]bool, len(names))
	for _, n := range names {
		b.selected[n] = true
	}
	b.mu.Unlock()
}

// ClearSelection clears all selections.
func (b *Browser) ClearSelection() {
	b.mu.Lock()
	b.selected = make(map[string]bool)
	b.mu.Unlock()
}

// IsSelected returns whether a name is selected.
func (b *Browser) IsSelected(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selected[name]
}

// Selected returns the selected entries in display order.
func (b *Browser) Selected() []models.FileEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.FileEntry, 0, len(b.selected))
	for _, e := range b.entries {
		if b.selected[e.Name] {
			out = append(out, e)
		}
	}
	return out
}

// SelectedPaths returns the absolute paths of the selected entries.
func (b *Browser) SelectedPaths() []string {
	dir := b.Path()
	sel := b.Selected()
	out := make([]string, len(sel))
	for i, e := range sel {
		out[i] = pathutil.Join(dir, e.Name)
	}
	return out
}

// SetSort updates the order and re-sorts the listing.
func (b *Browser) SetSort(by SortKey, ascending bool) {
	b.mu.Lock()
	b.sortBy = by
	b.ascending = ascending
	b.sortLocked()
	b.mu.Unlock()
	b.publish()
}

// sortLocked sorts the entries by the current settings (must hold lock).
func (b *Browser) sortLocked() {
	sort.SliceStable(b.entries, func(i, j int) bool {
		x, y := b.entries[i], b.entries[j]
		if x.IsDir != y.IsDir {
			return x.IsDir
		}

		var less bool
		switch b.sortBy {
		case SortBySize:
			less = x.Size < y.Size
		case SortByDate:
			less = x.Modified < y.Modified
		default:
			less = strings.ToLower(x.Name) < strings.ToLower(y.Name)
		}
		if b.ascending {
			return less
		}
		return !less
	})
}
