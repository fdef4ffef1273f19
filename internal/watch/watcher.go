package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/goliatone/go-pagekit/internal/domain"
	"github.com/goliatone/go-pagekit/internal/logging"
	"github.com/goliatone/go-pagekit/internal/mediausage"
	"github.com/goliatone/go-pagekit/internal/storage"
	"github.com/goliatone/go-pagekit/pkg/interfaces"
)

// DefaultDebounce is the quiet period before a changed page is re-indexed.
const DefaultDebounce = 500 * time.Millisecond

// PageIndex receives incremental page updates.
type PageIndex interface {
	UpdatePageMediaUsage(ctx context.Context, projectID string, page *domain.Page) (mediausage.Result, error)
	RemovePageFromMediaUsage(ctx context.Context, projectID, pageID string) (mediausage.Result, error)
}

// PageReader decodes a page document from disk.
type PageReader interface {
	ReadPageFile(projectID, path string) (*domain.Page, error)
}

// Event reports one debounced sync.
type Event struct {
	PageID  string
	Removed bool
	Err     error
}

// Watcher keeps the media usage index in step with page documents edited on
// disk.
type Watcher struct {
	projectID string
	dir       string
	reader    PageReader
	index     PageIndex
	debounce  time.Duration
	logger    interfaces.Logger
	notify    func(Event)

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inflight sync.WaitGroup
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(w *Watcher) { w.logger = logging.Fallback(logger) }
}

// WithNotify registers a callback invoked after every sync.
func WithNotify(fn func(Event)) Option {
	return func(w *Watcher) { w.notify = fn }
}

// New constructs a watcher for the pages directory of a project.
func New(projectID, pagesDir string, reader PageReader, index PageIndex, opts ...Option) *Watcher {
	w := &Watcher{
		projectID: projectID,
		dir:       pagesDir,
		reader:    reader,
		index:     index,
		debounce:  DefaultDebounce,
		logger:    logging.NoOp(),
		timers:    map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the directory is registered.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return errors.New("watch: already started")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch: add %s: %w", w.dir, err)
	}
	watchCtx, cancel := context.WithCancel(ctx)
	w.watcher = watcher
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(watchCtx, watcher, w.done)
	w.logger.Info("watch.started", "project_id", w.projectID, "dir", w.dir)
	return nil
}

// Stop tears down the watcher, drops pending timers and waits for syncs that
// already started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	watcher, cancel, done := w.watcher, w.cancel, w.done
	w.watcher, w.cancel, w.done = nil, nil, nil
	for id, timer := range w.timers {
		if timer.Stop() {
			w.inflight.Done()
		}
		delete(w.timers, id)
	}
	w.mu.Unlock()

	if watcher == nil {
		return nil
	}
	cancel()
	err := watcher.Close()
	<-done
	w.inflight.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			pageID, ok := storage.PageIDFromPath(event.Name)
			if !ok {
				continue
			}
			w.schedule(ctx, pageID, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch.error", "error", err)
		}
	}
}

// schedule (re)arms the debounce timer of a page. Every armed timer holds one
// inflight slot until its callback returns or Stop cancels it.
func (w *Watcher) schedule(ctx context.Context, pageID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return
	}
	if timer, exists := w.timers[pageID]; exists && timer.Stop() {
		w.inflight.Done()
	}
	w.inflight.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.debounce, func() {
		defer w.inflight.Done()
		w.mu.Lock()
		if w.timers[pageID] == timer {
			delete(w.timers, pageID)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.sync(ctx, pageID, path)
	})
	w.timers[pageID] = timer
}

// sync inspects the file when the timer fires, so a write followed by a
// rename settles on the final state.
func (w *Watcher) sync(ctx context.Context, pageID, path string) {
	logger := logging.WithProjectContext(w.logger, w.projectID, "watch_sync")
	event := Event{PageID: pageID}

	_, statErr := os.Stat(path)
	switch {
	case errors.Is(statErr, fs.ErrNotExist):
		event.Removed = true
		_, event.Err = w.index.RemovePageFromMediaUsage(ctx, w.projectID, pageID)
	case statErr != nil:
		event.Err = statErr
	default:
		page, err := w.reader.ReadPageFile(w.projectID, filepath.Clean(path))
		if err != nil {
			event.Err = err
			break
		}
		_, event.Err = w.index.UpdatePageMediaUsage(ctx, w.projectID, page)
	}

	if event.Err != nil {
		logger.Error("watch.sync.failed", "page_id", pageID, "error", event.Err)
	} else {
		logger.Debug("watch.sync.completed", "page_id", pageID, "removed", event.Removed)
	}
	if w.notify != nil {
		w.notify(event)
	}
}
