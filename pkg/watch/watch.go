// Package watch ingests documents dropped into an inbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/kbase/pkg/documents"
	"github.com/papercomputeco/kbase/pkg/logger"
	"github.com/papercomputeco/kbase/pkg/worker"
)

// DefaultDebounce is how long a file must go without writes before it is
// queued. Editors and copies emit several events per file.
const DefaultDebounce = 500 * time.Millisecond

// Enqueuer accepts ingest jobs. *worker.Pool satisfies it.
type Enqueuer interface {
	Enqueue(job worker.Job) bool
}

// Config configures a Watcher.
type Config struct {
	Dir      string
	Queue    Enqueuer
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher queues supported files created or written under Dir.
type Watcher struct {
	dir      string
	queue    Enqueuer
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New validates c and returns a Watcher. The directory is created when missing.
func New(c Config) (*Watcher, error) {
	if c.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if c.Queue == nil {
		return nil, errors.New("watch queue is required")
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving watch directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating watch directory: %w", err)
	}

	return &Watcher{
		dir:      dir,
		queue:    c.Queue,
		debounce: c.Debounce,
		logger:   c.Logger,
		pending:  map[string]*time.Timer{},
	}, nil
}

// Dir returns the absolute directory being watched.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches until ctx is cancelled. Pending debounced files are dropped
// on return.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	defer w.stopPending()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			w.cancel(event.Name)
		}
		return
	}
	if !Eligible(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if info.Size() > documents.MaxFileSize {
		w.logger.Warn("skipping oversized file", "path", path, "size", info.Size())
		return
	}

	w.queue.Enqueue(worker.Job{
		Input: documents.Input{
			Path:   path,
			Name:   filepath.Base(path),
			Source: documents.SourceWatch,
			Keep:   true,
		},
		EnqueuedAt: time.Now(),
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Eligible reports whether path names a file the watcher would queue:
// a supported extension that is not hidden or an editor temp file.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") || strings.HasSuffix(base, "~") {
		return false
	}
	return documents.IsSupported(base)
}
