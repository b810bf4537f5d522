package syncmgr

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches a sync working tree for externally-edited spec files
// (e.g. a teammate's `git pull` landing new *.json files, or manual
// edits) and calls OnChange once per settled file, debouncing rapid
// successive writes to the same file into a single callback.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	root        string
	debounce    map[string]time.Time
	debounceDur time.Duration
	logger      *zap.Logger

	OnChange func(specID string)
}

// NewWatcher creates a Watcher over root (the sync manager's working
// tree). Call Start to begin watching; the returned Watcher must be
// Closed when done.
func NewWatcher(root string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		root:        root,
		debounce:    make(map[string]time.Time),
		debounceDur: 300 * time.Millisecond,
		logger:      logger,
	}, nil
}

// Start begins watching root in a background goroutine and blocks only
// long enough to register the initial watch. It returns once running;
// the caller cancels ctx to stop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.root); err != nil {
		return err
	}
	go w.run(ctx)
	return nil
}

// Close releases the underlying OS watch handles.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".json") {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	w.debounce[event.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, seenAt := range w.debounce {
		if now.Sub(seenAt) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounce, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		specID := strings.TrimSuffix(filepath.Base(path), ".json")
		w.logger.Debug("sync file settled", zap.String("spec_id", specID), zap.String("path", path))
		if w.OnChange != nil {
			w.OnChange(specID)
		}
	}
}
