package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc reloads a store. Callers that serialize reloads pass their own.
type ReloadFunc func(ctx context.Context) error

// Watcher reloads a store when its catalog file changes.
// The parent directory is watched so editors that replace the file
// by rename are picked up too.
type Watcher struct {
	store    *Store
	reload   ReloadFunc
	watcher  *fsnotify.Watcher
	target   string
	debounce time.Duration
	onReload func(err error)
	done     chan struct{}
	timer    *time.Timer
	timerMu  sync.Mutex
	stopOnce sync.Once
	started  atomic.Bool
	loopDone chan struct{}
}

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	Debounce time.Duration
	OnReload func(err error) // called after each debounced reload
	Reload   ReloadFunc      // defaults to the store's Reload
}

// NewWatcher creates a watcher for the store's source file
func NewWatcher(store *Store, cfg WatcherConfig) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if cfg.Debounce == 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	if cfg.Reload == nil {
		cfg.Reload = store.Reload
	}

	return &Watcher{
		store:    store,
		reload:   cfg.Reload,
		watcher:  fw,
		target:   filepath.Clean(store.Source().Path()),
		debounce: cfg.Debounce,
		onReload: cfg.OnReload,
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}, nil
}

// Start begins watching
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.target)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.started.Store(true)
	go w.eventLoop()

	w.store.logger.Info().Str("dir", dir).Msg("Catalog watcher started")
	return nil
}

// Stop stops the watcher and cancels a pending reload
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)

		w.timerMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.timerMu.Unlock()

		if cerr := w.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
		if w.started.Load() {
			<-w.loopDone
		}
	})
	return err
}

// eventLoop processes file system events
func (w *Watcher) eventLoop() {
	defer close(w.loopDone)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.store.logger.Error().Err(err).Msg("Watcher error")

		case <-w.done:
			return
		}
	}
}

// schedule debounces bursts of writes into one reload
func (w *Watcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}

		err := w.reload(context.Background())
		if w.onReload != nil {
			w.onReload(err)
		}
	})
}
