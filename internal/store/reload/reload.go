// Package reload watches the bigram store's rebuild marker file and swaps
// in a freshly opened store.BigramStore without restarting the server,
// adapted from the companion app's fsnotify-based log poller but watching
// a store marker instead of a live game log.
package reload

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/ramonehamilton/asi-engine/internal/asi/deck"
	"github.com/ramonehamilton/asi-engine/internal/asi/format"
	"github.com/ramonehamilton/asi-engine/internal/store"
)

// OpenFunc opens a fresh store.BigramStore, called each time the marker
// file changes.
type OpenFunc func() (store.BigramStore, error)

// Watcher holds the currently active store and swaps it atomically when the
// rebuild marker file is written.
type Watcher struct {
	markerPath string
	open       OpenFunc

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	current atomic.Pointer[store.BigramStore]
}

// New builds a Watcher over the given marker file path, eagerly opening the
// initial store via open.
func New(markerPath string, open OpenFunc) (*Watcher, error) {
	initial, err := open()
	if err != nil {
		return nil, fmt.Errorf("open initial bigram store: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		markerPath: markerPath,
		open:       open,
		watcher:    fsw,
		ctx:        ctx,
		cancel:     cancel,
	}
	w.current.Store(&initial)

	if err := fsw.Add(markerPath); err != nil {
		log.Printf("[reload] failed to watch marker %s, hot reload disabled: %v", markerPath, err)
		return w, nil
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Store returns the currently active bigram store.
func (w *Watcher) Store() store.BigramStore {
	return *w.current.Load()
}

// Lookup delegates to the currently active bigram store, so a Watcher can
// be used directly as a store.BigramStore that survives reloads underneath
// its caller.
func (w *Watcher) Lookup(ctx context.Context, f format.Format, candidates []deck.Bigram) (*store.QueryResult, error) {
	return w.Store().Lookup(ctx, f, candidates)
}

// Backend delegates to the currently active bigram store.
func (w *Watcher) Backend() string {
	return w.Store().Backend()
}

// Database delegates to the currently active bigram store.
func (w *Watcher) Database() string {
	return w.Store().Database()
}

// Close stops the watcher goroutine and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fresh, err := w.open()
			if err != nil {
				log.Printf("[reload] failed to reopen bigram store after marker change: %v", err)
				continue
			}
			w.current.Store(&fresh)
			log.Printf("[reload] bigram store reloaded from marker %s", w.markerPath)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[reload] watcher error: %v", err)
		}
	}
}
