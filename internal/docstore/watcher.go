package docstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultWatchDebounce = 100 * time.Millisecond

// watcher refreshes subscribed documents when the SQLite file changes on disk.
type watcher struct {
	fs       *fsnotify.Watcher
	store    *GormStore
	base     string
	debounce time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

// Watch starts watching the SQLite database file at path so that writes from
// other processes reach local listeners. The directory is watched because
// SQLite replaces journal and WAL files next to the database.
func (s *GormStore) Watch(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("watch: database file path is required")
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return err
	}

	w := &watcher{
		fs:       fsw,
		store:    s,
		base:     filepath.Base(abs),
		debounce: defaultWatchDebounce,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	s.watcher = w

	s.logger.Info("watching database file", zap.String("path", abs))
	return nil
}

func (w *watcher) loop() {
	defer w.wg.Done()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.store.logger.Warn("database watcher error", zap.Error(err))
		case <-timerC:
			timerC = nil
			if err := w.store.Refresh(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
				w.store.logger.Warn("refresh after file change failed", zap.Error(err))
			}
		}
	}
}

func (w *watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasPrefix(filepath.Base(event.Name), w.base)
}

func (w *watcher) close() error {
	close(w.done)
	err := w.fs.Close()
	w.wg.Wait()
	return err
}
