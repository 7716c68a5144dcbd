// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package watcher reports debounced changes to files on disk.
package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc is called once per debounced burst of changes to a key's files.
type ChangeFunc func(key, path string)

// FileWatcher watches groups of files by key. Parent directories are watched
// rather than the files themselves so that editors which save by renaming a
// temp file over the original are still seen.
type FileWatcher struct {
	mu        sync.RWMutex
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	onChange  ChangeFunc
	files     map[string][]string // key -> watched files
	fileToKey map[string]string   // file -> key
	dirs      map[string]int      // dir -> ref count
	closed    bool
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewFileWatcher creates a watcher that calls onChange after changes settle
// for the debounce duration.
func NewFileWatcher(debounce time.Duration, onChange ChangeFunc) (*FileWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &FileWatcher{
		watcher:   fsWatcher,
		debouncer: NewDebouncer(debounce),
		onChange:  onChange,
		files:     make(map[string][]string),
		fileToKey: make(map[string]string),
		dirs:      make(map[string]int),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Watch replaces the set of files watched under key.
func (w *FileWatcher) Watch(key string, paths ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("watcher is closed")
	}

	w.unwatchLocked(key)

	var watched []string
	var firstErr error
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		if err := w.addDir(filepath.Dir(abs)); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("watch %s: %w", abs, err)
			}
			continue
		}
		watched = append(watched, abs)
		w.fileToKey[abs] = key
	}

	if len(watched) > 0 {
		w.files[key] = watched
	}
	return firstErr
}

// Unwatch stops watching key's files.
func (w *FileWatcher) Unwatch(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[key]; !ok {
		return fmt.Errorf("%s not being watched", key)
	}
	w.unwatchLocked(key)
	w.debouncer.Cancel(key)
	return nil
}

func (w *FileWatcher) unwatchLocked(key string) {
	for _, f := range w.files[key] {
		w.removeDir(filepath.Dir(f))
		delete(w.fileToKey, f)
	}
	delete(w.files, key)
}

// Watching returns the watched keys in sorted order.
func (w *FileWatcher) Watching() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	keys := make([]string, 0, len(w.files))
	for k := range w.files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetDebounce sets the debounce duration.
func (w *FileWatcher) SetDebounce(d time.Duration) {
	w.debouncer.SetDuration(d)
}

// Close stops the watcher. Pending callbacks are dropped.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *FileWatcher) addDir(dir string) error {
	w.dirs[dir]++
	if w.dirs[dir] == 1 {
		if err := w.watcher.Add(dir); err != nil {
			delete(w.dirs, dir)
			return err
		}
	}
	return nil
}

func (w *FileWatcher) removeDir(dir string) {
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		_ = w.watcher.Remove(dir)
		delete(w.dirs, dir)
	}
}

func (w *FileWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher: %v", err)
		}
	}
}

func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	// Chmod alone carries no content change.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	path := filepath.Clean(event.Name)
	w.mu.RLock()
	key, ok := w.fileToKey[path]
	closed := w.closed
	w.mu.RUnlock()
	if !ok || closed {
		return
	}

	w.debouncer.Debounce(key, func() {
		w.mu.RLock()
		closed := w.closed
		w.mu.RUnlock()
		if closed || w.onChange == nil {
			return
		}
		w.onChange(key, path)
	})
}
