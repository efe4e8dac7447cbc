package core

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads a TOML config file whenever it changes on disk and
// hands the new Config to a callback. A file that fails to parse is logged and
// ignored; the last good Config stays current.
type ConfigWatcher struct {
	path     string
	onChange func(Config)

	mutex   sync.RWMutex
	current Config

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	isClosed bool
}

// NewConfigWatcher loads path once and starts watching it. The callback is not
// invoked for the initial load.
func NewConfigWatcher(path string, onChange func(Config)) (*ConfigWatcher, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files on save, so watch the directory rather than the file.
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	cw := &ConfigWatcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		current:  cfg,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go cw.start()
	return cw, nil
}

// Current returns the last successfully parsed Config.
func (cw *ConfigWatcher) Current() Config {
	cw.mutex.RLock()
	defer cw.mutex.RUnlock()
	return cw.current
}

func (cw *ConfigWatcher) Close() error {
	cw.mutex.Lock()
	if cw.isClosed {
		cw.mutex.Unlock()
		return errors.New("config watcher already closed")
	}
	cw.isClosed = true
	cw.mutex.Unlock()

	close(cw.done)
	<-cw.stopped
	return nil
}

func (cw *ConfigWatcher) start() {
	defer close(cw.stopped)
	for {
		select {
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cw.reload()
			}

		case e, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError("config watcher: %s", e)

		case <-cw.done:
			cw.fsnotify.Close()
			return
		}
	}
}

func (cw *ConfigWatcher) reload() {
	cfg, err := LoadConfig(cw.path)
	if err != nil {
		LogWarn("config %s not reloaded: %s", cw.path, err)
		return
	}

	cw.mutex.Lock()
	cw.current = cfg
	cw.mutex.Unlock()

	LogInfo("config %s reloaded", cw.path)
	if cw.onChange != nil {
		cw.onChange(cfg)
	}
}
