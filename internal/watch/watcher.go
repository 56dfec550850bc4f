// Package watch re-triggers work when export files change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounce          = 100 * time.Millisecond
	errMessageNoPaths        = "no paths to watch"
	errMessageCreateWatcher  = "create file watcher"
	errMessageWatchDirectory = "watch directory"
	logMessageWatching       = "watching files for changes"
	logMessageChangeDetected = "file change detected"
	logMessageWatcherError   = "file watcher error"
	logFieldPath             = "path"
	logFieldDirectory        = "directory"
	triggeringOperationsMask = fsnotify.Write | fsnotify.Create
)

// ErrNoPaths indicates that New was called without any file paths.
var ErrNoPaths = errors.New(errMessageNoPaths)

// Config customizes a Watcher.
type Config struct {
	Paths    []string
	Debounce time.Duration
	Logger   *zap.Logger
}

// Watcher reports debounced changes to a fixed set of files. Parent directories are watched so that
// editors replacing a file atomically are still observed.
type Watcher struct {
	notifier     *fsnotify.Watcher
	watchedPaths map[string]struct{}
	debounce     time.Duration
	logger       *zap.Logger
}

// New registers the parent directories of every path with fsnotify.
func New(configuration Config) (*Watcher, error) {
	if len(configuration.Paths) == 0 {
		return nil, ErrNoPaths
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := configuration.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errMessageCreateWatcher, err)
	}

	watchedPaths := make(map[string]struct{}, len(configuration.Paths))
	watchedDirectories := make(map[string]struct{})
	for _, path := range configuration.Paths {
		absolutePath, absErr := filepath.Abs(path)
		if absErr != nil {
			absolutePath = filepath.Clean(path)
		}
		watchedPaths[absolutePath] = struct{}{}
		directory := filepath.Dir(absolutePath)
		if _, seen := watchedDirectories[directory]; seen {
			continue
		}
		if err := notifier.Add(directory); err != nil {
			_ = notifier.Close()
			return nil, fmt.Errorf("%s %s: %w", errMessageWatchDirectory, directory, err)
		}
		watchedDirectories[directory] = struct{}{}
		logger.Debug(logMessageWatching, zap.String(logFieldDirectory, directory))
	}

	return &Watcher{notifier: notifier, watchedPaths: watchedPaths, debounce: debounce, logger: logger}, nil
}

// Run calls onChange once per burst of changes until ctx is done, then releases the watcher.
func (watcher *Watcher) Run(ctx context.Context, onChange func(changedPath string)) error {
	defer watcher.notifier.Close()

	debounceTimer := time.NewTimer(watcher.debounce)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()

	pendingPath := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.notifier.Events:
			if !ok {
				return nil
			}
			if !watcher.isWatched(event.Name) || event.Op&triggeringOperationsMask == 0 {
				continue
			}
			if pendingPath != "" && !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			pendingPath = event.Name
			debounceTimer.Reset(watcher.debounce)
		case <-debounceTimer.C:
			changedPath := pendingPath
			pendingPath = ""
			watcher.logger.Info(logMessageChangeDetected, zap.String(logFieldPath, changedPath))
			onChange(changedPath)
		case watchErr, ok := <-watcher.notifier.Errors:
			if !ok {
				return nil
			}
			watcher.logger.Warn(logMessageWatcherError, zap.Error(watchErr))
		}
	}
}

func (watcher *Watcher) isWatched(eventPath string) bool {
	absolutePath, err := filepath.Abs(eventPath)
	if err != nil {
		absolutePath = filepath.Clean(eventPath)
	}
	_, watched := watcher.watchedPaths[absolutePath]
	return watched
}
