package team

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Watcher polls a team directory and keeps the registry in sync with the
// *.json files on disk. Polling keeps the behavior identical across
// platforms and container filesystems where inotify is unreliable.
type Watcher struct {
	mu sync.Mutex

	dir      string
	interval time.Duration
	registry *Registry
	logger   *zap.Logger

	running  bool
	stopChan chan struct{}

	// lastModTimes maps file path to the mod time seen at the last scan.
	lastModTimes map[string]time.Time
	// teamsByPath remembers which team name each file produced, so a
	// deleted file removes the right team.
	teamsByPath map[string]string
}

// NewWatcher creates a watcher for dir. It does not start polling until
// Start is called.
func NewWatcher(dir string, interval time.Duration, registry *Registry, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{
		dir:          dir,
		interval:     interval,
		registry:     registry,
		logger:       logger.With(zap.String("component", "team_watcher")),
		stopChan:     make(chan struct{}),
		lastModTimes: make(map[string]time.Time),
		teamsByPath:  make(map[string]string),
	}
}

// Start begins polling. The initial scan records current mod times without
// reloading anything; LoadDir is expected to have run already.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("team watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	// Record what is on disk now. Team names are parsed up front so a file
	// deleted before its first modification still maps to a team.
	for path, state := range w.snapshot() {
		w.lastModTimes[path] = state.modTime
		if data, err := os.ReadFile(path); err == nil {
			if t, err := Load(data); err == nil {
				w.teamsByPath[path] = t.Name
			}
		}
	}

	go w.pollLoop(ctx)

	w.logger.Info("team watcher started",
		zap.String("dir", w.dir),
		zap.Duration("interval", w.interval))
	return nil
}

// Stop halts polling. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopChan)
	w.running = false
	w.logger.Info("team watcher stopped")
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

type fileState struct {
	modTime  time.Time
	teamName string
}

// snapshot lists the current team files with their mod times and, for files
// already tracked, their team names.
func (w *Watcher) snapshot() map[string]fileState {
	out := make(map[string]fileState)
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		out[path] = fileState{modTime: info.ModTime(), teamName: w.teamsByPath[path]}
	}
	return out
}

// scan diffs the directory against the last scan and applies changes to the
// registry: new or modified files are reloaded, deleted files remove their
// team. A file that fails to parse is logged and skipped; the previously
// loaded definition stays active.
func (w *Watcher) scan() {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.snapshot()

	for path := range w.lastModTimes {
		if _, stillThere := current[path]; stillThere {
			continue
		}
		delete(w.lastModTimes, path)
		if name, ok := w.teamsByPath[path]; ok {
			delete(w.teamsByPath, path)
			if w.registry.Remove(name) {
				w.logger.Info("team file deleted, team removed",
					zap.String("path", path), zap.String("team", name))
			}
		}
	}

	for path, state := range current {
		lastMod, seen := w.lastModTimes[path]
		if seen && !state.modTime.After(lastMod) {
			continue
		}
		w.lastModTimes[path] = state.modTime
		w.reload(path)
	}
}

func (w *Watcher) reload(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("failed to read team file", zap.String("path", path), zap.Error(err))
		return
	}
	t, err := Load(data)
	if err != nil {
		w.logger.Warn("team file is invalid, keeping previous definition",
			zap.String("path", path), zap.Error(err))
		return
	}

	// A rename inside the file retires the old team name.
	if prev, ok := w.teamsByPath[path]; ok && prev != t.Name {
		w.registry.Remove(prev)
	}
	w.teamsByPath[path] = t.Name
	w.registry.Upsert(t)
	w.logger.Info("reloaded team file",
		zap.String("path", path), zap.String("team", t.Name))
}
