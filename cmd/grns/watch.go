package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/untoldecay/grns/internal/server"
	"github.com/untoldecay/grns/internal/store"
)

// watchImportDir imports NDJSON files dropped into dir. Writes are debounced
// so a file is only read once its producer has gone quiet.
func watchImportDir(ctx context.Context, dir string, st *store.Store, logger *slog.Logger) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("watch-import: create dir", "dir", dir, "error", err)
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("watch-import: start watcher", "error", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		logger.Error("watch-import: watch dir", "dir", dir, "error", err)
		return
	}
	logger.Info("watching for NDJSON imports", slog.String("dir", dir))

	const debounce = 500 * time.Millisecond
	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			name := event.Name
			if !strings.HasSuffix(name, ".ndjson") && !strings.HasSuffix(name, ".jsonl") {
				continue
			}
			pending[name] = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch-import: watcher error", "error", err)
		case <-ticker.C:
			now := time.Now()
			for name, last := range pending {
				if now.Sub(last) < debounce {
					continue
				}
				delete(pending, name)
				importWatchedFile(ctx, name, st, logger)
			}
		}
	}
}

func importWatchedFile(ctx context.Context, path string, st *store.Store, logger *slog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("watch-import: open", "file", path, "error", err)
		return
	}
	defer f.Close()

	resp, err := server.ImportNDJSON(ctx, st, f)
	if err != nil {
		logger.Error("watch-import: import failed", "file", filepath.Base(path), "error", err)
		return
	}
	logger.Info("imported file",
		slog.String("file", filepath.Base(path)),
		slog.Int("created", resp.Created),
		slog.Int("updated", resp.Updated),
		slog.Int("skipped", resp.Skipped),
		slog.Int("errors", resp.Errors),
	)
}
