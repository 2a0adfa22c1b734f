package routing

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the engine's lexicon whenever the YAML file at path
// changes, until ctx is cancelled. Reloads are debounced because
// editors commonly emit several write events per save. A file that
// fails to parse leaves the current lexicon in place.
func (e *Engine) Watch(ctx context.Context, path string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors replace files via rename, which
	// drops a watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	logger.Info("lexicon watcher: started", slog.String("path", path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("lexicon watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("lexicon watcher: error", slog.String("error", err.Error()))

		case <-reloadCh:
			lex, err := LoadLexicon(path)
			if err != nil {
				logger.Warn("lexicon watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			e.Reload(lex)
			logger.Info("lexicon watcher: reloaded",
				slog.Int("code", len(lex.Code)),
				slog.Int("business", len(lex.Business)),
				slog.Int("privacy", len(lex.Privacy)))
		}
	}
}
