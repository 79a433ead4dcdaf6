package gen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce absorbs the bursts of write events editors produce for a
// single save.
const debounce = 250 * time.Millisecond

// Watch regenerates on every change to the schema file until the context
// is cancelled. Generation errors are logged, not fatal: a half-saved
// schema should not stop the watcher.
func Watch(ctx context.Context, cfg Config, schemaPath string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("gen: watch: %w", err)
	}
	defer w.Close()
	// Watch the directory: editors replace files on save, which drops
	// a watch placed on the file itself.
	if err := w.Add(filepath.Dir(schemaPath)); err != nil {
		return fmt.Errorf("gen: watch %s: %w", schemaPath, err)
	}
	if err := reload(ctx, cfg, schemaPath); err != nil {
		slog.Error("generation failed", "schema", schemaPath, "err", err)
	}
	var timer *time.Timer
	pending := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(schemaPath) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch error", "err", err)
		case <-pending:
			if err := reload(ctx, cfg, schemaPath); err != nil {
				slog.Error("generation failed", "schema", schemaPath, "err", err)
				continue
			}
			slog.Info("regenerated", "schema", schemaPath, "out", cfg.OutDir)
		}
	}
}

func reload(ctx context.Context, cfg Config, schemaPath string) error {
	schemas, err := LoadSchemas(schemaPath)
	if err != nil {
		return err
	}
	return Generate(ctx, cfg, schemas)
}
