package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/xhd2015/simple-debug/breakpoints"
	"github.com/xhd2015/simple-debug/config"
	"github.com/xhd2015/simple-debug/debug/common"
	"github.com/xhd2015/simple-debug/log"
)

const defaultWatchDebounce = 200 * time.Millisecond

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &sessionOptions{}
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Apply the configured breakpoints and re-apply them on every change",
		Long: `Apply the nearest .simple-debug.json to a running debugger, then watch
the file and re-apply it whenever it is saved. Breakpoints set by the
previous run are cleared first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := root.logger(cmd)

			path, err := config.Locate(root.dir)
			if err != nil {
				return err
			}

			dbg, err := opts.open(ctx, logger)
			if err != nil {
				return err
			}
			defer dbg.Close()

			w := &watcher{
				dbg:      dbg,
				root:     root,
				out:      cmd.OutOrStdout(),
				logger:   logger,
				debounce: debounce,
			}
			return w.run(ctx, path)
		},
	}
	opts.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", defaultWatchDebounce, "wait this long after the last change before re-applying")
	return cmd
}

type watcher struct {
	dbg      common.Debugger
	root     *rootOptions
	out      io.Writer
	logger   log.Logger
	debounce time.Duration

	// called after every apply, under mu
	onApply func(res *breakpoints.Result, err error)

	mu         sync.Mutex
	prev       *breakpoints.Result
	configured bool
}

func (w *watcher) run(ctx context.Context, path string) error {
	w.logger = log.OrNop(w.logger)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	// watch the directory: editors often replace the file on save
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w.apply(ctx, "")

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.apply(ctx, event.Name)
			})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnf("watcher error: %v", err)
		}
	}
}

// apply clears what the previous run created and applies the file again.
// changed is the file that triggered it, empty for the first run. A file that
// no longer parses leaves the previous breakpoints in place.
func (w *watcher) apply(ctx context.Context, changed string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if changed != "" {
		fmt.Fprintf(w.out, "\nFile changed: %s\nReloading breakpoints...\n\n", changed)
	}
	defer fmt.Fprintf(w.out, "\nWatching for changes... (press Ctrl+C to stop)\n")

	if path, err := config.Locate(w.root.dir); err == nil {
		if _, err := config.Load(path); err != nil {
			w.logger.Warnf("keeping previous breakpoints: %v", err)
			fmt.Fprintf(w.out, "%s %v\nKeeping the previous breakpoints.\n", color.RedString("Error:"), err)
			if w.onApply != nil {
				w.onApply(nil, err)
			}
			return
		}
	}

	n, err := breakpoints.Clear(ctx, w.dbg, w.prev, w.logger)
	if err != nil {
		fmt.Fprintf(w.out, "%s failed to clear previous breakpoints: %v\n", color.YellowString("!"), err)
	} else if n > 0 {
		w.logger.Infof("cleared %d breakpoint(s)", n)
	}

	res, err := applyOnce(ctx, w.dbg, w.root, w.out, w.logger)
	if err != nil {
		fmt.Fprintf(w.out, "%s %v\n", color.RedString("Error:"), err)
	}
	w.prev = res

	if !w.configured {
		if d, ok := w.dbg.(common.ConfigurationDoner); ok {
			if err := d.ConfigurationDone(ctx); err != nil {
				fmt.Fprintf(w.out, "%s configurationDone: %v\n", color.RedString("Error:"), err)
			}
		}
		w.configured = true
	}

	if w.onApply != nil {
		w.onApply(res, err)
	}
}
