package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/elements/pkg/loader"
)

func watchCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir...]",
		Short: "Load declaration documents and apply new ones as they appear",
		Long: `Load every declaration document, then watch the source directories
and apply documents that are added later. The first definition of a name
wins, so edits to an already applied document take effect on restart.

Examples:
  elements watch ./widgets
  elements watch ./widgets --debounce 500ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, c, cmd, args)
		},
	}

	cmd.Flags().Duration("debounce", 0, "delay before applying a changed document")
	c.bind(cmd, map[string]string{"watch.debounce": "debounce"})
	return cmd
}

func runWatch(ctx context.Context, c *cli, cmd *cobra.Command, args []string) error {
	sources := c.sources(args)
	var dirs []string
	for _, src := range sources {
		if info, err := os.Stat(src); err == nil && info.IsDir() {
			dirs = append(dirs, src)
		}
	}
	if len(dirs) == 0 {
		return errors.New("watch needs at least one directory source")
	}

	rt, err := newEnv(c.cfg, c.logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.close(context.WithoutCancel(ctx))

	if _, err := rt.load(ctx, sources); err != nil {
		c.logger.Error("some declaration documents failed", "error", err)
	}

	w, err := loader.NewWatcher(rt.loader, loader.WatchConfig{
		Dirs:     dirs,
		Debounce: c.cfg.Watch.Debounce,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	out := cmd.OutOrStdout()
	w.OnApply(func(a loader.Applied) {
		for _, h := range a.Handles {
			fmt.Fprintf(out, "%s\t%s\t%s\n", a.Location, h.Name(), h.Status())
		}
	})

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
