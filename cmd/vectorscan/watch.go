package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/watcher"
)

func (a *app) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep the index in step with a source tree",
		Long: `Indexes every tagged class under dir, then watches the tree and
reindexes files as they change until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(true)
			if err != nil {
				return err
			}
			defer s.Close()
			defer a.logger.Sync()

			sc, err := a.newScanner()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reindexer := watcher.NewReindexer(args[0], sc, s, a.logger)
			w, err := watcher.New(args[0], sc, reindexer, watcher.WithLogger(a.logger))
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
			if err := w.Sync(ctx); err != nil {
				return err
			}
			a.logger.Info("watching", zap.String("root", w.Root()), zap.Int("size", s.CurrentSize()))
			<-ctx.Done()
			a.logger.Info("shutting down")
			return nil
		},
	}
}
