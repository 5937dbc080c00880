package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/cli"
	"github.com/olegasics/VectorScan/internal/storage"
	"github.com/olegasics/VectorScan/internal/vector"
)

func (a *app) newSizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Print the number of vectors in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(_ context.Context, s *session) error {
				fmt.Fprintln(cmd.OutOrStdout(), s.CurrentSize())
				return nil
			})
		},
	}
}

func (a *app) newSaveIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save-index [path]",
		Short: "Write the index to path (default: the configured index path)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(_ context.Context, s *session) error {
				path := s.IndexPath()
				if len(args) == 1 {
					path = args[0]
				}
				if err := s.SaveIndex(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %d vectors to %s\n", s.CurrentSize(), path)
				return nil
			})
		},
	}
}

func (a *app) newLoadIndexCmd() *cobra.Command {
	var persist bool
	cmd := &cobra.Command{
		Use:   "load-index <path>",
		Short: "Load an index file and report its size",
		Long: `Loads the index stored at path, failing if it is missing or corrupt.
Without --persist the file is only checked and the configured index is left alone.
With --persist the loaded index replaces the one at the configured path, and metadata
rows past its last vector are dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(_ context.Context, s *session) error {
				if !persist {
					idx, err := vector.NewFlatIndex(a.cfg.Index.Dimension)
					if err != nil {
						return err
					}
					defer idx.Close()
					if err := idx.Load(args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "loaded %d vectors from %s\n", idx.Size(), args[0])
					return nil
				}
				if err := s.LoadIndex(args[0]); err != nil {
					return err
				}
				if err := s.CheckAlignment(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				if err := s.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d vectors from %s\n", s.CurrentSize(), args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&persist, "persist", false, "save the loaded index to the configured path")
	return cmd
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <position>...",
		Short: "Mark positions as deleted until the next compact",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positions := make([]int, len(args))
			for i, arg := range args {
				p, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid position %q: %w", arg, err)
				}
				positions[i] = p
			}
			return a.run(func(ctx context.Context, s *session) error {
				if err := s.Delete(ctx, positions...); err != nil {
					return err
				}
				if err := s.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d positions\n", len(positions))
				return nil
			})
		},
	}
}

func (a *app) newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Drop deleted positions from the index and metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(ctx context.Context, s *session) error {
				removed, err := s.Compact(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d items (index size %d)\n", removed, s.CurrentSize())
				return nil
			})
		},
	}
}

func (a *app) newStatusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index and metadata statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(func(_ context.Context, s *session) error {
				stats := s.Stats()
				n, err := storage.DiskUsageBytes(stats.IndexPath, vector.TombstonePath(stats.IndexPath), stats.MetadataPath)
				if err != nil {
					a.logger.Warn("disk usage failed", zap.Error(err))
				}
				stats.DiskUsageBytes = n
				return cli.WriteStats(cmd.OutOrStdout(), stats, cli.FormatFor(asJSON))
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}
