package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/olegasics/VectorScan/internal/scanner"
)

func (a *app) newScanCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Index every tagged class found under dir",
		Long: `Walks dir, extracts the classes tagged with the configured marker and
indexes one record per class. Rows previously indexed from a scanned file are
marked deleted first, so rescanning does not duplicate them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				if err := a.setup(false); err != nil {
					return err
				}
				sc, err := a.newScanner()
				if err != nil {
					return err
				}
				recs, err := sc.Scan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, r := range recs {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			}
			return a.run(func(ctx context.Context, s *session) error {
				sc, err := a.newScanner()
				if err != nil {
					return err
				}
				recs, err := sc.Scan(ctx, args[0])
				if err != nil {
					return err
				}
				seen := make(map[string]bool)
				for _, r := range recs {
					seen[r.Source] = true
				}
				replaced := 0
				for src := range seen {
					n, err := s.DeleteBySource(ctx, src)
					if err != nil {
						return err
					}
					replaced += n
				}
				removed, err := retireStale(ctx, s, sc, args[0], seen)
				if err != nil {
					return err
				}
				if err := s.IndexRecords(ctx, recs); err != nil {
					return err
				}
				if err := s.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d classes from %d files (%d replaced, %d removed, index size %d)\n",
					len(recs), len(seen), replaced, removed, s.CurrentSize())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the records as JSON lines without indexing")
	return cmd
}

// retireStale deletes the rows of indexed sources under root that produced no records in
// this scan: files that were removed, or that no longer carry a tagged class.
func retireStale(ctx context.Context, s *session, sc *scanner.Scanner, root string, scanned map[string]bool) (int, error) {
	sources, err := s.Sources(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, src := range sources {
		if scanned[src] {
			continue
		}
		path := filepath.Join(root, filepath.FromSlash(src))
		if _, err := os.Stat(path); err == nil && !sc.Matches(root, path) {
			continue
		}
		n, err := s.DeleteBySource(ctx, src)
		if err != nil {
			return 0, err
		}
		removed += n
	}
	return removed, nil
}
