package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegasics/VectorScan/internal/cli"
	"github.com/olegasics/VectorScan/internal/coordinator"
	"github.com/olegasics/VectorScan/internal/models"
)

func (a *app) newSearchCmd() *cobra.Command {
	var (
		k      int
		mode   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find the stored items nearest to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context, s *session) error {
				q := models.SearchQuery{Query: args[0], K: k, Mode: mode}
				if q.Mode == "" {
					q.Mode = a.cfg.Search.Mode
				}
				if err := q.Validate(a.cfg.Search.DefaultK); err != nil {
					return err
				}
				if k == 0 && cmd.Flags().Changed("k") {
					q.K = 0
				}
				start := time.Now()
				hits, err := s.SearchHits(ctx, q.Query, q.K, coordinator.Mode(q.Mode))
				if err != nil {
					return err
				}
				resp := &models.SearchResponse{
					Query:     q.Query,
					Mode:      q.Mode,
					K:         q.K,
					Hits:      hits,
					Total:     len(hits),
					QueryTime: time.Since(start).Milliseconds(),
				}
				if err := cli.WriteSearchResults(cmd.OutOrStdout(), resp, cli.FormatFor(asJSON)); err != nil {
					return err
				}
				if len(hits) == 0 && !asJSON {
					if suggestion, err := s.Suggest(ctx, q.Query); err == nil && suggestion != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "Did you mean: %s\n", suggestion)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of results (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "", "snapshot, live or keyword (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}
