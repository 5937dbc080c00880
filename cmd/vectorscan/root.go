package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/config"
	"github.com/olegasics/VectorScan/internal/coordinator"
	"github.com/olegasics/VectorScan/internal/embedding"
	"github.com/olegasics/VectorScan/internal/scanner"
	"github.com/olegasics/VectorScan/internal/vector"
	"github.com/olegasics/VectorScan/pkg/utils"
)

// app carries the persistent flags and the state every command builds from them.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "vectorscan",
		Short: "Semantic index over tagged source classes",
		Long: `vectorscan finds classes tagged with a marker decorator or directive,
embeds their names, docstrings, attributes and methods, and answers
nearest-neighbor queries against the stored index.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.newIndexCmd(),
		a.newScanCmd(),
		a.newSearchCmd(),
		a.newSizeCmd(),
		a.newSaveIndexCmd(),
		a.newLoadIndexCmd(),
		a.newDeleteCmd(),
		a.newCompactCmd(),
		a.newStatusCmd(),
		a.newWatchCmd(),
		a.newServeCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds a logger. Long-running commands log at info,
// one-shot commands only warn.
func (a *app) setup(longRunning bool) error {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Debug = true
	}
	newLogger := utils.NewCommandLogger
	if longRunning {
		newLogger = utils.NewLogger
	}
	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// session is an open coordinator with the embedder it owns.
type session struct {
	*coordinator.Coordinator
	embedder embedding.Embedder
}

func (s *session) Close() error {
	return errors.Join(s.Coordinator.Close(), s.embedder.Close())
}

func (a *app) open(longRunning bool) (*session, error) {
	if err := a.setup(longRunning); err != nil {
		return nil, err
	}
	cfg := a.cfg
	emb, err := embedding.New(embedding.Options{
		Provider:          strings.ToLower(cfg.Embedding.Provider),
		Dimensions:        cfg.Index.Dimension,
		CacheSize:         cfg.Embedding.CacheSize,
		ModelPath:         cfg.Embedding.ModelPath,
		MaxTokens:         cfg.Embedding.MaxTokens,
		OllamaURL:         cfg.Embedding.OllamaURL,
		Model:             cfg.Embedding.Model,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Timeout:           cfg.Embedding.Timeout,
	})
	if err != nil {
		return nil, err
	}
	compression, err := vector.ParseCompression(cfg.Index.Compression)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}
	mode, err := coordinator.ParseMode(cfg.Search.Mode)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}
	c, err := coordinator.Open(coordinator.Config{
		IndexType:       strings.ToLower(cfg.Index.Type),
		Dimension:       cfg.Index.Dimension,
		IndexPath:       cfg.Index.Path,
		Compression:     compression,
		MetadataBackend: strings.ToLower(cfg.Metadata.Backend),
		MetadataPath:    cfg.Metadata.Path,
		DefaultMode:     mode,
	}, emb, coordinator.WithLogger(a.logger))
	if err != nil {
		_ = emb.Close()
		return nil, err
	}
	return &session{Coordinator: c, embedder: emb}, nil
}

// run opens a session for a one-shot command and closes it afterwards.
func (a *app) run(fn func(ctx context.Context, s *session) error) error {
	s, err := a.open(false)
	if err != nil {
		return err
	}
	defer a.logger.Sync()
	err = fn(context.Background(), s)
	return errors.Join(err, s.Close())
}

func (a *app) newScanner() (*scanner.Scanner, error) {
	sc := a.cfg.Scanner
	return scanner.New(scanner.Config{
		Marker:    sc.Marker,
		Languages: sc.Languages,
		Include:   sc.Include,
		Exclude:   sc.Exclude,
		Workers:   sc.Workers,
	}, scanner.WithLogger(a.logger))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vectorscan version %s\n", version)
		},
	}
}
