// Package scanner finds marker-tagged classes in source trees and turns them into
// metadata records ready for indexing.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/olegasics/VectorScan/internal/fileid"
	"github.com/olegasics/VectorScan/internal/models"
)

// DefaultMarker is the decorator (Python) or directive (Go) that tags a class for indexing.
const DefaultMarker = "index_for_vector_db"

// Parser extracts tagged classes from a single source file.
type Parser interface {
	Language() string
	Extensions() []string
	Parse(source string, src []byte) ([]models.MetadataRecord, error)
}

// Config controls what a Scanner looks at.
type Config struct {
	Marker    string
	Languages []string
	Include   []string
	Exclude   []string
	Workers   int
}

// Scanner walks directories and parses matching files in parallel.
type Scanner struct {
	cfg    Config
	byExt  map[string]Parser
	logger *zap.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger for the scanner.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// New validates cfg and returns a Scanner. Empty languages mean all supported ones.
func New(cfg Config, opts ...Option) (*Scanner, error) {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	for _, p := range append(append([]string{}, cfg.Include...), cfg.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}

	available := map[string]Parser{
		models.LanguagePython: &pythonParser{marker: cfg.Marker},
		models.LanguageGo:     &goParser{marker: cfg.Marker},
	}
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{models.LanguagePython, models.LanguageGo}
	}
	s := &Scanner{cfg: cfg, byExt: make(map[string]Parser)}
	for _, lang := range langs {
		p, ok := available[strings.ToLower(lang)]
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", lang)
		}
		for _, ext := range p.Extensions() {
			s.byExt[ext] = p
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Scan walks root and returns the records of every tagged class, ordered by
// source path and line.
func (s *Scanner) Scan(ctx context.Context, root string) ([]models.MetadataRecord, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absRoot)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && s.excludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && s.matches(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([][]models.MetadataRecord, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := s.parseFile(absRoot, path)
			if err != nil {
				return err
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.MetadataRecord
	for _, recs := range results {
		out = append(out, recs...)
	}
	sortRecords(out)
	s.logger.Info("scan complete",
		zap.String("root", absRoot),
		zap.Int("files", len(files)),
		zap.Int("records", len(out)))
	return out, nil
}

// ScanFile parses one file under root. A file the scanner would not pick up during
// Scan yields no records and no error.
func (s *Scanner) ScanFile(ctx context.Context, root, path string) ([]models.MetadataRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Matches(root, path) {
		return nil, nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	recs, err := s.parseFile(absRoot, path)
	if err != nil {
		return nil, err
	}
	sortRecords(recs)
	return recs, nil
}

// Matches reports whether path, located under root, is a file Scan would parse.
func (s *Scanner) Matches(root, path string) bool {
	rel, err := fileid.SourceKey(root, path)
	if err != nil {
		return false
	}
	if dir := pathDir(rel); dir != "" && s.excludedDir(dir) {
		return false
	}
	return s.matches(rel)
}

// SkipsDir reports whether the directory path under root is excluded from scans.
func (s *Scanner) SkipsDir(root, path string) bool {
	rel, err := fileid.SourceKey(root, path)
	if err != nil {
		return true
	}
	return rel != "." && s.excludedDir(rel)
}

func (s *Scanner) matches(rel string) bool {
	if _, ok := s.byExt[strings.ToLower(filepath.Ext(rel))]; !ok {
		return false
	}
	if len(s.cfg.Include) > 0 && !matchAny(s.cfg.Include, rel) {
		return false
	}
	return !matchAny(s.cfg.Exclude, rel)
}

// excludedDir reports whether an exclude pattern covers everything below rel.
func (s *Scanner) excludedDir(rel string) bool {
	for _, p := range s.cfg.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, rel+"/_"); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) parseFile(absRoot, path string) ([]models.MetadataRecord, error) {
	p, ok := s.byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, nil
	}
	source, err := fileid.SourceKey(absRoot, path)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	recs, err := p.Parse(source, src)
	if err != nil {
		s.logger.Warn("skipping unparsable file", zap.String("source", source), zap.Error(err))
		return nil, nil
	}
	for i := range recs {
		recs[i].Source = source
		recs[i].Language = p.Language()
		recs[i].ID = fileid.RecordID(source, recs[i].ClassName)
	}
	if len(recs) > 0 {
		s.logger.Debug("parsed file", zap.String("source", source), zap.Int("records", len(recs)))
	}
	return recs, nil
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func pathDir(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return ""
}

func sortRecords(recs []models.MetadataRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Source != recs[j].Source {
			return recs[i].Source < recs[j].Source
		}
		return recs[i].Line < recs[j].Line
	})
}
