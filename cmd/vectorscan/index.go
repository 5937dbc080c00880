package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olegasics/VectorScan/internal/extract"
)

func (a *app) newIndexCmd() *cobra.Command {
	var (
		file        string
		vectorsOnly bool
	)
	cmd := &cobra.Command{
		Use:   "index [text...]",
		Short: "Embed texts, append them to the index and save it",
		Long: `Embeds each text, appends the vectors to the index and the texts to the
metadata log, then saves the index. Texts come from the arguments or, with
--file, one per line from a file ("-" reads stdin). A PDF, Word, Excel,
PowerPoint or OpenDocument file is converted to text and split into
overlapping word windows instead, one text per window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && file == "" {
				return errors.New("nothing to index: pass texts or --file")
			}
			return a.run(func(ctx context.Context, s *session) error {
				texts := args
				if file != "" {
					more, err := a.readTexts(file, cmd.InOrStdin())
					if err != nil {
						return err
					}
					texts = append(texts, more...)
				}
				if len(texts) == 0 {
					return fmt.Errorf("nothing to index: %s has no text", file)
				}
				var err error
				if vectorsOnly {
					err = s.AddVectorsOnly(ctx, texts)
				} else {
					err = s.IndexTexts(ctx, texts)
				}
				if err != nil {
					return err
				}
				if err := s.Save(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexed %d texts (index size %d)\n", len(texts), s.CurrentSize())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read texts from file, one per line, or from a document")
	cmd.Flags().BoolVar(&vectorsOnly, "vectors-only", false, "append vectors without metadata rows")
	return cmd
}

// readTexts returns the texts to index from path: word windows for documents,
// non-blank lines otherwise.
func (a *app) readTexts(path string, stdin io.Reader) ([]string, error) {
	if path == "-" || !extract.IsDocument(path) {
		return readLines(path, stdin)
	}
	text, err := extract.NewExtractor().Extract(path)
	if err != nil {
		return nil, err
	}
	docs := a.cfg.Documents
	chunks := extract.Chunk(text, docs.ChunkWords, docs.ChunkOverlap)
	a.logger.Debug("extracted document", zap.String("path", path), zap.Int("chunks", len(chunks)))
	return chunks, nil
}

func readLines(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
