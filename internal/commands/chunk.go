package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/processor"
)

const previewWidth = 80

func (a *app) newChunkCmd() *cobra.Command {
	var (
		pdfPath string
		show    int
	)

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Extract and chunk a PDF and print chunk statistics",
		Long: `Extract the text of a PDF and split it with the configured chunk size and
overlap, without embedding anything. Useful for tuning chunking settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("failed to read PDF: %w", err)
			}

			start := time.Now()
			doc, err := processor.ExtractText(data)
			if err != nil {
				return err
			}
			chunker, err := processor.NewChunker(a.cfg.Chunking.Size, a.cfg.Chunking.Overlap)
			if err != nil {
				return err
			}
			chunks := chunker.Split(doc.Text)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Extracted %d characters from %d pages in %v\n",
				len([]rune(doc.Text)), doc.Pages, time.Since(start).Round(time.Millisecond))
			printChunkStatistics(out, chunker, chunks)

			if show > len(chunks) {
				show = len(chunks)
			}
			for _, c := range chunks[:show] {
				fmt.Fprintf(out, "  [%d] %d-%d %q\n", c.Position, c.Start, c.End, processor.Preview(c.Content, previewWidth))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "path to the PDF file (required)")
	cmd.Flags().IntVar(&show, "show", 0, "print a preview of the first N chunks")
	cmd.Flags().Int("chunk-size", 1000, "characters per chunk")
	cmd.Flags().Int("chunk-overlap", 200, "characters shared by neighbouring chunks")
	_ = cmd.MarkFlagRequired("pdf")
	_ = a.v.BindPFlag("chunking.size", cmd.Flags().Lookup("chunk-size"))
	_ = a.v.BindPFlag("chunking.overlap", cmd.Flags().Lookup("chunk-overlap"))
	return cmd
}

func printChunkStatistics(out io.Writer, chunker *processor.Chunker, chunks []models.TextChunk) {
	stats := processor.Stats(chunks)

	fmt.Fprintln(out, "Chunk Statistics:")
	fmt.Fprintf(out, "  Chunk size / overlap: %d / %d\n", chunker.ChunkSize, chunker.ChunkOverlap)
	fmt.Fprintf(out, "  Total chunks: %d\n", stats.Total)
	fmt.Fprintf(out, "  Chunk length: min %d, max %d, average %.1f characters\n",
		stats.MinLength, stats.MaxLength, stats.AvgLength)
	fmt.Fprintf(out, "  Average overlap: %.1f characters\n", stats.AvgOverlap)
}
