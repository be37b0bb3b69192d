package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikkelr/chat-with-PDF/internal/chat"
	"github.com/nikkelr/chat-with-PDF/internal/models"
	"github.com/nikkelr/chat-with-PDF/internal/providerfactory"
)

func (a *app) newAskCmd() *cobra.Command {
	var (
		pdfPath     string
		question    string
		interactive bool
		sources     bool
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask questions about a local PDF",
		Long: `Ingest a PDF into a throwaway session and answer one question (-q) or
start an interactive prompt (-i). Type 'exit' or 'quit' to leave the prompt,
'/history' to list earlier answers and '/sources' to toggle source listing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !interactive && strings.TrimSpace(question) == "" {
				return fmt.Errorf("question is required in non-interactive mode; use -q 'your question' or -i")
			}

			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("failed to read PDF: %w", err)
			}

			ctx := cmd.Context()
			svc, closeFn, err := providerfactory.NewService(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer closeFn(context.Background())

			res, err := svc.Upload(ctx, filepath.Base(pdfPath), data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %s: %d chunks\n", res.PDFName, res.NumChunks)

			if interactive {
				return runInteractive(ctx, svc, res.SessionID, cmd.InOrStdin(), out, sources)
			}

			answer, err := svc.Ask(ctx, res.SessionID, question)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatAnswer(answer, sources))
			return nil
		},
	}

	cmd.Flags().StringVar(&pdfPath, "pdf", "", "path to the PDF file (required)")
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer (non-interactive mode)")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "run in interactive mode")
	cmd.Flags().BoolVar(&sources, "sources", false, "list the retrieved chunks under each answer")
	cmd.Flags().Int("k", 4, "number of chunks to retrieve")
	_ = cmd.MarkFlagRequired("pdf")
	_ = a.v.BindPFlag("retrieval.k", cmd.Flags().Lookup("k"))
	return cmd
}

func runInteractive(ctx context.Context, svc *chat.Service, sessionID string, in io.Reader, out io.Writer, sources bool) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Ask questions about the document (type 'exit' to quit)")

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/sources":
			sources = !sources
			fmt.Fprintf(out, "Source listing %s\n", onOff(sources))
			continue
		case "/history":
			detail, err := svc.GetSession(sessionID)
			if err != nil {
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}
			if len(detail.ChatHistory) == 0 {
				fmt.Fprintln(out, "No questions asked yet")
			}
			for i, turn := range detail.ChatHistory {
				fmt.Fprintf(out, "%d. %s\n   %s\n", i+1, turn.Question, turn.Answer)
			}
			continue
		}

		answer, err := svc.Ask(ctx, sessionID, input)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, formatAnswer(answer, sources))
	}
	return scanner.Err()
}

func formatAnswer(answer *models.Answer, sources bool) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(answer.Answer))

	if sources && len(answer.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, source := range answer.Sources {
			fmt.Fprintf(&sb, "  %d. [chunk %d, chars %d-%d, score %.3f]\n",
				i+1, source.Chunk.Position, source.Chunk.Start, source.Chunk.End, source.Score)
		}
	}

	return sb.String()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
