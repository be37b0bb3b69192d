package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikkelr/chat-with-PDF/internal/logging"
	"github.com/nikkelr/chat-with-PDF/internal/providerfactory"
	"github.com/nikkelr/chat-with-PDF/internal/server"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		Long: `Run the REST API. Sessions live in memory (or in PostgreSQL with index.backend=postgres)
and are lost when the process stops. SIGINT or SIGTERM drain open requests before exiting.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, closeFn, err := providerfactory.NewService(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				closeFn(closeCtx)
			}()

			if !a.cfg.APIConfigured() {
				logging.LogEvent("Warning: %s API key not configured; uploads are refused until OPENROUTER_API_KEY is set",
					a.cfg.LLM.Provider)
			}
			return server.New(svc, a.cfg.Server).Run(ctx)
		},
	}

	cmd.Flags().String("addr", ":8000", "listen address")
	cmd.Flags().Int("max-upload-mb", 32, "largest accepted upload in MiB")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("server.max_upload_mb", cmd.Flags().Lookup("max-upload-mb"))
	return cmd
}
