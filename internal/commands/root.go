// Package commands implements the pdfchat command line.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nikkelr/chat-with-PDF/internal/config"
	"github.com/nikkelr/chat-with-PDF/internal/logging"
	"github.com/nikkelr/chat-with-PDF/internal/server"
)

// app holds the state shared by one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the pdfchat command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:          "pdfchat",
		Short:        "Upload a PDF and ask questions about its content",
		Version:      server.APIVersion,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg

			if err := logging.Init(cfg.Server.LogFile); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./config.yaml if present)")
	root.PersistentFlags().String("log-file", "", "also append logs to this file")
	_ = a.v.BindPFlag("server.log_file", root.PersistentFlags().Lookup("log-file"))

	root.AddCommand(
		a.newServeCmd(),
		a.newAskCmd(),
		a.newChunkCmd(),
		a.newConfigCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	err := NewRootCmd().Execute()
	_ = logging.Close()
	if err != nil {
		os.Exit(1)
	}
}
