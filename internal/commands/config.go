package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/nikkelr/chat-with-PDF/internal/config"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the configuration",
	}
	cmd.AddCommand(a.newConfigShowCmd(), a.newConfigInitCmd())
	return cmd
}

func (a *app) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.Redacted().Marshal()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if used := a.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "# config file: %s\n", used)
			}
			fmt.Fprintf(out, "# api configured: %t\n", a.cfg.APIConfigured())
			_, err = out.Write(data)
			return err
		},
	}
}

func (a *app) newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a YAML file",
		Long: `Write the effective configuration to a YAML file (default config.yaml).
API keys are left out; keep them in the environment or a .env file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists; use --force to overwrite", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}

			cfg := *a.cfg
			cfg.LLM.APIKey = ""
			cfg.Embedding.APIKey = ""
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}
