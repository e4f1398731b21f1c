// Package cli wires configuration, storage and the analysis engine into the
// veritext command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/darved2305/VeriTextAI/internal/config"
	"github.com/darved2305/VeriTextAI/pkg/logger"
)

type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	cfg        *config.Config
}

func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logger.Sync()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "veritext",
		Short:         "Plagiarism, AI-text and paraphrase analysis",
		Long:          `Analyse documents for verbatim reuse of corpus sources, AI-generated writing patterns and paraphrasing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to veritext.yaml")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before configuration")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level")

	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newCorpusCmd(opts))
	root.AddCommand(newServeCmd(opts))
	return root
}

func (o *rootOptions) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.cfg = cfg
	return nil
}
