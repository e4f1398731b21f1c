package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/darved2305/VeriTextAI/internal/api"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			deps := api.Deps{
				Engine:  a.engine,
				Corpus:  a.corpus,
				Stats:   a.corpus,
				Metrics: a.metrics,
				Logger:  a.logger.Named("api"),
			}
			if a.checks != nil {
				deps.Records = a.checks
				deps.Checks = a.checks
			}
			app := api.New(root.cfg.Server, a.timeout(), deps)

			addr := fmt.Sprintf("%s:%d", root.cfg.Server.Host, root.cfg.Server.Port)
			a.logger.Info("Server starting", zap.String("address", addr), zap.String("corpus", root.cfg.Corpus.Backend))

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("Server shutting down gracefully...")
			if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			a.logger.Info("Server stopped")
			return nil
		},
	}
}
