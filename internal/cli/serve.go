package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/symptom-dx-server/internal/api"
	"github.com/symptom-dx-server/internal/bootstrap"
)

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API. The server listens immediately and reports
NOT_READY until the dataset is loaded and the model is ready.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cm, err := a.loadConfig()
			if err != nil {
				return err
			}
			cfg := cm.GetConfig()
			logger := a.newLogger(cmd, cfg)

			engine, err := bootstrap.NewEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer engine.Close()

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.WithField("port", cfg.Server.Port).Info("Starting symptom diagnosis server")
			server := api.NewServer(cm, engine.Engine, logger, a.version)
			if err := server.Start(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}
}
