package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxsviluppo/ristosync/config"
	"github.com/maxsviluppo/ristosync/internal/api"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server together with the background sync session for the configured tenant`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	app, err := initApp(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.reconciler.Start(ctx, cfg.Sync.TenantID); err != nil {
		return err
	}

	server := api.NewServer(
		cfg,
		app.orders, app.menu, app.settings, app.marketing,
		app.elastic, app.metrics, app.tracer,
	)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}
