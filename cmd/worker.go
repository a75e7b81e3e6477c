package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/maxsviluppo/ristosync/config"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the headless sync worker",
	Long:  `Start the sync session without the HTTP API: periodic pulls plus the realtime change feed keep the local store converged for kitchen displays and printers`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("tenant_id", cfg.Sync.TenantID).Msg("Starting sync session")
		if err := app.reconciler.Start(ctx, cfg.Sync.TenantID); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
