package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/backstage/services/tenders/internal/tracing"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that keeps the event search index in step with the event store`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Elastic.Enabled {
		log.Warn().Msg("Elasticsearch is disabled, index sync runs will be no-ops")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nrApp, err := tracing.NewApplication(cfg.NewRelic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize New Relic, continuing without tracing")
	}
	if nrApp != nil {
		defer nrApp.Shutdown(5 * time.Second)
	}

	c, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.SyncInterval),
			gocron.NewTask(func() {
				jobCtx, end := tracing.StartBackground(ctx, nrApp, "sync-search-index")
				defer end()

				n, err := c.svc.SyncSearchIndex(jobCtx, cfg.Worker.BatchSize)
				if err != nil {
					tracing.NoticeError(jobCtx, err)
					log.Error().Err(err).Int("indexed", n).Msg("Failed to sync event search index")
					return
				}
				log.Info().Int("indexed", n).Msg("Synced event search index")
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}

		log.Info().Dur("interval", cfg.Worker.SyncInterval).Msg("Starting index sync job")
		scheduler.Start()

		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
