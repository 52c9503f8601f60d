package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/backstage/services/tenders/api"
	"example.com/backstage/services/tenders/internal/tracing"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	disableNewRelic bool
	gracefulTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Starts the tenders API server. It shuts down gracefully on SIGINT or SIGTERM.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&disableNewRelic, "disable-newrelic", false, "Disable New Relic monitoring")
	serveCmd.Flags().DurationVar(&gracefulTimeout, "graceful-timeout", 30*time.Second, "Graceful shutdown timeout")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var nrApp *newrelic.Application
	if !disableNewRelic {
		nrApp, err = tracing.NewApplication(cfg.NewRelic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize New Relic, continuing without tracing")
		}
	}

	c, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer c.close()

	server := api.NewServer(&cfg, nrApp, c.svc)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down server")
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Server shutdown error")
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info().Msg("Server shutdown complete")
	return nil
}
