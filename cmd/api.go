package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/groupe-jds/doku-seal/internal/api"
	"github.com/groupe-jds/doku-seal/internal/api/handlers"
	"github.com/groupe-jds/doku-seal/internal/cache"
	"github.com/groupe-jds/doku-seal/internal/messaging"
	"github.com/groupe-jds/doku-seal/internal/services"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server that manages envelopes, recipients and fields`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := services.ParseRemovalPolicy(cfg.Recipients.RemovalPolicy)
	if err != nil {
		return err
	}

	bus, err := messaging.NewServiceBusClient(cfg.Azure, "doku-seal-api")
	if err != nil {
		return err
	}
	defer bus.Close()

	dispatcher := messaging.NewDispatcher(bus, messaging.DispatcherConfig{
		Workers:     cfg.Azure.Workers,
		Buffer:      cfg.Azure.Buffer,
		SendTimeout: cfg.Azure.SendTimeout,
	}, a.metrics)

	checks := map[string]handlers.HealthCheck{
		"database": a.pingDatabase,
	}

	var idempotency handlers.IdempotencyStore
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without idempotency keys")
	} else if redisCache.Enabled() {
		defer redisCache.Close()
		idempotency = cache.NewIdempotencyStore(redisCache, cfg.Redis.IdempotencyTTL)
		checks["redis"] = redisCache.Ping
	}

	if a.search != nil {
		checks["elasticsearch"] = a.search.Ping
	}

	server, err := api.NewServer(cfg.Server, api.Dependencies{
		Envelopes:    services.NewEnvelopeService(a.repos, dispatcher, a.indexer(), a.metrics, a.tracer),
		Recipients:   services.NewRecipientService(a.repos, policy, a.metrics, a.tracer),
		Fields:       services.NewFieldService(a.repos, a.metrics, a.tracer),
		Idempotency:  idempotency,
		Metrics:      a.metrics,
		HealthChecks: checks,
		Tracer:       a.tracer,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// The dispatcher outlives the HTTP server so sends still in flight can enqueue
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})

	g.Go(server.Start)

	g.Go(func() error {
		<-ctx.Done()
		err := server.Shutdown(context.Background())
		stopDispatch()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("API server error")
		return err
	}

	log.Info().Msg("API server stopped")
	return nil
}
