package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/groupe-jds/doku-seal/internal/repositories"
	"github.com/groupe-jds/doku-seal/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that keeps the envelope search index in sync`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if a.search == nil {
		return errors.New("search indexing is disabled, nothing for the worker to do")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	envelopes := services.NewEnvelopeService(a.repos, nil, a.indexer(), a.metrics, a.tracer)
	job := &reindexJob{
		envelopes: envelopes,
		batch:     cfg.Worker.ReindexBatch,
		lookback:  cfg.Worker.ReindexLookback,
	}

	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReindexInterval),
			gocron.NewTask(func() { job.run(ctx) }),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return err
		}

		log.Info().Dur("interval", cfg.Worker.ReindexInterval).Msg("Starting search reindex job")
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

// reindexJob pushes changed envelopes to the search index, resuming from the last change it saw.
// Each run first steps back by lookback so transactions that committed after a newer
// change was already synced are still picked up.
type reindexJob struct {
	envelopes *services.EnvelopeService
	batch     int
	lookback  time.Duration

	mu     sync.Mutex
	cursor repositories.SyncCursor
}

func (j *reindexJob) run(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cursor := j.cursor.Rewind(j.lookback)
	for ctx.Err() == nil {
		next, synced, err := j.envelopes.SyncSearchIndex(ctx, cursor, j.batch)
		cursor = next
		if j.cursor.Before(cursor) {
			j.cursor = cursor
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to sync search index")
			return
		}
		if synced > 0 {
			log.Info().Int("envelopes", synced).Time("watermark", cursor.UpdatedAt).Msg("Search index synced")
		}
		if j.batch < 1 || synced < j.batch {
			return
		}
	}
}
