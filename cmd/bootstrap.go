package cmd

import (
	"context"

	"github.com/groupe-jds/doku-seal/config"
	"github.com/groupe-jds/doku-seal/internal/database"
	"github.com/groupe-jds/doku-seal/internal/metrics"
	"github.com/groupe-jds/doku-seal/internal/search"
	"github.com/groupe-jds/doku-seal/internal/services"
	"github.com/groupe-jds/doku-seal/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// app holds what every command shares
type app struct {
	cfg     config.Config
	db      *gorm.DB
	repos   services.Repositories
	metrics *metrics.Metrics
	tracer  tracing.Tracer
	search  *search.ElasticClient
}

// loadConfig reads configuration and applies its logging section where no flag overrides it
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return config.Config{}, errors.Wrap(err, "failed to load configuration")
	}

	level, format := logLevel, logFormat
	if level == "" {
		level = cfg.Logging.Level
	}
	if format == "" {
		format = cfg.Logging.Format
		if cfg.Environment == "development" {
			format = "console"
		}
	}
	applyLogging(level, format)
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics()

	db, err := database.Connect(cfg.DB, m)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = tracing.Disabled()
	}

	a := &app{
		cfg:     cfg,
		db:      db,
		repos:   services.NewGormRepositories(db),
		metrics: m,
		tracer:  tracer,
	}

	if cfg.Elastic.Enabled {
		client, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		} else {
			a.search = client
		}
	}

	return a, nil
}

// indexer returns the search index as a services.Indexer, nil when search is off
func (a *app) indexer() services.Indexer {
	if a.search == nil {
		return nil
	}
	return a.search
}

func (a *app) close() {
	a.tracer.Close()
	if err := database.Close(a.db); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

func (a *app) pingDatabase(ctx context.Context) error {
	return database.Ping(a.db)
}
