// -----------------------------------------------------------------------
// Application Wiring - constructs storage, services and handlers and
// owns their lifecycle.
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/scentlab/essentia/internal/common"
	"github.com/scentlab/essentia/internal/handlers"
	"github.com/scentlab/essentia/internal/interfaces"
	"github.com/scentlab/essentia/internal/services/dataset"
	"github.com/scentlab/essentia/internal/services/embeddings"
	"github.com/scentlab/essentia/internal/services/generation"
	"github.com/scentlab/essentia/internal/services/kb"
	"github.com/scentlab/essentia/internal/services/llm"
	"github.com/scentlab/essentia/internal/services/papers"
	"github.com/scentlab/essentia/internal/services/pdf"
	"github.com/scentlab/essentia/internal/services/retrieval"
	"github.com/scentlab/essentia/internal/services/scraper"
	"github.com/scentlab/essentia/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB               *badger.BadgerDB
	KVStorage        interfaces.KeyValueStorage
	FragranceStorage interfaces.FragranceStorage

	// Core services
	Embedder   interfaces.Embedder
	Pipeline   *retrieval.Pipeline
	Provider   interfaces.GenerationProvider
	Generator  *generation.Service
	KBService  *kb.Service
	Scraper    interfaces.FragranceScraper
	Downloader *papers.Downloader

	// Handlers
	QueryHandler   *handlers.QueryHandler
	SetupHandler   *handlers.SetupHandler
	SessionHandler *handlers.SessionHandler
	HealthHandler  *handlers.HealthHandler
	ScrapeHandler  *handlers.ScrapeHandler
	WSHandler      *handlers.WSHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.initHandlers()

	return app, nil
}

func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.KVStorage = badger.NewKVStorage(db, a.Logger)
	a.FragranceStorage = badger.NewFragranceStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	embedder, err := embeddings.NewService(&a.Config.Embeddings, a.Logger)
	if err != nil {
		return err
	}
	a.Embedder = embedder

	a.Pipeline = retrieval.NewPipeline(a.Embedder, &a.Config.Retrieval, a.Logger)

	provider, err := llm.NewProvider(a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.Provider = provider
	a.Generator = generation.NewService(provider, llm.NewRetryPolicy(a.Logger), a.Logger)

	search := papers.NewSearchService(&a.Config.Papers, a.Logger)
	a.Downloader = papers.NewDownloader(&a.Config.Papers, a.Logger)
	extractor := pdf.NewExtractor(a.KVStorage, a.Logger)

	a.KBService = kb.NewService(
		search,
		a.Downloader,
		extractor,
		a.KVStorage,
		a.Embedder,
		a.Generator,
		a.Config,
		a.Logger,
	)
	if err := a.KBService.StartSweep(); err != nil {
		return err
	}

	a.Scraper = scraper.NewService(&a.Config.Scraper, a.FragranceStorage, a.Logger)
	return nil
}

func (a *App) initHandlers() {
	a.QueryHandler = handlers.NewQueryHandler(a.Pipeline, a.Generator, a.KBService, a.Logger)
	a.SetupHandler = handlers.NewSetupHandler(a.KBService, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.KBService, pdf.NewSummaryService(a.Logger), a.Downloader, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Embedder, a.Pipeline, a.Provider, a.KBService, a.Logger)
	a.ScrapeHandler = handlers.NewScrapeHandler(a.Scraper, a.Logger)
	a.WSHandler = handlers.NewWSHandler(a.Pipeline, a.Generator, a.Logger)
}

// LoadCorpus loads the perfume dataset, builds or loads the vector
// index and installs both into the retrieval pipeline. Fatal at
// startup when it fails.
func (a *App) LoadCorpus(ctx context.Context) error {
	loader := dataset.NewLoader(&a.Config.Dataset, a.Logger)

	rows, err := loader.Load()
	if err != nil {
		return fmt.Errorf("dataset load failed: %w", err)
	}

	hash, err := loader.Hash()
	if err != nil {
		return fmt.Errorf("dataset hash failed: %w", err)
	}

	builder := retrieval.NewBuilder(a.Embedder, &a.Config.Index, a.Logger)
	idx, err := builder.BuildOrLoad(ctx, rows, hash)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}

	a.Pipeline.SetCorpus(rows, idx)

	a.Logger.Info().
		Int("rows", len(rows)).
		Str("index_kind", idx.Kind()).
		Msg("Corpus ready")
	return nil
}

// Close releases application resources
func (a *App) Close() error {
	a.KBService.StopSweep()

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close database")
			return err
		}
	}
	return nil
}
