package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/mkravets/pdf-extract-service/internal/concurrency"
	"github.com/mkravets/pdf-extract-service/internal/config"
	"github.com/mkravets/pdf-extract-service/internal/core/domain"
	"github.com/mkravets/pdf-extract-service/internal/core/ports"
	"github.com/mkravets/pdf-extract-service/internal/core/usecase"
	"github.com/mkravets/pdf-extract-service/internal/infrastructure/extractor/pdftext"
	"github.com/mkravets/pdf-extract-service/internal/infrastructure/ocr"
	"github.com/mkravets/pdf-extract-service/internal/infrastructure/queue/nats"
	"github.com/mkravets/pdf-extract-service/internal/infrastructure/resilience"
	"github.com/mkravets/pdf-extract-service/internal/observability/metrics"
	"github.com/mkravets/pdf-extract-service/internal/ratelimit"
)

type App struct {
	Config config.Config

	Store     *ratelimit.Store
	Admission *ratelimit.Admission
	Metrics   *metrics.ServerMetrics
	Service   ports.DocumentProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	serverMetrics := metrics.NewServerMetrics("api")

	store := ratelimit.NewStore(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow(),
		cfg.RateLimitBurst,
		ratelimit.WithCleanupEvery(cfg.RateLimitCleanupInterval()),
	)
	store.StartJanitor(ctx)
	admission := ratelimit.NewAdmission(store)

	slots := concurrency.NewSlots(
		cfg.MaxConcurrentTasks,
		concurrency.WithGauge(serverMetrics.SetExtractionsInFlight),
	)

	var fallback ports.FallbackParser
	if client := ocr.New(cfg.OCRFallbackURL, cfg.OCRFallbackAPIKey, cfg.OCRTimeout(),
		resilience.NewExecutor(resilience.DefaultConfig())); client.Enabled() {
		fallback = client
	}

	var extractor ports.PageExtractor = pdftext.New(fallback)
	extractor = &instrumentedExtractor{next: extractor, metrics: serverMetrics}

	gateway := usecase.NewExtractionGateway(extractor, cfg.ExtractionTimeout())
	orchestrator := usecase.NewOrchestrator(
		gateway,
		slots,
		cfg.BatchSize,
		cfg.MaxFileSize,
		cfg.AllowedTypes(),
	)

	var activity ports.ActivityPublisher
	var closeFn func()
	if cfg.NATSURL != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("init activity publisher: %w", err)
		}
		activity = publisher
		closeFn = publisher.Close
	}

	return &App{
		Config:    cfg,
		Store:     store,
		Admission: admission,
		Metrics:   serverMetrics,
		Service:   usecase.NewProcessService(orchestrator, activity),
		closeFn:   closeFn,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// instrumentedExtractor records per-document extraction metrics around the
// real extractor.
type instrumentedExtractor struct {
	next    ports.PageExtractor
	metrics *metrics.ServerMetrics
}

func (e *instrumentedExtractor) Extract(ctx context.Context, task domain.FileTask) (*domain.ExtractedDocument, error) {
	start := time.Now()
	doc, err := e.next.Extract(ctx, task)
	e.metrics.RecordExtraction("api", time.Since(start), err)
	return doc, err
}
