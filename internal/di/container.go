package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/activity-timeline/internal/analysis"
	"github.com/mikey/activity-timeline/internal/config"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/dashboard"
	"github.com/mikey/activity-timeline/internal/factory"
	"github.com/mikey/activity-timeline/internal/logging"
	"github.com/mikey/activity-timeline/internal/metrics"
	"github.com/mikey/activity-timeline/internal/preprocess"
	"github.com/mikey/activity-timeline/internal/timeline"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.New); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(preprocess.NewProcessor); err != nil {
		return nil, err
	}
	if err := container.Provide(func(p *preprocess.Processor) core.TextNormalizer {
		return p
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewInferenceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}

	// Register inference client
	if err := container.Provide(func(f *factory.InferenceFactory) (core.InferenceClient, error) {
		return f.CreateInferenceClient()
	}); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(func(f *factory.CacheFactory) (core.CacheRepository, error) {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}

	// Register email source
	if err := container.Provide(func(f *factory.SourceFactory) (core.EmailSource, error) {
		return f.CreateEmailSource()
	}); err != nil {
		return nil, err
	}

	// Register activity service
	if err := container.Provide(func(
		cfg *config.Config,
		inference core.InferenceClient,
		cacheRepo core.CacheRepository,
		cacheFactory *factory.CacheFactory,
		normalizer core.TextNormalizer,
		logger *zap.Logger,
		m *metrics.Metrics,
	) (*core.ActivityService, error) {
		analysisCfg := cfg.GetAnalysis()
		hfCfg := cfg.GetHuggingFace()

		cacheTTL, err := cacheFactory.GetCacheTTL()
		if err != nil {
			return nil, fmt.Errorf("invalid cache TTL: %w", err)
		}

		return core.NewActivityService(
			inference,
			cacheRepo,
			normalizer,
			logger,
			m,
			cfg.GetLabelSets(),
			cacheFactory.IsCacheEnabled(),
			cacheTTL,
			analysisCfg.ConfidenceThreshold,
			analysisCfg.MaxTextLength,
			analysisCfg.SummarizeOver,
			hfCfg.BatchPacing,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register timeline builder and pattern analyzer
	if err := container.Provide(timeline.NewBuilder); err != nil {
		return nil, err
	}
	if err := container.Provide(analysis.NewAnalyzer); err != nil {
		return nil, err
	}

	// Register session
	if err := container.Provide(dashboard.NewSession); err != nil {
		return nil, err
	}

	// Register dashboard server
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.ActivityService,
		source core.EmailSource,
		builder *timeline.Builder,
		analyzer *analysis.Analyzer,
		session *dashboard.Session,
		logger *zap.Logger,
	) *dashboard.Server {
		imapCfg := cfg.GetIMAP()
		return dashboard.NewServer(
			service,
			source,
			builder,
			analyzer,
			session,
			logger,
			cfg.GetServer().ListenAddress,
			imapCfg.Folder,
			imapCfg.MaxMessages,
		)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
