package factory

import (
	"fmt"

	"github.com/mikey/activity-timeline/internal/adapters/huggingface"
	"github.com/mikey/activity-timeline/internal/adapters/openai"
	"github.com/mikey/activity-timeline/internal/config"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/metrics"
	"go.uber.org/zap"
)

// InferenceFactory creates inference clients
type InferenceFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewInferenceFactory creates a new inference factory
func NewInferenceFactory(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *InferenceFactory {
	return &InferenceFactory{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// CreateInferenceClient creates an inference client based on the configuration
func (f *InferenceFactory) CreateInferenceClient() (core.InferenceClient, error) {
	provider := f.cfg.GetString("inference.provider")

	switch provider {
	case "huggingface":
		return huggingface.NewFactory(f.cfg, f.logger, f.metrics).CreateInferenceClient()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateInferenceClient()
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", provider)
	}
}
