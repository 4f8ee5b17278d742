package huggingface

import (
	"errors"

	"github.com/mikey/activity-timeline/internal/config"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/metrics"
	"go.uber.org/zap"
)

// Factory creates new instances of the Hugging Face inference client
type Factory struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewFactory creates a new factory for Hugging Face clients
func NewFactory(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *Factory {
	return &Factory{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// CreateInferenceClient creates a new Hugging Face inference client
func (f *Factory) CreateInferenceClient() (core.InferenceClient, error) {
	hfCfg := f.cfg.GetHuggingFace()

	if hfCfg.ClassificationModel == "" || hfCfg.SentimentModel == "" {
		return nil, errors.New("huggingface model mapping is incomplete")
	}

	return NewClient(
		hfCfg.BaseURL,
		hfCfg.APIToken,
		hfCfg.ClassificationModel,
		hfCfg.SentimentModel,
		hfCfg.SummarizationModel,
		hfCfg.Timeout,
		RetryPolicy{
			MaxAttempts:    hfCfg.Retry.MaxAttempts,
			InitialBackoff: hfCfg.Retry.InitialBackoff,
			MaxBackoff:     hfCfg.Retry.MaxBackoff,
			ModelLoadWait:  hfCfg.Retry.ModelLoadWait,
		},
		hfCfg.SummaryMaxLength,
		hfCfg.SummaryMinLength,
		f.logger,
		f.metrics,
	), nil
}
