package factory

import (
	"github.com/mikey/activity-timeline/internal/adapters/imap"
	"github.com/mikey/activity-timeline/internal/config"
	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/senderfilter"
	"go.uber.org/zap"
)

// SourceFactory creates email sources
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailSource creates the IMAP email source with the ignored-sender
// filter applied
func (f *SourceFactory) CreateEmailSource() (core.EmailSource, error) {
	imapCfg := f.cfg.GetIMAP()
	filter := senderfilter.New(f.cfg.GetStringSlice("ingest.ignored_senders"), f.logger)

	return imap.NewSource(
		imapCfg.Server,
		imapCfg.Username,
		imapCfg.Password,
		filter,
		f.logger,
	), nil
}
