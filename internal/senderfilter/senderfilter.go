package senderfilter

import (
	"strings"

	"go.uber.org/zap"
)

// Filter drops messages from configured senders before classification.
// Entries are either full addresses or bare domains; bulk senders such
// as no-reply addresses are the usual candidates.
type Filter struct {
	addresses map[string]struct{}
	domains   map[string]struct{}
	logger    *zap.Logger
}

// New creates a new sender filter
func New(ignored []string, logger *zap.Logger) *Filter {
	f := &Filter{
		addresses: make(map[string]struct{}),
		domains:   make(map[string]struct{}),
		logger:    logger,
	}

	for _, entry := range ignored {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "@") {
			f.addresses[entry] = struct{}{}
		} else {
			f.domains[entry] = struct{}{}
		}
	}

	if len(ignored) > 0 && logger != nil {
		logger.Info("Initialized sender filter",
			zap.Int("addresses", len(f.addresses)),
			zap.Int("domains", len(f.domains)))
	}

	return f
}

// Ignored reports whether messages from the sender should be dropped
func (f *Filter) Ignored(sender string) bool {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" {
		return false
	}

	if _, ok := f.addresses[sender]; ok {
		f.logDrop(sender)
		return true
	}

	parts := strings.Split(sender, "@")
	if len(parts) != 2 {
		return false
	}
	if _, ok := f.domains[parts[1]]; ok {
		f.logDrop(sender)
		return true
	}
	return false
}

func (f *Filter) logDrop(sender string) {
	if f.logger != nil {
		f.logger.Debug("Sender is ignored", zap.String("sender", sender))
	}
}
