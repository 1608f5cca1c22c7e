package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/songzhibin97/alertflux/internal/data"
	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/observability"
)

// MultiSourceCollector implements CandidateCollector interface by aggregating multiple token sources
type MultiSourceCollector struct {
	sources []data.TokenSource
	logger  Logger
	metrics *observability.Metrics
}

type Logger interface {
	Error(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
}

func NewMultiSourceCollector(sources []data.TokenSource, logger Logger, metrics *observability.Metrics) *MultiSourceCollector {
	return &MultiSourceCollector{
		sources: sources,
		logger:  logger,
		metrics: metrics,
	}
}

// CollectCandidates implements CandidateCollector interface.
// Sources are queried one after another; a failing source contributes
// nothing to the cycle and the others still run. The error is non-nil only
// when every source failed.
func (c *MultiSourceCollector) CollectCandidates(ctx context.Context) ([]models.Candidate, error) {
	var result []models.Candidate
	var errs []error

	for _, source := range c.sources {
		tokens, err := source.CollectTokens(ctx)
		if err != nil {
			c.metrics.PollCycle(source.Name(), "error")
			c.logger.Error("failed to collect tokens", "source", source.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
			continue
		}

		c.metrics.PollCycle(source.Name(), "ok")
		c.logger.Info("collected tokens", "source", source.Name(), "count", len(tokens))

		for _, t := range tokens {
			result = append(result, t)
		}
	}

	if len(c.sources) > 0 && len(errs) == len(c.sources) {
		return nil, fmt.Errorf("failed to collect tokens from all sources: %w", errors.Join(errs...))
	}

	return result, nil
}
