// Package filter decides which observed candidates are new.
//
// A candidate is marked in the dedup store before anything is alerted. A crash
// between mark and send loses that alert; it is never sent twice. The
// Get-then-Put pair is not atomic, so two overlapping invocations can both see
// a key as absent and both alert it.
package filter

import (
	"context"
	"log/slog"

	"github.com/songzhibin97/alertflux/internal/data"
	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/observability"
)

// Filter partitions candidate batches against a dedup store
type Filter struct {
	store   data.DedupStore
	policy  Policy
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewFilter(store data.DedupStore, policy Policy, logger *slog.Logger, metrics *observability.Metrics) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		store:   store,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// Policy returns the active policy.
func (f *Filter) Policy() Policy {
	return f.policy
}

// PartitionNew returns the candidates never seen before, in input order, and
// marks each of them in the store. Candidates are checked one at a time.
// A store error drops only the candidate it happened on.
func (f *Filter) PartitionNew(ctx context.Context, entities []models.Candidate) []models.Candidate {
	fresh := make([]models.Candidate, 0, len(entities))

	for _, e := range entities {
		kind := string(e.Kind())
		f.metrics.CandidateSeen(kind)

		if !f.policy.Qualifies(e) {
			f.metrics.TokenBelowThreshold()
			continue
		}

		key := e.Key()
		if key == "" {
			f.logger.Warn("candidate without identity key", "kind", kind)
			continue
		}

		_, found, err := f.store.Get(ctx, key)
		if err != nil {
			f.metrics.StoreError("get")
			f.logger.Error("failed to check dedup store", "kind", kind, "key", key, "err", err)
			continue
		}
		if found {
			f.metrics.DedupHit(kind)
			continue
		}

		if err := f.store.Put(ctx, key, f.policy.Marker, f.policy.TTLFor(e.Kind())); err != nil {
			f.metrics.StoreError("put")
			f.logger.Error("failed to mark candidate as seen", "kind", kind, "key", key, "err", err)
			continue
		}

		f.metrics.MarkedNew(kind)
		fresh = append(fresh, e)
	}

	return fresh
}
