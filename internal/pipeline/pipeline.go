// Package pipeline connects candidate intake to the new-entity filter and
// the alert dispatcher. Each invocation runs to completion on the calling
// goroutine.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/songzhibin97/alertflux/internal/alert"
	"github.com/songzhibin97/alertflux/internal/data"
	"github.com/songzhibin97/alertflux/internal/models"
)

// Partitioner returns the never-seen candidates of a batch and marks them.
type Partitioner interface {
	PartitionNew(ctx context.Context, entities []models.Candidate) []models.Candidate
}

// Dispatcher alerts every candidate of a batch.
type Dispatcher interface {
	Dispatch(ctx context.Context, entities []models.Candidate) alert.Result
}

// Report 单次执行统计
type Report struct {
	RunID    string `json:"run_id"`
	Received int    `json:"received"`
	New      int    `json:"new"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
}

type Pipeline struct {
	collector  data.CandidateCollector
	filter     Partitioner
	dispatcher Dispatcher
	logger     *slog.Logger
}

func New(collector data.CandidateCollector, filter Partitioner, dispatcher Dispatcher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		collector:  collector,
		filter:     filter,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RunTokenCycle polls the token sources once and alerts the new tokens.
// When collection fails nothing is marked and nothing is sent.
func (p *Pipeline) RunTokenCycle(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", report.RunID, "trigger", "poll")

	if p.collector == nil {
		return report, fmt.Errorf("no candidate collector configured")
	}

	candidates, err := p.collector.CollectCandidates(ctx)
	if err != nil {
		logger.Error("poll cycle aborted", "err", err)
		return report, fmt.Errorf("failed to collect candidates: %w", err)
	}

	report = p.process(ctx, logger, report, candidates)
	return report, nil
}

// HandleSwaps runs a webhook batch of swaps through the same filter and dispatcher.
func (p *Pipeline) HandleSwaps(ctx context.Context, swaps []models.SwapTransaction) Report {
	report := Report{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", report.RunID, "trigger", "webhook")

	candidates := make([]models.Candidate, 0, len(swaps))
	for _, s := range swaps {
		candidates = append(candidates, s)
	}

	return p.process(ctx, logger, report, candidates)
}

func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, report Report, candidates []models.Candidate) Report {
	report.Received = len(candidates)

	fresh := p.filter.PartitionNew(ctx, candidates)
	report.New = len(fresh)

	if len(fresh) > 0 {
		res := p.dispatcher.Dispatch(ctx, fresh)
		report.Sent = res.Sent
		report.Failed = res.Failed
	}

	logger.Info("batch processed",
		"received", report.Received,
		"new", report.New,
		"sent", report.Sent,
		"failed", report.Failed)

	return report
}
