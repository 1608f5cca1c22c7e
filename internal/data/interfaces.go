package data

import (
	"context"
	"errors"
	"time"

	"github.com/songzhibin97/alertflux/internal/models"
)

// NoExpiry marks a dedup entry that never expires.
const NoExpiry time.Duration = 0

// ErrInvalidKey is returned for an empty dedup key.
var ErrInvalidKey = errors.New("dedup key must not be empty")

// DedupStore 记录已告警实体的持久化键值存储
type DedupStore interface {
	// Get returns the live marker stored under key, found is false when absent or expired
	Get(ctx context.Context, key string) (marker string, found bool, err error)

	// Put stores marker under key; ttl of NoExpiry keeps it forever
	Put(ctx context.Context, key, marker string, ttl time.Duration) error
}

// Purger is implemented by stores that hold expired rows until asked to drop them.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// TokenSource 负责从上游获取候选代币列表
type TokenSource interface {
	Name() string

	// CollectTokens returns the ranked candidate list, best first
	CollectTokens(ctx context.Context) ([]models.TokenCandidate, error)
}

// CandidateCollector aggregates token sources for one poll cycle.
type CandidateCollector interface {
	CollectCandidates(ctx context.Context) ([]models.Candidate, error)
}
