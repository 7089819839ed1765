package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/mindshare"
	"github.com/aviorian/monad-mindshare/internal/routine"
)

const (
	leaderboardCycleID     = "leaderboard-cycle"
	defaultRefreshInterval = time.Minute
	sinkTimeout            = 5 * time.Second

	totalFailureMessage = "Unable to load data. Please try again."
)

// ErrCycleCancelled is returned for a cycle that was superseded or cancelled
// before it could commit.
var ErrCycleCancelled = errors.New("leaderboard cycle cancelled")

// BlocklistSource lists author ids an operator excluded at runtime.
type BlocklistSource interface {
	List(ctx context.Context) ([]int64, error)
}

// SnapshotCache persists the latest committed snapshot.
type SnapshotCache interface {
	Save(ctx context.Context, snap domain.LeaderboardSnapshot) error
	Load(ctx context.Context) (domain.LeaderboardSnapshot, bool, error)
}

// SnapshotPublisher announces committed snapshots downstream.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap domain.LeaderboardSnapshot) error
}

// LeaderboardService owns the aggregation cycle and the snapshot it leaves.
// Starting a cycle cancels the one in flight; only the newest cycle commits.
type LeaderboardService struct {
	collector     *Collector
	blocklist     BlocklistSource
	cache         SnapshotCache
	publisher     SnapshotPublisher
	logger        *zap.Logger
	terms         []string
	staticBlocked []int64
	interval      time.Duration
	now           func() time.Time

	manager *routine.Manager
	startMu sync.Mutex

	mu         sync.RWMutex
	snapshot   domain.LeaderboardSnapshot
	generation uint64
}

// NewLeaderboardService wires the cycle. blocklist, cache and publisher may be nil.
func NewLeaderboardService(
	cfg config.Config,
	collector *Collector,
	blocklist BlocklistSource,
	cache SnapshotCache,
	publisher SnapshotPublisher,
	logger *zap.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	terms := cfg.SearchTerms
	if len(terms) == 0 {
		terms = config.SearchTerms
	}
	return &LeaderboardService{
		collector:     collector,
		blocklist:     blocklist,
		cache:         cache,
		publisher:     publisher,
		logger:        logger.Named("leaderboard"),
		terms:         append([]string(nil), terms...),
		staticBlocked: append([]int64(nil), cfg.BlockedAuthorIDs...),
		interval:      interval,
		now:           time.Now,
		manager:       routine.NewManager(context.Background()),
	}
}

// Snapshot returns the last committed snapshot. Loading reports whether a
// cycle is in flight.
func (s *LeaderboardService) Snapshot() domain.LeaderboardSnapshot {
	s.mu.RLock()
	snap := s.snapshot.Clone()
	s.mu.RUnlock()
	snap.Loading = s.manager.Running(leaderboardCycleID)
	return snap
}

// Refresh starts a new cycle, cancelling any cycle in flight, and waits for
// it. Cancelling ctx stops the wait, not the cycle.
func (s *LeaderboardService) Refresh(ctx context.Context) (domain.LeaderboardSnapshot, error) {
	type outcome struct {
		snap domain.LeaderboardSnapshot
		err  error
	}
	result := make(chan outcome, 1)

	s.startMu.Lock()
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	task := &routine.Task{
		ID: leaderboardCycleID,
		Handler: func(taskCtx context.Context) error {
			snap, err := s.runCycle(taskCtx, gen)
			result <- outcome{snap: snap, err: err}
			return err
		},
		OnError: func(_ string, err error) {
			if errors.Is(err, ErrCycleCancelled) {
				s.logger.Debug("cycle cancelled", zap.Uint64("generation", gen))
				return
			}
			s.logger.Warn("cycle failed", zap.Uint64("generation", gen), zap.Error(err))
		},
	}
	err := s.manager.Replace(task)
	s.startMu.Unlock()
	if err != nil {
		return domain.LeaderboardSnapshot{}, fmt.Errorf("start leaderboard cycle: %w", err)
	}

	select {
	case out := <-result:
		return out.snap, out.err
	case <-ctx.Done():
		return domain.LeaderboardSnapshot{}, ctx.Err()
	}
}

// Cancel stops the cycle in flight, if any. The snapshot is left untouched.
func (s *LeaderboardService) Cancel() {
	if err := s.manager.Stop(leaderboardCycleID); err != nil && !errors.Is(err, routine.ErrTaskNotFound) {
		s.logger.Warn("cancel cycle", zap.Error(err))
	}
}

// Start runs a cycle immediately and then once per refresh interval until ctx
// is cancelled.
func (s *LeaderboardService) Start(ctx context.Context) error {
	s.warmFromCache(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil && !errors.Is(err, ErrCycleCancelled) {
			s.logger.Warn("refresh leaderboard", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return s.Close()
		case <-ticker.C:
		}
	}
}

// Close cancels the cycle in flight and refuses new ones.
func (s *LeaderboardService) Close() error {
	return s.manager.Close()
}

func (s *LeaderboardService) runCycle(ctx context.Context, gen uint64) (domain.LeaderboardSnapshot, error) {
	blocked := s.resolveBlocklist(ctx)

	res, err := s.collector.Collect(ctx, s.terms)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return domain.LeaderboardSnapshot{}, fmt.Errorf("%w: %w", ErrCycleCancelled, context.Canceled)
	}

	next := domain.LeaderboardSnapshot{
		FailedTerms: res.FailedTerms,
		Generation:  gen,
	}
	if err != nil {
		next.Error = totalFailureMessage
		if !s.commit(ctx, gen, &next, true) {
			return domain.LeaderboardSnapshot{}, fmt.Errorf("%w: %w", ErrCycleCancelled, context.Canceled)
		}
		return next, err
	}

	next.Authors = mindshare.Build(res.Casts, blocked)
	next.TotalPoints = mindshare.TotalPoints(next.Authors)
	next.Warning = res.Warning()
	next.UpdatedAt = s.now().UTC()
	if !s.commit(ctx, gen, &next, false) {
		return domain.LeaderboardSnapshot{}, fmt.Errorf("%w: %w", ErrCycleCancelled, context.Canceled)
	}

	s.logger.Info("leaderboard updated",
		zap.Uint64("generation", gen),
		zap.Int("authors", len(next.Authors)),
		zap.Int("casts", len(res.Casts)),
		zap.Strings("failed_terms", res.FailedTerms),
	)
	s.fanOut(ctx, next)
	return next, nil
}

// commit installs next if gen is still the newest cycle and ctx is live.
// keepUpdatedAt carries the last success time over a failed cycle.
func (s *LeaderboardService) commit(ctx context.Context, gen uint64, next *domain.LeaderboardSnapshot, keepUpdatedAt bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || ctx.Err() != nil {
		return false
	}
	if keepUpdatedAt {
		next.UpdatedAt = s.snapshot.UpdatedAt
	}
	s.snapshot = next.Clone()
	return true
}

func (s *LeaderboardService) resolveBlocklist(ctx context.Context) mindshare.Blocklist {
	if s.blocklist == nil {
		return mindshare.NewBlocklist(s.staticBlocked)
	}
	dynamic, err := s.blocklist.List(ctx)
	if err != nil {
		s.logger.Warn("load dynamic blocklist, using static ids only", zap.Error(err))
		return mindshare.NewBlocklist(s.staticBlocked)
	}
	return mindshare.NewBlocklist(s.staticBlocked, dynamic)
}

func (s *LeaderboardService) fanOut(ctx context.Context, snap domain.LeaderboardSnapshot) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Save(ctx, snap); err != nil {
			s.logger.Warn("cache leaderboard snapshot", zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
			s.logger.Warn("publish leaderboard snapshot", zap.Error(err))
		}
	}
}

// warmFromCache serves the last cached snapshot until the first cycle commits.
func (s *LeaderboardService) warmFromCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	snap, ok, err := s.cache.Load(ctx)
	if err != nil {
		s.logger.Warn("load cached leaderboard", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == 0 && s.snapshot.UpdatedAt.IsZero() {
		snap.Loading = false
		s.snapshot = snap.Clone()
	}
}
