package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aviorian/monad-mindshare/internal/chain"
	"github.com/aviorian/monad-mindshare/internal/config"
	"github.com/aviorian/monad-mindshare/internal/farcaster"
	"github.com/aviorian/monad-mindshare/internal/kafka"
	"github.com/aviorian/monad-mindshare/internal/neynar"
	"github.com/aviorian/monad-mindshare/internal/rest"
	"github.com/aviorian/monad-mindshare/internal/selection"
	"github.com/aviorian/monad-mindshare/internal/services"
	"github.com/aviorian/monad-mindshare/internal/store"
	"github.com/aviorian/monad-mindshare/internal/transfer"
)

// App centralizes dependency wiring for the mindshare service.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	redis          *redis.Client
	blocklist      *store.BlocklistStore
	leaderboardPub *kafka.LeaderboardPublisher
	transferPub    *kafka.TransferPublisher
	leaderboard    *services.LeaderboardService
	selection      *selection.Set
	rail           *chain.TipRail
	tracker        *transfer.Tracker
	builder        *transfer.Builder

	httpServer *http.Server
}

// NewApp builds an App with all required dependencies.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	// Dialled first: nothing below can fail, so there is nothing to unwind.
	rail, err := chain.Dial(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect wallet: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	blocklist := store.NewBlocklistStore(redisClient, cfg.BlocklistSetKey)
	cache := store.NewLeaderboardCache(redisClient, cfg.LeaderboardCacheKey, cfg.LeaderboardCacheTTL)
	leaderboardPub := kafka.NewLeaderboardPublisher(cfg)
	transferPub := kafka.NewTransferPublisher(cfg, logger)

	collector := services.NewCollector(
		farcaster.NewClient(cfg.FarcasterEndpoint, nil),
		cfg.FarcasterFetchLimit,
		cfg.FarcasterTermTimeout,
		logger,
	)
	leaderboard := services.NewLeaderboardService(cfg, collector, blocklist, cache, leaderboardPub, logger)

	if cfg.UsingPublicNeynarKey() {
		logger.Warn("NEYNAR_API_KEY not set, using the public documentation key")
	}
	profiles := neynar.NewClient(cfg.NeynarEndpoint, cfg.NeynarAPIKey, cfg.NeynarExperimental, nil)
	set := selection.NewSet(profiles, logger)

	tracker := transfer.NewTracker(rail, logger)
	tracker.OnTransition(transferPub.PublishTransition)
	builder := transfer.NewBuilder(cfg, set, rail, tracker, logger)
	set.OnEmpty(builder.CancelDraft)

	return &App{
		cfg:            cfg,
		logger:         logger,
		redis:          redisClient,
		blocklist:      blocklist,
		leaderboardPub: leaderboardPub,
		transferPub:    transferPub,
		leaderboard:    leaderboard,
		selection:      set,
		rail:           rail,
		tracker:        tracker,
		builder:        builder,
	}, nil
}

// Run starts background services and blocks until ctx cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.leaderboard.Start(gctx); err != nil {
			return fmt.Errorf("start leaderboard service: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.runHTTPServer(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (a *App) runHTTPServer(ctx context.Context) error {
	r, srv := rest.NewServer(a.cfg, a.logger)
	a.httpServer = srv
	rg := r.Group("")
	rest.NewLeaderboardController(a.leaderboard).RegisterLeaderboardRoutes(rg)
	rest.NewSelectionController(a.selection).RegisterSelectionRoutes(rg)
	rest.NewTransferController(a.builder, a.tracker).RegisterTransferRoutes(rg)
	rest.NewBlocklistController(a.blocklist, a.cfg.BlockedAuthorIDs).RegisterBlocklistRoutes(rg)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server started", zap.String("addr", srv.Addr))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	// App context shutdown:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		err := <-serverErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	// HTTP server error:
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (a *App) cleanup() {
	if err := a.tracker.Close(); err != nil {
		a.logger.Warn("error stopping confirmation watches", zap.Error(err))
	}
	if err := a.leaderboard.Close(); err != nil {
		a.logger.Warn("error stopping leaderboard cycle", zap.Error(err))
	}
	if err := a.transferPub.Close(); err != nil {
		a.logger.Warn("error closing Kafka transfer publisher", zap.Error(err))
	}
	if err := a.leaderboardPub.Close(); err != nil {
		a.logger.Warn("error closing Kafka leaderboard publisher", zap.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("error closing Redis client", zap.Error(err))
	}
	a.rail.Close()
}
