package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aviorian/monad-mindshare/internal/domain"
)

// ErrTotalFetchFailure means every search term failed in one cycle.
var ErrTotalFetchFailure = errors.New("unable to load data, please try again")

// Searcher fetches the casts matching one term.
type Searcher interface {
	Search(ctx context.Context, term string, limit int) ([]domain.Cast, error)
}

// CollectResult merges the casts of every successful term.
type CollectResult struct {
	Casts       []domain.Cast
	FailedTerms []string
}

// Warning names the failed terms, or is empty when none failed.
func (r CollectResult) Warning() string {
	if len(r.FailedTerms) == 0 {
		return ""
	}
	return "some filters failed to load: " + strings.Join(r.FailedTerms, ", ")
}

// Collector issues one search per term concurrently and joins the results.
type Collector struct {
	searcher    Searcher
	limit       int
	termTimeout time.Duration
	logger      *zap.Logger
}

func NewCollector(searcher Searcher, limit int, termTimeout time.Duration, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		searcher:    searcher,
		limit:       limit,
		termTimeout: termTimeout,
		logger:      logger,
	}
}

type termOutcome struct {
	casts     []domain.Cast
	err       error
	cancelled bool
}

// Collect waits for every term to settle. A failing term never cancels the
// others. Terms whose fetch was cancelled are neither merged nor reported.
// When ctx is cancelled Collect returns ctx's error and no result.
func (c *Collector) Collect(ctx context.Context, terms []string) (CollectResult, error) {
	outcomes := make([]termOutcome, len(terms))

	var g errgroup.Group
	for i, term := range terms {
		g.Go(func() error {
			outcomes[i] = c.fetch(ctx, term)
			return nil
		})
	}
	// Fetch errors live in outcomes; the goroutines themselves never fail.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return CollectResult{}, err
	}

	var res CollectResult
	var failed int
	for i, out := range outcomes {
		switch {
		case out.cancelled:
		case out.err != nil:
			failed++
			res.FailedTerms = append(res.FailedTerms, terms[i])
			c.logger.Warn("search term failed", zap.String("term", terms[i]), zap.Error(out.err))
		default:
			res.Casts = append(res.Casts, out.casts...)
		}
	}

	if len(terms) > 0 && failed == len(terms) {
		return res, fmt.Errorf("%w: all %d search terms failed", ErrTotalFetchFailure, failed)
	}
	return res, nil
}

func (c *Collector) fetch(ctx context.Context, term string) termOutcome {
	termCtx := ctx
	if c.termTimeout > 0 {
		var cancel context.CancelFunc
		termCtx, cancel = context.WithTimeout(ctx, c.termTimeout)
		defer cancel()
	}

	casts, err := c.searcher.Search(termCtx, term, c.limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return termOutcome{cancelled: true}
		}
		return termOutcome{err: err}
	}
	return termOutcome{casts: casts}
}
