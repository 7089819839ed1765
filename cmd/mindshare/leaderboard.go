package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aviorian/monad-mindshare/internal/domain"
	"github.com/aviorian/monad-mindshare/internal/farcaster"
	"github.com/aviorian/monad-mindshare/internal/services"
)

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Run one aggregation cycle and print the ranking",
	Long: `Searches every configured term once, aggregates the results and prints the
ranking. Nothing is cached or published.`,
	RunE: runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 25, "number of authors to print (0 prints all)")
}

func runLeaderboard(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	collector := services.NewCollector(
		farcaster.NewClient(cfg.FarcasterEndpoint, nil),
		cfg.FarcasterFetchLimit,
		cfg.FarcasterTermTimeout,
		logger,
	)
	svc := services.NewLeaderboardService(cfg, collector, nil, nil, nil, logger)
	defer func() { _ = svc.Close() }()

	snap, err := svc.Refresh(cmd.Context())
	if err != nil {
		logger.Error("leaderboard cycle failed", zap.Error(err))
		return err
	}
	return printLeaderboard(cmd.OutOrStdout(), snap, leaderboardLimit)
}

func printLeaderboard(w io.Writer, snap domain.LeaderboardSnapshot, limit int) error {
	if snap.Warning != "" {
		fmt.Fprintf(w, "warning: %s\n\n", snap.Warning)
	}
	if len(snap.Authors) == 0 {
		_, err := fmt.Fprintln(w, "no authors with engagement")
		return err
	}

	authors := snap.Authors
	if limit > 0 && len(authors) > limit {
		authors = authors[:limit]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tAUTHOR\tCASTS\tREPLIES\tREACTIONS\tRECASTS\tPOINTS\tMINDSHARE")
	for i, a := range authors {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			i+1,
			authorLabel(a.AuthorStats),
			a.TotalCasts,
			a.TotalReplies,
			a.TotalReactions,
			a.TotalRecasts,
			domain.FormatPoints(a.TotalPoints),
			domain.FormatMindshare(a.Mindshare),
		)
	}
	fmt.Fprintf(tw, "\t\t\t\t\t\t%s\t\n", domain.FormatPoints(snap.TotalPoints))
	return tw.Flush()
}

func authorLabel(a domain.AuthorStats) string {
	switch {
	case a.Username != "":
		return "@" + a.Username
	case a.DisplayName != "":
		return a.DisplayName
	default:
		return fmt.Sprintf("fid:%d", a.AuthorID)
	}
}
