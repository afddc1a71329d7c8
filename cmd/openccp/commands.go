package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"openccp/internal/cmdlog"
	"openccp/internal/config"
	"openccp/internal/model"
	"openccp/internal/theme"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("init", func() error {
			if err := config.Save(flagConfig, config.Default()); err != nil {
				return err
			}
			abs, _ := filepath.Abs(flagConfig)
			theme.PrintBanner()
			fmt.Fprintln(cmd.OutOrStdout(), "Config written to:", abs)
			return nil
		})
	},
}

var flagAll bool

var recomputeCmd = &cobra.Command{
	Use:   "recompute [camp...]",
	Short: "Recompute scores for the given camps (id or slug), or --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("recompute", func() error {
			if !flagAll && len(args) == 0 {
				return fmt.Errorf("name at least one camp or pass --all")
			}
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			if flagAll {
				return a.orch.RunAll(ctx)
			}
			for _, ref := range args {
				c, err := a.svc.GetCamp(ctx, ref)
				if err != nil {
					return err
				}
				st, err := a.svc.Recompute(ctx, c.ID)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s scored=%d skipped=%d %s\n", c.Slug, st.State, st.AccountsScored, st.AccountsSkipped, st.Reason)
				if err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var flagLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard <camp>",
	Short: "Print a camp's leaderboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("leaderboard", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			c, err := a.svc.GetCamp(ctx, args[0])
			if err != nil {
				return err
			}
			lb, err := a.svc.Leaderboard(ctx, c.ID, flagLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if lb.ComputedAt == nil {
				fmt.Fprintf(out, "%s has not been computed yet; run `openccp recompute %s`\n", c.Name, c.Slug)
				return nil
			}
			fmt.Fprintf(out, "%s %s (computed %s)\n", c.Name, theme.Swatch(out, c.Color), lb.ComputedAt.Local().Format("2006-01-02 15:04"))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tACCOUNT\tFOLLOWERS\tBIO\tTWEETS\tTOTAL")
			for _, e := range lb.Entries {
				fmt.Fprintf(tw, "%d\t@%s\t%d\t%.1f\t%.1f\t%.1f\n", e.Rank, e.Account.Username, e.Account.FollowersCount, e.BioScore, e.TweetScore, e.TotalScore)
			}
			return tw.Flush()
		})
	},
}

var tweetsCmd = &cobra.Command{
	Use:   "tweets <camp>",
	Short: "Print a camp's top matching tweets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("tweets", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			c, err := a.svc.GetCamp(ctx, args[0])
			if err != nil {
				return err
			}
			v, err := a.svc.TopTweets(ctx, c.ID, flagLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range v.Tweets {
				fmt.Fprintf(out, "%.1f  @%s  %s  %v\n    %s\n", t.Score, t.Account.Username, t.CreatedAt.Format("2006-01-02"), t.MatchedKeywords, t.Excerpt)
			}
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import accounts and tweets from a JSON corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("import", func() error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.svc.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d accounts, %d tweets\n", res.Accounts, res.Tweets)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show counts of camps, keywords and the corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run("stats", func() error {
			a, err := openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()
			st, err := a.svc.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "camps=%d keywords=%d accounts=%d seeds=%d tweets=%d\n",
				st.Camps, st.Keywords, st.Accounts, st.Seeds, st.Tweets)
			return nil
		})
	},
}

func init() {
	recomputeCmd.Flags().BoolVar(&flagAll, "all", false, "recompute every camp")
	leaderboardCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum rows (0 uses the configured default)")
	tweetsCmd.Flags().IntVar(&flagLimit, "limit", 0, "maximum tweets (0 uses the configured default)")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ConfigError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}
