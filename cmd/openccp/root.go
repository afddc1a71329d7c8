package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"openccp/internal/camps"
	"openccp/internal/config"
	"openccp/internal/logging"
	"openccp/internal/recompute"
	"openccp/internal/store/sqlite"
)

var (
	version = "dev"
	commit  = "none"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "openccp",
	Short:         "Camp keyword scoring and leaderboards",
	Long:          "openccp ranks tracked accounts within topical camps by how strongly their bios and tweets match each camp's weighted, sentiment-aware keywords.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "./openccp.yaml", "path to config file")
	rootCmd.AddCommand(versionCmd, initCmd, serveCmd, recomputeCmd, leaderboardCmd, tweetsCmd,
		campCmd, keywordCmd, importCmd, statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "openccp %s (commit: %s)\n", version, commit)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app bundles what most commands need.
type app struct {
	cfg  config.Config
	db   *sqlite.DB
	orch *recompute.Orchestrator
	svc  *camps.Service
}

// openApp loads config, configures logging and opens the store. trigger may be nil.
func openApp(trigger camps.Trigger) (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	db, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Storage.DBPath, err)
	}
	db.SetReadTimeout(cfg.Recompute.ReadTimeout)
	orch := recompute.New(db, db, db, recompute.Options{
		Workers:     cfg.Recompute.Workers,
		ReadTimeout: cfg.Recompute.ReadTimeout,
		RunTimeout:  cfg.Recompute.RunTimeout,
		Policy:      cfg.Policy(),
	})
	return &app{cfg: cfg, db: db, orch: orch, svc: newService(cfg, db, orch, trigger)}, nil
}

func newService(cfg config.Config, db *sqlite.DB, orch *recompute.Orchestrator, trigger camps.Trigger) *camps.Service {
	return camps.New(db, orch, trigger, camps.Options{
		Bounds:         cfg.WeightBounds(),
		DefaultLimit:   cfg.Leaderboard.DefaultLimit,
		TopTweetsLimit: cfg.Leaderboard.TopTweetsLimit,
		ExcerptChars:   cfg.Leaderboard.ExcerptChars,
	})
}

func (a *app) Close() { _ = a.db.Close() }
