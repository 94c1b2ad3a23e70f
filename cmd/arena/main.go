package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"botarena/internal/compiler"
	"botarena/internal/config"
	"botarena/internal/game"
	"botarena/internal/series"
	"botarena/internal/submission"
	"botarena/internal/tournament"
	"botarena/internal/watch"
)

var (
	// Global flags
	verbose    bool
	configPath string
	botsDir    string
	seriesFlag string

	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "arena - bot tournament engine",
	Long: `arena runs multi-game competitions among untrusted competitor bots.

Submissions are validated with a Datalog safety policy, compiled into
isolated interpreters, and driven through group and elimination stages
under strict time and memory ceilings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd plays a full series over the submitted bots
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Validate, compile, and run a series over the submitted bots",
	Long: `Loads every submission folder under the bots directory, rejects
unsafe or non-conforming entries, and runs the configured series of
tournaments over the survivors.

Example:
  arena run --bots ./submissions --series rpsls,colonel_blotto,rpsls`,
	RunE: runSeries,
}

// validateCmd checks submissions without playing anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every submission and report rejections",
	RunE:  validateSubmissions,
}

// watchCmd revalidates submissions as they change on disk
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the bots directory and revalidate changed submissions",
	RunE:  watchSubmissions,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "arena.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&botsDir, "bots", "", "Submissions directory (overrides config)")

	runCmd.Flags().StringVar(&seriesFlag, "series", "", "Comma-separated game kinds (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if botsDir != "" {
		cfg.Submissions.Dir = botsDir
	}
	return cfg, nil
}

func newLoader(cfg *config.Config) (*compiler.Loader, error) {
	limits := submission.Limits{MaxTotalBytes: cfg.Submissions.MaxBytes}
	return compiler.NewLoader(compiler.Options{
		Limits:           limits,
		MemoryLimitBytes: cfg.Limits.MemoryBytes,
		Logger:           logger,
	})
}

// runSeries loads the bot pool and plays the configured schedule.
func runSeries(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	schedule, err := scheduleFrom(cfg)
	if err != nil {
		return err
	}

	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}
	handles, err := loader.LoadDirectory(ctx, cfg.Submissions.Dir)
	if err != nil {
		return err
	}
	var bots []*compiler.Handle
	for _, h := range handles {
		if h.Valid() {
			bots = append(bots, h)
			continue
		}
		for _, msg := range h.Errors {
			logger.Warn("submission rejected",
				zap.String("team", h.TeamName),
				zap.String("reason", msg))
		}
	}
	logger.Info("bot pool loaded",
		zap.Int("accepted", len(bots)),
		zap.Int("rejected", len(handles)-len(bots)))

	rulesByKind := make(map[game.Kind]game.Rules, len(schedule))
	for _, kind := range schedule {
		rulesByKind[kind] = cfg.RulesFor(kind)
	}
	mgr, err := series.NewManager(&series.Config{
		Schedule: schedule,
		Tournament: tournament.Config{
			GroupCount:           cfg.Tournament.GroupCount,
			AdvancePerGroup:      cfg.Tournament.AdvancePerGroup,
			MaxConcurrentMatches: cfg.Tournament.MaxConcurrentMatches,
			MoveTimeout:          cfg.GetMoveTimeout(),
		},
		RulesByKind: rulesByKind,
		Listener:    &logListener{logger: logger},
		Logger:      logger,
	}, bots)
	if err != nil {
		return err
	}

	rec, err := mgr.Run(ctx)
	if err != nil {
		return err
	}
	printStandings(rec)
	return nil
}

func scheduleFrom(cfg *config.Config) ([]game.Kind, error) {
	if seriesFlag == "" {
		return cfg.ScheduleKinds()
	}
	var kinds []game.Kind
	for _, name := range strings.Split(seriesFlag, ",") {
		k, err := game.ParseKind(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func printStandings(rec *series.Record) {
	fmt.Printf("\nSeries %s complete: champion %s (%d matches)\n",
		rec.ID, rec.Champion, rec.MatchCount)
	for place, s := range rec.Standings {
		fmt.Printf("  %2d. %-20s score=%d W=%d L=%d D=%d\n",
			place+1, s.Team, s.TotalScore, s.Wins, s.Losses, s.Draws)
	}
}

// validateSubmissions reports every submission's verdict without playing.
func validateSubmissions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}
	handles, err := loader.LoadDirectory(context.Background(), cfg.Submissions.Dir)
	if err != nil {
		return err
	}
	rejected := 0
	for _, h := range handles {
		if h.Valid() {
			fmt.Printf("OK    %s\n", h.TeamName)
			continue
		}
		rejected++
		fmt.Printf("REJECT %s\n", h.TeamName)
		for _, msg := range h.Errors {
			fmt.Printf("       %s\n", msg)
		}
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d submissions rejected", rejected, len(handles))
	}
	return nil
}

// watchSubmissions revalidates a team's folder whenever it changes.
func watchSubmissions(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loader, err := newLoader(cfg)
	if err != nil {
		return err
	}

	w, err := watch.New(cfg.Submissions.Dir, func(team string) {
		sub, err := compiler.ReadSubmission(filepath.Join(cfg.Submissions.Dir, team))
		if err != nil {
			logger.Warn("submission unreadable",
				zap.String("team", team), zap.Error(err))
			return
		}
		h := loader.Compile(sub)
		if h.Valid() {
			logger.Info("submission accepted", zap.String("team", team))
			return
		}
		for _, msg := range h.Errors {
			logger.Warn("submission rejected",
				zap.String("team", team), zap.String("reason", msg))
		}
	}, logger)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	<-sigCh
	logger.Info("shutdown signal received")
	return nil
}
