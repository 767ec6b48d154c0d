package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rent-reclaim-bot-go/internal/config"
	"rent-reclaim-bot-go/internal/logger"
	"rent-reclaim-bot-go/internal/notifier"
	"rent-reclaim-bot-go/internal/reclaimer"
	"rent-reclaim-bot-go/internal/scanner"
	"rent-reclaim-bot-go/pkg/utils"
)

// CLI flags
var (
	configFile string
	envFile    string
	logLevel   string
	dryRun     bool

	watch       bool
	interval    time.Duration
	autoReclaim bool

	scanBefore string
	scanMax    int

	reclaimAddress string
	reclaimLimit   int
)

var rootCmd = &cobra.Command{
	Use:   "rent-reclaim-bot",
	Short: "Track and reclaim rent from token accounts sponsored by a fee payer",
	Long: `rent-reclaim-bot discovers SPL token accounts created by an operator wallet,
monitors them for emptiness and closes empty operator-owned accounts to recover their rent.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan then monitor once, or repeatedly with --watch",
	RunE: withApp("RENT RECLAIM RUN", func(ctx context.Context, app *App, cmd *cobra.Command) error {
		reclaim := autoReclaim || app.config.Reclaimer.AutoReclaim
		if !watch {
			return app.RunCycle(ctx, scanner.Options{}, reclaim)
		}
		every := app.config.GetCheckInterval()
		if cmd.Flags().Changed("interval") {
			every = interval
		}
		return app.Watch(ctx, every, reclaim)
	}),
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover token accounts in the operator's transaction history",
	RunE: withApp("", func(ctx context.Context, app *App, cmd *cobra.Command) error {
		if scanBefore != "" && !utils.IsValidSolanaSignature(scanBefore) {
			return fmt.Errorf("--before %q is not a valid signature", scanBefore)
		}
		result, err := app.scanner.Scan(ctx, scanner.Options{Before: scanBefore, MaxSignatures: scanMax})
		if result != nil && result.LastSignature != "" {
			app.logger.WithField("before", result.LastSignature).Info("Resume an older scan with --before")
		}
		return err
	}),
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Refresh the status of every tracked account",
	RunE: withApp("", func(ctx context.Context, app *App, cmd *cobra.Command) error {
		_, err := app.monitor.Check(ctx)
		return err
	}),
}

var reclaimCmd = &cobra.Command{
	Use:   "reclaim",
	Short: "Close eligible operator-owned accounts (first eligible by default)",
	RunE: withApp("RENT RECLAIM", func(ctx context.Context, app *App, cmd *cobra.Command) error {
		if reclaimAddress != "" {
			record, err := app.reclaimer.Reclaim(ctx, reclaimAddress)
			if err != nil {
				return err
			}
			app.logger.WithAccount(record.Address).WithField("dry_run", record.DryRun).Info("Reclaim completed")
			return nil
		}

		limit := 1
		if cmd.Flags().Changed("limit") {
			limit = reclaimLimit
		}
		outcomes, err := app.reclaimer.ReclaimEligible(ctx, limit)
		app.logOutcomes(outcomes)
		return err
	}),
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the rent analysis report",
	RunE: withApp("", func(ctx context.Context, app *App, cmd *cobra.Command) error {
		report, err := app.reporter.Generate(ctx)
		if err != nil {
			return err
		}
		app.reporter.Print(report)
		return nil
	}),
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Answer Telegram commands until interrupted",
	RunE: withApp("", func(ctx context.Context, app *App, cmd *cobra.Command) error {
		tg, ok := app.notifier.(*notifier.Telegram)
		if !ok {
			return errors.New("telegram is not enabled, set TELEGRAM_ENABLED=true with a bot token and chat id")
		}
		handler := notifier.NewCommandHandler(tg, app.reporter, app.repo, app.reclaimer.DryRun(), app.logger.Logger)
		return handler.Run(ctx)
	}),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "Path to .env file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Never submit transactions")

	runCmd.Flags().BoolVar(&watch, "watch", false, "Repeat the cycle every check interval")
	runCmd.Flags().DurationVar(&interval, "interval", time.Duration(config.DefaultCheckIntervalSec)*time.Second, "Watch interval")
	runCmd.Flags().BoolVar(&autoReclaim, "auto-reclaim", false, "Reclaim eligible accounts after each cycle")

	scanCmd.Flags().StringVar(&scanBefore, "before", "", "Resume scanning before this signature")
	scanCmd.Flags().IntVar(&scanMax, "max", 0, "Maximum signatures to scan (0 uses config)")

	reclaimCmd.Flags().StringVar(&reclaimAddress, "address", "", "Reclaim this account only")
	reclaimCmd.Flags().IntVar(&reclaimLimit, "limit", 1, "Number of eligible accounts to reclaim")

	rootCmd.AddCommand(runCmd, scanCmd, monitorCmd, reclaimCmd, reportCmd, botCmd)
}

// withApp loads config, builds the App and runs fn under a signal-aware context
func withApp(announce string, fn func(ctx context.Context, app *App, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile, envFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			return err
		}
		applyCliOverrides(cfg)

		log, err := logger.NewLogger(logger.LogConfig{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			LogToFile:   cfg.Logging.LogToFile,
			LogFilePath: cfg.Logging.LogFilePath,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			return err
		}

		app, err := NewApp(cfg, log)
		if err != nil {
			log.WithError(err).Error("Failed to create application")
			return err
		}
		defer app.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		app.logStartup()
		if announce != "" {
			notifier.Send(ctx, app.notifier, log.Logger,
				notifier.FormatStartup(announce, cfg.Network, cfg.Operator.Address, cfg.Reclaimer.DryRun))
		}

		err = fn(ctx, app, cmd)
		switch {
		case errors.Is(err, context.Canceled):
			log.LogShutdown("interrupted")
			return nil
		case err != nil:
			if errors.Is(err, reclaimer.ErrMissingSigner) {
				log.Error("Set KORA_OPERATOR_KEYPAIR, KORA_OPERATOR_KEYPAIR_PATH or KORA_OPERATOR_MNEMONIC to reclaim")
			}
			log.WithError(err).Error("Command failed")
			return err
		}

		log.LogShutdown("completed")
		return nil
	}
}

func applyCliOverrides(cfg *config.Config) {
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if dryRun {
		cfg.Reclaimer.DryRun = true
	}
}
