package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rent-reclaim-bot-go/internal/client"
	"rent-reclaim-bot-go/internal/config"
	"rent-reclaim-bot-go/internal/logger"
	"rent-reclaim-bot-go/internal/monitor"
	"rent-reclaim-bot-go/internal/notifier"
	"rent-reclaim-bot-go/internal/reclaimer"
	"rent-reclaim-bot-go/internal/reporter"
	"rent-reclaim-bot-go/internal/scanner"
	"rent-reclaim-bot-go/internal/storage"
	"rent-reclaim-bot-go/internal/wallet"
)

// App wires the services for one command invocation
type App struct {
	config    *config.Config
	logger    *logger.Logger
	client    *client.Client
	wallet    *wallet.Wallet
	repo      storage.Repository
	notifier  notifier.Notifier
	scanner   *scanner.Scanner
	monitor   *monitor.Monitor
	reclaimer *reclaimer.Reclaimer
	reporter  *reporter.Reporter
}

func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	solanaClient := client.NewClient(client.ClientConfig{
		RPCEndpoint:       cfg.RPCUrl,
		WSEndpoint:        cfg.WSUrl,
		APIKey:            cfg.RPCAPIKey,
		Commitment:        cfg.RPC.Commitment,
		Timeout:           cfg.GetRPCTimeout(),
		RequestsPerSecond: cfg.RPC.RequestsPerSecond,
		Burst:             cfg.RPC.Burst,
	}, log.Logger)

	repo, err := storage.NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	n, err := notifier.New(cfg, log.Logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	// A nil wallet must stay a nil Closer so the reclaimer reports the missing signer.
	var walletInstance *wallet.Wallet
	var closer reclaimer.Closer
	if cfg.HasSigningCredential() {
		walletInstance, err = wallet.NewWallet(wallet.WalletConfig{
			PrivateKey:      cfg.Operator.Keypair,
			KeypairPath:     cfg.Operator.KeypairPath,
			Mnemonic:        cfg.Operator.Mnemonic,
			ExpectedAddress: cfg.Operator.Address,
		}, solanaClient, log.Logger)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to create wallet: %w", err)
		}
		closer = walletInstance
	}

	return &App{
		config:    cfg,
		logger:    log,
		client:    solanaClient,
		wallet:    walletInstance,
		repo:      repo,
		notifier:  n,
		scanner:   scanner.NewScanner(solanaClient, repo, scanner.SettingsFromConfig(cfg), log),
		monitor:   monitor.NewMonitor(solanaClient, repo, monitor.SettingsFromConfig(cfg), log),
		reclaimer: reclaimer.NewReclaimer(solanaClient, closer, repo, n, reclaimer.SettingsFromConfig(cfg), log),
		reporter:  reporter.NewReporter(repo, cfg.Monitor.MinLamportsForReclaim, log),
	}, nil
}

func (a *App) logStartup() {
	a.logger.LogStartup(Version, a.config.Network, a.config.RPCUrl, a.config.Operator.Address, a.config.Reclaimer.DryRun)
	a.logger.WithFields(logrus.Fields{
		"treasury": a.config.Operator.Treasury,
		"backend":  a.config.Storage.Backend,
		"data_dir": a.config.Storage.DataDir,
	}).Info("Configuration loaded")

	if a.config.ForcedDryRun {
		a.logger.Warn("⚠️ No operator signing credential configured, running in dry-run mode")
	}
}

// RunCycle scans, monitors and optionally reclaims once, then sends a rent summary
func (a *App) RunCycle(ctx context.Context, opts scanner.Options, autoReclaim bool) error {
	start := time.Now()
	defer func() { a.logger.LogLatency("run_cycle", time.Since(start)) }()

	scanResult, err := a.scanner.Scan(ctx, opts)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	stats, err := a.monitor.Check(ctx)
	if err != nil {
		return fmt.Errorf("monitor failed: %w", err)
	}

	if autoReclaim && stats.Eligible > 0 {
		outcomes, err := a.reclaimer.ReclaimEligible(ctx, 0)
		if err != nil {
			return fmt.Errorf("reclaim failed: %w", err)
		}
		a.logOutcomes(outcomes)
	}

	report, err := a.reporter.Generate(ctx)
	if err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"scanned":  scanResult.TotalScanned,
		"new":      scanResult.NewAccountsFound,
		"tracked":  scanResult.TotalTracked,
		"eligible": stats.Eligible,
		"closed":   stats.AlreadyClosed,
		"errors":   stats.Errors,
	}).Info("✅ Cycle complete")

	notifier.Send(ctx, a.notifier, a.logger.Logger, notifier.FormatRentSummary(report.Analysis))
	return nil
}

// Watch repeats RunCycle every interval until ctx is cancelled. A failed cycle is logged and retried on the next tick.
func (a *App) Watch(ctx context.Context, interval time.Duration, autoReclaim bool) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}

	log := a.logger.WithComponent("watch")
	log.WithFields(logrus.Fields{
		"interval":     interval.String(),
		"auto_reclaim": autoReclaim,
	}).Info("👀 Watch mode started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := a.RunCycle(ctx, scanner.Options{}, autoReclaim); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(err).Error("Cycle failed, retrying on next tick")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) logOutcomes(outcomes []reclaimer.Outcome) {
	var succeeded, failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			level := logrus.ErrorLevel
			if isRefusal(o.Err) {
				level = logrus.WarnLevel
			}
			a.logger.WithAccount(o.Address).WithError(o.Err).Log(level, "Reclaim failed")
			continue
		}
		succeeded++
	}
	a.logger.WithFields(logrus.Fields{
		"succeeded": succeeded,
		"failed":    failed,
		"dry_run":   a.reclaimer.DryRun(),
	}).Info("Reclaim batch finished")
}

func isRefusal(err error) bool {
	for _, target := range []error{
		reclaimer.ErrWhitelisted,
		reclaimer.ErrNotOperatorOwned,
		reclaimer.ErrAccountClosed,
		reclaimer.ErrAlreadyReclaimed,
		reclaimer.ErrNotTokenAccount,
		reclaimer.ErrNotTracked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (a *App) Close() {
	a.client.Close()
	if err := a.repo.Close(); err != nil {
		a.logger.WithError(err).Warn("Failed to close store")
	}
}
