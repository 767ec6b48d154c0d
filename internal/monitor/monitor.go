// Package monitor re-reads tracked accounts and refreshes their reclaim status.
package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"rent-reclaim-bot-go/internal/config"
	"rent-reclaim-bot-go/internal/ledger"
	"rent-reclaim-bot-go/internal/logger"
	"rent-reclaim-bot-go/internal/storage"
	"rent-reclaim-bot-go/internal/tracking"
	"rent-reclaim-bot-go/pkg/utils"
)

// Settings control eligibility and pacing
type Settings struct {
	MinLamportsForReclaim uint64
	PauseEvery            int
	PauseDelay            time.Duration
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		MinLamportsForReclaim: cfg.Monitor.MinLamportsForReclaim,
		PauseEvery:            cfg.Monitor.PauseEvery,
		PauseDelay:            cfg.GetPauseDelay(),
	}
}

// Stats summarises one pass. TotalChecked == Eligible + Active. AlreadyClosed
// counts accounts gone from chain and accounts already reclaimed or closed.
type Stats struct {
	TotalChecked  int `json:"totalChecked"`
	Eligible      int `json:"eligible"`
	Active        int `json:"active"`
	AlreadyClosed int `json:"alreadyClosed"`
	Errors        int `json:"errors"`

	EligibleLamports uint64 `json:"eligibleLamports"`
}

type Monitor struct {
	fetcher  ledger.AccountFetcher
	repo     storage.Repository
	settings Settings
	logger   *logger.Logger
	now      func() time.Time
}

func NewMonitor(fetcher ledger.AccountFetcher, repo storage.Repository, settings Settings, log *logger.Logger) *Monitor {
	if settings.PauseEvery <= 0 {
		settings.PauseEvery = config.DefaultMonitorPauseEvery
	}
	return &Monitor{
		fetcher:  fetcher,
		repo:     repo,
		settings: settings,
		logger:   log,
		now:      time.Now,
	}
}

// Check visits every tracked account in address order and saves the refreshed set once at the end
func (m *Monitor) Check(ctx context.Context) (*Stats, error) {
	m.logger.Section("MONITORING TRACKED ACCOUNTS")

	accounts, err := m.repo.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	if len(accounts) == 0 {
		m.logger.Warn("No tracked accounts found. Run scanner first.")
		return stats, nil
	}

	m.logger.Infof("Total accounts to check: %d", len(accounts))

	for i, acc := range accounts.Sorted() {
		if err := ctx.Err(); err != nil {
			break
		}

		m.checkAccount(ctx, acc, stats)

		if (i+1)%m.settings.PauseEvery == 0 {
			if err := sleep(ctx, m.settings.PauseDelay); err != nil {
				break
			}
		}
	}

	// Persist whatever was refreshed even when the pass was cut short.
	if err := m.repo.SaveAccounts(context.WithoutCancel(ctx), accounts); err != nil {
		return stats, err
	}

	m.logSummary(stats)
	return stats, ctx.Err()
}

func (m *Monitor) checkAccount(ctx context.Context, acc *tracking.TrackedAccount, stats *Stats) {
	info, err := m.fetcher.GetAccountInfo(ctx, acc.Address)
	if err != nil {
		stats.Errors++
		m.logger.LogError("monitor", "get_account_info", err, logrus.Fields{"account": acc.Address})
		return
	}

	if info == nil {
		acc.Observe(nil, m.settings.MinLamportsForReclaim, m.now())
		stats.AlreadyClosed++
		m.logger.WithAccount(acc.Address).Info("❌ Account already closed")
		return
	}

	balance, err := ledger.TokenBalanceOf(info)
	if err != nil {
		m.logger.WithAccount(acc.Address).WithError(err).Debug("Could not decode token account")
	}

	status := acc.Observe(&tracking.Observation{Lamports: info.Lamports, TokenBalance: balance}, m.settings.MinLamportsForReclaim, m.now())
	m.logger.LogAccountStatus(acc.Address, string(status), info.Lamports, balance)

	if status.IsTerminal() {
		stats.AlreadyClosed++
		return
	}

	stats.TotalChecked++
	switch status {
	case tracking.StatusEligible:
		stats.Eligible++
		if acc.Reclaimable {
			stats.EligibleLamports += info.Lamports
		}
		m.logger.WithAccount(acc.Address).Infof("✨ Eligible for reclaim (%d lamports, %d tokens)", info.Lamports, balance)
	case tracking.StatusActive:
		stats.Active++
	}
}

func (m *Monitor) logSummary(stats *Stats) {
	m.logger.WithFields(logrus.Fields{
		"total_checked":  stats.TotalChecked,
		"eligible":       stats.Eligible,
		"active":         stats.Active,
		"already_closed": stats.AlreadyClosed,
		"errors":         stats.Errors,
	}).Info("MONITORING SUMMARY")

	if stats.Eligible > 0 {
		m.logger.Infof("Found %d accounts ready for rent reclaim", stats.Eligible)
		m.logger.Infof("Total reclaimable: %s SOL (%d lamports)", utils.FormatSOL(stats.EligibleLamports), stats.EligibleLamports)
	} else {
		m.logger.Info("No accounts are eligible for rent reclaim at this time.")
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
