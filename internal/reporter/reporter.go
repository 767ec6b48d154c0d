package reporter

import (
	"context"
	"fmt"

	"rent-reclaim-bot-go/internal/logger"
	"rent-reclaim-bot-go/internal/storage"
	"rent-reclaim-bot-go/pkg/utils"
)

// Report is an Analysis plus the reclaim history totals
type Report struct {
	Analysis Analysis       `json:"analysis"`
	History  HistorySummary `json:"history"`
}

// Reporter reads the store and renders reports
type Reporter struct {
	repo      storage.Repository
	threshold uint64
	logger    *logger.Logger
}

func NewReporter(repo storage.Repository, threshold uint64, log *logger.Logger) *Reporter {
	return &Reporter{repo: repo, threshold: threshold, logger: log}
}

// Generate builds a report from the current snapshot. It never writes.
func (r *Reporter) Generate(ctx context.Context) (*Report, error) {
	accounts, err := r.repo.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	history, err := r.repo.LoadHistory(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		Analysis: Analyze(accounts, r.threshold),
		History:  SummarizeHistory(history),
	}, nil
}

// Print writes the tree formatted report to the log
func (r *Reporter) Print(report *Report) {
	a := report.Analysis
	op := a.OperatorOwned
	user := a.UserOwned

	r.logger.Section("RENT ANALYSIS REPORT")

	r.logger.Info("TOTAL RENT PAID BY OPERATOR:")
	r.logger.Info(line("├──", "Total Accounts", a.Total, ""))
	r.logger.Info(line("├──", "Operator-Owned", op.Total, ""))
	r.logger.Info(line("└──", "User-Owned", user.Total, ""))

	r.logger.Info("")
	r.logger.Info("OPERATOR-OWNED ACCOUNTS: (Reclaimable)")
	r.logger.Info(line("├──", "Total", op.Total, ""))
	r.logger.Info(line("├──", "Active", op.Active, "(has tokens)"))
	r.logger.Info(line("├──", "Eligible", op.Eligible, "(ready to reclaim)"))
	r.logger.Info(line("└──", "Reclaimed", op.Reclaimed, "(already recovered)"))

	r.logger.Info("")
	r.logger.Info("USER-OWNED ACCOUNTS: (Non-Reclaimable)")
	r.logger.Info(line("├──", "Total", user.Total, ""))
	r.logger.Info(line("├──", "Active", user.Active, "(has tokens)"))
	r.logger.Info(line("└──", "Empty", user.Empty, "(closable only by the owner)"))

	r.logger.Info("")
	r.logger.Info("RECLAIM HISTORY:")
	r.logger.Infof("├── Attempts: %d (%d dry runs)", report.History.Attempts, report.History.DryRuns)
	r.logger.Infof("└── Recovered: %d accounts | %s SOL", report.History.Reclaimed, utils.FormatSOL(report.History.LamportsRecovered))

	r.logger.Info("")
	r.logger.Info("INSIGHTS:")
	r.logger.Infof("├── Rent Recovery Potential: %s SOL (%.1f%%)", utils.FormatSOL(op.Eligible.Lamports), a.RecoveryPotential())
	r.logger.Infof("└── Non-Recoverable Rent: %s SOL (%.1f%%)", utils.FormatSOL(user.Total.Lamports), a.NonRecoverable())
}

func line(branch, label string, b Bucket, note string) string {
	s := fmt.Sprintf("%s %s: %d accounts | %s SOL", branch, label, b.Count, utils.FormatSOL(b.Lamports))
	if note != "" {
		s += " " + note
	}
	return s
}
