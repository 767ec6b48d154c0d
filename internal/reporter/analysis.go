// Package reporter aggregates tracked accounts into rent totals.
package reporter

import (
	"rent-reclaim-bot-go/internal/tracking"
	"rent-reclaim-bot-go/pkg/utils"
)

// Bucket is an account count and the lamports those accounts hold.
type Bucket struct {
	Count    int    `json:"count"`
	Lamports uint64 `json:"lamports"`
}

func (b *Bucket) add(lamports uint64) {
	b.Count++
	b.Lamports += lamports
}

type OperatorOwned struct {
	Total     Bucket `json:"total"`
	Active    Bucket `json:"active"`
	Eligible  Bucket `json:"eligible"`
	Reclaimed Bucket `json:"reclaimed"`
}

type UserOwned struct {
	Total  Bucket `json:"total"`
	Active Bucket `json:"active"`
	Empty  Bucket `json:"empty"`
}

// Analysis is the rent picture of one store snapshot.
type Analysis struct {
	Total         Bucket        `json:"total"`
	OperatorOwned OperatorOwned `json:"operatorOwned"`
	UserOwned     UserOwned     `json:"userOwned"`
}

// Analyze buckets accounts by category. Within operator-owned accounts
// reclaimed wins over the eligibility predicate, which wins over active.
func Analyze(accounts tracking.AccountSet, threshold uint64) Analysis {
	var a Analysis

	for _, acc := range accounts.Sorted() {
		lamports := lamportsOf(acc)
		a.Total.add(lamports)

		switch acc.Category {
		case tracking.CategoryOperatorOwned:
			a.OperatorOwned.Total.add(lamports)
			switch {
			case acc.WasReclaimed():
				a.OperatorOwned.Reclaimed.add(lamports)
			case tracking.IsEligible(acc.Metadata.Lamports, acc.Metadata.TokenBalance, threshold):
				a.OperatorOwned.Eligible.add(lamports)
			default:
				a.OperatorOwned.Active.add(lamports)
			}

		case tracking.CategoryUserOwned:
			a.UserOwned.Total.add(lamports)
			if acc.Metadata.TokenBalance == 0 {
				a.UserOwned.Empty.add(lamports)
			} else {
				a.UserOwned.Active.add(lamports)
			}
		}
	}

	return a
}

// lamportsOf prefers the confirmed recovered amount for reclaimed accounts
func lamportsOf(acc *tracking.TrackedAccount) uint64 {
	if acc.WasReclaimed() && acc.Metadata.LamportsRecovered != nil {
		return *acc.Metadata.LamportsRecovered
	}
	return acc.Metadata.Lamports
}

// RecoveryPotential is eligible operator-owned rent as a percentage of all tracked rent.
func (a Analysis) RecoveryPotential() float64 {
	return utils.Percent(a.OperatorOwned.Eligible.Lamports, a.Total.Lamports)
}

// NonRecoverable is user-owned rent as a percentage of all tracked rent.
func (a Analysis) NonRecoverable() float64 {
	return utils.Percent(a.UserOwned.Total.Lamports, a.Total.Lamports)
}

// RecoveryRate is reclaimed operator-owned rent as a percentage of all operator-owned rent.
func (a Analysis) RecoveryRate() float64 {
	return utils.Percent(a.OperatorOwned.Reclaimed.Lamports, a.OperatorOwned.Total.Lamports)
}

// HistorySummary totals the reclaim log.
type HistorySummary struct {
	Attempts          int    `json:"attempts"`
	DryRuns           int    `json:"dryRuns"`
	Reclaimed         int    `json:"reclaimed"`
	LamportsRecovered uint64 `json:"lamportsRecovered"`
}

func SummarizeHistory(history []tracking.ReclaimRecord) HistorySummary {
	var s HistorySummary
	for _, rec := range history {
		s.Attempts++
		if rec.DryRun {
			s.DryRuns++
			continue
		}
		if rec.LamportsRecovered != nil {
			s.Reclaimed++
			s.LamportsRecovered += *rec.LamportsRecovered
		}
	}
	return s
}
