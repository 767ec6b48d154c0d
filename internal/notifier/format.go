package notifier

import (
	"fmt"
	"strings"
	"time"

	"rent-reclaim-bot-go/internal/reporter"
	"rent-reclaim-bot-go/internal/tracking"
	"rent-reclaim-bot-go/pkg/utils"
)

const previewLimit = 10

const StartText = "🤖 *Rent Reclaim Bot*\n\n" +
	"I monitor token accounts sponsored by the operator and report rent that can be recovered.\n\n" +
	"Commands:\n" +
	"/status - Current rent status\n" +
	"/reclaim - Preview eligible accounts\n" +
	"/report - Full analysis report"

const HelpText = "🤖 *Rent Reclaim Bot Commands*\n\n" +
	"/start - Welcome message\n" +
	"/status - Current rent status\n" +
	"/report - Full analysis report\n" +
	"/reclaim - Preview eligible accounts\n" +
	"/help - Show this help"

// FormatStartup announces the start of an operation
func FormatStartup(operation, network, operator string, dryRun bool) string {
	mode := "live"
	if dryRun {
		mode = "dry run"
	}
	return fmt.Sprintf("🚀 *%s started*\n\n🌐 Network: %s\n👤 Operator: `%s`\n🧪 Mode: %s",
		operation, network, utils.ShortenAddress(operator, 8), mode)
}

// FormatReclaim is sent after a confirmed close
func FormatReclaim(address string, lamports uint64, signature, network string, at time.Time) string {
	link := "N/A"
	if signature != "" {
		link = fmt.Sprintf("[View on Solscan](%s)", utils.SolscanTxURL(signature, network))
	}
	return fmt.Sprintf("💰 *Rent Reclaimed!*\n\n📍 Account: `%s`\n💎 Amount: %s SOL\n🔗 Signature: %s\n⏰ Time: %s",
		utils.ShortenAddress(address, 8), utils.FormatSOL(lamports), link, at.UTC().Format(time.RFC1123))
}

// FormatStatus is the short answer to /status
func FormatStatus(a reporter.Analysis) string {
	return fmt.Sprintf("📊 *Current Status*\n\n🏦 Total Rent: %s SOL\n💰 Reclaimed: %s SOL\n🎯 Available: %s SOL\n📈 Recovery Rate: %.1f%%",
		utils.FormatSOL(a.Total.Lamports),
		utils.FormatSOL(a.OperatorOwned.Reclaimed.Lamports),
		utils.FormatSOL(a.OperatorOwned.Eligible.Lamports),
		a.RecoveryRate())
}

// FormatReport is the answer to /report
func FormatReport(report *reporter.Report) string {
	a := report.Analysis
	op := a.OperatorOwned
	user := a.UserOwned

	var b strings.Builder
	b.WriteString("📊 *Full Rent Report*\n\n")
	b.WriteString("*Operator-Owned (Reclaimable):*\n")
	b.WriteString(bucketLine("📈 Total", op.Total))
	b.WriteString(bucketLine("✅ Active", op.Active))
	b.WriteString(bucketLine("🎯 Eligible", op.Eligible))
	b.WriteString(bucketLine("💰 Reclaimed", op.Reclaimed))
	b.WriteString("\n*User-Owned (Non-Reclaimable):*\n")
	b.WriteString(bucketLine("👤 Total", user.Total))
	b.WriteString(bucketLine("🪙 Active", user.Active))
	b.WriteString(bucketLine("📭 Empty", user.Empty))
	b.WriteString("\n*History:*\n")
	fmt.Fprintf(&b, "🧾 Attempts: %d (%d dry runs)\n", report.History.Attempts, report.History.DryRuns)
	fmt.Fprintf(&b, "💎 Recovered: %s SOL\n", utils.FormatSOL(report.History.LamportsRecovered))
	fmt.Fprintf(&b, "\nRecovery potential %.1f%% | Non-recoverable %.1f%%", a.RecoveryPotential(), a.NonRecoverable())
	return b.String()
}

// FormatRentSummary is sent after a run cycle
func FormatRentSummary(a reporter.Analysis) string {
	return fmt.Sprintf("📊 *Rent Analysis Report*\n\n🏦 Total Rent: %s SOL\n💰 Reclaimed: %s SOL\n🎯 Available: %s SOL\n📈 Recovery Rate: %.1f%%\n\nRun /status for live updates",
		utils.FormatSOLShort(a.Total.Lamports),
		utils.FormatSOLShort(a.OperatorOwned.Reclaimed.Lamports),
		utils.FormatSOLShort(a.OperatorOwned.Eligible.Lamports),
		a.RecoveryRate())
}

// FormatReclaimPreview lists what a reclaim run would close. Nothing is submitted from chat.
func FormatReclaimPreview(eligible []*tracking.TrackedAccount, dryRun bool) string {
	if len(eligible) == 0 {
		return "🔄 No accounts are eligible for reclaim right now."
	}

	var total uint64
	for _, acc := range eligible {
		total += acc.Metadata.Lamports
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔄 *%d eligible accounts* | %s SOL\n\n", len(eligible), utils.FormatSOL(total))
	for i, acc := range eligible {
		if i == previewLimit {
			fmt.Fprintf(&b, "…and %d more\n", len(eligible)-previewLimit)
			break
		}
		fmt.Fprintf(&b, "• `%s` %s SOL\n", utils.ShortenAddress(acc.Address, 8), utils.FormatSOL(acc.Metadata.Lamports))
	}

	b.WriteString("\nThis is a preview only. Run the reclaim command to close accounts")
	if dryRun {
		b.WriteString(" (dry run is on)")
	}
	b.WriteString(".")
	return b.String()
}

func bucketLine(label string, bucket reporter.Bucket) string {
	return fmt.Sprintf("%s: %d accounts | %s SOL\n", label, bucket.Count, utils.FormatSOL(bucket.Lamports))
}
