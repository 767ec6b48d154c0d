package utils

import "fmt"

const lamportsPerSol = 1_000_000_000

// ConvertLamportsToSOL converts lamports to SOL
func ConvertLamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / lamportsPerSol
}

// FormatSOL renders lamports as a SOL amount with full precision
func FormatSOL(lamports uint64) string {
	return fmt.Sprintf("%.9f", ConvertLamportsToSOL(lamports))
}

// FormatSOLShort renders lamports as a SOL amount with four decimals
func FormatSOLShort(lamports uint64) string {
	return fmt.Sprintf("%.4f", ConvertLamportsToSOL(lamports))
}

// Percent returns part/total as a percentage, 0 when total is 0
func Percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
