package config

// Solana network constants
const (
	SolanaMainnetRPC = "https://api.mainnet-beta.solana.com"
	SolanaDevnetRPC  = "https://api.devnet.solana.com"

	// WebSocket endpoints
	SolanaMainnetWS = "wss://api.mainnet-beta.solana.com"
	SolanaDevnetWS  = "wss://api.devnet.solana.com"

	// Solana constants
	LamportsPerSol = 1_000_000_000

	// Rent-exempt minimum for a 165 byte SPL token account
	TokenAccountRentLamports = 2_039_280
)

// Scan / monitor / reclaim defaults
const (
	DefaultScanBatchSize     = 100
	DefaultMaxSignatures     = 1000
	DefaultScanPageDelayMs   = 500
	DefaultMinLamports       = 2_000_000
	DefaultMonitorPauseEvery = 10
	DefaultMonitorPauseMs    = 100
	DefaultCheckIntervalSec  = 300
	DefaultReclaimBatchSize  = 10
	DefaultRequestsPerSecond = 10
	DefaultRequestBurst      = 20
	DefaultDataDir           = "data"
)

// GetRPCEndpoint returns RPC endpoint based on network
func GetRPCEndpoint(network string) string {
	switch network {
	case "mainnet", "mainnet-beta":
		return SolanaMainnetRPC
	default:
		return SolanaDevnetRPC
	}
}

// GetWSEndpoint returns WebSocket endpoint based on network
func GetWSEndpoint(network string) string {
	switch network {
	case "mainnet", "mainnet-beta":
		return SolanaMainnetWS
	default:
		return SolanaDevnetWS
	}
}
