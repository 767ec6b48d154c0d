package utils

import (
	"github.com/mr-tron/base58"
)

// Validation utilities

// IsValidSolanaAddress checks if string is a valid Solana address
func IsValidSolanaAddress(address string) bool {
	decoded, err := base58.Decode(address)
	return err == nil && len(decoded) == 32
}

// IsValidSolanaSignature checks if string is a valid Solana signature
func IsValidSolanaSignature(signature string) bool {
	decoded, err := base58.Decode(signature)
	return err == nil && len(decoded) == 64
}

// IsValidSolanaPrivateKey checks if string is a valid base58 encoded 64 byte keypair
func IsValidSolanaPrivateKey(privkey string) bool {
	decoded, err := base58.Decode(privkey)
	return err == nil && len(decoded) == 64
}

// ShortenAddress renders the first and last n characters of an address
func ShortenAddress(address string, n int) string {
	if n <= 0 || len(address) <= 2*n {
		return address
	}
	return address[:n] + "..." + address[len(address)-n:]
}

// SolscanTxURL links a transaction on solscan for the given network
func SolscanTxURL(signature, network string) string {
	url := "https://solscan.io/tx/" + signature
	if network != "" && network != "mainnet" && network != "mainnet-beta" {
		url += "?cluster=" + network
	}
	return url
}
