// Package ledger defines the narrow view of the Solana RPC API the bot depends on.
package ledger

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// TokenAccountSize is the byte length of an SPL token account.
const TokenAccountSize = 165

var ErrNotTokenAccount = errors.New("not an spl token account")

// TokenProgramID is the SPL token program address.
var TokenProgramID = solana.TokenProgramID.String()

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64
	Failed    bool
}

// SignaturesOptions pages backward through history. Before and Until are exclusive signatures.
type SignaturesOptions struct {
	Limit  int
	Before string
	Until  string
}

// TokenBalance is a pre or post token balance with its account index already resolved.
type TokenBalance struct {
	AccountIndex int
	Account      string
	Mint         string
	Owner        string
	Amount       string
}

// Transaction is the subset of a confirmed transaction the scanner reads.
type Transaction struct {
	Signature         string
	Slot              uint64
	BlockTime         *int64
	Failed            bool
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// AccountInfo is the raw state of an existing account.
type AccountInfo struct {
	Address  string
	Lamports uint64
	Owner    string // owning program
	Data     []byte
}

// IsTokenAccount reports whether the account is owned by the SPL token program.
func (a *AccountInfo) IsTokenAccount() bool {
	return a != nil && a.Owner == TokenProgramID
}

// Client is implemented by the RPC adapter in internal/client.
type Client interface {
	GetSignaturesForAddress(ctx context.Context, address string, opts SignaturesOptions) ([]SignatureInfo, error)
	// GetTransaction returns nil, nil when the node does not know the signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
	AccountFetcher
}

// AccountFetcher returns nil, nil when the account does not exist.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error)
}

// TokenAccount is the decoded part of an SPL token account the bot uses.
type TokenAccount struct {
	Mint   string
	Owner  string
	Amount uint64
}

// DecodeTokenAccount decodes the SPL token account layout.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return nil, fmt.Errorf("%w: data length %d", ErrNotTokenAccount, len(data))
	}

	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTokenAccount, err)
	}

	return &TokenAccount{
		Mint:   acc.Mint.String(),
		Owner:  acc.Owner.String(),
		Amount: acc.Amount,
	}, nil
}

// TokenBalanceOf returns the token amount held by info. Non-token or undecodable
// accounts read as zero, so they remain candidates for reclaim.
func TokenBalanceOf(info *AccountInfo) (uint64, error) {
	if !info.IsTokenAccount() {
		return 0, nil
	}
	acc, err := DecodeTokenAccount(info.Data)
	if err != nil {
		return 0, err
	}
	return acc.Amount, nil
}
