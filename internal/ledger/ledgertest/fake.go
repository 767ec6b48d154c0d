// Package ledgertest provides an in-memory ledger for tests.
package ledgertest

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"

	"rent-reclaim-bot-go/internal/ledger"
)

// Ledger is a scripted ledger.Client. Signatures are served newest first.
type Ledger struct {
	mu sync.Mutex

	Signatures   []ledger.SignatureInfo
	Transactions map[string]*ledger.Transaction
	Accounts     map[string]*ledger.AccountInfo

	SignaturesErr  error
	TransactionErr map[string]error
	AccountErr     map[string]error

	SignatureCalls []ledger.SignaturesOptions
	AccountCalls   []string
}

func New() *Ledger {
	return &Ledger{
		Transactions:   map[string]*ledger.Transaction{},
		Accounts:       map[string]*ledger.AccountInfo{},
		TransactionErr: map[string]error{},
		AccountErr:     map[string]error{},
	}
}

func (l *Ledger) GetSignaturesForAddress(_ context.Context, _ string, opts ledger.SignaturesOptions) ([]ledger.SignatureInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.SignatureCalls = append(l.SignatureCalls, opts)
	if l.SignaturesErr != nil {
		return nil, l.SignaturesErr
	}

	start := 0
	if opts.Before != "" {
		start = len(l.Signatures)
		for i, s := range l.Signatures {
			if s.Signature == opts.Before {
				start = i + 1
				break
			}
		}
	}

	var page []ledger.SignatureInfo
	for i := start; i < len(l.Signatures) && len(page) < opts.Limit; i++ {
		if opts.Until != "" && l.Signatures[i].Signature == opts.Until {
			break
		}
		page = append(page, l.Signatures[i])
	}
	return page, nil
}

func (l *Ledger) GetTransaction(_ context.Context, signature string) (*ledger.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.TransactionErr[signature]; err != nil {
		return nil, err
	}
	return l.Transactions[signature], nil
}

func (l *Ledger) GetAccountInfo(_ context.Context, address string) (*ledger.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.AccountCalls = append(l.AccountCalls, address)
	if err := l.AccountErr[address]; err != nil {
		return nil, err
	}
	return l.Accounts[address], nil
}

// SetTokenAccount registers an existing SPL token account.
func (l *Ledger) SetTokenAccount(address, mint, owner string, amount, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Accounts[address] = &ledger.AccountInfo{
		Address:  address,
		Lamports: lamports,
		Owner:    ledger.TokenProgramID,
		Data:     EncodeTokenAccount(mint, owner, amount),
	}
}

// EncodeTokenAccount lays out an initialized SPL token account.
func EncodeTokenAccount(mint, owner string, amount uint64) []byte {
	data := make([]byte, ledger.TokenAccountSize)
	m := solana.MustPublicKeyFromBase58(mint)
	o := solana.MustPublicKeyFromBase58(owner)
	copy(data[0:32], m[:])
	copy(data[32:64], o[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1 // initialized
	return data
}

// NewAddress returns a deterministic valid public key for index i.
func NewAddress(i int) string {
	var key solana.PublicKey
	binary.LittleEndian.PutUint64(key[:8], uint64(i)+1)
	key[31] = 0x42
	return key.String()
}

// NewSignature returns a deterministic valid signature for index i.
func NewSignature(i int) string {
	var sig solana.Signature
	binary.LittleEndian.PutUint64(sig[:8], uint64(i)+1)
	sig[63] = 0x17
	return sig.String()
}
