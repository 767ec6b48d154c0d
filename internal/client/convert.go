package client

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"rent-reclaim-bot-go/internal/ledger"
)

func convertTransaction(signature string, result *rpc.GetTransactionResult) (*ledger.Transaction, error) {
	tx := &ledger.Transaction{
		Signature: signature,
		Slot:      result.Slot,
		BlockTime: unixSeconds(result.BlockTime),
	}
	if result.Meta == nil {
		return tx, nil
	}
	tx.Failed = result.Meta.Err != nil

	var keys solana.PublicKeySlice
	if result.Transaction != nil {
		parsed, err := result.Transaction.GetTransaction()
		if err != nil {
			return nil, fmt.Errorf("failed to decode transaction %s: %w", signature, err)
		}
		keys = accountKeys(parsed.Message.AccountKeys, result.Meta.LoadedAddresses)
	}

	tx.PreTokenBalances = convertBalances(keys, result.Meta.PreTokenBalances)
	tx.PostTokenBalances = convertBalances(keys, result.Meta.PostTokenBalances)
	return tx, nil
}

// accountKeys orders keys the way token balance indexes address them:
// static keys, then lookup-table writable, then lookup-table readonly.
func accountKeys(static solana.PublicKeySlice, loaded rpc.LoadedAddresses) solana.PublicKeySlice {
	keys := make(solana.PublicKeySlice, 0, len(static)+len(loaded.Writable)+len(loaded.ReadOnly))
	keys = append(keys, static...)
	keys = append(keys, loaded.Writable...)
	keys = append(keys, loaded.ReadOnly...)
	return keys
}

func convertBalances(keys solana.PublicKeySlice, balances []rpc.TokenBalance) []ledger.TokenBalance {
	out := make([]ledger.TokenBalance, 0, len(balances))
	for _, b := range balances {
		tb := ledger.TokenBalance{AccountIndex: int(b.AccountIndex)}
		if !b.Mint.IsZero() {
			tb.Mint = b.Mint.String()
		}
		if b.Owner != nil && !b.Owner.IsZero() {
			tb.Owner = b.Owner.String()
		}
		if b.UiTokenAmount != nil {
			tb.Amount = b.UiTokenAmount.Amount
		}
		if int(b.AccountIndex) < len(keys) {
			tb.Account = keys[b.AccountIndex].String()
		}
		out = append(out, tb)
	}
	return out
}

func unixSeconds(t *solana.UnixTimeSeconds) *int64 {
	if t == nil {
		return nil
	}
	v := int64(*t)
	return &v
}
