package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bip39 "github.com/tyler-smith/go-bip39"

	"rent-reclaim-bot-go/internal/ledger/ledgertest"
)

type fakeSubmitter struct {
	blockhash solana.Hash
	sendErr   error
	sent      []*solana.Transaction
}

func (f *fakeSubmitter) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	return f.blockhash, nil
}

func (f *fakeSubmitter) SendAndConfirmTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sent = append(f.sent, tx)
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	return tx.Signatures[0], nil
}

func TestLoadAccount_Base58(t *testing.T) {
	account := types.NewAccount()

	loaded, err := LoadAccount(WalletConfig{PrivateKey: base58.Encode(account.PrivateKey)})
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey.ToBase58(), loaded.PublicKey.ToBase58())

	_, err = LoadAccount(WalletConfig{PrivateKey: "short"})
	require.Error(t, err)
}

func TestLoadAccount_KeygenFile(t *testing.T) {
	account := types.NewAccount()
	raw := make([]int, len(account.PrivateKey))
	for i, b := range account.PrivateKey {
		raw[i] = int(b)
	}
	data, err := json.Marshal(raw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := LoadAccount(WalletConfig{KeypairPath: path})
	require.NoError(t, err)
	assert.Equal(t, account.PublicKey.ToBase58(), loaded.PublicKey.ToBase58())
}

func TestLoadAccount_Mnemonic(t *testing.T) {
	entropy, err := bip39.NewEntropy(128)
	require.NoError(t, err)
	mnemonic, err := bip39.NewMnemonic(entropy)
	require.NoError(t, err)

	first, err := LoadAccount(WalletConfig{Mnemonic: mnemonic})
	require.NoError(t, err)
	second, err := LoadAccount(WalletConfig{Mnemonic: "  " + mnemonic + "\n"})
	require.NoError(t, err)
	assert.Equal(t, first.PublicKey.ToBase58(), second.PublicKey.ToBase58())

	_, err = LoadAccount(WalletConfig{Mnemonic: "not a real phrase"})
	require.Error(t, err)
}

func TestLoadAccount_NoCredential(t *testing.T) {
	_, err := LoadAccount(WalletConfig{})
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestNewWallet_AddressMismatch(t *testing.T) {
	log, _ := test.NewNullLogger()
	account := types.NewAccount()

	_, err := NewWallet(WalletConfig{
		PrivateKey:      base58.Encode(account.PrivateKey),
		ExpectedAddress: ledgertest.NewAddress(1),
	}, &fakeSubmitter{}, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestWallet_CloseTokenAccount(t *testing.T) {
	log, _ := test.NewNullLogger()
	account := types.NewAccount()
	submitter := &fakeSubmitter{blockhash: solana.Hash{1, 2, 3}}

	w, err := NewWallet(WalletConfig{
		PrivateKey:      base58.Encode(account.PrivateKey),
		ExpectedAddress: account.PublicKey.ToBase58(),
	}, submitter, log)
	require.NoError(t, err)

	target := ledgertest.NewAddress(7)
	sig, err := w.CloseTokenAccount(context.Background(), target, w.GetPublicKeyString())
	require.NoError(t, err)
	require.Len(t, submitter.sent, 1)

	tx := submitter.sent[0]
	assert.Equal(t, sig, tx.Signatures[0].String())
	assert.Equal(t, solana.Hash{1, 2, 3}, tx.Message.RecentBlockhash)
	require.NoError(t, tx.VerifySignatures())

	require.Len(t, tx.Message.Instructions, 1)
	program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.True(t, program.Equals(solana.TokenProgramID))

	accounts, err := tx.Message.Instructions[0].ResolveInstructionAccounts(&tx.Message)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, target, accounts[0].PublicKey.String())
	assert.Equal(t, w.GetPublicKeyString(), accounts[1].PublicKey.String())
	assert.Equal(t, w.GetPublicKeyString(), accounts[2].PublicKey.String())
}

func TestWallet_CloseTokenAccount_SendFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	account := types.NewAccount()
	submitter := &fakeSubmitter{sendErr: errors.New("blockhash not found")}

	w, err := NewWallet(WalletConfig{PrivateKey: base58.Encode(account.PrivateKey)}, submitter, log)
	require.NoError(t, err)

	_, err = w.CloseTokenAccount(context.Background(), ledgertest.NewAddress(7), w.GetPublicKeyString())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blockhash not found")
}
