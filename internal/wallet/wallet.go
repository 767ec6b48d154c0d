package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/sirupsen/logrus"
	bip39 "github.com/tyler-smith/go-bip39"

	"rent-reclaim-bot-go/pkg/utils"
)

var ErrNoCredential = errors.New("no operator signing credential configured")

// Submitter is the part of the RPC client the wallet needs to land a transaction
type Submitter interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendAndConfirmTransaction(ctx context.Context, transaction *solana.Transaction) (solana.Signature, error)
}

// Wallet holds the operator keypair and signs close-account transactions
type Wallet struct {
	account   types.Account
	submitter Submitter
	logger    *logrus.Logger
}

// WalletConfig contains wallet configuration. Exactly one secret source is used,
// checked in the order PrivateKey, KeypairPath, Mnemonic.
type WalletConfig struct {
	PrivateKey      string // base58 encoded 64 byte secret key
	KeypairPath     string // solana-keygen JSON file
	Mnemonic        string // BIP-39 phrase, first 32 bytes of the seed
	ExpectedAddress string // operator address the key must match
}

// LoadAccount resolves the configured secret into a keypair
func LoadAccount(cfg WalletConfig) (types.Account, error) {
	switch {
	case cfg.PrivateKey != "":
		if !utils.IsValidSolanaPrivateKey(cfg.PrivateKey) {
			return types.Account{}, fmt.Errorf("invalid private key: expected base58 encoded 64 bytes")
		}
		account, err := types.AccountFromBase58(cfg.PrivateKey)
		if err != nil {
			return types.Account{}, fmt.Errorf("invalid private key: %w", err)
		}
		return account, nil

	case cfg.KeypairPath != "":
		key, err := solana.PrivateKeyFromSolanaKeygenFile(cfg.KeypairPath)
		if err != nil {
			return types.Account{}, fmt.Errorf("failed to read keypair file %s: %w", cfg.KeypairPath, err)
		}
		account, err := types.AccountFromBytes(key)
		if err != nil {
			return types.Account{}, fmt.Errorf("invalid keypair file %s: %w", cfg.KeypairPath, err)
		}
		return account, nil

	case cfg.Mnemonic != "":
		mnemonic := strings.Join(strings.Fields(cfg.Mnemonic), " ")
		if !bip39.IsMnemonicValid(mnemonic) {
			return types.Account{}, fmt.Errorf("invalid mnemonic")
		}
		seed := bip39.NewSeed(mnemonic, "")
		account, err := types.AccountFromSeed(seed[:32])
		if err != nil {
			return types.Account{}, fmt.Errorf("failed to derive keypair from mnemonic: %w", err)
		}
		return account, nil
	}

	return types.Account{}, ErrNoCredential
}

// NewWallet creates a new wallet instance from the configured secret
func NewWallet(cfg WalletConfig, submitter Submitter, logger *logrus.Logger) (*Wallet, error) {
	account, err := LoadAccount(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ExpectedAddress != "" && account.PublicKey.ToBase58() != cfg.ExpectedAddress {
		return nil, fmt.Errorf("keypair public key %s does not match operator address %s",
			account.PublicKey.ToBase58(), cfg.ExpectedAddress)
	}

	wallet := &Wallet{
		account:   account,
		submitter: submitter,
		logger:    logger,
	}

	logger.WithField("public_key", wallet.GetPublicKeyString()).Info("Wallet initialized")

	return wallet, nil
}

// GetPublicKey returns the wallet's public key
func (w *Wallet) GetPublicKey() solana.PublicKey {
	return solana.PublicKey(w.account.PublicKey)
}

// GetPublicKeyString returns the wallet's public key as base58 string
func (w *Wallet) GetPublicKeyString() string {
	return w.account.PublicKey.ToBase58()
}

// BuildCloseTransaction builds and signs a close-account transaction with the
// wallet as fee payer and close authority
func (w *Wallet) BuildCloseTransaction(blockhash solana.Hash, account, recipient solana.PublicKey) (*solana.Transaction, error) {
	owner := w.GetPublicKey()

	closeInstruction := token.NewCloseAccountInstruction(
		account,              // Account to close
		recipient,            // Destination for lamports
		owner,                // Owner/authority
		[]solana.PublicKey{}, // Multisig signers (empty for single signer)
	).Build()

	transaction, err := solana.NewTransaction(
		[]solana.Instruction{closeInstruction},
		blockhash,
		solana.TransactionPayer(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	privateKey := solana.PrivateKey(w.account.PrivateKey)
	_, err = transaction.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if owner.Equals(key) {
			return &privateKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return transaction, nil
}

// CloseTokenAccount closes account, sends its lamports to recipient and waits for confirmation
func (w *Wallet) CloseTokenAccount(ctx context.Context, account, recipient string) (string, error) {
	accountKey, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return "", fmt.Errorf("invalid account address: %w", err)
	}
	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", fmt.Errorf("invalid recipient address: %w", err)
	}

	w.logger.WithFields(logrus.Fields{
		"account":   account,
		"recipient": recipient,
	}).Info("🗑️ Closing token account")

	blockhash, err := w.submitter.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	transaction, err := w.BuildCloseTransaction(blockhash, accountKey, recipientKey)
	if err != nil {
		return "", err
	}

	signature, err := w.submitter.SendAndConfirmTransaction(ctx, transaction)
	if err != nil {
		return "", fmt.Errorf("failed to send close transaction: %w", err)
	}

	w.logger.WithField("signature", signature.String()).Info("Transaction confirmed")
	return signature.String(), nil
}
