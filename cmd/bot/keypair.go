package main

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	"rent-reclaim-bot-go/internal/wallet"
)

var (
	keypairMnemonic string
	keypairPath     string
	showSecret      bool
)

// keypairCmd derives the operator address from a credential so it can be checked against KORA_OPERATOR_ADDRESS
var keypairCmd = &cobra.Command{
	Use:   "keypair",
	Short: "Print the public key derived from a mnemonic or keypair file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if keypairMnemonic == "" && keypairPath == "" {
			return fmt.Errorf("one of --mnemonic or --keypair-path is required")
		}

		account, err := wallet.LoadAccount(wallet.WalletConfig{
			Mnemonic:    keypairMnemonic,
			KeypairPath: keypairPath,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Public key: %s\n", account.PublicKey.ToBase58())
		if showSecret {
			// 64 bytes: seed followed by public key, the layout KORA_OPERATOR_KEYPAIR expects
			fmt.Fprintf(out, "Base58 private key: %s\n", base58.Encode(account.PrivateKey))
		}
		return nil
	},
}

func init() {
	keypairCmd.Flags().StringVar(&keypairMnemonic, "mnemonic", "", "BIP39 seed phrase")
	keypairCmd.Flags().StringVar(&keypairPath, "keypair-path", "", "solana-keygen JSON keypair file")
	keypairCmd.Flags().BoolVar(&showSecret, "show-secret", false, "Also print the base58 encoded secret key")

	rootCmd.AddCommand(keypairCmd)
}
