package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/genesis"
)

var (
	mintNonce   uint64
	mintToken   string
	mintAirdrop uint64
	mintReward  uint64
)

// mintCmd represents the mint command.
var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Sign and submit a token mint",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := selectedKeyPath(cmd)
		if err != nil {
			return err
		}

		nodeURL, err := cmd.Flags().GetString("node-url")
		if err != nil {
			return err
		}

		gossipURL, err := cmd.Flags().GetString("gossip-url")
		if err != nil {
			return err
		}

		return runMint(user, nodeURL, gossipURL)
	},
}

func init() {
	rootCmd.AddCommand(mintCmd)
	mintCmd.Flags().Uint64VarP(&mintNonce, "nonce", "n", 0, "Nonce for the transaction, must exceed the sender's last committed nonce.")
	mintCmd.Flags().StringVarP(&mintToken, "token", "t", "", "Symbol of the token to mint, 1-19 uppercase letters.")
	mintCmd.Flags().Uint64VarP(&mintAirdrop, "airdrop", "d", 0, "One-time airdrop paid to the minter, in token points.")
	mintCmd.Flags().Uint64VarP(&mintReward, "mining-reward", "r", 0, "Per-block mining reward that makes the token minable.")
}

func runMint(user string, nodeURL string, gossipURL string) error {
	if !database.ValidTokenName(mintToken) {
		return errors.New("token symbol must be 1-19 uppercase letters and not the native coin")
	}

	privateKey, account, err := loadKey(user)
	if err != nil {
		return err
	}

	var gen genesis.Genesis
	if err := queryNode(nodeURL, "/genesis", &gen); err != nil {
		return err
	}

	var fee struct {
		MintFee uint64 `json:"mint_fee"`
	}
	if err := queryNode(nodeURL, "/mint-fee", &fee); err != nil {
		return err
	}

	tx := database.Tx{
		Sender:    database.Sender(account),
		Receiver:  database.AccountID(gen.DevWallet),
		Amount:    fee.MintFee,
		Nonce:     mintNonce,
		Timestamp: time.Now().UnixMilli(),
		Mint: &database.Mint{
			Token:        mintToken,
			Airdrop:      mintAirdrop,
			MiningReward: mintReward,
		},
	}

	if err := tx.Sign(privateKey); err != nil {
		return err
	}

	if err := submitTx(gossipURL, tx); err != nil {
		return err
	}

	fmt.Printf("submitted mint of %s for %d points: %s\n", mintToken, fee.MintFee, tx.Signature)

	return nil
}
