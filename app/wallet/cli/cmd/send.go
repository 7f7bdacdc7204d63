package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flsschain/flss/foundation/blockchain/database"
)

var (
	sendNonce uint64
	sendTo    string
	sendValue uint64
	sendToken string
	sendLock  time.Duration
)

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and submit a transfer",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := selectedKeyPath(cmd)
		if err != nil {
			return err
		}

		gossipURL, err := cmd.Flags().GetString("gossip-url")
		if err != nil {
			return err
		}

		return runSend(user, gossipURL)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Uint64VarP(&sendNonce, "nonce", "n", 0, "Nonce for the transaction, must exceed the sender's last committed nonce.")
	sendCmd.Flags().StringVarP(&sendTo, "to", "t", "", "Receiving account address.")
	sendCmd.Flags().Uint64VarP(&sendValue, "value", "v", 0, "Amount to send, in points.")
	sendCmd.Flags().StringVar(&sendToken, "token", "", "Token symbol to send. Empty means the native coin.")
	sendCmd.Flags().DurationVar(&sendLock, "lock", 0, "Lock the funds at the receiver until this duration after the transaction is signed.")
}

func runSend(user string, gossipURL string) error {
	if sendTo == "" {
		return errors.New("a receiving account is required")
	}
	if sendValue == 0 {
		return errors.New("a non-zero value is required")
	}

	privateKey, account, err := loadKey(user)
	if err != nil {
		return err
	}

	now := time.Now()

	tx := database.Tx{
		Sender:    database.Sender(account),
		Receiver:  database.AccountID(sendTo),
		Amount:    sendValue,
		Nonce:     sendNonce,
		Timestamp: now.UnixMilli(),
		Token:     sendToken,
	}
	if sendLock > 0 {
		tx.Unlock = now.Add(sendLock).UnixMilli()
	}

	if err := tx.Sign(privateKey); err != nil {
		return err
	}

	if err := submitTx(gossipURL, tx); err != nil {
		return err
	}

	fmt.Println("submitted:", tx.Signature)

	return nil
}
