package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flsschain/flss/foundation/blockchain/database"
)

type balanceResult struct {
	Account database.AccountID `json:"account"`
	Token   string             `json:"token"`
	Balance uint64             `json:"balance"`
}

var balToken string

// balanceCmd represents the balance command.
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the spendable balance of the selected account",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := selectedKeyPath(cmd)
		if err != nil {
			return err
		}

		nodeURL, err := cmd.Flags().GetString("node-url")
		if err != nil {
			return err
		}

		_, account, err := loadKey(user)
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/balance/%s", account)
		if balToken != "" {
			path = fmt.Sprintf("/balance/%s.%s", account, balToken)
		}

		var result balanceResult
		if err := queryNode(nodeURL, path, &result); err != nil {
			return err
		}

		fmt.Println("account:", result.Account)
		if result.Token != "" {
			fmt.Println("token:  ", result.Token)
		}
		fmt.Println("balance:", result.Balance)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balToken, "token", "t", "", "Token symbol to query. Empty means the native coin.")
}
