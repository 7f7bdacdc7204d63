package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// accountCmd represents the account command.
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address for the selected account",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := selectedKeyPath(cmd)
		if err != nil {
			return err
		}

		_, account, err := loadKey(user)
		if err != nil {
			return err
		}

		fmt.Println(account)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
}
