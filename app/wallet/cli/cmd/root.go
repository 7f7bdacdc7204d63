// Package cmd contains the wallet commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/flsschain/flss/foundation/blockchain/database"
	"github.com/flsschain/flss/foundation/blockchain/gossip"
	"github.com/flsschain/flss/foundation/blockchain/signature"
)

const keyExt = ".ecdsa"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "flss chain wallet",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringP("account", "a", "private.ecdsa", "The account to use.")
	rootCmd.PersistentFlags().StringP("node-url", "u", "http://localhost:8080", "Url of the node's read API.")
	rootCmd.PersistentFlags().StringP("gossip-url", "g", "ws://localhost:9080", "Url of the node's gossip endpoint.")
}

func keyPath(acctName, path string) string {
	if !strings.HasSuffix(acctName, keyExt) {
		acctName += keyExt
	}

	return filepath.Join(path, acctName)
}

// selectedKeyPath resolves the key file from the persistent flags.
func selectedKeyPath(cmd *cobra.Command) (string, error) {
	acctName, err := cmd.Flags().GetString("account")
	if err != nil {
		return "", err
	}

	path, err := cmd.Flags().GetString("account-path")
	if err != nil {
		return "", err
	}

	return keyPath(acctName, path), nil
}

// loadKey reads a key file and returns the private key with the account
// address derived from it.
func loadKey(user string) (*secp256k1.PrivateKey, database.AccountID, error) {
	ecdsaKey, err := crypto.LoadECDSA(user)
	if err != nil {
		return nil, "", fmt.Errorf("load key: %w", err)
	}

	privateKey := secp256k1.PrivKeyFromBytes(crypto.FromECDSA(ecdsaKey))
	account := database.AccountID(signature.PublicKeyString(privateKey.PubKey()))

	return privateKey, account, nil
}

// submitTx delivers a signed transaction to the node over its gossip
// endpoint.
func submitTx(gossipURL string, tx database.Tx) error {
	ws, _, err := websocket.DefaultDialer.Dial(gossipURL, nil)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}
	defer ws.Close()

	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	return ws.WriteJSON(gossip.Envelope{Event: gossip.EventTx, Data: data})
}

// queryNode performs a GET against the node's read API and decodes the
// JSON response into the specified value.
func queryNode(nodeURL string, path string, v any) error {
	resp, err := http.Get(nodeURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
