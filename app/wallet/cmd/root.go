// Package cmd contains the wallet app.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
	"github.com/ardanlabs/goldchain/foundation/ws"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	nodeURL     string
	genesisPath string
	timeout     time.Duration
)

const (
	keyExtension = ".ecdsa"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Simple wallet for the gold ledger",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Name of the private key file.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "url", "u", "ws://localhost:8080/v1/peer", "Peer url of the node.")
	rootCmd.PersistentFlags().StringVarP(&genesisPath, "genesis", "g", "zblock/genesis.json", "Path to the genesis file.")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Time allowed for a request.")
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, keyExtension) {
		accountName += keyExtension
	}
	return filepath.Join(accountPath, accountName)
}

func loadAccount() (signature.KeyPair, error) {
	return signature.LoadKeyPair(getPrivateKeyPath())
}

func loadGenesis() (genesis.Genesis, error) {
	return genesis.Load(genesisPath)
}

// dial connects a peer client to the node.
func dial(ctx context.Context) (*peer.Client, error) {
	conn, err := ws.Dial(ctx, nodeURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", nodeURL, err)
	}

	return peer.NewClient(conn, peer.ClientConfig{}), nil
}

// resolve accepts an address or the name of a key in the account path.
func resolve(s string) (signature.ScriptHash, error) {
	if addr, err := signature.ParseAddress(s); err == nil {
		return addr, nil
	}

	ns, err := nameservice.New(accountPath)
	if err != nil {
		return signature.ScriptHash{}, err
	}

	addr, ok := ns.Address(strings.TrimSuffix(s, keyExtension))
	if !ok {
		return signature.ScriptHash{}, fmt.Errorf("unknown address %q", s)
	}

	return addr, nil
}
