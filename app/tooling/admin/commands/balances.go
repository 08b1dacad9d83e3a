// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
)

// Balances prints the committed balances of the known accounts.
func Balances(args []string, store *storage.Store, ns *nameservice.NameService) error {
	var only string
	if len(args) == 3 {
		only = args[2]
	}

	head, err := store.Head()
	if err != nil {
		return err
	}

	snap, err := store.Snapshot()
	if err != nil {
		return err
	}
	defer snap.Release()

	supply, err := snap.TokenSupply()
	if err != nil {
		return err
	}

	fmt.Printf("Height: %d  Hash: %s  Supply: %s\n\n", head.Height, head.Hash(), supply)

	for addr, name := range ns.Copy() {
		if only != "" && only != name {
			continue
		}

		bal, err := snap.Balance(addr)
		if err != nil {
			return err
		}

		fmt.Printf("Name: %-8s  Address: %s  Balance: %s\n", name, addr, bal)
	}

	return nil
}
