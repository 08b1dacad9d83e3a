package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
)

// Transaction prints the block that committed the transaction id.
func Transaction(args []string, store *storage.Store, ns *nameservice.NameService) error {
	if len(args) != 3 {
		return errors.New("usage: admin trans <id>")
	}

	id, err := signature.DigestFromHex(args[2])
	if err != nil {
		return err
	}

	height, err := store.TxHeight(id)
	if err != nil {
		return err
	}

	b, err := store.Block(height)
	if err != nil {
		return err
	}

	fmt.Printf("Height: %d  Hash: %s  Timestamp: %d\n\n", height, b.Hash(), b.Header.Timestamp)

	for _, trx := range b.Txs {
		for _, addr := range trx.Addresses() {
			fmt.Printf("Type: %-8s  Nonce: %d  Fee: %s  Address: %s (%s)\n", trx.Type(), trx.Nonce, trx.Fee, addr, ns.Lookup(addr))
		}

		if body, ok := trx.Body.(tx.Transfer); ok && body.Memo != "" {
			fmt.Printf("Memo: %s\n", body.Memo)
		}
	}

	return nil
}

// Blocks prints the headers of the blocks between two heights. Without
// bounds it prints the whole chain.
func Blocks(args []string, store *storage.Store) error {
	height, ok := store.Height()
	if !ok {
		fmt.Println("chain is empty")
		return nil
	}

	from, to := uint64(0), height
	if len(args) > 2 {
		n, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return err
		}
		from = n
	}
	if len(args) > 3 {
		n, err := strconv.ParseUint(args[3], 10, 64)
		if err != nil {
			return err
		}
		to = n
	}

	it, err := store.Range(from, to)
	if err != nil {
		return err
	}

	for !it.Done() {
		b, err := it.Next()
		if err != nil {
			return err
		}
		fmt.Printf("Height: %d  Hash: %s  Prev: %s  Txs: %d  Rewards: %s\n", b.Header.Height, b.Hash(), b.Header.PrevHash, len(b.Txs), b.Rewards)
	}

	return nil
}
