// Package genesis maintains access to the genesis file and builds the
// genesis block it describes.
package genesis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// DefaultPath is where the node looks for the genesis file.
const DefaultPath = "zblock/genesis.json"

// expiryWindow is how long after the genesis date the genesis transactions
// expire.
const expiryWindow = 60

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time                            `json:"date"`
	ChainID       uint16                               `json:"chain_id"`        // The chain id represents an unique id for this running instance.
	TransPerBlock uint16                               `json:"trans_per_block"` // The maximum number of transactions that can be in a block.
	MinFee        asset.Asset                          `json:"min_fee"`         // Smallest fee a transfer may carry.
	Minter        signature.PublicKey                  `json:"minter"`          // Key that signs every block.
	Owner         Owner                                `json:"owner"`
	Balances      map[signature.ScriptHash]asset.Asset `json:"balances"`
}

// Owner describes the owner wallet as a threshold of keys.
type Owner struct {
	Keys      []signature.PublicKey `json:"keys"`
	Threshold uint8                 `json:"threshold"`
}

// Script returns the spending script of the owner wallet. A single key with
// a threshold of one uses the single signer script.
func (o Owner) Script() (script.Script, error) {
	if len(o.Keys) == 0 {
		return nil, errors.New("owner has no keys")
	}

	if len(o.Keys) == 1 && o.Threshold == 1 {
		return script.FromPublicKey(o.Keys[0]), nil
	}

	return script.MultiSig(o.Threshold, o.Keys...)
}

// Chain returns the network the genesis file describes.
func (g Genesis) Chain() tx.ChainID {
	return tx.ChainID(g.ChainID)
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Block constructs the genesis block: the owner transaction signed by the
// owner keys, then one mint per initial balance in address order. The block
// is signed by the minter, whose key must match the file.
func Block(g Genesis, minter signature.KeyPair, owners ...signature.KeyPair) (block.Block, error) {
	if minter.Public != g.Minter {
		return block.Block{}, fmt.Errorf("minter key %s does not match genesis minter %s", minter.Public, g.Minter)
	}

	ownerScript, err := g.Owner.Script()
	if err != nil {
		return block.Block{}, fmt.Errorf("owner script: %w", err)
	}

	timestamp := uint64(g.Date.Unix())
	expiry := timestamp + expiryWindow
	chain := g.Chain()

	ownerTx, err := tx.New(0, expiry, 0, tx.Owner{
		Minter: g.Minter,
		Wallet: ownerScript.Hash(),
		Script: ownerScript,
	})
	if err != nil {
		return block.Block{}, err
	}

	// Multisig evaluation walks the signatures in key order.
	var signers int
	for _, key := range g.Owner.Keys {
		for _, kp := range owners {
			if kp.Public != key {
				continue
			}
			if err := ownerTx.Sign(chain, kp); err != nil {
				return block.Block{}, fmt.Errorf("sign owner: %w", err)
			}
			signers++
		}
	}

	if signers < int(g.Owner.Threshold) {
		return block.Block{}, fmt.Errorf("owner needs %d signatures, have %d", g.Owner.Threshold, signers)
	}

	addrs := make([]signature.ScriptHash, 0, len(g.Balances))
	for addr := range g.Balances {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})

	txs := []tx.Tx{ownerTx}
	for i, addr := range addrs {
		mint, err := tx.New(uint32(i+1), expiry, 0, tx.Mint{
			To:     addr,
			Amount: g.Balances[addr],
		})
		if err != nil {
			return block.Block{}, err
		}
		txs = append(txs, mint)
	}

	b, err := block.NewGenesis(timestamp, txs)
	if err != nil {
		return block.Block{}, err
	}

	if err := b.Sign(minter); err != nil {
		return block.Block{}, fmt.Errorf("sign genesis: %w", err)
	}

	return b, nil
}
