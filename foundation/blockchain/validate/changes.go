package validate

import (
	"errors"
	"fmt"
	"maps"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// ErrNoOwner is returned by a View that has no committed owner, which is
// only the case before genesis.
var ErrNoOwner = errors.New("no owner")

// View is the read only chain state validation decides against.
type View interface {
	Head() (block.Header, error)
	Owner() (tx.Tx, error)
	Balance(addr signature.ScriptHash) (asset.Asset, error)
	TokenSupply() (asset.Asset, error)
	HasTx(id signature.Digest) (bool, error)
}

// Params carries the chain constants validation depends on.
type Params struct {
	ChainID tx.ChainID
	MinFee  asset.Asset
}

// =============================================================================

// Changes is an in memory overlay of the effects of validated transactions
// on top of a View. A nil View represents the empty chain before genesis.
// Changes is not safe for concurrent use.
type Changes struct {
	params   Params
	view     View
	balances map[signature.ScriptHash]asset.Asset
	owner    *tx.Tx
	supply   *asset.Asset
	txs      map[signature.Digest]uint64
	order    []signature.Digest
	genesis  bool
}

// NewChanges constructs an empty overlay over the view.
func NewChanges(params Params, view View) *Changes {
	return &Changes{
		params:   params,
		view:     view,
		balances: make(map[signature.ScriptHash]asset.Asset),
		txs:      make(map[signature.Digest]uint64),
	}
}

// Clone returns an independent copy of the overlay over the same view.
func (c *Changes) Clone() *Changes {
	cc := Changes{
		params:   c.params,
		view:     c.view,
		balances: maps.Clone(c.balances),
		txs:      maps.Clone(c.txs),
		order:    append([]signature.Digest(nil), c.order...),
		genesis:  c.genesis,
	}

	if c.owner != nil {
		owner := *c.owner
		cc.owner = &owner
	}

	if c.supply != nil {
		supply := *c.supply
		cc.supply = &supply
	}

	return &cc
}

// Params returns the chain constants of the overlay.
func (c *Changes) Params() Params {
	return c.params
}

// Balance returns the balance of the address with the overlay applied.
func (c *Changes) Balance(addr signature.ScriptHash) (asset.Asset, error) {
	if v, exists := c.balances[addr]; exists {
		return v, nil
	}

	if c.view == nil {
		return 0, nil
	}

	return c.view.Balance(addr)
}

// Owner returns the owner transaction with the overlay applied.
func (c *Changes) Owner() (tx.Tx, error) {
	if c.owner != nil {
		return *c.owner, nil
	}

	if c.view == nil {
		return tx.Tx{}, ErrNoOwner
	}

	return c.view.Owner()
}

// TokenSupply returns the issued supply with the overlay applied.
func (c *Changes) TokenSupply() (asset.Asset, error) {
	if c.supply != nil {
		return *c.supply, nil
	}

	if c.view == nil {
		return 0, nil
	}

	return c.view.TokenSupply()
}

// HasTx reports whether the id was committed or recorded in the overlay.
func (c *Changes) HasTx(id signature.Digest) (bool, error) {
	if _, exists := c.txs[id]; exists {
		return true, nil
	}

	if c.view == nil {
		return false, nil
	}

	return c.view.HasTx(id)
}

// Balances returns the balances the overlay changed.
func (c *Changes) Balances() map[signature.ScriptHash]asset.Asset {
	return maps.Clone(c.balances)
}

// OwnerTx returns the new owner transaction if the overlay changed it.
func (c *Changes) OwnerTx() (tx.Tx, bool) {
	if c.owner == nil {
		return tx.Tx{}, false
	}
	return *c.owner, true
}

// Supply returns the new supply if the overlay changed it.
func (c *Changes) Supply() (asset.Asset, bool) {
	if c.supply == nil {
		return 0, false
	}
	return *c.supply, true
}

// Txs returns the ids recorded by the overlay with their expiry.
func (c *Changes) Txs() map[signature.Digest]uint64 {
	return maps.Clone(c.txs)
}

// TxIDs returns the ids recorded by the overlay in the order applied.
func (c *Changes) TxIDs() []signature.Digest {
	return append([]signature.Digest(nil), c.order...)
}

// =============================================================================

// effect is the pending result of one transaction, committed only once every
// check passed.
type effect struct {
	balances map[signature.ScriptHash]asset.Asset
	owner    *tx.Tx
	supply   *asset.Asset
}

func (c *Changes) commit(id signature.Digest, expiry uint64, e effect) {
	maps.Copy(c.balances, e.balances)

	if e.owner != nil {
		c.owner = e.owner
	}
	if e.supply != nil {
		c.supply = e.supply
	}

	c.txs[id] = expiry
	c.order = append(c.order, id)
}

// credit adds amount to the address balance.
func (c *Changes) credit(addr signature.ScriptHash, amount asset.Asset) error {
	bal, err := c.Balance(addr)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	v, err := bal.Add(amount)
	if err != nil {
		return err
	}
	c.balances[addr] = v

	return nil
}
