// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/goldchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// ErrDuplicate is returned when a transaction with the same id is already
// pending.
var ErrDuplicate = errors.New("transaction already in mempool")

// entry keeps the arrival sequence next to the transaction.
type entry struct {
	seq uint64
	tx  tx.Tx
}

// Mempool represents a cache of pending transactions keyed by their
// transaction id.
type Mempool struct {
	chain    tx.ChainID
	pool     map[signature.Digest]entry
	seq      uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New(chain tx.ChainID) *Mempool {
	mp, _ := NewWithStrategy(chain, selector.StrategyFee)
	return mp
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(chain tx.ChainID, strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		chain:    chain,
		pool:     make(map[signature.Digest]entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the mempool. A transaction with an id that is
// already pending is rejected.
func (mp *Mempool) Upsert(trx tx.Tx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	id := trx.ID(mp.chain)
	if _, exists := mp.pool[id]; exists {
		return len(mp.pool), fmt.Errorf("%w: %s", ErrDuplicate, id)
	}

	mp.seq++
	mp.pool[id] = entry{seq: mp.seq, tx: trx}

	return len(mp.pool), nil
}

// Contains reports whether the transaction id is pending.
func (mp *Mempool) Contains(id signature.Digest) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[id]
	return exists
}

// Delete removes the transactions from the mempool.
func (mp *Mempool) Delete(ids ...signature.Digest) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, id := range ids {
		delete(mp.pool, id)
	}
}

// Expire removes every transaction that expired before now and returns how
// many were removed.
func (mp *Mempool) Expire(now uint64) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var n int
	for id, e := range mp.pool {
		if e.tx.Expiry < now {
			delete(mp.pool, id)
			n++
		}
	}

	return n
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[signature.Digest]entry)
}

// Copy returns a list of the current transactions in the pool in the order
// they arrived.
func (mp *Mempool) Copy() []tx.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.ordered()
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block.
func (mp *Mempool) PickBest(howMany int) []tx.Tx {
	mp.mu.RLock()
	txs := mp.ordered()
	mp.mu.RUnlock()

	return mp.selectFn(txs, howMany)
}

// =============================================================================

// ordered returns the pool in arrival order.
func (mp *Mempool) ordered() []tx.Tx {
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	txs := make([]tx.Tx, len(entries))
	for i, e := range entries {
		txs[i] = e.tx
	}

	return txs
}
