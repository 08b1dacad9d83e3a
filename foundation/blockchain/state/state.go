// Package state is the core API for the ledger and ties validation, storage,
// the mempool and the subscribed peers together.
package state

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/goldchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/goldchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
	"github.com/ardanlabs/goldchain/foundation/metrics"
)

// Set of error variables for node operations.
var (
	ErrNotReady     = errors.New("chain has no genesis block")
	ErrNotMinter    = errors.New("node is not the minter")
	ErrWrongGenesis = errors.New("genesis block does not match the genesis file")
)

// EventHandler defines a function that is called when events
// occur in the processing of the ledger.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing the background workflows of the node.
type Worker interface {
	Shutdown()
}

// =============================================================================

// Config represents the configuration required to start the node.
type Config struct {
	Genesis        genesis.Genesis
	Storage        storage.Config
	Minter         *signature.KeyPair
	OwnerKeys      []signature.KeyPair
	SelectStrategy string
	Subscribers    *peer.Set
	Reindex        bool
	EvHandler      EventHandler
}

// State manages the ledger. Submissions and appends are serialized. Reads
// see the last committed block and the pending pool.
type State struct {
	genesis   genesis.Genesis
	params    validate.Params
	minter    *signature.KeyPair
	evHandler EventHandler

	storeCfg storage.Config
	mempool  *mempool.Mempool
	subs     *peer.Set

	mu      sync.RWMutex
	store   *storage.Store
	snap    *storage.Snapshot
	pending *validate.Changes

	Worker Worker
}

// New opens the chain in the configured directory. A minter with an empty
// chain builds and commits the genesis block. A follower with an empty chain
// waits for the genesis block to arrive from the minter.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Minter != nil && cfg.Minter.Public != cfg.Genesis.Minter {
		return nil, fmt.Errorf("%w: key %s", ErrNotMinter, cfg.Minter.Public)
	}

	if cfg.SelectStrategy == "" {
		cfg.SelectStrategy = selector.StrategyFee
	}

	mp, err := mempool.NewWithStrategy(cfg.Genesis.Chain(), cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	params := validate.Params{
		ChainID: cfg.Genesis.Chain(),
		MinFee:  cfg.Genesis.MinFee,
	}
	if params.MinFee == 0 {
		params.MinFee = validate.DefaultMinFee
	}

	cfg.Storage.EvHandler = storage.EventHandler(ev)

	s := State{
		genesis:   cfg.Genesis,
		params:    params,
		minter:    cfg.Minter,
		evHandler: ev,
		storeCfg:  cfg.Storage,
		mempool:   mp,
		subs:      cfg.Subscribers,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	switch {
	case cfg.Reindex:
		s.store, err = storage.Reindex(cfg.Storage, s.replay)

	default:
		s.store, err = storage.Open(cfg.Storage)
		if errors.Is(err, storage.ErrReindexRequired) {
			ev("state: New: index missing: reindexing")
			s.store, err = storage.Reindex(cfg.Storage, s.replay)
		}
	}
	if err != nil {
		return nil, err
	}

	if _, ok := s.store.Height(); !ok && s.minter != nil {
		if err := s.createGenesis(cfg.OwnerKeys); err != nil {
			s.store.Close()
			return nil, err
		}
	}

	if err := s.resetPending(); err != nil {
		s.store.Close()
		return nil, err
	}

	if height, ok := s.store.Height(); ok {
		metrics.ChainHeight.Set(float64(height))
	}

	return &s, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap != nil {
		s.snap.Release()
		s.snap = nil
	}

	return s.store.Close()
}

// Reindex closes the store and rebuilds its index by replaying the block
// log. The pending pool is revalidated against the rebuilt state.
func (s *State) Reindex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: Reindex: started")

	if s.snap != nil {
		s.snap.Release()
		s.snap = nil
	}
	s.pending = nil

	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	store, err := storage.Reindex(s.storeCfg, s.replay)
	if err != nil {
		return err
	}
	s.store = store

	if err := s.resetPending(); err != nil {
		return err
	}

	height, _ := s.store.Height()
	metrics.ChainHeight.Set(float64(height))
	s.evHandler("state: Reindex: completed: height[%d]", height)

	return nil
}

// IsMinter reports whether this node signs blocks.
func (s *State) IsMinter() bool {
	return s.minter != nil
}

// Genesis returns the genesis file the node runs with.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// =============================================================================

// replay validates a block read back from the log during a reindex.
func (s *State) replay(b block.Block, view *storage.Snapshot) (storage.Effects, error) {
	if b.Header.Height == 0 {
		if err := s.checkGenesis(b); err != nil {
			return nil, err
		}

		changes, err := validate.Genesis(s.params, b)
		if err != nil {
			return nil, err
		}
		return changes, nil
	}

	changes, err := validate.Block(s.params, view, b)
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// createGenesis builds, validates and commits the genesis block.
func (s *State) createGenesis(owners []signature.KeyPair) error {
	s.evHandler("state: createGenesis: building genesis block: date[%s]", s.genesis.Date)

	b, err := genesis.Block(s.genesis, *s.minter, owners...)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	changes, err := validate.Genesis(s.params, b)
	if err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	if err := s.store.Append(b, changes); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}

	s.evHandler("state: createGenesis: committed: hash[%s] txs[%d]", b.Hash(), len(b.Txs))

	return nil
}

// checkGenesis verifies a genesis block received from elsewhere describes
// the chain in the genesis file.
func (s *State) checkGenesis(b block.Block) error {
	if len(b.Txs) == 0 {
		return ErrWrongGenesis
	}

	owner, ok := b.Txs[0].Body.(tx.Owner)
	if !ok {
		return fmt.Errorf("%w: first tx is %s", ErrWrongGenesis, b.Txs[0].Type())
	}

	if owner.Minter != s.genesis.Minter {
		return fmt.Errorf("%w: minter %s", ErrWrongGenesis, owner.Minter)
	}

	ownerScript, err := s.genesis.Owner.Script()
	if err != nil {
		return fmt.Errorf("owner script: %w", err)
	}

	if owner.Wallet != ownerScript.Hash() {
		return fmt.Errorf("%w: owner wallet %s", ErrWrongGenesis, owner.Wallet)
	}

	if b.Header.Timestamp != uint64(s.genesis.Date.Unix()) {
		return fmt.Errorf("%w: timestamp %d", ErrWrongGenesis, b.Header.Timestamp)
	}

	return nil
}

// resetPending replaces the snapshot with the committed state and replays
// the pool on top of it. Transactions that no longer apply are dropped
// unless they only lack funds. The caller must hold the write lock.
func (s *State) resetPending() error {
	if _, ok := s.store.Height(); !ok {
		return nil
	}

	snap, err := s.store.Snapshot()
	if err != nil {
		return err
	}

	if s.snap != nil {
		s.snap.Release()
	}
	s.snap = snap
	s.pending = validate.NewChanges(s.params, snap)

	now := s.blockTime()

	var drop []signature.Digest
	for _, trx := range s.mempool.Copy() {
		if err := s.pending.Apply(trx, now); err != nil {
			if keep(err) {
				continue
			}
			id := trx.ID(s.params.ChainID)
			s.evHandler("state: resetPending: dropping tx[%s]: %s", id, err)
			drop = append(drop, id)
		}
	}
	s.mempool.Delete(drop...)

	metrics.MempoolSize.Set(float64(s.mempool.Count()))

	return nil
}

// keep reports whether a pool transaction that failed to apply stays in the
// pool for a later block.
func keep(err error) bool {
	txErr, ok := validate.AsTxError(err)
	return ok && txErr.Reason == validate.ReasonInsufficientBalance
}
