package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
	"github.com/ardanlabs/goldchain/foundation/metrics"
)

// MintBlock builds the next block from the best pool transactions, signs it
// with the minter key and commits it. Transactions that no longer validate
// are dropped from the pool, except those that only lack funds, which wait
// for a later block.
func (s *State) MintBlock() (block.Block, error) {
	if s.minter == nil {
		return block.Block{}, ErrNotMinter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil {
		return block.Block{}, ErrNotReady
	}

	head, err := s.snap.Head()
	if err != nil {
		return block.Block{}, err
	}

	timestamp := max(s.blockTime(), head.Timestamp)

	candidates := s.mempool.PickBest(int(s.genesis.TransPerBlock))

	changes := validate.NewChanges(s.params, s.snap)
	included := make([]tx.Tx, 0, len(candidates))

	var drop []signature.Digest
	for _, trx := range candidates {
		err := changes.Apply(trx, timestamp)
		switch {
		case err == nil:
			included = append(included, trx)

		case keep(err):
			s.evHandler("state: MintBlock: tx[%s]: deferred: %s", trx.ID(s.params.ChainID), err)

		case validate.IsRejection(err):
			s.evHandler("state: MintBlock: tx[%s]: dropped: %s", trx.ID(s.params.ChainID), err)
			drop = append(drop, trx.ID(s.params.ChainID))

		default:
			return block.Block{}, err
		}
	}
	s.mempool.Delete(drop...)

	b, err := block.NewChild(head, timestamp, included)
	if err != nil {
		return block.Block{}, err
	}

	if err := b.Sign(*s.minter); err != nil {
		return block.Block{}, err
	}

	// The block goes through the same checks a follower applies.
	effects, err := validate.Block(s.params, s.snap, b)
	if err != nil {
		return block.Block{}, fmt.Errorf("minted block: %w", err)
	}

	if err := s.commit(b, effects); err != nil {
		return block.Block{}, err
	}

	return b, nil
}

// ProcessBlock validates a block received from the minter and commits it.
// A block that is already committed is accepted again without effect.
func (s *State) ProcessBlock(b block.Block) error {
	s.evHandler("state: ProcessBlock: started: height[%d] hash[%s] txs[%d]", b.Header.Height, b.Hash(), len(b.Txs))

	s.mu.Lock()
	defer s.mu.Unlock()

	if height, ok := s.store.Height(); ok && b.Header.Height <= height {
		have, err := s.store.Header(b.Header.Height)
		if err != nil {
			return err
		}
		if have.Hash() == b.Hash() {
			s.evHandler("state: ProcessBlock: height[%d]: already committed", b.Header.Height)
			return nil
		}
	}

	var effects *validate.Changes
	var err error

	switch s.snap {
	case nil:
		if err := s.checkGenesis(b); err != nil {
			return err
		}
		effects, err = validate.Genesis(s.params, b)

	default:
		effects, err = validate.Block(s.params, s.snap, b)
	}

	if err != nil {
		var blkErr *validate.BlockError
		if errors.As(err, &blkErr) {
			metrics.BlocksRejected.WithLabelValues(blkErr.Reason.String()).Inc()
		}
		s.evHandler("state: ProcessBlock: height[%d]: rejected: %s", b.Header.Height, err)
		return err
	}

	return s.commit(b, effects)
}

// =============================================================================

// commit appends the block with its effects, removes its transactions from
// the pool, replays the pool and publishes the block to subscribers. The
// caller must hold the write lock.
func (s *State) commit(b block.Block, effects *validate.Changes) error {
	if err := s.store.Append(b, effects); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.BlocksRejected.WithLabelValues("storage_conflict").Inc()
		}
		return err
	}

	metrics.BlocksAppended.Inc()
	metrics.ChainHeight.Set(float64(b.Header.Height))

	s.mempool.Delete(effects.TxIDs()...)

	if err := s.resetPending(); err != nil {
		return err
	}

	if s.subs != nil {
		sent, dropped := s.subs.Publish(b)
		s.evHandler("state: commit: height[%d]: published: sent[%d] dropped[%d]", b.Header.Height, sent, dropped)
	}

	s.blockEvent(b)

	return nil
}

// blockTime returns the current time as a block timestamp.
func (s *State) blockTime() uint64 {
	return uint64(time.Now().Unix())
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(b block.Block) {
	ids := make([]signature.Digest, len(b.Txs))
	for i, trx := range b.Txs {
		ids[i] = trx.ID(s.params.ChainID)
	}

	ev := struct {
		Hash      signature.Digest   `json:"hash"`
		Height    uint64             `json:"height"`
		PrevHash  signature.Digest   `json:"prev_hash"`
		Timestamp uint64             `json:"timestamp"`
		Rewards   string             `json:"rewards"`
		Txs       []signature.Digest `json:"txs"`
	}{
		Hash:      b.Hash(),
		Height:    b.Header.Height,
		PrevHash:  b.Header.PrevHash,
		Timestamp: b.Header.Timestamp,
		Rewards:   b.Rewards.String(),
		Txs:       ids,
	}

	data, err := json.Marshal(ev)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler("viewer: block: %s", string(data))
}
