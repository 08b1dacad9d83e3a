package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/wire"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// Height returns the height of the head and false when the chain is empty.
func (s *State) Height() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.store.Height()
}

// Head returns the header of the last committed block.
func (s *State) Head() (block.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	head, err := s.store.Head()
	if errors.Is(err, storage.ErrEmpty) {
		return block.Header{}, ErrNotReady
	}
	return head, err
}

// Properties implements the peer.Handler interface.
func (s *State) Properties() (wire.Properties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap == nil {
		return wire.Properties{}, ErrNotReady
	}

	head, err := s.snap.Head()
	if err != nil {
		return wire.Properties{}, err
	}

	owner, err := s.snap.Owner()
	if err != nil {
		return wire.Properties{}, err
	}

	supply, err := s.snap.TokenSupply()
	if err != nil {
		return wire.Properties{}, err
	}

	props := wire.Properties{
		Height:      head.Height,
		Owner:       owner,
		TokenSupply: supply,
		NetworkFee:  s.params.MinFee,
	}

	return props, nil
}

// AddressInfo implements the peer.Handler interface. The balance includes
// the effects of the pool.
func (s *State) AddressInfo(addr signature.ScriptHash) (wire.AddressInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.pending == nil {
		return wire.AddressInfo{}, ErrNotReady
	}

	bal, err := s.pending.Balance(addr)
	if err != nil {
		return wire.AddressInfo{}, err
	}

	info := wire.AddressInfo{
		Address:    addr,
		Balance:    bal,
		NetworkFee: s.params.MinFee,
	}

	return info, nil
}

// Block implements the peer.Handler interface.
func (s *State) Block(height uint64) (block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := s.store.Block(height)
	if errors.Is(err, storage.ErrNotFound) {
		return block.Block{}, fmt.Errorf("%w: %w", peer.ErrInvalidHeight, err)
	}
	return b, err
}

// BlockByHash returns the committed block with the hash.
func (s *State) BlockByHash(hash signature.Digest) (block.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.store.BlockByHash(hash)
}

// TxHeight returns the height of the block that committed the transaction.
func (s *State) TxHeight(id signature.Digest) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.store.TxHeight(id)
}

// Range implements the peer.Handler interface. The iterator reads one block
// at a time as the caller asks for it.
func (s *State) Range(min uint64, max uint64) (peer.BlockIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, err := s.store.Range(min, max)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", peer.ErrInvalidHeight, err)
	}
	if err != nil {
		return nil, err
	}
	return it, nil
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) ([]block.Block, error) {
	height, ok := s.Height()
	if !ok {
		return nil, ErrNotReady
	}

	if from == QueryLatest {
		from = height
		to = from
	}
	if to == QueryLatest || to > height {
		to = height
	}

	it, err := s.Range(from, to)
	if err != nil {
		return nil, err
	}

	var out []block.Block
	for !it.Done() {
		b, err := it.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}

	return out, nil
}

// QueryBlocksByAddress returns the blocks with a transaction that touches
// the address.
func (s *State) QueryBlocksByAddress(addr signature.ScriptHash) ([]block.Block, error) {
	height, ok := s.Height()
	if !ok {
		return nil, ErrNotReady
	}

	filter, err := block.NewFilter(addr)
	if err != nil {
		return nil, err
	}

	it, err := s.Range(0, height)
	if err != nil {
		return nil, err
	}

	var out []block.Block
	for !it.Done() {
		b, err := it.Next()
		if err != nil {
			return nil, err
		}

		if filter.Matches(b) {
			out = append(out, b)
		}
	}

	return out, nil
}
