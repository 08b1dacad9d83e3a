package storage

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
	"github.com/syndtr/goleveldb/leveldb"
)

// Snapshot is a consistent read only view of the committed chain state. It
// never observes a partially applied block. Release must be called when the
// snapshot is no longer needed.
type Snapshot struct {
	snap *leveldb.Snapshot
}

// Snapshot captures the current committed state.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap, err := s.db.GetSnapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	return &Snapshot{snap: snap}, nil
}

// Release frees the snapshot.
func (sn *Snapshot) Release() {
	sn.snap.Release()
}

// Head returns the header of the last block in the snapshot.
func (sn *Snapshot) Head() (block.Header, error) {
	v, err := sn.snap.Get(keyHead, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return block.Header{}, ErrEmpty
		}
		return block.Header{}, fmt.Errorf("read head: %w", err)
	}

	hr, err := decodeHeadRecord(v)
	if err != nil {
		return block.Header{}, err
	}

	return hr.header, nil
}

// Owner returns the current owner transaction.
func (sn *Snapshot) Owner() (tx.Tx, error) {
	v, err := sn.snap.Get(keyOwner, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return tx.Tx{}, validate.ErrNoOwner
		}
		return tx.Tx{}, fmt.Errorf("read owner: %w", err)
	}

	owner, err := tx.Decode(v)
	if err != nil {
		return tx.Tx{}, fmt.Errorf("%w: owner: %w", ErrCorrupt, err)
	}

	return owner, nil
}

// Balance returns the balance of the address. Unknown addresses hold zero.
func (sn *Snapshot) Balance(addr signature.ScriptHash) (asset.Asset, error) {
	v, err := sn.snap.Get(balanceKey(addr), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read balance: %w", err)
	}

	bal, err := decodeI64(v)
	if err != nil {
		return 0, err
	}

	return asset.New(bal), nil
}

// TokenSupply returns the total issued supply.
func (sn *Snapshot) TokenSupply() (asset.Asset, error) {
	v, err := sn.snap.Get(keySupply, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read supply: %w", err)
	}

	supply, err := decodeI64(v)
	if err != nil {
		return 0, err
	}

	return asset.New(supply), nil
}

// HasTx reports whether the transaction id was committed.
func (sn *Snapshot) HasTx(id signature.Digest) (bool, error) {
	ok, err := sn.snap.Has(txKey(id), nil)
	if err != nil {
		return false, fmt.Errorf("read tx: %w", err)
	}

	return ok, nil
}
