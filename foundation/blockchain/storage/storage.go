// Package storage handles the durable block store. Blocks are appended to a
// single log file and indexed in leveldb by height, hash and transaction id,
// together with the account state the blocks produce.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"go.uber.org/multierr"
)

// Set of error variables for storage operations.
var (
	ErrConflict        = errors.New("storage conflict")
	ErrNotChainHead    = fmt.Errorf("%w: not chain head", ErrConflict)
	ErrHeightMismatch  = fmt.Errorf("%w: height mismatch", ErrConflict)
	ErrNotFound        = errors.New("not found")
	ErrEmpty           = errors.New("chain is empty")
	ErrCorrupt         = errors.New("storage corrupt")
	ErrReindexRequired = errors.New("index missing, reindex required")
	ErrReindexRejected = errors.New("reindex rejected an intact log record")
)

// File names inside the storage directory.
const (
	logName   = "blocks.log"
	indexName = "index"
)

// Effects is the state change produced by validating a block. It is
// committed atomically with the block.
type Effects interface {
	Balances() map[signature.ScriptHash]asset.Asset
	OwnerTx() (tx.Tx, bool)
	Supply() (asset.Asset, bool)
	Txs() map[signature.Digest]uint64
}

// EventHandler defines a function that is called when events occur in the
// processing of storage.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to open a store.
type Config struct {
	Dir       string
	CacheSize int
	EvHandler EventHandler
}

// =============================================================================

// Store manages the block log and the index. Appends are serialized, reads
// may proceed concurrently with each other and with an append.
type Store struct {
	dir       string
	evHandler EventHandler
	log       *blockLog
	db        *leveldb.DB
	cache     *lru.Cache

	writeMu sync.Mutex

	mu    sync.RWMutex
	head  block.Header
	empty bool
}

// Open opens the store in the configured directory, creating it if needed.
// A log tail that was written but never committed by the index is
// discarded.
func Open(cfg Config) (*Store, error) {
	s, err := open(cfg, false)
	if err != nil {
		return nil, err
	}

	if err := s.recover(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func open(cfg Config, freshIndex bool) (*Store, error) {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("storage dir: %w", err)
	}

	indexPath := filepath.Join(cfg.Dir, indexName)
	if freshIndex {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove index: %w", err)
		}
	}

	log, err := openLog(filepath.Join(cfg.Dir, logName))
	if err != nil {
		return nil, err
	}

	db, err := leveldb.OpenFile(indexPath, nil)
	if err != nil {
		log.close()
		return nil, fmt.Errorf("open index: %w", err)
	}

	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		log.close()
		db.Close()
		return nil, fmt.Errorf("block cache: %w", err)
	}

	s := Store{
		dir:       cfg.Dir,
		evHandler: ev,
		log:       log,
		db:        db,
		cache:     cache,
		empty:     true,
	}

	return &s, nil
}

// recover loads the committed head and truncates the log to it.
func (s *Store) recover() error {
	v, err := s.db.Get(keyHead, nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		if s.log.size > 0 {
			return ErrReindexRequired
		}
		s.evHandler("storage: recover: empty chain")
		return nil

	case err != nil:
		return fmt.Errorf("read head: %w", err)
	}

	hr, err := decodeHeadRecord(v)
	if err != nil {
		return err
	}

	switch {
	case s.log.size < hr.logEnd:
		return fmt.Errorf("%w: log size %d is behind committed end %d", ErrCorrupt, s.log.size, hr.logEnd)

	case s.log.size > hr.logEnd:
		s.evHandler("storage: recover: discarding uncommitted log tail: %d bytes", s.log.size-hr.logEnd)
		if err := s.log.truncate(hr.logEnd); err != nil {
			return err
		}
	}

	s.head = hr.header
	s.empty = false

	s.evHandler("storage: recover: head height[%d] hash[%s]", hr.header.Height, hr.header.Hash())

	return nil
}

// Close releases the log and the index.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return multierr.Combine(s.db.Close(), s.log.close())
}

// Dir returns the directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// =============================================================================

// Append commits the block as the new head. It fails with ErrNotChainHead
// when the block does not link to the head and with ErrHeightMismatch when
// its height is not the next height, without writing anything. On success
// the block and every index update are durable.
func (s *Store) Append(b block.Block, effects Effects) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkSuccessor(b.Header); err != nil {
		return err
	}

	before := s.log.size

	offset, length, err := s.log.append(b.Encode())
	if err != nil {
		return multierr.Append(err, s.log.truncate(before))
	}

	if err := s.commit(b, effects, location{offset: offset, length: length}); err != nil {
		return multierr.Append(err, s.log.truncate(before))
	}

	s.evHandler("storage: Append: height[%d] hash[%s] txs[%d]", b.Header.Height, b.Hash(), len(b.Txs))

	return nil
}

// checkSuccessor verifies the header is the unique legal successor of the
// head. The link is checked before the height.
func (s *Store) checkSuccessor(h block.Header) error {
	s.mu.RLock()
	head, empty := s.head, s.empty
	s.mu.RUnlock()

	var prevHash signature.Digest
	var height uint64
	if !empty {
		prevHash = head.Hash()
		height = head.Height + 1
	}

	if h.PrevHash != prevHash {
		return fmt.Errorf("%w: prev hash %s, head hash %s", ErrNotChainHead, h.PrevHash, prevHash)
	}

	if h.Height != height {
		return fmt.Errorf("%w: height %d, expected %d", ErrHeightMismatch, h.Height, height)
	}

	return nil
}

// commit writes every index update for the block in one synced batch and
// then publishes the new head.
func (s *Store) commit(b block.Block, effects Effects, loc location) error {
	hash := b.Hash()
	height := b.Header.Height

	batch := new(leveldb.Batch)
	batch.Put(heightKey(height), loc.encode())
	batch.Put(hashKey(hash), encodeI64(int64(height)))

	if effects != nil {
		for id, expiry := range effects.Txs() {
			batch.Put(txKey(id), txRecord{height: height, expiry: expiry}.encode())
		}

		for addr, bal := range effects.Balances() {
			batch.Put(balanceKey(addr), encodeI64(int64(bal)))
		}

		if owner, ok := effects.OwnerTx(); ok {
			batch.Put(keyOwner, owner.Encode())
		}

		if supply, ok := effects.Supply(); ok {
			batch.Put(keySupply, encodeI64(int64(supply)))
		}
	}

	batch.Put(keyHead, headRecord{header: b.Header, logEnd: loc.offset + int64(loc.length)}.encode())

	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	s.cache.Add(height, b)

	s.mu.Lock()
	s.head = b.Header
	s.empty = false
	s.mu.Unlock()

	return nil
}

// =============================================================================

// Head returns the header of the last committed block.
func (s *Store) Head() (block.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.empty {
		return block.Header{}, ErrEmpty
	}

	return s.head, nil
}

// Height returns the height of the last committed block and false when the
// chain is empty.
func (s *Store) Height() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.head.Height, !s.empty
}

// Block returns the committed block at the height.
func (s *Store) Block(height uint64) (block.Block, error) {
	if v, exists := s.cache.Get(height); exists {
		return v.(block.Block), nil
	}

	v, err := s.db.Get(heightKey(height), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return block.Block{}, fmt.Errorf("block %d: %w", height, ErrNotFound)
		}
		return block.Block{}, fmt.Errorf("block %d: %w", height, err)
	}

	loc, err := decodeLocation(v)
	if err != nil {
		return block.Block{}, err
	}

	data, err := s.log.read(loc.offset, loc.length)
	if err != nil {
		return block.Block{}, err
	}

	b, err := block.Decode(data)
	if err != nil {
		return block.Block{}, fmt.Errorf("%w: block %d: %w", ErrCorrupt, height, err)
	}

	s.cache.Add(height, b)

	return b, nil
}

// Header returns the header of the committed block at the height.
func (s *Store) Header(height uint64) (block.Header, error) {
	b, err := s.Block(height)
	if err != nil {
		return block.Header{}, err
	}

	return b.Header, nil
}

// BlockByHash returns the committed block with the header hash.
func (s *Store) BlockByHash(hash signature.Digest) (block.Block, error) {
	v, err := s.db.Get(hashKey(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return block.Block{}, fmt.Errorf("block %s: %w", hash, ErrNotFound)
		}
		return block.Block{}, fmt.Errorf("block %s: %w", hash, err)
	}

	height, err := decodeI64(v)
	if err != nil {
		return block.Block{}, err
	}

	return s.Block(uint64(height))
}

// TxHeight returns the height of the block that committed the transaction.
func (s *Store) TxHeight(id signature.Digest) (uint64, error) {
	v, err := s.db.Get(txKey(id), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, fmt.Errorf("tx %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("tx %s: %w", id, err)
	}

	rec, err := decodeTxRecord(v)
	if err != nil {
		return 0, err
	}

	return rec.height, nil
}

// Range returns a lazy iterator over the blocks from min to max inclusive.
// Both bounds must be committed heights.
func (s *Store) Range(min uint64, max uint64) (*Iterator, error) {
	height, ok := s.Height()
	if !ok || min > max || max > height {
		return nil, fmt.Errorf("range %d-%d: %w", min, max, ErrNotFound)
	}

	it := Iterator{
		store: s,
		next:  min,
		max:   max,
	}

	return &it, nil
}

// =============================================================================

// Iterator walks a range of committed blocks, reading one block at a time.
type Iterator struct {
	store *Store
	next  uint64
	max   uint64
	done  bool
}

// Next retrieves the next block in the range.
func (it *Iterator) Next() (block.Block, error) {
	if it.Done() {
		return block.Block{}, errors.New("end of range")
	}

	b, err := it.store.Block(it.next)
	if err != nil {
		it.done = true
		return block.Block{}, err
	}

	if it.next == it.max {
		it.done = true
	}
	it.next++

	return b, nil
}

// Done reports whether every block in the range was returned.
func (it *Iterator) Done() bool {
	return it.done
}
