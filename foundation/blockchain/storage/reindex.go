package storage

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
)

// ApplyFunc validates a block read back from the log against the state the
// index holds so far and returns its effects.
type ApplyFunc func(b block.Block, view *Snapshot) (Effects, error)

// Reindex discards the index in the configured directory and rebuilds it by
// replaying every record of the block log through apply. An incomplete or
// corrupt tail is truncated. A record that is intact but cannot be decoded,
// does not extend the chain, or is rejected by apply fails the reindex with
// ErrReindexRejected and leaves the log as it is.
func Reindex(cfg Config, apply ApplyFunc) (*Store, error) {
	s, err := open(cfg, true)
	if err != nil {
		return nil, err
	}

	s.evHandler("storage: Reindex: started: log size[%d]", s.log.size)

	end, err := s.log.scan(func(offset int64, length uint32, data []byte) error {
		b, err := block.Decode(data)
		if err != nil {
			return fmt.Errorf("%w: offset[%d]: decode: %w", ErrReindexRejected, offset, err)
		}

		if err := s.checkSuccessor(b.Header); err != nil {
			return fmt.Errorf("%w: height[%d]: %w", ErrReindexRejected, b.Header.Height, err)
		}

		snap, err := s.Snapshot()
		if err != nil {
			return err
		}
		effects, err := apply(b, snap)
		snap.Release()

		if err != nil {
			s.evHandler("storage: Reindex: height[%d]: rejected: %s", b.Header.Height, err)
			return fmt.Errorf("%w: height[%d]: %w", ErrReindexRejected, b.Header.Height, err)
		}

		return s.commit(b, effects, location{offset: offset, length: length})
	})

	if err != nil {
		s.Close()
		return nil, fmt.Errorf("reindex: %w", err)
	}

	if end < s.log.size {
		s.evHandler("storage: Reindex: discarding log tail at offset[%d]: %d bytes", end, s.log.size-end)
	}

	// The scan stops at the first torn or corrupt record.
	if err := s.log.truncate(end); err != nil {
		s.Close()
		return nil, err
	}

	height, _ := s.Height()
	s.evHandler("storage: Reindex: completed: height[%d]", height)

	return s, nil
}
