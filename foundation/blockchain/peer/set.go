package peer

import (
	"sync"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/wire"
	"github.com/ardanlabs/goldchain/foundation/metrics"
	"github.com/google/uuid"
)

// Set represents the connections subscribed to new blocks.
type Set struct {
	mu  sync.RWMutex
	set map[uuid.UUID]*Conn
}

// NewSet constructs a new set to manage subscribed connections.
func NewSet() *Set {
	return &Set{
		set: make(map[uuid.UUID]*Conn),
	}
}

// Add adds a connection to the set.
func (s *Set) Add(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.set[c.id]
	if !exists {
		s.set[c.id] = c
		metrics.PeerSubscribers.Set(float64(len(s.set)))
		return true
	}

	return false
}

// Remove removes a connection from the set.
func (s *Set) Remove(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.set, c.id)
	metrics.PeerSubscribers.Set(float64(len(s.set)))
}

// Count returns the number of subscribed connections.
func (s *Set) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.set)
}

// Copy returns a list of the subscribed connections.
func (s *Set) Copy() []*Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := make([]*Conn, 0, len(s.set))
	for _, c := range s.set {
		conns = append(conns, c)
	}

	return conns
}

// Publish pushes the block to every subscribed connection with the filter
// of that connection applied. Connections with a full send queue miss the
// block.
func (s *Set) Publish(b block.Block) (sent int, dropped int) {
	for _, c := range s.Copy() {
		if c.push(wire.BlockResponse{Block: c.Filter().Apply(b)}) {
			sent++
			continue
		}
		dropped++
	}

	return sent, dropped
}
