// Package peer implements the peer protocol on top of a message oriented
// transport: the server side state machine of a connection, the set of
// connections subscribed to new blocks, and a client.
package peer

import (
	"errors"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/blockchain/wire"
)

// Set of error variables that end a connection.
var (
	ErrClosed            = errors.New("connection closed")
	ErrHeartbeatTimeout  = errors.New("heartbeat timeout")
	ErrSlowConsumer      = errors.New("send queue full")
	ErrProtocolViolation = errors.New("protocol violation")
)

// ErrInvalidHeight is returned by a Handler for heights that are not
// committed.
var ErrInvalidHeight = errors.New("invalid height")

// Default connection settings.
const (
	DefaultQueueSize         = 64
	DefaultHeartbeatInterval = 5 * time.Second
	DefaultHeartbeatTimeout  = 15 * time.Second
)

// Transport is a message oriented connection. Read blocks until a message
// arrives and must return an error once Close was called. Write is never
// called concurrently.
type Transport interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
	RemoteAddr() string
}

// BlockIterator walks a range of committed blocks.
type BlockIterator interface {
	Next() (block.Block, error)
	Done() bool
}

// Handler answers the requests of a connection. Errors wrapping a
// *validate.TxError are reported as transaction rejections, errors wrapping
// ErrInvalidHeight as invalid heights, and everything else as io errors.
type Handler interface {
	Broadcast(trx tx.Tx) (signature.Digest, error)
	Properties() (wire.Properties, error)
	Block(height uint64) (block.Block, error)
	Range(min uint64, max uint64) (BlockIterator, error)
	AddressInfo(addr signature.ScriptHash) (wire.AddressInfo, error)
}

// EventHandler defines a function that is called when events occur in the
// processing of connections.
type EventHandler func(v string, args ...any)

// Config represents the settings of a connection.
type Config struct {
	QueueSize         int
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
	EvHandler         EventHandler
}

func (cfg Config) withDefaults() Config {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.EvHandler == nil {
		cfg.EvHandler = func(v string, args ...any) {}
	}
	return cfg
}
