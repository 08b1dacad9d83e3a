package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
	"github.com/ardanlabs/goldchain/foundation/blockchain/wire"
	"github.com/ardanlabs/goldchain/foundation/metrics"
	"github.com/google/uuid"
)

// Conn is the server side of a peer connection. Responses and subscription
// pushes go through a send queue bounded by the configured size:
//
//   - a response that finds the queue full closes the connection
//   - a subscription push that finds it full is dropped
//
// A range stream has a lane of the same size and waits for room in it, so a
// slow peer slows the stream without starving responses. Heartbeats and
// their acks skip both. The writer sends them first, so a peer that drains
// a stream slowly still sees them.
type Conn struct {
	id        uuid.UUID
	transport Transport
	handler   Handler
	set       *Set
	cfg       Config
	evHandler EventHandler

	queue  chan []byte
	stream chan []byte
	ctrl   chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastSeen atomic.Int64
	nonce    atomic.Uint64

	mu      sync.Mutex
	filter  block.Filter
	ranging bool

	closeOnce sync.Once
	err       error
}

// ctrlSize bounds the heartbeats and acks waiting for the writer.
const ctrlSize = 2

// Serve runs the protocol over the transport until the connection closes
// and returns the cause. Cancelling the context closes the connection. The
// set receives the connection while it is subscribed and may be nil when
// subscriptions are not offered.
func Serve(ctx context.Context, transport Transport, handler Handler, set *Set, cfg Config) error {
	return newConn(ctx, transport, handler, set, cfg).run()
}

func newConn(ctx context.Context, transport Transport, handler Handler, set *Set, cfg Config) *Conn {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(ctx)

	c := Conn{
		id:        uuid.New(),
		transport: transport,
		handler:   handler,
		set:       set,
		cfg:       cfg,
		evHandler: cfg.EvHandler,
		queue:     make(chan []byte, cfg.QueueSize),
		stream:    make(chan []byte, cfg.QueueSize),
		ctrl:      make(chan []byte, ctrlSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.lastSeen.Store(time.Now().UnixNano())

	return &c
}

// ID returns the unique id of the connection.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// RemoteAddr returns the address of the peer.
func (c *Conn) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Filter returns the block filter of the connection. A nil filter delivers
// full blocks.
func (c *Conn) Filter() block.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.filter
}

// Queued returns the number of messages waiting in the send queue.
func (c *Conn) Queued() int {
	return len(c.queue)
}

func (c *Conn) setFilter(f block.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.filter = f
}

// =============================================================================

func (c *Conn) run() error {
	metrics.PeerConnections.Inc()
	defer metrics.PeerConnections.Dec()

	c.evHandler("peer: Serve: %s: started: remote[%s]", c.id, c.RemoteAddr())

	stop := context.AfterFunc(c.ctx, func() {
		c.close(ErrClosed)
	})
	defer stop()

	c.wg.Add(2)
	go c.writer()
	go c.heartbeat()

	c.reader()

	c.wg.Wait()
	c.drain()

	metrics.PeerClosed.WithLabelValues(cause(c.err)).Inc()
	c.evHandler("peer: Serve: %s: closed: %s", c.id, c.err)

	return c.err
}

// close tears the connection down once. It cancels any range stream, stops
// the writer and heartbeat, leaves the subscription set, and closes the
// transport so the reader returns.
func (c *Conn) close(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		c.cancel()

		if c.set != nil {
			c.set.Remove(c)
		}

		c.transport.Close()
	})
}

// drain discards whatever is left in the send queues.
func (c *Conn) drain() {
	for {
		select {
		case <-c.queue:
		case <-c.stream:
		case <-c.ctrl:
		default:
			return
		}
	}
}

func (c *Conn) reader() {
	for {
		data, err := c.transport.Read()
		if err != nil {
			c.close(fmt.Errorf("%w: read: %w", ErrClosed, err))
			return
		}

		c.lastSeen.Store(time.Now().UnixNano())

		if err := c.handle(data); err != nil {
			c.close(err)
			return
		}
	}
}

func (c *Conn) writer() {
	defer c.wg.Done()

	for {
		var data []byte

		select {
		case data = <-c.ctrl:
		default:
			select {
			case data = <-c.ctrl:
			case data = <-c.queue:
			case data = <-c.stream:
			case <-c.ctx.Done():
				return
			}
		}

		if err := c.transport.Write(data); err != nil {
			c.close(fmt.Errorf("%w: write: %w", ErrClosed, err))
			return
		}
	}
}

// heartbeat sends a heartbeat every interval and closes the connection once
// nothing arrived from the peer within the timeout.
func (c *Conn) heartbeat() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			silent := time.Since(time.Unix(0, c.lastSeen.Load()))
			if silent > c.cfg.HeartbeatTimeout {
				c.close(fmt.Errorf("%w: silent for %s", ErrHeartbeatTimeout, silent.Round(time.Millisecond)))
				return
			}

			c.control(wire.GeneralID, wire.Heartbeat{Nonce: c.nonce.Add(1)})

		case <-c.ctx.Done():
			return
		}
	}
}

// =============================================================================

// handle processes one inbound message. A returned error closes the
// connection.
func (c *Conn) handle(data []byte) error {
	msg, err := wire.Decode(data)
	if err != nil {
		c.evHandler("peer: handle: %s: malformed: %s", c.id, err)
		return c.reply(msg.ID, &wire.Error{Code: wire.ErrorKindOf(err)})
	}

	metrics.PeerMessages.WithLabelValues(msg.Body.Kind().String()).Inc()

	switch body := msg.Body.(type) {
	case wire.Heartbeat:
		c.control(msg.ID, wire.HeartbeatAck{Nonce: body.Nonce})
		return nil

	case wire.HeartbeatAck:
		return nil

	case wire.Request:
		if msg.IsGeneral() {
			return c.reply(wire.GeneralID, &wire.Error{Code: wire.ErrInvalidRequest})
		}
		return c.request(msg.ID, body)
	}

	return fmt.Errorf("%w: unexpected %s body", ErrProtocolViolation, msg.Body.Kind())
}

func (c *Conn) request(id uint32, req wire.Request) error {
	switch req := req.(type) {
	case wire.Broadcast:
		txID, err := c.handler.Broadcast(req.Tx)
		if err != nil {
			return c.reply(id, errorBody(err))
		}
		return c.reply(id, wire.BroadcastResponse{TxID: txID})

	case wire.SetBlockFilter:
		f, err := block.NewFilter(req.Addresses...)
		if err != nil {
			return c.reply(id, &wire.Error{Code: wire.ErrInvalidRequest})
		}
		c.setFilter(f)
		return c.reply(id, wire.Ack{For: req.Tag()})

	case wire.ClearBlockFilter:
		c.setFilter(nil)
		return c.reply(id, wire.Ack{For: req.Tag()})

	case wire.Subscribe:
		if c.set == nil {
			return c.reply(id, &wire.Error{Code: wire.ErrInvalidRequest})
		}
		c.set.Add(c)
		return c.reply(id, wire.Ack{For: req.Tag()})

	case wire.Unsubscribe:
		if c.set != nil {
			c.set.Remove(c)
		}
		return c.reply(id, wire.Ack{For: req.Tag()})

	case wire.GetProperties:
		props, err := c.handler.Properties()
		if err != nil {
			return c.reply(id, errorBody(err))
		}
		return c.reply(id, props)

	case wire.GetBlock:
		b, err := c.handler.Block(req.Height)
		if err != nil {
			return c.reply(id, errorBody(err))
		}
		return c.reply(id, wire.BlockResponse{Block: c.Filter().Apply(b)})

	case wire.GetFullBlock:
		b, err := c.handler.Block(req.Height)
		if err != nil {
			return c.reply(id, errorBody(err))
		}
		return c.reply(id, wire.FullBlockResponse{Block: b})

	case wire.GetBlockRange:
		return c.startRange(id, req)

	case wire.GetAddressInfo:
		info, err := c.handler.AddressInfo(req.Address)
		if err != nil {
			return c.reply(id, errorBody(err))
		}
		return c.reply(id, info)
	}

	return c.reply(id, &wire.Error{Code: wire.ErrInvalidRequest})
}

// startRange begins streaming a range. A connection streams at most one
// range at a time.
func (c *Conn) startRange(id uint32, req wire.GetBlockRange) error {
	if req.Min > req.Max {
		return c.reply(id, &wire.Error{Code: wire.ErrInvalidHeight})
	}

	c.mu.Lock()
	if c.ranging {
		c.mu.Unlock()
		return c.reply(id, &wire.Error{Code: wire.ErrInvalidRequest})
	}
	c.ranging = true
	c.mu.Unlock()

	it, err := c.handler.Range(req.Min, req.Max)
	if err != nil {
		c.endRange()
		return c.reply(id, errorBody(err))
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		last := c.streamRange(id, it)

		// A peer that saw the last body may start the next range.
		c.endRange()
		if last != nil {
			c.handoff(id, last)
		}
	}()

	return nil
}

func (c *Conn) endRange() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ranging = false
}

// streamRange hands every block of the range to the stream lane, waiting for
// room, and returns the body that ends the stream. It returns nil when the
// connection closed.
func (c *Conn) streamRange(id uint32, it BlockIterator) wire.Body {
	for !it.Done() {
		b, err := it.Next()
		if err != nil {
			c.evHandler("peer: stream: %s: %s", c.id, err)
			return errorBody(err)
		}

		if err := c.handoff(id, wire.BlockResponse{Block: c.Filter().Apply(b)}); err != nil {
			c.evHandler("peer: stream: %s: cancelled at height[%d]", c.id, b.Header.Height)
			return nil
		}
	}

	return wire.RangeEnd{}
}

// =============================================================================

// reply queues a response. A full queue means the peer is not reading and
// the returned error closes the connection.
func (c *Conn) reply(id uint32, body wire.Body) error {
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	data := wire.Msg{ID: id, Body: body}.Encode()

	select {
	case c.queue <- data:
		return nil
	default:
		return fmt.Errorf("%w: %d messages queued", ErrSlowConsumer, len(c.queue))
	}
}

// push queues a general message and drops it when the queue is full.
func (c *Conn) push(body wire.Body) bool {
	if c.ctx.Err() != nil {
		return false
	}

	data := wire.Msg{ID: wire.GeneralID, Body: body}.Encode()

	select {
	case c.queue <- data:
		return true
	default:
		metrics.PeerDropped.Inc()
		return false
	}
}

// control sends a heartbeat or heartbeat ack ahead of the queue. It is
// dropped while earlier control messages still wait for the writer.
func (c *Conn) control(id uint32, body wire.Body) bool {
	if c.ctx.Err() != nil {
		return false
	}

	data := wire.Msg{ID: id, Body: body}.Encode()

	select {
	case c.ctrl <- data:
		return true
	default:
		return false
	}
}

// handoff waits for room in the stream lane until the connection closes.
func (c *Conn) handoff(id uint32, body wire.Body) error {
	data := wire.Msg{ID: id, Body: body}.Encode()

	select {
	case c.stream <- data:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// =============================================================================

// errorBody maps a handler error to the error body that reports it.
func errorBody(err error) *wire.Error {
	if txErr, ok := validate.AsTxError(err); ok {
		return wire.NewTxError(txErr)
	}

	if errors.Is(err, ErrInvalidHeight) {
		return &wire.Error{Code: wire.ErrInvalidHeight}
	}

	return &wire.Error{Code: wire.ErrIo}
}

// cause returns the metric label of a close error.
func cause(err error) string {
	switch {
	case errors.Is(err, ErrHeartbeatTimeout):
		return "heartbeat"
	case errors.Is(err, ErrSlowConsumer):
		return "slow_consumer"
	case errors.Is(err, ErrProtocolViolation):
		return "protocol"
	}
	return "closed"
}
