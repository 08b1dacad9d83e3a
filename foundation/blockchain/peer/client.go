package peer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/blockchain/wire"
)

// DefaultPushBuffer is the number of subscription pushes a client holds
// before it drops new ones.
const DefaultPushBuffer = 64

// ClientConfig represents the settings of a client.
type ClientConfig struct {
	HeartbeatTimeout time.Duration
	PushBuffer       int
	EvHandler        EventHandler
}

// Client is the requesting side of a peer connection. It correlates
// responses to requests by id, answers heartbeats, and delivers blocks
// pushed to a subscription on a bounded channel.
type Client struct {
	transport Transport
	timeout   time.Duration
	evHandler EventHandler

	writeMu sync.Mutex
	nextID  atomic.Uint32

	mu      sync.Mutex
	pending map[uint32]*call

	pushes   chan block.Filtered
	lastSeen atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// call is a request waiting for its responses.
type call struct {
	ch   chan result
	done chan struct{}
}

// result is a response of a call, or the reason it could not be read.
type result struct {
	msg wire.Msg
	err error
}

// NewClient constructs a client over the transport and starts reading.
func NewClient(transport Transport, cfg ClientConfig) *Client {
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if cfg.PushBuffer <= 0 {
		cfg.PushBuffer = DefaultPushBuffer
	}
	if cfg.EvHandler == nil {
		cfg.EvHandler = func(v string, args ...any) {}
	}

	c := Client{
		transport: transport,
		timeout:   cfg.HeartbeatTimeout,
		evHandler: cfg.EvHandler,
		pending:   make(map[uint32]*call),
		pushes:    make(chan block.Filtered, cfg.PushBuffer),
		done:      make(chan struct{}),
	}
	c.lastSeen.Store(time.Now().UnixNano())

	go c.reader()
	go c.watchdog()

	return &c
}

// Close closes the connection.
func (c *Client) Close() error {
	c.close(ErrClosed)
	return nil
}

// Done returns a channel that is closed once the connection is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection closed, or nil while it is open.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Pushes returns the blocks pushed to the subscription. The channel is
// closed when the connection closes.
func (c *Client) Pushes() <-chan block.Filtered {
	return c.pushes
}

// =============================================================================

// Broadcast submits the transaction and returns its id once accepted. A
// rejection is returned as a *wire.Error.
func (c *Client) Broadcast(ctx context.Context, trx tx.Tx) (signature.Digest, error) {
	resp, err := expect[wire.BroadcastResponse](c.roundTrip(ctx, wire.Broadcast{Tx: trx}))
	if err != nil {
		return signature.Digest{}, err
	}

	return resp.TxID, nil
}

// SetBlockFilter restricts pushed blocks to those touching the addresses.
// No addresses delivers headers only.
func (c *Client) SetBlockFilter(ctx context.Context, addrs ...signature.ScriptHash) error {
	if addrs == nil {
		addrs = []signature.ScriptHash{}
	}

	_, err := expect[wire.Ack](c.roundTrip(ctx, wire.SetBlockFilter{Addresses: addrs}))
	return err
}

// ClearBlockFilter reverts to full block delivery.
func (c *Client) ClearBlockFilter(ctx context.Context) error {
	_, err := expect[wire.Ack](c.roundTrip(ctx, wire.ClearBlockFilter{}))
	return err
}

// Subscribe starts the delivery of new blocks on Pushes.
func (c *Client) Subscribe(ctx context.Context) error {
	_, err := expect[wire.Ack](c.roundTrip(ctx, wire.Subscribe{}))
	return err
}

// Unsubscribe stops the delivery of new blocks.
func (c *Client) Unsubscribe(ctx context.Context) error {
	_, err := expect[wire.Ack](c.roundTrip(ctx, wire.Unsubscribe{}))
	return err
}

// Properties returns the chain properties.
func (c *Client) Properties(ctx context.Context) (wire.Properties, error) {
	return expect[wire.Properties](c.roundTrip(ctx, wire.GetProperties{}))
}

// GetBlock returns the block at the height with the filter applied.
func (c *Client) GetBlock(ctx context.Context, height uint64) (block.Filtered, error) {
	resp, err := expect[wire.BlockResponse](c.roundTrip(ctx, wire.GetBlock{Height: height}))
	if err != nil {
		return block.Filtered{}, err
	}

	return resp.Block, nil
}

// GetFullBlock returns the full block at the height.
func (c *Client) GetFullBlock(ctx context.Context, height uint64) (block.Block, error) {
	resp, err := expect[wire.FullBlockResponse](c.roundTrip(ctx, wire.GetFullBlock{Height: height}))
	if err != nil {
		return block.Block{}, err
	}

	return resp.Block, nil
}

// GetBlockRange streams the blocks from min to max inclusive to fn in
// ascending order. A slow fn slows the server down.
func (c *Client) GetBlockRange(ctx context.Context, min uint64, max uint64, fn func(block.Filtered) error) error {
	id, cl := c.register()
	defer c.unregister(id)

	if err := c.write(wire.Msg{ID: id, Body: wire.GetBlockRange{Min: min, Max: max}}); err != nil {
		return err
	}

	for {
		select {
		case res := <-cl.ch:
			if res.err != nil {
				return res.err
			}

			switch body := res.msg.Body.(type) {
			case wire.BlockResponse:
				if err := fn(body.Block); err != nil {
					return err
				}

			case wire.RangeEnd:
				return nil

			case *wire.Error:
				return body

			default:
				return fmt.Errorf("%w: unexpected %T in range", ErrProtocolViolation, res.msg.Body)
			}

		case <-ctx.Done():
			return ctx.Err()

		case <-c.done:
			return c.err
		}
	}
}

// AddressInfo returns the balance of the address.
func (c *Client) AddressInfo(ctx context.Context, addr signature.ScriptHash) (wire.AddressInfo, error) {
	return expect[wire.AddressInfo](c.roundTrip(ctx, wire.GetAddressInfo{Address: addr}))
}

// =============================================================================

func (c *Client) roundTrip(ctx context.Context, req wire.Request) (wire.Body, error) {
	id, cl := c.register()
	defer c.unregister(id)

	if err := c.write(wire.Msg{ID: id, Body: req}); err != nil {
		return nil, err
	}

	select {
	case res := <-cl.ch:
		if res.err != nil {
			return nil, res.err
		}
		if e, ok := res.msg.Body.(*wire.Error); ok {
			return nil, e
		}
		return res.msg.Body, nil

	case <-ctx.Done():
		return nil, ctx.Err()

	case <-c.done:
		return nil, c.err
	}
}

func (c *Client) register() (uint32, *call) {
	id := c.nextID.Add(1)
	if id == wire.GeneralID {
		id = c.nextID.Add(1)
	}

	cl := call{
		ch:   make(chan result),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	c.pending[id] = &cl
	c.mu.Unlock()

	return id, &cl
}

func (c *Client) unregister(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, exists := c.pending[id]; exists {
		close(cl.done)
		delete(c.pending, id)
	}
}

func (c *Client) write(msg wire.Msg) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.transport.Write(msg.Encode()); err != nil {
		err = fmt.Errorf("%w: write: %w", ErrClosed, err)
		c.close(err)
		return err
	}

	return nil
}

func (c *Client) close(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		c.transport.Close()
	})
}

// =============================================================================

func (c *Client) reader() {
	defer close(c.pushes)

	for {
		data, err := c.transport.Read()
		if err != nil {
			c.close(fmt.Errorf("%w: read: %w", ErrClosed, err))
			return
		}

		c.lastSeen.Store(time.Now().UnixNano())

		msg, err := wire.Decode(data)
		if err != nil {
			c.evHandler("peer: client: malformed: id[%d]: %s", msg.ID, err)

			// A response that cannot be read fails the request waiting on it.
			if !msg.IsGeneral() {
				res := result{err: fmt.Errorf("%w: response: %w", ErrProtocolViolation, err)}
				if !c.deliver(msg.ID, res) {
					return
				}
			}
			continue
		}

		switch body := msg.Body.(type) {
		case wire.Heartbeat:
			if err := c.write(wire.Msg{ID: msg.ID, Body: wire.HeartbeatAck{Nonce: body.Nonce}}); err != nil {
				return
			}
			continue

		case wire.HeartbeatAck:
			continue
		}

		if msg.IsGeneral() {
			c.general(msg)
			continue
		}

		if !c.deliver(msg.ID, result{msg: msg}) {
			return
		}
	}
}

// deliver hands the result to the call waiting on the id. It returns false
// once the client is closed.
func (c *Client) deliver(id uint32, res result) bool {
	c.mu.Lock()
	cl := c.pending[id]
	c.mu.Unlock()

	if cl == nil {
		c.evHandler("peer: client: response for unknown id[%d]", id)
		return true
	}

	select {
	case cl.ch <- res:
	case <-cl.done:
	case <-c.done:
		return false
	}

	return true
}

// general handles a message outside any request.
func (c *Client) general(msg wire.Msg) {
	switch body := msg.Body.(type) {
	case wire.BlockResponse:
		select {
		case c.pushes <- body.Block:
		default:
			c.evHandler("peer: client: push buffer full: dropped height[%d]", body.Block.Header.Height)
		}

	case *wire.Error:
		c.evHandler("peer: client: general error: %s", body)

	default:
		c.evHandler("peer: client: unexpected general %s", msg.Body.Kind())
	}
}

// watchdog closes the connection once nothing arrived within the timeout.
func (c *Client) watchdog() {
	ticker := time.NewTicker(c.timeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			silent := time.Since(time.Unix(0, c.lastSeen.Load()))
			if silent > c.timeout {
				c.close(fmt.Errorf("%w: silent for %s", ErrHeartbeatTimeout, silent.Round(time.Millisecond)))
				return
			}

		case <-c.done:
			return
		}
	}
}

// expect asserts the type of a response body.
func expect[T wire.Body](body wire.Body, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}

	v, ok := body.(T)
	if !ok {
		return zero, fmt.Errorf("%w: unexpected response %T", ErrProtocolViolation, body)
	}

	return v, nil
}
