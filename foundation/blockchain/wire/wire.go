// Package wire defines the messages exchanged between a node and its peers
// and their canonical binary form. A message is an id, a body kind, and the
// body. Requests and responses carry a tag naming the operation.
package wire

import (
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
)

// GeneralID is the id of messages that are not part of a request and never
// expect a correlated response: subscription pushes, heartbeats, and errors
// for input that could not be decoded far enough to read an id.
const GeneralID uint32 = math.MaxUint32

// ErrMalformed is returned when a message cannot be decoded.
var ErrMalformed = errors.New("malformed message")

// Kind identifies the body of a message.
type Kind uint8

// Set of body kinds.
const (
	KindError        Kind = 0x00
	KindRequest      Kind = 0x01
	KindResponse     Kind = 0x02
	KindHeartbeat    Kind = 0x03
	KindHeartbeatAck Kind = 0x04
)

var kindNames = map[Kind]string{
	KindError:        "error",
	KindRequest:      "request",
	KindResponse:     "response",
	KindHeartbeat:    "heartbeat",
	KindHeartbeatAck: "heartbeat_ack",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if name, exists := kindNames[k]; exists {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Tag identifies the operation of a request and its response.
type Tag uint8

// Set of operation tags.
const (
	TagBroadcast        Tag = 0x10
	TagSetBlockFilter   Tag = 0x11
	TagClearBlockFilter Tag = 0x12
	TagSubscribe        Tag = 0x13
	TagUnsubscribe      Tag = 0x14
	TagGetProperties    Tag = 0x20
	TagGetBlock         Tag = 0x21
	TagGetFullBlock     Tag = 0x22
	TagGetBlockRange    Tag = 0x23
	TagGetAddressInfo   Tag = 0x24
)

var tagNames = map[Tag]string{
	TagBroadcast:        "broadcast",
	TagSetBlockFilter:   "set_block_filter",
	TagClearBlockFilter: "clear_block_filter",
	TagSubscribe:        "subscribe",
	TagUnsubscribe:      "unsubscribe",
	TagGetProperties:    "get_properties",
	TagGetBlock:         "get_block",
	TagGetFullBlock:     "get_full_block",
	TagGetBlockRange:    "get_block_range",
	TagGetAddressInfo:   "get_address_info",
}

// String returns the name of the tag.
func (t Tag) String() string {
	if name, exists := tagNames[t]; exists {
		return name
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// =============================================================================

// Body is one of the closed set of message bodies.
type Body interface {
	Kind() Kind
	encode(w *codec.Writer)
}

// Request is a body asking the other side to perform an operation.
type Request interface {
	Body
	Tag() Tag
}

// Response is a body answering a request.
type Response interface {
	Body
	Tag() Tag
}

// Msg is a single message.
type Msg struct {
	ID   uint32
	Body Body
}

// IsGeneral reports whether the message is outside any request.
func (m Msg) IsGeneral() bool {
	return m.ID == GeneralID
}

// Encode returns the canonical form of the message.
func (m Msg) Encode() []byte {
	w := codec.NewWriter(64)
	w.PutU32(m.ID)
	w.PutU8(uint8(m.Body.Kind()))
	m.Body.encode(w)
	return w.Bytes()
}

// Decode decodes a message. When the id could be read the returned message
// carries it even if decoding failed, so the error can be answered on it.
func Decode(data []byte) (Msg, error) {
	r := codec.NewReader(data)

	id := r.U32()
	if r.Err() != nil {
		return Msg{ID: GeneralID}, fmt.Errorf("%w: %w", ErrMalformed, r.Err())
	}

	kind := Kind(r.U8())
	body := decodeBody(kind, r)

	if err := r.Done(); err != nil {
		return Msg{ID: id}, fmt.Errorf("%w: %s: %w", ErrMalformed, kind, err)
	}

	return Msg{ID: id, Body: body}, nil
}

// ErrorKindOf maps a decode error to the error kind that answers it.
func ErrorKindOf(err error) ErrorKind {
	if errors.Is(err, codec.ErrBytesRemaining) {
		return ErrBytesRemaining
	}
	return ErrInvalidRequest
}

func decodeBody(kind Kind, r *codec.Reader) Body {
	if r.Err() != nil {
		return nil
	}

	switch kind {
	case KindError:
		return decodeError(r)
	case KindRequest:
		return decodeRequest(r)
	case KindResponse:
		return decodeResponse(r)
	case KindHeartbeat:
		return Heartbeat{Nonce: r.U64()}
	case KindHeartbeatAck:
		return HeartbeatAck{Nonce: r.U64()}
	}

	r.Fail(fmt.Errorf("unknown body kind %d", kind))
	return nil
}

// =============================================================================

// Heartbeat asks the other side to prove it is alive.
type Heartbeat struct {
	Nonce uint64
}

// Kind implements the Body interface.
func (Heartbeat) Kind() Kind { return KindHeartbeat }

func (h Heartbeat) encode(w *codec.Writer) { w.PutU64(h.Nonce) }

// HeartbeatAck answers a heartbeat with its nonce.
type HeartbeatAck struct {
	Nonce uint64
}

// Kind implements the Body interface.
func (HeartbeatAck) Kind() Kind { return KindHeartbeatAck }

func (h HeartbeatAck) encode(w *codec.Writer) { w.PutU64(h.Nonce) }
