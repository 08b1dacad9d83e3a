package wire

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// Broadcast submits a transaction for minting.
type Broadcast struct {
	Tx tx.Tx
}

// SetBlockFilter restricts the blocks pushed to the subscriber. An empty
// address list delivers headers only.
type SetBlockFilter struct {
	Addresses []signature.ScriptHash
}

// ClearBlockFilter reverts to full block delivery.
type ClearBlockFilter struct{}

// Subscribe asks for every new block to be pushed.
type Subscribe struct{}

// Unsubscribe stops block pushes.
type Unsubscribe struct{}

// GetProperties asks for the chain properties.
type GetProperties struct{}

// GetBlock asks for the block at the height with the filter applied.
type GetBlock struct {
	Height uint64
}

// GetFullBlock asks for the full block at the height.
type GetFullBlock struct {
	Height uint64
}

// GetBlockRange asks for the blocks from Min to Max inclusive, streamed one
// message per block and terminated by a RangeEnd.
type GetBlockRange struct {
	Min uint64
	Max uint64
}

// GetAddressInfo asks for the balance of an address.
type GetAddressInfo struct {
	Address signature.ScriptHash
}

// =============================================================================

// Kind implements the Body interface.
func (Broadcast) Kind() Kind        { return KindRequest }
func (SetBlockFilter) Kind() Kind   { return KindRequest }
func (ClearBlockFilter) Kind() Kind { return KindRequest }
func (Subscribe) Kind() Kind        { return KindRequest }
func (Unsubscribe) Kind() Kind      { return KindRequest }
func (GetProperties) Kind() Kind    { return KindRequest }
func (GetBlock) Kind() Kind         { return KindRequest }
func (GetFullBlock) Kind() Kind     { return KindRequest }
func (GetBlockRange) Kind() Kind    { return KindRequest }
func (GetAddressInfo) Kind() Kind   { return KindRequest }

// Tag implements the Request interface.
func (Broadcast) Tag() Tag        { return TagBroadcast }
func (SetBlockFilter) Tag() Tag   { return TagSetBlockFilter }
func (ClearBlockFilter) Tag() Tag { return TagClearBlockFilter }
func (Subscribe) Tag() Tag        { return TagSubscribe }
func (Unsubscribe) Tag() Tag      { return TagUnsubscribe }
func (GetProperties) Tag() Tag    { return TagGetProperties }
func (GetBlock) Tag() Tag         { return TagGetBlock }
func (GetFullBlock) Tag() Tag     { return TagGetFullBlock }
func (GetBlockRange) Tag() Tag    { return TagGetBlockRange }
func (GetAddressInfo) Tag() Tag   { return TagGetAddressInfo }

func (b Broadcast) encode(w *codec.Writer) {
	w.PutU8(uint8(TagBroadcast))
	b.Tx.EncodeTo(w)
}

func (b SetBlockFilter) encode(w *codec.Writer) {
	w.PutU8(uint8(TagSetBlockFilter))
	w.PutU8(uint8(len(b.Addresses)))
	for _, addr := range b.Addresses {
		w.PutRaw(addr[:])
	}
}

func (ClearBlockFilter) encode(w *codec.Writer) { w.PutU8(uint8(TagClearBlockFilter)) }
func (Subscribe) encode(w *codec.Writer)        { w.PutU8(uint8(TagSubscribe)) }
func (Unsubscribe) encode(w *codec.Writer)      { w.PutU8(uint8(TagUnsubscribe)) }
func (GetProperties) encode(w *codec.Writer)    { w.PutU8(uint8(TagGetProperties)) }

func (b GetBlock) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetBlock))
	w.PutU64(b.Height)
}

func (b GetFullBlock) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetFullBlock))
	w.PutU64(b.Height)
}

func (b GetBlockRange) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetBlockRange))
	w.PutU64(b.Min)
	w.PutU64(b.Max)
}

func (b GetAddressInfo) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetAddressInfo))
	w.PutRaw(b.Address[:])
}

// =============================================================================

func decodeRequest(r *codec.Reader) Request {
	tag := Tag(r.U8())
	if r.Err() != nil {
		return nil
	}

	switch tag {
	case TagBroadcast:
		return Broadcast{Tx: tx.DecodeFrom(r)}

	case TagSetBlockFilter:
		n := int(r.U8())
		if n > block.MaxFilterAddresses {
			r.Fail(fmt.Errorf("filter has %d addresses, max %d", n, block.MaxFilterAddresses))
			return nil
		}
		addrs := make([]signature.ScriptHash, n)
		for i := range addrs {
			r.Raw(addrs[i][:])
		}
		return SetBlockFilter{Addresses: addrs}

	case TagClearBlockFilter:
		return ClearBlockFilter{}

	case TagSubscribe:
		return Subscribe{}

	case TagUnsubscribe:
		return Unsubscribe{}

	case TagGetProperties:
		return GetProperties{}

	case TagGetBlock:
		return GetBlock{Height: r.U64()}

	case TagGetFullBlock:
		return GetFullBlock{Height: r.U64()}

	case TagGetBlockRange:
		return GetBlockRange{Min: r.U64(), Max: r.U64()}

	case TagGetAddressInfo:
		var addr signature.ScriptHash
		r.Raw(addr[:])
		return GetAddressInfo{Address: addr}
	}

	r.Fail(fmt.Errorf("unknown request tag %d", tag))
	return nil
}
