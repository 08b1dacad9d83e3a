package wire

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// BroadcastResponse accepts a broadcast transaction.
type BroadcastResponse struct {
	TxID signature.Digest
}

// Ack confirms a request that returns no data.
type Ack struct {
	For Tag
}

// Properties describes the chain.
type Properties struct {
	Height      uint64
	Owner       tx.Tx
	TokenSupply asset.Asset
	NetworkFee  asset.Asset
}

// BlockResponse carries a block with the filter of the connection applied.
// It answers GetBlock, each block of a range, and is the body of a
// subscription push.
type BlockResponse struct {
	Block block.Filtered
}

// FullBlockResponse carries a full block.
type FullBlockResponse struct {
	Block block.Block
}

// RangeEnd terminates the stream of a GetBlockRange.
type RangeEnd struct{}

// AddressInfo describes an address, including transactions still pending.
type AddressInfo struct {
	Address    signature.ScriptHash
	Balance    asset.Asset
	NetworkFee asset.Asset
}

// =============================================================================

// Kind implements the Body interface.
func (BroadcastResponse) Kind() Kind { return KindResponse }
func (Ack) Kind() Kind               { return KindResponse }
func (Properties) Kind() Kind        { return KindResponse }
func (BlockResponse) Kind() Kind     { return KindResponse }
func (FullBlockResponse) Kind() Kind { return KindResponse }
func (RangeEnd) Kind() Kind          { return KindResponse }
func (AddressInfo) Kind() Kind       { return KindResponse }

// Tag implements the Response interface.
func (BroadcastResponse) Tag() Tag { return TagBroadcast }
func (a Ack) Tag() Tag             { return a.For }
func (Properties) Tag() Tag        { return TagGetProperties }
func (BlockResponse) Tag() Tag     { return TagGetBlock }
func (FullBlockResponse) Tag() Tag { return TagGetFullBlock }
func (RangeEnd) Tag() Tag          { return TagGetBlockRange }
func (AddressInfo) Tag() Tag       { return TagGetAddressInfo }

func (b BroadcastResponse) encode(w *codec.Writer) {
	w.PutU8(uint8(TagBroadcast))
	w.PutRaw(b.TxID[:])
}

func (a Ack) encode(w *codec.Writer) {
	w.PutU8(uint8(a.For))
}

func (p Properties) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetProperties))
	w.PutU64(p.Height)
	p.Owner.EncodeTo(w)
	w.PutI64(int64(p.TokenSupply))
	w.PutI64(int64(p.NetworkFee))
}

func (b BlockResponse) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetBlock))
	b.Block.EncodeTo(w)
}

func (b FullBlockResponse) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetFullBlock))
	b.Block.EncodeTo(w)
}

func (RangeEnd) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetBlockRange))
}

func (a AddressInfo) encode(w *codec.Writer) {
	w.PutU8(uint8(TagGetAddressInfo))
	w.PutRaw(a.Address[:])
	w.PutI64(int64(a.Balance))
	w.PutI64(int64(a.NetworkFee))
}

// =============================================================================

func decodeResponse(r *codec.Reader) Response {
	tag := Tag(r.U8())
	if r.Err() != nil {
		return nil
	}

	switch tag {
	case TagBroadcast:
		var b BroadcastResponse
		r.Raw(b.TxID[:])
		return b

	case TagSetBlockFilter, TagClearBlockFilter, TagSubscribe, TagUnsubscribe:
		return Ack{For: tag}

	case TagGetProperties:
		return Properties{
			Height:      r.U64(),
			Owner:       tx.DecodeFrom(r),
			TokenSupply: asset.New(r.I64()),
			NetworkFee:  asset.New(r.I64()),
		}

	case TagGetBlock:
		return BlockResponse{Block: block.DecodeFiltered(r)}

	case TagGetFullBlock:
		return FullBlockResponse{Block: block.DecodeFrom(r)}

	case TagGetBlockRange:
		return RangeEnd{}

	case TagGetAddressInfo:
		var a AddressInfo
		r.Raw(a.Address[:])
		a.Balance = asset.New(r.I64())
		a.NetworkFee = asset.New(r.I64())
		return a
	}

	r.Fail(fmt.Errorf("unknown response tag %d", tag))
	return nil
}
