package block

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// MaxFilterAddresses is the largest number of addresses a filter may hold.
const MaxFilterAddresses = 16

// Filter selects how much of a block a subscriber receives. A nil filter
// receives every block in full. An empty filter receives headers only. A
// non-empty filter receives a block in full only when one of its
// transactions touches a filtered address.
type Filter map[signature.ScriptHash]struct{}

// NewFilter constructs a filter over the addresses.
func NewFilter(addrs ...signature.ScriptHash) (Filter, error) {
	if len(addrs) > MaxFilterAddresses {
		return nil, fmt.Errorf("filter: too many addresses: %d > %d", len(addrs), MaxFilterAddresses)
	}

	f := make(Filter, len(addrs))
	for _, addr := range addrs {
		f[addr] = struct{}{}
	}

	return f, nil
}

// Addresses returns the filtered addresses in ascending byte order.
func (f Filter) Addresses() []signature.ScriptHash {
	addrs := make([]signature.ScriptHash, 0, len(f))
	for addr := range f {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})

	return addrs
}

// Matches reports whether the subscriber wants the full block.
func (f Filter) Matches(b Block) bool {
	if f == nil {
		return true
	}

	for _, trx := range b.Txs {
		for _, addr := range trx.Addresses() {
			if _, exists := f[addr]; exists {
				return true
			}
		}
	}

	return false
}

// Apply reduces the block to what the filter selects.
func (f Filter) Apply(b Block) Filtered {
	fb := Filtered{
		Header: b.Header,
		Signer: b.Signer,
	}

	if f.Matches(b) {
		fb.Full = &b
	}

	return fb
}

// =============================================================================

// Filtered is either a full block or just its header and signer.
type Filtered struct {
	Header Header
	Signer *signature.SigPair
	Full   *Block
}

// Hash returns the hash of the header.
func (fb Filtered) Hash() signature.Digest {
	return fb.Header.Hash()
}

// Filtered tags on the wire.
const (
	filteredHeader uint8 = 0
	filteredFull   uint8 = 1
)

// EncodeTo writes the filtered block.
func (fb Filtered) EncodeTo(w *codec.Writer) {
	if fb.Full != nil {
		w.PutU8(filteredFull)
		fb.Full.EncodeTo(w)
		return
	}

	w.PutU8(filteredHeader)
	fb.Header.EncodeTo(w)
	encodeSigner(w, fb.Signer)
}

// DecodeFiltered reads a filtered block from the reader.
func DecodeFiltered(r *codec.Reader) Filtered {
	switch tag := r.U8(); tag {
	case filteredFull:
		b := DecodeFrom(r)
		return Filtered{Header: b.Header, Signer: b.Signer, Full: &b}

	case filteredHeader:
		h := DecodeHeader(r)
		return Filtered{Header: h, Signer: decodeSigner(r)}

	default:
		if r.Err() == nil {
			r.Fail(fmt.Errorf("unknown filtered block tag %d", tag))
		}
		return Filtered{}
	}
}
