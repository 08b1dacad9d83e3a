package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// Index key prefixes.
var (
	prefixHeight  = []byte("h/")
	prefixHash    = []byte("b/")
	prefixTx      = []byte("t/")
	prefixBalance = []byte("a/")
	keyOwner      = []byte("m/owner")
	keySupply     = []byte("m/supply")
	keyHead       = []byte("m/head")
)

func heightKey(height uint64) []byte {
	k := make([]byte, len(prefixHeight)+8)
	copy(k, prefixHeight)
	binary.BigEndian.PutUint64(k[len(prefixHeight):], height)
	return k
}

func hashKey(hash signature.Digest) []byte {
	return append(append([]byte{}, prefixHash...), hash[:]...)
}

func txKey(id signature.Digest) []byte {
	return append(append([]byte{}, prefixTx...), id[:]...)
}

func balanceKey(addr signature.ScriptHash) []byte {
	return append(append([]byte{}, prefixBalance...), addr[:]...)
}

// =============================================================================

// location is where a block record lives in the log.
type location struct {
	offset int64
	length uint32
}

func (l location) encode() []byte {
	v := make([]byte, 12)
	binary.BigEndian.PutUint64(v[0:8], uint64(l.offset))
	binary.BigEndian.PutUint32(v[8:12], l.length)
	return v
}

func decodeLocation(v []byte) (location, error) {
	if len(v) != 12 {
		return location{}, fmt.Errorf("%w: location length %d", ErrCorrupt, len(v))
	}

	l := location{
		offset: int64(binary.BigEndian.Uint64(v[0:8])),
		length: binary.BigEndian.Uint32(v[8:12]),
	}

	return l, nil
}

// headRecord is the commit point of the index: the head header and the end
// of the log it covers.
type headRecord struct {
	header block.Header
	logEnd int64
}

func (h headRecord) encode() []byte {
	w := codec.NewWriter(block.HeaderSize + 8)
	w.PutU64(uint64(h.logEnd))
	h.header.EncodeTo(w)
	return w.Bytes()
}

func decodeHeadRecord(v []byte) (headRecord, error) {
	r := codec.NewReader(v)

	var h headRecord
	h.logEnd = int64(r.U64())
	h.header = block.DecodeHeader(r)

	if err := r.Done(); err != nil {
		return headRecord{}, fmt.Errorf("%w: head: %w", ErrCorrupt, err)
	}

	return h, nil
}

// txRecord is the index entry of a committed transaction.
type txRecord struct {
	height uint64
	expiry uint64
}

func (t txRecord) encode() []byte {
	v := make([]byte, 16)
	binary.BigEndian.PutUint64(v[0:8], t.height)
	binary.BigEndian.PutUint64(v[8:16], t.expiry)
	return v
}

func decodeTxRecord(v []byte) (txRecord, error) {
	if len(v) != 16 {
		return txRecord{}, fmt.Errorf("%w: tx record length %d", ErrCorrupt, len(v))
	}

	t := txRecord{
		height: binary.BigEndian.Uint64(v[0:8]),
		expiry: binary.BigEndian.Uint64(v[8:16]),
	}

	return t, nil
}

func encodeI64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func decodeI64(v []byte) (int64, error) {
	if len(v) != 8 {
		return 0, fmt.Errorf("%w: value length %d", ErrCorrupt, len(v))
	}
	return int64(binary.BigEndian.Uint64(v)), nil
}
