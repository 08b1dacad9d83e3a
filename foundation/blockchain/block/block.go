// Package block provides the block model, the header hash the minter signs
// and the filters peers use to choose between headers and full blocks.
package block

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/merkle"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// Version is the only header version understood.
const Version uint16 = 0

// ErrMalformed is returned when a block cannot be decoded.
var ErrMalformed = errors.New("malformed block")

// maxTxs bounds the number of transactions a decoder will allocate for.
const maxTxs = 1 << 16

// =============================================================================

// Header represents common information required for each block.
type Header struct {
	PrevHash  signature.Digest
	Height    uint64
	Timestamp uint64
	TxRoot    signature.Digest
}

// Hash returns the unique hash of the header. The minter signature is not
// part of the hash.
func (h Header) Hash() signature.Digest {
	w := codec.NewWriter(HeaderSize)
	h.EncodeTo(w)
	return signature.DoubleSHA256(w.Bytes())
}

// HeaderSize is the encoded size of a header.
const HeaderSize = 2 + signature.DigestSize + 8 + 8 + signature.DigestSize

// EncodeTo writes the canonical form of the header.
func (h Header) EncodeTo(w *codec.Writer) {
	w.PutU16(Version)
	w.PutRaw(h.PrevHash[:])
	w.PutU64(h.Height)
	w.PutU64(h.Timestamp)
	w.PutRaw(h.TxRoot[:])
}

// DecodeHeader reads a header from the reader.
func DecodeHeader(r *codec.Reader) Header {
	if v := r.U16(); v != Version && r.Err() == nil {
		r.Fail(fmt.Errorf("unknown header version %d", v))
	}

	var h Header
	r.Raw(h.PrevHash[:])
	h.Height = r.U64()
	h.Timestamp = r.U64()
	r.Raw(h.TxRoot[:])

	return h
}

// =============================================================================

// Block represents a group of transactions batched together and signed by
// the minter.
type Block struct {
	Header  Header
	Signer  *signature.SigPair
	Rewards asset.Asset
	Txs     []tx.Tx
}

// NewChild constructs the unsigned block that follows prev.
func NewChild(prev Header, timestamp uint64, txs []tx.Tx) (Block, error) {
	fees := make([]asset.Asset, len(txs))
	for i, trx := range txs {
		fees[i] = trx.Fee
	}

	rewards, err := asset.Sum(fees...)
	if err != nil {
		return Block{}, fmt.Errorf("rewards: %w", err)
	}

	root, err := TxRoot(txs)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: Header{
			PrevHash:  prev.Hash(),
			Height:    prev.Height + 1,
			Timestamp: timestamp,
			TxRoot:    root,
		},
		Rewards: rewards,
		Txs:     txs,
	}

	return b, nil
}

// NewGenesis constructs the unsigned first block of a chain.
func NewGenesis(timestamp uint64, txs []tx.Tx) (Block, error) {
	root, err := TxRoot(txs)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: Header{
			Timestamp: timestamp,
			TxRoot:    root,
		},
		Txs: txs,
	}

	return b, nil
}

// Hash returns the hash of the block header.
func (b Block) Hash() signature.Digest {
	return b.Header.Hash()
}

// Sign signs the header hash with the minter key.
func (b *Block) Sign(kp signature.KeyPair) error {
	hash := b.Header.Hash()

	sp, err := kp.Sign(hash[:])
	if err != nil {
		return fmt.Errorf("sign block: %w", err)
	}
	b.Signer = &sp

	return nil
}

// VerifySigner reports whether the block was signed by the key.
func (b Block) VerifySigner(minter signature.PublicKey) bool {
	if b.Signer == nil || b.Signer.PubKey != minter {
		return false
	}

	hash := b.Header.Hash()
	return b.Signer.Verify(hash[:])
}

// TxRoot returns the merkle root over the transactions.
func TxRoot(txs []tx.Tx) (signature.Digest, error) {
	tree, err := merkle.NewTree(txs)
	if err != nil {
		return signature.Digest{}, fmt.Errorf("tx root: %w", err)
	}

	return signature.DigestFromBytes(tree.Root())
}

// =============================================================================

// Encode returns the canonical form of the block.
func (b Block) Encode() []byte {
	w := codec.NewWriter(HeaderSize + 128 + len(b.Txs)*256)
	b.EncodeTo(w)
	return w.Bytes()
}

// EncodeTo writes the canonical form of the block.
func (b Block) EncodeTo(w *codec.Writer) {
	b.Header.EncodeTo(w)
	encodeSigner(w, b.Signer)
	w.PutI64(int64(b.Rewards))

	w.PutU32(uint32(len(b.Txs)))
	for _, trx := range b.Txs {
		trx.EncodeTo(w)
	}
}

// Decode parses the canonical form of a block. The entire input must be
// consumed.
func Decode(data []byte) (Block, error) {
	r := codec.NewReader(data)
	b := DecodeFrom(r)

	if err := r.Done(); err != nil {
		return Block{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return b, nil
}

// DecodeFrom parses a block from the reader.
func DecodeFrom(r *codec.Reader) Block {
	var b Block
	b.Header = DecodeHeader(r)
	b.Signer = decodeSigner(r)
	b.Rewards = asset.New(r.I64())

	n := r.U32()
	if r.Err() != nil {
		return Block{}
	}

	if n > maxTxs {
		r.Fail(fmt.Errorf("too many transactions: %d", n))
		return Block{}
	}

	if n > 0 {
		b.Txs = make([]tx.Tx, 0, n)
		for range n {
			trx := tx.DecodeFrom(r)
			if r.Err() != nil {
				return Block{}
			}
			b.Txs = append(b.Txs, trx)
		}
	}

	return b
}

func encodeSigner(w *codec.Writer, sp *signature.SigPair) {
	w.PutBool(sp != nil)
	if sp != nil {
		w.PutRaw(sp.PubKey[:])
		w.PutRaw(sp.Signature[:])
	}
}

func decodeSigner(r *codec.Reader) *signature.SigPair {
	if !r.Bool() {
		return nil
	}

	var sp signature.SigPair
	r.Raw(sp.PubKey[:])
	r.Raw(sp.Signature[:])

	return &sp
}
