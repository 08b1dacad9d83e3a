// Package tx provides the transaction model of the ledger, its canonical
// binary form, and the transaction id that signatures commit to.
package tx

import (
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// ErrMalformed is returned when a transaction cannot be constructed or
// decoded.
var ErrMalformed = errors.New("malformed transaction")

// Version is the only transaction encoding version understood.
const Version uint16 = 0

// Limits enforced while decoding. The ledger limits are tighter and are
// checked by validation so they can be reported with a reason.
const (
	MaxSignatures = 255
	maxDecodeSize = codec.MaxFieldSize
)

// ChainID identifies the network a transaction is valid on.
type ChainID uint16

// The set of known networks.
const (
	Mainnet ChainID = 0x0000
	Testnet ChainID = 0x0001
)

// String returns the network name.
func (c ChainID) String() string {
	switch c {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	}
	return fmt.Sprintf("chain(%d)", uint16(c))
}

// =============================================================================

// Tx is a signed transaction.
type Tx struct {
	Nonce  uint32
	Expiry uint64
	Fee    asset.Asset
	Body   Body
	Sigs   []signature.SigPair
}

// New constructs an unsigned transaction.
func New(nonce uint32, expiry uint64, fee asset.Asset, body Body) (Tx, error) {
	if body == nil {
		return Tx{}, fmt.Errorf("%w: missing body", ErrMalformed)
	}

	if expiry == 0 {
		return Tx{}, fmt.Errorf("%w: missing expiry", ErrMalformed)
	}

	tx := Tx{
		Nonce:  nonce,
		Expiry: expiry,
		Fee:    fee,
		Body:   body,
	}

	return tx, nil
}

// Type returns the type of the body.
func (tx Tx) Type() Type {
	if tx.Body == nil {
		return 0
	}
	return tx.Body.Type()
}

// ExpiresAt returns the expiry as a time.
func (tx Tx) ExpiresAt() time.Time {
	return time.Unix(int64(tx.Expiry), 0).UTC()
}

// ID returns the transaction id for the specified network. The id covers
// every field except the signatures, so it can be computed before signing.
func (tx Tx) ID(chain ChainID) signature.Digest {
	w := codec.NewWriter(128)
	w.PutU16(uint16(chain))
	tx.encodeUnsigned(w)

	return signature.DoubleSHA256(w.Bytes())
}

// Sign appends a signature over the transaction id.
func (tx *Tx) Sign(chain ChainID, kp signature.KeyPair) error {
	id := tx.ID(chain)

	sp, err := kp.Sign(id[:])
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}

	tx.Sigs = append(tx.Sigs, sp)

	return nil
}

// Addresses returns every address the transaction touches.
func (tx Tx) Addresses() []signature.ScriptHash {
	switch b := tx.Body.(type) {
	case Owner:
		return []signature.ScriptHash{b.Wallet}
	case Mint:
		return []signature.ScriptHash{b.To}
	case Transfer:
		return []signature.ScriptHash{b.From, b.To}
	}
	return nil
}

// Hash implements the merkle Hashable interface. It is the double sha256 of
// the signed form.
func (tx Tx) Hash() ([]byte, error) {
	d := signature.DoubleSHA256(tx.Encode())
	return d[:], nil
}

// Equals implements the merkle Hashable interface.
func (tx Tx) Equals(other Tx) bool {
	return string(tx.Encode()) == string(other.Encode())
}

// =============================================================================

// Encode returns the canonical signed form of the transaction.
func (tx Tx) Encode() []byte {
	w := codec.NewWriter(128 + len(tx.Sigs)*(signature.PublicKeySize+signature.SignatureSize))
	tx.EncodeTo(w)
	return w.Bytes()
}

// EncodeTo writes the canonical signed form to the writer.
func (tx Tx) EncodeTo(w *codec.Writer) {
	tx.encodeUnsigned(w)

	w.PutU8(uint8(len(tx.Sigs)))
	for _, sp := range tx.Sigs {
		w.PutRaw(sp.PubKey[:])
		w.PutRaw(sp.Signature[:])
	}
}

// encodeUnsigned panics on a transaction without a body. New and Decode never
// produce one, and its bytes could not be decoded again.
func (tx Tx) encodeUnsigned(w *codec.Writer) {
	if tx.Body == nil {
		panic("tx: encode of a transaction without a body")
	}

	w.PutU16(Version)
	w.PutU8(uint8(tx.Type()))
	w.PutU32(tx.Nonce)
	w.PutU64(tx.Expiry)
	w.PutI64(int64(tx.Fee))
	tx.Body.encode(w)
}

// Decode parses the canonical signed form. The entire input must be
// consumed.
func Decode(data []byte) (Tx, error) {
	r := codec.NewReader(data)
	tx := DecodeFrom(r)

	if err := r.Done(); err != nil {
		return Tx{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return tx, nil
}

// DecodeFrom parses a transaction from the reader. Failures are recorded in
// the reader's sticky error.
func DecodeFrom(r *codec.Reader) Tx {
	if v := r.U16(); v != Version && r.Err() == nil {
		r.Fail(fmt.Errorf("unknown version %d", v))
		return Tx{}
	}

	typ := Type(r.U8())

	var tx Tx
	tx.Nonce = r.U32()
	tx.Expiry = r.U64()
	tx.Fee = asset.New(r.I64())
	tx.Body = decodeBody(typ, r)

	n := int(r.U8())
	if r.Err() != nil {
		return Tx{}
	}

	if n > 0 {
		tx.Sigs = make([]signature.SigPair, n)
		for i := range tx.Sigs {
			r.Raw(tx.Sigs[i].PubKey[:])
			r.Raw(tx.Sigs[i].Signature[:])
		}
	}

	if r.Err() != nil {
		return Tx{}
	}

	return tx
}
