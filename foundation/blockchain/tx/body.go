package tx

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// Type identifies the kind of transaction body.
type Type uint8

// The set of transaction types.
const (
	TypeOwner    Type = 0x00
	TypeMint     Type = 0x01
	TypeTransfer Type = 0x02
)

// String returns the name of the type.
func (t Type) String() string {
	switch t {
	case TypeOwner:
		return "owner"
	case TypeMint:
		return "mint"
	case TypeTransfer:
		return "transfer"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Body is the type specific part of a transaction.
type Body interface {
	Type() Type
	encode(w *codec.Writer)
}

// =============================================================================

// Owner sets the minter key and the owner wallet. It is authorized by the
// script of the current owner wallet.
type Owner struct {
	Minter signature.PublicKey
	Wallet signature.ScriptHash
	Script script.Script
}

// Type implements the Body interface.
func (Owner) Type() Type { return TypeOwner }

func (b Owner) encode(w *codec.Writer) {
	w.PutRaw(b.Minter[:])
	w.PutRaw(b.Wallet[:])
	w.PutBytes(b.Script)
}

// Mint issues new units to an address. It is authorized by the script of the
// owner wallet.
type Mint struct {
	To             signature.ScriptHash
	Amount         asset.Asset
	Attachment     []byte
	AttachmentName string
	Script         script.Script
}

// Type implements the Body interface.
func (Mint) Type() Type { return TypeMint }

func (b Mint) encode(w *codec.Writer) {
	w.PutRaw(b.To[:])
	w.PutI64(int64(b.Amount))
	w.PutBytes(b.Attachment)
	w.PutString(b.AttachmentName)
	w.PutBytes(b.Script)
}

// Transfer moves units between addresses. It is authorized by the script of
// the From address.
type Transfer struct {
	From   signature.ScriptHash
	To     signature.ScriptHash
	Script script.Script
	Amount asset.Asset
	Memo   string
}

// Type implements the Body interface.
func (Transfer) Type() Type { return TypeTransfer }

func (b Transfer) encode(w *codec.Writer) {
	w.PutRaw(b.From[:])
	w.PutRaw(b.To[:])
	w.PutBytes(b.Script)
	w.PutI64(int64(b.Amount))
	w.PutString(b.Memo)
}

// =============================================================================

func decodeBody(typ Type, r *codec.Reader) Body {
	if r.Err() != nil {
		return nil
	}

	switch typ {
	case TypeOwner:
		var b Owner
		r.Raw(b.Minter[:])
		r.Raw(b.Wallet[:])
		b.Script = r.Bytes(maxDecodeSize)
		return b

	case TypeMint:
		var b Mint
		r.Raw(b.To[:])
		b.Amount = asset.New(r.I64())
		b.Attachment = r.Bytes(maxDecodeSize)
		b.AttachmentName = r.String(maxDecodeSize)
		b.Script = r.Bytes(maxDecodeSize)
		return b

	case TypeTransfer:
		var b Transfer
		r.Raw(b.From[:])
		r.Raw(b.To[:])
		b.Script = r.Bytes(maxDecodeSize)
		b.Amount = asset.New(r.I64())
		b.Memo = r.String(maxDecodeSize)
		return b
	}

	r.Fail(fmt.Errorf("unknown transaction type %d", typ))
	return nil
}

// ScriptOf returns the authorizing script of the body.
func ScriptOf(b Body) script.Script {
	switch b := b.(type) {
	case Owner:
		return b.Script
	case Mint:
		return b.Script
	case Transfer:
		return b.Script
	}
	return nil
}
