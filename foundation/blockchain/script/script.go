// Package script implements the spending conditions that back every pay to
// script hash address. A script is a small stack program evaluated against
// the signatures attached to a transaction.
package script

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// MaxSize is the largest script accepted on the chain.
const MaxSize = 2048

// MaxStack is the deepest the evaluation stack may grow.
const MaxStack = 64

// Op is a single script operand.
type Op byte

// The set of operands understood by the engine.
const (
	OpPushFalse  Op = 0x20
	OpPushTrue   Op = 0x21
	OpPushPubKey Op = 0x22
	OpNot        Op = 0x40
	OpIf         Op = 0x41
	OpElse       Op = 0x42
	OpEndIf      Op = 0x43
	OpReturn     Op = 0x44
	OpCheckSig   Op = 0x50
	OpCheckSigFF Op = 0x51
	OpMultiSig   Op = 0x52
	OpMultiSigFF Op = 0x53
)

var opNames = map[Op]string{
	OpPushFalse:  "OP_FALSE",
	OpPushTrue:   "OP_TRUE",
	OpPushPubKey: "OP_PUBKEY",
	OpNot:        "OP_NOT",
	OpIf:         "OP_IF",
	OpElse:       "OP_ELSE",
	OpEndIf:      "OP_ENDIF",
	OpReturn:     "OP_RETURN",
	OpCheckSig:   "OP_CHECKSIG",
	OpCheckSigFF: "OP_CHECKSIGFASTFAIL",
	OpMultiSig:   "OP_CHECKMULTISIG",
	OpMultiSigFF: "OP_CHECKMULTISIGFASTFAIL",
}

// String returns the mnemonic for the operand.
func (op Op) String() string {
	if name, exists := opNames[op]; exists {
		return name
	}
	return "OP_UNKNOWN"
}

// ErrTooLarge is returned when a script exceeds MaxSize.
var ErrTooLarge = errors.New("script too large")

// =============================================================================

// Script is the canonical byte form of a spending condition.
type Script []byte

// Hash returns the pay to script hash address of the script.
func (s Script) Hash() signature.ScriptHash {
	return signature.ScriptHash(signature.DoubleSHA256(s))
}

// FromPublicKey returns the single signer script for the key.
func FromPublicKey(pk signature.PublicKey) Script {
	s, _ := NewBuilder().PushPubKey(pk).Push(OpCheckSig).Build()
	return s
}

// AddressOf returns the address of the single signer script for the key.
func AddressOf(pk signature.PublicKey) signature.ScriptHash {
	return FromPublicKey(pk).Hash()
}

// MultiSig returns a script satisfied by threshold signatures from keys,
// provided in key order.
func MultiSig(threshold uint8, keys ...signature.PublicKey) (Script, error) {
	if len(keys) > 255 {
		return nil, fmt.Errorf("multisig: too many keys: %d", len(keys))
	}

	if int(threshold) > len(keys) {
		return nil, fmt.Errorf("multisig: threshold %d exceeds %d keys", threshold, len(keys))
	}

	b := NewBuilder()
	for _, key := range keys {
		b.PushPubKey(key)
	}
	b.PushMultiSig(threshold, uint8(len(keys)))

	return b.Build()
}

// =============================================================================

// Builder assembles a script.
type Builder struct {
	buf []byte
}

// NewBuilder constructs an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Push appends an operand without arguments.
func (b *Builder) Push(op Op) *Builder {
	b.buf = append(b.buf, byte(op))
	return b
}

// PushPubKey appends a public key push.
func (b *Builder) PushPubKey(pk signature.PublicKey) *Builder {
	b.buf = append(b.buf, byte(OpPushPubKey))
	b.buf = append(b.buf, pk[:]...)
	return b
}

// PushMultiSig appends a multisig check over the top count keys.
func (b *Builder) PushMultiSig(threshold uint8, count uint8) *Builder {
	b.buf = append(b.buf, byte(OpMultiSig), threshold, count)
	return b
}

// PushMultiSigFastFail appends a multisig check that aborts evaluation when
// it is not satisfied.
func (b *Builder) PushMultiSigFastFail(threshold uint8, count uint8) *Builder {
	b.buf = append(b.buf, byte(OpMultiSigFF), threshold, count)
	return b
}

// Build returns the script or ErrTooLarge.
func (b *Builder) Build() (Script, error) {
	if len(b.buf) > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(b.buf))
	}

	s := make(Script, len(b.buf))
	copy(s, b.buf)

	return s, nil
}
