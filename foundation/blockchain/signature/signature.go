// Package signature provides helper functions for handling the blockchain
// hashing, signing and addressing needs.
package signature

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Sizes of the fixed length values.
const (
	DigestSize    = 32
	PublicKeySize = 33
	SignatureSize = 64
)

// ErrInvalidLength is returned when a fixed size value has the wrong size.
var ErrInvalidLength = errors.New("invalid length")

// =============================================================================

// Digest represents a 32 byte hash.
type Digest [DigestSize]byte

// ZeroDigest represents a hash code of zeros.
var ZeroDigest Digest

// DoubleSHA256 returns sha256(sha256(parts...)). This is the hash function
// used for transaction ids, block hashes and script hashes.
func DoubleSHA256(parts ...[]byte) Digest {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}

	first := h.Sum(nil)
	return sha256.Sum256(first)
}

// DigestFromBytes copies the bytes into a digest.
func DigestFromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestSize {
		return d, fmt.Errorf("digest: %w: %d", ErrInvalidLength, len(b))
	}
	copy(d[:], b)

	return d, nil
}

// DigestFromHex decodes a 0x prefixed hex string into a digest.
func DigestFromHex(s string) (Digest, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Digest{}, fmt.Errorf("digest: %w", err)
	}

	return DigestFromBytes(b)
}

// IsZero reports whether the digest is all zeros.
func (d Digest) IsZero() bool {
	return d == ZeroDigest
}

// String returns the 0x prefixed hex form of the digest.
func (d Digest) String() string {
	return hexutil.Encode(d[:])
}

// MarshalText implements the TextMarshaler interface.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (d *Digest) UnmarshalText(text []byte) error {
	v, err := DigestFromHex(string(text))
	if err != nil {
		return err
	}
	*d = v

	return nil
}

// =============================================================================

// Signature is a secp256k1 signature in the [R || S] format.
type Signature [SignatureSize]byte

// String returns the 0x prefixed hex form of the signature.
func (s Signature) String() string {
	return hexutil.Encode(s[:])
}

// SigPair binds a signature to the public key that produced it.
type SigPair struct {
	PubKey    PublicKey
	Signature Signature
}

// Verify reports whether the pair is a valid signature of msg.
func (sp SigPair) Verify(msg []byte) bool {
	return Verify(sp.PubKey, msg, sp.Signature)
}

// Equal reports whether both pairs are byte identical.
func (sp SigPair) Equal(other SigPair) bool {
	return bytes.Equal(sp.PubKey[:], other.PubKey[:]) && bytes.Equal(sp.Signature[:], other.Signature[:])
}

// Verify checks the signature of msg against the public key. Malformed keys
// and signatures are not errors, they simply fail verification.
func Verify(pub PublicKey, msg []byte, sig Signature) bool {
	digest := sha256.Sum256(msg)
	return crypto.VerifySignature(pub[:], digest[:], sig[:])
}
