package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// PublicKey is a compressed secp256k1 public key.
type PublicKey [PublicKeySize]byte

// PublicKeyFromBytes validates and copies a compressed public key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("public key: %w: %d", ErrInvalidLength, len(b))
	}

	if _, err := crypto.DecompressPubkey(b); err != nil {
		return pk, fmt.Errorf("public key: %w", err)
	}
	copy(pk[:], b)

	return pk, nil
}

// String returns the checksummed text form of the public key.
func (pk PublicKey) String() string {
	return encodeWIF(versionPublicKey, pk[:])
}

// MarshalText implements the TextMarshaler interface.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (pk *PublicKey) UnmarshalText(text []byte) error {
	v, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = v

	return nil
}

// ParsePublicKey decodes the checksummed text form of a public key.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := decodeWIF(versionPublicKey, s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("public key: %w", err)
	}

	return PublicKeyFromBytes(b)
}

// =============================================================================

// KeyPair is a private key together with its compressed public key.
type KeyPair struct {
	Public  PublicKey
	private *ecdsa.PrivateKey
}

// GenerateKeyPair constructs a new key pair from secure randomness.
func GenerateKeyPair() (KeyPair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key: %w", err)
	}

	return NewKeyPair(privateKey), nil
}

// NewKeyPair constructs a key pair from an existing private key.
func NewKeyPair(privateKey *ecdsa.PrivateKey) KeyPair {
	var pk PublicKey
	copy(pk[:], crypto.CompressPubkey(&privateKey.PublicKey))

	return KeyPair{
		Public:  pk,
		private: privateKey,
	}
}

// KeyPairFromHex constructs a key pair from a hex encoded private key.
func KeyPairFromHex(hexKey string) (KeyPair, error) {
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("private key: %w", err)
	}

	return NewKeyPair(privateKey), nil
}

// ParsePrivateKey decodes the checksummed text form of a private key.
func ParsePrivateKey(s string) (KeyPair, error) {
	b, err := decodeWIF(versionPrivateKey, s)
	if err != nil {
		return KeyPair{}, fmt.Errorf("private key: %w", err)
	}

	privateKey, err := crypto.ToECDSA(b)
	if err != nil {
		return KeyPair{}, fmt.Errorf("private key: %w", err)
	}

	return NewKeyPair(privateKey), nil
}

// LoadKeyPair reads a hex encoded private key file.
func LoadKeyPair(path string) (KeyPair, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return KeyPair{}, fmt.Errorf("load key %q: %w", path, err)
	}

	return NewKeyPair(privateKey), nil
}

// Save writes the private key as hex to the specified file.
func (kp KeyPair) Save(path string) error {
	if err := crypto.SaveECDSA(path, kp.private); err != nil {
		return fmt.Errorf("save key %q: %w", path, err)
	}

	return nil
}

// PrivateWIF returns the checksummed text form of the private key.
func (kp KeyPair) PrivateWIF() string {
	return encodeWIF(versionPrivateKey, crypto.FromECDSA(kp.private))
}

// Sign signs sha256(msg) with the private key. The resulting signature is
// always SignatureSize bytes.
func (kp KeyPair) Sign(msg []byte) (SigPair, error) {
	digest := sha256.Sum256(msg)

	// Sign the hash with the private key to produce a 65 byte signature.
	sig, err := crypto.Sign(digest[:], kp.private)
	if err != nil {
		return SigPair{}, fmt.Errorf("sign: %w", err)
	}

	// Drop the recovery id, the public key travels with the signature.
	var sp SigPair
	sp.PubKey = kp.Public
	copy(sp.Signature[:], sig[:crypto.RecoveryIDOffset])

	return sp, nil
}
