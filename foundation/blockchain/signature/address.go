package signature

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

// Prefix is prepended to every checksummed text value so keys and addresses
// for this chain are recognizable when transcribed.
const Prefix = "GLD"

// Version bytes inside the checksummed payload.
const (
	versionPrivateKey byte = 0x01
	versionPublicKey  byte = 0x02
	versionScriptHash byte = 0x03
)

// Set of error variables for text decoding.
var (
	ErrInvalidPrefix  = errors.New("invalid prefix")
	ErrInvalidVersion = errors.New("invalid version")
)

// =============================================================================

// ScriptHash is a pay to script hash address: the double sha256 of a
// script's canonical byte form.
type ScriptHash Digest

// ScriptHashFromBytes copies the bytes into a script hash.
func ScriptHashFromBytes(b []byte) (ScriptHash, error) {
	d, err := DigestFromBytes(b)
	if err != nil {
		return ScriptHash{}, fmt.Errorf("script hash: %w", err)
	}

	return ScriptHash(d), nil
}

// ParseAddress decodes the checksummed text form of a script hash.
func ParseAddress(s string) (ScriptHash, error) {
	b, err := decodeWIF(versionScriptHash, s)
	if err != nil {
		return ScriptHash{}, fmt.Errorf("address: %w", err)
	}

	return ScriptHashFromBytes(b)
}

// String returns the checksummed text form of the address.
func (sh ScriptHash) String() string {
	return encodeWIF(versionScriptHash, sh[:])
}

// MarshalText implements the TextMarshaler interface.
func (sh ScriptHash) MarshalText() ([]byte, error) {
	return []byte(sh.String()), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (sh *ScriptHash) UnmarshalText(text []byte) error {
	v, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*sh = v

	return nil
}

// =============================================================================

// encodeWIF produces Prefix + base58(version | payload | checksum).
func encodeWIF(version byte, payload []byte) string {
	return Prefix + base58.CheckEncode(payload, version)
}

// decodeWIF reverses encodeWIF and validates the version byte.
func decodeWIF(version byte, s string) ([]byte, error) {
	if !strings.HasPrefix(s, Prefix) {
		return nil, ErrInvalidPrefix
	}

	payload, ver, err := base58.CheckDecode(strings.TrimPrefix(s, Prefix))
	if err != nil {
		return nil, err
	}

	if ver != version {
		return nil, fmt.Errorf("%w: got %d, exp %d", ErrInvalidVersion, ver, version)
	}

	return payload, nil
}
