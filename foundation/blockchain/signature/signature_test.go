package signature_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

// =============================================================================

func Test_Signing(t *testing.T) {
	kp, err := signature.KeyPairFromHex(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to construct a key pair: %s", err)
	}

	msg := []byte("one ounce of gold")

	sp, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	if !sp.Verify(msg) {
		t.Fatalf("Should be able to verify the signature.")
	}

	if sp.PubKey != kp.Public {
		t.Fatalf("Should carry the signer public key.")
	}

	sp2, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("Should be able to sign data twice: %s", err)
	}

	if !sp.Equal(sp2) {
		t.Logf("got: %s", sp2.Signature)
		t.Logf("exp: %s", sp.Signature)
		t.Fatalf("Should produce a deterministic signature.")
	}

	if sp.Verify([]byte("two ounces of gold")) {
		t.Fatalf("Should not verify a different message.")
	}
}

func Test_VerifyMalformed(t *testing.T) {
	kp, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	msg := []byte("data")
	sp, err := kp.Sign(msg)
	if err != nil {
		t.Fatalf("Should be able to sign data: %s", err)
	}

	var zeroKey signature.PublicKey
	var zeroSig signature.Signature

	flipped := sp.Signature
	flipped[10] ^= 0xff

	other, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	tt := []struct {
		name string
		pub  signature.PublicKey
		sig  signature.Signature
	}{
		{"zero key", zeroKey, sp.Signature},
		{"zero sig", kp.Public, zeroSig},
		{"flipped sig", kp.Public, flipped},
		{"wrong key", other.Public, sp.Signature},
	}

	for _, tst := range tt {
		if signature.Verify(tst.pub, msg, tst.sig) {
			t.Fatalf("Should reject a %s.", tst.name)
		}
		t.Logf("Should reject a %s.", tst.name)
	}
}

func Test_DoubleSHA256(t *testing.T) {
	exp := "0x5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"

	h := signature.DoubleSHA256()
	if h.String() != exp {
		t.Logf("got: %s", h)
		t.Logf("exp: %s", exp)
		t.Fatalf("Should get back the right hash of nothing.")
	}

	if signature.DoubleSHA256([]byte("ab"), []byte("c")) != signature.DoubleSHA256([]byte("abc")) {
		t.Fatalf("Should hash the concatenation of the parts.")
	}

	d, err := signature.DigestFromHex(exp)
	if err != nil {
		t.Fatalf("Should be able to parse the digest: %s", err)
	}

	if d != h {
		t.Fatalf("Should get back the same digest.")
	}
}

func Test_TextForms(t *testing.T) {
	kp, err := signature.KeyPairFromHex(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to construct a key pair: %s", err)
	}

	pub, err := signature.ParsePublicKey(kp.Public.String())
	if err != nil {
		t.Fatalf("Should be able to parse the public key: %s", err)
	}
	if pub != kp.Public {
		t.Fatalf("Should get back the same public key.")
	}

	kp2, err := signature.ParsePrivateKey(kp.PrivateWIF())
	if err != nil {
		t.Fatalf("Should be able to parse the private key: %s", err)
	}
	if kp2.Public != kp.Public {
		t.Fatalf("Should get back the same private key.")
	}

	sh := signature.ScriptHash(signature.DoubleSHA256([]byte("script")))
	addr, err := signature.ParseAddress(sh.String())
	if err != nil {
		t.Fatalf("Should be able to parse the address: %s", err)
	}
	if addr != sh {
		t.Fatalf("Should get back the same address.")
	}

	if _, err := signature.ParseAddress(kp.Public.String()); !errors.Is(err, signature.ErrInvalidVersion) {
		t.Fatalf("Should reject a public key as an address: %v", err)
	}

	if _, err := signature.ParseAddress("XYZ" + sh.String()[3:]); !errors.Is(err, signature.ErrInvalidPrefix) {
		t.Fatalf("Should reject a bad prefix: %v", err)
	}

	s := sh.String()
	last := s[len(s)-1]
	swap := byte('2')
	if last == swap {
		swap = '3'
	}
	if _, err := signature.ParseAddress(s[:len(s)-1] + string(swap)); err == nil {
		t.Fatalf("Should reject a bad checksum.")
	}
}

func Test_SaveLoad(t *testing.T) {
	kp, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	path := filepath.Join(t.TempDir(), "kennedy.ecdsa")
	if err := kp.Save(path); err != nil {
		t.Fatalf("Should be able to save the key: %s", err)
	}

	kp2, err := signature.LoadKeyPair(path)
	if err != nil {
		t.Fatalf("Should be able to load the key: %s", err)
	}

	if kp2.Public != kp.Public {
		t.Fatalf("Should get back the same key.")
	}
}
