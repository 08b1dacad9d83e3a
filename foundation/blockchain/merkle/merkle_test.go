package merkle_test

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/merkle"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// Data uses the sha256 hashing algorithm for the merkle tree leafs.
type Data struct {
	x string
}

// Hash hashes the values using sha256.
func (d Data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d.x))
	return h[:], nil
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

func leaf(t *testing.T, d Data) []byte {
	t.Helper()
	h, _ := d.Hash()
	return h
}

func pair(left, right []byte) []byte {
	d := signature.DoubleSHA256(left, right)
	return d[:]
}

// =============================================================================

func Test_Root(t *testing.T) {
	a, b, c := Data{"Hello"}, Data{"Hi"}, Data{"Hey"}

	tt := []struct {
		name string
		data []Data
		exp  []byte
	}{
		{"empty", nil, func() []byte { d := signature.DoubleSHA256(); return d[:] }()},
		{"single", []Data{a}, leaf(t, a)},
		{"pair", []Data{a, b}, pair(leaf(t, a), leaf(t, b))},
		{"odd", []Data{a, b, c}, pair(pair(leaf(t, a), leaf(t, b)), pair(leaf(t, c), leaf(t, c)))},
	}

	for _, tst := range tt {
		tree, err := merkle.NewTree(tst.data)
		if err != nil {
			t.Fatalf("[%s] Should be able to build the tree: %s", tst.name, err)
		}

		if !bytes.Equal(tree.Root(), tst.exp) {
			t.Logf("got: %x", tree.Root())
			t.Logf("exp: %x", tst.exp)
			t.Fatalf("[%s] Should get back the right root.", tst.name)
		}

		if err := tree.Verify(); err != nil {
			t.Fatalf("[%s] Should be able to verify the tree: %s", tst.name, err)
		}
	}
}

func Test_Proof(t *testing.T) {
	data := []Data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}

	tree, err := merkle.NewTree(data)
	if err != nil {
		t.Fatalf("Should be able to build the tree: %s", err)
	}

	for _, d := range data {
		proof, order, err := tree.Proof(d)
		if err != nil {
			t.Fatalf("Should be able to get a proof for %q: %s", d.x, err)
		}

		if !merkle.VerifyProof(tree.Root(), leaf(t, d), proof, order, nil) {
			t.Fatalf("Should be able to verify the proof for %q.", d.x)
		}

		if merkle.VerifyProof(tree.Root(), leaf(t, Data{"z"}), proof, order, nil) {
			t.Fatalf("Should not verify a different value against the proof for %q.", d.x)
		}
	}

	if _, _, err := tree.Proof(Data{"z"}); !errors.Is(err, merkle.ErrNotFound) {
		t.Fatalf("Should not find a value outside the tree: %v", err)
	}
}

func Test_HashStrategy(t *testing.T) {
	data := []Data{{"a"}, {"b"}}

	concat := func(l, r []byte) []byte {
		return append(append([]byte{}, l...), r...)
	}

	tree, err := merkle.NewTree(data, merkle.WithHashStrategy[Data](concat))
	if err != nil {
		t.Fatalf("Should be able to build the tree: %s", err)
	}

	exp := concat(leaf(t, data[0]), leaf(t, data[1]))
	if !bytes.Equal(tree.Root(), exp) {
		t.Fatalf("Should use the configured hash strategy.")
	}
}
