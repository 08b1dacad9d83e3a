// Based on github.com/cbergoon/merkletree, Copyright 2017 Cameron Bergoon.
// Licensed under the MIT License.

// Package merkle provides the merkle tree used to commit a block to the
// set of transactions it carries.
package merkle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotFound is returned when a proof is requested for a value that is not
// part of the tree.
var ErrNotFound = errors.New("value not found in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// HashFunc combines the hashes of two children into the parent hash.
type HashFunc func(left []byte, right []byte) []byte

// DoubleSHA256 is the default hash strategy.
func DoubleSHA256(left []byte, right []byte) []byte {
	d := signature.DoubleSHA256(left, right)
	return d[:]
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits
// the behavior defined by the Hashable constraint. Levels are stored bottom
// up, level 0 holds the leaf hashes.
type Tree[T Hashable[T]] struct {
	values   []T
	levels   [][][]byte
	hashFunc HashFunc
}

// WithHashStrategy is used to change the default hash strategy when
// constructing a new tree.
func WithHashStrategy[T Hashable[T]](fn HashFunc) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashFunc = fn
	}
}

// NewTree constructs a new merkle tree over the values. An empty set of
// values produces a tree whose root is the hash of nothing.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashFunc: DoubleSHA256,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// generate constructs every level of the tree. An odd node at any level is
// paired with itself.
func (t *Tree[T]) generate(values []T) error {
	leafs := make([][]byte, len(values))
	for i, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return fmt.Errorf("hash value %d: %w", i, err)
		}
		leafs[i] = hash
	}

	t.values = values
	t.levels = [][][]byte{leafs}

	if len(leafs) == 0 {
		root := signature.DoubleSHA256()
		t.levels = append(t.levels, [][]byte{root[:]})
		return nil
	}

	level := leafs
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := i + 1
			if right == len(level) {
				right = i
			}
			next = append(next, t.hashFunc(level[i], level[right]))
		}

		t.levels = append(t.levels, next)
		level = next
	}

	return nil
}

// Root returns the merkle root.
func (t *Tree[T]) Root() []byte {
	top := t.levels[len(t.levels)-1]
	if len(top) == 0 {
		return nil
	}
	return top[0]
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.Root())
}

// Values returns the values stored in the tree.
func (t *Tree[T]) Values() []T {
	return t.values
}

// Proof returns the set of sibling hashes and the concatenation order needed
// to prove the value is in the tree. An order of 0 means the proof hash comes
// first, an order of 1 means it comes second.
func (t *Tree[T]) Proof(value T) ([][]byte, []int64, error) {
	index := -1
	for i, v := range t.values {
		if v.Equals(value) {
			index = i
			break
		}
	}

	if index == -1 {
		return nil, nil, ErrNotFound
	}

	var proof [][]byte
	var order []int64

	for _, level := range t.levels[:len(t.levels)-1] {
		if index%2 == 0 {
			sibling := index + 1
			if sibling == len(level) {
				sibling = index
			}
			proof = append(proof, level[sibling])
			order = append(order, 1)
		} else {
			proof = append(proof, level[index-1])
			order = append(order, 0)
		}
		index /= 2
	}

	return proof, order, nil
}

// Verify recomputes the root from the stored values and compares it with the
// root the tree holds.
func (t *Tree[T]) Verify() error {
	other, err := NewTree(t.values, WithHashStrategy[T](t.hashFunc))
	if err != nil {
		return err
	}

	if !bytes.Equal(other.Root(), t.Root()) {
		return errors.New("root hash invalid")
	}

	return nil
}

// VerifyProof processes the value hash against the proof and reports whether
// the result matches the root.
func VerifyProof(root []byte, hash []byte, proof [][]byte, order []int64, fn HashFunc) bool {
	if len(proof) != len(order) {
		return false
	}

	if fn == nil {
		fn = DoubleSHA256
	}

	current := hash
	for i, p := range proof {
		switch order[i] {
		case 0:
			current = fn(p, current)
		default:
			current = fn(current, p)
		}
	}

	return bytes.Equal(current, root)
}
