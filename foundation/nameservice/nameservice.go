// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the development accounts.
package nameservice

import (
	"fmt"
	"io/fs"
	"maps"
	"path"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	addresses map[signature.ScriptHash]string
	keys      map[string]signature.KeyPair
}

// New constructs a name service with the single key addresses of the key
// files in the folder.
func New(root string) (*NameService, error) {
	ns := NameService{
		addresses: make(map[signature.ScriptHash]string),
		keys:      make(map[string]signature.KeyPair),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != ".ecdsa" {
			return nil
		}

		kp, err := signature.LoadKeyPair(fileName)
		if err != nil {
			return err
		}

		name := strings.TrimSuffix(path.Base(fileName), ".ecdsa")
		ns.addresses[script.AddressOf(kp.Public)] = name
		ns.keys[name] = kp

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address.
func (ns *NameService) Lookup(addr signature.ScriptHash) string {
	name, exists := ns.addresses[addr]
	if !exists {
		return addr.String()
	}
	return name
}

// Address returns the address of the named account.
func (ns *NameService) Address(name string) (signature.ScriptHash, bool) {
	kp, exists := ns.keys[name]
	if !exists {
		return signature.ScriptHash{}, false
	}
	return script.AddressOf(kp.Public), true
}

// Copy returns a copy of the map of names and addresses.
func (ns *NameService) Copy() map[signature.ScriptHash]string {
	return maps.Clone(ns.addresses)
}
