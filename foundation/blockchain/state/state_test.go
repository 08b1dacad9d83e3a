package state_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/state"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	genesisPath = "../../../zblock/genesis.json"
	accountsDir = "../../../zblock/accounts/"
)

func loadKey(t *testing.T, name string) signature.KeyPair {
	t.Helper()

	kp, err := signature.LoadKeyPair(accountsDir + name + ".ecdsa")
	if err != nil {
		t.Fatalf("Should be able to load the %s key: %s", name, err)
	}
	return kp
}

func loadGenesis(t *testing.T) genesis.Genesis {
	t.Helper()

	g, err := genesis.Load(genesisPath)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %s", err)
	}
	return g
}

func transfer(t *testing.T, g genesis.Genesis, from signature.KeyPair, to signature.KeyPair, amount string, nonce uint32) tx.Tx {
	t.Helper()

	body := tx.Transfer{
		From:   script.AddressOf(from.Public),
		To:     script.AddressOf(to.Public),
		Script: script.FromPublicKey(from.Public),
		Amount: asset.MustParse(amount),
	}

	expiry := uint64(time.Now().Unix()) + 60

	trx, err := tx.New(nonce, expiry, g.MinFee, body)
	if err != nil {
		t.Fatalf("Should be able to construct a transfer: %s", err)
	}

	if err := trx.Sign(g.Chain(), from); err != nil {
		t.Fatalf("Should be able to sign the transfer: %s", err)
	}

	return trx
}

func balance(t *testing.T, s *state.State, kp signature.KeyPair) asset.Asset {
	t.Helper()

	info, err := s.AddressInfo(script.AddressOf(kp.Public))
	if err != nil {
		t.Fatalf("Should be able to get the address info: %s", err)
	}
	return info.Balance
}

func newMinter(t *testing.T, dir string) *state.State {
	t.Helper()

	minter := loadKey(t, "minter")

	s, err := state.New(state.Config{
		Genesis:        loadGenesis(t),
		Storage:        storage.Config{Dir: dir},
		Minter:         &minter,
		OwnerKeys:      []signature.KeyPair{loadKey(t, "owner")},
		SelectStrategy: "fee",
	})
	if err != nil {
		t.Fatalf("Should be able to start the minter: %s", err)
	}

	return s
}

// =============================================================================

func TestMint(t *testing.T) {
	g := loadGenesis(t)
	alice := loadKey(t, "alice")
	bob := loadKey(t, "bob")

	s := newMinter(t, t.TempDir())
	defer s.Shutdown()

	t.Log("Given the need to mint blocks from submitted transactions.")
	{
		t.Logf("\tTest 0:\tWhen the chain starts.")
		{
			props, err := s.Properties()
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to get the properties: %s", failed, err)
			}
			if props.Height != 0 || props.TokenSupply != asset.MustParse("1500.00000 GOLD") {
				t.Fatalf("\t%s\tTest 0:\tShould start from genesis: height %d supply %s", failed, props.Height, props.TokenSupply)
			}
			t.Logf("\t%s\tTest 0:\tShould start from genesis.", success)
		}

		t.Logf("\tTest 1:\tWhen submitting transactions.")
		{
			trx := transfer(t, g, alice, bob, "10.00000 GOLD", 1)

			id, err := s.SubmitTx(trx)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the transfer: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the transfer.", success)

			_, err = s.SubmitTx(trx)
			txErr, ok := validate.AsTxError(err)
			if !ok || txErr.Reason != validate.ReasonTxDupe {
				t.Fatalf("\t%s\tTest 1:\tShould reject the duplicate: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the duplicate.", success)

			_, err = s.SubmitTx(transfer(t, g, alice, bob, "990.00000 GOLD", 2))
			txErr, ok = validate.AsTxError(err)
			if !ok || txErr.Reason != validate.ReasonInsufficientBalance {
				t.Fatalf("\t%s\tTest 1:\tShould reject spending pooled funds twice: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject spending pooled funds twice.", success)

			if got := balance(t, s, alice); got != asset.MustParse("989.99975 GOLD") {
				t.Fatalf("\t%s\tTest 1:\tShould include the pool in the balance: %s", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould include the pool in the balance.", success)

			b, err := s.MintBlock()
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mint a block: %s", failed, err)
			}
			if b.Header.Height != 1 || len(b.Txs) != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould mint the pooled transfer: height %d txs %d", failed, b.Header.Height, len(b.Txs))
			}
			t.Logf("\t%s\tTest 1:\tShould mint the pooled transfer.", success)

			if s.MempoolCount() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould empty the pool.", failed)
			}

			height, err := s.TxHeight(id)
			if err != nil || height != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould index the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould index the transaction.", success)

			if got := balance(t, s, bob); got != asset.MustParse("510.00000 GOLD") {
				t.Fatalf("\t%s\tTest 1:\tShould credit the receiver: %s", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould credit the receiver.", success)

			_, err = s.SubmitTx(trx)
			txErr, ok = validate.AsTxError(err)
			if !ok || txErr.Reason != validate.ReasonTxDupe {
				t.Fatalf("\t%s\tTest 1:\tShould reject a committed transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject a committed transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen the pool is empty.")
		{
			b, err := s.MintBlock()
			if err != nil || b.Header.Height != 2 || len(b.Txs) != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould mint an empty block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould mint an empty block.", success)
		}
	}
}

func TestFollow(t *testing.T) {
	g := loadGenesis(t)
	alice := loadKey(t, "alice")
	bob := loadKey(t, "bob")

	minter := newMinter(t, t.TempDir())
	defer minter.Shutdown()

	if _, err := minter.SubmitTx(transfer(t, g, alice, bob, "1.00000 GOLD", 1)); err != nil {
		t.Fatalf("Should accept the transfer: %s", err)
	}
	if _, err := minter.MintBlock(); err != nil {
		t.Fatalf("Should be able to mint a block: %s", err)
	}

	follower, err := state.New(state.Config{
		Genesis: g,
		Storage: storage.Config{Dir: t.TempDir()},
	})
	if err != nil {
		t.Fatalf("Should be able to start the follower without a select strategy: %s", err)
	}
	defer follower.Shutdown()

	t.Log("Given the need to follow the minter.")
	{
		if _, ok := follower.Height(); ok {
			t.Fatalf("\t%s\tShould start without a chain.", failed)
		}
		if _, err := follower.SubmitTx(transfer(t, g, alice, bob, "1.00000 GOLD", 9)); !errors.Is(err, state.ErrNotMinter) {
			t.Fatalf("\t%s\tShould refuse transactions before genesis: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse transactions before genesis.", success)

		for height := uint64(0); height <= 1; height++ {
			b, err := minter.Block(height)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to read block %d: %s", failed, height, err)
			}
			if err := follower.ProcessBlock(b); err != nil {
				t.Fatalf("\t%s\tShould accept block %d: %s", failed, height, err)
			}
		}
		t.Logf("\t%s\tShould accept the minted blocks.", success)

		if balance(t, follower, bob) != balance(t, minter, bob) {
			t.Fatalf("\t%s\tShould reach the same balances.", failed)
		}
		t.Logf("\t%s\tShould reach the same balances.", success)

		b, _ := minter.Block(1)
		if err := follower.ProcessBlock(b); err != nil {
			t.Fatalf("\t%s\tShould accept a committed block again: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a committed block again.", success)

		head, _ := follower.Head()
		forged, err := block.NewChild(head, head.Timestamp+3, nil)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct a block: %s", failed, err)
		}
		if err := forged.Sign(alice); err != nil {
			t.Fatalf("\t%s\tShould be able to sign a block: %s", failed, err)
		}

		err = follower.ProcessBlock(forged)
		var blkErr *validate.BlockError
		if !errors.As(err, &blkErr) || blkErr.Reason != validate.BlockInvalidSignature {
			t.Fatalf("\t%s\tShould reject a block not signed by the minter: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a block not signed by the minter.", success)

		if _, err := follower.MintBlock(); !errors.Is(err, state.ErrNotMinter) {
			t.Fatalf("\t%s\tShould refuse to mint on a follower: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to mint on a follower.", success)

		trx := transfer(t, g, alice, bob, "1.00000 GOLD", 2)
		if _, err := follower.Broadcast(trx); !errors.Is(err, state.ErrNotMinter) {
			t.Fatalf("\t%s\tShould refuse broadcast transactions on a follower: %v", failed, err)
		}
		if follower.MempoolCount() != 0 {
			t.Fatalf("\t%s\tShould keep the follower pool empty.", failed)
		}
		t.Logf("\t%s\tShould refuse broadcast transactions on a follower.", success)
	}
}

func TestReindex(t *testing.T) {
	g := loadGenesis(t)
	alice := loadKey(t, "alice")
	bob := loadKey(t, "bob")

	dir := t.TempDir()
	s := newMinter(t, dir)

	if _, err := s.SubmitTx(transfer(t, g, alice, bob, "2.00000 GOLD", 1)); err != nil {
		t.Fatalf("Should accept the transfer: %s", err)
	}
	if _, err := s.MintBlock(); err != nil {
		t.Fatalf("Should be able to mint a block: %s", err)
	}

	want := balance(t, s, alice)

	if err := s.Reindex(); err != nil {
		t.Fatalf("Should be able to reindex: %s", err)
	}

	if height, _ := s.Height(); height != 1 {
		t.Fatalf("Should keep every block: height %d", height)
	}
	if got := balance(t, s, alice); got != want {
		t.Fatalf("Should rebuild the balances: got %s want %s", got, want)
	}
	s.Shutdown()

	// Reopening the store keeps the chain without rebuilding genesis.
	s = newMinter(t, dir)
	defer s.Shutdown()

	if height, _ := s.Height(); height != 1 {
		t.Fatalf("Should reopen the same chain: height %d", height)
	}
	if got := balance(t, s, alice); got != want {
		t.Fatalf("Should reopen the same balances: got %s want %s", got, want)
	}
}

func TestReindexWrongGenesis(t *testing.T) {
	g := loadGenesis(t)
	alice := loadKey(t, "alice")
	bob := loadKey(t, "bob")

	dir := t.TempDir()
	s := newMinter(t, dir)

	for nonce := uint32(1); nonce <= 3; nonce++ {
		if _, err := s.SubmitTx(transfer(t, g, alice, bob, "1.00000 GOLD", nonce)); err != nil {
			t.Fatalf("Should accept the transfer: %s", err)
		}
		if _, err := s.MintBlock(); err != nil {
			t.Fatalf("Should be able to mint a block: %s", err)
		}
	}
	s.Shutdown()

	logPath := filepath.Join(dir, "blocks.log")
	before, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Should be able to stat the log: %s", err)
	}

	if err := os.RemoveAll(filepath.Join(dir, "index")); err != nil {
		t.Fatalf("Should be able to remove the index: %s", err)
	}

	t.Log("Given the need to keep the chain when the genesis file does not match it.")
	{
		other := g
		other.Date = g.Date.Add(time.Hour)

		minter := loadKey(t, "minter")
		_, err := state.New(state.Config{
			Genesis:   other,
			Storage:   storage.Config{Dir: dir},
			Minter:    &minter,
			OwnerKeys: []signature.KeyPair{loadKey(t, "owner")},
		})
		if !errors.Is(err, storage.ErrReindexRejected) || !errors.Is(err, state.ErrWrongGenesis) {
			t.Fatalf("\t%s\tShould refuse to start on a mismatched genesis: %v", failed, err)
		}
		t.Logf("\t%s\tShould refuse to start on a mismatched genesis.", success)

		after, err := os.Stat(logPath)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to stat the log: %s", failed, err)
		}
		if after.Size() != before.Size() {
			t.Fatalf("\t%s\tShould keep every block in the log: got %d, exp %d", failed, after.Size(), before.Size())
		}
		t.Logf("\t%s\tShould keep every block in the log.", success)

		s := newMinter(t, dir)
		defer s.Shutdown()

		if height, _ := s.Height(); height != 3 {
			t.Fatalf("\t%s\tShould recover the chain with the right genesis: height %d", failed, height)
		}
		t.Logf("\t%s\tShould recover the chain with the right genesis.", success)
	}
}

func TestConcurrentSubmit(t *testing.T) {
	g := loadGenesis(t)
	alice := loadKey(t, "alice")
	bob := loadKey(t, "bob")

	s := newMinter(t, t.TempDir())
	defer s.Shutdown()

	trx := transfer(t, g, alice, bob, "1.00000 GOLD", 1)

	t.Log("Given the need to accept a transaction only once.")
	{
		t.Logf("\tTest 0:\tWhen the same transaction is submitted twice at once.")
		{
			errs := make([]error, 2)

			var wg sync.WaitGroup
			wg.Add(len(errs))
			for i := range errs {
				go func() {
					defer wg.Done()
					_, errs[i] = s.SubmitTx(trx)
				}()
			}
			wg.Wait()

			var accepted, dupes int
			for _, err := range errs {
				if err == nil {
					accepted++
					continue
				}
				if txErr, ok := validate.AsTxError(err); ok && txErr.Reason == validate.ReasonTxDupe {
					dupes++
					continue
				}
				t.Fatalf("\t%s\tTest 0:\tShould only see an accept or a duplicate: %s", failed, err)
			}

			if accepted != 1 || dupes != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould accept once and reject the duplicate: accepted %d dupes %d", failed, accepted, dupes)
			}
			t.Logf("\t%s\tTest 0:\tShould accept once and reject the duplicate.", success)

			if s.MempoolCount() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould pool the transaction once: %d", failed, s.MempoolCount())
			}
			t.Logf("\t%s\tTest 0:\tShould pool the transaction once.", success)
		}
	}
}
