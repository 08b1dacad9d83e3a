package mempool_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func transfer(t *testing.T, from signature.KeyPair, nonce uint32, expiry uint64, fee string) tx.Tx {
	t.Helper()

	trx, err := tx.New(nonce, expiry, asset.MustParse(fee), tx.Transfer{
		From:   script.AddressOf(from.Public),
		To:     script.AddressOf(from.Public),
		Script: script.FromPublicKey(from.Public),
		Amount: asset.MustParse("1.00000 GOLD"),
	})
	if err != nil {
		t.Fatalf("Should be able to construct the transaction: %s", err)
	}

	if err := trx.Sign(tx.Testnet, from); err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	return trx
}

func TestCRUD(t *testing.T) {
	alice, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}
	bob, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	type table struct {
		name     string
		strategy string
		txs      []tx.Tx
		howMany  int
		best     []uint32
	}

	tt := []table{
		{
			name:     "fifo",
			strategy: "fifo",
			txs: []tx.Tx{
				transfer(t, alice, 1, 100, "0.00100 GOLD"),
				transfer(t, bob, 2, 100, "0.00500 GOLD"),
				transfer(t, alice, 3, 100, "0.00900 GOLD"),
				transfer(t, bob, 4, 100, "0.00025 GOLD"),
			},
			howMany: -1,
			best:    []uint32{1, 2, 3, 4},
		},
		{
			name:     "fee",
			strategy: "fee",
			txs: []tx.Tx{
				transfer(t, alice, 1, 100, "0.00100 GOLD"),
				transfer(t, bob, 2, 100, "0.00500 GOLD"),
				transfer(t, alice, 3, 100, "0.00900 GOLD"),
				transfer(t, bob, 4, 100, "0.00025 GOLD"),
			},
			howMany: 3,
			best:    []uint32{1, 2, 3},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp, err := mempool.NewWithStrategy(tx.Testnet, tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %s", failed, testID, err)
					}

					for _, trx := range tst.txs {
						if _, err := mp.Upsert(trx); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction: %s", failed, testID, err)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould be able to add new transactions.", success, testID)

					if _, err := mp.Upsert(tst.txs[0]); !errors.Is(err, mempool.ErrDuplicate) {
						t.Fatalf("\t%s\tTest %d:\tShould reject a duplicate transaction: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould reject a duplicate transaction.", success, testID)

					for i, trx := range mp.Copy() {
						if trx.Nonce != tst.txs[i].Nonce {
							t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, trx.Nonce)
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.txs[i].Nonce)
							t.Fatalf("\t%s\tTest %d:\tShould get back the arrival order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the arrival order.", success, testID)

					best := mp.PickBest(tst.howMany)
					if len(best) != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould pick the requested transactions: got %d", failed, testID, len(best))
					}
					for i, trx := range best {
						if trx.Nonce != tst.best[i] {
							t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, trx.Nonce)
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.best[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the best order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the best order.", success, testID)

					mp.Delete(mp.Copy()[1].ID(tx.Testnet))
					if l := mp.Count(); l != 3 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to remove a transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to remove a transaction.", success, testID)

					mp.Truncate()
					if l := mp.Count(); l != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestExpire(t *testing.T) {
	kp, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	mp := mempool.New(tx.Testnet)

	keep := transfer(t, kp, 1, 200, "0.00025 GOLD")
	edge := transfer(t, kp, 2, 150, "0.00025 GOLD")
	drop := transfer(t, kp, 3, 100, "0.00025 GOLD")

	for _, trx := range []tx.Tx{keep, edge, drop} {
		if _, err := mp.Upsert(trx); err != nil {
			t.Fatalf("Should be able to add new transaction: %s", err)
		}
	}

	if n := mp.Expire(150); n != 1 {
		t.Fatalf("Should expire one transaction: got %d", n)
	}

	if mp.Contains(drop.ID(tx.Testnet)) {
		t.Fatalf("Should remove the expired transaction.")
	}

	if !mp.Contains(edge.ID(tx.Testnet)) || !mp.Contains(keep.ID(tx.Testnet)) {
		t.Fatalf("Should keep transactions that expire at or after now.")
	}
}
