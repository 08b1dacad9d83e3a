package selector_test

import (
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func from(addr byte, nonce uint32, fee string) tx.Tx {
	var sh signature.ScriptHash
	sh[0] = addr

	return tx.Tx{
		Nonce:  nonce,
		Expiry: 100,
		Fee:    asset.MustParse(fee),
		Body:   tx.Transfer{From: sh, To: sh, Amount: 1},
	}
}

func TestFee(t *testing.T) {
	type table struct {
		name    string
		howMany int
		txs     []tx.Tx
		best    []uint32
	}

	pool := []tx.Tx{
		from('a', 1, "0.00010 GOLD"),
		from('a', 2, "0.09000 GOLD"),
		from('b', 3, "0.00300 GOLD"),
		from('c', 4, "0.00200 GOLD"),
		from('b', 5, "0.00100 GOLD"),
	}

	tt := []table{
		{name: "all", howMany: -1, txs: pool, best: []uint32{1, 3, 4, 2, 5}},
		{name: "top2", howMany: 2, txs: pool, best: []uint32{3, 4}},
		{name: "row2", howMany: 4, txs: pool, best: []uint32{1, 3, 4, 2}},
		{name: "more", howMany: 10, txs: pool, best: []uint32{1, 3, 4, 2, 5}},
		{name: "empty", howMany: 3, txs: nil, best: nil},
	}

	fn, err := selector.Retrieve(selector.StrategyFee)
	if err != nil {
		t.Fatalf("Should be able to retrieve the strategy: %s", err)
	}

	t.Log("Given the need to select transactions by fee.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen selecting %d transactions.", testID, tst.howMany)
				{
					got := fn(tst.txs, tst.howMany)
					if len(got) != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould get %d transactions: got %d", failed, testID, len(tst.best), len(got))
					}

					for i, trx := range got {
						if trx.Nonce != tst.best[i] {
							t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, trx.Nonce)
							t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.best[i])
							t.Fatalf("\t%s\tTest %d:\tShould get back the right order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right order.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func TestRetrieve(t *testing.T) {
	if _, err := selector.Retrieve("tip"); err == nil {
		t.Fatalf("Should fail to retrieve an unknown strategy.")
	}

	fn, err := selector.Retrieve(selector.StrategyFIFO)
	if err != nil {
		t.Fatalf("Should be able to retrieve the strategy: %s", err)
	}

	txs := []tx.Tx{from('a', 1, "1.00000 GOLD"), from('b', 2, "2.00000 GOLD")}
	got := fn(txs, 1)
	if len(got) != 1 || got[0].Nonce != 1 {
		t.Fatalf("Should get the first transaction to arrive.")
	}
}
