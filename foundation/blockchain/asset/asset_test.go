package asset_test

import (
	"errors"
	"math"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestParse(t *testing.T) {
	type table struct {
		name string
		text string
		exp  asset.Asset
		err  error
	}

	tt := []table{
		{name: "one", text: "1.00000 GOLD", exp: 100_000},
		{name: "fraction", text: "0.00025 GOLD", exp: 25},
		{name: "negative", text: "-12.50000 GOLD", exp: -1_250_000},
		{name: "symbol", text: "1.00000 SILVER", err: asset.ErrInvalidFormat},
		{name: "precision", text: "1.0 GOLD", err: asset.ErrInvalidFormat},
		{name: "missing", text: "GOLD", err: asset.ErrInvalidFormat},
		{name: "double sign", text: "--1.00000 GOLD", err: asset.ErrInvalidFormat},
		{name: "overflow", text: "99999999999999999.00000 GOLD", err: asset.ErrOverflow},
	}

	t.Log("Given the need to parse asset text.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %q.", testID, tst.text)
			{
				f := func(t *testing.T) {
					got, err := asset.Parse(tst.text)
					if tst.err != nil {
						if !errors.Is(err, tst.err) {
							t.Fatalf("\t%s\tTest %d:\tShould get back %v: got %v", failed, testID, tst.err, err)
						}
						t.Logf("\t%s\tTest %d:\tShould get back %v.", success, testID, tst.err)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to parse: %s", failed, testID, err)
					}

					if got != tst.exp {
						t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.exp)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right amount.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right amount.", success, testID)

					if got.String() != tst.text {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.text)
						t.Fatalf("\t%s\tTest %d:\tShould format back to the same text.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould format back to the same text.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestArithmetic(t *testing.T) {
	max := asset.New(math.MaxInt64)

	if _, err := max.Add(1); !errors.Is(err, asset.ErrOverflow) {
		t.Fatalf("Should detect add overflow: %v", err)
	}

	min := asset.New(math.MinInt64)
	if _, err := min.Sub(1); !errors.Is(err, asset.ErrOverflow) {
		t.Fatalf("Should detect sub overflow: %v", err)
	}

	v, err := asset.Sum(asset.MustParse("1.00000 GOLD"), asset.MustParse("0.50000 GOLD"))
	if err != nil {
		t.Fatalf("Should be able to sum: %s", err)
	}

	if v != asset.MustParse("1.50000 GOLD") {
		t.Fatalf("Should get back the right sum: %s", v)
	}

	if s := min.String(); s != "-92233720368547.75808 GOLD" {
		t.Fatalf("Should format the smallest value: %s", s)
	}
}
