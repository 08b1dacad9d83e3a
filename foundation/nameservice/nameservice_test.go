package nameservice_test

import (
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestLookup(t *testing.T) {
	ns, err := nameservice.New("../../zblock/accounts/")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the accounts: %s", failed, err)
	}

	t.Log("Given the need to name development accounts.")
	{
		alice, err := signature.ParseAddress("GLD6tsA9CyUBsKCYDFcu5M3yxvUBvuyFPt5CDgAZXvyovxzJdqsH3")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to parse the address: %s", failed, err)
		}

		if name := ns.Lookup(alice); name != "alice" {
			t.Fatalf("\t%s\tShould name the address: got %q", failed, name)
		}
		t.Logf("\t%s\tShould name the address.", success)

		addr, ok := ns.Address("alice")
		if !ok || addr != alice {
			t.Fatalf("\t%s\tShould find the address by name.", failed)
		}
		t.Logf("\t%s\tShould find the address by name.", success)

		var unknown signature.ScriptHash
		if name := ns.Lookup(unknown); name != unknown.String() {
			t.Fatalf("\t%s\tShould fall back to the address text: got %q", failed, name)
		}
		t.Logf("\t%s\tShould fall back to the address text.", success)

		if len(ns.Copy()) != 4 {
			t.Fatalf("\t%s\tShould load every key file: %d", failed, len(ns.Copy()))
		}
	}
}
