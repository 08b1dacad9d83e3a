package tx_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"

func transfer(t *testing.T, kp signature.KeyPair) tx.Tx {
	t.Helper()

	body := tx.Transfer{
		From:   script.AddressOf(kp.Public),
		To:     signature.ScriptHash(signature.DoubleSHA256([]byte("bill"))),
		Script: script.FromPublicKey(kp.Public),
		Amount: asset.MustParse("10.00000 GOLD"),
		Memo:   "rent",
	}

	trx, err := tx.New(1, 1_700_000_000, asset.MustParse("0.00025 GOLD"), body)
	if err != nil {
		t.Fatalf("Should be able to construct a transaction: %s", err)
	}

	return trx
}

// =============================================================================

func TestCodec(t *testing.T) {
	kp, err := signature.KeyPairFromHex(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to construct a key pair: %s", err)
	}

	owner := tx.Owner{
		Minter: kp.Public,
		Wallet: script.AddressOf(kp.Public),
		Script: script.FromPublicKey(kp.Public),
	}

	mint := tx.Mint{
		To:             script.AddressOf(kp.Public),
		Amount:         asset.MustParse("400.00000 GOLD"),
		Attachment:     []byte("%PDF-1.4 bar list"),
		AttachmentName: "bars.pdf",
		Script:         script.FromPublicKey(kp.Public),
	}

	tt := []struct {
		name string
		body tx.Body
	}{
		{"owner", owner},
		{"mint", mint},
		{"transfer", transfer(t, kp).Body},
	}

	t.Log("Given the need to encode and decode transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
			{
				trx, err := tx.New(7, 1_700_000_000, 0, tst.body)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to construct the transaction: %s", failed, testID, err)
				}

				if err := trx.Sign(tx.Testnet, kp); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to sign the transaction: %s", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to sign the transaction.", success, testID)

				got, err := tx.Decode(trx.Encode())
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to decode the transaction: %s", failed, testID, err)
				}

				if !got.Equals(trx) {
					t.Fatalf("\t%s\tTest %d:\tShould get back the same transaction.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the same transaction.", success, testID)

				if got.ID(tx.Testnet) != trx.ID(tx.Testnet) {
					t.Fatalf("\t%s\tTest %d:\tShould get back the same id.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the same id.", success, testID)
			}
		}
	}
}

func TestID(t *testing.T) {
	kp, err := signature.KeyPairFromHex(pkHexKey)
	if err != nil {
		t.Fatalf("Should be able to construct a key pair: %s", err)
	}

	trx := transfer(t, kp)
	unsigned := trx.ID(tx.Mainnet)

	if err := trx.Sign(tx.Mainnet, kp); err != nil {
		t.Fatalf("Should be able to sign: %s", err)
	}

	if trx.ID(tx.Mainnet) != unsigned {
		t.Fatalf("Should not include signatures in the id.")
	}

	if trx.ID(tx.Testnet) == unsigned {
		t.Fatalf("Should bind the id to the chain id.")
	}

	id := trx.ID(tx.Mainnet)
	if !trx.Sigs[0].Verify(id[:]) {
		t.Fatalf("Should sign the transaction id.")
	}

	other := trx
	other.Nonce++
	if other.ID(tx.Mainnet) == unsigned {
		t.Fatalf("Should bind the id to the nonce.")
	}

	other = trx
	other.Expiry++
	if other.ID(tx.Mainnet) == unsigned {
		t.Fatalf("Should bind the id to the expiry.")
	}
}

func TestMalformed(t *testing.T) {
	kp, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	if _, err := tx.New(0, 1, 0, nil); !errors.Is(err, tx.ErrMalformed) {
		t.Fatalf("Should reject a missing body: %v", err)
	}

	if _, err := tx.New(0, 0, 0, tx.Transfer{}); !errors.Is(err, tx.ErrMalformed) {
		t.Fatalf("Should reject a missing expiry: %v", err)
	}

	trx := transfer(t, kp)
	if err := trx.Sign(tx.Testnet, kp); err != nil {
		t.Fatalf("Should be able to sign: %s", err)
	}
	data := trx.Encode()

	unknownType := append([]byte{}, data...)
	unknownType[2] = 0x09

	unknownVersion := append([]byte{}, data...)
	unknownVersion[1] = 0x01

	tt := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", data[:len(data)-1]},
		{"trailing", append(append([]byte{}, data...), 0x00)},
		{"unknown type", unknownType},
		{"unknown version", unknownVersion},
	}

	for _, tst := range tt {
		if _, err := tx.Decode(tst.data); !errors.Is(err, tx.ErrMalformed) {
			t.Fatalf("Should reject %s input: %v", tst.name, err)
		}
		t.Logf("Should reject %s input.", tst.name)
	}
}

func TestEncodeWithoutBody(t *testing.T) {
	t.Log("Given the need to refuse encoding a transaction that cannot be decoded.")
	{
		t.Logf("\tTest 0:\tWhen encoding a transaction with no body.")
		{
			defer func() {
				if recover() == nil {
					t.Fatalf("\t%s\tTest 0:\tShould panic instead of writing undecodable bytes.", failed)
				}
				t.Logf("\t%s\tTest 0:\tShould panic instead of writing undecodable bytes.", success)
			}()

			trx := tx.Tx{Nonce: 1, Expiry: 10}
			trx.Encode()
		}
	}
}

func TestAddresses(t *testing.T) {
	kp, err := signature.GenerateKeyPair()
	if err != nil {
		t.Fatalf("Should be able to generate a key pair: %s", err)
	}

	trx := transfer(t, kp)
	body := trx.Body.(tx.Transfer)

	addrs := trx.Addresses()
	if len(addrs) != 2 || addrs[0] != body.From || addrs[1] != body.To {
		t.Fatalf("Should get back both sides of a transfer: %v", addrs)
	}
}
