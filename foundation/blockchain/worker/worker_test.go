package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/state"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/worker"
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

func waitHeight(t *testing.T, s *state.State, want uint64) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if height, ok := s.Height(); ok && height >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	height, _ := s.Height()
	t.Fatalf("Should reach height %d: at %d", want, height)
}

func TestFollow(t *testing.T) {
	g, err := genesis.Load(genesisPath)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %s", err)
	}

	minterKey := loadKey(t, "minter")
	set := peer.NewSet()

	minter, err := state.New(state.Config{
		Genesis:        g,
		Storage:        storage.Config{Dir: t.TempDir()},
		Minter:         &minterKey,
		OwnerKeys:      []signature.KeyPair{loadKey(t, "owner")},
		SelectStrategy: "fee",
		Subscribers:    set,
	})
	if err != nil {
		t.Fatalf("Should be able to start the minter: %s", err)
	}
	defer minter.Shutdown()

	worker.Run(minter, worker.Config{MintInterval: 20 * time.Millisecond})

	follower, err := state.New(state.Config{
		Genesis:        g,
		Storage:        storage.Config{Dir: t.TempDir()},
		SelectStrategy: "fifo",
	})
	if err != nil {
		t.Fatalf("Should be able to start the follower: %s", err)
	}
	defer follower.Shutdown()

	dial := func(ctx context.Context, url string) (peer.Transport, error) {
		server, client := peer.Pipe()
		go peer.Serve(ctx, server, minter, set, peer.Config{})
		return client, nil
	}

	worker.Run(follower, worker.Config{
		Upstream:      "pipe",
		Dial:          dial,
		RetryInterval: 20 * time.Millisecond,
	})

	t.Log("Given the need to follow a minting node.")
	{
		waitHeight(t, follower, 5)
		t.Logf("\t%s\tShould catch up and follow the minted blocks.", success)

		for height := uint64(0); height <= 5; height++ {
			want, err := minter.Block(height)
			if err != nil {
				t.Fatalf("\t%s\tShould read the minter block %d: %s", failed, height, err)
			}
			got, err := follower.Block(height)
			if err != nil {
				t.Fatalf("\t%s\tShould read the follower block %d: %s", failed, height, err)
			}
			if got.Hash() != want.Hash() {
				t.Fatalf("\t%s\tShould hold the same block at height %d.", failed, height)
			}
		}
		t.Logf("\t%s\tShould hold the same chain as the minter.", success)
	}
}
