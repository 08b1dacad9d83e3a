// Package worker implements minting, follower sync and pool expiry for the
// ledger.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/state"
)

// Default intervals of the background workflows.
const (
	DefaultMintInterval   = 3 * time.Second
	DefaultExpireInterval = 10 * time.Second
	DefaultRetryInterval  = 5 * time.Second
)

// DialFunc opens a peer transport to the url.
type DialFunc func(ctx context.Context, url string) (peer.Transport, error)

// Config represents the configuration of the workflows.
type Config struct {
	MintInterval   time.Duration
	ExpireInterval time.Duration
	RetryInterval  time.Duration
	Upstream       string
	Dial           DialFunc
	EvHandler      state.EventHandler
}

// =============================================================================

// Worker manages the background workflows of the node.
type Worker struct {
	state     *state.State
	cfg       Config
	wg        sync.WaitGroup
	shut      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	evHandler state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes. A minter mints on a ticker. A
// follower with an upstream url syncs from it. Every node expires its pool.
func Run(st *state.State, cfg Config) *Worker {
	if cfg.MintInterval <= 0 {
		cfg.MintInterval = DefaultMintInterval
	}
	if cfg.ExpireInterval <= 0 {
		cfg.ExpireInterval = DefaultExpireInterval
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:     st,
		cfg:       cfg,
		shut:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		evHandler: ev,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.expireOperations,
	}

	switch {
	case st.IsMinter():
		operations = append(operations, w.mintOperations)

	case cfg.Upstream != "" && cfg.Dial != nil:
		operations = append(operations, w.syncOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: cancel upstream requests")
	w.cancel()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// expireOperations removes expired transactions from the pool.
func (w *Worker) expireOperations() {
	w.evHandler("worker: expireOperations: G started")
	defer w.evHandler("worker: expireOperations: G completed")

	ticker := time.NewTicker(w.cfg.ExpireInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.state.ExpireTxs(uint64(time.Now().Unix())); err != nil {
				w.evHandler("worker: expireOperations: ERROR: %s", err)
			}

		case <-w.shut:
			w.evHandler("worker: expireOperations: received shut signal")
			return
		}
	}
}
