package worker

import (
	"time"
)

// mintOperations mints a block on every tick.
func (w *Worker) mintOperations() {
	w.evHandler("worker: mintOperations: G started")
	defer w.evHandler("worker: mintOperations: G completed")

	ticker := time.NewTicker(w.cfg.MintInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() {
				w.runMintOperation()
			}

		case <-w.shut:
			w.evHandler("worker: mintOperations: received shut signal")
			return
		}
	}
}

// runMintOperation mints the next block from the pool.
func (w *Worker) runMintOperation() {
	pool := w.state.MempoolCount()

	b, err := w.state.MintBlock()
	if err != nil {
		w.evHandler("worker: runMintOperation: MINT: ERROR: %s", err)
		return
	}

	w.evHandler("worker: runMintOperation: MINT: height[%d] hash[%s] txs[%d] pool[%d]", b.Header.Height, b.Hash(), len(b.Txs), pool)
}
