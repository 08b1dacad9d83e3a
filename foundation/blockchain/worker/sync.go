package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
)

// errFilteredBlock is returned when the upstream sends a header where a
// full block was expected.
var errFilteredBlock = errors.New("upstream sent a header only block")

// syncOperations keeps the chain in step with the upstream node and
// reconnects after a failure.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		if err := w.follow(w.ctx); err != nil && !w.isShutdown() {
			w.evHandler("worker: syncOperations: %s: ERROR: %s", w.cfg.Upstream, err)
		}

		select {
		case <-time.After(w.cfg.RetryInterval):
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// follow connects to the upstream, subscribes, catches up with a range
// request and then applies pushed blocks until the connection ends.
func (w *Worker) follow(ctx context.Context) error {
	transport, err := w.cfg.Dial(ctx, w.cfg.Upstream)
	if err != nil {
		return err
	}

	client := peer.NewClient(transport, peer.ClientConfig{
		EvHandler: peer.EventHandler(w.evHandler),
	})
	defer client.Close()

	w.evHandler("worker: follow: connected: %s", transport.RemoteAddr())

	// Subscribing first means a block minted during the catch up is pushed
	// and applied again without effect.
	if err := client.Subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if err := w.catchUp(ctx, client); err != nil {
		return err
	}

	for {
		select {
		case fb, ok := <-client.Pushes():
			if !ok {
				return client.Err()
			}

			if err := w.apply(ctx, client, fb); err != nil {
				return err
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// catchUp streams every block the upstream has past the local head.
func (w *Worker) catchUp(ctx context.Context, client *peer.Client) error {
	props, err := client.Properties(ctx)
	if err != nil {
		return fmt.Errorf("properties: %w", err)
	}

	var next uint64
	if height, ok := w.state.Height(); ok {
		next = height + 1
	}

	if next > props.Height {
		w.evHandler("worker: catchUp: in sync: height[%d]", props.Height)
		return nil
	}

	w.evHandler("worker: catchUp: fetching: from[%d] to[%d]", next, props.Height)

	return client.GetBlockRange(ctx, next, props.Height, func(fb block.Filtered) error {
		if fb.Full == nil {
			return errFilteredBlock
		}
		return w.state.ProcessBlock(*fb.Full)
	})
}

// apply commits a pushed block. A block past the next height means pushes
// were dropped, so the gap is fetched first.
func (w *Worker) apply(ctx context.Context, client *peer.Client, fb block.Filtered) error {
	var next uint64
	if height, ok := w.state.Height(); ok {
		next = height + 1
	}

	if fb.Header.Height > next {
		w.evHandler("worker: apply: gap: have[%d] got[%d]", next, fb.Header.Height)
		return w.catchUp(ctx, client)
	}

	if fb.Full == nil {
		return errFilteredBlock
	}

	return w.state.ProcessBlock(*fb.Full)
}
