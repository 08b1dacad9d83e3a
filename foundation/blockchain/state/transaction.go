package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/mempool"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
	"github.com/ardanlabs/goldchain/foundation/metrics"
)

// SubmitTx validates the transaction against the committed chain plus the
// pool and adds it to the pool. A rejection is returned as a
// *validate.TxError. Only the minter includes transactions, so a follower
// refuses them with ErrNotMinter.
func (s *State) SubmitTx(trx tx.Tx) (signature.Digest, error) {
	if s.minter == nil {
		return signature.Digest{}, ErrNotMinter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return signature.Digest{}, ErrNotReady
	}

	id := trx.ID(s.params.ChainID)

	if s.mempool.Contains(id) {
		metrics.Txs.WithLabelValues(validate.ReasonTxDupe.String()).Inc()
		return id, validate.NewTxError(validate.ReasonTxDupe)
	}

	// Apply leaves the overlay unchanged on a rejection.
	if err := s.pending.Apply(trx, s.blockTime()); err != nil {
		if txErr, ok := validate.AsTxError(err); ok {
			metrics.Txs.WithLabelValues(txErr.Reason.String()).Inc()
			s.evHandler("state: SubmitTx: tx[%s]: rejected: %s", id, txErr)
		}
		return id, err
	}

	n, err := s.mempool.Upsert(trx)
	if err != nil {
		if errors.Is(err, mempool.ErrDuplicate) {
			return id, validate.NewTxError(validate.ReasonTxDupe)
		}
		return id, fmt.Errorf("mempool: %w", err)
	}

	metrics.Txs.WithLabelValues("accepted").Inc()
	metrics.MempoolSize.Set(float64(n))

	s.evHandler("state: SubmitTx: tx[%s]: type[%s] fee[%s]: pool[%d]", id, trx.Type(), trx.Fee, n)

	return id, nil
}

// Broadcast implements the peer.Handler interface.
func (s *State) Broadcast(trx tx.Tx) (signature.Digest, error) {
	return s.SubmitTx(trx)
}

// ExpireTxs removes pool transactions that expired before now and replays
// the rest of the pool.
func (s *State) ExpireTxs(now uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.mempool.Expire(now)
	if n == 0 {
		return 0, nil
	}

	s.evHandler("state: ExpireTxs: removed[%d]", n)

	return n, s.resetPending()
}

// Mempool returns a copy of the pool in arrival order.
func (s *State) Mempool() []tx.Tx {
	return s.mempool.Copy()
}

// MempoolCount returns the number of pool transactions.
func (s *State) MempoolCount() int {
	return s.mempool.Count()
}
