// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// List of different select strategies.
const (
	StrategyFIFO = "fifo"
	StrategyFee  = "fee"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO: fifoSelect,
	StrategyFee:  feeSelect,
}

// Func defines a function that takes the pending transactions in arrival
// order and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST keep the arrival order of the
// transactions spending from the same address. Receiving -1 for howMany must
// return all the transactions in the strategies ordering.
type Func func(transactions []tx.Tx, howMany int) []tx.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// byFee provides sorting support by the transaction fee value.
type byFee []tx.Tx

// Len returns the number of transactions in the list.
func (bf byFee) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee in descending order to pick the
// transactions that provide the best reward.
func (bf byFee) Less(i, j int) bool {
	return bf[i].Fee > bf[j].Fee
}

// Swap moves transactions in the order of the fee value.
func (bf byFee) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}

// spender returns the key transactions are grouped by. Owner and mint
// transactions are all spent by the owner wallet.
func spender(trx tx.Tx) string {
	if b, ok := trx.Body.(tx.Transfer); ok {
		return string(b.From[:])
	}
	return "owner"
}
