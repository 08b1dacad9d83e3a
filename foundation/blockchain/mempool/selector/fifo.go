package selector

import (
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// fifoSelect returns transactions in the order they arrived.
var fifoSelect = func(transactions []tx.Tx, howMany int) []tx.Tx {
	if howMany == -1 || howMany > len(transactions) {
		howMany = len(transactions)
	}

	final := make([]tx.Tx, howMany)
	copy(final, transactions[:howMany])

	return final
}
