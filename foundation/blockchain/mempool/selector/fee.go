package selector

import (
	"sort"

	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// feeSelect returns transactions with the best fee while respecting the
// arrival order for each spending address.
var feeSelect = func(transactions []tx.Tx, howMany int) []tx.Tx {
	if howMany == -1 {
		howMany = len(transactions)
	}

	// Group the transactions by spender, keeping the order in which each
	// spender first appeared so the selection is deterministic.
	var order []string
	m := make(map[string][]tx.Tx)
	for _, trx := range transactions {
		key := spender(trx)
		if _, exists := m[key]; !exists {
			order = append(order, key)
		}
		m[key] = append(m[key], trx)
	}

	// Pick the first transaction in the slice for each spender. Each
	// iteration represents a new row of selections. Keep doing that until
	// all the transactions have been selected.
	var rows [][]tx.Tx
	for {
		var row []tx.Tx
		for _, key := range order {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	// Sort each row by fee unless we will take all transactions from that
	// row anyway. Then try to select the number of requested transactions.
	final := []tx.Tx{}
done:
	for _, row := range rows {
		need := howMany - len(final)
		if len(row) > need {
			sort.Stable(byFee(row))
			final = append(final, row[:need]...)
			break done
		}
		final = append(final, row...)
	}

	return final
}
