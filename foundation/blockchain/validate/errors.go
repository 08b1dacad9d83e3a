package validate

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
)

// Reason identifies why a transaction was rejected. The values are part of
// the wire format.
type Reason uint8

// The set of transaction rejection reasons.
const (
	ReasonScriptEval          Reason = 0x00
	ReasonScriptHashMismatch  Reason = 0x01
	ReasonArithmetic          Reason = 0x02
	ReasonInvalidAmount       Reason = 0x03
	ReasonInvalidFeeAmount    Reason = 0x04
	ReasonTooManySignatures   Reason = 0x05
	ReasonTxTooLarge          Reason = 0x06
	ReasonTxExpired           Reason = 0x08
	ReasonTxDupe              Reason = 0x09
	ReasonInsufficientBalance Reason = 0x0A
)

var reasonNames = map[Reason]string{
	ReasonScriptEval:          "script evaluation failed",
	ReasonScriptHashMismatch:  "script hash mismatch",
	ReasonArithmetic:          "arithmetic overflow",
	ReasonInvalidAmount:       "invalid amount",
	ReasonInvalidFeeAmount:    "invalid fee amount",
	ReasonTooManySignatures:   "too many signatures",
	ReasonTxTooLarge:          "transaction too large",
	ReasonTxExpired:           "transaction expired",
	ReasonTxDupe:              "duplicate transaction",
	ReasonInsufficientBalance: "insufficient balance",
}

// String returns a description of the reason.
func (r Reason) String() string {
	if name, exists := reasonNames[r]; exists {
		return name
	}
	return fmt.Sprintf("reason(%d)", uint8(r))
}

// Valid reports whether the reason is known.
func (r Reason) Valid() bool {
	_, exists := reasonNames[r]
	return exists
}

// TxError is returned when a transaction is rejected. Eval is set when the
// reason is ReasonScriptEval.
type TxError struct {
	Reason Reason
	Eval   *script.EvalError
}

// NewTxError constructs a transaction rejection.
func NewTxError(reason Reason) *TxError {
	return &TxError{Reason: reason}
}

// Error implements the error interface.
func (e *TxError) Error() string {
	if e.Eval != nil {
		return fmt.Sprintf("tx rejected: %s: %s", e.Reason, e.Eval)
	}
	return fmt.Sprintf("tx rejected: %s", e.Reason)
}

// Unwrap provides access to the script failure.
func (e *TxError) Unwrap() error {
	if e.Eval == nil {
		return nil
	}
	return e.Eval
}

// =============================================================================

// BlockReason identifies why a block was rejected.
type BlockReason uint8

// The set of block rejection reasons.
const (
	BlockInvalidHeight    BlockReason = 0x00
	BlockInvalidPrevHash  BlockReason = 0x01
	BlockInvalidTxRoot    BlockReason = 0x02
	BlockInvalidSignature BlockReason = 0x03
	BlockInvalidTimestamp BlockReason = 0x04
	BlockInvalidRewards   BlockReason = 0x05
	BlockDuplicateTx      BlockReason = 0x06
	BlockInvalidGenesis   BlockReason = 0x07
	BlockTx               BlockReason = 0x08
)

var blockReasonNames = map[BlockReason]string{
	BlockInvalidHeight:    "invalid block height",
	BlockInvalidPrevHash:  "invalid previous hash",
	BlockInvalidTxRoot:    "invalid tx root",
	BlockInvalidSignature: "invalid minter signature",
	BlockInvalidTimestamp: "invalid timestamp",
	BlockInvalidRewards:   "invalid rewards",
	BlockDuplicateTx:      "duplicate tx in block",
	BlockInvalidGenesis:   "invalid genesis",
	BlockTx:               "invalid tx",
}

// String returns a description of the reason.
func (r BlockReason) String() string {
	if name, exists := blockReasonNames[r]; exists {
		return name
	}
	return fmt.Sprintf("block reason(%d)", uint8(r))
}

// BlockError is returned when a block is rejected. Index and Tx are set when
// the reason is BlockTx or BlockDuplicateTx.
type BlockError struct {
	Reason BlockReason
	Index  int
	Tx     *TxError
}

// Error implements the error interface.
func (e *BlockError) Error() string {
	switch {
	case e.Tx != nil:
		return fmt.Sprintf("block rejected: tx %d: %s", e.Index, e.Tx)
	case e.Reason == BlockDuplicateTx:
		return fmt.Sprintf("block rejected: %s at index %d", e.Reason, e.Index)
	}
	return fmt.Sprintf("block rejected: %s", e.Reason)
}

// Unwrap provides access to the transaction rejection.
func (e *BlockError) Unwrap() error {
	if e.Tx == nil {
		return nil
	}
	return e.Tx
}

func blockErr(reason BlockReason) *BlockError {
	return &BlockError{Reason: reason}
}

// =============================================================================

// IsRejection reports whether err is a validation rejection as opposed to a
// failure reading chain state.
func IsRejection(err error) bool {
	var txErr *TxError
	var blkErr *BlockError
	return errors.As(err, &txErr) || errors.As(err, &blkErr)
}

// AsTxError returns the transaction rejection in the error chain, if any.
func AsTxError(err error) (*TxError, bool) {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr, true
	}
	return nil, false
}
