package wire

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
)

// ErrorKind classifies an error body.
type ErrorKind uint8

// Set of error kinds.
const (
	ErrIo             ErrorKind = 0x00
	ErrBytesRemaining ErrorKind = 0x01
	ErrInvalidRequest ErrorKind = 0x02
	ErrInvalidHeight  ErrorKind = 0x03
	ErrTxValidation   ErrorKind = 0x04
)

var errorNames = map[ErrorKind]string{
	ErrIo:             "io",
	ErrBytesRemaining: "bytes_remaining",
	ErrInvalidRequest: "invalid_request",
	ErrInvalidHeight:  "invalid_height",
	ErrTxValidation:   "tx_validation",
}

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	if name, exists := errorNames[k]; exists {
		return name
	}
	return fmt.Sprintf("error(%d)", uint8(k))
}

// Error is the body sent when a request fails. Reason is only meaningful
// for ErrTxValidation, and Eval only when the reason is a failed script.
type Error struct {
	Code   ErrorKind
	Reason validate.Reason
	Eval   *script.EvalError
}

// NewTxError constructs the error body of a rejected transaction.
func NewTxError(txErr *validate.TxError) *Error {
	e := Error{
		Code:   ErrTxValidation,
		Reason: txErr.Reason,
	}

	if txErr.Reason == validate.ReasonScriptEval && txErr.Eval != nil {
		eval := *txErr.Eval
		e.Eval = &eval
	}

	return &e
}

// TxError returns the validation error the body carries.
func (e *Error) TxError() (*validate.TxError, bool) {
	if e.Code != ErrTxValidation {
		return nil, false
	}

	txErr := validate.TxError{Reason: e.Reason, Eval: e.Eval}
	return &txErr, true
}

// Kind implements the Body interface.
func (*Error) Kind() Kind { return KindError }

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Eval != nil:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Reason, e.Eval)
	case e.Code == ErrTxValidation:
		return fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	return e.Code.String()
}

func (e *Error) encode(w *codec.Writer) {
	w.PutU8(uint8(e.Code))
	if e.Code != ErrTxValidation {
		return
	}

	w.PutU8(uint8(e.Reason))
	if e.Reason == validate.ReasonScriptEval {
		var eval script.EvalError
		if e.Eval != nil {
			eval = *e.Eval
		}
		w.PutU32(eval.Pos)
		w.PutU8(uint8(eval.Kind))
	}
}

func decodeError(r *codec.Reader) *Error {
	e := Error{Code: ErrorKind(r.U8())}

	switch e.Code {
	case ErrIo, ErrBytesRemaining, ErrInvalidRequest, ErrInvalidHeight:
	case ErrTxValidation:
		e.Reason = validate.Reason(r.U8())
		if r.Err() == nil && !e.Reason.Valid() {
			r.Fail(fmt.Errorf("unknown tx reason %d", e.Reason))
		}
		if e.Reason == validate.ReasonScriptEval {
			eval := script.EvalError{Pos: r.U32(), Kind: script.ErrKind(r.U8())}
			if r.Err() == nil && !eval.Kind.Valid() {
				r.Fail(fmt.Errorf("unknown eval error kind %d", eval.Kind))
			}
			e.Eval = &eval
		}
	default:
		if r.Err() == nil {
			r.Fail(fmt.Errorf("unknown error kind %d", e.Code))
		}
	}

	return &e
}
