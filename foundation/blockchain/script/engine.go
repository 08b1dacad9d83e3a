package script

import (
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// ErrKind identifies why a script was not satisfied.
type ErrKind uint8

// The set of evaluation failures. The values are part of the wire format.
const (
	ErrScriptRetFalse     ErrKind = 0
	ErrUnexpectedEOF      ErrKind = 1
	ErrUnknownOp          ErrKind = 2
	ErrInvalidItemOnStack ErrKind = 3
	ErrStackOverflow      ErrKind = 4
	ErrStackUnderflow     ErrKind = 5
)

var kindNames = map[ErrKind]string{
	ErrScriptRetFalse:     "script returned false",
	ErrUnexpectedEOF:      "unexpected end of script",
	ErrUnknownOp:          "unknown operand",
	ErrInvalidItemOnStack: "invalid item on stack",
	ErrStackOverflow:      "stack overflow",
	ErrStackUnderflow:     "stack underflow",
}

// String returns a description of the kind.
func (k ErrKind) String() string {
	if name, exists := kindNames[k]; exists {
		return name
	}
	return fmt.Sprintf("unknown eval error %d", k)
}

// Valid reports whether the kind is one of the known kinds.
func (k ErrKind) Valid() bool {
	_, exists := kindNames[k]
	return exists
}

// EvalError is returned when a script is not satisfied. Pos is the byte
// offset in the script where evaluation stopped.
type EvalError struct {
	Pos  uint32
	Kind ErrKind
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("script: %s at position %d", e.Kind, e.Pos)
}

// =============================================================================

// item is a single value on the evaluation stack.
type item struct {
	isKey bool
	b     bool
	key   signature.PublicKey
}

// engine holds the evaluation state for one script.
type engine struct {
	script Script
	msg    []byte
	sigs   []signature.SigPair
	pos    int
	sigPos int
	stack  []item
}

// Eval evaluates the script against the signatures, which must sign msg. A
// nil return means the script is satisfied. Every failure, including a
// malformed or empty script, is reported as an *EvalError.
func Eval(s Script, msg []byte, sigs []signature.SigPair) error {
	if len(s) > MaxSize {
		return &EvalError{Pos: 0, Kind: ErrUnexpectedEOF}
	}

	e := engine{
		script: s,
		msg:    msg,
		sigs:   sigs,
		stack:  make([]item, 0, 8),
	}

	ok, err := e.run()
	if err != nil {
		return err
	}

	if !ok {
		return e.fail(ErrScriptRetFalse)
	}

	return nil
}

// run executes the script and returns the final boolean on the stack.
func (e *engine) run() (bool, *EvalError) {

	// One entry per open if block, true when its true branch executes.
	var branches []bool

loop:
	for {
		op, key, args, done, err := e.next()
		if err != nil {
			return false, err
		}
		if done {
			break
		}

		switch op {
		case OpPushFalse:
			if err := e.push(item{b: false}); err != nil {
				return false, err
			}

		case OpPushTrue:
			if err := e.push(item{b: true}); err != nil {
				return false, err
			}

		case OpPushPubKey:
			if err := e.push(item{isKey: true, key: key}); err != nil {
				return false, err
			}

		case OpNot:
			b, err := e.popBool()
			if err != nil {
				return false, err
			}
			if err := e.push(item{b: !b}); err != nil {
				return false, err
			}

		case OpIf:
			b, err := e.popBool()
			if err != nil {
				return false, err
			}

			branches = append(branches, b)
			if b {
				continue
			}

			// Skip to the matching else or endif.
			endif, err := e.skip(true)
			if err != nil {
				return false, err
			}
			if endif {
				branches = branches[:len(branches)-1]
			}

		case OpElse:
			if len(branches) == 0 {
				return false, e.fail(ErrUnexpectedEOF)
			}

			// Reaching an else after the false branch started means its
			// body executes.
			if !branches[len(branches)-1] {
				continue
			}

			if _, err := e.skip(false); err != nil {
				return false, err
			}
			branches = branches[:len(branches)-1]

		case OpEndIf:
			if len(branches) == 0 {
				return false, e.fail(ErrUnexpectedEOF)
			}
			branches = branches[:len(branches)-1]

		case OpReturn:
			branches = nil
			break loop

		case OpCheckSig, OpCheckSigFF:
			key, err := e.popKey()
			if err != nil {
				return false, err
			}

			ok := e.checkSigs(1, []signature.PublicKey{key})
			if op == OpCheckSigFF {
				if !ok {
					return false, e.fail(ErrScriptRetFalse)
				}
				continue
			}

			if err := e.push(item{b: ok}); err != nil {
				return false, err
			}

		case OpMultiSig, OpMultiSigFF:
			threshold, count := args[0], args[1]

			keys := make([]signature.PublicKey, count)
			for i := int(count) - 1; i >= 0; i-- {
				key, err := e.popKey()
				if err != nil {
					return false, err
				}
				keys[i] = key
			}

			ok := e.checkSigs(int(threshold), keys)
			if op == OpMultiSigFF {
				if !ok {
					return false, e.fail(ErrScriptRetFalse)
				}
				continue
			}

			if err := e.push(item{b: ok}); err != nil {
				return false, err
			}
		}
	}

	if len(branches) > 0 {
		return false, e.fail(ErrUnexpectedEOF)
	}

	// Scripts must finish with a boolean on top of the stack.
	return e.popBool()
}

// next decodes the operand at the current position. done is true at the
// end of the script.
func (e *engine) next() (op Op, key signature.PublicKey, args [2]uint8, done bool, err *EvalError) {
	if e.pos == len(e.script) {
		return 0, key, args, true, nil
	}

	op = Op(e.script[e.pos])
	e.pos++

	switch op {
	case OpPushFalse, OpPushTrue, OpNot, OpIf, OpElse, OpEndIf, OpReturn, OpCheckSig, OpCheckSigFF:
		return op, key, args, false, nil

	case OpPushPubKey:
		if len(e.script)-e.pos < signature.PublicKeySize {
			return 0, key, args, false, e.fail(ErrUnexpectedEOF)
		}
		copy(key[:], e.script[e.pos:e.pos+signature.PublicKeySize])
		e.pos += signature.PublicKeySize
		return op, key, args, false, nil

	case OpMultiSig, OpMultiSigFF:
		if len(e.script)-e.pos < 2 {
			return 0, key, args, false, e.fail(ErrUnexpectedEOF)
		}
		args[0], args[1] = e.script[e.pos], e.script[e.pos+1]
		e.pos += 2
		return op, key, args, false, nil
	}

	return 0, key, args, false, e.fail(ErrUnknownOp)
}

// skip advances past operands until the else or endif that matches the
// current depth. When stopAtElse is false only an endif terminates. It
// reports whether an endif was the terminator.
func (e *engine) skip(stopAtElse bool) (bool, *EvalError) {
	depth := 0
	for {
		op, _, _, done, err := e.next()
		if err != nil {
			return false, err
		}
		if done {
			return false, e.fail(ErrUnexpectedEOF)
		}

		switch op {
		case OpIf:
			depth++
		case OpElse:
			if depth == 0 && stopAtElse {
				return false, nil
			}
		case OpEndIf:
			if depth == 0 {
				return true, nil
			}
			depth--
		}
	}
}

// checkSigs consumes signature pairs in order while they match the keys in
// order, skipping keys without a pair. Every consumed pair must verify, even
// once the threshold is met. It reports whether at least threshold keys
// produced a valid signature.
func (e *engine) checkSigs(threshold int, keys []signature.PublicKey) bool {
	if threshold == 0 {
		return true
	}

	if threshold > len(keys) || e.sigPos >= len(e.sigs) {
		return false
	}

	valid := 0
	k := 0
	for e.sigPos < len(e.sigs) {
		pair := e.sigs[e.sigPos]

		for k < len(keys) && keys[k] != pair.PubKey {
			k++
		}
		if k == len(keys) {
			break
		}
		k++

		e.sigPos++
		if !pair.Verify(e.msg) {
			return false
		}
		valid++
	}

	return valid >= threshold
}

func (e *engine) push(it item) *EvalError {
	if len(e.stack) >= MaxStack {
		return e.fail(ErrStackOverflow)
	}
	e.stack = append(e.stack, it)
	return nil
}

func (e *engine) pop() (item, *EvalError) {
	if len(e.stack) == 0 {
		return item{}, e.fail(ErrStackUnderflow)
	}
	it := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return it, nil
}

func (e *engine) popBool() (bool, *EvalError) {
	it, err := e.pop()
	if err != nil {
		return false, err
	}
	if it.isKey {
		return false, e.fail(ErrInvalidItemOnStack)
	}
	return it.b, nil
}

func (e *engine) popKey() (signature.PublicKey, *EvalError) {
	it, err := e.pop()
	if err != nil {
		return signature.PublicKey{}, err
	}
	if !it.isKey {
		return signature.PublicKey{}, e.fail(ErrInvalidItemOnStack)
	}
	return it.key, nil
}

func (e *engine) fail(kind ErrKind) *EvalError {
	return &EvalError{Pos: uint32(e.pos), Kind: kind}
}
