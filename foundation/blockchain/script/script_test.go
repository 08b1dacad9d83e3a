package script_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func genKeys(t *testing.T, n int) []signature.KeyPair {
	t.Helper()

	kps := make([]signature.KeyPair, n)
	for i := range kps {
		kp, err := signature.GenerateKeyPair()
		if err != nil {
			t.Fatalf("Should be able to generate a key pair: %s", err)
		}
		kps[i] = kp
	}

	return kps
}

func sign(t *testing.T, msg []byte, kps ...signature.KeyPair) []signature.SigPair {
	t.Helper()

	sigs := make([]signature.SigPair, len(kps))
	for i, kp := range kps {
		sp, err := kp.Sign(msg)
		if err != nil {
			t.Fatalf("Should be able to sign: %s", err)
		}
		sigs[i] = sp
	}

	return sigs
}

// badPair returns a pair for kp whose signature does not verify.
func badPair(t *testing.T, msg []byte, kp signature.KeyPair) []signature.SigPair {
	t.Helper()

	pairs := sign(t, msg, kp)
	pairs[0].Signature[5] ^= 0xff
	return pairs
}

func mustBuild(t *testing.T, b *script.Builder) script.Script {
	t.Helper()

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Should be able to build the script: %s", err)
	}
	return s
}

// =============================================================================

func TestEval(t *testing.T) {
	msg := []byte("txid")
	kps := genKeys(t, 3)
	a, b, c := kps[0], kps[1], kps[2]

	multi, err := script.MultiSig(2, a.Public, b.Public, c.Public)
	if err != nil {
		t.Fatalf("Should be able to build a multisig script: %s", err)
	}

	bad := sign(t, msg, a)
	bad[0].Signature[5] ^= 0xff

	type table struct {
		name   string
		script script.Script
		sigs   []signature.SigPair
		kind   *script.ErrKind
	}

	kind := func(k script.ErrKind) *script.ErrKind { return &k }

	tt := []table{
		{
			name:   "single signer",
			script: script.FromPublicKey(a.Public),
			sigs:   sign(t, msg, a),
		},
		{
			name:   "single signer wrong key",
			script: script.FromPublicKey(a.Public),
			sigs:   sign(t, msg, b),
			kind:   kind(script.ErrScriptRetFalse),
		},
		{
			name:   "single signer bad signature",
			script: script.FromPublicKey(a.Public),
			sigs:   bad,
			kind:   kind(script.ErrScriptRetFalse),
		},
		{
			name:   "multisig first two",
			script: multi,
			sigs:   sign(t, msg, a, b),
		},
		{
			name:   "multisig skip middle",
			script: multi,
			sigs:   sign(t, msg, a, c),
		},
		{
			name:   "multisig out of order",
			script: multi,
			sigs:   sign(t, msg, c, a),
			kind:   kind(script.ErrScriptRetFalse),
		},
		{
			name:   "multisig one signature",
			script: multi,
			sigs:   sign(t, msg, b),
			kind:   kind(script.ErrScriptRetFalse),
		},
		{
			name:   "multisig consumes pairs past the threshold",
			script: mustBuild(t, script.NewBuilder().PushPubKey(a.Public).PushPubKey(b.Public).PushMultiSigFastFail(1, 2).PushPubKey(b.Public).Push(script.OpCheckSig)),
			sigs:   sign(t, msg, a, b),
			kind:   kind(script.ErrScriptRetFalse),
		},
		{
			name:   "multisig leaves unmatched pairs",
			script: mustBuild(t, script.NewBuilder().PushPubKey(a.Public).PushPubKey(b.Public).PushMultiSigFastFail(1, 2).PushPubKey(c.Public).Push(script.OpCheckSig)),
			sigs:   sign(t, msg, a, c),
		},
		{
			name:   "multisig bad pair past the threshold",
			script: multi,
			sigs:   append(sign(t, msg, a, b), badPair(t, msg, c)...),
			kind:   kind(script.ErrScriptRetFalse),
		},
		{
			name:   "threshold zero",
			script: mustBuild(t, script.NewBuilder().PushPubKey(a.Public).PushMultiSig(0, 1)),
		},
		{
			name:   "if true branch",
			script: mustBuild(t, script.NewBuilder().Push(script.OpPushTrue).Push(script.OpIf).Push(script.OpPushTrue).Push(script.OpElse).Push(script.OpPushFalse).Push(script.OpEndIf)),
		},
		{
			name:   "if false branch",
			script: mustBuild(t, script.NewBuilder().Push(script.OpPushFalse).Push(script.OpIf).Push(script.OpPushFalse).Push(script.OpElse).Push(script.OpPushTrue).Push(script.OpEndIf)),
		},
		{
			name:   "nested if skipped",
			script: mustBuild(t, script.NewBuilder().Push(script.OpPushFalse).Push(script.OpIf).Push(script.OpPushTrue).Push(script.OpIf).Push(script.OpPushFalse).Push(script.OpEndIf).Push(script.OpElse).Push(script.OpPushTrue).Push(script.OpEndIf)),
		},
		{
			name:   "not",
			script: mustBuild(t, script.NewBuilder().Push(script.OpPushFalse).Push(script.OpNot)),
		},
		{
			name:   "return stops evaluation",
			script: mustBuild(t, script.NewBuilder().Push(script.OpPushTrue).Push(script.OpReturn).Push(script.OpPushFalse)),
		},
		{
			name:   "fast fail",
			script: mustBuild(t, script.NewBuilder().PushPubKey(a.Public).Push(script.OpCheckSigFF).Push(script.OpPushTrue)),
			sigs:   sign(t, msg, b),
			kind:   kind(script.ErrScriptRetFalse),
		},
		{
			name:   "empty",
			script: script.Script{},
			kind:   kind(script.ErrStackUnderflow),
		},
		{
			name:   "unknown op",
			script: script.Script{0xff},
			kind:   kind(script.ErrUnknownOp),
		},
		{
			name:   "truncated key",
			script: script.Script{byte(script.OpPushPubKey), 0x02, 0x03},
			kind:   kind(script.ErrUnexpectedEOF),
		},
		{
			name:   "unterminated if",
			script: mustBuild(t, script.NewBuilder().Push(script.OpPushFalse).Push(script.OpIf).Push(script.OpPushTrue)),
			kind:   kind(script.ErrUnexpectedEOF),
		},
		{
			name:   "key on top",
			script: mustBuild(t, script.NewBuilder().PushPubKey(a.Public)),
			kind:   kind(script.ErrInvalidItemOnStack),
		},
		{
			name:   "checksig on bool",
			script: mustBuild(t, script.NewBuilder().Push(script.OpPushTrue).Push(script.OpCheckSig)),
			kind:   kind(script.ErrInvalidItemOnStack),
		},
	}

	t.Log("Given the need to evaluate spending scripts.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					err := script.Eval(tst.script, msg, tst.sigs)

					if tst.kind == nil {
						if err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be satisfied: %s", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould be satisfied.", success, testID)
						return
					}

					var evalErr *script.EvalError
					if !errors.As(err, &evalErr) {
						t.Fatalf("\t%s\tTest %d:\tShould get back an eval error: %v", failed, testID, err)
					}

					if evalErr.Kind != *tst.kind {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, evalErr.Kind)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, *tst.kind)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right kind.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right kind.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestStackOverflow(t *testing.T) {
	b := script.NewBuilder()
	for i := 0; i <= script.MaxStack; i++ {
		b.Push(script.OpPushTrue)
	}

	err := script.Eval(mustBuild(t, b), nil, nil)

	var evalErr *script.EvalError
	if !errors.As(err, &evalErr) || evalErr.Kind != script.ErrStackOverflow {
		t.Fatalf("Should get back a stack overflow: %v", err)
	}

	if evalErr.Pos != script.MaxStack+1 {
		t.Logf("got: %d", evalErr.Pos)
		t.Logf("exp: %d", script.MaxStack+1)
		t.Fatalf("Should report the position of the failing push.")
	}
}

func TestBuilderLimit(t *testing.T) {
	b := script.NewBuilder()
	for i := 0; i <= script.MaxSize; i++ {
		b.Push(script.OpPushTrue)
	}

	if _, err := b.Build(); !errors.Is(err, script.ErrTooLarge) {
		t.Fatalf("Should reject an oversized script: %v", err)
	}
}

func TestAddress(t *testing.T) {
	kps := genKeys(t, 2)

	if script.AddressOf(kps[0].Public) == script.AddressOf(kps[1].Public) {
		t.Fatalf("Should get back different addresses for different keys.")
	}

	if script.AddressOf(kps[0].Public) != script.FromPublicKey(kps[0].Public).Hash() {
		t.Fatalf("Should get back the hash of the single signer script.")
	}

	if _, err := script.MultiSig(3, kps[0].Public, kps[1].Public); err == nil {
		t.Fatalf("Should reject a threshold above the key count.")
	}
}
