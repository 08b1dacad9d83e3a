package codec_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/blockchain/codec"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_BigEndian(t *testing.T) {
	w := codec.NewWriter(32)
	w.PutU16(0x0102)
	w.PutU32(0x03040506)
	w.PutU64(0x0708090a0b0c0d0e)
	w.PutI64(-1)

	exp := []byte{
		0x01, 0x02,
		0x03, 0x04, 0x05, 0x06,
		0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}

	if !bytes.Equal(w.Bytes(), exp) {
		t.Logf("got: %x", w.Bytes())
		t.Logf("exp: %x", exp)
		t.Fatalf("Should encode integers big endian.")
	}

	r := codec.NewReader(w.Bytes())
	if v := r.U16(); v != 0x0102 {
		t.Fatalf("Should decode the u16: got %x", v)
	}
	if v := r.U32(); v != 0x03040506 {
		t.Fatalf("Should decode the u32: got %x", v)
	}
	if v := r.U64(); v != 0x0708090a0b0c0d0e {
		t.Fatalf("Should decode the u64: got %x", v)
	}
	if v := r.I64(); v != -1 {
		t.Fatalf("Should decode the i64: got %d", v)
	}
	if err := r.Done(); err != nil {
		t.Fatalf("Should consume all the input: %s", err)
	}
}

func Test_Reader(t *testing.T) {
	type table struct {
		name string
		data []byte
		fn   func(r *codec.Reader)
		err  error
	}

	w := codec.NewWriter(16)
	w.PutBytes([]byte("hello"))
	prefixed := w.Bytes()

	tt := []table{
		{
			name: "short",
			data: []byte{0x00, 0x01},
			fn:   func(r *codec.Reader) { r.U32() },
			err:  codec.ErrUnexpectedEOF,
		},
		{
			name: "remaining",
			data: []byte{0x00, 0x01, 0x02},
			fn:   func(r *codec.Reader) { r.U16() },
			err:  codec.ErrBytesRemaining,
		},
		{
			name: "limit",
			data: prefixed,
			fn:   func(r *codec.Reader) { r.Bytes(4) },
			err:  codec.ErrTooLarge,
		},
		{
			name: "prefix",
			data: []byte{0xff, 0xff, 0xff, 0xff, 0x01},
			fn:   func(r *codec.Reader) { r.Bytes(codec.MaxFieldSize) },
			err:  codec.ErrTooLarge,
		},
		{
			name: "sticky",
			data: []byte{0x01},
			fn: func(r *codec.Reader) {
				r.U64()
				r.U8()
			},
			err: codec.ErrUnexpectedEOF,
		},
	}

	t.Log("Given the need to reject malformed input.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s input.", testID, tst.name)
			{
				f := func(t *testing.T) {
					r := codec.NewReader(tst.data)
					tst.fn(r)

					err := r.Done()
					if !errors.Is(err, tst.err) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
						t.Fatalf("\t%s\tTest %d:\tShould get back the right error.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right error.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_BytesCopy(t *testing.T) {
	w := codec.NewWriter(16)
	w.PutBytes([]byte{1, 2, 3})
	w.PutString("gold")

	data := w.Bytes()
	r := codec.NewReader(data)
	b := r.Bytes(16)
	s := r.String(16)

	if err := r.Done(); err != nil {
		t.Fatalf("Should decode without error: %s", err)
	}

	data[4] = 0xff
	if b[0] != 1 {
		t.Fatalf("Should return a copy of the underlying data.")
	}

	if s != "gold" {
		t.Logf("got: %s", s)
		t.Logf("exp: %s", "gold")
		t.Fatalf("Should decode the string.")
	}
}
