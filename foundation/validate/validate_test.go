package validate_test

import (
	"testing"

	"github.com/ardanlabs/goldchain/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type submit struct {
	Tx     string `json:"tx" validate:"required,hexadecimal"`
	Amount string `json:"amount" validate:"omitempty,max=32"`
}

func TestCheck(t *testing.T) {
	t.Log("Given the need to validate request models.")
	{
		if err := validate.Check(submit{Tx: "0x00ff"}); err != nil {
			t.Fatalf("\t%s\tShould accept a valid model: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a valid model.", success)

		err := validate.Check(submit{Tx: "zz"})
		if !validate.IsFieldErrors(err) {
			t.Fatalf("\t%s\tShould reject an invalid model: %v", failed, err)
		}

		fields := validate.GetFieldErrors(err).Fields()
		if _, exists := fields["tx"]; !exists || len(fields) != 1 {
			t.Fatalf("\t%s\tShould name the field by its json tag: %v", failed, fields)
		}
		t.Logf("\t%s\tShould name the field by its json tag.", success)
	}
}
