package events_test

import (
	"fmt"
	"testing"

	"github.com/ardanlabs/goldchain/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestEvents(t *testing.T) {
	evts := events.New()

	t.Log("Given the need to fan out events to receivers.")
	{
		a := evts.Acquire("a")
		b := evts.Acquire("b")

		if evts.Acquire("a") != a || evts.Count() != 2 {
			t.Fatalf("\t%s\tShould return the same channel for the same id.", failed)
		}
		t.Logf("\t%s\tShould return the same channel for the same id.", success)

		evts.Send("viewer: block")
		if <-a != "viewer: block" || <-b != "viewer: block" {
			t.Fatalf("\t%s\tShould deliver the event to every receiver.", failed)
		}
		t.Logf("\t%s\tShould deliver the event to every receiver.", success)

		for i := range 105 {
			evts.Send(fmt.Sprintf("event %d", i))
		}

		dropped, err := evts.Release("a")
		if err != nil || dropped != 5 {
			t.Fatalf("\t%s\tShould count the events a slow receiver missed: %d %v", failed, dropped, err)
		}
		t.Logf("\t%s\tShould count the events a slow receiver missed.", success)

		if _, err := evts.Release("a"); err == nil {
			t.Fatalf("\t%s\tShould not release an id twice.", failed)
		}

		evts.Shutdown()

		n := 0
		for range b {
			n++
		}
		if n != 100 {
			t.Fatalf("\t%s\tShould close the remaining receivers after their buffered events: %d", failed, n)
		}

		if _, ok := <-evts.Acquire("c"); ok {
			t.Fatalf("\t%s\tShould hand out closed channels after shutdown.", failed)
		}
		t.Logf("\t%s\tShould close every receiver on shutdown.", success)
	}
}
