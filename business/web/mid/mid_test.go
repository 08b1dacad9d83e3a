package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/goldchain/business/web/errs"
	"github.com/ardanlabs/goldchain/business/web/mid"
	"github.com/ardanlabs/goldchain/foundation/blockchain/validate"
	"github.com/ardanlabs/goldchain/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestMiddleware(t *testing.T) {
	log := zap.NewNop().Sugar()

	app := web.NewApp(
		make(chan os.Signal, 1),
		mid.Logger(log),
		mid.Errors(log),
		mid.Metrics(),
		mid.Cors("*"),
		mid.Panics(),
	)

	app.Handle(http.MethodGet, "v1", "/ok", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, map[string]string{"status": "ok"}, http.StatusOK)
	})
	app.Handle(http.MethodGet, "v1", "/rejected", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.FromRejection(validate.NewTxError(validate.ReasonInvalidFeeAmount))
	})
	app.Handle(http.MethodGet, "v1", "/broken", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("disk failure")
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	tt := []struct {
		name   string
		path   string
		status int
		reason string
	}{
		{name: "ok", path: "/v1/ok", status: http.StatusOK},
		{name: "rejected", path: "/v1/rejected", status: http.StatusBadRequest, reason: validate.ReasonInvalidFeeAmount.String()},
		{name: "broken", path: "/v1/broken", status: http.StatusInternalServerError},
		{name: "panic", path: "/v1/panic", status: http.StatusInternalServerError},
	}

	t.Log("Given the need to wrap handlers with the middleware chain.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				r := httptest.NewRequest(http.MethodGet, tst.path, nil)
				w := httptest.NewRecorder()
				app.ServeHTTP(w, r)

				if w.Code != tst.status {
					t.Fatalf("\t%s\tTest %d:\tShould respond with status %d: got %d", failed, testID, tst.status, w.Code)
				}
				t.Logf("\t%s\tTest %d:\tShould respond with status %d.", success, testID, tst.status)

				if w.Header().Get("Access-Control-Allow-Origin") != "*" {
					t.Fatalf("\t%s\tTest %d:\tShould set the cors headers.", failed, testID)
				}

				if tst.status == http.StatusOK {
					return
				}

				var resp errs.Response
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould respond with an error document: %s", failed, testID, err)
				}
				if resp.Reason != tst.reason {
					t.Fatalf("\t%s\tTest %d:\tShould report reason %q: got %q", failed, testID, tst.reason, resp.Reason)
				}
				t.Logf("\t%s\tTest %d:\tShould respond with an error document.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
