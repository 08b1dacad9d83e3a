// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"context"
	"net/http"

	"github.com/ardanlabs/goldchain/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/goldchain/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/state"
	"github.com/ardanlabs/goldchain/foundation/events"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
	"github.com/ardanlabs/goldchain/foundation/web"
	"github.com/ardanlabs/goldchain/foundation/ws"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log     *zap.SugaredLogger
	State   *state.State
	NS      *nameservice.NameService
	Evts    *events.Events
	Peers   *peer.Set
	PeerCfg peer.Config
	PeerCtx context.Context
	Origins []string
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	peerCtx := cfg.PeerCtx
	if peerCtx == nil {
		peerCtx = context.Background()
	}

	pbl := public.Handlers{
		Log:      cfg.Log,
		State:    cfg.State,
		NS:       cfg.NS,
		Evts:     cfg.Evts,
		Peers:    cfg.Peers,
		PeerCfg:  cfg.PeerCfg,
		PeerCtx:  peerCtx,
		Upgrader: ws.NewUpgrader(cfg.Origins...),
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/peer", pbl.Peer)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/properties", pbl.Properties)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/accounts/list/:address", pbl.Accounts)
	app.Handle(http.MethodGet, version, "/blocks/list/:from/:to", pbl.BlocksByNumber)
	app.Handle(http.MethodGet, version, "/blocks/address/:address", pbl.BlocksByAddress)
	app.Handle(http.MethodGet, version, "/blocks/hash/:hash", pbl.BlockByHash)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/tx/:id", pbl.TxHeight)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTx)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Peers: cfg.Peers,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodGet, version, "/node/peers", prv.PeerList)
	app.Handle(http.MethodPost, version, "/node/reindex", prv.Reindex)
}
