// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/goldchain/business/web/errs"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/state"
	"github.com/ardanlabs/goldchain/foundation/blockchain/storage"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/events"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
	"github.com/ardanlabs/goldchain/foundation/validate"
	"github.com/ardanlabs/goldchain/foundation/web"
	"github.com/ardanlabs/goldchain/foundation/ws"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	State    *state.State
	NS       *nameservice.NameService
	Evts     *events.Events
	Peers    *peer.Set
	PeerCfg  peer.Config
	PeerCtx  context.Context
	Upgrader *ws.Upgrader
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer func() {
		if dropped, err := h.Evts.Release(v.TraceID); err == nil && dropped > 0 {
			h.Log.Infow("events", "traceid", v.TraceID, "dropped", dropped)
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Peer upgrades the request to a peer protocol connection. The connection
// outlives the request handler's context and ends when the node shuts down.
func (h Handlers) Peer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	conn, err := h.Upgrader.Upgrade(w, r)
	if err != nil {
		return err
	}

	cfg := h.PeerCfg
	if cfg.EvHandler == nil {
		cfg.EvHandler = func(s string, args ...any) {
			h.Log.Infow(fmt.Sprintf(s, args...), "traceid", v.TraceID)
		}
	}

	h.Log.Infow("peer connected", "traceid", v.TraceID, "remoteaddr", conn.RemoteAddr())

	err = peer.Serve(h.PeerCtx, conn, h.State, h.Peers, cfg)

	h.Log.Infow("peer disconnected", "traceid", v.TraceID, "remoteaddr", conn.RemoteAddr(), "reason", err)

	return nil
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Properties returns the chain height, owner, supply and network fee.
func (h Handlers) Properties(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	props, err := h.State.Properties()
	if err != nil {
		return notReady(err)
	}

	resp := struct {
		Height      uint64 `json:"height"`
		Owner       trans  `json:"owner"`
		TokenSupply string `json:"token_supply"`
		NetworkFee  string `json:"network_fee"`
	}{
		Height:      props.Height,
		Owner:       toTrans(h.State.Genesis().Chain(), h.NS, props.Owner),
		TokenSupply: props.TokenSupply.String(),
		NetworkFee:  props.NetworkFee.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Accounts returns the balances of the known accounts, or of the single
// account named in the path.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	props, err := h.State.Properties()
	if err != nil {
		return notReady(err)
	}

	var addrs []signature.ScriptHash
	switch param := web.Param(r, "address"); param {
	case "":
		for addr := range h.NS.Copy() {
			addrs = append(addrs, addr)
		}

	default:
		addr, err := h.address(param)
		if err != nil {
			return err
		}
		addrs = append(addrs, addr)
	}

	resp := accounts{
		Height:   props.Height,
		Supply:   props.TokenSupply,
		Accounts: make([]account, 0, len(addrs)),
	}

	for _, addr := range addrs {
		info, err := h.State.AddressInfo(addr)
		if err != nil {
			return notReady(err)
		}

		resp.Accounts = append(resp.Accounts, account{
			Address: addr,
			Name:    h.NS.Lookup(addr),
			Balance: info.Balance,
		})
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// BlocksByNumber returns the blocks between the two heights. Either bound
// may be the word latest.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := height(web.Param(r, "from"))
	if err != nil {
		return err
	}

	to, err := height(web.Param(r, "to"))
	if err != nil {
		return err
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocksByNumber(from, to)
	if err != nil {
		if errors.Is(err, peer.ErrInvalidHeight) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return notReady(err)
	}

	return web.Respond(ctx, w, toBlocks(h.State.Genesis().Chain(), h.NS, blocks), http.StatusOK)
}

// BlocksByAddress returns the blocks with transactions touching the address.
func (h Handlers) BlocksByAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := h.address(web.Param(r, "address"))
	if err != nil {
		return err
	}

	blocks, err := h.State.QueryBlocksByAddress(addr)
	if err != nil {
		return notReady(err)
	}

	return web.Respond(ctx, w, toBlocks(h.State.Genesis().Chain(), h.NS, blocks), http.StatusOK)
}

// BlockByHash returns the block with the header hash.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := signature.DigestFromHex(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	b, err := h.State.BlockByHash(hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, toBlock(h.State.Genesis().Chain(), h.NS, b), http.StatusOK)
}

// TxHeight reports whether the transaction is committed, pending or unknown.
func (h Handlers) TxHeight(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := signature.DigestFromHex(web.Param(r, "id"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := txStatus{ID: id}

	height, err := h.State.TxHeight(id)
	switch {
	case err == nil:
		resp.Status = "committed"
		resp.Height = &height
		return web.Respond(ctx, w, resp, http.StatusOK)

	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	chain := h.State.Genesis().Chain()
	for _, trx := range h.State.Mempool() {
		if trx.ID(chain) == id {
			resp.Status = "pending"
			return web.Respond(ctx, w, resp, http.StatusOK)
		}
	}

	return errs.NewTrusted(fmt.Errorf("tx %s not found", id), http.StatusNotFound)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.Genesis().Chain()

	pool := h.State.Mempool()
	txs := make([]trans, len(pool))
	for i, trx := range pool {
		txs[i] = toTrans(chain, h.NS, trx)
	}

	return web.Respond(ctx, w, txs, http.StatusOK)
}

// SubmitTx adds a signed transaction to the mempool. The transaction is
// carried hex encoded in its wire form.
func (h Handlers) SubmitTx(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var req submitRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	data, err := hexutil.Decode(req.Tx)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("tx hex: %w", err), http.StatusBadRequest)
	}

	trx, err := tx.Decode(data)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("tx: %w", err), http.StatusBadRequest)
	}

	id, err := h.State.SubmitTx(trx)
	if err != nil {
		h.Log.Infow("submit tx", "traceid", v.TraceID, "type", trx.Type(), "ERROR", err)
		return notReady(errs.FromRejection(err))
	}

	h.Log.Infow("submit tx", "traceid", v.TraceID, "type", trx.Type(), "id", id)

	resp := submitResponse{
		ID:     id,
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// address accepts either an address or a name known to the name service.
func (h Handlers) address(s string) (signature.ScriptHash, error) {
	if addr, err := signature.ParseAddress(s); err == nil {
		return addr, nil
	}

	if addr, ok := h.NS.Address(s); ok {
		return addr, nil
	}

	return signature.ScriptHash{}, errs.NewTrusted(fmt.Errorf("unknown address %q", s), http.StatusBadRequest)
}

func height(s string) (uint64, error) {
	if s == "latest" || s == "" {
		return state.QueryLatest, nil
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errs.NewTrusted(fmt.Errorf("invalid height %q", s), http.StatusBadRequest)
	}

	return n, nil
}

func notReady(err error) error {
	switch {
	case errors.Is(err, state.ErrNotReady):
		return errs.NewTrusted(err, http.StatusServiceUnavailable)
	case errors.Is(err, state.ErrNotMinter):
		return errs.NewTrusted(err, http.StatusConflict)
	}
	return err
}
