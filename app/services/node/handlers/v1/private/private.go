// Package private maintains the group of handlers for node administration.
package private

import (
	"context"
	"net/http"

	"github.com/ardanlabs/goldchain/business/web/errs"
	"github.com/ardanlabs/goldchain/foundation/blockchain/peer"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/state"
	"github.com/ardanlabs/goldchain/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Peers *peer.Set
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, ok := h.State.Height()

	status := struct {
		Minter         bool             `json:"minter"`
		Ready          bool             `json:"ready"`
		Height         uint64           `json:"height"`
		HeadHash       signature.Digest `json:"head_hash"`
		MempoolCount   int              `json:"mempool_count"`
		Subscribers    int              `json:"subscribers"`
		GenesisChainID uint16           `json:"chain_id"`
	}{
		Minter:         h.State.IsMinter(),
		Ready:          ok,
		Height:         height,
		MempoolCount:   h.State.MempoolCount(),
		Subscribers:    h.Peers.Count(),
		GenesisChainID: h.State.Genesis().ChainID,
	}

	if head, err := h.State.Head(); err == nil {
		status.HeadHash = head.Hash()
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// PeerList returns the remote addresses of the subscribed peers.
func (h Handlers) PeerList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	conns := h.Peers.Copy()

	addrs := make([]string, len(conns))
	for i, c := range conns {
		addrs[i] = c.RemoteAddr()
	}

	return web.Respond(ctx, w, addrs, http.StatusOK)
}

// Reindex rebuilds the index from the block log.
func (h Handlers) Reindex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.Log.Infow("reindex", "traceid", v.TraceID, "status", "started")

	if err := h.State.Reindex(); err != nil {
		return errs.NewTrusted(err, http.StatusInternalServerError)
	}

	height, _ := h.State.Height()
	h.Log.Infow("reindex", "traceid", v.TraceID, "status", "completed", "height", height)

	resp := struct {
		Status string `json:"status"`
		Height uint64 `json:"height"`
	}{
		Status: "reindexed",
		Height: height,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
