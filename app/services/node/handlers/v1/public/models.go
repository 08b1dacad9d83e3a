package public

import (
	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
	"github.com/ardanlabs/goldchain/foundation/nameservice"
)

type account struct {
	Address signature.ScriptHash `json:"address"`
	Name    string               `json:"name"`
	Balance asset.Asset          `json:"balance"`
}

type accounts struct {
	Height   uint64      `json:"height"`
	Supply   asset.Asset `json:"supply"`
	Accounts []account   `json:"accounts"`
}

type trans struct {
	ID         signature.Digest      `json:"id"`
	Type       string                `json:"type"`
	Nonce      uint32                `json:"nonce"`
	Expiry     uint64                `json:"expiry"`
	Fee        asset.Asset           `json:"fee"`
	From       *signature.ScriptHash `json:"from,omitempty"`
	FromName   string                `json:"from_name,omitempty"`
	To         *signature.ScriptHash `json:"to,omitempty"`
	ToName     string                `json:"to_name,omitempty"`
	Amount     *asset.Asset          `json:"amount,omitempty"`
	Memo       string                `json:"memo,omitempty"`
	Minter     *signature.PublicKey  `json:"minter,omitempty"`
	Attachment string                `json:"attachment,omitempty"`
	Signatures int                   `json:"signatures"`
}

type blockView struct {
	Height    uint64               `json:"height"`
	Hash      signature.Digest     `json:"hash"`
	PrevHash  signature.Digest     `json:"prev_hash"`
	Timestamp uint64               `json:"timestamp"`
	TxRoot    signature.Digest     `json:"tx_root"`
	Signer    *signature.PublicKey `json:"signer,omitempty"`
	Rewards   asset.Asset          `json:"rewards"`
	Txs       []trans              `json:"txs"`
}

type submitRequest struct {
	Tx string `json:"tx" validate:"required,hexadecimal"`
}

type submitResponse struct {
	ID     signature.Digest `json:"id"`
	Status string           `json:"status"`
}

type txStatus struct {
	ID     signature.Digest `json:"id"`
	Status string           `json:"status"`
	Height *uint64          `json:"height,omitempty"`
}

// =============================================================================

func toTrans(chain tx.ChainID, ns *nameservice.NameService, trx tx.Tx) trans {
	t := trans{
		ID:         trx.ID(chain),
		Type:       trx.Type().String(),
		Nonce:      trx.Nonce,
		Expiry:     trx.Expiry,
		Fee:        trx.Fee,
		Signatures: len(trx.Sigs),
	}

	switch body := trx.Body.(type) {
	case tx.Transfer:
		t.From, t.FromName = &body.From, ns.Lookup(body.From)
		t.To, t.ToName = &body.To, ns.Lookup(body.To)
		t.Amount = &body.Amount
		t.Memo = body.Memo

	case tx.Mint:
		t.To, t.ToName = &body.To, ns.Lookup(body.To)
		t.Amount = &body.Amount
		t.Attachment = body.AttachmentName

	case tx.Owner:
		t.To, t.ToName = &body.Wallet, ns.Lookup(body.Wallet)
		t.Minter = &body.Minter
	}

	return t
}

func toBlock(chain tx.ChainID, ns *nameservice.NameService, b block.Block) blockView {
	bv := blockView{
		Height:    b.Header.Height,
		Hash:      b.Hash(),
		PrevHash:  b.Header.PrevHash,
		Timestamp: b.Header.Timestamp,
		TxRoot:    b.Header.TxRoot,
		Rewards:   b.Rewards,
		Txs:       make([]trans, len(b.Txs)),
	}

	if b.Signer != nil {
		bv.Signer = &b.Signer.PubKey
	}

	for i, trx := range b.Txs {
		bv.Txs[i] = toTrans(chain, ns, trx)
	}

	return bv
}

func toBlocks(chain tx.ChainID, ns *nameservice.NameService, blocks []block.Block) []blockView {
	bvs := make([]blockView, len(blocks))
	for i, b := range blocks {
		bvs[i] = toBlock(chain, ns, b)
	}
	return bvs
}
