// Package validate decides whether transactions and blocks are acceptable
// against the current chain state. It never writes to storage. A valid
// block produces the Changes that storage commits.
package validate

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/goldchain/foundation/blockchain/asset"
	"github.com/ardanlabs/goldchain/foundation/blockchain/block"
	"github.com/ardanlabs/goldchain/foundation/blockchain/script"
	"github.com/ardanlabs/goldchain/foundation/blockchain/signature"
	"github.com/ardanlabs/goldchain/foundation/blockchain/tx"
)

// Limits of the ledger.
const (
	MaxSignatures         = 8
	MaxMemoSize           = 1024
	MaxAttachmentSize     = 16 * 1024
	MaxAttachmentNameSize = 255
	MaxExpiry             = 30 * 24 * 60 * 60
)

// DefaultMinFee is the smallest fee a transfer may carry.
var DefaultMinFee = asset.MustParse("0.00025 GOLD")

// =============================================================================

// Apply validates the transaction for inclusion in a block with the
// specified timestamp and records its effects in the overlay. A rejected
// transaction leaves the overlay unchanged and returns a *TxError.
func (c *Changes) Apply(trx tx.Tx, blockTime uint64) error {
	if err := structural(trx); err != nil {
		return err
	}

	if trx.Expiry < blockTime || trx.Expiry-blockTime > MaxExpiry {
		return NewTxError(ReasonTxExpired)
	}

	id := trx.ID(c.params.ChainID)

	seen, err := c.HasTx(id)
	if err != nil {
		return fmt.Errorf("lookup tx: %w", err)
	}
	if seen {
		return NewTxError(ReasonTxDupe)
	}

	var e effect
	switch body := trx.Body.(type) {
	case tx.Owner:
		e, err = c.applyOwner(id, trx, body)
	case tx.Mint:
		e, err = c.applyMint(id, trx, body)
	case tx.Transfer:
		e, err = c.applyTransfer(id, trx, body)
	default:
		return fmt.Errorf("unknown body %T", trx.Body)
	}

	if err != nil {
		return err
	}

	c.commit(id, trx.Expiry, e)

	return nil
}

// structural checks the limits that do not depend on chain state.
func structural(trx tx.Tx) error {
	if len(trx.Sigs) > MaxSignatures {
		return NewTxError(ReasonTooManySignatures)
	}

	if len(tx.ScriptOf(trx.Body)) > script.MaxSize {
		return NewTxError(ReasonTxTooLarge)
	}

	if trx.Fee < 0 {
		return NewTxError(ReasonInvalidFeeAmount)
	}

	switch body := trx.Body.(type) {
	case tx.Mint:
		if len(body.Attachment) > MaxAttachmentSize || len(body.AttachmentName) > MaxAttachmentNameSize {
			return NewTxError(ReasonTxTooLarge)
		}
		if body.Amount <= 0 {
			return NewTxError(ReasonInvalidAmount)
		}

	case tx.Transfer:
		if len(body.Memo) > MaxMemoSize {
			return NewTxError(ReasonTxTooLarge)
		}
		if body.Amount <= 0 {
			return NewTxError(ReasonInvalidAmount)
		}
	}

	return nil
}

// authorize checks the script matches the address and is satisfied by the
// transaction signatures.
func authorize(id signature.Digest, trx tx.Tx, s script.Script, addr signature.ScriptHash) error {
	if s.Hash() != addr {
		return NewTxError(ReasonScriptHashMismatch)
	}

	if err := script.Eval(s, id[:], trx.Sigs); err != nil {
		var evalErr *script.EvalError
		if !errors.As(err, &evalErr) {
			return fmt.Errorf("eval: %w", err)
		}
		return &TxError{Reason: ReasonScriptEval, Eval: evalErr}
	}

	return nil
}

// ownerWallet returns the address of the current owner wallet.
func (c *Changes) ownerWallet() (signature.ScriptHash, bool, error) {
	owner, err := c.Owner()
	if err != nil {
		if errors.Is(err, ErrNoOwner) {
			return signature.ScriptHash{}, false, nil
		}
		return signature.ScriptHash{}, false, fmt.Errorf("owner: %w", err)
	}

	body, ok := owner.Body.(tx.Owner)
	if !ok {
		return signature.ScriptHash{}, false, fmt.Errorf("owner: unexpected body %T", owner.Body)
	}

	return body.Wallet, true, nil
}

func (c *Changes) applyOwner(id signature.Digest, trx tx.Tx, body tx.Owner) (effect, error) {
	if trx.Fee != 0 {
		return effect{}, NewTxError(ReasonInvalidFeeAmount)
	}

	wallet, exists, err := c.ownerWallet()
	if err != nil {
		return effect{}, err
	}

	// The first owner authorizes itself, later owners are authorized by the
	// wallet they replace.
	if !exists {
		if !c.genesis {
			return effect{}, NewTxError(ReasonScriptHashMismatch)
		}
		wallet = body.Wallet
	}

	if err := authorize(id, trx, body.Script, wallet); err != nil {
		return effect{}, err
	}

	owner := trx
	return effect{owner: &owner}, nil
}

func (c *Changes) applyMint(id signature.Digest, trx tx.Tx, body tx.Mint) (effect, error) {
	if trx.Fee != 0 {
		return effect{}, NewTxError(ReasonInvalidFeeAmount)
	}

	wallet, exists, err := c.ownerWallet()
	if err != nil {
		return effect{}, err
	}
	if !exists {
		return effect{}, NewTxError(ReasonScriptHashMismatch)
	}

	// Issuance in the genesis block is part of the chain definition.
	if !c.genesis {
		if err := authorize(id, trx, body.Script, wallet); err != nil {
			return effect{}, err
		}
	}

	supply, err := c.TokenSupply()
	if err != nil {
		return effect{}, fmt.Errorf("supply: %w", err)
	}

	newSupply, err := supply.Add(body.Amount)
	if err != nil {
		return effect{}, NewTxError(ReasonArithmetic)
	}

	bal, err := c.Balance(body.To)
	if err != nil {
		return effect{}, fmt.Errorf("balance: %w", err)
	}

	newBal, err := bal.Add(body.Amount)
	if err != nil {
		return effect{}, NewTxError(ReasonArithmetic)
	}

	e := effect{
		balances: map[signature.ScriptHash]asset.Asset{body.To: newBal},
		supply:   &newSupply,
	}

	return e, nil
}

func (c *Changes) applyTransfer(id signature.Digest, trx tx.Tx, body tx.Transfer) (effect, error) {
	if trx.Fee < c.params.MinFee {
		return effect{}, NewTxError(ReasonInvalidFeeAmount)
	}

	if err := authorize(id, trx, body.Script, body.From); err != nil {
		return effect{}, err
	}

	cost, err := body.Amount.Add(trx.Fee)
	if err != nil {
		return effect{}, NewTxError(ReasonArithmetic)
	}

	fromBal, err := c.Balance(body.From)
	if err != nil {
		return effect{}, fmt.Errorf("balance: %w", err)
	}

	if fromBal < cost {
		return effect{}, NewTxError(ReasonInsufficientBalance)
	}

	newFrom, err := fromBal.Sub(cost)
	if err != nil {
		return effect{}, NewTxError(ReasonArithmetic)
	}

	// A transfer to self only pays the fee.
	if body.From == body.To {
		newFrom, err = newFrom.Add(body.Amount)
		if err != nil {
			return effect{}, NewTxError(ReasonArithmetic)
		}
		return effect{balances: map[signature.ScriptHash]asset.Asset{body.From: newFrom}}, nil
	}

	toBal, err := c.Balance(body.To)
	if err != nil {
		return effect{}, fmt.Errorf("balance: %w", err)
	}

	newTo, err := toBal.Add(body.Amount)
	if err != nil {
		return effect{}, NewTxError(ReasonArithmetic)
	}

	e := effect{
		balances: map[signature.ScriptHash]asset.Asset{
			body.From: newFrom,
			body.To:   newTo,
		},
	}

	return e, nil
}

// =============================================================================

// Tx validates a single transaction against the view for inclusion in a
// block with the specified timestamp.
func Tx(params Params, view View, trx tx.Tx, blockTime uint64) error {
	return NewChanges(params, view).Apply(trx, blockTime)
}

// Block validates a block as the successor of the view's head and returns
// the effects of applying it. A rejected block returns a *BlockError.
func Block(params Params, view View, b block.Block) (*Changes, error) {
	head, err := view.Head()
	if err != nil {
		return nil, fmt.Errorf("head: %w", err)
	}

	if b.Header.PrevHash != head.Hash() {
		return nil, blockErr(BlockInvalidPrevHash)
	}

	if b.Header.Height != head.Height+1 {
		return nil, blockErr(BlockInvalidHeight)
	}

	if b.Header.Timestamp < head.Timestamp {
		return nil, blockErr(BlockInvalidTimestamp)
	}

	c := NewChanges(params, view)

	owner, err := c.Owner()
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}

	ownerBody, ok := owner.Body.(tx.Owner)
	if !ok {
		return nil, fmt.Errorf("owner: unexpected body %T", owner.Body)
	}

	if !b.VerifySigner(ownerBody.Minter) {
		return nil, blockErr(BlockInvalidSignature)
	}

	if err := applyTxs(c, b); err != nil {
		return nil, err
	}

	return c, nil
}

// Genesis validates the first block of a chain. The first transaction must
// be the owner transaction whose minter signed the block.
func Genesis(params Params, b block.Block) (*Changes, error) {
	if b.Header.Height != 0 {
		return nil, blockErr(BlockInvalidHeight)
	}

	if !b.Header.PrevHash.IsZero() {
		return nil, blockErr(BlockInvalidPrevHash)
	}

	if len(b.Txs) == 0 {
		return nil, blockErr(BlockInvalidGenesis)
	}

	ownerBody, ok := b.Txs[0].Body.(tx.Owner)
	if !ok {
		return nil, blockErr(BlockInvalidGenesis)
	}

	if !b.VerifySigner(ownerBody.Minter) {
		return nil, blockErr(BlockInvalidSignature)
	}

	c := NewChanges(params, nil)
	c.genesis = true

	if err := applyTxs(c, b); err != nil {
		return nil, err
	}

	c.genesis = false

	return c, nil
}

// applyTxs checks the tx root, applies every transaction, and credits the
// block rewards to the owner wallet.
func applyTxs(c *Changes, b block.Block) error {
	root, err := block.TxRoot(b.Txs)
	if err != nil {
		return err
	}

	if root != b.Header.TxRoot {
		return blockErr(BlockInvalidTxRoot)
	}

	seen := make(map[signature.Digest]struct{}, len(b.Txs))
	fees := make([]asset.Asset, 0, len(b.Txs))

	for i, trx := range b.Txs {
		id := trx.ID(c.params.ChainID)
		if _, exists := seen[id]; exists {
			return &BlockError{Reason: BlockDuplicateTx, Index: i}
		}
		seen[id] = struct{}{}

		if err := c.Apply(trx, b.Header.Timestamp); err != nil {
			var txErr *TxError
			if errors.As(err, &txErr) {
				return &BlockError{Reason: BlockTx, Index: i, Tx: txErr}
			}
			return err
		}

		fees = append(fees, trx.Fee)
	}

	rewards, err := asset.Sum(fees...)
	if err != nil || rewards != b.Rewards {
		return blockErr(BlockInvalidRewards)
	}

	if rewards == 0 {
		return nil
	}

	wallet, exists, err := c.ownerWallet()
	if err != nil {
		return err
	}
	if !exists {
		return blockErr(BlockInvalidRewards)
	}

	if err := c.credit(wallet, rewards); err != nil {
		if errors.Is(err, asset.ErrOverflow) {
			return blockErr(BlockInvalidRewards)
		}
		return err
	}

	return nil
}
