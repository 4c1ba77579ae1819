// Package swapin decides whether confirmed on-chain wallet funds should be
// promoted into Lightning liquidity, and guarantees no UTXO is offered to
// two concurrent channel-open/splice attempts. Grounded on the same
// pure-state-plus-command shape as lnwallet's channel state machine: a
// Manager method call takes a wallet snapshot and returns at most one
// RequestChannelOpen, with all mutation confined to its own reservation
// set.
package swapin

import (
	"crypto/rand"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Utxo is a single wallet output, as reported by the chain backend
// collaborator.
type Utxo struct {
	OutPoint    wire.OutPoint
	AmountSats  int64
	BlockHeight uint32
	ParentTxid  chainhash.Hash
}

// Wallet is the snapshot of spendable, unconfirmed-excluded on-chain funds
// the swap-in manager selects from.
type Wallet struct {
	Utxos []Utxo
}

// Params bounds the confirmation window and refund timelock a UTXO must
// satisfy to be swap-in eligible.
type Params struct {
	MinConfirmations uint32
	MaxConfirmations uint32
	RefundDelay      uint32
}

// RequestChannelOpen is produced when a non-empty set of UTXOs has been
// selected and reserved; the orchestrator turns this into a
// please_open_channel or splice-in request.
type RequestChannelOpen struct {
	RequestID    [32]byte
	WalletInputs []Utxo
}

// Manager tracks the soft reservation set over wallet UTXOs. It is the
// single writer of that set: TrySwapIn adds to it, UnlockWalletInputs
// removes from it.
type Manager struct {
	reservedUtxos map[wire.OutPoint]struct{}
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{reservedUtxos: make(map[wire.OutPoint]struct{})}
}

// ChannelUtxo is an outpoint already committed to a pending or
// confirmed-but-active channel's funding transaction, regardless of that
// channel's state; these are excluded from swap-in selection the same way
// a reserved UTXO is.
type ChannelUtxo struct {
	OutPoint wire.OutPoint
}

// TrySwapIn selects the UTXOs eligible for promotion into Lightning
// liquidity and reserves them, returning nil if nothing qualifies. See
// spec selection rule: skip already-reserved/channel-committed UTXOs,
// require confs in [minConfirmations, maxConfirmations] and a refund
// delay that hasn't nearly expired, with a bypass for UTXOs descended
// from a pre-migration trustedTxs parent.
func (m *Manager) TrySwapIn(currentBlockHeight uint32, wallet Wallet, params Params, channelUtxos []ChannelUtxo, trustedTxs map[chainhash.Hash]struct{}) (*RequestChannelOpen, error) {
	channelSet := make(map[wire.OutPoint]struct{}, len(channelUtxos))
	for _, c := range channelUtxos {
		channelSet[c.OutPoint] = struct{}{}
	}

	var selected []Utxo
	for _, utxo := range wallet.Utxos {
		if _, ok := m.reservedUtxos[utxo.OutPoint]; ok {
			continue
		}
		if _, ok := channelSet[utxo.OutPoint]; ok {
			continue
		}

		if !m.eligible(currentBlockHeight, utxo, params, trustedTxs) {
			continue
		}

		selected = append(selected, utxo)
	}

	if len(selected) == 0 {
		return nil, nil
	}

	requestID, err := randomBytes32()
	if err != nil {
		return nil, err
	}

	for _, utxo := range selected {
		m.reservedUtxos[utxo.OutPoint] = struct{}{}
	}

	return &RequestChannelOpen{RequestID: requestID, WalletInputs: selected}, nil
}

func (m *Manager) eligible(currentBlockHeight uint32, utxo Utxo, params Params, trustedTxs map[chainhash.Hash]struct{}) bool {
	if _, trusted := trustedTxs[utxo.ParentTxid]; trusted {
		return true
	}

	confs := confirmations(currentBlockHeight, utxo.BlockHeight)

	if confs < params.MinConfirmations {
		return false
	}
	if confs > params.MaxConfirmations {
		return false
	}
	if int64(params.RefundDelay)-int64(confs) <= 0 {
		return false
	}

	return true
}

func confirmations(currentBlockHeight, utxoBlockHeight uint32) uint32 {
	if utxoBlockHeight == 0 {
		return 0
	}
	return currentBlockHeight - utxoBlockHeight + 1
}

// UnlockWalletInputs releases the given outpoints from the reservation
// set. Idempotent: unlocking an already-unlocked or unknown outpoint is a
// no-op.
func (m *Manager) UnlockWalletInputs(outPoints []wire.OutPoint) {
	for _, op := range outPoints {
		delete(m.reservedUtxos, op)
	}
}

func randomBytes32() ([32]byte, error) {
	var b [32]byte
	_, err := rand.Read(b[:])
	return b, err
}
