// Package chainrpc defines the interfaces this node expects from its
// chain-backend collaborator; implementing an Electrum client itself is
// out of scope. contractcourt and sweep consume these interfaces rather
// than talking to a wallet or full node directly.
package chainrpc

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// FeeEstimator supplies a feerate suitable for confirming within the
// requested number of blocks, used both for dual-funding negotiation and
// for sizing sweep transactions.
type FeeEstimator interface {
	EstimateFeePerKw(confTarget uint32) (uint32, error)
	RelayFeePerKw() (uint32, error)
}

// SpendEvent is delivered once the watched outpoint is spent by a
// transaction that has reached the backend's notification threshold.
type SpendEvent struct {
	Spend <-chan *SpendDetail
}

// SpendDetail carries the spending transaction and the height at which it
// was found.
type SpendDetail struct {
	SpentOutPoint *wire.OutPoint
	SpenderTxHash *chainhash.Hash
	SpendingTx    *wire.MsgTx
	SpenderHeight uint32
}

// ConfEvent is delivered once the watched transaction reaches the
// requested confirmation depth.
type ConfEvent struct {
	Confirmed <-chan *ConfDetail
}

// ConfDetail carries the confirming block height and the confirmed
// transaction.
type ConfDetail struct {
	Tx          *wire.MsgTx
	BlockHeight uint32
}

// ChainNotifier stands in for the Electrum client's subscription surface:
// spend and confirmation watches keyed by outpoint or txid, used by
// contractcourt resolvers to drive on-chain claim state machines to
// completion without polling.
type ChainNotifier interface {
	RegisterSpendNtfn(outpoint *wire.OutPoint, pkScript []byte, heightHint uint32) (*SpendEvent, error)
	RegisterConfirmationsNtfn(txid *chainhash.Hash, pkScript []byte, numConfs, heightHint uint32) (*ConfEvent, error)
	PublishTransaction(tx *wire.MsgTx) error
}
