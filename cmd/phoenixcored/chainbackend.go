package main

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/chainrpc"
)

// noChainBackend satisfies chainrpc.FeeEstimator and chainrpc.ChainNotifier
// with fixed feerates and watches that never fire. The CLI has no Electrum
// client to dial, so it runs against this stand-in: channels/swapin-status
// work against whatever state is already on disk, but pay and anything
// that waits on a chain watch will stall.
type noChainBackend struct{}

func (noChainBackend) EstimateFeePerKw(confTarget uint32) (uint32, error) {
	return 2000, nil
}

func (noChainBackend) RelayFeePerKw() (uint32, error) {
	return 253, nil
}

func (noChainBackend) RegisterSpendNtfn(outpoint *wire.OutPoint, pkScript []byte, heightHint uint32) (*chainrpc.SpendEvent, error) {
	return &chainrpc.SpendEvent{Spend: make(chan *chainrpc.SpendDetail)}, nil
}

func (noChainBackend) RegisterConfirmationsNtfn(txid *chainhash.Hash, pkScript []byte, numConfs, heightHint uint32) (*chainrpc.ConfEvent, error) {
	return &chainrpc.ConfEvent{Confirmed: make(chan *chainrpc.ConfDetail)}, nil
}

func (noChainBackend) PublishTransaction(tx *wire.MsgTx) error {
	return fmt.Errorf("no chain backend configured for this CLI invocation")
}
