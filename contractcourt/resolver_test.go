package contractcourt

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/breez/phoenixcore/chainrpc"
	"github.com/breez/phoenixcore/lnwallet"
)

type fakeNotifier struct {
	spendCh    chan *chainrpc.SpendDetail
	confCh     chan *chainrpc.ConfDetail
	published  []*wire.MsgTx
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		spendCh: make(chan *chainrpc.SpendDetail, 1),
		confCh:  make(chan *chainrpc.ConfDetail, 1),
	}
}

func (f *fakeNotifier) RegisterSpendNtfn(op *wire.OutPoint, pkScript []byte, heightHint uint32) (*chainrpc.SpendEvent, error) {
	return &chainrpc.SpendEvent{Spend: f.spendCh}, nil
}

func (f *fakeNotifier) RegisterConfirmationsNtfn(txid *chainhash.Hash, pkScript []byte, numConfs, heightHint uint32) (*chainrpc.ConfEvent, error) {
	return &chainrpc.ConfEvent{Confirmed: f.confCh}, nil
}

func (f *fakeNotifier) PublishTransaction(tx *wire.MsgTx) error {
	f.published = append(f.published, tx)
	return nil
}

func newTestKit(notifier *fakeNotifier) (ResolverKit, *[]ResolutionMsg) {
	delivered := &[]ResolutionMsg{}
	return ResolverKit{
		Notifier:  notifier,
		PublishTx: notifier.PublishTransaction,
		Checkpoint: func(ContractResolver) error { return nil },
		DeliverResolutionMsg: func(msg ResolutionMsg) error {
			*delivered = append(*delivered, msg)
			return nil
		},
		Quit: make(chan struct{}),
	}, delivered
}

func TestHtlcTimeoutResolverDirectSpendResolves(t *testing.T) {
	notifier := newFakeNotifier()
	kit, delivered := newTestKit(notifier)

	res := lnwallet.OutgoingHtlcResolution{
		ClaimOutpoint: wire.OutPoint{Index: 0},
		SweepSignDesc: lnwallet.SignDescriptor{Output: &wire.TxOut{PkScript: []byte{0x01}}},
	}
	resolver := NewHtlcTimeoutResolver(res, 7, 50_000, 100)
	resolver.AttachResolverKit(kit)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve()
		done <- err
	}()

	notifier.spendCh <- &chainrpc.SpendDetail{}
	require.NoError(t, <-done)
	require.True(t, resolver.IsResolved())
	require.Len(t, *delivered, 1)
	require.True(t, (*delivered)[0].Failed)
	require.Equal(t, uint64(7), (*delivered)[0].HtlcIndex)
}

func TestHtlcTimeoutResolverSecondLevelPublishesAndWaitsForConf(t *testing.T) {
	notifier := newFakeNotifier()
	kit, delivered := newTestKit(notifier)

	timeoutTx := wire.NewMsgTx(2)
	timeoutTx.AddTxIn(&wire.TxIn{PreviousOutPoint: wire.OutPoint{Index: 1}})
	timeoutTx.AddTxOut(&wire.TxOut{PkScript: []byte{0x02}})

	res := lnwallet.OutgoingHtlcResolution{
		SignedTimeoutTx: timeoutTx,
		SweepSignDesc:   lnwallet.SignDescriptor{Output: &wire.TxOut{PkScript: []byte{0x02}}},
	}
	resolver := NewHtlcTimeoutResolver(res, 3, 10_000, 100)
	resolver.AttachResolverKit(kit)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve()
		done <- err
	}()

	notifier.confCh <- &chainrpc.ConfDetail{}
	require.NoError(t, <-done)
	require.True(t, resolver.IsResolved())
	require.Len(t, notifier.published, 1)
	require.Len(t, *delivered, 1)
}

func TestHtlcSuccessResolverDeliversPreimageOnSpend(t *testing.T) {
	notifier := newFakeNotifier()
	kit, delivered := newTestKit(notifier)

	var preimage [32]byte
	preimage[0] = 0xaa

	res := lnwallet.IncomingHtlcResolution{
		ClaimOutpoint: wire.OutPoint{Index: 2},
		SweepSignDesc: lnwallet.SignDescriptor{Output: &wire.TxOut{PkScript: []byte{0x03}}},
		Preimage:      preimage,
	}
	resolver := NewHtlcSuccessResolver(res, 9, 100)
	resolver.AttachResolverKit(kit)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve()
		done <- err
	}()

	notifier.spendCh <- &chainrpc.SpendDetail{}
	require.NoError(t, <-done)
	require.True(t, resolver.IsResolved())
	require.Len(t, *delivered, 1)
	require.Equal(t, preimage, *(*delivered)[0].Preimage)
}

func TestHtlcTimeoutResolverStopUnblocksResolve(t *testing.T) {
	notifier := newFakeNotifier()
	kit, _ := newTestKit(notifier)

	res := lnwallet.OutgoingHtlcResolution{
		ClaimOutpoint: wire.OutPoint{Index: 4},
		SweepSignDesc: lnwallet.SignDescriptor{Output: &wire.TxOut{PkScript: []byte{0x04}}},
	}
	resolver := NewHtlcTimeoutResolver(res, 1, 1_000, 50)
	resolver.AttachResolverKit(kit)

	done := make(chan error, 1)
	go func() {
		_, err := resolver.Resolve()
		done <- err
	}()

	resolver.Stop()
	err := <-done
	require.Error(t, err)
	require.False(t, resolver.IsResolved())
}
