package swapin

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func defaultParams() Params {
	return Params{MinConfirmations: 1, MaxConfirmations: 100, RefundDelay: 144}
}

func TestTrySwapInSelectsEligibleConfirmedUtxo(t *testing.T) {
	m := NewManager()
	wallet := Wallet{Utxos: []Utxo{
		{OutPoint: wire.OutPoint{Index: 1}, BlockHeight: 90},
	}}

	req, err := m.TrySwapIn(100, wallet, defaultParams(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, req)
	require.Len(t, req.WalletInputs, 1)
}

func TestTrySwapInSkipsUnconfirmedBelowMinConfs(t *testing.T) {
	m := NewManager()
	wallet := Wallet{Utxos: []Utxo{
		{OutPoint: wire.OutPoint{Index: 1}, BlockHeight: 100},
	}}

	req, err := m.TrySwapIn(100, wallet, Params{MinConfirmations: 6, MaxConfirmations: 100, RefundDelay: 144}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, req)
}

func TestTrySwapInSkipsUtxoNearRefundExpiry(t *testing.T) {
	m := NewManager()
	wallet := Wallet{Utxos: []Utxo{
		// confs = 100 - 1 + 1 = 100, within [1, 200]; refundDelay=100 ->
		// 100-100 = 0 <= 0 -> rejected as too close to refund expiry.
		{OutPoint: wire.OutPoint{Index: 1}, BlockHeight: 1},
	}}

	req, err := m.TrySwapIn(100, wallet, Params{MinConfirmations: 1, MaxConfirmations: 200, RefundDelay: 100}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, req)
}

func TestTrySwapInSkipsChannelCommittedUtxo(t *testing.T) {
	m := NewManager()
	op := wire.OutPoint{Index: 1}
	wallet := Wallet{Utxos: []Utxo{{OutPoint: op, BlockHeight: 90}}}

	req, err := m.TrySwapIn(100, wallet, defaultParams(), []ChannelUtxo{{OutPoint: op}}, nil)
	require.NoError(t, err)
	require.Nil(t, req)
}

func TestTrySwapInBypassesConfirmationsForTrustedParent(t *testing.T) {
	m := NewManager()
	var parent chainhash.Hash
	parent[0] = 0x01
	wallet := Wallet{Utxos: []Utxo{
		{OutPoint: wire.OutPoint{Index: 1}, BlockHeight: 0, ParentTxid: parent},
	}}

	trusted := map[chainhash.Hash]struct{}{parent: {}}
	req, err := m.TrySwapIn(100, wallet, Params{MinConfirmations: 6, MaxConfirmations: 10, RefundDelay: 144}, nil, trusted)
	require.NoError(t, err)
	require.NotNil(t, req)
}

func TestTrySwapInReservationPreventsDoubleSelection(t *testing.T) {
	m := NewManager()
	op := wire.OutPoint{Index: 1}
	wallet := Wallet{Utxos: []Utxo{{OutPoint: op, BlockHeight: 90}}}

	first, err := m.TrySwapIn(100, wallet, defaultParams(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := m.TrySwapIn(100, wallet, defaultParams(), nil, nil)
	require.NoError(t, err)
	require.Nil(t, second)

	m.UnlockWalletInputs([]wire.OutPoint{op})

	third, err := m.TrySwapIn(100, wallet, defaultParams(), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, third)
}

func TestUnlockWalletInputsIsIdempotent(t *testing.T) {
	m := NewManager()
	op := wire.OutPoint{Index: 5}
	m.UnlockWalletInputs([]wire.OutPoint{op})
	m.UnlockWalletInputs([]wire.OutPoint{op})
}
