package htlcswitch

import (
	"crypto/sha256"
	"path/filepath"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"

	"github.com/breez/phoenixcore/channeldb"
)

func newTestDB(t *testing.T) *channeldb.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := channeldb.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func shaOf(preimage [32]byte) [32]byte {
	return sha256.Sum256(preimage[:])
}

func TestProcessIncomingHtlcSettlesSinglePartPayment(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(1000, 0))
	h := NewIncomingPaymentHandler(db, clk, 60)

	var preimage [32]byte
	preimage[0] = 0x01
	_, _, err := h.CreateInvoice(preimage, nil, "coffee", 3600, nil)
	require.NoError(t, err)

	hash := shaOf(preimage)
	amt := int64(50_000)
	res, err := h.ProcessIncomingHtlc(IncomingHtlc{
		PaymentHash: hash,
		AmountMsat:  50_000,
	}, &amt)
	require.NoError(t, err)
	require.True(t, res.Settle)
	require.Equal(t, preimage, res.Preimage)
}

func TestProcessIncomingHtlcAggregatesMultiplePartsBeforeSettling(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(1000, 0))
	h := NewIncomingPaymentHandler(db, clk, 60)

	var preimage [32]byte
	preimage[0] = 0x02
	_, _, err := h.CreateInvoice(preimage, nil, "", 3600, nil)
	require.NoError(t, err)

	hash := shaOf(preimage)
	target := int64(100_000)

	res, err := h.ProcessIncomingHtlc(IncomingHtlc{PaymentHash: hash, AmountMsat: 40_000}, &target)
	require.NoError(t, err)
	require.False(t, res.Settle)

	res, err = h.ProcessIncomingHtlc(IncomingHtlc{PaymentHash: hash, AmountMsat: 60_000}, &target)
	require.NoError(t, err)
	require.True(t, res.Settle)
	require.Equal(t, preimage, res.Preimage)
}

func TestProcessIncomingHtlcRejectsUnknownPaymentHash(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(1000, 0))
	h := NewIncomingPaymentHandler(db, clk, 60)

	var hash [32]byte
	hash[0] = 0xff
	res, err := h.ProcessIncomingHtlc(IncomingHtlc{PaymentHash: hash, AmountMsat: 1000}, nil)
	require.NoError(t, err)
	require.True(t, res.Reject)
}

func TestProcessIncomingHtlcRejectsAfterMppTimeout(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(1000, 0))
	h := NewIncomingPaymentHandler(db, clk, 30)

	var preimage [32]byte
	preimage[0] = 0x03
	_, _, err := h.CreateInvoice(preimage, nil, "", 3600, nil)
	require.NoError(t, err)

	hash := shaOf(preimage)
	target := int64(100_000)

	res, err := h.ProcessIncomingHtlc(IncomingHtlc{PaymentHash: hash, AmountMsat: 10_000}, &target)
	require.NoError(t, err)
	require.False(t, res.Settle)

	clk.SetTime(time.Unix(1000+31, 0))

	res, err = h.ProcessIncomingHtlc(IncomingHtlc{PaymentHash: hash, AmountMsat: 10_000}, &target)
	require.NoError(t, err)
	require.True(t, res.Reject)
}

func TestStrongestHintTakesMaximumAcrossPolicies(t *testing.T) {
	hint := strongestHint([]RoutingHint{
		{FeeBaseMsat: 1000, FeeProportionalMillionths: 10, CltvExpiryDelta: 40},
		{FeeBaseMsat: 500, FeeProportionalMillionths: 50, CltvExpiryDelta: 144},
	})
	require.NotNil(t, hint)
	require.Equal(t, uint32(1000), hint.FeeBaseMsat)
	require.Equal(t, uint32(50), hint.FeeProportionalMillionths)
	require.Equal(t, uint16(144), hint.CltvExpiryDelta)
}

func TestRejectPayToOpen(t *testing.T) {
	reject, _ := RejectPayToOpen(false, false)
	require.True(t, reject)

	reject, _ = RejectPayToOpen(true, true)
	require.True(t, reject)

	reject, _ = RejectPayToOpen(true, false)
	require.False(t, reject)
}
