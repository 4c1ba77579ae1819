package htlcswitch

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

func TestSendPaymentInsertsPendingParentAndFirstPart(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(2000, 0))
	h := NewOutgoingPaymentHandler(db, clk)

	parentID := uuid.New()
	var hash [32]byte
	hash[0] = 0x10

	_, err := h.SendPayment(SendPaymentRequest{
		ParentID:    parentID,
		AmountMsat:  100_000,
		PaymentHash: hash,
		Recipient:   "02aa",
	})
	require.NoError(t, err)

	p, err := db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	require.Equal(t, "pending", p.Status)
	require.Len(t, p.Parts, 1)
}

func TestAddSettledFulfillCompletesPaymentOnceAllPartsSucceed(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(2000, 0))
	h := NewOutgoingPaymentHandler(db, clk)

	parentID := uuid.New()
	var hash [32]byte
	hash[0] = 0x11

	_, err := h.SendPayment(SendPaymentRequest{ParentID: parentID, AmountMsat: 50_000, PaymentHash: hash})
	require.NoError(t, err)

	p, err := db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	require.Len(t, p.Parts, 1)
	partID := p.Parts[0].PartID

	var preimage [32]byte
	preimage[0] = 0x99
	require.NoError(t, h.AddSettledFulfill(parentID, partID, preimage))

	p, err = db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	require.Equal(t, "succeeded", p.Status)
	require.Equal(t, &preimage, p.Preimage)
}

func TestAddSettledFailRetriesWithNextTierOnTemporaryFailure(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(2000, 0))
	h := NewOutgoingPaymentHandler(db, clk)

	parentID := uuid.New()
	var hash [32]byte
	hash[0] = 0x12

	_, err := h.SendPayment(SendPaymentRequest{ParentID: parentID, AmountMsat: 50_000, PaymentHash: hash})
	require.NoError(t, err)

	p, err := db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	firstPartID := p.Parts[0].PartID

	err = h.AddSettledFail(parentID, firstPartID, "temporary_channel_failure", "", false, defaultTrampolineFees[1:])
	require.NoError(t, err)

	p, err = db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	require.Equal(t, "pending", p.Status)
	require.Len(t, p.Parts, 2)
	require.Equal(t, "failed", p.Parts[0].Status)
	require.Equal(t, "pending", p.Parts[1].Status)
}

func TestAddSettledFailCompletesAsFailedOnPermanentFailure(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(2000, 0))
	h := NewOutgoingPaymentHandler(db, clk)

	parentID := uuid.New()
	var hash [32]byte
	hash[0] = 0x13

	_, err := h.SendPayment(SendPaymentRequest{ParentID: parentID, AmountMsat: 50_000, PaymentHash: hash})
	require.NoError(t, err)

	p, err := db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	partID := p.Parts[0].PartID

	err = h.AddSettledFail(parentID, partID, "unknown_next_peer", "", true, defaultTrampolineFees)
	require.NoError(t, err)

	p, err = db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	require.Equal(t, "failed", p.Status)
	require.NotNil(t, p.FinalFailure)
}

func TestAddFailedAbortsOnceTiersExhausted(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewTestClock(time.Unix(2000, 0))
	h := NewOutgoingPaymentHandler(db, clk)

	parentID := uuid.New()
	var hash [32]byte
	hash[0] = 0x14

	_, err := h.SendPayment(SendPaymentRequest{ParentID: parentID, AmountMsat: 50_000, PaymentHash: hash})
	require.NoError(t, err)

	p, err := db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	partID := p.Parts[0].PartID

	err = h.AddFailed(parentID, partID, "reserve violation", nil)
	require.NoError(t, err)

	p, err = db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	require.Equal(t, "failed", p.Status)
	require.Equal(t, "InsufficientBalance", p.FinalFailure.Code)
}
