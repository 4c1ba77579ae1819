package channeldb

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, dbName))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddIncomingPaymentRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	var preimage [32]byte
	preimage[0] = 0x01

	require.NoError(t, db.AddIncomingPayment(preimage, PaymentOrigin{Kind: "invoice"}, 100))
	err := db.AddIncomingPayment(preimage, PaymentOrigin{Kind: "invoice"}, 101)
	require.ErrorIs(t, err, ErrDuplicateInvoice)
}

func TestReceivePaymentIsAdditive(t *testing.T) {
	db := newTestDB(t)
	var preimage [32]byte
	preimage[0] = 0x02
	require.NoError(t, db.AddIncomingPayment(preimage, PaymentOrigin{Kind: "invoice"}, 100))

	hash := sha256Sum(preimage)
	require.NoError(t, db.ReceivePayment(hash, []ReceivedWith{{Kind: "lightning", AmountMsat: 200_000}}, 110))
	require.NoError(t, db.ReceivePayment(hash, []ReceivedWith{{Kind: "lightning", AmountMsat: 100_000}}, 150))

	rec, err := db.GetIncomingPayment(hash)
	require.NoError(t, err)
	require.Len(t, rec.Parts, 2)
	require.Equal(t, int64(150), rec.ReceivedAt)
	require.Equal(t, int64(300_000), rec.AmountMsat())
}

func TestOutgoingPaymentRejectsDuplicateParentID(t *testing.T) {
	db := newTestDB(t)
	id := uuid.New()
	require.NoError(t, db.AddOutgoingPayment(OutgoingPayment{ParentID: id, Status: "pending"}))
	err := db.AddOutgoingPayment(OutgoingPayment{ParentID: id, Status: "pending"})
	require.ErrorIs(t, err, ErrDuplicatePaymentID)
}

func TestOutgoingPaymentRejectsDuplicatePartID(t *testing.T) {
	db := newTestDB(t)
	partID := uuid.New()
	parentID := uuid.New()
	require.NoError(t, db.AddOutgoingPayment(OutgoingPayment{
		ParentID: parentID,
		Parts:    []Part{{PartID: partID}},
	}))

	err := db.AddOutgoingLightningParts(parentID, []Part{{PartID: partID}})
	require.ErrorIs(t, err, ErrDuplicatePartID)
}

func TestCompleteOutgoingPaymentOffchainComputesFees(t *testing.T) {
	db := newTestDB(t)
	parentID := uuid.New()
	partA, partB := uuid.New(), uuid.New()

	require.NoError(t, db.AddOutgoingPayment(OutgoingPayment{
		ParentID:            parentID,
		RecipientAmountMsat: 180_000,
		Parts: []Part{
			{PartID: partA, AmountMsat: 115_000},
			{PartID: partB, AmountMsat: 75_000},
		},
	}))

	require.NoError(t, db.CompleteOutgoingLightningPart(partA, true, nil, 10))
	require.NoError(t, db.CompleteOutgoingLightningPart(partB, true, nil, 11))

	var preimage [32]byte
	require.NoError(t, db.CompleteOutgoingPaymentOffchain(parentID, &preimage, nil, 12))

	p, err := db.GetLightningOutgoingPayment(parentID)
	require.NoError(t, err)
	require.Equal(t, int64(190_000), p.AmountMsat())
	require.Equal(t, int64(10_000), p.FeesMsat())
}

func TestHtlcInfoRoundTrip(t *testing.T) {
	db := newTestDB(t)
	var chanID [32]byte
	chanID[0] = 0x09

	info := HtlcInfo{HtlcID: 1, AmountMsat: 50_000, CltvExpiry: 700_000}
	require.NoError(t, db.AddHtlcInfo(chanID, 3, info))

	list, err := db.ListHtlcInfos(chanID, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, info, list[0])
}

func TestListLocalChannelsAndRemove(t *testing.T) {
	db := newTestDB(t)
	var chanID [32]byte
	chanID[0] = 0x0a

	require.NoError(t, db.AddOrUpdateChannel(PersistedChannelState{ChannelID: chanID, Data: []byte("state")}))
	list, err := db.ListLocalChannels()
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, db.RemoveChannel(chanID))
	list, err = db.ListLocalChannels()
	require.NoError(t, err)
	require.Empty(t, list)
}
