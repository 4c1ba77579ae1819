package lnwire

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func randPubKey(t *testing.T) *btcec.PublicKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv.PubKey()
}

// roundTrip writes msg, reads it back through ReadMessage, and returns the
// decoded copy so callers can assert on specific fields.
func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()

	var buf bytes.Buffer
	_, err := WriteMessage(&buf, msg)
	require.NoError(t, err)

	decoded, err := ReadMessage(&buf)
	require.NoError(t, err)
	require.Equal(t, msg.MsgType(), decoded.MsgType())
	return decoded
}

func TestInitRoundTrip(t *testing.T) {
	msg := &Init{
		GlobalFeatures: []byte{0x01, 0x02},
		Features:       []byte{0xaa, 0xbb, 0xcc},
	}
	decoded := roundTrip(t, msg).(*Init)
	require.Equal(t, msg.GlobalFeatures, decoded.GlobalFeatures)
	require.Equal(t, msg.Features, decoded.Features)
}

func TestPingPongRoundTrip(t *testing.T) {
	ping := &Ping{NumPongBytes: 10, PaddingBytes: make([]byte, 4)}
	decoded := roundTrip(t, ping).(*Ping)
	require.Equal(t, ping.NumPongBytes, decoded.NumPongBytes)

	pong := &Pong{PaddingBytes: make([]byte, 10)}
	decodedPong := roundTrip(t, pong).(*Pong)
	require.Equal(t, pong.PaddingBytes, decodedPong.PaddingBytes)
}

func TestErrorIsConnectionWide(t *testing.T) {
	connWide := &Error{Data: []byte("boom")}
	require.True(t, connWide.IsConnectionWide())

	var chanID ChannelID
	chanID[0] = 0x01
	scoped := &Error{ChanID: chanID, Data: []byte("boom")}
	require.False(t, scoped.IsConnectionWide())

	decoded := roundTrip(t, scoped).(*Error)
	require.Equal(t, scoped.ChanID, decoded.ChanID)
	require.Equal(t, scoped.Data, decoded.Data)
}

func TestOpenChannel2RoundTrip(t *testing.T) {
	msg := &OpenChannel2{
		FundingFeerate:    253,
		CommitmentFeerate: 253,
		FundingAmount:     100000,
		DustLimit:         354,
		ToSelfDelay:       144,
		MaxAcceptedHtlcs:  30,
		FundingKey:        randPubKey(t),
		RevocationPoint:   randPubKey(t),
		PaymentPoint:      randPubKey(t),
		DelayedPaymentPoint: randPubKey(t),
		HtlcPoint:         randPubKey(t),
		FirstPerCommitmentPoint: randPubKey(t),
		ChannelFlags:      1,
	}
	decoded := roundTrip(t, msg).(*OpenChannel2)
	require.Equal(t, msg.FundingAmount, decoded.FundingAmount)
	require.Equal(t, msg.ChannelFlags, decoded.ChannelFlags)
	require.True(t, msg.FundingKey.IsEqual(decoded.FundingKey))
}

func TestOpenChannel2OriginTLV(t *testing.T) {
	msg := &OpenChannel2{
		FundingKey:        randPubKey(t),
		RevocationPoint:   randPubKey(t),
		PaymentPoint:      randPubKey(t),
		DelayedPaymentPoint: randPubKey(t),
		HtlcPoint:         randPubKey(t),
		FirstPerCommitmentPoint: randPubKey(t),
	}

	reqID := [32]byte{0xde, 0xad, 0xbe, 0xef}
	raw, err := encodeRequestIDTLV(reqID)
	require.NoError(t, err)
	msg.ExtraData = raw

	decoded := roundTrip(t, msg).(*OpenChannel2)
	gotID, ok, err := decoded.Origin()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, reqID, gotID)
}

func TestTxSignaturesRoundTrip(t *testing.T) {
	msg := &TxSignatures{
		Witnesses: [][]byte{{0x01, 0x02}, {0x03}},
	}
	decoded := roundTrip(t, msg).(*TxSignatures)
	require.Equal(t, msg.Witnesses, decoded.Witnesses)
}

func TestUpdateAddHTLCRoundTrip(t *testing.T) {
	msg := &UpdateAddHTLC{
		ID:     7,
		Amount: 50000,
		Expiry: 600000,
	}
	msg.PaymentHash[0] = 0xff
	decoded := roundTrip(t, msg).(*UpdateAddHTLC)
	require.Equal(t, msg.ID, decoded.ID)
	require.Equal(t, msg.Amount, decoded.Amount)
	require.Equal(t, msg.PaymentHash, decoded.PaymentHash)
	require.Equal(t, msg.OnionBlob, decoded.OnionBlob)
}

func TestCommitmentSignedRoundTrip(t *testing.T) {
	msg := &CommitmentSigned{
		CommitSig: []byte{0x01, 0x02, 0x03},
		HtlcSigs:  [][]byte{{0x04}, {0x05, 0x06}},
	}
	decoded := roundTrip(t, msg).(*CommitmentSigned)
	require.Equal(t, msg.CommitSig, decoded.CommitSig)
	require.Equal(t, msg.HtlcSigs, decoded.HtlcSigs)
}

func TestChannelReestablishWithBackup(t *testing.T) {
	msg := &ChannelReestablish{
		NextLocalCommitmentNumber:  3,
		NextRemoteRevocationNumber: 2,
		MyCurrentPerCommitmentPoint: randPubKey(t),
	}
	blob := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	require.NoError(t, msg.WithChannelBackup(blob))

	decoded := roundTrip(t, msg).(*ChannelReestablish)
	gotBlob, ok, err := decoded.ChannelBackup()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, blob, gotBlob)
}

func TestChannelReestablishNoBackup(t *testing.T) {
	msg := &ChannelReestablish{MyCurrentPerCommitmentPoint: randPubKey(t)}
	decoded := roundTrip(t, msg).(*ChannelReestablish)
	_, ok, err := decoded.ChannelBackup()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUnknownMessageType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xfe})
	_, err := ReadMessage(&buf)
	require.Error(t, err)

	var unknown *UnknownMessage
	require.ErrorAs(t, err, &unknown)
}

func TestMessageTypeIsOdd(t *testing.T) {
	require.True(t, MsgWarning.IsOdd())
	require.False(t, MsgInit.IsOdd())
}

func TestNewChannelIDXorsOutputIndex(t *testing.T) {
	var txid [32]byte
	txid[31] = 0x05
	id := NewChannelID(txid, 1)
	require.Equal(t, byte(0x04), id[31])
}
