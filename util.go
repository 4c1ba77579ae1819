package phoenixcore

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/lnwire"
	"github.com/breez/phoenixcore/postman"
	"github.com/breez/phoenixcore/swapin"
)

func hexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func outpointsOf(utxos []swapin.Utxo) []wire.OutPoint {
	out := make([]wire.OutPoint, len(utxos))
	for i, u := range utxos {
		out[i] = u.OutPoint
	}
	return out
}

// extractChanID returns the channel (or temporary channel) id a
// per-channel wire message is addressed to, covering every message type
// this node routes to a channel's state machine rather than handling at
// the connection level.
func extractChanID(msg lnwire.Message) (lnwire.ChannelID, bool) {
	switch m := msg.(type) {
	case *lnwire.OpenChannel2:
		return m.TemporaryChanID, true
	case *lnwire.AcceptChannel2:
		return m.TemporaryChanID, true
	case *lnwire.TxAddInput:
		return m.ChanID, true
	case *lnwire.TxAddOutput:
		return m.ChanID, true
	case *lnwire.TxRemoveInput:
		return m.ChanID, true
	case *lnwire.TxRemoveOutput:
		return m.ChanID, true
	case *lnwire.TxComplete:
		return m.ChanID, true
	case *lnwire.TxSignatures:
		return m.ChanID, true
	case *lnwire.TxAbort:
		return m.ChanID, true
	case *lnwire.ChannelReady:
		return m.ChanID, true
	case *lnwire.Shutdown:
		return m.ChanID, true
	case *lnwire.ClosingSigned:
		return m.ChanID, true
	case *lnwire.UpdateAddHTLC:
		return m.ChanID, true
	case *lnwire.UpdateFulfillHTLC:
		return m.ChanID, true
	case *lnwire.UpdateFailHTLC:
		return m.ChanID, true
	case *lnwire.UpdateFailMalformedHTLC:
		return m.ChanID, true
	case *lnwire.CommitmentSigned:
		return m.ChanID, true
	case *lnwire.RevokeAndAck:
		return m.ChanID, true
	case *lnwire.UpdateFee:
		return m.ChanID, true
	case *lnwire.ChannelReestablish:
		return m.ChanID, true
	case *lnwire.SpliceInit:
		return m.ChanID, true
	case *lnwire.SpliceAck:
		return m.ChanID, true
	case *lnwire.SpliceLocked:
		return m.ChanID, true
	default:
		return lnwire.ChannelID{}, false
	}
}

// encodeOnionMessage/decodeOnionMessage bridge postman's in-memory
// BlindedPath to the wire OnionMessage's two opaque byte fields. Only the
// blinding point and the per-hop encrypted records cross the wire; the
// introduction node is never carried inside the message since it is only
// needed to address the first hop's transport send, which for this
// module's single-trampoline-peer topology is always this connection.
func encodeOnionMessage(path *postman.BlindedPath) (*lnwire.OnionMessage, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(path.Hops); err != nil {
		return nil, err
	}
	return &lnwire.OnionMessage{
		BlindingPoint: path.BlindingPoint.SerializeCompressed(),
		OnionBlob:     buf.Bytes(),
	}, nil
}

func decodeOnionMessage(m *lnwire.OnionMessage) (*postman.BlindedPath, error) {
	blindingPoint, err := btcec.ParsePubKey(m.BlindingPoint)
	if err != nil {
		return nil, err
	}
	var hops []postman.BlindedHop
	if err := gob.NewDecoder(bytes.NewReader(m.OnionBlob)).Decode(&hops); err != nil {
		return nil, err
	}
	return &postman.BlindedPath{BlindingPoint: blindingPoint, Hops: hops}, nil
}
