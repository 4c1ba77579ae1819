package phoenixcore

import (
	"bytes"
	"encoding/gob"

	"github.com/breez/phoenixcore/channeldb"
	"github.com/breez/phoenixcore/lnwallet"
)

// ChannelState is a tagged union (interface{ isChannelState() }), so it
// cannot be round-tripped through encoding/json the way a plain struct
// can: gob is the only stdlib codec that serializes a concrete-type-tagged
// interface value without a hand-written per-type wire format, provided
// every concrete type is registered up front. None of this module's
// third-party libraries (lnd/tlv is a BOLT TLV codec for wire messages,
// not arbitrary Go interfaces; bbolt only stores already-serialized
// bytes) address this, so the orchestrator's own persistence boundary is
// the one place this module reaches for gob instead of a corpus library.
func init() {
	gob.Register(lnwallet.WaitForInit{})
	gob.Register(lnwallet.WaitForOpenChannel{})
	gob.Register(lnwallet.WaitForAcceptChannel{})
	gob.Register(lnwallet.WaitForFundingCreated{})
	gob.Register(lnwallet.WaitForFundingSigned{})
	gob.Register(lnwallet.WaitForFundingConfirmed{})
	gob.Register(lnwallet.LegacyWaitForFundingConfirmed{})
	gob.Register(lnwallet.WaitForChannelReady{})
	gob.Register(lnwallet.Normal{})
	gob.Register(lnwallet.ShuttingDown{})
	gob.Register(lnwallet.Negotiating{})
	gob.Register(lnwallet.Closing{})
	gob.Register(lnwallet.Closed{})
	gob.Register(lnwallet.Aborted{})
	gob.Register(lnwallet.Offline{})
	gob.Register(lnwallet.Syncing{})
}

// encodeChannelState serializes a ChannelState for the StoreState action.
func encodeChannelState(state lnwallet.ChannelState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeChannelState reverses encodeChannelState, used when restoring a
// channel from channeldb.PersistedChannelState on startup after a restart.
func decodeChannelState(data []byte) (lnwallet.ChannelState, error) {
	var state lnwallet.ChannelState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return nil, err
	}
	return state, nil
}

// channelIDOf returns the channel id a state is currently addressed by,
// for states that have been assigned one (post open_channel2/accept, or
// restored from storage).
func channelIDOf(state lnwallet.ChannelState) ([32]byte, bool) {
	switch st := state.(type) {
	case lnwallet.WaitForFundingConfirmed:
		return st.ChanID, true
	case lnwallet.LegacyWaitForFundingConfirmed:
		return st.ChanID, true
	case lnwallet.WaitForChannelReady:
		return st.ChanID, true
	case lnwallet.Normal:
		return st.ChanID, true
	case lnwallet.ShuttingDown:
		return st.ChanID, true
	case lnwallet.Negotiating:
		return st.ChanID, true
	case lnwallet.Closing:
		return st.ChanID, true
	case lnwallet.Closed:
		return st.ChanID, true
	case lnwallet.Aborted:
		return st.ChanID, true
	case lnwallet.Offline:
		return channelIDOf(st.Inner)
	case lnwallet.Syncing:
		return channelIDOf(st.Inner)
	default:
		return [32]byte{}, false
	}
}

// scidOf returns the short channel id a Normal (or Offline/Syncing-wrapped
// Normal) state has been assigned, used to index channels for
// ChannelUpdate routing by short channel id.
func scidOf(state lnwallet.ChannelState) (uint64, bool) {
	switch st := state.(type) {
	case lnwallet.Normal:
		if st.Commitments.ShortChannelID == nil {
			return 0, false
		}
		return st.Commitments.ShortChannelID.ToUint64(), true
	case lnwallet.Offline:
		return scidOf(st.Inner)
	case lnwallet.Syncing:
		return scidOf(st.Inner)
	default:
		return 0, false
	}
}

func toPersisted(chanID [32]byte, state lnwallet.ChannelState, closed bool) (channeldb.PersistedChannelState, error) {
	data, err := encodeChannelState(state)
	if err != nil {
		return channeldb.PersistedChannelState{}, err
	}
	return channeldb.PersistedChannelState{ChannelID: chanID, Data: data, IsClosed: closed}, nil
}
