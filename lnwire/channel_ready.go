package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// ChannelReady announces that the sender considers the funding transaction
// (or, for a splice, the new funding transaction) confirmed to the required
// depth and is ready to use the channel.
type ChannelReady struct {
	ChanID                  ChannelID
	NextPerCommitmentPoint  *btcec.PublicKey
	ShortChannelID          *uint64
	ExtraData               ExtraData
}

func (m *ChannelReady) MsgType() MessageType { return MsgChannelReady }

func (m *ChannelReady) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writePubKey(w, m.NextPerCommitmentPoint); err != nil {
		return err
	}
	var scid uint64
	if m.ShortChannelID != nil {
		scid = *m.ShortChannelID
	}
	if err := writeUint64(w, scid); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *ChannelReady) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.NextPerCommitmentPoint, err = readPubKey(r); err != nil {
		return err
	}
	scid, err := readUint64(r)
	if err != nil {
		return err
	}
	if scid != 0 {
		m.ShortChannelID = &scid
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// Shutdown begins the cooperative close negotiation: the sender will accept
// no further HTLCs and proposes a final closing script.
type Shutdown struct {
	ChanID      ChannelID
	ScriptPubkey []byte
	ExtraData   ExtraData
}

func (m *Shutdown) MsgType() MessageType { return MsgShutdown }

func (m *Shutdown) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.ScriptPubkey); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *Shutdown) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.ScriptPubkey, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// ClosingSigned proposes (or counter-proposes) a fee for the mutual close
// transaction during Negotiating.
type ClosingSigned struct {
	ChanID    ChannelID
	FeeSatoshis btcutil.Amount
	Signature []byte
	ExtraData ExtraData
}

func (m *ClosingSigned) MsgType() MessageType { return MsgClosingSigned }

func (m *ClosingSigned) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.FeeSatoshis)); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.Signature); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *ClosingSigned) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	fee, err := readUint64(r)
	if err != nil {
		return err
	}
	m.FeeSatoshis = btcutil.Amount(fee)
	if m.Signature, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}
