package lnwire

import (
	"io"
)

// ChannelUpdate carries the fee and cltv policy the peer applies when
// forwarding through a given short channel id. This node never relays
// payments itself or maintains a public graph, but it still needs its
// single peer's current policy to size outgoing-hop fees/cltv when
// constructing onions and to validate extraHops on its own invoices.
type ChannelUpdate struct {
	Signature       []byte
	ChainHash       [32]byte
	ShortChannelID  uint64
	Timestamp       uint32
	MessageFlags    byte
	ChannelFlags    byte
	CltvExpiryDelta uint16
	HtlcMinimumMsat uint64
	FeeBaseMsat     uint32
	FeeProportionalMillionths uint32
	HtlcMaximumMsat uint64
	ExtraData       ExtraData
}

func (m *ChannelUpdate) MsgType() MessageType { return MsgChannelUpdate }

func (m *ChannelUpdate) Encode(w io.Writer) error {
	if err := writeVarBytes(w, m.Signature); err != nil {
		return err
	}
	if err := writeHash32(w, m.ChainHash); err != nil {
		return err
	}
	if err := writeUint64(w, m.ShortChannelID); err != nil {
		return err
	}
	if err := writeUint32(w, m.Timestamp); err != nil {
		return err
	}
	if _, err := w.Write([]byte{m.MessageFlags, m.ChannelFlags}); err != nil {
		return err
	}
	if err := writeUint16(w, m.CltvExpiryDelta); err != nil {
		return err
	}
	if err := writeUint64(w, m.HtlcMinimumMsat); err != nil {
		return err
	}
	if err := writeUint32(w, m.FeeBaseMsat); err != nil {
		return err
	}
	if err := writeUint32(w, m.FeeProportionalMillionths); err != nil {
		return err
	}
	if err := writeUint64(w, m.HtlcMaximumMsat); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *ChannelUpdate) Decode(r io.Reader) error {
	var err error
	if m.Signature, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	if m.ChainHash, err = readHash32(r); err != nil {
		return err
	}
	if m.ShortChannelID, err = readUint64(r); err != nil {
		return err
	}
	if m.Timestamp, err = readUint32(r); err != nil {
		return err
	}
	var flags [2]byte
	if _, err := io.ReadFull(r, flags[:]); err != nil {
		return err
	}
	m.MessageFlags, m.ChannelFlags = flags[0], flags[1]
	if m.CltvExpiryDelta, err = readUint16(r); err != nil {
		return err
	}
	if m.HtlcMinimumMsat, err = readUint64(r); err != nil {
		return err
	}
	if m.FeeBaseMsat, err = readUint32(r); err != nil {
		return err
	}
	if m.FeeProportionalMillionths, err = readUint32(r); err != nil {
		return err
	}
	if m.HtlcMaximumMsat, err = readUint64(r); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}
