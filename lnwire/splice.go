package lnwire

import (
	"io"
)

// SpliceInit proposes replacing the channel's current funding output with a
// new one carrying additional (or withdrawn) capacity, negotiated through
// the same interactive-tx messages used for dual-funding.
type SpliceInit struct {
	ChanID           ChannelID
	RelativeSatoshis int64
	FundingFeerate   uint32
	LockTime         uint32
	ExtraData        ExtraData
}

func (m *SpliceInit) MsgType() MessageType { return MsgSpliceInit }

func (m *SpliceInit) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.RelativeSatoshis)); err != nil {
		return err
	}
	if err := writeUint32(w, m.FundingFeerate); err != nil {
		return err
	}
	if err := writeUint32(w, m.LockTime); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *SpliceInit) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	rel, err := readUint64(r)
	if err != nil {
		return err
	}
	m.RelativeSatoshis = int64(rel)
	if m.FundingFeerate, err = readUint32(r); err != nil {
		return err
	}
	if m.LockTime, err = readUint32(r); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// SpliceAck accepts a splice proposal, contributing the acceptor's own
// relative satoshi delta to the new funding output.
type SpliceAck struct {
	ChanID           ChannelID
	RelativeSatoshis int64
	ExtraData        ExtraData
}

func (m *SpliceAck) MsgType() MessageType { return MsgSpliceAck }

func (m *SpliceAck) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.RelativeSatoshis)); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *SpliceAck) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	rel, err := readUint64(r)
	if err != nil {
		return err
	}
	m.RelativeSatoshis = int64(rel)
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// SpliceLocked announces that the sender considers the new splice funding
// transaction confirmed to the required depth, mirroring ChannelReady for
// the post-splice funding output.
type SpliceLocked struct {
	ChanID   ChannelID
	TxHash   [32]byte
}

func (m *SpliceLocked) MsgType() MessageType { return MsgSpliceLocked }

func (m *SpliceLocked) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	return writeHash32(w, m.TxHash)
}

func (m *SpliceLocked) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	m.TxHash, err = readHash32(r)
	return err
}
