package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// ChannelReestablish is exchanged on every reconnection to resynchronize
// commitment state and detect data loss. The ExtraData TLV stream may carry
// an encrypted channel_data backup that lets a peer who lost its database
// recover the channel from the counterparty's copy.
type ChannelReestablish struct {
	ChanID              ChannelID
	NextLocalCommitmentNumber  uint64
	NextRemoteRevocationNumber uint64
	YourLastPerCommitmentSecret [32]byte
	MyCurrentPerCommitmentPoint *btcec.PublicKey
	ExtraData           ExtraData
}

func (m *ChannelReestablish) MsgType() MessageType { return MsgChannelReestablish }

func (m *ChannelReestablish) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, m.NextLocalCommitmentNumber); err != nil {
		return err
	}
	if err := writeUint64(w, m.NextRemoteRevocationNumber); err != nil {
		return err
	}
	if err := writeHash32(w, m.YourLastPerCommitmentSecret); err != nil {
		return err
	}
	if err := writePubKey(w, m.MyCurrentPerCommitmentPoint); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *ChannelReestablish) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.NextLocalCommitmentNumber, err = readUint64(r); err != nil {
		return err
	}
	if m.NextRemoteRevocationNumber, err = readUint64(r); err != nil {
		return err
	}
	if m.YourLastPerCommitmentSecret, err = readHash32(r); err != nil {
		return err
	}
	if m.MyCurrentPerCommitmentPoint, err = readPubKey(r); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// ChannelBackup extracts the encrypted channel_data blob from the TLV
// extension, if the peer attached one.
func (m *ChannelReestablish) ChannelBackup() ([]byte, bool, error) {
	return decodeChannelDataTLV(m.ExtraData)
}

// WithChannelBackup attaches an encrypted channel_data blob to the TLV
// extension, so the counterparty can recover from it after data loss.
func (m *ChannelReestablish) WithChannelBackup(blob []byte) error {
	raw, err := encodeChannelDataTLV(blob)
	if err != nil {
		return err
	}
	m.ExtraData = raw
	return nil
}
