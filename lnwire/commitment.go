package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// UpdateAddHTLC proposes adding a new HTLC to the commitment. The onion
// packet is opaque at this layer; lnwallet decrypts it before deciding
// whether the payment terminates here or should be forwarded.
type UpdateAddHTLC struct {
	ChanID      ChannelID
	ID          uint64
	Amount      btcutil.Amount
	PaymentHash [32]byte
	Expiry      uint32
	OnionBlob   [1366]byte
	ExtraData   ExtraData
}

func (m *UpdateAddHTLC) MsgType() MessageType { return MsgUpdateAddHTLC }

func (m *UpdateAddHTLC) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, m.ID); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.Amount)); err != nil {
		return err
	}
	if err := writeHash32(w, m.PaymentHash); err != nil {
		return err
	}
	if err := writeUint32(w, m.Expiry); err != nil {
		return err
	}
	if _, err := w.Write(m.OnionBlob[:]); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *UpdateAddHTLC) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.ID, err = readUint64(r); err != nil {
		return err
	}
	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Amount = btcutil.Amount(amt)
	if m.PaymentHash, err = readHash32(r); err != nil {
		return err
	}
	if m.Expiry, err = readUint32(r); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, m.OnionBlob[:]); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// UpdateFulfillHTLC reveals the preimage that settles an outstanding HTLC.
type UpdateFulfillHTLC struct {
	ChanID          ChannelID
	ID              uint64
	PaymentPreimage [32]byte
	ExtraData       ExtraData
}

func (m *UpdateFulfillHTLC) MsgType() MessageType { return MsgUpdateFulfillHTLC }

func (m *UpdateFulfillHTLC) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, m.ID); err != nil {
		return err
	}
	if err := writeHash32(w, m.PaymentPreimage); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *UpdateFulfillHTLC) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.ID, err = readUint64(r); err != nil {
		return err
	}
	if m.PaymentPreimage, err = readHash32(r); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// UpdateFailHTLC fails an outstanding HTLC with an opaque, onion-encrypted
// reason blob.
type UpdateFailHTLC struct {
	ChanID ChannelID
	ID     uint64
	Reason []byte
}

func (m *UpdateFailHTLC) MsgType() MessageType { return MsgUpdateFailHTLC }

func (m *UpdateFailHTLC) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, m.ID); err != nil {
		return err
	}
	return writeVarBytes(w, m.Reason)
}

func (m *UpdateFailHTLC) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.ID, err = readUint64(r); err != nil {
		return err
	}
	m.Reason, err = readVarBytes(r, MaxMessagePayload)
	return err
}

// UpdateFailMalformedHTLC fails an HTLC whose onion packet could not even be
// parsed, so no encrypted reason can be produced.
type UpdateFailMalformedHTLC struct {
	ChanID       ChannelID
	ID           uint64
	ShaOnionBlob [32]byte
	FailureCode  uint16
}

func (m *UpdateFailMalformedHTLC) MsgType() MessageType { return MsgUpdateFailMalformedHTLC }

func (m *UpdateFailMalformedHTLC) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, m.ID); err != nil {
		return err
	}
	if err := writeHash32(w, m.ShaOnionBlob); err != nil {
		return err
	}
	return writeUint16(w, m.FailureCode)
}

func (m *UpdateFailMalformedHTLC) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.ID, err = readUint64(r); err != nil {
		return err
	}
	if m.ShaOnionBlob, err = readHash32(r); err != nil {
		return err
	}
	m.FailureCode, err = readUint16(r)
	return err
}

// CommitmentSigned carries the signature(s) for the counterparty's next
// commitment transaction, one per pending HTLC output plus the base
// signature.
type CommitmentSigned struct {
	ChanID    ChannelID
	CommitSig []byte
	HtlcSigs  [][]byte
}

func (m *CommitmentSigned) MsgType() MessageType { return MsgCommitmentSigned }

func (m *CommitmentSigned) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.CommitSig); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(len(m.HtlcSigs))); err != nil {
		return err
	}
	for _, sig := range m.HtlcSigs {
		if err := writeVarBytes(w, sig); err != nil {
			return err
		}
	}
	return nil
}

func (m *CommitmentSigned) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.CommitSig, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	count, err := readUint16(r)
	if err != nil {
		return err
	}
	m.HtlcSigs = make([][]byte, count)
	for i := range m.HtlcSigs {
		m.HtlcSigs[i], err = readVarBytes(r, MaxMessagePayload)
		if err != nil {
			return err
		}
	}
	return nil
}

// RevokeAndAck releases the old per-commitment secret and advertises the
// next per-commitment point, completing one side of the commitment cycle.
type RevokeAndAck struct {
	ChanID             ChannelID
	PerCommitmentSecret [32]byte
	NextPerCommitmentPoint *btcec.PublicKey
}

func (m *RevokeAndAck) MsgType() MessageType { return MsgRevokeAndAck }

func (m *RevokeAndAck) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeHash32(w, m.PerCommitmentSecret); err != nil {
		return err
	}
	return writePubKey(w, m.NextPerCommitmentPoint)
}

func (m *RevokeAndAck) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.PerCommitmentSecret, err = readHash32(r); err != nil {
		return err
	}
	m.NextPerCommitmentPoint, err = readPubKey(r)
	return err
}

// UpdateFee adjusts the commitment feerate; only the funder may send it.
type UpdateFee struct {
	ChanID   ChannelID
	FeePerKw uint32
}

func (m *UpdateFee) MsgType() MessageType { return MsgUpdateFee }

func (m *UpdateFee) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	return writeUint32(w, m.FeePerKw)
}

func (m *UpdateFee) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	m.FeePerKw, err = readUint32(r)
	return err
}
