package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// OpenChannel2 kicks off interactive dual-funding. The responder's
// ChannelOrigin is carried via ExtraData so a please_open_channel
// flow can be correlated back to the pending request that triggered it.
type OpenChannel2 struct {
	ChainHash        [32]byte
	TemporaryChanID  ChannelID
	FundingFeerate   uint32
	CommitmentFeerate uint32
	FundingAmount    btcutil.Amount
	DustLimit        btcutil.Amount
	MaxHtlcValueInFlight uint64
	HtlcMinimum      btcutil.Amount
	ToSelfDelay      uint16
	MaxAcceptedHtlcs uint16
	LockTime         uint32
	FundingKey       *btcec.PublicKey
	RevocationPoint  *btcec.PublicKey
	PaymentPoint     *btcec.PublicKey
	DelayedPaymentPoint *btcec.PublicKey
	HtlcPoint        *btcec.PublicKey
	FirstPerCommitmentPoint *btcec.PublicKey
	ChannelFlags     byte
	ExtraData        ExtraData
}

func (m *OpenChannel2) MsgType() MessageType { return MsgOpenChannel2 }

func (m *OpenChannel2) Encode(w io.Writer) error {
	if err := writeHash32(w, m.ChainHash); err != nil {
		return err
	}
	if err := writeChanID(w, m.TemporaryChanID); err != nil {
		return err
	}
	if err := writeUint32(w, m.FundingFeerate); err != nil {
		return err
	}
	if err := writeUint32(w, m.CommitmentFeerate); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.FundingAmount)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.DustLimit)); err != nil {
		return err
	}
	if err := writeUint64(w, m.MaxHtlcValueInFlight); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.HtlcMinimum)); err != nil {
		return err
	}
	if err := writeUint16(w, m.ToSelfDelay); err != nil {
		return err
	}
	if err := writeUint16(w, m.MaxAcceptedHtlcs); err != nil {
		return err
	}
	if err := writeUint32(w, m.LockTime); err != nil {
		return err
	}
	for _, pub := range []*btcec.PublicKey{
		m.FundingKey, m.RevocationPoint, m.PaymentPoint,
		m.DelayedPaymentPoint, m.HtlcPoint, m.FirstPerCommitmentPoint,
	} {
		if err := writePubKey(w, pub); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte{m.ChannelFlags}); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *OpenChannel2) Decode(r io.Reader) error {
	var err error
	if m.ChainHash, err = readHash32(r); err != nil {
		return err
	}
	if m.TemporaryChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.FundingFeerate, err = readUint32(r); err != nil {
		return err
	}
	if m.CommitmentFeerate, err = readUint32(r); err != nil {
		return err
	}
	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	m.FundingAmount = btcutil.Amount(amt)
	dust, err := readUint64(r)
	if err != nil {
		return err
	}
	m.DustLimit = btcutil.Amount(dust)
	if m.MaxHtlcValueInFlight, err = readUint64(r); err != nil {
		return err
	}
	htlcMin, err := readUint64(r)
	if err != nil {
		return err
	}
	m.HtlcMinimum = btcutil.Amount(htlcMin)
	if m.ToSelfDelay, err = readUint16(r); err != nil {
		return err
	}
	if m.MaxAcceptedHtlcs, err = readUint16(r); err != nil {
		return err
	}
	if m.LockTime, err = readUint32(r); err != nil {
		return err
	}
	keys := make([]**btcec.PublicKey, 0, 6)
	keys = append(keys, &m.FundingKey, &m.RevocationPoint, &m.PaymentPoint,
		&m.DelayedPaymentPoint, &m.HtlcPoint, &m.FirstPerCommitmentPoint)
	for _, kp := range keys {
		*kp, err = readPubKey(r)
		if err != nil {
			return err
		}
	}
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return err
	}
	m.ChannelFlags = flag[0]
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// Origin returns the please_open_channel request id embedded in the TLV
// extension, when present.
func (m *OpenChannel2) Origin() ([32]byte, bool, error) {
	return decodeRequestIDTLV(m.ExtraData)
}

// AcceptChannel2 is the non-initiator's reply to OpenChannel2.
type AcceptChannel2 struct {
	TemporaryChanID  ChannelID
	FundingAmount    btcutil.Amount
	DustLimit        btcutil.Amount
	MaxHtlcValueInFlight uint64
	HtlcMinimum      btcutil.Amount
	MinDepth         uint32
	ToSelfDelay      uint16
	MaxAcceptedHtlcs uint16
	FundingKey       *btcec.PublicKey
	RevocationPoint  *btcec.PublicKey
	PaymentPoint     *btcec.PublicKey
	DelayedPaymentPoint *btcec.PublicKey
	HtlcPoint        *btcec.PublicKey
	FirstPerCommitmentPoint *btcec.PublicKey
	ExtraData        ExtraData
}

func (m *AcceptChannel2) MsgType() MessageType { return MsgAcceptChannel2 }

func (m *AcceptChannel2) Encode(w io.Writer) error {
	if err := writeChanID(w, m.TemporaryChanID); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.FundingAmount)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.DustLimit)); err != nil {
		return err
	}
	if err := writeUint64(w, m.MaxHtlcValueInFlight); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.HtlcMinimum)); err != nil {
		return err
	}
	if err := writeUint32(w, m.MinDepth); err != nil {
		return err
	}
	if err := writeUint16(w, m.ToSelfDelay); err != nil {
		return err
	}
	if err := writeUint16(w, m.MaxAcceptedHtlcs); err != nil {
		return err
	}
	for _, pub := range []*btcec.PublicKey{
		m.FundingKey, m.RevocationPoint, m.PaymentPoint,
		m.DelayedPaymentPoint, m.HtlcPoint, m.FirstPerCommitmentPoint,
	} {
		if err := writePubKey(w, pub); err != nil {
			return err
		}
	}
	return m.ExtraData.encode(w)
}

func (m *AcceptChannel2) Decode(r io.Reader) error {
	var err error
	if m.TemporaryChanID, err = readChanID(r); err != nil {
		return err
	}
	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	m.FundingAmount = btcutil.Amount(amt)
	dust, err := readUint64(r)
	if err != nil {
		return err
	}
	m.DustLimit = btcutil.Amount(dust)
	if m.MaxHtlcValueInFlight, err = readUint64(r); err != nil {
		return err
	}
	htlcMin, err := readUint64(r)
	if err != nil {
		return err
	}
	m.HtlcMinimum = btcutil.Amount(htlcMin)
	if m.MinDepth, err = readUint32(r); err != nil {
		return err
	}
	if m.ToSelfDelay, err = readUint16(r); err != nil {
		return err
	}
	if m.MaxAcceptedHtlcs, err = readUint16(r); err != nil {
		return err
	}
	keys := []**btcec.PublicKey{
		&m.FundingKey, &m.RevocationPoint, &m.PaymentPoint,
		&m.DelayedPaymentPoint, &m.HtlcPoint, &m.FirstPerCommitmentPoint,
	}
	for _, kp := range keys {
		*kp, err = readPubKey(r)
		if err != nil {
			return err
		}
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// Origin returns the please_open_channel request id embedded in the TLV
// extension, when present.
func (m *AcceptChannel2) Origin() ([32]byte, bool, error) {
	return decodeRequestIDTLV(m.ExtraData)
}

// TxAddInput contributes one input to the interactive transaction being
// constructed for a dual-funded open or a splice.
type TxAddInput struct {
	ChanID        ChannelID
	SerialID      uint64
	PrevTx        []byte
	PrevTxVout    uint32
	Sequence      uint32
}

func (m *TxAddInput) MsgType() MessageType { return MsgTxAddInput }

func (m *TxAddInput) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, m.SerialID); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.PrevTx); err != nil {
		return err
	}
	if err := writeUint32(w, m.PrevTxVout); err != nil {
		return err
	}
	return writeUint32(w, m.Sequence)
}

func (m *TxAddInput) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.SerialID, err = readUint64(r); err != nil {
		return err
	}
	if m.PrevTx, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	if m.PrevTxVout, err = readUint32(r); err != nil {
		return err
	}
	m.Sequence, err = readUint32(r)
	return err
}

// TxAddOutput contributes one output to the interactive transaction.
type TxAddOutput struct {
	ChanID   ChannelID
	SerialID uint64
	Amount   btcutil.Amount
	Script   []byte
}

func (m *TxAddOutput) MsgType() MessageType { return MsgTxAddOutput }

func (m *TxAddOutput) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeUint64(w, m.SerialID); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.Amount)); err != nil {
		return err
	}
	return writeVarBytes(w, m.Script)
}

func (m *TxAddOutput) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.SerialID, err = readUint64(r); err != nil {
		return err
	}
	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	m.Amount = btcutil.Amount(amt)
	m.Script, err = readVarBytes(r, MaxMessagePayload)
	return err
}

// TxRemoveInput withdraws a previously contributed input by serial id.
type TxRemoveInput struct {
	ChanID   ChannelID
	SerialID uint64
}

func (m *TxRemoveInput) MsgType() MessageType { return MsgTxRemoveInput }

func (m *TxRemoveInput) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	return writeUint64(w, m.SerialID)
}

func (m *TxRemoveInput) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	m.SerialID, err = readUint64(r)
	return err
}

// TxRemoveOutput withdraws a previously contributed output by serial id.
type TxRemoveOutput struct {
	ChanID   ChannelID
	SerialID uint64
}

func (m *TxRemoveOutput) MsgType() MessageType { return MsgTxRemoveOutput }

func (m *TxRemoveOutput) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	return writeUint64(w, m.SerialID)
}

func (m *TxRemoveOutput) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	m.SerialID, err = readUint64(r)
	return err
}

// TxComplete signals that the sender has no further inputs/outputs to
// contribute to the current interactive-tx round.
type TxComplete struct {
	ChanID ChannelID
}

func (m *TxComplete) MsgType() MessageType { return MsgTxComplete }

func (m *TxComplete) Encode(w io.Writer) error {
	return writeChanID(w, m.ChanID)
}

func (m *TxComplete) Decode(r io.Reader) error {
	var err error
	m.ChanID, err = readChanID(r)
	return err
}

// TxSignatures carries the witness stack for each input the sender
// contributed, released only after the peer's commitment_signed has been
// validated: signatures for local inputs are withheld until then.
type TxSignatures struct {
	ChanID    ChannelID
	TxHash    [32]byte
	Witnesses [][]byte
}

func (m *TxSignatures) MsgType() MessageType { return MsgTxSignatures }

func (m *TxSignatures) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	if err := writeHash32(w, m.TxHash); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(len(m.Witnesses))); err != nil {
		return err
	}
	for _, wit := range m.Witnesses {
		if err := writeVarBytes(w, wit); err != nil {
			return err
		}
	}
	return nil
}

func (m *TxSignatures) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	if m.TxHash, err = readHash32(r); err != nil {
		return err
	}
	count, err := readUint16(r)
	if err != nil {
		return err
	}
	m.Witnesses = make([][]byte, count)
	for i := range m.Witnesses {
		m.Witnesses[i], err = readVarBytes(r, MaxMessagePayload)
		if err != nil {
			return err
		}
	}
	return nil
}

// TxAbort cancels an in-progress interactive-tx round. Receiving or sending
// this message drives the channel to Aborted.
type TxAbort struct {
	ChanID ChannelID
	Data   []byte
}

func (m *TxAbort) MsgType() MessageType { return MsgTxAbort }

func (m *TxAbort) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	return writeVarBytes(w, m.Data)
}

func (m *TxAbort) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	m.Data, err = readVarBytes(r, MaxMessagePayload)
	return err
}
