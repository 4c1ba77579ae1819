package lnwire

import (
	"io"

	"github.com/btcsuite/btcd/btcutil"
)

// PleaseOpenChannel asks the trampoline peer to open a channel to us,
// typically so it can deliver a payment it can't otherwise forward (spec
// §4.2). The RequestID ties the eventual open_channel2 back to this ask.
type PleaseOpenChannel struct {
	ChainHash      [32]byte
	RequestID      [32]byte
	FundingSatoshis btcutil.Amount
	PushMsat       uint64
	FundingFeerate uint32
	ExtraData      ExtraData
}

func (m *PleaseOpenChannel) MsgType() MessageType { return MsgPleaseOpenChannel }

func (m *PleaseOpenChannel) Encode(w io.Writer) error {
	if err := writeHash32(w, m.ChainHash); err != nil {
		return err
	}
	if err := writeHash32(w, m.RequestID); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.FundingSatoshis)); err != nil {
		return err
	}
	if err := writeUint64(w, m.PushMsat); err != nil {
		return err
	}
	if err := writeUint32(w, m.FundingFeerate); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *PleaseOpenChannel) Decode(r io.Reader) error {
	var err error
	if m.ChainHash, err = readHash32(r); err != nil {
		return err
	}
	if m.RequestID, err = readHash32(r); err != nil {
		return err
	}
	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	m.FundingSatoshis = btcutil.Amount(amt)
	if m.PushMsat, err = readUint64(r); err != nil {
		return err
	}
	if m.FundingFeerate, err = readUint32(r); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// PayToOpenRequest offers to deliver a payment by opening (or splicing) a
// channel funded from the payment itself, minus a disclosed fee, per spec
// §4.2's pay-to-open flow.
type PayToOpenRequest struct {
	ChainHash         [32]byte
	PaymentHash       [32]byte
	PaymentAmountMsat uint64
	FundingAmount     btcutil.Amount
	PayToOpenFeeMsat  uint64
	PayToOpenMinAmountMsat uint64
	PayToOpenExpiry   uint32
	FinalExpiryDelta  uint32
	OnionBlob         [1366]byte
	ExtraData         ExtraData
}

func (m *PayToOpenRequest) MsgType() MessageType { return MsgPayToOpenRequest }

func (m *PayToOpenRequest) Encode(w io.Writer) error {
	if err := writeHash32(w, m.ChainHash); err != nil {
		return err
	}
	if err := writeHash32(w, m.PaymentHash); err != nil {
		return err
	}
	if err := writeUint64(w, m.PaymentAmountMsat); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(m.FundingAmount)); err != nil {
		return err
	}
	if err := writeUint64(w, m.PayToOpenFeeMsat); err != nil {
		return err
	}
	if err := writeUint64(w, m.PayToOpenMinAmountMsat); err != nil {
		return err
	}
	if err := writeUint32(w, m.PayToOpenExpiry); err != nil {
		return err
	}
	if err := writeUint32(w, m.FinalExpiryDelta); err != nil {
		return err
	}
	if _, err := w.Write(m.OnionBlob[:]); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *PayToOpenRequest) Decode(r io.Reader) error {
	var err error
	if m.ChainHash, err = readHash32(r); err != nil {
		return err
	}
	if m.PaymentHash, err = readHash32(r); err != nil {
		return err
	}
	if m.PaymentAmountMsat, err = readUint64(r); err != nil {
		return err
	}
	amt, err := readUint64(r)
	if err != nil {
		return err
	}
	m.FundingAmount = btcutil.Amount(amt)
	if m.PayToOpenFeeMsat, err = readUint64(r); err != nil {
		return err
	}
	if m.PayToOpenMinAmountMsat, err = readUint64(r); err != nil {
		return err
	}
	if m.PayToOpenExpiry, err = readUint32(r); err != nil {
		return err
	}
	if m.FinalExpiryDelta, err = readUint32(r); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, m.OnionBlob[:]); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// PayToOpenResponse accepts or rejects a pay-to-open offer.
type PayToOpenResponse struct {
	ChainHash   [32]byte
	PaymentHash [32]byte
	Result      PayToOpenResult
	ExtraData   ExtraData
}

// PayToOpenResult enumerates the outcomes of a pay-to-open offer.
type PayToOpenResult byte

const (
	PayToOpenAccepted PayToOpenResult = 0
	PayToOpenRejected PayToOpenResult = 1
)

func (m *PayToOpenResponse) MsgType() MessageType { return MsgPayToOpenResponse }

func (m *PayToOpenResponse) Encode(w io.Writer) error {
	if err := writeHash32(w, m.ChainHash); err != nil {
		return err
	}
	if err := writeHash32(w, m.PaymentHash); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(m.Result)}); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *PayToOpenResponse) Decode(r io.Reader) error {
	var err error
	if m.ChainHash, err = readHash32(r); err != nil {
		return err
	}
	if m.PaymentHash, err = readHash32(r); err != nil {
		return err
	}
	var res [1]byte
	if _, err := io.ReadFull(r, res[:]); err != nil {
		return err
	}
	m.Result = PayToOpenResult(res[0])
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// OnionMessage carries a Sphinx-wrapped onion message between peers that
// may not share a channel, used for blinded-path offer exchanges and the
// postman's ping/reply traffic.
type OnionMessage struct {
	BlindingPoint []byte
	OnionBlob     []byte
}

func (m *OnionMessage) MsgType() MessageType { return MsgOnionMessage }

func (m *OnionMessage) Encode(w io.Writer) error {
	if err := writeVarBytes(w, m.BlindingPoint); err != nil {
		return err
	}
	return writeVarBytes(w, m.OnionBlob)
}

func (m *OnionMessage) Decode(r io.Reader) error {
	var err error
	if m.BlindingPoint, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	m.OnionBlob, err = readVarBytes(r, MaxMessagePayload)
	return err
}
