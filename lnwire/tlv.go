package lnwire

import (
	"bytes"
	"io"

	"github.com/lightningnetwork/lnd/tlv"
)

// TLV types used by the extensions this node layers on top of the base
// protocol. Even types are mandatory-to-understand; odd types may be
// ignored by a peer that doesn't recognize them, per BOLT 1.
const (
	// TypeChannelData carries the encrypted channel backup blob inside
	// channel_reestablish.
	TypeChannelData tlv.Type = 0x1

	// TypeRequestID threads a please_open_channel request id through the
	// open_channel2/accept_channel2 TLV stream.
	TypeRequestID tlv.Type = 0x47020001
)

// ExtraData is a raw, unparsed TLV stream tacked onto a message. Unknown
// records are preserved so replies can safely round-trip unrecognized
// fields; known records are decoded explicitly by message-specific helpers.
type ExtraData []byte

func (e ExtraData) encode(w io.Writer) error {
	return writeVarBytes(w, e)
}

func decodeExtraData(r io.Reader) (ExtraData, error) {
	return readVarBytes(r, MaxMessagePayload)
}

// encodeChannelDataTLV wraps a channel backup blob in a single
// TypeChannelData TLV record using the shared tlv encoding machinery. The
// blob is written as given: this function adds no version and performs
// no encryption.
func encodeChannelDataTLV(blob []byte) ([]byte, error) {
	record := tlv.MakePrimitiveRecord(TypeChannelData, &blob)
	stream, err := tlv.NewStream(record)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeChannelDataTLV extracts the channel_data TLV (type 0x1) from a raw
// TLV stream, if present. A missing TLV is not an error: peers without a
// backup to offer omit it entirely.
func decodeChannelDataTLV(raw []byte) ([]byte, bool, error) {
	if len(raw) == 0 {
		return nil, false, nil
	}

	var blob []byte
	record := tlv.MakePrimitiveRecord(TypeChannelData, &blob)
	stream, err := tlv.NewStream(record)
	if err != nil {
		return nil, false, err
	}

	parsedTypes, err := stream.DecodeWithParsedTypes(bytes.NewReader(raw))
	if err != nil {
		return nil, false, err
	}
	if _, ok := parsedTypes[TypeChannelData]; !ok {
		return nil, false, nil
	}
	return blob, true, nil
}

// encodeRequestIDTLV wraps a please_open_channel request id for inclusion
// in the origin TLV of open_channel2/accept_channel2, described in spec
// §4.2 ("the origin TLV carries requestId").
func encodeRequestIDTLV(id [32]byte) ([]byte, error) {
	val := id[:]
	record := tlv.MakePrimitiveRecord(TypeRequestID, &val)
	stream, err := tlv.NewStream(record)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeRequestID is the exported form of encodeRequestIDTLV, used by
// lnwallet to attach a please_open_channel request id to an outgoing
// accept_channel2 without duplicating the TLV encoding logic.
func EncodeRequestID(id [32]byte) ([]byte, error) {
	return encodeRequestIDTLV(id)
}

// decodeRequestIDTLV extracts the request id from a raw TLV stream, if
// present.
func decodeRequestIDTLV(raw []byte) ([32]byte, bool, error) {
	var id [32]byte
	if len(raw) == 0 {
		return id, false, nil
	}

	var val []byte
	record := tlv.MakePrimitiveRecord(TypeRequestID, &val)
	stream, err := tlv.NewStream(record)
	if err != nil {
		return id, false, err
	}

	parsedTypes, err := stream.DecodeWithParsedTypes(bytes.NewReader(raw))
	if err != nil {
		return id, false, err
	}
	if _, ok := parsedTypes[TypeRequestID]; !ok {
		return id, false, nil
	}
	copy(id[:], val)
	return id, true, nil
}
