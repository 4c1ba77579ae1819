// Package bolt12 encodes and decodes offers, invoice requests, and
// invoices: the three message types of the offer-based payment flow. All
// three share one wire shape — a TLV stream bech32-encoded without a
// checksum — and carry a Schnorr signature over the Merkle root of their
// own TLV records rather than a signature over the raw bytes, so a
// sender can redact unsigned fields (or a signer can omit meaningless
// ones) without invalidating the signature on what's left.
//
// Nothing else in this module builds on bolt12 yet: see
// htlcswitch.OutgoingPaymentHandler.SendBolt12Payment for the one
// deliberately unwired entry point that exercises it.
package bolt12

import (
	"bytes"

	"github.com/lightningnetwork/lnd/tlv"
)

// record is a single decoded TLV field: a type and its raw encoded
// value, before any type-specific interpretation. Decoded records are
// only looked up by type (see fieldValue); they come back in no
// particular order, and signature checks recompute the Merkle root from
// the parsed message's own fields.
type record struct {
	typ   tlv.Type
	value []byte
}

// encodeRecords serializes a sequence of primitive byte-slice fields into
// one TLV stream, in the order given. Callers are responsible for
// ordering records by ascending type, as BOLT-style TLV streams require.
func encodeRecords(fields []record) ([]byte, error) {
	recs := make([]tlv.Record, len(fields))
	for i, f := range fields {
		v := f.value
		recs[i] = tlv.MakePrimitiveRecord(f.typ, &v)
	}

	stream, err := tlv.NewStream(recs...)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeRecords splits a raw TLV stream back into its individual
// records without interpreting any of them. The records are collected
// from a map, so their order is not defined.
func decodeRecords(raw []byte) ([]record, error) {
	parser, err := tlv.NewStream()
	if err != nil {
		return nil, err
	}

	parsedTypes, err := parser.DecodeWithParsedTypes(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	fields := make([]record, 0, len(parsedTypes))
	for typ, raw := range parsedTypes {
		fields = append(fields, record{typ: typ, value: raw})
	}
	return fields, nil
}

// fieldValue returns the raw value of the record of type t, if present.
func fieldValue(fields []record, t tlv.Type) ([]byte, bool) {
	for _, f := range fields {
		if f.typ == t {
			return f.value, true
		}
	}
	return nil, false
}
