package bolt12

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/lightningnetwork/lnd/tlv"
)

// TLV types shared by offers and the messages built from them. Numbering
// follows the BOLT 12 offer namespace: even types are mandatory-to-
// understand, the signature field is always the highest type in any of
// the three message kinds so it sorts last into the Merkle tree.
const (
	TypeOfferCurrency    tlv.Type = 6
	TypeOfferAmount      tlv.Type = 8
	TypeOfferDescription tlv.Type = 10
	TypeOfferNodeID      tlv.Type = 22

	TypeInvreqMetadata  tlv.Type = 0
	TypeInvreqAmount    tlv.Type = 82
	TypeInvreqPayerID   tlv.Type = 88
	TypeInvreqPayerNote tlv.Type = 89

	TypeInvoiceCreatedAt      tlv.Type = 164
	TypeInvoiceRelativeExpiry tlv.Type = 166
	TypeInvoicePaymentHash    tlv.Type = 168
	TypeInvoiceAmount         tlv.Type = 170
	TypeInvoiceNodeID         tlv.Type = 176

	TypeSignature tlv.Type = 240
)

const (
	offerHRP      = "lno"
	invoiceReqHRP = "lnr"
	invoiceHRP    = "lni"
)

// Offer is something like a static invoice template: it names what is
// being paid for and who to pay, but not how much a specific payer owes
// or when. A payer turns it into an InvoiceRequest, and the issuer turns
// that into a signed Invoice.
type Offer struct {
	Description string
	NodeID      *btcec.PublicKey
	AmountMsat  uint64
	Currency    string
}

func (o *Offer) fields() []record {
	fields := []record{
		{typ: TypeOfferDescription, value: []byte(o.Description)},
		{typ: TypeOfferNodeID, value: o.NodeID.SerializeCompressed()},
	}
	if o.AmountMsat > 0 {
		var amt [8]byte
		binary.BigEndian.PutUint64(amt[:], o.AmountMsat)
		fields = append(fields, record{typ: TypeOfferAmount, value: amt[:]})
	}
	if o.Currency != "" {
		fields = append(fields, record{typ: TypeOfferCurrency, value: []byte(o.Currency)})
	}
	return sortedFields(fields)
}

// Encode renders o as a "lno1..." string with no checksum.
func (o *Offer) Encode() (string, error) {
	raw, err := encodeRecords(o.fields())
	if err != nil {
		return "", err
	}
	return encodeNoChecksum(offerHRP, raw)
}

// DecodeOffer parses a "lno1..." string back into an Offer. Offers carry
// no signature of their own — an offer is authenticated by the
// invoice it eventually produces, not by itself — so there is nothing
// to verify here beyond the TLV stream decoding cleanly.
func DecodeOffer(s string) (*Offer, error) {
	hrp, raw, err := decodeNoChecksum(s)
	if err != nil {
		return nil, err
	}
	if hrp != offerHRP {
		return nil, fmt.Errorf("not an offer string: hrp %q", hrp)
	}

	fields, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}

	offer := &Offer{}
	if v, ok := fieldValue(fields, TypeOfferDescription); ok {
		offer.Description = string(v)
	}
	if v, ok := fieldValue(fields, TypeOfferNodeID); ok {
		pub, err := btcec.ParsePubKey(v)
		if err != nil {
			return nil, fmt.Errorf("parsing offer_node_id: %w", err)
		}
		offer.NodeID = pub
	} else {
		return nil, fmt.Errorf("offer missing offer_node_id")
	}
	if v, ok := fieldValue(fields, TypeOfferAmount); ok && len(v) == 8 {
		offer.AmountMsat = binary.BigEndian.Uint64(v)
	}
	if v, ok := fieldValue(fields, TypeOfferCurrency); ok {
		offer.Currency = string(v)
	}
	return offer, nil
}
