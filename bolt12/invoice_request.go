package bolt12

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// InvoiceRequest is a payer's reply to an Offer: what they want to pay
// for it, signed with a one-off key so the issuer can address the
// resulting Invoice back to them without learning who they are.
type InvoiceRequest struct {
	Offer      *Offer
	Metadata   []byte
	AmountMsat uint64
	PayerID    *btcec.PublicKey
	PayerNote  string
	Signature  *schnorr.Signature
}

// NewInvoiceRequest builds a request against offer for amountMsat,
// generating fresh payer metadata so two requests for the same offer
// from the same node are never linkable by metadata alone.
func NewInvoiceRequest(offer *Offer, amountMsat uint64, payerID *btcec.PublicKey) (*InvoiceRequest, error) {
	metadata := make([]byte, 16)
	if _, err := rand.Read(metadata); err != nil {
		return nil, fmt.Errorf("generating payer metadata: %w", err)
	}
	return &InvoiceRequest{
		Offer:      offer,
		Metadata:   metadata,
		AmountMsat: amountMsat,
		PayerID:    payerID,
	}, nil
}

func (r *InvoiceRequest) fields() []record {
	fields := append([]record{}, r.Offer.fields()...)
	fields = append(fields,
		record{typ: TypeInvreqMetadata, value: r.Metadata},
		record{typ: TypeInvreqPayerID, value: r.PayerID.SerializeCompressed()},
	)
	if r.AmountMsat > 0 {
		var amt [8]byte
		binary.BigEndian.PutUint64(amt[:], r.AmountMsat)
		fields = append(fields, record{typ: TypeInvreqAmount, value: amt[:]})
	}
	if r.PayerNote != "" {
		fields = append(fields, record{typ: TypeInvreqPayerNote, value: []byte(r.PayerNote)})
	}
	return sortedFields(fields)
}

// Sign computes the Merkle-root signature over every field except
// Signature itself and stores it on the request.
func (r *InvoiceRequest) Sign(priv *btcec.PrivateKey) error {
	digest, err := signatureDigest("invoice_request", r.fields())
	if err != nil {
		return err
	}
	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		return fmt.Errorf("signing invoice_request: %w", err)
	}
	r.Signature = sig
	return nil
}

// Verify checks r.Signature against r.PayerID over the same digest Sign
// computed.
func (r *InvoiceRequest) Verify() (bool, error) {
	if r.Signature == nil {
		return false, fmt.Errorf("invoice_request has no signature")
	}
	digest, err := signatureDigest("invoice_request", r.fields())
	if err != nil {
		return false, err
	}
	return r.Signature.Verify(digest[:], r.PayerID), nil
}

// Encode renders r as a "lnr1..." string, including its signature.
func (r *InvoiceRequest) Encode() (string, error) {
	if r.Signature == nil {
		return "", fmt.Errorf("invoice_request must be signed before encoding")
	}
	fields := append(r.fields(), record{typ: TypeSignature, value: r.Signature.Serialize()})
	raw, err := encodeRecords(sortedFields(fields))
	if err != nil {
		return "", err
	}
	return encodeNoChecksum(invoiceReqHRP, raw)
}

// DecodeInvoiceRequest parses a "lnr1..." string. The caller is
// responsible for calling Verify before trusting the result: decoding
// alone only checks that the TLV stream and signature parse.
func DecodeInvoiceRequest(s string) (*InvoiceRequest, error) {
	hrp, raw, err := decodeNoChecksum(s)
	if err != nil {
		return nil, err
	}
	if hrp != invoiceReqHRP {
		return nil, fmt.Errorf("not an invoice_request string: hrp %q", hrp)
	}

	fields, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}

	req := &InvoiceRequest{Offer: &Offer{}}
	if v, ok := fieldValue(fields, TypeOfferDescription); ok {
		req.Offer.Description = string(v)
	}
	if v, ok := fieldValue(fields, TypeOfferNodeID); ok {
		pub, err := btcec.ParsePubKey(v)
		if err != nil {
			return nil, fmt.Errorf("parsing offer_node_id: %w", err)
		}
		req.Offer.NodeID = pub
	}
	if v, ok := fieldValue(fields, TypeOfferAmount); ok && len(v) == 8 {
		req.Offer.AmountMsat = binary.BigEndian.Uint64(v)
	}
	if v, ok := fieldValue(fields, TypeOfferCurrency); ok {
		req.Offer.Currency = string(v)
	}
	if v, ok := fieldValue(fields, TypeInvreqMetadata); ok {
		req.Metadata = v
	}
	if v, ok := fieldValue(fields, TypeInvreqAmount); ok && len(v) == 8 {
		req.AmountMsat = binary.BigEndian.Uint64(v)
	}
	if v, ok := fieldValue(fields, TypeInvreqPayerNote); ok {
		req.PayerNote = string(v)
	}
	v, ok := fieldValue(fields, TypeInvreqPayerID)
	if !ok {
		return nil, fmt.Errorf("invoice_request missing invreq_payer_id")
	}
	pub, err := btcec.ParsePubKey(v)
	if err != nil {
		return nil, fmt.Errorf("parsing invreq_payer_id: %w", err)
	}
	req.PayerID = pub

	sigBytes, ok := fieldValue(fields, TypeSignature)
	if !ok {
		return nil, fmt.Errorf("invoice_request missing signature")
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing signature: %w", err)
	}
	req.Signature = sig

	return req, nil
}
