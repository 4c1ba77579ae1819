package bolt12

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Invoice is the issuer's signed reply to an InvoiceRequest: an amount,
// a payment_hash, and an expiry, addressed back to the request's
// PayerID and signed by the node that will actually receive the
// payment.
type Invoice struct {
	Request     *InvoiceRequest
	AmountMsat  uint64
	PaymentHash [32]byte
	NodeID      *btcec.PublicKey
	CreatedAt   uint64
	RelativeExpirySecs uint32
	Signature   *schnorr.Signature
}

func (inv *Invoice) fields() []record {
	fields := append([]record{}, inv.Request.fields()...)

	var amt [8]byte
	binary.BigEndian.PutUint64(amt[:], inv.AmountMsat)

	var created [8]byte
	binary.BigEndian.PutUint64(created[:], inv.CreatedAt)

	fields = append(fields,
		record{typ: TypeInvoiceAmount, value: amt[:]},
		record{typ: TypeInvoicePaymentHash, value: inv.PaymentHash[:]},
		record{typ: TypeInvoiceNodeID, value: inv.NodeID.SerializeCompressed()},
		record{typ: TypeInvoiceCreatedAt, value: created[:]},
	)
	if inv.RelativeExpirySecs > 0 {
		var exp [4]byte
		binary.BigEndian.PutUint32(exp[:], inv.RelativeExpirySecs)
		fields = append(fields, record{typ: TypeInvoiceRelativeExpiry, value: exp[:]})
	}
	return sortedFields(fields)
}

// Sign computes the Merkle-root signature over every field except
// Signature itself, using the node's own identity key.
func (inv *Invoice) Sign(priv *btcec.PrivateKey) error {
	digest, err := signatureDigest("invoice", inv.fields())
	if err != nil {
		return err
	}
	sig, err := schnorr.Sign(priv, digest[:])
	if err != nil {
		return fmt.Errorf("signing invoice: %w", err)
	}
	inv.Signature = sig
	return nil
}

// Verify checks inv.Signature against inv.NodeID.
func (inv *Invoice) Verify() (bool, error) {
	if inv.Signature == nil {
		return false, fmt.Errorf("invoice has no signature")
	}
	digest, err := signatureDigest("invoice", inv.fields())
	if err != nil {
		return false, err
	}
	return inv.Signature.Verify(digest[:], inv.NodeID), nil
}

// Encode renders inv as a "lni1..." string, including its signature and
// the invoice_request it answers.
func (inv *Invoice) Encode() (string, error) {
	if inv.Signature == nil {
		return "", fmt.Errorf("invoice must be signed before encoding")
	}
	fields := append(inv.fields(), record{typ: TypeSignature, value: inv.Signature.Serialize()})
	raw, err := encodeRecords(sortedFields(fields))
	if err != nil {
		return "", err
	}
	return encodeNoChecksum(invoiceHRP, raw)
}

// DecodeInvoice parses a "lni1..." string. As with DecodeInvoiceRequest,
// the caller must call Verify before trusting the amount or
// payment_hash.
func DecodeInvoice(s string) (*Invoice, error) {
	hrp, raw, err := decodeNoChecksum(s)
	if err != nil {
		return nil, err
	}
	if hrp != invoiceHRP {
		return nil, fmt.Errorf("not an invoice string: hrp %q", hrp)
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
	if v, ok := fieldValue(fields, TypeInvreqPayerID); ok {
		pub, err := btcec.ParsePubKey(v)
		if err != nil {
			return nil, fmt.Errorf("parsing invreq_payer_id: %w", err)
		}
		req.PayerID = pub
	}

	inv := &Invoice{Request: req}
	if v, ok := fieldValue(fields, TypeInvoiceAmount); ok && len(v) == 8 {
		inv.AmountMsat = binary.BigEndian.Uint64(v)
	}
	if v, ok := fieldValue(fields, TypeInvoicePaymentHash); ok && len(v) == 32 {
		copy(inv.PaymentHash[:], v)
	}
	if v, ok := fieldValue(fields, TypeInvoiceNodeID); ok {
		pub, err := btcec.ParsePubKey(v)
		if err != nil {
			return nil, fmt.Errorf("parsing invoice_node_id: %w", err)
		}
		inv.NodeID = pub
	} else {
		return nil, fmt.Errorf("invoice missing invoice_node_id")
	}
	if v, ok := fieldValue(fields, TypeInvoiceCreatedAt); ok && len(v) == 8 {
		inv.CreatedAt = binary.BigEndian.Uint64(v)
	}
	if v, ok := fieldValue(fields, TypeInvoiceRelativeExpiry); ok && len(v) == 4 {
		inv.RelativeExpirySecs = binary.BigEndian.Uint32(v)
	}

	sigBytes, ok := fieldValue(fields, TypeSignature)
	if !ok {
		return nil, fmt.Errorf("invoice missing signature")
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing signature: %w", err)
	}
	inv.Signature = sig

	return inv, nil
}
