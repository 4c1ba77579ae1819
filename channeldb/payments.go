package channeldb

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"

	"github.com/google/uuid"
)

// PaymentsDb is the persistence contract the incoming and outgoing payment
// handlers are built against. DB is its only production implementation;
// tests may supply an in-memory fake satisfying the same interface.
type PaymentsDb interface {
	AddIncomingPayment(preimage [32]byte, origin PaymentOrigin, createdAt int64) error
	GetIncomingPayment(hash [32]byte) (*IncomingPayment, error)
	ReceivePayment(hash [32]byte, parts []ReceivedWith, receivedAt int64) error

	AddOutgoingPayment(p OutgoingPayment) error
	AddOutgoingLightningParts(parentID uuid.UUID, parts []Part) error
	CompleteOutgoingLightningPart(partID uuid.UUID, success bool, failure *PartFailure, t int64) error
	CompleteOutgoingPaymentOffchain(parentID uuid.UUID, preimage *[32]byte, finalFailure *FinalFailure, t int64) error
	GetLightningOutgoingPayment(id uuid.UUID) (*OutgoingPayment, error)
	GetLightningOutgoingPaymentFromPartID(partID uuid.UUID) (*OutgoingPayment, error)
	ListLightningOutgoingPayments(hash [32]byte) ([]OutgoingPayment, error)

	SetLocked(txid [32]byte) error
	AddHtlcInfo(chanID [32]byte, commitmentNumber uint64, info HtlcInfo) error
	ListHtlcInfos(chanID [32]byte, commitmentNumber uint64) ([]HtlcInfo, error)
	AddOrUpdateChannel(state PersistedChannelState) error
	RemoveChannel(chanID [32]byte) error
	ListLocalChannels() ([]PersistedChannelState, error)
}

// PaymentOrigin records why an incoming payment was created: a normal Bolt
// 11/12 invoice, or a swap-in promotion of on-chain funds.
type PaymentOrigin struct {
	Kind        string // "invoice" or "swapin"
	Description string
	Expiry      int64
}

// IncomingPayment is the persisted record of a payment this node expects to
// receive (or has received) against a preimage it generated.
type IncomingPayment struct {
	PaymentHash [32]byte
	Preimage    [32]byte
	Origin      PaymentOrigin
	CreatedAt   int64
	ReceivedAt  int64
	Parts       []ReceivedWith
}

// AmountMsat sums part amounts minus fees.
func (p IncomingPayment) AmountMsat() int64 {
	var total int64
	for _, part := range p.Parts {
		total += part.AmountMsat - part.FeeMsat
	}
	return total
}

// ReceivedWith is one part of a (possibly multi-part) incoming payment.
type ReceivedWith struct {
	Kind       string // "lightning" or "newchannel"
	AmountMsat int64
	FeeMsat    int64
	ChannelID  [32]byte
	HtlcID     uint64
}

// Part is one attempt of an outgoing payment.
type Part struct {
	PartID     uuid.UUID
	AmountMsat int64
	Route      string
	Status     string // "pending", "succeeded", "failed"
	Preimage   *[32]byte
	Failure    *PartFailure
	CreatedAt  int64
	CompletedAt int64
}

// PartFailure classifies why a single part failed.
type PartFailure struct {
	Code   string
	Detail string
}

// FinalFailure classifies why an entire outgoing payment failed, matching
// the taxonomy used for user-visible PaymentNotSent events.
type FinalFailure struct {
	Code   string // NoRouteToRecipient, RecipientUnreachable, InsufficientBalance, InvalidPaymentRequest, WalletRestartedDuringPayment, UnknownError
	Detail string
}

// OutgoingPayment is the parent row of a send, accumulating Parts as the
// outgoing-payment handler retries.
type OutgoingPayment struct {
	ParentID     uuid.UUID
	PaymentHash  [32]byte
	RecipientAmountMsat int64
	Status       string // "pending", "succeeded", "failed"
	Preimage     *[32]byte
	FinalFailure *FinalFailure
	Parts        []Part
	CreatedAt    int64
	CompletedAt  int64
}

// AmountMsat and FeesMsat assume that, for a Succeeded payment, every
// retained part shares the same preimage.
func (p OutgoingPayment) AmountMsat() int64 {
	var total int64
	for _, part := range p.Parts {
		if part.Status == "succeeded" {
			total += part.AmountMsat
		}
	}
	return total
}

func (p OutgoingPayment) FeesMsat() int64 {
	return p.AmountMsat() - p.RecipientAmountMsat
}

// HtlcInfo is the archived per-HTLC data needed to build a penalty claim
// against a revoked commitment, stored as part of the same action batch as
// each revoke_and_ack this node sends.
type HtlcInfo struct {
	HtlcID      uint64
	AmountMsat  int64
	PaymentHash [32]byte
	CltvExpiry  uint32
}

// PersistedChannelState is an opaque, already-serialized snapshot of an
// lnwallet.ChannelState, along with the metadata needed to find it without
// deserializing the payload (channel id, whether it is still active).
type PersistedChannelState struct {
	ChannelID [32]byte
	Data      []byte
	IsClosed  bool
}

func (d *DB) AddIncomingPayment(preimage [32]byte, origin PaymentOrigin, createdAt int64) error {
	hash := sha256Sum(preimage)
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(incomingPaymentBucket)
		if b.Get(hash[:]) != nil {
			return ErrDuplicateInvoice
		}
		rec := IncomingPayment{PaymentHash: hash, Preimage: preimage, Origin: origin, CreatedAt: createdAt}
		return putJSON(b, hash[:], rec)
	})
}

func (d *DB) GetIncomingPayment(hash [32]byte) (*IncomingPayment, error) {
	var rec IncomingPayment
	err := d.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(incomingPaymentBucket)
		raw := b.Get(hash[:])
		if raw == nil {
			return ErrInvoiceNotFound
		}
		return json.Unmarshal(raw, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReceivePayment is additive: repeated calls against the same hash append
// parts and bump the timestamp.
func (d *DB) ReceivePayment(hash [32]byte, parts []ReceivedWith, receivedAt int64) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(incomingPaymentBucket)
		raw := b.Get(hash[:])
		if raw == nil {
			return ErrInvoiceNotFound
		}
		var rec IncomingPayment
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		rec.Parts = append(rec.Parts, parts...)
		rec.ReceivedAt = receivedAt
		return putJSON(b, hash[:], rec)
	})
}

func (d *DB) AddOutgoingPayment(p OutgoingPayment) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(outgoingPaymentBucket)
		key := p.ParentID[:]
		if b.Get(key) != nil {
			return ErrDuplicatePaymentID
		}
		partsBucket := tx.Bucket(outgoingPartBucket)
		for _, part := range p.Parts {
			if partsBucket.Get(part.PartID[:]) != nil {
				return ErrDuplicatePartID
			}
		}
		for _, part := range p.Parts {
			if err := partsBucket.Put(part.PartID[:], key); err != nil {
				return err
			}
		}
		return putJSON(b, key, p)
	})
}

func (d *DB) AddOutgoingLightningParts(parentID uuid.UUID, parts []Part) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(outgoingPaymentBucket)
		key := parentID[:]
		raw := b.Get(key)
		if raw == nil {
			return ErrUnknownParent
		}
		var p OutgoingPayment
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}

		partsBucket := tx.Bucket(outgoingPartBucket)
		for _, part := range parts {
			if partsBucket.Get(part.PartID[:]) != nil {
				return ErrDuplicatePartID
			}
		}
		for _, part := range parts {
			if err := partsBucket.Put(part.PartID[:], key); err != nil {
				return err
			}
		}
		p.Parts = append(p.Parts, parts...)
		return putJSON(b, key, p)
	})
}

func (d *DB) CompleteOutgoingLightningPart(partID uuid.UUID, success bool, failure *PartFailure, t int64) error {
	return d.Update(func(tx *bbolt.Tx) error {
		partsBucket := tx.Bucket(outgoingPartBucket)
		parentKey := partsBucket.Get(partID[:])
		if parentKey == nil {
			return ErrUnknownPart
		}

		b := tx.Bucket(outgoingPaymentBucket)
		raw := b.Get(parentKey)
		if raw == nil {
			return ErrUnknownParent
		}
		var p OutgoingPayment
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}

		for i := range p.Parts {
			if p.Parts[i].PartID == partID {
				if success {
					p.Parts[i].Status = "succeeded"
				} else {
					p.Parts[i].Status = "failed"
					p.Parts[i].Failure = failure
				}
				p.Parts[i].CompletedAt = t
			}
		}
		return putJSON(b, parentKey, p)
	})
}

func (d *DB) CompleteOutgoingPaymentOffchain(parentID uuid.UUID, preimage *[32]byte, finalFailure *FinalFailure, t int64) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(outgoingPaymentBucket)
		key := parentID[:]
		raw := b.Get(key)
		if raw == nil {
			return ErrUnknownParent
		}
		var p OutgoingPayment
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		p.CompletedAt = t
		if preimage != nil {
			p.Status = "succeeded"
			p.Preimage = preimage
			succeeded := p.Parts[:0]
			for _, part := range p.Parts {
				if part.Status == "succeeded" {
					succeeded = append(succeeded, part)
				}
			}
			p.Parts = succeeded
		} else {
			p.Status = "failed"
			p.FinalFailure = finalFailure
		}
		return putJSON(b, key, p)
	})
}

func (d *DB) GetLightningOutgoingPayment(id uuid.UUID) (*OutgoingPayment, error) {
	var p OutgoingPayment
	err := d.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(outgoingPaymentBucket).Get(id[:])
		if raw == nil {
			return ErrOutgoingPaymentNotFound
		}
		return json.Unmarshal(raw, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) GetLightningOutgoingPaymentFromPartID(partID uuid.UUID) (*OutgoingPayment, error) {
	var p OutgoingPayment
	err := d.View(func(tx *bbolt.Tx) error {
		parentKey := tx.Bucket(outgoingPartBucket).Get(partID[:])
		if parentKey == nil {
			return ErrOutgoingPaymentNotFound
		}
		raw := tx.Bucket(outgoingPaymentBucket).Get(parentKey)
		if raw == nil {
			return ErrOutgoingPaymentNotFound
		}
		return json.Unmarshal(raw, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) ListLightningOutgoingPayments(hash [32]byte) ([]OutgoingPayment, error) {
	var out []OutgoingPayment
	err := d.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(outgoingPaymentBucket).ForEach(func(k, v []byte) error {
			var p OutgoingPayment
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			if p.PaymentHash == hash {
				out = append(out, p)
			}
			return nil
		})
	})
	return out, err
}

func (d *DB) SetLocked(txid [32]byte) error {
	return d.Update(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		return meta.Put(append([]byte("locked-"), txid[:]...), []byte{1})
	})
}

func (d *DB) AddHtlcInfo(chanID [32]byte, commitmentNumber uint64, info HtlcInfo) error {
	return d.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(htlcInfoBucket)
		key := htlcInfoKey(chanID, commitmentNumber)
		var list []HtlcInfo
		if raw := b.Get(key); raw != nil {
			if err := json.Unmarshal(raw, &list); err != nil {
				return err
			}
		}
		list = append(list, info)
		return putJSON(b, key, list)
	})
}

func (d *DB) ListHtlcInfos(chanID [32]byte, commitmentNumber uint64) ([]HtlcInfo, error) {
	var list []HtlcInfo
	err := d.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(htlcInfoBucket).Get(htlcInfoKey(chanID, commitmentNumber))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &list)
	})
	return list, err
}

func (d *DB) AddOrUpdateChannel(state PersistedChannelState) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(openChannelBucket).Put(state.ChannelID[:], state.Data)
	})
}

func (d *DB) RemoveChannel(chanID [32]byte) error {
	return d.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(openChannelBucket).Delete(chanID[:])
	})
}

func (d *DB) ListLocalChannels() ([]PersistedChannelState, error) {
	var out []PersistedChannelState
	err := d.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(openChannelBucket).ForEach(func(k, v []byte) error {
			var chanID [32]byte
			copy(chanID[:], k)
			data := make([]byte, len(v))
			copy(data, v)
			out = append(out, PersistedChannelState{ChannelID: chanID, Data: data})
			return nil
		})
	})
	return out, err
}

func htlcInfoKey(chanID [32]byte, commitmentNumber uint64) []byte {
	buf := bufPool.Get().(*bufferedBytes)
	defer bufPool.Put(buf)

	if cap(buf.buf) < 40 {
		buf.buf = make([]byte, 40)
	}
	key := buf.buf[:40]
	copy(key[:32], chanID[:])
	binary.BigEndian.PutUint64(key[32:], commitmentNumber)

	out := make([]byte, 40)
	copy(out, key)
	return out
}

func putJSON(b *bbolt.Bucket, key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, raw)
}

func sha256Sum(preimage [32]byte) [32]byte {
	return sha256.Sum256(preimage[:])
}
