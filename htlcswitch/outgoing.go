package htlcswitch

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"

	"github.com/breez/phoenixcore/bolt12"
	"github.com/breez/phoenixcore/channeldb"
)

// TrampolineFees is one fee/cltv-delta point an attempt can use when
// routing through the trampoline peer.
type TrampolineFees struct {
	FeeBaseMsat               int64
	FeeProportionalMillionths int64
	CltvExpiryDelta           uint16
}

var defaultTrampolineFees = []TrampolineFees{
	{FeeBaseMsat: 1000, FeeProportionalMillionths: 100, CltvExpiryDelta: 144},
	{FeeBaseMsat: 3000, FeeProportionalMillionths: 1000, CltvExpiryDelta: 288},
}

// SendPaymentRequest starts a new outgoing payment.
type SendPaymentRequest struct {
	ParentID                uuid.UUID
	AmountMsat               int64
	PaymentHash              [32]byte
	Recipient                string
	TrampolineFeesOverride   []TrampolineFees
}

// OutgoingPaymentHandler splits a send into attempts, retries on
// recoverable failure with escalating trampoline fees, and finalizes the
// parent payment once every part has either succeeded or definitively
// failed.
type OutgoingPaymentHandler struct {
	db    channeldb.PaymentsDb
	clock clock.Clock
}

// NewOutgoingPaymentHandler builds a handler backed by db.
func NewOutgoingPaymentHandler(db channeldb.PaymentsDb, clk clock.Clock) *OutgoingPaymentHandler {
	return &OutgoingPaymentHandler{db: db, clock: clk}
}

// SendPayment inserts the pending parent row and a single first-attempt
// part using the first trampoline fee tier.
func (h *OutgoingPaymentHandler) SendPayment(req SendPaymentRequest) (uuid.UUID, error) {
	tiers := req.TrampolineFeesOverride
	if len(tiers) == 0 {
		tiers = defaultTrampolineFees
	}

	partID := uuid.New()
	now := h.clock.Now().Unix()

	payment := channeldb.OutgoingPayment{
		ParentID:            req.ParentID,
		PaymentHash:          req.PaymentHash,
		RecipientAmountMsat:  req.AmountMsat,
		Status:               "pending",
		CreatedAt:            now,
		Parts: []channeldb.Part{{
			PartID:     partID,
			AmountMsat: req.AmountMsat + tiers[0].FeeBaseMsat,
			Route:      "trampoline",
			Status:     "pending",
			CreatedAt:  now,
		}},
	}

	if err := h.db.AddOutgoingPayment(payment); err != nil {
		return uuid.Nil, err
	}

	return req.ParentID, nil
}

// SendBolt12Payment pays a bolt12.Invoice rather than a Bolt 11 payment
// request. A Bolt 12 invoice's amount and payment_hash are only
// trustworthy once Invoice.Verify has passed, so it checks the signature
// first; it then records the payment through SendPayment under a fresh
// parent id, with the invoice's amount, payment_hash and hex node id as
// Recipient. The resulting payment is an ordinary trampoline payment, so
// AddFailed/AddSettledFail/AddSettledFulfill handle it as they handle a
// Bolt 11 one. Nothing in this module calls it.
func (h *OutgoingPaymentHandler) SendBolt12Payment(inv *bolt12.Invoice) (uuid.UUID, error) {
	ok, err := inv.Verify()
	if err != nil {
		return uuid.Nil, fmt.Errorf("verifying bolt12 invoice: %w", err)
	}
	if !ok {
		return uuid.Nil, fmt.Errorf("bolt12 invoice signature does not verify")
	}

	return h.SendPayment(SendPaymentRequest{
		ParentID:     uuid.New(),
		AmountMsat:   int64(inv.AmountMsat),
		PaymentHash:  inv.PaymentHash,
		Recipient:    fmt.Sprintf("%x", inv.NodeID.SerializeCompressed()),
	})
}

// AddFailed marks a part failed because the channel rejected the HTLC
// insertion locally (reserve violation, dust, too many HTLCs, ...); retry
// is attempted with the next trampoline fee tier, or the whole payment is
// failed once tiers are exhausted.
func (h *OutgoingPaymentHandler) AddFailed(parentID, partID uuid.UUID, reason string, tiers []TrampolineFees) error {
	return h.retryOrAbort(parentID, partID, channeldb.PartFailure{Code: "local_reject", Detail: reason}, tiers, false)
}

// AddSettledFail marks a part failed because the peer failed the HTLC
// on-wire. permanent distinguishes a final/permanent onion failure
// (abort the payment) from a temporary one (retry with the next tier).
func (h *OutgoingPaymentHandler) AddSettledFail(parentID, partID uuid.UUID, code, detail string, permanent bool, tiers []TrampolineFees) error {
	return h.retryOrAbort(parentID, partID, channeldb.PartFailure{Code: code, Detail: detail}, tiers, permanent)
}

func (h *OutgoingPaymentHandler) retryOrAbort(parentID, partID uuid.UUID, failure channeldb.PartFailure, tiers []TrampolineFees, permanent bool) error {
	now := h.clock.Now().Unix()

	if err := h.db.CompleteOutgoingLightningPart(partID, false, &failure, now); err != nil {
		return err
	}

	if permanent || len(tiers) == 0 {
		final := &channeldb.FinalFailure{Code: classifyFinalFailure(failure.Code), Detail: failure.Detail}
		return h.db.CompleteOutgoingPaymentOffchain(parentID, nil, final, now)
	}

	payment, err := h.db.GetLightningOutgoingPayment(parentID)
	if err != nil {
		return err
	}

	retryPartID := uuid.New()
	retry := channeldb.Part{
		PartID:     retryPartID,
		AmountMsat: payment.RecipientAmountMsat + tiers[0].FeeBaseMsat,
		Route:      "trampoline",
		Status:     "pending",
		CreatedAt:  now,
	}
	return h.db.AddOutgoingLightningParts(parentID, []channeldb.Part{retry})
}

func classifyFinalFailure(partFailureCode string) string {
	switch partFailureCode {
	case "local_reject":
		return "InsufficientBalance"
	case "no_route":
		return "NoRouteToRecipient"
	case "unreachable":
		return "RecipientUnreachable"
	default:
		return "UnknownError"
	}
}

// AddSettledFulfill marks a part succeeded with its preimage. Once every
// non-failed part of the parent payment has succeeded, the parent is
// finalized as Completed.Succeeded.OffChain, retaining only succeeded
// parts.
func (h *OutgoingPaymentHandler) AddSettledFulfill(parentID, partID uuid.UUID, preimage [32]byte) error {
	now := h.clock.Now().Unix()

	if err := h.db.CompleteOutgoingLightningPart(partID, true, nil, now); err != nil {
		return err
	}

	payment, err := h.db.GetLightningOutgoingPayment(parentID)
	if err != nil {
		return err
	}

	if !allNonFailedSucceeded(payment.Parts) {
		return nil
	}

	return h.db.CompleteOutgoingPaymentOffchain(parentID, &preimage, nil, now)
}

func allNonFailedSucceeded(parts []channeldb.Part) bool {
	sawSucceeded := false
	for _, p := range parts {
		switch p.Status {
		case "succeeded":
			sawSucceeded = true
		case "failed":
			// Excluded from the completion check; retained parts
			// are only the succeeded ones.
		default:
			return false
		}
	}
	return sawSucceeded
}
