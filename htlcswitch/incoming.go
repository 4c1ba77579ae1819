// Package htlcswitch wraps the persistent payment store with the
// higher-level invoice/MPP-aggregation semantics (IncomingPaymentHandler)
// and the send/retry/accounting semantics (OutgoingPaymentHandler) the
// orchestrator drives on every incoming or outgoing HTLC.
package htlcswitch

import (
	"fmt"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/breez/phoenixcore/channeldb"
	"github.com/breez/phoenixcore/lnwallet"
)

// RoutingHint is the single virtual hop synthesized for a Bolt 11 invoice,
// using the maximum policy fields across known remote channel_update
// gossip so the sender's first attempt is most likely to succeed.
type RoutingHint struct {
	ShortChannelID          lnwallet.ShortChannelID
	FeeBaseMsat             uint32
	FeeProportionalMillionths uint32
	CltvExpiryDelta         uint16
}

// IncomingHtlc is one HTLC arriving against a payment hash, prior to
// aggregation.
type IncomingHtlc struct {
	ChannelID     [32]byte
	HtlcID        uint64
	PaymentHash   [32]byte
	PaymentSecret [32]byte
	AmountMsat    int64
	Expiry        uint32
}

// pendingMPP tracks HTLC parts received so far for a payment hash that
// hasn't yet reached its invoice amount.
type pendingMPP struct {
	htlcs     []IncomingHtlc
	firstSeen int64
}

// IncomingPaymentHandler creates invoices and aggregates multi-part HTLCs
// against them, releasing the preimage only once the invoice amount is
// fully covered within the MPP timeout.
type IncomingPaymentHandler struct {
	db         channeldb.PaymentsDb
	clock      clock.Clock
	mppTimeout int64

	pending map[[32]byte]*pendingMPP
}

// NewIncomingPaymentHandler builds a handler backed by db, using clk for
// invoice creation/expiry timestamps and part aggregation windows.
func NewIncomingPaymentHandler(db channeldb.PaymentsDb, clk clock.Clock, mppTimeoutSeconds int64) *IncomingPaymentHandler {
	return &IncomingPaymentHandler{
		db:         db,
		clock:      clk,
		mppTimeout: mppTimeoutSeconds,
		pending:    make(map[[32]byte]*pendingMPP),
	}
}

// CreateInvoice registers a new expected payment and returns the data a
// Bolt 11 encoder needs, including the single synthesized routing hint
// built from the strongest (highest-fee, longest-cltv) known policy
// across remote channel updates, maximizing first-attempt success.
func (h *IncomingPaymentHandler) CreateInvoice(preimage [32]byte, amountMsat *int64, description string, expirySeconds int64, knownPolicies []RoutingHint) (channeldb.PaymentOrigin, *RoutingHint, error) {
	origin := channeldb.PaymentOrigin{
		Kind:        "invoice",
		Description: description,
		Expiry:      expirySeconds,
	}

	if err := h.db.AddIncomingPayment(preimage, origin, h.clock.Now().Unix()); err != nil {
		return origin, nil, err
	}

	return origin, strongestHint(knownPolicies), nil
}

func strongestHint(policies []RoutingHint) *RoutingHint {
	if len(policies) == 0 {
		return nil
	}

	best := policies[0]
	for _, p := range policies[1:] {
		if p.FeeBaseMsat > best.FeeBaseMsat {
			best.FeeBaseMsat = p.FeeBaseMsat
		}
		if p.FeeProportionalMillionths > best.FeeProportionalMillionths {
			best.FeeProportionalMillionths = p.FeeProportionalMillionths
		}
		if p.CltvExpiryDelta > best.CltvExpiryDelta {
			best.CltvExpiryDelta = p.CltvExpiryDelta
		}
	}
	return &best
}

// AcceptResult is the outcome of processing one incoming HTLC: either it
// joins an in-flight MPP aggregation with nothing further to do yet, it
// completes the aggregation and should be settled with the given
// preimage, or it is rejected outright.
type AcceptResult struct {
	Settle    bool
	Preimage  [32]byte
	Reject    bool
	RejectMsg string
}

// ProcessIncomingHtlc validates and aggregates one HTLC part against its
// invoice. invoiceAmountMsat is nil for an amount-less invoice (any amount
// accepted on first HTLC).
func (h *IncomingPaymentHandler) ProcessIncomingHtlc(htlc IncomingHtlc, invoiceAmountMsat *int64) (AcceptResult, error) {
	rec, err := h.db.GetIncomingPayment(htlc.PaymentHash)
	if err != nil {
		return AcceptResult{Reject: true, RejectMsg: "unknown payment hash"}, nil
	}

	now := h.clock.Now().Unix()

	agg, ok := h.pending[htlc.PaymentHash]
	if !ok {
		agg = &pendingMPP{firstSeen: now}
		h.pending[htlc.PaymentHash] = agg
	}

	if now-agg.firstSeen > h.mppTimeout && len(agg.htlcs) > 0 {
		delete(h.pending, htlc.PaymentHash)
		return AcceptResult{Reject: true, RejectMsg: "mpp timeout"}, nil
	}

	agg.htlcs = append(agg.htlcs, htlc)

	var sum int64
	for _, part := range agg.htlcs {
		sum += part.AmountMsat
	}

	target := int64(0)
	if invoiceAmountMsat != nil {
		target = *invoiceAmountMsat
	} else {
		target = htlc.AmountMsat
	}

	if sum < target {
		return AcceptResult{}, nil
	}

	parts := make([]channeldb.ReceivedWith, 0, len(agg.htlcs))
	for _, part := range agg.htlcs {
		parts = append(parts, channeldb.ReceivedWith{
			Kind:       "lightning",
			AmountMsat: part.AmountMsat,
			ChannelID:  part.ChannelID,
			HtlcID:     part.HtlcID,
		})
	}

	if err := h.db.ReceivePayment(htlc.PaymentHash, parts, now); err != nil {
		return AcceptResult{}, fmt.Errorf("persisting received payment: %w", err)
	}

	delete(h.pending, htlc.PaymentHash)
	return AcceptResult{Settle: true, Preimage: rec.Preimage}, nil
}

// RejectPayToOpen decides whether a please_open_channel-triggered payment
// should be declined: a liquidity policy veto, or a channel currently
// mid-open with no Normal channel yet available to receive into.
func RejectPayToOpen(policyAccepts bool, channelInitializing bool) (reject bool, reason string) {
	if !policyAccepts {
		return true, "liquidity policy declined"
	}
	if channelInitializing {
		return true, "channel still initializing"
	}
	return false, ""
}
