package phoenixcore

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"

	"github.com/breez/phoenixcore/htlcswitch"
	"github.com/breez/phoenixcore/lnwallet"
	"github.com/breez/phoenixcore/lnwire"
	"github.com/breez/phoenixcore/zpay32"
)

// trampolinePayload is the hop instruction this node encodes for its
// single trampoline peer. This node never constructs a multi-hop Sphinx
// onion addressed to further hops; the only thing it needs to convey to
// its one peer is which invoice it is paying toward and the current fee
// tier, so a gob-encoded struct fills the HTLC's onion blob the same way
// encodeOnionMessage fills an OnionMessage's blob.
type trampolinePayload struct {
	PaymentRequest string
	Tier           htlcswitch.TrampolineFees
}

func encodeTrampolinePayload(payReq string, tier htlcswitch.TrampolineFees) (blob [1366]byte, err error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(trampolinePayload{PaymentRequest: payReq, Tier: tier}); err != nil {
		return blob, err
	}
	if buf.Len() > len(blob) {
		return blob, fmt.Errorf("trampoline payload too large: %d bytes", buf.Len())
	}
	copy(blob[:], buf.Bytes())
	return blob, nil
}

// Pay decodes a Bolt 11 payment request and sends it over the single
// Normal channel this node keeps with its trampoline peer, using the
// first trampoline fee tier. amtMsatOverride is used when the invoice is
// amountless; it is ignored otherwise.
func (p *Peer) Pay(payReq string, amtMsatOverride int64) (uuid.UUID, error) {
	invoice, err := zpay32.Decode(payReq)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decoding payment request: %w", err)
	}

	amtMsat := amtMsatOverride
	if invoice.MilliSat != nil {
		amtMsat = int64(*invoice.MilliSat)
	}
	if amtMsat <= 0 {
		return uuid.Nil, fmt.Errorf("no amount specified for amountless invoice")
	}
	if invoice.PaymentHash == nil {
		return uuid.Nil, fmt.Errorf("payment request has no payment hash")
	}

	chanID, ok := p.normalChannel()
	if !ok {
		return uuid.Nil, fmt.Errorf("no usable channel with the trampoline peer")
	}

	parentID := uuid.New()
	tier := htlcswitch.TrampolineFees{FeeBaseMsat: 1000, FeeProportionalMillionths: 100, CltvExpiryDelta: 144}

	if _, err := p.outgoing.SendPayment(htlcswitch.SendPaymentRequest{
		ParentID:    parentID,
		AmountMsat:  amtMsat,
		PaymentHash: *invoice.PaymentHash,
		Recipient:   payReq,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("recording outgoing payment: %w", err)
	}

	record, err := p.db.GetLightningOutgoingPayment(parentID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("reading back outgoing payment: %w", err)
	}
	partID := record.Parts[0].PartID

	onionBlob, err := encodeTrampolinePayload(payReq, tier)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encoding trampoline payload: %w", err)
	}

	replyTo := make(chan lnwallet.AddHtlcResult, 1)
	p.dispatch(chanID, lnwallet.AddHtlc{
		AmountMsat:  uint64(amtMsat + tier.FeeBaseMsat),
		PaymentHash: lnwallet.PaymentHash(*invoice.PaymentHash),
		CltvExpiry:  uint32(tier.CltvExpiryDelta),
		OnionBlob:   onionBlob,
		ReplyTo:     replyTo,
	})

	select {
	case result := <-replyTo:
		if result.Err != nil {
			return uuid.Nil, result.Err
		}
		p.outgoingRefs[htlcKey{chanID: chanID, htlcID: result.HtlcID}] = outgoingRef{parentID: parentID, partID: partID}
	default:
		return uuid.Nil, fmt.Errorf("channel did not reply to AddHtlc synchronously")
	}

	p.events.Publish(Event{Kind: EventPaymentProgress, PaymentHash: *invoice.PaymentHash})
	return parentID, nil
}

func (p *Peer) normalChannel() (lnwire.ChannelID, bool) {
	return p.spliceCapableChannel()
}

// ChannelSummary is the channels-command view of one of this node's
// channels: enough to show balances and status without exposing the full
// internal state machine.
type ChannelSummary struct {
	ChanID        lnwire.ChannelID
	State         string
	LocalMsat     uint64
	RemoteMsat    uint64
	ShortChannelID uint64
}

// ListChannels summarizes every channel this node currently tracks.
func (p *Peer) ListChannels() []ChannelSummary {
	out := make([]ChannelSummary, 0, len(p.channels))
	for chanID, state := range p.channels {
		summary := ChannelSummary{ChanID: chanID, State: stateName(state)}
		if normal, ok := state.(lnwallet.Normal); ok {
			summary.LocalMsat = normal.Commitments.LocalSpec.ToLocalMsat
			summary.RemoteMsat = normal.Commitments.LocalSpec.ToRemoteMsat
			if normal.Commitments.ShortChannelID != nil {
				summary.ShortChannelID = normal.Commitments.ShortChannelID.ToUint64()
			}
		}
		out = append(out, summary)
	}
	return out
}

func stateName(state lnwallet.ChannelState) string {
	switch state.(type) {
	case lnwallet.WaitForInit:
		return "wait_for_init"
	case lnwallet.WaitForOpenChannel:
		return "wait_for_open_channel"
	case lnwallet.WaitForAcceptChannel:
		return "wait_for_accept_channel"
	case lnwallet.WaitForFundingCreated:
		return "wait_for_funding_created"
	case lnwallet.WaitForFundingSigned:
		return "wait_for_funding_signed"
	case lnwallet.WaitForFundingConfirmed:
		return "wait_for_funding_confirmed"
	case lnwallet.LegacyWaitForFundingConfirmed:
		return "legacy_wait_for_funding_confirmed"
	case lnwallet.WaitForChannelReady:
		return "wait_for_channel_ready"
	case lnwallet.Normal:
		return "normal"
	case lnwallet.ShuttingDown:
		return "shutting_down"
	case lnwallet.Negotiating:
		return "negotiating"
	case lnwallet.Closing:
		return "closing"
	case lnwallet.Closed:
		return "closed"
	case lnwallet.Aborted:
		return "aborted"
	case lnwallet.Offline:
		return "offline"
	case lnwallet.Syncing:
		return "syncing"
	default:
		return "unknown"
	}
}

// SwapInRequestStatus reports on one pay-to-open request this node has
// asked its trampoline peer to act on but has not yet seen resolved.
type SwapInRequestStatus struct {
	RequestID      [32]byte
	WalletInputs   int
	ServiceFeeSats int64
	MiningFeeSats  int64
}

// SwapInStatus reports every please_open_channel ask still awaiting a
// reply.
func (p *Peer) SwapInStatus() []SwapInRequestStatus {
	out := make([]SwapInRequestStatus, 0, len(p.pendingOpens))
	for _, req := range p.pendingOpens {
		out = append(out, SwapInRequestStatus{
			RequestID:      req.requestID,
			WalletInputs:   len(req.walletInputs),
			ServiceFeeSats: req.serviceFee,
			MiningFeeSats:  req.miningFee,
		})
	}
	return out
}
