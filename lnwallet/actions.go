package lnwallet

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/lnwire"
)

// Action is the output alphabet of Process. Every side effect a transition
// requires is enumerated here rather than performed; the orchestrator
// interprets the returned slice.
type Action interface {
	isAction()
}

// SendMessage queues a wire message for the peer.
type SendMessage struct {
	Msg lnwire.Message
}

// SendToSelf re-enqueues a command to this same channel, used when a
// transition must continue after an action completes (e.g. persisting
// state before replying).
type SendToSelf struct {
	Cmd Command
}

// SendWatch registers a blockchain watch with the chain collaborator.
type SendWatch struct {
	TxID        [32]byte
	OutputIndex uint32
	MinDepth    uint32
	Kind        WatchEventKind
}

// PublishTx broadcasts a fully signed transaction.
type PublishTx struct {
	Tx     *wire.MsgTx
	Label  string
}

// StoreState persists the channel's new state.
type StoreState struct {
	ChanID lnwire.ChannelID
	State  ChannelState
}

// RemoveChannel deletes the channel's persisted record entirely (terminal
// Closed transition).
type RemoveChannel struct {
	ChanID lnwire.ChannelID
}

// StoreHtlcInfos persists the HTLC set belonging to a commitment number
// about to be revoked, so it remains available for a future penalty claim.
type StoreHtlcInfos struct {
	ChanID           lnwire.ChannelID
	CommitmentNumber uint64
	Htlcs            []Htlc
}

// GetHtlcInfos requests the previously stored HTLC set for a revoked
// commitment be replayed back in via GetHtlcInfosResponse.
type GetHtlcInfos struct {
	ChanID           lnwire.ChannelID
	CommitmentNumber uint64
	RevokedTxID      [32]byte
}

// SetLocked marks a funding or splice transaction as confirmed-to-depth in
// storage.
type SetLocked struct {
	TxID [32]byte
}

// ProcessIncomingHtlc forwards a newly settled incoming add to the payment
// handler layer for invoice/MPP matching.
type ProcessIncomingHtlc struct {
	ChanID lnwire.ChannelID
	Htlc   Htlc
}

// ProcessCmdResKind enumerates the asynchronous outcomes an outgoing HTLC
// can resolve to, consumed by the outgoing payment handler.
type ProcessCmdResKind uint8

const (
	CmdResAddFailed ProcessCmdResKind = iota
	CmdResAddSettledFail
	CmdResAddSettledFulfill
	CmdResNotExecuted
)

// ProcessCmdRes reports the resolution of a previously issued AddHtlc.
type ProcessCmdRes struct {
	Kind            ProcessCmdResKind
	HtlcID          uint64
	PaymentPreimage [32]byte
	FailureReason   []byte
	Err             error
}

// ChannelIDAssigned notifies the orchestrator that a channel's identity has
// moved from a temporary id to its final, funding-derived id.
type ChannelIDAssigned struct {
	Temporary lnwire.ChannelID
	Final     lnwire.ChannelID
}

// DomainEventKind enumerates the user-facing events a channel transition
// can emit onto the orchestrator's event bus.
type DomainEventKind uint8

const (
	EventChannelClosing DomainEventKind = iota
	EventUpgradeRequired
)

// EmitEvent publishes a domain event onto the orchestrator's broadcast
// event bus.
type EmitEvent struct {
	Kind   DomainEventKind
	ChanID lnwire.ChannelID
	Detail string
}

func (SendMessage) isAction()        {}
func (SendToSelf) isAction()         {}
func (SendWatch) isAction()          {}
func (PublishTx) isAction()          {}
func (StoreState) isAction()         {}
func (RemoveChannel) isAction()      {}
func (StoreHtlcInfos) isAction()     {}
func (GetHtlcInfos) isAction()       {}
func (SetLocked) isAction()          {}
func (ProcessIncomingHtlc) isAction(){}
func (ProcessCmdRes) isAction()      {}
func (ChannelIDAssigned) isAction()  {}
func (EmitEvent) isAction()          {}
