package lnwallet

import (
	"github.com/btcsuite/btcd/btcutil"

	"github.com/breez/phoenixcore/lnwire"
)

// Command is the input alphabet Process accepts. Concrete types are grouped
// below by the category spec.md §4.1 names: lifecycle, wire, blockchain,
// commitment, closing.
type Command interface {
	isCommand()
}

// InitRestore resumes a channel from its last persisted Commitments/state,
// without re-running any handshake-era negotiation.
type InitRestore struct {
	PersistedState ChannelState
}

// InitInitiator starts a brand-new channel as the funding initiator.
type InitInitiator struct {
	TemporaryChanID lnwire.ChannelID
	Params          ChannelParams
	PushAmount      btcutil.Amount
}

// InitNonInitiator starts a brand-new channel as the responder, typically
// in reaction to a pay-to-open / please_open_channel flow.
type InitNonInitiator struct {
	TemporaryChanID lnwire.ChannelID
	RequestID       *[32]byte
}

// Connected is dispatched to every channel once the peer connection reaches
// ESTABLISHED, carrying both Init messages so a channel can re-check
// feature compatibility.
type Connected struct {
	OurInit   *lnwire.Init
	TheirInit *lnwire.Init
}

// Disconnected is dispatched to every channel when the connection drops.
type Disconnected struct{}

// MessageReceived wraps any peer wire message addressed to this channel by
// channel id or temporary channel id.
type MessageReceived struct {
	Msg lnwire.Message
}

// WatchEventKind enumerates the blockchain notifications a channel can
// react to.
type WatchEventKind uint8

const (
	WatchFundingConfirmed WatchEventKind = iota
	WatchFundingSpent
	WatchOutputConfirmed
)

// WatchReceived carries one blockchain notification the orchestrator's
// chain collaborator produced for a watch this channel registered.
type WatchReceived struct {
	Kind        WatchEventKind
	BlockHeight uint32
	TxHash      [32]byte
	SpendingTx  []byte
}

// Sign requests a new commitment be signed for any buffered changes.
type Sign struct{}

// CheckHtlcTimeout is delivered on every new block tip so the channel can
// force-close if any HTLC's cltv_expiry has crossed the safety threshold.
type CheckHtlcTimeout struct {
	CurrentBlockHeight uint32
}

// AddHtlc proposes adding a new HTLC to the commitment.
type AddHtlc struct {
	AmountMsat  uint64
	PaymentHash PaymentHash
	CltvExpiry  uint32
	OnionBlob   [1366]byte
	ReplyTo     chan<- AddHtlcResult
}

// AddHtlcResult is delivered synchronously to the caller of AddHtlc via
// ReplyTo, distinct from the asynchronous ProcessCmdRes.* actions that
// follow once the HTLC resolves.
type AddHtlcResult struct {
	HtlcID uint64
	Err    error
}

// FulfillHtlc releases the preimage for a previously received HTLC.
type FulfillHtlc struct {
	HtlcID          uint64
	PaymentPreimage [32]byte
}

// FailHtlc fails a previously received HTLC with an opaque onion-encrypted
// reason.
type FailHtlc struct {
	HtlcID uint64
	Reason []byte
}

// SpliceRequest asks the channel to begin an in-place funding replacement.
type SpliceRequest struct {
	SpliceInSats  btcutil.Amount
	SpliceOutSats btcutil.Amount
	FeeratePerKw  uint32
	ReplyTo       chan<- SpliceResult
}

// SpliceResult is the reply type of SpliceRequest.ReplyTo. Process does not
// send on ReplyTo; the splice's outcome is observable only through the
// channel state and the actions Process returns.
type SpliceResult struct {
	Accepted bool
	Err      error
}

// Close begins a cooperative close, optionally pinning the closing script
// and starting feerate.
type Close struct {
	ScriptPubKey []byte
	FeeratePerKw *uint32
}

// ForceClose publishes the latest local commitment unilaterally.
type ForceClose struct{}

// GetHtlcInfosResponse replays persisted HTLC info for a revoked commitment,
// requested via the Storage.GetHtlcInfos action, back into the channel so it
// can complete a penalty-transaction claim.
type GetHtlcInfosResponse struct {
	CommitmentNumber uint64
	RevokedTxID      [32]byte
	Htlcs            []Htlc
}

// UpdateFeeCmd renegotiates the commitment feerate; only the funder may
// issue it (added by this expansion, spec.md §4.1 supplement).
type UpdateFeeCmd struct {
	FeeratePerKw uint32
}

func (InitRestore) isCommand()           {}
func (InitInitiator) isCommand()         {}
func (InitNonInitiator) isCommand()      {}
func (Connected) isCommand()             {}
func (Disconnected) isCommand()          {}
func (MessageReceived) isCommand()       {}
func (WatchReceived) isCommand()         {}
func (Sign) isCommand()                  {}
func (CheckHtlcTimeout) isCommand()      {}
func (AddHtlc) isCommand()               {}
func (FulfillHtlc) isCommand()           {}
func (FailHtlc) isCommand()              {}
func (SpliceRequest) isCommand()         {}
func (Close) isCommand()                 {}
func (ForceClose) isCommand()            {}
func (GetHtlcInfosResponse) isCommand()  {}
func (UpdateFeeCmd) isCommand()          {}
