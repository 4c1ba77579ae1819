package lnwallet

import (
	"github.com/breez/phoenixcore/lnwire"
)

// ChannelState is implemented by every state a channel can occupy. It is a
// tagged sum, not an inheritance hierarchy: Process type-switches on the
// concrete state and the command to decide the transition, it never calls
// back into state-specific virtual methods.
type ChannelState interface {
	isChannelState()
}

// WaitForInit is the state a restored-from-storage or brand-new channel
// starts in before the orchestrator has told it whether it is the funding
// initiator or not.
type WaitForInit struct{}

// WaitForOpenChannel is the non-initiator's state: waiting for the peer's
// open_channel2.
type WaitForOpenChannel struct {
	TemporaryChanID lnwire.ChannelID
	RequestID       *[32]byte
}

// WaitForAcceptChannel is the initiator's state: open_channel2 sent,
// waiting for accept_channel2.
type WaitForAcceptChannel struct {
	TemporaryChanID lnwire.ChannelID
	Params          ChannelParams
}

// WaitForFundingCreated is mid interactive-tx construction.
type WaitForFundingCreated struct {
	TemporaryChanID lnwire.ChannelID
	Params          ChannelParams
	LocalInputs     []InteractiveTxInput
	LocalOutputs    []InteractiveTxOutput
	RemoteInputs    []InteractiveTxInput
	RemoteOutputs   []InteractiveTxOutput
	PeerDone        bool
	SelfDone        bool
}

// WaitForFundingSigned follows commitment_signed exchange; witnesses for
// local inputs are withheld until this point.
type WaitForFundingSigned struct {
	TemporaryChanID lnwire.ChannelID
	Params          ChannelParams
	Funding         FundingInfo
	LocalSpec       CommitmentSpec
	RemoteSpec      CommitmentSpec
}

// WaitForFundingConfirmed holds a fully signed funding transaction awaiting
// min_depth confirmations.
type WaitForFundingConfirmed struct {
	ChanID  lnwire.ChannelID
	Commitments Commitments
}

// LegacyWaitForFundingConfirmed mirrors WaitForFundingConfirmed for channels
// restored from a pre-dual-funding backup, where the funding transaction was
// constructed out-of-band rather than via the interactive-tx protocol.
type LegacyWaitForFundingConfirmed struct {
	ChanID      lnwire.ChannelID
	Commitments Commitments
}

// WaitForChannelReady holds a confirmed funding output awaiting the mutual
// channel_ready exchange.
type WaitForChannelReady struct {
	ChanID      lnwire.ChannelID
	Commitments Commitments
	LocalReady  bool
	RemoteReady bool
}

// Normal is the operating state: HTLCs may be added, the commitment
// protocol runs, and splices may be proposed.
type Normal struct {
	ChanID      lnwire.ChannelID
	Commitments Commitments
	Splice      *SpliceState
}

// SpliceState tracks an in-progress splice: both the pre-splice and
// candidate post-splice fundings are tracked until splice_locked.
type SpliceState struct {
	CandidateFunding FundingInfo
	LocalInputs      []InteractiveTxInput
	LocalOutputs     []InteractiveTxOutput
	RemoteInputs     []InteractiveTxInput
	RemoteOutputs    []InteractiveTxOutput
	PeerDone         bool
	SelfDone         bool
	Locked           bool
}

// ShuttingDown is entered once either side sends Shutdown; no new HTLCs may
// be added but existing ones still resolve.
type ShuttingDown struct {
	ChanID      lnwire.ChannelID
	Commitments Commitments
	Closing     ClosingInfo
}

// Negotiating is entered once all HTLCs have cleared and closing_signed fee
// negotiation begins.
type Negotiating struct {
	ChanID      lnwire.ChannelID
	Commitments Commitments
	Closing     ClosingInfo
}

// ClosingKind distinguishes why a channel entered Closing.
type ClosingKind uint8

const (
	ClosingMutual ClosingKind = iota
	ClosingLocalForce
	ClosingRemoteForce
	ClosingRevokedPenalty
)

// Closing is entered once a closing transaction (mutual or unilateral) has
// been published and claim transactions for any remaining outputs are being
// tracked to confirmation.
type Closing struct {
	ChanID      lnwire.ChannelID
	Commitments Commitments
	Kind        ClosingKind
	Closing     ClosingInfo
}

// Closed is terminal: every output of the close transaction (and any claim
// transactions) has reached the confirmation depth required to consider the
// channel fully settled.
type Closed struct {
	ChanID lnwire.ChannelID
}

// Aborted is terminal: the interactive-tx round for a funding or splice was
// abandoned before any transaction was broadcast. No on-chain cleanup is
// required.
type Aborted struct {
	ChanID lnwire.ChannelID
	Reason string
}

// Offline wraps an inner state while no connection is active. Only
// Connected, WatchReceived, and CheckHtlcTimeout are accepted; HTLC adds are
// rejected.
type Offline struct {
	Inner ChannelState
}

// Syncing wraps an inner state while channel_reestablish is in flight on a
// freshly (re)connected peer.
type Syncing struct {
	Inner              ChannelState
	ReestablishSent    bool
	ReestablishReceived bool
}

func (WaitForInit) isChannelState()                    {}
func (WaitForOpenChannel) isChannelState()              {}
func (WaitForAcceptChannel) isChannelState()            {}
func (WaitForFundingCreated) isChannelState()           {}
func (WaitForFundingSigned) isChannelState()            {}
func (WaitForFundingConfirmed) isChannelState()         {}
func (LegacyWaitForFundingConfirmed) isChannelState()   {}
func (WaitForChannelReady) isChannelState()             {}
func (Normal) isChannelState()                          {}
func (ShuttingDown) isChannelState()                    {}
func (Negotiating) isChannelState()                     {}
func (Closing) isChannelState()                         {}
func (Closed) isChannelState()                          {}
func (Aborted) isChannelState()                         {}
func (Offline) isChannelState()                         {}
func (Syncing) isChannelState()                         {}

// InteractiveTxInput is one contributed input to an in-progress
// interactive-tx round (dual-funding open or splice).
type InteractiveTxInput struct {
	SerialID   uint64
	PrevTx     []byte
	PrevTxVout uint32
	Sequence   uint32
}

// InteractiveTxOutput is one contributed output to an in-progress
// interactive-tx round.
type InteractiveTxOutput struct {
	SerialID uint64
	Amount   int64
	Script   []byte
}
