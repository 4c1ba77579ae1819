package lnwallet

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/lnwire"
)

// PaymentHash is the sha256 of a payment preimage, used to correlate an
// UpdateAddHTLC with the invoice or forwarded payment it settles.
type PaymentHash [32]byte

// ShortChannelID locates a channel output by (block height, tx index,
// output index), assigned once channel_ready/splice_locked confirms.
type ShortChannelID struct {
	BlockHeight uint32
	TxIndex     uint32
	TxPosition  uint16
}

func (s ShortChannelID) ToUint64() uint64 {
	return uint64(s.BlockHeight)<<40 | uint64(s.TxIndex)<<16 | uint64(s.TxPosition)
}

// HtlcDirection records which side added the HTLC to the commitment.
type HtlcDirection uint8

const (
	Incoming HtlcDirection = iota
	Outgoing
)

// HtlcFate tracks the terminal disposition of an HTLC once it leaves the
// proposed-changes set, so channel teardown and penalty logic know how to
// treat any still-pending outputs on a published commitment.
type HtlcFate uint8

const (
	HtlcPending HtlcFate = iota
	HtlcFulfilled
	HtlcFailed
	HtlcTimedOut
)

// Htlc is one payment-in-flight entry of a commitment's spec.
type Htlc struct {
	Direction   HtlcDirection
	ID          uint64
	AmountMsat  uint64
	PaymentHash PaymentHash
	CltvExpiry  uint32
	OnionBlob   [1366]byte
	Fate        HtlcFate
}

// CommitmentSpec is the balance/HTLC-set view materialized at a given
// commitment number, before it is turned into a signed transaction.
type CommitmentSpec struct {
	ToLocalMsat  uint64
	ToRemoteMsat uint64
	FeeratePerKw uint32
	Htlcs        []Htlc
}

// Clone returns a deep copy so transition functions never mutate a spec
// shared with the prior immutable Channel value.
func (s CommitmentSpec) Clone() CommitmentSpec {
	out := s
	out.Htlcs = make([]Htlc, len(s.Htlcs))
	copy(out.Htlcs, s.Htlcs)
	return out
}

// ChannelKeys holds the per-channel static key material negotiated at open
// time. Private key material itself lives behind the keychain.KeyRing
// collaborator; only public points and derivation indices are carried here.
type ChannelKeys struct {
	FundingKeyLocal   *btcec.PublicKey
	FundingKeyRemote  *btcec.PublicKey
	RevocationBasepointRemote *btcec.PublicKey
	PaymentBasepointRemote    *btcec.PublicKey
	DelayedPaymentBasepointRemote *btcec.PublicKey
	HtlcBasepointRemote       *btcec.PublicKey
}

// ChannelParams are the negotiated, immutable-for-the-channel's-lifetime
// parameters from open_channel2/accept_channel2, plus the dual-funding
// additions this expansion carries (feerate, funding weight contribution).
type ChannelParams struct {
	ChainHash        [32]byte
	DustLimit        btcutil.Amount
	MaxHtlcValueInFlightMsat uint64
	HtlcMinimumMsat  uint64
	ToSelfDelay      uint16
	MaxAcceptedHtlcs uint16
	FundingFeeratePerKw uint32
	FundingTxWeightLocal  int64
	FundingTxWeightRemote int64
	IsInitiator      bool
	Keys             ChannelKeys
}

// FundingInfo identifies the on-chain output backing a commitment.
type FundingInfo struct {
	OutPoint   wire.OutPoint
	AmountSats btcutil.Amount
	Active     bool
}

// ClosingInfo carries the state needed while a channel winds down: the
// negotiated mutual-close fee range, or the published commitment/claim
// transactions for a unilateral/force close.
type ClosingInfo struct {
	LocalShutdownScript  []byte
	RemoteShutdownScript []byte
	LastFeeOffered       btcutil.Amount
	PublishedCommitTx    *wire.MsgTx
	ClaimTxs             []*wire.MsgTx
}

// Commitments bundles the two parties' view of a funding output: the local
// commitment this node would sign to unilaterally close, and the remote
// commitment the counterparty holds, both derived from the same spec.
type Commitments struct {
	ChannelID      lnwire.ChannelID
	Params         ChannelParams
	Funding        FundingInfo
	CommitmentNumber uint64
	LocalSpec      CommitmentSpec
	RemoteSpec     CommitmentSpec
	ShortChannelID *ShortChannelID
}
