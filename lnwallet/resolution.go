package lnwallet

import (
	"github.com/btcsuite/btcd/wire"
)

// SignDescriptor carries everything a sweep needs to produce a witness for
// a single output, standing in for the external wallet's signing surface;
// this node never constructs raw scripts or signatures itself.
type SignDescriptor struct {
	Output   *wire.TxOut
	WitnessScript []byte
}

// OutgoingHtlcResolution describes how to claim back an outgoing HTLC that
// timed out, either via a pre-signed second-level timeout transaction (our
// commitment) or a direct CLTV-gated spend (remote commitment).
type OutgoingHtlcResolution struct {
	ClaimOutpoint    wire.OutPoint
	SignedTimeoutTx  *wire.MsgTx
	SweepSignDesc    SignDescriptor
	Expiry           uint32
}

// IncomingHtlcResolution describes how to claim an incoming HTLC we hold
// the preimage for, either via a pre-signed second-level success
// transaction or a direct preimage-gated spend.
type IncomingHtlcResolution struct {
	ClaimOutpoint   wire.OutPoint
	SignedSuccessTx *wire.MsgTx
	SweepSignDesc   SignDescriptor
	Preimage        [32]byte
}

// ScriptBuilder produces the scripts backing commitment and HTLC outputs.
// Concrete on-chain script construction is a non-goal; this interface lets
// contractcourt/sweep depend on a stable seam instead of raw wire.MsgTx
// assembly.
type ScriptBuilder interface {
	CommitScript(params ChannelParams) ([]byte, error)
	HtlcScript(h Htlc, params ChannelParams) ([]byte, error)
}

// TxBuilder assembles the final signed transactions handed to the chain
// backend for broadcast.
type TxBuilder interface {
	BuildSweepTx(inputs []wire.OutPoint, sweepScript []byte, feeratePerKw uint32) (*wire.MsgTx, error)
}
