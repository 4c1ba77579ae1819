// Package sweep assembles fee-aware claim transactions from the set of
// on-chain outputs contractcourt resolvers hand it: commitment outputs,
// second-level HTLC outputs, and direct CLTV/preimage-gated HTLC outputs.
package sweep

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/lnwallet"
)

// WitnessType identifies the spending path a sweep input requires, which
// determines both its witness size estimate and its sequence/locktime
// requirements.
type WitnessType uint16

const (
	// CommitmentNoDelay spends a to-remote output that pays directly to
	// us with no CSV delay.
	CommitmentNoDelay WitnessType = iota

	// CommitmentTimeLock spends our to-local output, CSV-delayed by the
	// channel's negotiated ToSelfDelay.
	CommitmentTimeLock

	// HtlcOfferedTimeoutSecondLevel spends the second-level timeout
	// transaction output for an outgoing HTLC, once it has matured past
	// its CSV delay.
	HtlcOfferedTimeoutSecondLevel

	// HtlcAcceptedSuccessSecondLevel spends the second-level success
	// transaction output for an incoming HTLC, once it has matured past
	// its CSV delay.
	HtlcAcceptedSuccessSecondLevel

	// HtlcOfferedRemoteTimeout spends an outgoing HTLC directly off the
	// remote party's commitment transaction via its absolute CLTV
	// timeout.
	HtlcOfferedRemoteTimeout

	// HtlcAcceptedRemoteSuccess spends an incoming HTLC directly off the
	// remote party's commitment transaction using the preimage.
	HtlcAcceptedRemoteSuccess
)

// Witness size upper bounds in bytes, used to size sweep transaction fees
// before the actual signature is known.
const (
	P2WKHWitnessSize              = 107
	ToLocalTimeoutWitnessSize     = 141
	OfferedHtlcSuccessWitnessSize = 169
	AcceptedHtlcTimeoutWitnessSize = 137
	P2WPKHSize                    = 22
)

// Input is a single on-chain output a sweep transaction may claim.
// Concrete script/witness construction is a non-goal; Input is the seam
// contractcourt hands outputs across without this package needing to know
// about channel internals.
type Input interface {
	OutPoint() *wire.OutPoint
	WitnessType() WitnessType
	SignDesc() *lnwallet.SignDescriptor
	BlocksToMaturity() uint32
	BuildWitness(signer Signer, tx *wire.MsgTx, hashCache *txscript.TxSigHashes, idx int) (wire.TxWitness, error)
}

// Signer produces the witness data for a single sweep input. Concrete
// signing is delegated to the external key manager via keychain.KeyRing;
// this interface is the seam sweep depends on instead.
type Signer interface {
	SignInputScript(tx *wire.MsgTx, signDesc *lnwallet.SignDescriptor) (wire.TxWitness, error)
}
