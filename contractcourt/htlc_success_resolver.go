package contractcourt

import (
	"encoding/binary"
	"io"

	"github.com/breez/phoenixcore/lnwallet"
)

// HtlcSuccessResolver resolves an incoming HTLC we hold the preimage for
// once its commitment output lands on-chain. Grounded on the same
// incubate-then-wait shape as HtlcTimeoutResolver, mirrored for the
// success path the teacher's package left unimplemented.
type HtlcSuccessResolver struct {
	htlcResolution lnwallet.IncomingHtlcResolution

	outputIncubating bool
	resolved         bool

	broadcastHeight uint32
	htlcIndex       uint64

	ResolverKit
}

// NewHtlcSuccessResolver builds a resolver for an incoming HTLC whose
// preimage is already known: settlement always follows preimage discovery,
// on-chain or off.
func NewHtlcSuccessResolver(res lnwallet.IncomingHtlcResolution, htlcIndex uint64, broadcastHeight uint32) *HtlcSuccessResolver {
	return &HtlcSuccessResolver{
		htlcResolution:  res,
		htlcIndex:       htlcIndex,
		broadcastHeight: broadcastHeight,
	}
}

// ResolverKey identifies this resolver by the outpoint it claims.
func (h *HtlcSuccessResolver) ResolverKey() []byte {
	op := h.htlcResolution.ClaimOutpoint
	if h.htlcResolution.SignedSuccessTx != nil {
		op = h.htlcResolution.SignedSuccessTx.TxIn[0].PreviousOutPoint
	}
	key := newResolverID(op)
	return key[:]
}

// Resolve publishes the success transaction (or waits for our own
// direct-preimage sweep to confirm), then reports settlement with the
// preimage attached.
func (h *HtlcSuccessResolver) Resolve() (ContractResolver, error) {
	if h.resolved {
		return nil, nil
	}

	if !h.outputIncubating && h.htlcResolution.SignedSuccessTx != nil {
		if err := h.PublishTx(h.htlcResolution.SignedSuccessTx); err != nil {
			return nil, err
		}
		h.outputIncubating = true
		if err := h.Checkpoint(h); err != nil {
			return nil, err
		}
	}

	op := h.htlcResolution.ClaimOutpoint
	pkScript := h.htlcResolution.SweepSignDesc.Output.PkScript
	spendNtfn, err := h.Notifier.RegisterSpendNtfn(&op, pkScript, h.broadcastHeight)
	if err != nil {
		return nil, err
	}

	select {
	case _, ok := <-spendNtfn.Spend:
		if !ok {
			return nil, errResolverQuitting
		}
	case <-h.Quit:
		return nil, errResolverQuitting
	}

	preimage := h.htlcResolution.Preimage
	if err := h.DeliverResolutionMsg(ResolutionMsg{
		HtlcIndex: h.htlcIndex,
		Preimage:  &preimage,
	}); err != nil {
		return nil, err
	}

	h.resolved = true
	return nil, h.Checkpoint(h)
}

// Stop signals the resolver to abandon any in-flight waits.
func (h *HtlcSuccessResolver) Stop() {
	close(h.Quit)
}

// IsResolved reports whether the HTLC has reached a final outcome.
func (h *HtlcSuccessResolver) IsResolved() bool {
	return h.resolved
}

// Encode serializes the resolver's checkpointed state.
func (h *HtlcSuccessResolver) Encode(w io.Writer) error {
	if err := binary.Write(w, endian, h.outputIncubating); err != nil {
		return err
	}
	if err := binary.Write(w, endian, h.resolved); err != nil {
		return err
	}
	if err := binary.Write(w, endian, h.broadcastHeight); err != nil {
		return err
	}
	return binary.Write(w, endian, h.htlcIndex)
}

// Decode restores a resolver from its checkpointed state.
func (h *HtlcSuccessResolver) Decode(r io.Reader) error {
	if err := binary.Read(r, endian, &h.outputIncubating); err != nil {
		return err
	}
	if err := binary.Read(r, endian, &h.resolved); err != nil {
		return err
	}
	if err := binary.Read(r, endian, &h.broadcastHeight); err != nil {
		return err
	}
	return binary.Read(r, endian, &h.htlcIndex)
}

// AttachResolverKit wires in the shared collaborators once this resolver
// has been decoded from storage.
func (h *HtlcSuccessResolver) AttachResolverKit(r ResolverKit) {
	h.ResolverKit = r
}

var _ ContractResolver = (*HtlcSuccessResolver)(nil)
