package contractcourt

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/lnwallet"
)

// HtlcTimeoutResolver resolves an outgoing HTLC that timed out on-chain.
// If the HTLC landed on our commitment, resolution waits for the
// second-level timeout transaction to confirm; if it landed on the
// remote's commitment, it waits for a direct CLTV-gated sweep.
type HtlcTimeoutResolver struct {
	htlcResolution lnwallet.OutgoingHtlcResolution

	outputIncubating bool
	resolved         bool

	broadcastHeight uint32
	htlcIndex       uint64
	htlcAmtMsat     uint64

	ResolverKit
}

// NewHtlcTimeoutResolver builds a resolver for an outgoing HTLC that has
// exceeded its CLTV expiry and crossed its timeout safety threshold.
func NewHtlcTimeoutResolver(res lnwallet.OutgoingHtlcResolution, htlcIndex uint64, htlcAmtMsat uint64, broadcastHeight uint32) *HtlcTimeoutResolver {
	return &HtlcTimeoutResolver{
		htlcResolution:  res,
		htlcIndex:       htlcIndex,
		htlcAmtMsat:     htlcAmtMsat,
		broadcastHeight: broadcastHeight,
	}
}

// ResolverKey identifies this resolver by the outpoint it claims.
func (h *HtlcTimeoutResolver) ResolverKey() []byte {
	op := h.htlcResolution.ClaimOutpoint
	if h.htlcResolution.SignedTimeoutTx != nil {
		op = h.htlcResolution.SignedTimeoutTx.TxIn[0].PreviousOutPoint
	}
	key := newResolverID(op)
	return key[:]
}

// Resolve drives the HTLC to a final, reportable outcome: publish the
// second-level transaction if needed, wait for the relevant confirmation
// or spend, then notify the channel owner so the payment can be failed.
func (h *HtlcTimeoutResolver) Resolve() (ContractResolver, error) {
	if h.resolved {
		return nil, nil
	}

	if !h.outputIncubating && h.htlcResolution.SignedTimeoutTx != nil {
		if err := h.PublishTx(h.htlcResolution.SignedTimeoutTx); err != nil {
			return nil, err
		}
		h.outputIncubating = true
		if err := h.Checkpoint(h); err != nil {
			return nil, err
		}
	}

	if h.htlcResolution.SignedTimeoutTx == nil {
		if err := h.waitForSpend(h.htlcResolution.ClaimOutpoint, h.htlcResolution.SweepSignDesc.Output.PkScript); err != nil {
			return nil, err
		}
	} else {
		txid := h.htlcResolution.SignedTimeoutTx.TxHash()
		sweepScript := h.htlcResolution.SignedTimeoutTx.TxOut[0].PkScript
		if err := h.waitForConf(&txid, sweepScript); err != nil {
			return nil, err
		}
	}

	log.Infof("htlc(%v): resolving with fail message, fully confirmed",
		h.htlcResolution.ClaimOutpoint)

	if err := h.DeliverResolutionMsg(ResolutionMsg{
		HtlcIndex: h.htlcIndex,
		Failed:    true,
	}); err != nil {
		return nil, err
	}

	h.resolved = true
	return nil, h.Checkpoint(h)
}

func (h *HtlcTimeoutResolver) waitForSpend(op wire.OutPoint, pkScript []byte) error {
	spendNtfn, err := h.Notifier.RegisterSpendNtfn(&op, pkScript, h.broadcastHeight)
	if err != nil {
		return err
	}

	select {
	case _, ok := <-spendNtfn.Spend:
		if !ok {
			return errResolverQuitting
		}
	case <-h.Quit:
		return errResolverQuitting
	}
	return nil
}

func (h *HtlcTimeoutResolver) waitForConf(txid *chainhash.Hash, pkScript []byte) error {
	confNtfn, err := h.Notifier.RegisterConfirmationsNtfn(txid, pkScript, 1, h.broadcastHeight)
	if err != nil {
		return err
	}

	select {
	case _, ok := <-confNtfn.Confirmed:
		if !ok {
			return errResolverQuitting
		}
	case <-h.Quit:
		return errResolverQuitting
	}
	return nil
}

// Stop signals the resolver to abandon any in-flight waits.
func (h *HtlcTimeoutResolver) Stop() {
	close(h.Quit)
}

// IsResolved reports whether the HTLC has reached a final outcome.
func (h *HtlcTimeoutResolver) IsResolved() bool {
	return h.resolved
}

// Encode serializes the resolver's checkpointed state.
func (h *HtlcTimeoutResolver) Encode(w io.Writer) error {
	if err := binary.Write(w, endian, h.outputIncubating); err != nil {
		return err
	}
	if err := binary.Write(w, endian, h.resolved); err != nil {
		return err
	}
	if err := binary.Write(w, endian, h.broadcastHeight); err != nil {
		return err
	}
	if err := binary.Write(w, endian, h.htlcIndex); err != nil {
		return err
	}
	return binary.Write(w, endian, h.htlcAmtMsat)
}

// Decode restores a resolver from its checkpointed state.
func (h *HtlcTimeoutResolver) Decode(r io.Reader) error {
	if err := binary.Read(r, endian, &h.outputIncubating); err != nil {
		return err
	}
	if err := binary.Read(r, endian, &h.resolved); err != nil {
		return err
	}
	if err := binary.Read(r, endian, &h.broadcastHeight); err != nil {
		return err
	}
	if err := binary.Read(r, endian, &h.htlcIndex); err != nil {
		return err
	}
	return binary.Read(r, endian, &h.htlcAmtMsat)
}

// AttachResolverKit wires in the shared collaborators once this resolver
// has been decoded from storage.
func (h *HtlcTimeoutResolver) AttachResolverKit(r ResolverKit) {
	h.ResolverKit = r
}

var _ ContractResolver = (*HtlcTimeoutResolver)(nil)
