// Package contractcourt resolves on-chain HTLC outputs after a channel has
// gone to chain: outgoing HTLCs that timed out are swept back, incoming
// HTLCs we hold the preimage for are claimed, and the channel's owner is
// told the final outcome so it can fail or settle the corresponding
// htlcswitch-side payment.
package contractcourt

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/breez/phoenixcore/chainrpc"
	"github.com/breez/phoenixcore/lnwire"
)

var endian = binary.BigEndian

// ResolutionMsg is delivered back to the channel's owner once a resolver
// reaches a final outcome, so the originating htlcswitch payment can be
// failed or settled.
type ResolutionMsg struct {
	SourceChanID lnwire.ChannelID
	HtlcIndex    uint64
	Preimage     *[32]byte
	Failed       bool
}

// ResolverKit bundles the collaborators every resolver needs: the chain
// backend, the channel point being resolved, a quit channel, and the
// callback used to deliver a final ResolutionMsg.
type ResolverKit struct {
	ChanPoint   wire.OutPoint
	ShortChanID uint64
	Notifier    chainrpc.ChainNotifier
	PublishTx   func(tx *wire.MsgTx) error
	Checkpoint  func(ContractResolver) error
	DeliverResolutionMsg func(ResolutionMsg) error
	Quit        chan struct{}
}

// ContractResolver is implemented by every on-chain claim state machine
// (HTLC timeout, HTLC success, and future commitment-output resolvers).
type ContractResolver interface {
	ResolverKey() []byte
	Resolve() (ContractResolver, error)
	Stop()
	IsResolved() bool
	Encode(w io.Writer) error
	Decode(r io.Reader) error
	AttachResolverKit(r ResolverKit)
}

func newResolverID(op wire.OutPoint) chainhash.Hash {
	var key [36]byte
	copy(key[:32], op.Hash[:])
	endian.PutUint32(key[32:], op.Index)
	return chainhash.HashH(key[:])
}

var errResolverQuitting = fmt.Errorf("resolver quitting")
