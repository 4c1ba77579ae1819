package htlcswitch

import (
	"bytes"
	"fmt"

	sphinx "github.com/lightningnetwork/lightning-onion"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
)

// OnionPeeler decrypts the outer Sphinx onion on an incoming HTLC down to
// this node's hop payload, the same ProcessOnionPacket call the upstream
// peer handler makes before deciding whether it is the payment's exit node.
// A trampoline node is always the outer onion's exit node; the payload it
// recovers there is itself the encoded next-hop instruction (final
// recipient, or the next trampoline peer) rather than plaintext payment
// terms.
type OnionPeeler struct {
	router *sphinx.Router
}

// NewOnionPeeler builds a peeler bound to nodeKey, the identity key whose
// ECDH shared secrets unwrap each onion addressed to this node.
func NewOnionPeeler(nodeKey *btcec.PrivateKey, params *chaincfg.Params) *OnionPeeler {
	return &OnionPeeler{router: sphinx.NewRouter(nodeKey, params, sphinx.NewMemoryReplayLog())}
}

// PeeledHop is the result of peeling one layer of an HTLC's onion.
type PeeledHop struct {
	// IsExitHop is true when this node is the final destination of the
	// outer onion; HopPayload then carries this payment's terms rather
	// than routing instructions for a further hop.
	IsExitHop bool
	HopPayload []byte
	// NextOnion is the re-packaged onion to forward, valid only when
	// IsExitHop is false.
	NextOnion []byte
}

// Peel decrypts onionBlob, an outer Sphinx onion packet, associating
// paymentHash as authenticated data exactly as the onion's construction
// requires — replaying the same packet against a different payment hash
// fails to authenticate.
func (o *OnionPeeler) Peel(onionBlob []byte, paymentHash [32]byte) (*PeeledHop, error) {
	pkt := &sphinx.OnionPacket{}
	if err := pkt.Decode(bytes.NewReader(onionBlob)); err != nil {
		return nil, fmt.Errorf("decoding onion packet: %w", err)
	}

	processed, err := o.router.ProcessOnionPacket(pkt, paymentHash[:], 0)
	if err != nil {
		return nil, fmt.Errorf("processing onion packet: %w", err)
	}

	switch processed.Action {
	case sphinx.ExitNode:
		return &PeeledHop{IsExitHop: true, HopPayload: processed.Payload.Payload}, nil
	case sphinx.MoreHops:
		var next bytes.Buffer
		if err := processed.NextPacket.Encode(&next); err != nil {
			return nil, fmt.Errorf("encoding forwarded onion: %w", err)
		}
		return &PeeledHop{HopPayload: processed.Payload.Payload, NextOnion: next.Bytes()}, nil
	default:
		return nil, fmt.Errorf("malformed onion packet")
	}
}
