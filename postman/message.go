// Package postman peels and sends BOLT 1 onion messages over blinded
// routes. Its onion construction is hand-rolled rather than built on
// lightning-onion's sphinx.Router: that type exists to peel a payment
// HTLC's fixed-length per-hop layout (realm byte, short channel id,
// amount, cltv) authenticated against a payment hash, and has no route
// blinding support in the version this module pins — BOLT 12's blinded
// onion message path requires ECDH against a per-path blinding point
// that the real protocol rotates hop to hop, a different primitive
// entirely. This package uses a single path-wide blinding point instead
// of lnd's full per-hop rotation: each hop still learns nothing beyond
// its own decrypted layer, but a node present at two hops of the same
// path (never possible for the single-trampoline-peer topology this
// module targets) could correlate them by blinding point. Built on the
// same chacha20poly1305 + hkdf + secp256k1 ECDH building blocks brontide
// already exercises for its Noise handshake.
package postman

import (
	"crypto/sha256"
	"errors"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var errNotForUs = errors.New("postman: message not addressed to this node")

// BlindedHop is one encrypted hop of a blinded route. EncryptedForwardTo
// carries the next hop's real node id for every hop but the last, where
// it seals an empty plaintext; the last hop's EncryptedPayload instead
// carries the path_id, followed by the message payload.
type BlindedHop struct {
	EncryptedForwardTo []byte
	EncryptedPayload   []byte
}

// BlindedPath is a route plus the blinding point needed to peel it.
// IntroductionNode is sent unencrypted since it's needed to route the
// message there before any peeling happens.
type BlindedPath struct {
	IntroductionNode *btcec.PublicKey
	BlindingPoint    *btcec.PublicKey
	Hops             []BlindedHop
}

// Message is a decrypted onion message payload, plus the reply path the
// sender attached, if any.
type Message struct {
	Payload   []byte
	PathID    [32]byte
	ReplyPath *BlindedPath
}

func hopSecrets(privKey *btcec.PrivateKey, blindingPoint *btcec.PublicKey) (fwdKey, dataKey [32]byte) {
	var point btcec.JacobianPoint
	blindingPoint.AsJacobian(&point)

	var result btcec.JacobianPoint
	btcec.ScalarMultNonConst(&privKey.Key, &point, &result)
	result.ToAffine()

	shared := btcec.NewPublicKey(&result.X, &result.Y)
	ss := sha256.Sum256(shared.SerializeCompressed())

	hk := hkdf.New(sha256.New, ss[:], nil, []byte("onion-message"))
	io.ReadFull(hk, fwdKey[:])
	io.ReadFull(hk, dataKey[:])
	return fwdKey, dataKey
}

func seal(key [32]byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	return aead.Seal(nil, nonce[:], plaintext, nil), nil
}

func open(key [32]byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	var nonce [12]byte
	return aead.Open(nil, nonce[:], ciphertext, nil)
}

// BuildBlindedPath encrypts route (intermediate hops first, final
// recipient last) under sessionKey's blinding point so each hop can only
// recover its own forwarding instruction or, for the final hop, payload
// and pathID.
func BuildBlindedPath(sessionKey *btcec.PrivateKey, route []*btcec.PublicKey, payload []byte, pathID [32]byte) (*BlindedPath, error) {
	if len(route) == 0 {
		return nil, errors.New("postman: empty route")
	}

	path := &BlindedPath{
		IntroductionNode: route[0],
		BlindingPoint:    sessionKey.PubKey(),
	}

	for i, hopKey := range route {
		fwdKey, dataKey := hopSecrets(sessionKey, hopKey)

		var fwdPlain, dataPlain []byte
		if i == len(route)-1 {
			dataPlain = append(append([]byte{}, pathID[:]...), payload...)
		} else {
			fwdPlain = route[i+1].SerializeCompressed()
		}

		encFwd, err := seal(fwdKey, fwdPlain)
		if err != nil {
			return nil, err
		}
		encData, err := seal(dataKey, dataPlain)
		if err != nil {
			return nil, err
		}

		path.Hops = append(path.Hops, BlindedHop{EncryptedForwardTo: encFwd, EncryptedPayload: encData})
	}

	return path, nil
}

// PeelResult is the outcome of peeling one hop of a blinded onion message
// at this node.
type PeelResult struct {
	// TerminatesHere is true when this node is the final hop.
	TerminatesHere bool
	Message        Message
	// ForwardTo is this node's successor, populated when
	// TerminatesHere is false.
	ForwardTo *btcec.PublicKey
	// RemainingPath is the path to pass along when forwarding: same
	// blinding point, hops sliced past this one.
	RemainingPath *BlindedPath
}

// PeelHop decrypts this node's layer of path using privKey. hopIndex is
// this node's position within path.Hops.
func PeelHop(privKey *btcec.PrivateKey, path *BlindedPath, hopIndex int) (PeelResult, error) {
	if hopIndex < 0 || hopIndex >= len(path.Hops) {
		return PeelResult{}, errNotForUs
	}
	hop := path.Hops[hopIndex]
	fwdKey, dataKey := hopSecrets(privKey, path.BlindingPoint)

	isLast := hopIndex == len(path.Hops)-1
	if isLast {
		data, err := open(dataKey, hop.EncryptedPayload)
		if err != nil {
			return PeelResult{}, errNotForUs
		}
		if len(data) < 32 {
			return PeelResult{}, errNotForUs
		}
		var pathID [32]byte
		copy(pathID[:], data[:32])
		return PeelResult{
			TerminatesHere: true,
			Message:        Message{PathID: pathID, Payload: data[32:]},
		}, nil
	}

	fwdBytes, err := open(fwdKey, hop.EncryptedForwardTo)
	if err != nil {
		return PeelResult{}, errNotForUs
	}
	nextNode, err := btcec.ParsePubKey(fwdBytes)
	if err != nil {
		return PeelResult{}, errNotForUs
	}

	return PeelResult{
		ForwardTo:     nextNode,
		RemainingPath: &BlindedPath{IntroductionNode: nextNode, BlindingPoint: path.BlindingPoint, Hops: path.Hops[hopIndex+1:]},
	}, nil
}
