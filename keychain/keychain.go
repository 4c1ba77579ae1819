// Package keychain stands in for the external key manager collaborator:
// seed custody and private-key storage live outside this node entirely. It
// defines the narrow interface this node needs to derive per-channel and
// per-payment key material without owning any of that material itself.
package keychain

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// KeyFamily groups related key derivations, mirroring the teacher's
// per-purpose key scoping (funding keys, revocation basepoints, node id).
type KeyFamily uint32

const (
	KeyFamilyNodeKey KeyFamily = iota
	KeyFamilyFunding
	KeyFamilyRevocationBase
	KeyFamilyPaymentBase
	KeyFamilyDelayBase
	KeyFamilyHtlcBase
	KeyFamilyChannelBackup
)

// KeyLocator identifies a single derived key by family and index.
type KeyLocator struct {
	Family KeyFamily
	Index  uint32
}

// KeyDescriptor pairs a locator with its public key, the form most of this
// node's signing call sites need.
type KeyDescriptor struct {
	KeyLocator
	PubKey *btcec.PublicKey
}

// KeyRing is implemented by the external key manager. Only public-key
// derivation and opaque signing are exposed; raw private key material never
// crosses this boundary.
type KeyRing interface {
	DeriveNextKey(family KeyFamily) (KeyDescriptor, error)
	DeriveKey(loc KeyLocator) (KeyDescriptor, error)
	NodePubKey() (*btcec.PublicKey, error)

	SignDigest(loc KeyLocator, digest [32]byte) (*ecdsa.Signature, error)
	ECDH(loc KeyLocator, pubKey *btcec.PublicKey) ([32]byte, error)
}
