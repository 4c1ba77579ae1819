package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/breez/phoenixcore/keychain"
)

// ephemeralKeyRing is a standalone-binary stand-in for the external key
// manager phoenixcore.Server expects: every library caller supplies its own
// keychain.KeyRing, but the CLI has no wallet to hand it one, so it derives
// everything from a single seed key it persists next to the rest of the
// node's data. It is not meant to be a hardened key manager.
type ephemeralKeyRing struct {
	seed    *btcec.PrivateKey
	nextIdx map[keychain.KeyFamily]uint32
}

func loadOrCreateKeyRing(dataDir string) (*ephemeralKeyRing, error) {
	path := filepath.Join(dataDir, "seed.key")

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key, _ := btcec.PrivKeyFromBytes(data)
		return &ephemeralKeyRing{seed: key, nextIdx: map[keychain.KeyFamily]uint32{}}, nil
	case os.IsNotExist(err):
		key, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generating seed key: %w", err)
		}
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		if err := os.WriteFile(path, key.Serialize(), 0600); err != nil {
			return nil, fmt.Errorf("persisting seed key: %w", err)
		}
		return &ephemeralKeyRing{seed: key, nextIdx: map[keychain.KeyFamily]uint32{}}, nil
	default:
		return nil, fmt.Errorf("reading seed key: %w", err)
	}
}

// tweak derives a per-(family, index) scalar by HMAC-SHA256'ing the seed's
// private key bytes against a compact encoding of the locator, then adding
// the result to the seed key modulo the curve order. This gives every
// locator a distinct, deterministic keypair without persisting more than
// the one seed.
func (k *ephemeralKeyRing) tweak(loc keychain.KeyLocator) *btcec.PrivateKey {
	var locBytes [8]byte
	binary.BigEndian.PutUint32(locBytes[0:4], uint32(loc.Family))
	binary.BigEndian.PutUint32(locBytes[4:8], loc.Index)

	mac := hmac.New(sha256.New, k.seed.Serialize())
	mac.Write(locBytes[:])
	tweak := mac.Sum(nil)

	var tweakScalar btcec.ModNScalar
	tweakScalar.SetByteSlice(tweak)
	tweakScalar.Add(&k.seed.Key)

	tweakedBytes := tweakScalar.Bytes()
	priv, _ := btcec.PrivKeyFromBytes(tweakedBytes[:])
	return priv
}

func (k *ephemeralKeyRing) DeriveNextKey(family keychain.KeyFamily) (keychain.KeyDescriptor, error) {
	idx := k.nextIdx[family]
	k.nextIdx[family] = idx + 1
	return k.DeriveKey(keychain.KeyLocator{Family: family, Index: idx})
}

func (k *ephemeralKeyRing) DeriveKey(loc keychain.KeyLocator) (keychain.KeyDescriptor, error) {
	priv := k.tweak(loc)
	return keychain.KeyDescriptor{KeyLocator: loc, PubKey: priv.PubKey()}, nil
}

func (k *ephemeralKeyRing) NodePubKey() (*btcec.PublicKey, error) {
	return k.seed.PubKey(), nil
}

func (k *ephemeralKeyRing) SignDigest(loc keychain.KeyLocator, digest [32]byte) (*ecdsa.Signature, error) {
	priv := k.tweak(loc)
	return ecdsa.Sign(priv, digest[:]), nil
}

func (k *ephemeralKeyRing) ECDH(loc keychain.KeyLocator, pubKey *btcec.PublicKey) ([32]byte, error) {
	priv := k.tweak(loc)

	var point btcec.JacobianPoint
	pubKey.AsJacobian(&point)

	var result btcec.JacobianPoint
	btcec.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()

	shared := btcec.NewPublicKey(&result.X, &result.Y)
	return sha256.Sum256(shared.SerializeCompressed()), nil
}
