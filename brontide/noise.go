// Package brontide implements the Noise_XK_secp256k1_ChaChaPoly_SHA256
// transport handshake and framing used for the connection to the single
// trampoline peer. Frames are length-hidden: each wire message is
// wrapped as a ChaCha20-Poly1305 ciphertext prefixed by a 2-byte encrypted
// length, itself inside a 0x00-tagged outer frame.
package brontide

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	protocolName = "Noise_XK_secp256k1_ChaChaPoly_SHA256"
	prologue     = "lightning"

	// Handshake message sizes: two 50-byte acts followed by a 66-byte
	// third act carrying the initiator's encrypted static key.
	actOneSize   = 50
	actTwoSize   = 50
	actThreeSize = 66

	macSize = 16
)

var (
	// ErrMaxMessageLengthExceeded is returned by WriteMessage when the
	// payload to send exceeds the protocol's 65535-byte ceiling.
	ErrMaxMessageLengthExceeded = errors.New("message length exceeds maximum")

	errInvalidHandshakeState = errors.New("invalid handshake state for this message")
)

// handshakeState tracks the Noise symmetric-state accumulator (ck, h) used
// while mixing keys and payloads across all three acts.
type handshakeState struct {
	chainingKey     [32]byte
	handshakeDigest [32]byte
	tempKey         [32]byte
	localEphemeral  *btcec.PrivateKey
	localStatic     *btcec.PrivateKey
	remoteEphemeral *btcec.PublicKey
	remoteStatic    *btcec.PublicKey
}

func newHandshakeState(localStatic *btcec.PrivateKey, remoteStatic *btcec.PublicKey) *handshakeState {
	h := &handshakeState{localStatic: localStatic, remoteStatic: remoteStatic}

	digest := sha256.Sum256([]byte(protocolName))
	h.chainingKey = digest
	h.handshakeDigest = sha256.Sum256(append(digest[:], []byte(prologue)...))

	if remoteStatic != nil {
		h.mixHash(remoteStatic.SerializeCompressed())
	}
	return h
}

func (h *handshakeState) mixHash(data []byte) {
	d := sha256.New()
	d.Write(h.handshakeDigest[:])
	d.Write(data)
	copy(h.handshakeDigest[:], d.Sum(nil))
}

// mixKey folds a fresh DH output into the chaining key and derives the
// temporary cipher key used to encrypt the next handshake payload. The
// result is both returned and cached on the state so a later act can reuse
// it without re-deriving the same DH output (the real protocol applies
// EncryptAndHash against whichever temp key the last mixKey produced, not
// against a freshly recomputed one).
func (h *handshakeState) mixKey(input []byte) [32]byte {
	hk := hkdf.New(sha256.New, input, h.chainingKey[:], nil)
	io.ReadFull(hk, h.chainingKey[:])
	io.ReadFull(hk, h.tempKey[:])
	return h.tempKey
}

func ecdh(priv *btcec.PrivateKey, pub *btcec.PublicKey) []byte {
	var point btcec.JacobianPoint
	pub.AsJacobian(&point)

	var result btcec.JacobianPoint
	btcec.ScalarMultNonConst(&priv.Key, &point, &result)
	result.ToAffine()

	pubKey := btcec.NewPublicKey(&result.X, &result.Y)
	h := sha256.Sum256(pubKey.SerializeCompressed())
	return h[:]
}

func encryptWithAD(key [32]byte, nonce uint64, ad, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	var nonceBytes [12]byte
	binary.LittleEndian.PutUint64(nonceBytes[4:], nonce)
	return aead.Seal(nil, nonceBytes[:], plaintext, ad), nil
}

func decryptWithAD(key [32]byte, nonce uint64, ad, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	var nonceBytes [12]byte
	binary.LittleEndian.PutUint64(nonceBytes[4:], nonce)
	return aead.Open(nil, nonceBytes[:], ciphertext, ad)
}

// CipherState is the per-direction sending/receiving AEAD state that
// results from a completed handshake; keys rotate every 1000 messages per
// the protocol's key-rotation schedule.
type CipherState struct {
	key        [32]byte
	salt       [32]byte
	nonce      uint64
	aead       cipher.AEAD
}

func newCipherState(key, salt [32]byte) *CipherState {
	aead, _ := chacha20poly1305.New(key[:])
	return &CipherState{key: key, salt: salt, aead: aead}
}

func (c *CipherState) encrypt(ad, plaintext []byte) ([]byte, error) {
	if c.nonce == 1000 {
		c.rotateKey()
	}
	var nonceBytes [12]byte
	binary.LittleEndian.PutUint64(nonceBytes[4:], c.nonce)
	c.nonce++
	return c.aead.Seal(nil, nonceBytes[:], plaintext, ad), nil
}

func (c *CipherState) decrypt(ad, ciphertext []byte) ([]byte, error) {
	if c.nonce == 1000 {
		c.rotateKey()
	}
	var nonceBytes [12]byte
	binary.LittleEndian.PutUint64(nonceBytes[4:], c.nonce)
	c.nonce++
	return c.aead.Open(nil, nonceBytes[:], ciphertext, ad)
}

func (c *CipherState) rotateKey() {
	hk := hkdf.New(sha256.New, c.key[:], c.salt[:], nil)
	var next [32]byte
	io.ReadFull(hk, c.salt[:])
	io.ReadFull(hk, next[:])
	c.key = next
	c.aead, _ = chacha20poly1305.New(c.key[:])
	c.nonce = 0
}
