package brontide

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/hkdf"
)

func hkdfReader(chainingKey [32]byte) io.Reader {
	return hkdf.New(sha256.New, nil, chainingKey[:], nil)
}

// Machine drives the three-act Noise_XK handshake and, once complete,
// exposes the pair of CipherStates used to frame subsequent traffic.
type Machine struct {
	state *handshakeState

	sendCipher *CipherState
	recvCipher *CipherState

	remotePub *btcec.PublicKey
}

// NewInitiator prepares a Machine for the connecting side, which must know
// the responder's 32-byte static public key in advance.
func NewInitiator(localStatic *btcec.PrivateKey, remoteStatic *btcec.PublicKey) *Machine {
	return &Machine{state: newHandshakeState(localStatic, remoteStatic)}
}

// NewResponder prepares a Machine for the accepting side.
func NewResponder(localStatic *btcec.PrivateKey) *Machine {
	return &Machine{state: newHandshakeState(localStatic, nil)}
}

// GenActOne produces the initiator's first handshake message: an ephemeral
// key plus a MAC over the running handshake digest.
func (m *Machine) GenActOne() ([actOneSize]byte, error) {
	var act [actOneSize]byte

	ephemeral, err := btcec.NewPrivateKey()
	if err != nil {
		return act, err
	}
	m.state.localEphemeral = ephemeral

	m.state.mixHash(ephemeral.PubKey().SerializeCompressed())

	ss := ecdh(ephemeral, m.state.remoteStatic)
	tempKey := m.state.mixKey(ss)

	authPayload, err := encryptWithAD(tempKey, 0, m.state.handshakeDigest[:], nil)
	if err != nil {
		return act, err
	}
	m.state.mixHash(authPayload)

	act[0] = 0
	copy(act[1:34], ephemeral.PubKey().SerializeCompressed())
	copy(act[34:], authPayload)
	return act, nil
}

// RecvActOne processes the initiator's first message on the responder side.
func (m *Machine) RecvActOne(act [actOneSize]byte) error {
	if act[0] != 0 {
		return fmt.Errorf("unsupported handshake version %d", act[0])
	}

	ephemeral, err := btcec.ParsePubKey(act[1:34])
	if err != nil {
		return err
	}
	m.state.remoteEphemeral = ephemeral

	m.state.mixHash(ephemeral.SerializeCompressed())

	ss := ecdh(m.state.localStatic, ephemeral)
	tempKey := m.state.mixKey(ss)

	_, err = decryptWithAD(tempKey, 0, m.state.handshakeDigest[:], act[34:])
	if err != nil {
		return fmt.Errorf("act one mac mismatch: %w", err)
	}
	m.state.mixHash(act[34:])
	return nil
}

// GenActTwo produces the responder's ephemeral-key reply.
func (m *Machine) GenActTwo() ([actTwoSize]byte, error) {
	var act [actTwoSize]byte

	ephemeral, err := btcec.NewPrivateKey()
	if err != nil {
		return act, err
	}
	m.state.localEphemeral = ephemeral

	m.state.mixHash(ephemeral.PubKey().SerializeCompressed())

	ss := ecdh(ephemeral, m.state.remoteEphemeral)
	tempKey := m.state.mixKey(ss)

	authPayload, err := encryptWithAD(tempKey, 0, m.state.handshakeDigest[:], nil)
	if err != nil {
		return act, err
	}
	m.state.mixHash(authPayload)

	act[0] = 0
	copy(act[1:34], ephemeral.PubKey().SerializeCompressed())
	copy(act[34:], authPayload)
	return act, nil
}

// RecvActTwo processes the responder's ephemeral-key reply on the initiator
// side.
func (m *Machine) RecvActTwo(act [actTwoSize]byte) error {
	if act[0] != 0 {
		return fmt.Errorf("unsupported handshake version %d", act[0])
	}

	ephemeral, err := btcec.ParsePubKey(act[1:34])
	if err != nil {
		return err
	}
	m.state.remoteEphemeral = ephemeral

	m.state.mixHash(ephemeral.SerializeCompressed())

	ss := ecdh(m.state.localEphemeral, ephemeral)
	tempKey := m.state.mixKey(ss)

	_, err = decryptWithAD(tempKey, 0, m.state.handshakeDigest[:], act[34:])
	if err != nil {
		return fmt.Errorf("act two mac mismatch: %w", err)
	}
	m.state.mixHash(act[34:])
	return nil
}

// GenActThree produces the initiator's final message, which discloses its
// own static key (encrypted) and derives the send/receive cipher pair.
func (m *Machine) GenActThree() ([actThreeSize]byte, error) {
	var act [actThreeSize]byte

	ourPub := m.state.localStatic.PubKey().SerializeCompressed()
	cipherText, err := encryptWithAD(m.state.tempKey, 0, m.state.handshakeDigest[:], ourPub)
	if err != nil {
		return act, err
	}
	m.state.mixHash(cipherText)

	se := ecdh(m.state.localStatic, m.state.remoteEphemeral)
	finalKey := m.state.mixKey(se)

	authTag, err := encryptWithAD(finalKey, 0, m.state.handshakeDigest[:], nil)
	if err != nil {
		return act, err
	}

	act[0] = 0
	copy(act[1:50], cipherText)
	copy(act[50:], authTag)

	m.completeHandshake(true)
	return act, nil
}

// RecvActThree processes the initiator's final message on the responder
// side, recovering the initiator's static key and deriving the cipher
// pair.
func (m *Machine) RecvActThree(act [actThreeSize]byte) error {
	if act[0] != 0 {
		return fmt.Errorf("unsupported handshake version %d", act[0])
	}

	remoteStaticBytes, err := decryptWithAD(m.state.tempKey, 0, m.state.handshakeDigest[:], act[1:50])
	if err != nil {
		return fmt.Errorf("act three static key mac mismatch: %w", err)
	}
	remoteStatic, err := btcec.ParsePubKey(remoteStaticBytes)
	if err != nil {
		return err
	}
	m.state.remoteStatic = remoteStatic
	m.remotePub = remoteStatic
	m.state.mixHash(act[1:50])

	ss2 := ecdh(m.state.localEphemeral, remoteStatic)
	finalKey := m.state.mixKey(ss2)

	_, err = decryptWithAD(finalKey, 0, m.state.handshakeDigest[:], act[50:])
	if err != nil {
		return fmt.Errorf("act three mac mismatch: %w", err)
	}

	m.completeHandshake(false)
	return nil
}

func (m *Machine) completeHandshake(initiator bool) {
	hk := hkdfReader(m.state.chainingKey)
	var sendKey, recvKey [32]byte
	io.ReadFull(hk, sendKey[:])
	io.ReadFull(hk, recvKey[:])

	salt := m.state.chainingKey
	if initiator {
		m.sendCipher = newCipherState(sendKey, salt)
		m.recvCipher = newCipherState(recvKey, salt)
	} else {
		m.sendCipher = newCipherState(recvKey, salt)
		m.recvCipher = newCipherState(sendKey, salt)
	}

	if m.state.remoteStatic != nil {
		m.remotePub = m.state.remoteStatic
	}
}

// RemotePub returns the counterparty's static public key, available once
// the handshake has completed.
func (m *Machine) RemotePub() *btcec.PublicKey {
	return m.remotePub
}
