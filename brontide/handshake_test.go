package brontide

import (
	"net"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"
)

func doHandshake(t *testing.T, initiator, responder *Machine) {
	t.Helper()

	actOne, err := initiator.GenActOne()
	require.NoError(t, err)
	require.NoError(t, responder.RecvActOne(actOne))

	actTwo, err := responder.GenActTwo()
	require.NoError(t, err)
	require.NoError(t, initiator.RecvActTwo(actTwo))

	actThree, err := initiator.GenActThree()
	require.NoError(t, err)
	require.NoError(t, responder.RecvActThree(actThree))
}

func TestHandshakeDerivesMatchingCipherStates(t *testing.T) {
	initiatorStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	responderStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	initiator := NewInitiator(initiatorStatic, responderStatic.PubKey())
	responder := NewResponder(responderStatic)

	doHandshake(t, initiator, responder)

	require.True(t, initiator.RemotePub().IsEqual(responderStatic.PubKey()))
	require.True(t, responder.RemotePub().IsEqual(initiatorStatic.PubKey()))

	// The initiator's send key must equal the responder's receive key,
	// and vice versa, since they're derived from the same chaining key.
	require.Equal(t, initiator.sendCipher.key, responder.recvCipher.key)
	require.Equal(t, initiator.recvCipher.key, responder.sendCipher.key)
}

func TestHandshakeRejectsWrongRemoteStatic(t *testing.T) {
	initiatorStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	responderStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	wrongStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	initiator := NewInitiator(initiatorStatic, wrongStatic.PubKey())
	responder := NewResponder(responderStatic)

	actOne, err := initiator.GenActOne()
	require.NoError(t, err)
	require.Error(t, responder.RecvActOne(actOne))
}

func TestFramedReadWriteRoundTrip(t *testing.T) {
	initiatorStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	responderStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	initiator := NewInitiator(initiatorStatic, responderStatic.PubKey())
	responder := NewResponder(responderStatic)
	doHandshake(t, initiator, responder)

	clientRaw, serverRaw := net.Pipe()
	defer clientRaw.Close()
	defer serverRaw.Close()

	clientConn := &Conn{Conn: clientRaw, noise: initiator}
	serverConn := &Conn{Conn: serverRaw, noise: responder}

	msg := []byte("tx_complete")
	errCh := make(chan error, 1)
	go func() { errCh <- clientConn.WriteMessage(msg) }()

	got, err := serverConn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, msg, got)
}

func TestFramedReadWriteRejectsTamperedFrame(t *testing.T) {
	initiatorStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	responderStatic, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	initiator := NewInitiator(initiatorStatic, responderStatic.PubKey())
	responder := NewResponder(responderStatic)
	doHandshake(t, initiator, responder)

	// Encrypt without ever sending, flip one ciphertext byte, and check
	// that the receiving cipher's authentication tag check rejects it.
	ciphertext, err := initiator.sendCipher.encrypt(nil, []byte("ping"))
	require.NoError(t, err)
	ciphertext[0] ^= 0xff

	_, err = responder.recvCipher.decrypt(nil, ciphertext)
	require.Error(t, err)
}
