package brontide

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Conn wraps a net.Conn with a completed Noise_XK handshake, framing every
// read/write as a 0x00-tagged, length-hidden ChaCha20-Poly1305 record.
type Conn struct {
	net.Conn
	noise *Machine
}

// Dial connects to addr and runs the initiator side of the handshake
// against the expected remote static key.
func Dial(ctx context.Context, localStatic *btcec.PrivateKey, remoteStatic *btcec.PublicKey, addr string) (*Conn, error) {
	var d net.Dialer
	rawConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	noise := NewInitiator(localStatic, remoteStatic)
	if err := doInitiatorHandshake(rawConn, noise); err != nil {
		rawConn.Close()
		return nil, err
	}

	return &Conn{Conn: rawConn, noise: noise}, nil
}

func doInitiatorHandshake(conn net.Conn, m *Machine) error {
	actOne, err := m.GenActOne()
	if err != nil {
		return err
	}
	if _, err := conn.Write(actOne[:]); err != nil {
		return err
	}

	var actTwo [actTwoSize]byte
	if _, err := readFull(conn, actTwo[:]); err != nil {
		return err
	}
	if err := m.RecvActTwo(actTwo); err != nil {
		return err
	}

	actThree, err := m.GenActThree()
	if err != nil {
		return err
	}
	_, err = conn.Write(actThree[:])
	return err
}

func doResponderHandshake(conn net.Conn, m *Machine) error {
	var actOne [actOneSize]byte
	if _, err := readFull(conn, actOne[:]); err != nil {
		return err
	}
	if err := m.RecvActOne(actOne); err != nil {
		return err
	}

	actTwo, err := m.GenActTwo()
	if err != nil {
		return err
	}
	if _, err := conn.Write(actTwo[:]); err != nil {
		return err
	}

	var actThree [actThreeSize]byte
	if _, err := readFull(conn, actThree[:]); err != nil {
		return err
	}
	return m.RecvActThree(actThree)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// RemotePub returns the counterparty's static public key.
func (c *Conn) RemotePub() *btcec.PublicKey {
	return c.noise.RemotePub()
}

// WriteMessage frames and encrypts one application-layer message.
func (c *Conn) WriteMessage(payload []byte) error {
	if len(payload) > 65535 {
		return ErrMaxMessageLengthExceeded
	}

	var lengthBytes [2]byte
	binary.BigEndian.PutUint16(lengthBytes[:], uint16(len(payload)))
	encryptedLength, err := c.noise.sendCipher.encrypt(nil, lengthBytes[:])
	if err != nil {
		return err
	}

	ciphertext, err := c.noise.sendCipher.encrypt(nil, payload)
	if err != nil {
		return err
	}

	frame := make([]byte, 0, 1+len(encryptedLength)+len(ciphertext))
	frame = append(frame, 0x00)
	frame = append(frame, encryptedLength...)
	frame = append(frame, ciphertext...)

	_, err = c.Conn.Write(frame)
	return err
}

// ReadMessage blocks until one full application-layer message has been
// decrypted from the connection.
func (c *Conn) ReadMessage() ([]byte, error) {
	var tag [1]byte
	if _, err := readFull(c.Conn, tag[:]); err != nil {
		return nil, err
	}
	if tag[0] != 0x00 {
		return nil, fmt.Errorf("unexpected frame tag %x", tag[0])
	}

	encryptedLength := make([]byte, 2+macSize)
	if _, err := readFull(c.Conn, encryptedLength); err != nil {
		return nil, err
	}
	lengthBytes, err := c.noise.recvCipher.decrypt(nil, encryptedLength)
	if err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(lengthBytes)

	ciphertext := make([]byte, int(length)+macSize)
	if _, err := readFull(c.Conn, ciphertext); err != nil {
		return nil, err
	}
	return c.noise.recvCipher.decrypt(nil, ciphertext)
}

// SetHandshakeDeadline applies a combined read/write deadline while the
// handshake acts are exchanged, matching the orchestrator's
// connectTimeout/handshakeTimeout split.
func SetHandshakeDeadline(conn net.Conn, timeout time.Duration) error {
	return conn.SetDeadline(time.Now().Add(timeout))
}

// Listener accepts inbound connections and completes the responder side of
// the handshake before handing back a usable Conn.
type Listener struct {
	net.Listener
	localStatic *btcec.PrivateKey
}

// NewListener binds addr and returns a Listener whose Accept performs the
// Noise_XK responder handshake using localStatic as the node's identity key.
func NewListener(localStatic *btcec.PrivateKey, addr string) (*Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Listener: l, localStatic: localStatic}, nil
}

// Accept blocks for the next inbound connection and completes its
// handshake before returning it.
func (l *Listener) Accept() (net.Conn, error) {
	rawConn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	noise := NewResponder(l.localStatic)
	if err := doResponderHandshake(rawConn, noise); err != nil {
		rawConn.Close()
		return nil, err
	}

	return &Conn{Conn: rawConn, noise: noise}, nil
}
