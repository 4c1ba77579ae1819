package lnwire

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// MilliSatoshi is a thousandth of a satoshi, the unit every HTLC and
// invoice amount in this module is carried in.
type MilliSatoshi uint64

// ToSatoshis rounds down to the nearest whole satoshi.
func (m MilliSatoshi) ToSatoshis() btcutil.Amount {
	return btcutil.Amount(m / 1000)
}

// ChannelID is the stable 32-byte channel identifier.
// Before the funding transaction's inputs are known a temporary id (derived
// from a local nonce) stands in for it; the real id is the xor of the
// funding outpoint's txid with its output index.
type ChannelID [32]byte

// TemporaryChannelID derives a channel id from a local nonce, used before
// the funding outpoint is known.
func TemporaryChannelID(nonce [32]byte) ChannelID {
	return ChannelID(nonce)
}

// NewChannelID computes the final channel id from a funding outpoint: the
// funding txid xored with the big-endian output index, per BOLT 2.
func NewChannelID(fundingTxid [32]byte, outputIndex uint16) ChannelID {
	var id ChannelID
	copy(id[:], fundingTxid[:])
	id[30] ^= byte(outputIndex >> 8)
	id[31] ^= byte(outputIndex)
	return id
}

func (c ChannelID) String() string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, len(c)*2)
	for _, b := range c {
		out = append(out, hexDigits[b>>4], hexDigits[b&0xf])
	}
	return string(out)
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func writeChanID(w io.Writer, id ChannelID) error {
	_, err := w.Write(id[:])
	return err
}

func readChanID(r io.Reader) (ChannelID, error) {
	var id ChannelID
	_, err := io.ReadFull(r, id[:])
	return id, err
}

func writeHash32(w io.Writer, h [32]byte) error {
	_, err := w.Write(h[:])
	return err
}

func readHash32(r io.Reader) ([32]byte, error) {
	var h [32]byte
	_, err := io.ReadFull(r, h[:])
	return h, err
}

// writeVarBytes writes a length-prefixed (uint16) byte slice.
func writeVarBytes(w io.Writer, b []byte) error {
	if err := writeUint16(w, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readVarBytes(r io.Reader, maxLen uint16) ([]byte, error) {
	l, err := readUint16(r)
	if err != nil {
		return nil, err
	}
	if l > maxLen {
		return nil, io.ErrShortBuffer
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writePubKey(w io.Writer, pub *btcec.PublicKey) error {
	_, err := w.Write(pub.SerializeCompressed())
	return err
}

func readPubKey(r io.Reader) (*btcec.PublicKey, error) {
	var buf [33]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(buf[:])
}
