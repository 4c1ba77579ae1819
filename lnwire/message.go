// Package lnwire implements the wire messages exchanged with the single
// trampoline peer, including the dual-funding, splicing, and mobile-specific
// extensions layered on top of the base Lightning protocol.
package lnwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxMessagePayload is the maximum bytes a message can be, regardless of the
// limit imposed by any individual message type.
const MaxMessagePayload = 65535

// MessageType is the two-byte big-endian type prefix carried by every wire
// message.
type MessageType uint16

// The full set of message types understood by this node. Unknown types are
// not an error: ReadMessage surfaces them as *UnknownMessage so callers can
// log and drop per BOLT 1 forwards-compatibility rules.
const (
	MsgInit          MessageType = 16
	MsgError         MessageType = 17
	MsgWarning       MessageType = 1
	MsgPing          MessageType = 18
	MsgPong          MessageType = 19

	MsgOpenChannel2    MessageType = 64
	MsgAcceptChannel2  MessageType = 65
	MsgTxAddInput      MessageType = 66
	MsgTxAddOutput     MessageType = 67
	MsgTxRemoveInput   MessageType = 68
	MsgTxRemoveOutput  MessageType = 69
	MsgTxComplete      MessageType = 70
	MsgTxSignatures    MessageType = 71
	MsgTxInitRbf       MessageType = 72
	MsgTxAckRbf        MessageType = 73
	MsgTxAbort         MessageType = 74

	MsgChannelReady MessageType = 36
	MsgShutdown     MessageType = 38
	MsgClosingSigned MessageType = 39

	MsgUpdateAddHTLC     MessageType = 128
	MsgUpdateFulfillHTLC MessageType = 130
	MsgUpdateFailHTLC    MessageType = 131
	MsgCommitmentSigned  MessageType = 132
	MsgRevokeAndAck      MessageType = 133
	MsgUpdateFee         MessageType = 134
	MsgUpdateFailMalformedHTLC MessageType = 135
	MsgChannelReestablish      MessageType = 136

	MsgSpliceInit   MessageType = 80
	MsgSpliceAck    MessageType = 81
	MsgSpliceLocked MessageType = 82

	MsgChannelUpdate MessageType = 258

	// Mobile / trampoline extensions. These type codes live in the
	// experimental range used by the corpus this node is modeled on.
	MsgPleaseOpenChannel      MessageType = 35023
	MsgPayToOpenRequest       MessageType = 35025
	MsgPayToOpenResponse      MessageType = 35027
	MsgPhoenixAndroidLegacyInfo MessageType = 35029
	MsgFCMToken               MessageType = 35031
	MsgUnsetFCMToken          MessageType = 35033
	MsgOnionMessage           MessageType = 513
)

// UnknownMessage is returned by ReadMessage when the type prefix does not
// correspond to any message this node understands. Per BOLT 1, unknown even
// types are protocol errors and unknown odd types are ignored; the caller
// decides which applies based on msgType.IsOdd().
type UnknownMessage struct {
	msgType MessageType
}

func (u *UnknownMessage) Error() string {
	return fmt.Sprintf("unable to parse message of unknown type: %v", u.msgType)
}

// IsOdd reports whether the message type is in the "it's okay to be odd"
// range of BOLT 1, meaning unrecognized instances may be silently ignored.
func (m MessageType) IsOdd() bool {
	return m%2 == 1
}

// Message is the interface implemented by every wire message. Encoding is
// length-prefixed and TLV-extensible; unknown even TLV types are errors,
// unknown odd TLV types are ignored, matching the base message-type rule.
type Message interface {
	Decode(r io.Reader) error
	Encode(w io.Writer) error
	MsgType() MessageType
}

func makeEmptyMessage(msgType MessageType) (Message, error) {
	switch msgType {
	case MsgInit:
		return &Init{}, nil
	case MsgError:
		return &Error{}, nil
	case MsgWarning:
		return &Warning{}, nil
	case MsgPing:
		return &Ping{}, nil
	case MsgPong:
		return &Pong{}, nil
	case MsgOpenChannel2:
		return &OpenChannel2{}, nil
	case MsgAcceptChannel2:
		return &AcceptChannel2{}, nil
	case MsgTxAddInput:
		return &TxAddInput{}, nil
	case MsgTxAddOutput:
		return &TxAddOutput{}, nil
	case MsgTxRemoveInput:
		return &TxRemoveInput{}, nil
	case MsgTxRemoveOutput:
		return &TxRemoveOutput{}, nil
	case MsgTxComplete:
		return &TxComplete{}, nil
	case MsgTxSignatures:
		return &TxSignatures{}, nil
	case MsgTxAbort:
		return &TxAbort{}, nil
	case MsgChannelReady:
		return &ChannelReady{}, nil
	case MsgShutdown:
		return &Shutdown{}, nil
	case MsgClosingSigned:
		return &ClosingSigned{}, nil
	case MsgUpdateAddHTLC:
		return &UpdateAddHTLC{}, nil
	case MsgUpdateFulfillHTLC:
		return &UpdateFulfillHTLC{}, nil
	case MsgUpdateFailHTLC:
		return &UpdateFailHTLC{}, nil
	case MsgUpdateFailMalformedHTLC:
		return &UpdateFailMalformedHTLC{}, nil
	case MsgCommitmentSigned:
		return &CommitmentSigned{}, nil
	case MsgRevokeAndAck:
		return &RevokeAndAck{}, nil
	case MsgUpdateFee:
		return &UpdateFee{}, nil
	case MsgChannelReestablish:
		return &ChannelReestablish{}, nil
	case MsgSpliceInit:
		return &SpliceInit{}, nil
	case MsgSpliceAck:
		return &SpliceAck{}, nil
	case MsgSpliceLocked:
		return &SpliceLocked{}, nil
	case MsgChannelUpdate:
		return &ChannelUpdate{}, nil
	case MsgPleaseOpenChannel:
		return &PleaseOpenChannel{}, nil
	case MsgPayToOpenRequest:
		return &PayToOpenRequest{}, nil
	case MsgPayToOpenResponse:
		return &PayToOpenResponse{}, nil
	case MsgOnionMessage:
		return &OnionMessage{}, nil
	default:
		return nil, &UnknownMessage{msgType}
	}
}

// WriteMessage serializes msg with its two-byte type prefix onto w.
func WriteMessage(w io.Writer, msg Message) (int, error) {
	var typeBuf [2]byte
	binary.BigEndian.PutUint16(typeBuf[:], uint16(msg.MsgType()))

	n, err := w.Write(typeBuf[:])
	if err != nil {
		return n, err
	}

	cw := &countingWriter{w: w}
	if err := msg.Encode(cw); err != nil {
		return n, err
	}

	return n + cw.n, nil
}

// ReadMessage reads the next message from r, including unknown ones, which
// are returned as a nil Message alongside an *UnknownMessage error so the
// caller can decide to drop or disconnect.
func ReadMessage(r io.Reader) (Message, error) {
	var typeBuf [2]byte
	if _, err := io.ReadFull(r, typeBuf[:]); err != nil {
		return nil, err
	}
	msgType := MessageType(binary.BigEndian.Uint16(typeBuf[:]))

	msg, err := makeEmptyMessage(msgType)
	if err != nil {
		return nil, err
	}

	if err := msg.Decode(r); err != nil {
		return nil, err
	}

	return msg, nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
