package lnwire

import (
	"io"
)

// Init is the very first message exchanged on a fresh connection. It
// carries the feature vectors each side supports; the orchestrator compares
// them before activating any channel.
type Init struct {
	GlobalFeatures []byte
	Features       []byte
	ExtraData      ExtraData
}

func (m *Init) MsgType() MessageType { return MsgInit }

func (m *Init) Encode(w io.Writer) error {
	if err := writeVarBytes(w, m.GlobalFeatures); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.Features); err != nil {
		return err
	}
	return m.ExtraData.encode(w)
}

func (m *Init) Decode(r io.Reader) error {
	var err error
	if m.GlobalFeatures, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	if m.Features, err = readVarBytes(r, MaxMessagePayload); err != nil {
		return err
	}
	m.ExtraData, err = decodeExtraData(r)
	return err
}

// Ping is a keep-alive sent every 30s by the orchestrator's connection
// background job.
type Ping struct {
	NumPongBytes uint16
	PaddingBytes []byte
}

func (m *Ping) MsgType() MessageType { return MsgPing }

func (m *Ping) Encode(w io.Writer) error {
	if err := writeUint16(w, m.NumPongBytes); err != nil {
		return err
	}
	return writeVarBytes(w, m.PaddingBytes)
}

func (m *Ping) Decode(r io.Reader) error {
	var err error
	if m.NumPongBytes, err = readUint16(r); err != nil {
		return err
	}
	m.PaddingBytes, err = readVarBytes(r, MaxMessagePayload)
	return err
}

// Pong answers a Ping, letting the sender measure round-trip time.
type Pong struct {
	PaddingBytes []byte
}

func (m *Pong) MsgType() MessageType { return MsgPong }

func (m *Pong) Encode(w io.Writer) error {
	return writeVarBytes(w, m.PaddingBytes)
}

func (m *Pong) Decode(r io.Reader) error {
	var err error
	m.PaddingBytes, err = readVarBytes(r, MaxMessagePayload)
	return err
}

// Error is sent when a channel-scoped protocol violation is detected. A
// zero ChannelID addresses the whole connection: Error(0, ...) is always
// a connection-level error, never routed to a specific channel.
type Error struct {
	ChanID ChannelID
	Data   []byte
}

func (m *Error) MsgType() MessageType { return MsgError }

func (m *Error) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	return writeVarBytes(w, m.Data)
}

func (m *Error) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	m.Data, err = readVarBytes(r, MaxMessagePayload)
	return err
}

func (m *Error) IsConnectionWide() bool {
	return m.ChanID == ChannelID{}
}

// Warning is a non-fatal protocol complaint; unlike Error it never forces a
// channel closed.
type Warning struct {
	ChanID ChannelID
	Data   []byte
}

func (m *Warning) MsgType() MessageType { return MsgWarning }

func (m *Warning) Encode(w io.Writer) error {
	if err := writeChanID(w, m.ChanID); err != nil {
		return err
	}
	return writeVarBytes(w, m.Data)
}

func (m *Warning) Decode(r io.Reader) error {
	var err error
	if m.ChanID, err = readChanID(r); err != nil {
		return err
	}
	m.Data, err = readVarBytes(r, MaxMessagePayload)
	return err
}
