// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clientproto is the wire format between the gateway and the
// external test client.
//
// The binary channel frames each message as
//
//	[1 byte type] [4 bytes payload length, big-endian] [CBOR payload]
//
// The HTTP channel carries the same payload structs as JSON. Structs
// here carry json tags only; the CBOR codec falls back to them, so a
// field has one name on both channels. Image bytes travel as a CBOR
// byte string or, in JSON, as base64.
package clientproto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/gamehub/lib/codec"
)

// MessageType identifies a client message. Values are protocol
// constants.
type MessageType byte

const (
	// Client to gateway.
	TypeClientData      MessageType = 0x01
	TypeClientRequest   MessageType = 0x02
	TypeControlRequest  MessageType = 0x03
	TypeChangeGameState MessageType = 0x04
	TypePause           MessageType = 0x05
	TypeRestore         MessageType = 0x06
	TypeRestart         MessageType = 0x07
	TypeSourceRequest   MessageType = 0x08

	// Gateway to client.
	TypeClientReply   MessageType = 0x41
	TypeControlReply  MessageType = 0x42
	TypeSourceReply   MessageType = 0x43
	TypeUIAction      MessageType = 0x44
	TypeReport        MessageType = 0x45
	TypeAgentState    MessageType = 0x46
	TypeRestartResult MessageType = 0x47
	TypeServiceState  MessageType = 0x48
	TypeTrainState    MessageType = 0x49
)

var typeNames = map[MessageType]string{
	TypeClientData:      "CLIENT_DATA",
	TypeClientRequest:   "CLIENT_REQ",
	TypeControlRequest:  "CONTROL_REQ",
	TypeChangeGameState: "CHANGE_GAME_STATE",
	TypePause:           "PAUSE",
	TypeRestore:         "RESTORE",
	TypeRestart:         "RESTART",
	TypeSourceRequest:   "SOURCE_REQ",
	TypeClientReply:     "CLIENT_REP",
	TypeControlReply:    "CONTROL_REP",
	TypeSourceReply:     "SOURCE_RES",
	TypeUIAction:        "UI_ACTION",
	TypeReport:          "REPORT",
	TypeAgentState:      "AGENT_STATE",
	TypeRestartResult:   "RESTART_RESULT",
	TypeServiceState:    "SERVICE_STATE",
	TypeTrainState:      "TRAIN_STATE",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Known reports whether t is a defined message type.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseMessageType maps a wire name such as "CLIENT_DATA" to its type.
func ParseMessageType(name string) (MessageType, error) {
	for messageType, known := range typeNames {
		if known == name {
			return messageType, nil
		}
	}
	return 0, fmt.Errorf("unknown client message type %q", name)
}

const headerLength = 5

// MaxPayloadLength bounds one message. Large enough for an
// uncompressed 4K RGBA frame.
const MaxPayloadLength = 64 * 1024 * 1024

// ErrPayloadTooLarge is returned by ReadMessage for oversized frames.
var ErrPayloadTooLarge = errors.New("clientproto: payload too large")

// Message is one framed client message.
type Message struct {
	Type    MessageType
	Payload []byte
}

// WriteMessage writes message to w as one frame.
func WriteMessage(w io.Writer, message Message) error {
	if len(message.Payload) > MaxPayloadLength {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(message.Payload))
	}
	frame := make([]byte, headerLength+len(message.Payload))
	frame[0] = byte(message.Type)
	binary.BigEndian.PutUint32(frame[1:headerLength], uint32(len(message.Payload)))
	copy(frame[headerLength:], message.Payload)
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write %s message: %w", message.Type, err)
	}
	return nil
}

// ReadMessage reads one frame from r. A clean end of stream before the
// header returns io.EOF unwrapped.
func ReadMessage(r io.Reader) (Message, error) {
	var header [headerLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, fmt.Errorf("read message header: %w", err)
	}
	messageType := MessageType(header[0])
	length := binary.BigEndian.Uint32(header[1:headerLength])
	if length > MaxPayloadLength {
		return Message{}, fmt.Errorf("%w: %s declares %d bytes", ErrPayloadTooLarge, messageType, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, fmt.Errorf("read %s payload: %w", messageType, err)
	}
	return Message{Type: messageType, Payload: payload}, nil
}

// Encode builds a message of messageType with payload CBOR-encoded.
// A nil payload produces an empty message body.
func Encode(messageType MessageType, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: messageType}, nil
	}
	data, err := codec.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s: %w", messageType, err)
	}
	return Message{Type: messageType, Payload: data}, nil
}

// Decode decodes the message body into target.
func (m Message) Decode(target any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("decoding %s: empty payload", m.Type)
	}
	if err := codec.Unmarshal(m.Payload, target); err != nil {
		return fmt.Errorf("decoding %s: %w", m.Type, err)
	}
	return nil
}
