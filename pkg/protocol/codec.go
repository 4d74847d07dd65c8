// codec.go implements serialization and deserialization of protocol
// messages.
//
// Wire Format:
//
// All messages follow this structure:
//
//	+------+--------+----------+
//	| Type | Length | Payload  |
//	| 1B   | 4B BE  | Variable |
//	+------+--------+----------+
//
// Length is big-endian uint32, not including header bytes.
//
// ClientHello Format:
//
//	+----------+--------+---------+------------+--------------+
//	| Version  | Random | Profile | PublicKey  | CipherSuites |
//	| 2B       | 32B    | 1B      | Variable   | 2B * count   |
//	+----------+--------+---------+------------+--------------+
//
// ServerHello Format:
//
//	+----------+--------+---------+------------+-------------+
//	| Version  | Random | Profile | Ciphertext | CipherSuite |
//	| 2B       | 32B    | 1B      | Variable   | 2B          |
//	+----------+--------+---------+------------+-------------+
//
// The Profile byte determines the PublicKey and Ciphertext lengths, so
// the decoder reads it before slicing the key material.
package protocol

import (
	"encoding/binary"
	"io"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
)

// Codec provides message serialization and deserialization.
type Codec struct{}

// NewCodec creates a new protocol codec.
func NewCodec() *Codec {
	return &Codec{}
}

// EncodeClientHello serializes a ClientHello message.
func (c *Codec) EncodeClientHello(m *ClientHello) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	payloadSize := 2 + // version
		32 + // random
		1 + // profile
		len(m.PublicKey) + // public key (profile-sized)
		2 + 2*len(m.CipherSuites) // cipher suites count + data

	buf := make([]byte, HeaderSize+payloadSize)
	offset := 0

	buf[offset] = byte(MessageTypeClientHello)
	offset++
	binary.BigEndian.PutUint32(buf[offset:], uint32(payloadSize))
	offset += 4

	buf[offset] = m.Version.Major
	buf[offset+1] = m.Version.Minor
	offset += 2

	copy(buf[offset:], m.Random)
	offset += 32

	buf[offset] = byte(m.Profile)
	offset++

	copy(buf[offset:], m.PublicKey)
	offset += len(m.PublicKey)

	binary.BigEndian.PutUint16(buf[offset:], uint16(len(m.CipherSuites)))
	offset += 2
	for _, cs := range m.CipherSuites {
		binary.BigEndian.PutUint16(buf[offset:], uint16(cs))
		offset += 2
	}

	return buf, nil
}

// DecodeClientHello deserializes a ClientHello message.
func (c *Codec) DecodeClientHello(data []byte) (*ClientHello, error) {
	payload, err := c.payload(data, MessageTypeClientHello)
	if err != nil {
		return nil, err
	}

	// Fixed prefix: version(2) + random(32) + profile(1)
	if len(payload) < 35 {
		return nil, aerrors.ErrInvalidMessage
	}

	m := &ClientHello{}
	offset := 0

	m.Version = Version{Major: payload[offset], Minor: payload[offset+1]}
	offset += 2

	m.Random = make([]byte, 32)
	copy(m.Random, payload[offset:offset+32])
	offset += 32

	m.Profile = constants.KEMProfile(payload[offset])
	offset++
	if !m.Profile.IsSupported() {
		return nil, aerrors.ErrUnsupportedProfile
	}

	pkSize := m.Profile.PublicKeySize()
	if len(payload) < offset+pkSize+2 {
		return nil, aerrors.ErrInvalidMessage
	}
	m.PublicKey = make([]byte, pkSize)
	copy(m.PublicKey, payload[offset:offset+pkSize])
	offset += pkSize

	suiteCount := int(binary.BigEndian.Uint16(payload[offset:]))
	offset += 2
	if len(payload) < offset+2*suiteCount {
		return nil, aerrors.ErrInvalidMessage
	}
	m.CipherSuites = make([]constants.CipherSuite, suiteCount)
	for i := range m.CipherSuites {
		m.CipherSuites[i] = constants.CipherSuite(binary.BigEndian.Uint16(payload[offset:]))
		offset += 2
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeServerHello serializes a ServerHello message.
func (c *Codec) EncodeServerHello(m *ServerHello) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	payloadSize := 2 + // version
		32 + // random
		1 + // profile
		len(m.Ciphertext) + // KEM ciphertext (profile-sized)
		2 // cipher suite

	buf := make([]byte, HeaderSize+payloadSize)
	offset := 0

	buf[offset] = byte(MessageTypeServerHello)
	offset++
	binary.BigEndian.PutUint32(buf[offset:], uint32(payloadSize))
	offset += 4

	buf[offset] = m.Version.Major
	buf[offset+1] = m.Version.Minor
	offset += 2

	copy(buf[offset:], m.Random)
	offset += 32

	buf[offset] = byte(m.Profile)
	offset++

	copy(buf[offset:], m.Ciphertext)
	offset += len(m.Ciphertext)

	binary.BigEndian.PutUint16(buf[offset:], uint16(m.CipherSuite))

	return buf, nil
}

// DecodeServerHello deserializes a ServerHello message.
func (c *Codec) DecodeServerHello(data []byte) (*ServerHello, error) {
	payload, err := c.payload(data, MessageTypeServerHello)
	if err != nil {
		return nil, err
	}

	if len(payload) < 35 {
		return nil, aerrors.ErrInvalidMessage
	}

	m := &ServerHello{}
	offset := 0

	m.Version = Version{Major: payload[offset], Minor: payload[offset+1]}
	offset += 2

	m.Random = make([]byte, 32)
	copy(m.Random, payload[offset:offset+32])
	offset += 32

	m.Profile = constants.KEMProfile(payload[offset])
	offset++
	if !m.Profile.IsSupported() {
		return nil, aerrors.ErrUnsupportedProfile
	}

	ctSize := m.Profile.CiphertextSize()
	if len(payload) < offset+ctSize+2 {
		return nil, aerrors.ErrInvalidMessage
	}
	m.Ciphertext = make([]byte, ctSize)
	copy(m.Ciphertext, payload[offset:offset+ctSize])
	offset += ctSize

	m.CipherSuite = constants.CipherSuite(binary.BigEndian.Uint16(payload[offset:]))

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeFinished serializes a Finished message (client or server).
func (c *Codec) EncodeFinished(msgType MessageType, verifyData []byte) ([]byte, error) {
	if msgType != MessageTypeClientFinished && msgType != MessageTypeServerFinished {
		return nil, aerrors.ErrInvalidMessage
	}
	if len(verifyData) != constants.KDFOutputSize {
		return nil, aerrors.ErrInvalidMessage
	}

	buf := make([]byte, HeaderSize+constants.KDFOutputSize)
	buf[0] = byte(msgType)
	binary.BigEndian.PutUint32(buf[1:], uint32(constants.KDFOutputSize))
	copy(buf[HeaderSize:], verifyData)

	return buf, nil
}

// DecodeFinished deserializes a Finished message and returns its
// verify-data.
func (c *Codec) DecodeFinished(data []byte) ([]byte, error) {
	if len(data) < HeaderSize+constants.KDFOutputSize {
		return nil, aerrors.ErrInvalidMessage
	}

	msgType := MessageType(data[0])
	if msgType != MessageTypeClientFinished && msgType != MessageTypeServerFinished {
		return nil, aerrors.ErrInvalidMessage
	}

	verifyData := make([]byte, constants.KDFOutputSize)
	copy(verifyData, data[HeaderSize:HeaderSize+constants.KDFOutputSize])
	return verifyData, nil
}

// EncodeData serializes a data message. The returned frame is pooled;
// hand it back with PutFrame after writing it out.
func (c *Codec) EncodeData(seq uint64, payload []byte) ([]byte, error) {
	if len(payload) > constants.MaxPayloadSize {
		return nil, aerrors.ErrMessageTooLarge
	}

	payloadSize := 8 + len(payload)
	buf := GetFrame(HeaderSize + payloadSize)

	buf[0] = byte(MessageTypeData)
	binary.BigEndian.PutUint32(buf[1:], uint32(payloadSize))
	binary.BigEndian.PutUint64(buf[HeaderSize:], seq)
	copy(buf[HeaderSize+8:], payload)

	return buf, nil
}

// DecodeData deserializes a data message.
func (c *Codec) DecodeData(data []byte) (uint64, []byte, error) {
	if len(data) < HeaderSize+8 {
		return 0, nil, aerrors.ErrInvalidMessage
	}
	if MessageType(data[0]) != MessageTypeData {
		return 0, nil, aerrors.ErrInvalidMessage
	}

	seq := binary.BigEndian.Uint64(data[HeaderSize:])
	payload := data[HeaderSize+8:]
	return seq, payload, nil
}

// EncodePing serializes a keepalive request carrying an opaque token.
func (c *Codec) EncodePing(token []byte) []byte {
	return c.encodeControl(MessageTypePing, token)
}

// EncodePong serializes a keepalive response echoing the ping token.
func (c *Codec) EncodePong(token []byte) []byte {
	return c.encodeControl(MessageTypePong, token)
}

// DecodePingPong deserializes a Ping or Pong message and returns its
// token.
func (c *Codec) DecodePingPong(data []byte) (MessageType, []byte, error) {
	if len(data) < HeaderSize {
		return 0, nil, aerrors.ErrInvalidMessage
	}
	msgType := MessageType(data[0])
	if msgType != MessageTypePing && msgType != MessageTypePong {
		return 0, nil, aerrors.ErrInvalidMessage
	}
	token := make([]byte, len(data)-HeaderSize)
	copy(token, data[HeaderSize:])
	return msgType, token, nil
}

// EncodeClose serializes a graceful close message.
func (c *Codec) EncodeClose() []byte {
	return c.encodeControl(MessageTypeClose, nil)
}

func (c *Codec) encodeControl(msgType MessageType, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = byte(msgType)
	binary.BigEndian.PutUint32(buf[1:], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// EncodeAlert serializes an alert message.
func (c *Codec) EncodeAlert(level AlertLevel, code AlertCode, description string) []byte {
	// Description length is stored in a single byte (max 255)
	if len(description) > 255 {
		description = description[:255]
	}

	payloadSize := 1 + 1 + 1 + len(description)
	buf := make([]byte, HeaderSize+payloadSize)

	buf[0] = byte(MessageTypeAlert)
	binary.BigEndian.PutUint32(buf[1:], uint32(payloadSize))
	buf[HeaderSize] = byte(level)
	buf[HeaderSize+1] = byte(code)
	buf[HeaderSize+2] = byte(len(description))
	copy(buf[HeaderSize+3:], description)

	return buf
}

// DecodeAlert deserializes an alert message.
func (c *Codec) DecodeAlert(data []byte) (AlertLevel, AlertCode, string, error) {
	if len(data) < HeaderSize+3 {
		return 0, 0, "", aerrors.ErrInvalidMessage
	}
	if MessageType(data[0]) != MessageTypeAlert {
		return 0, 0, "", aerrors.ErrInvalidMessage
	}

	level := AlertLevel(data[HeaderSize])
	code := AlertCode(data[HeaderSize+1])
	descLen := int(data[HeaderSize+2])

	if len(data) < HeaderSize+3+descLen {
		return 0, 0, "", aerrors.ErrInvalidMessage
	}

	return level, code, string(data[HeaderSize+3 : HeaderSize+3+descLen]), nil
}

// ReadMessage reads a complete framed message from the reader. The
// returned buffer is pooled; hand it back with PutFrame once decoded.
func (c *Codec) ReadMessage(r io.Reader) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	payloadLen := binary.BigEndian.Uint32(header[1:5])
	if payloadLen > MaxMessageSize {
		return nil, aerrors.ErrMessageTooLarge
	}

	msg := GetFrame(HeaderSize + int(payloadLen))
	copy(msg, header[:])

	if payloadLen > 0 {
		if _, err := io.ReadFull(r, msg[HeaderSize:]); err != nil {
			PutFrame(msg)
			return nil, err
		}
	}

	return msg, nil
}

// GetMessageType returns the type of a serialized message.
func (c *Codec) GetMessageType(data []byte) (MessageType, error) {
	if len(data) < 1 {
		return 0, aerrors.ErrInvalidMessage
	}
	return MessageType(data[0]), nil
}

// payload verifies the header and returns the message payload.
func (c *Codec) payload(data []byte, want MessageType) ([]byte, error) {
	if len(data) < HeaderSize {
		return nil, aerrors.ErrInvalidMessage
	}
	if MessageType(data[0]) != want {
		return nil, aerrors.ErrInvalidMessage
	}
	payloadLen := binary.BigEndian.Uint32(data[1:5])
	if payloadLen > MaxMessageSize || len(data) < HeaderSize+int(payloadLen) {
		return nil, aerrors.ErrInvalidMessage
	}
	return data[HeaderSize : HeaderSize+payloadLen], nil
}
