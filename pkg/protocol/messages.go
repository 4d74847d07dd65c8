// messages.go defines the protocol message types for the asconlink
// handshake.
//
// Message flow:
//
//	Client                                 Server
//	    |                                      |
//	    | -------- ClientHello --------------> |
//	    |                                      |
//	    | <------- ServerHello --------------- |
//	    |                                      |
//	    | -------- ClientFinished -----------> |
//	    |                                      |
//	    | <------- ServerFinished ------------ |
//	    |                                      |
//	    |     === Link Established ===         |
//
// The client offers a KEM profile and cipher suites in ClientHello; the
// server encapsulates against the client's A-KEM public key and selects
// the suite in ServerHello. All messages carry a 1-byte type and 4-byte
// big-endian length header.
package protocol

import (
	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
)

// MessageType identifies the type of protocol message.
type MessageType uint8

// Protocol message types for handshake, link, and error signaling.
const (
	// MessageTypeClientHello initiates the handshake from the client.
	MessageTypeClientHello MessageType = 0x01
	// MessageTypeServerHello responds to ClientHello with the KEM ciphertext.
	MessageTypeServerHello MessageType = 0x02
	// MessageTypeClientFinished confirms handshake completion from the client.
	MessageTypeClientFinished MessageType = 0x03
	// MessageTypeServerFinished confirms handshake completion from the server.
	MessageTypeServerFinished MessageType = 0x04

	// MessageTypeData carries encrypted application data.
	MessageTypeData MessageType = 0x10
	// MessageTypePing requests a keepalive response.
	MessageTypePing MessageType = 0x12
	// MessageTypePong responds to a Ping.
	MessageTypePong MessageType = 0x13
	// MessageTypeClose signals graceful connection termination.
	MessageTypeClose MessageType = 0x14

	// MessageTypeAlert signals an error condition.
	MessageTypeAlert MessageType = 0xF0
)

// String returns a human-readable name for the message type.
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeClientHello:
		return "ClientHello"
	case MessageTypeServerHello:
		return "ServerHello"
	case MessageTypeClientFinished:
		return "ClientFinished"
	case MessageTypeServerFinished:
		return "ServerFinished"
	case MessageTypeData:
		return "Data"
	case MessageTypePing:
		return "Ping"
	case MessageTypePong:
		return "Pong"
	case MessageTypeClose:
		return "Close"
	case MessageTypeAlert:
		return "Alert"
	default:
		return "Unknown"
	}
}

// AlertCode identifies specific error conditions.
type AlertCode uint8

// Alert codes identifying specific error conditions.
const (
	// AlertCodeUnexpectedMessage indicates an unexpected message was received.
	AlertCodeUnexpectedMessage AlertCode = 0x01
	// AlertCodeBadCiphertext indicates ciphertext validation failed.
	AlertCodeBadCiphertext AlertCode = 0x02
	// AlertCodeHandshakeFailure indicates the handshake could not complete.
	AlertCodeHandshakeFailure AlertCode = 0x03
	// AlertCodeUnsupportedVersion indicates no common protocol version.
	AlertCodeUnsupportedVersion AlertCode = 0x04
	// AlertCodeUnsupportedCipher indicates no common cipher suite.
	AlertCodeUnsupportedCipher AlertCode = 0x05
	// AlertCodeUnsupportedProfile indicates no common KEM profile.
	AlertCodeUnsupportedProfile AlertCode = 0x06
	// AlertCodeDecryptionFailed indicates decryption or MAC verification failed.
	AlertCodeDecryptionFailed AlertCode = 0x07
	// AlertCodeInternalError indicates an internal implementation error.
	AlertCodeInternalError AlertCode = 0x08
	// AlertCodeCloseNotify indicates graceful connection closure.
	AlertCodeCloseNotify AlertCode = 0x09
)

// ClientHello is sent by the client to begin the handshake.
type ClientHello struct {
	// Protocol version offered by the client
	Version Version

	// Random nonce for freshness (32 bytes)
	Random []byte

	// Profile selects the ML-KEM parameter set; the public key length
	// must match it
	Profile constants.KEMProfile

	// Client's A-KEM public key (800 bytes for ML-KEM-512, 1184 for
	// ML-KEM-768)
	PublicKey []byte

	// Supported cipher suites in preference order
	CipherSuites []constants.CipherSuite
}

// ServerHello is sent by the server in response to ClientHello.
type ServerHello struct {
	// Protocol version selected by the server
	Version Version

	// Random nonce for freshness (32 bytes)
	Random []byte

	// Profile echoes the accepted KEM profile
	Profile constants.KEMProfile

	// A-KEM ciphertext (768 bytes for ML-KEM-512, 1088 for ML-KEM-768)
	Ciphertext []byte

	// Selected cipher suite
	CipherSuite constants.CipherSuite
}

// Finished confirms the handshake from either side. The message is
// encrypted with the handshake keys.
type Finished struct {
	// VerifyData is a MAC over the handshake transcript
	VerifyData []byte
}

// DataMessage carries encrypted application data.
type DataMessage struct {
	// Sequence number for replay protection (8 bytes)
	Sequence uint64

	// Encrypted payload
	Payload []byte
}

// AlertLevel indicates the severity of the alert.
type AlertLevel uint8

// Alert severity levels.
const (
	// AlertLevelWarning indicates a non-fatal condition that may be recoverable.
	AlertLevelWarning AlertLevel = 0x01
	// AlertLevelFatal indicates an unrecoverable error requiring connection termination.
	AlertLevelFatal AlertLevel = 0x02
)

// AlertMessage signals an error condition or connection closure.
type AlertMessage struct {
	// Level of the alert (Warning or Fatal)
	Level AlertLevel

	// Alert code identifying the specific condition
	Code AlertCode

	// Optional description (max 255 bytes)
	Description string
}

// Validate checks if the AlertMessage is valid.
func (m *AlertMessage) Validate() error {
	if m.Level != AlertLevelWarning && m.Level != AlertLevelFatal {
		return aerrors.ErrInvalidMessage
	}
	if len(m.Description) > 255 {
		return aerrors.ErrInvalidMessage
	}
	return nil
}

// Validate checks if the ClientHello message is valid.
func (m *ClientHello) Validate() error {
	if !m.Version.IsCompatible(Current) {
		return aerrors.ErrUnsupportedVersion
	}
	if len(m.Random) != 32 {
		return aerrors.ErrInvalidMessage
	}
	if !m.Profile.IsSupported() {
		return aerrors.ErrUnsupportedProfile
	}
	if len(m.PublicKey) != m.Profile.PublicKeySize() {
		return aerrors.ErrInvalidKeySize
	}
	if len(m.CipherSuites) == 0 {
		return aerrors.ErrInvalidMessage
	}
	for _, cs := range m.CipherSuites {
		if !cs.IsSupported() {
			return aerrors.ErrUnsupportedSuite
		}
	}
	return nil
}

// Validate checks if the ServerHello message is valid.
func (m *ServerHello) Validate() error {
	if !m.Version.IsCompatible(Current) {
		return aerrors.ErrUnsupportedVersion
	}
	if len(m.Random) != 32 {
		return aerrors.ErrInvalidMessage
	}
	if !m.Profile.IsSupported() {
		return aerrors.ErrUnsupportedProfile
	}
	if len(m.Ciphertext) != m.Profile.CiphertextSize() {
		return aerrors.ErrInvalidCiphertext
	}
	if !m.CipherSuite.IsSupported() {
		return aerrors.ErrUnsupportedSuite
	}
	return nil
}

// Validate checks if the Finished message is valid.
func (m *Finished) Validate() error {
	if len(m.VerifyData) != constants.KDFOutputSize {
		return aerrors.ErrInvalidMessage
	}
	return nil
}

// HeaderSize is the size of the message header (type + length).
const HeaderSize = 5 // 1 byte type + 4 bytes length

// MaxMessageSize is the maximum size of a protocol message.
const MaxMessageSize = constants.MaxMessageSize
