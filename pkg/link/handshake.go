package link

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/akem"
	"github.com/lightpq/asconlink/pkg/crypto"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// Handshake manages the four-flight handshake:
//
//	ClientHello    -> version, random, KEM profile, ephemeral public key
//	ServerHello    <- version, random, profile, A-KEM ciphertext, suite
//	ClientFinished -> encrypted verify data (client label)
//	ServerFinished <- encrypted verify data (server label)
//
// Both Finished flights are encrypted under handshake keys derived from
// the A-KEM shared secret and the running transcript hash, so a
// tampered hello on either side aborts the handshake.
type Handshake struct {
	session *Session
	conn    net.Conn
	codec   *protocol.Codec

	// Running Ascon-Hash256 over every handshake message
	transcript *crypto.TranscriptHash

	// A-KEM shared secret, zeroized when the handshake completes
	sharedSecret []byte

	// Handshake encryption keys for the Finished flights
	handshakeKeys *crypto.HandshakeKeys

	clientRandom [32]byte
	serverRandom [32]byte
}

// NewHandshake creates a new handshake instance for the session.
func NewHandshake(session *Session, conn net.Conn) *Handshake {
	return &Handshake{
		session:    session,
		conn:       conn,
		codec:      protocol.NewCodec(),
		transcript: crypto.NewTranscriptHash(),
	}
}

// InitiatorHandshake performs the client side of the handshake.
func InitiatorHandshake(ctx context.Context, session *Session, conn net.Conn) error {
	h := NewHandshake(session, conn)

	var done func(error)
	if session.observer != nil {
		ctx, done = session.observer.OnHandshakeStart(ctx, RoleClient)
	}

	err := h.runClient(ctx)

	if done != nil {
		done(err)
	}
	h.cleanup()
	return err
}

// ResponderHandshake performs the server side of the handshake.
func ResponderHandshake(ctx context.Context, session *Session, conn net.Conn) error {
	h := NewHandshake(session, conn)

	var done func(error)
	if session.observer != nil {
		ctx, done = session.observer.OnHandshakeStart(ctx, RoleServer)
	}

	err := h.runServer(ctx)

	if done != nil {
		done(err)
	}
	h.cleanup()
	return err
}

func (h *Handshake) runClient(ctx context.Context) error {
	h.session.SetState(SessionStateHandshaking)

	if err := h.sendClientHello(); err != nil {
		return aerrors.NewProtocolError("client_hello", err)
	}
	if err := h.checkContext(ctx); err != nil {
		return err
	}

	serverHello, err := h.receiveServerHello()
	if err != nil {
		return aerrors.NewProtocolError("server_hello", err)
	}
	if err := h.checkContext(ctx); err != nil {
		return err
	}

	// Decapsulate the shared secret. A malformed ciphertext of the
	// right length yields a different secret, not an error; the
	// Finished exchange is what detects the mismatch.
	h.sharedSecret, err = akem.Decapsulate(h.session.LocalKeyPair, serverHello.Ciphertext)
	if err != nil {
		return aerrors.NewProtocolError("decapsulate", err)
	}

	if err := h.deriveHandshakeKeys(serverHello.CipherSuite); err != nil {
		return aerrors.NewProtocolError("key_derivation", err)
	}

	if err := h.sendClientFinished(); err != nil {
		return aerrors.NewProtocolError("client_finished", err)
	}

	if err := h.receiveServerFinished(); err != nil {
		return aerrors.NewProtocolError("server_finished", err)
	}

	return h.finalize(serverHello.CipherSuite)
}

func (h *Handshake) runServer(ctx context.Context) error {
	h.session.SetState(SessionStateHandshaking)

	clientHello, err := h.receiveClientHello()
	if err != nil {
		return aerrors.NewProtocolError("client_hello", err)
	}
	if err := h.checkContext(ctx); err != nil {
		return err
	}

	suite, err := selectCipherSuite(h.localSuites(), clientHello.CipherSuites)
	if err != nil {
		h.sendAlert(protocol.AlertLevelFatal, protocol.AlertCodeUnsupportedCipher, "no common cipher suite")
		return aerrors.NewProtocolError("cipher_selection", err)
	}

	ciphertext, err := h.encapsulate()
	if err != nil {
		return aerrors.NewProtocolError("encapsulate", err)
	}

	if err := h.sendServerHello(ciphertext, suite); err != nil {
		return aerrors.NewProtocolError("server_hello", err)
	}
	if err := h.checkContext(ctx); err != nil {
		return err
	}

	if err := h.deriveHandshakeKeys(suite); err != nil {
		return aerrors.NewProtocolError("key_derivation", err)
	}

	if err := h.receiveClientFinished(); err != nil {
		h.sendAlert(protocol.AlertLevelFatal, protocol.AlertCodeHandshakeFailure, "finished verification failed")
		return aerrors.NewProtocolError("client_finished", err)
	}

	if err := h.sendServerFinished(); err != nil {
		return aerrors.NewProtocolError("server_finished", err)
	}

	return h.finalize(suite)
}

func (h *Handshake) sendClientHello() error {
	if err := crypto.SecureRandom(h.clientRandom[:]); err != nil {
		return err
	}

	hello := &protocol.ClientHello{
		Version:      protocol.Current,
		Random:       h.clientRandom[:],
		Profile:      h.session.Profile,
		PublicKey:    h.session.LocalKeyPair.PublicKey().Bytes(),
		CipherSuites: h.localSuites(),
	}

	data, err := h.codec.EncodeClientHello(hello)
	if err != nil {
		return err
	}

	h.transcript.Update(data)
	_, err = h.conn.Write(data)
	return err
}

func (h *Handshake) receiveClientHello() (*protocol.ClientHello, error) {
	data, err := h.codec.ReadMessage(h.conn)
	if err != nil {
		return nil, err
	}
	// DecodeClientHello copies every field out of the frame.
	defer protocol.PutFrame(data)

	hello, err := h.codec.DecodeClientHello(data)
	if err != nil {
		return nil, err
	}

	// The KEM profile is fixed per endpoint; a hello for any other
	// parameter set is rejected rather than adopted.
	if hello.Profile != h.session.Profile {
		h.sendAlert(protocol.AlertLevelFatal, protocol.AlertCodeUnsupportedProfile, "KEM profile mismatch")
		return nil, aerrors.ErrUnsupportedProfile
	}

	remoteKey, err := akem.ParsePublicKey(hello.Profile, hello.PublicKey)
	if err != nil {
		return nil, err
	}

	h.transcript.Update(data)
	copy(h.clientRandom[:], hello.Random)
	h.session.RemotePublicKey = remoteKey
	h.session.Version = hello.Version

	return hello, nil
}

func (h *Handshake) encapsulate() ([]byte, error) {
	ciphertext, secret, err := akem.Encapsulate(h.session.RemotePublicKey)
	if err != nil {
		return nil, err
	}
	h.sharedSecret = secret
	return ciphertext, nil
}

func (h *Handshake) sendServerHello(ciphertext []byte, suite constants.CipherSuite) error {
	if err := crypto.SecureRandom(h.serverRandom[:]); err != nil {
		return err
	}

	hello := &protocol.ServerHello{
		Version:     protocol.Current,
		Random:      h.serverRandom[:],
		Profile:     h.session.Profile,
		Ciphertext:  ciphertext,
		CipherSuite: suite,
	}

	data, err := h.codec.EncodeServerHello(hello)
	if err != nil {
		return err
	}

	h.transcript.Update(data)
	_, err = h.conn.Write(data)
	return err
}

func (h *Handshake) receiveServerHello() (*protocol.ServerHello, error) {
	data, err := h.codec.ReadMessage(h.conn)
	if err != nil {
		return nil, err
	}
	defer protocol.PutFrame(data)

	hello, err := h.codec.DecodeServerHello(data)
	if err != nil {
		return nil, err
	}

	if hello.Profile != h.session.Profile {
		return nil, aerrors.ErrUnsupportedProfile
	}
	if !suiteOffered(h.localSuites(), hello.CipherSuite) {
		return nil, aerrors.ErrUnsupportedSuite
	}

	h.transcript.Update(data)
	copy(h.serverRandom[:], hello.Random)
	h.session.Version = hello.Version

	return hello, nil
}

// deriveHandshakeKeys derives the Finished-flight encryption keys from
// the shared secret and the transcript covering both hello messages.
func (h *Handshake) deriveHandshakeKeys(suite constants.CipherSuite) error {
	keys, err := crypto.DeriveHandshakeKeys(suite, h.sharedSecret, h.transcript.Sum())
	if err != nil {
		return err
	}
	h.handshakeKeys = keys
	h.session.CipherSuite = suite
	return nil
}

func (h *Handshake) sendClientFinished() error {
	verifyData, err := crypto.DeriveVerifyData("client", h.sharedSecret, h.transcript.Sum())
	if err != nil {
		return err
	}

	msg, err := h.codec.EncodeFinished(protocol.MessageTypeClientFinished, verifyData)
	if err != nil {
		return err
	}
	h.transcript.Update(msg)

	return h.writeEncryptedRecord(msg, h.handshakeKeys.ClientKey)
}

func (h *Handshake) receiveClientFinished() error {
	msg, err := h.readEncryptedRecord(h.handshakeKeys.ClientKey)
	if err != nil {
		return err
	}
	if msgType, err := h.codec.GetMessageType(msg); err != nil || msgType != protocol.MessageTypeClientFinished {
		return aerrors.ErrInvalidMessage
	}

	verifyData, err := h.codec.DecodeFinished(msg)
	if err != nil {
		return err
	}

	expected, err := crypto.DeriveVerifyData("client", h.sharedSecret, h.transcript.Sum())
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(verifyData, expected) != 1 {
		return aerrors.ErrVerificationFailed
	}

	h.transcript.Update(msg)
	return nil
}

func (h *Handshake) sendServerFinished() error {
	verifyData, err := crypto.DeriveVerifyData("server", h.sharedSecret, h.transcript.Sum())
	if err != nil {
		return err
	}

	msg, err := h.codec.EncodeFinished(protocol.MessageTypeServerFinished, verifyData)
	if err != nil {
		return err
	}
	h.transcript.Update(msg)

	return h.writeEncryptedRecord(msg, h.handshakeKeys.ServerKey)
}

func (h *Handshake) receiveServerFinished() error {
	msg, err := h.readEncryptedRecord(h.handshakeKeys.ServerKey)
	if err != nil {
		return err
	}
	if msgType, err := h.codec.GetMessageType(msg); err != nil || msgType != protocol.MessageTypeServerFinished {
		return aerrors.ErrInvalidMessage
	}

	verifyData, err := h.codec.DecodeFinished(msg)
	if err != nil {
		return err
	}

	expected, err := crypto.DeriveVerifyData("server", h.sharedSecret, h.transcript.Sum())
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(verifyData, expected) != 1 {
		return aerrors.ErrVerificationFailed
	}

	h.transcript.Update(msg)
	return nil
}

// finalize derives the session ID and traffic keys from the complete
// transcript, then clears the handshake secrets.
func (h *Handshake) finalize(suite constants.CipherSuite) error {
	transcript := h.transcript.Sum()

	sessionID, err := crypto.DeriveSessionID(h.sharedSecret, transcript)
	if err != nil {
		return aerrors.NewProtocolError("session_id", err)
	}
	h.session.ID = sessionID

	if err := h.session.InitializeKeys(h.sharedSecret, transcript, suite); err != nil {
		return aerrors.NewProtocolError("traffic_keys", err)
	}

	return nil
}

// writeEncryptedRecord encrypts and frames a handshake record:
// 4-byte big-endian length followed by nonce||ciphertext||tag.
func (h *Handshake) writeEncryptedRecord(plaintext, key []byte) error {
	aead, err := crypto.NewAEAD(h.session.CipherSuite, key)
	if err != nil {
		return err
	}

	sealed, err := aead.Seal(plaintext, nil)
	if err != nil {
		return err
	}

	frame := make([]byte, 4+len(sealed))
	binary.BigEndian.PutUint32(frame, uint32(len(sealed)))
	copy(frame[4:], sealed)

	_, err = h.conn.Write(frame)
	return err
}

func (h *Handshake) readEncryptedRecord(key []byte) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(h.conn, lenBuf[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 || length > constants.MaxMessageSize {
		return nil, aerrors.ErrInvalidMessage
	}

	sealed := make([]byte, length)
	if _, err := io.ReadFull(h.conn, sealed); err != nil {
		return nil, err
	}

	aead, err := crypto.NewAEAD(h.session.CipherSuite, key)
	if err != nil {
		return nil, err
	}
	return aead.Open(sealed, nil)
}

// sendAlert makes a best-effort attempt to notify the peer before the
// handshake aborts. The short deadline keeps the abort from blocking
// when the peer already gave up reading.
func (h *Handshake) sendAlert(level protocol.AlertLevel, code protocol.AlertCode, desc string) {
	data := h.codec.EncodeAlert(level, code, desc)
	_ = h.conn.SetWriteDeadline(time.Now().Add(closeNotifyTimeout))
	h.conn.Write(data) //nolint:errcheck
	_ = h.conn.SetWriteDeadline(time.Time{})
}

func (h *Handshake) checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// cleanup zeroizes handshake secrets.
func (h *Handshake) cleanup() {
	crypto.Zeroize(h.sharedSecret)
	h.sharedSecret = nil
	if h.handshakeKeys != nil {
		h.handshakeKeys.Zeroize()
		h.handshakeKeys = nil
	}
}

// localSuites returns the suites this endpoint negotiates: the
// configured restriction if any, otherwise every suite in the build.
func (h *Handshake) localSuites() []constants.CipherSuite {
	if len(h.session.offeredSuites) > 0 {
		return h.session.offeredSuites
	}
	return protocol.SupportedCipherSuites()
}

// selectCipherSuite picks the first mutually acceptable suite, in the
// server's preference order.
func selectCipherSuite(local, offered []constants.CipherSuite) (constants.CipherSuite, error) {
	for _, preferred := range local {
		if suiteOffered(offered, preferred) {
			return preferred, nil
		}
	}
	return 0, aerrors.ErrUnsupportedSuite
}

func suiteOffered(suites []constants.CipherSuite, suite constants.CipherSuite) bool {
	for _, s := range suites {
		if s == suite {
			return true
		}
	}
	return false
}

func suiteSupported(suite constants.CipherSuite) bool {
	for _, s := range protocol.SupportedCipherSuites() {
		if s == suite {
			return true
		}
	}
	return false
}
