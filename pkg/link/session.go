// Package link implements the asconlink secure link: a post-quantum
// encrypted channel over a stream transport.
//
// The link provides:
//   - Post-quantum key exchange using A-KEM (ML-KEM bound through Ascon)
//   - Authenticated encryption using Ascon-AEAD128 or ChaCha20-Poly1305
//   - Forward secrecy through ephemeral per-session keys
//   - Replay protection through sequence numbers
//
// Sessions are deliberately short-lived: when the per-session packet
// budget runs out the link closes instead of rekeying, and the next
// connection performs a fresh handshake.
package link

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lightpq/asconlink/internal/constants"
	aerrors "github.com/lightpq/asconlink/internal/errors"
	"github.com/lightpq/asconlink/pkg/akem"
	"github.com/lightpq/asconlink/pkg/crypto"
	"github.com/lightpq/asconlink/pkg/protocol"
)

// SessionState represents the current state of the link session.
type SessionState int32

const (
	// SessionStateNew indicates a fresh session not yet handshaked
	SessionStateNew SessionState = iota

	// SessionStateHandshaking indicates handshake is in progress
	SessionStateHandshaking

	// SessionStateEstablished indicates the link is ready for data
	SessionStateEstablished

	// SessionStateClosed indicates the session has been terminated
	SessionStateClosed
)

// String returns a human-readable name for the session state.
func (s SessionState) String() string {
	switch s {
	case SessionStateNew:
		return "New"
	case SessionStateHandshaking:
		return "Handshaking"
	case SessionStateEstablished:
		return "Established"
	case SessionStateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// Role indicates whether this endpoint is the client or server.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// Session represents an asconlink session.
type Session struct {
	// Unique session identifier, derived from the handshake
	ID []byte

	// Role of this endpoint
	Role Role

	// Current state
	state atomic.Int32

	// Protocol version negotiated
	Version protocol.Version

	// Negotiated KEM profile
	Profile constants.KEMProfile

	// Selected cipher suite
	CipherSuite constants.CipherSuite

	// Suites this endpoint is willing to negotiate, in preference
	// order. Empty means every suite compiled into the build.
	offeredSuites []constants.CipherSuite

	// Local ephemeral key pair (client side only; the server holds no
	// long-term KEM keys)
	LocalKeyPair *akem.KeyPair

	// Remote public key (server side, parsed from ClientHello)
	RemotePublicKey *akem.PublicKey

	// Traffic encryption ciphers
	sendCipher *crypto.AEAD
	recvCipher *crypto.AEAD

	// Send sequence number
	sendSeq atomic.Uint64

	// Replay protection window
	replayWindow *ReplayWindow

	// Timestamps
	CreatedAt     time.Time
	EstablishedAt time.Time
	LastActivity  time.Time

	// Observability hooks
	observer Observer

	// Statistics
	BytesSent     atomic.Uint64
	BytesReceived atomic.Uint64
	PacketsSent   atomic.Uint64
	PacketsRecv   atomic.Uint64

	// Mutex for state changes
	mu sync.RWMutex
}

// ReplayWindow implements a sliding window for replay attack protection.
type ReplayWindow struct {
	mu         sync.Mutex
	highSeq    uint64
	bitmap     uint64 // Bitmap for last 64 sequence numbers
	windowSize uint64
}

// NewReplayWindow creates a new replay protection window.
func NewReplayWindow() *ReplayWindow {
	return &ReplayWindow{windowSize: 64}
}

// Check validates a sequence number against the replay window.
// Returns true if the sequence number is valid (not a replay).
func (rw *ReplayWindow) Check(seq uint64) bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	// Sequence number is too old
	if seq+rw.windowSize <= rw.highSeq {
		return false
	}

	// Sequence number is within the window
	if seq <= rw.highSeq {
		diff := rw.highSeq - seq
		bit := uint64(1) << diff
		if rw.bitmap&bit != 0 {
			return false // Already received
		}
		rw.bitmap |= bit
		return true
	}

	// New highest sequence number
	diff := seq - rw.highSeq
	if diff >= rw.windowSize {
		rw.bitmap = 0
	} else {
		rw.bitmap <<= diff
	}
	rw.bitmap |= 1
	rw.highSeq = seq

	return true
}

// NewSession creates a new session with the given role and KEM profile.
// The client generates an ephemeral key pair; the server parses the
// client's key from ClientHello instead.
func NewSession(role Role, profile constants.KEMProfile) (*Session, error) {
	if !profile.IsSupported() {
		return nil, aerrors.ErrUnsupportedProfile
	}

	s := &Session{
		Role:         role,
		Profile:      profile,
		replayWindow: NewReplayWindow(),
		CreatedAt:    time.Now(),
	}
	s.state.Store(int32(SessionStateNew))

	if role == RoleClient {
		keyPair, err := akem.GenerateKeyPair(profile)
		if err != nil {
			return nil, err
		}
		s.LocalKeyPair = keyPair
	}

	return s, nil
}

// State returns the current session state.
func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// SetState atomically sets the session state.
func (s *Session) SetState(state SessionState) {
	s.state.Store(int32(state))
}

// SetObserver sets an observer for session lifecycle and metrics.
// Should be called during initialization before any data is sent.
func (s *Session) SetObserver(observer Observer) {
	s.observer = observer
}

// InitializeKeys derives the traffic keys from the handshake secret and
// transcript, and moves the session to the Established state.
func (s *Session) InitializeKeys(sharedSecret, transcript []byte, suite constants.CipherSuite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Load() == int32(SessionStateClosed) {
		return aerrors.ErrSessionClosed
	}
	if len(sharedSecret) != constants.SharedSecretSize {
		return aerrors.ErrInvalidKeySize
	}

	keys, err := crypto.DeriveTrafficKeys(suite, sharedSecret, transcript)
	if err != nil {
		return err
	}
	defer keys.Zeroize()

	var sendKey, recvKey []byte
	if s.Role == RoleClient {
		sendKey = keys.ClientKey
		recvKey = keys.ServerKey
	} else {
		sendKey = keys.ServerKey
		recvKey = keys.ClientKey
	}

	s.sendCipher, err = crypto.NewAEAD(suite, sendKey)
	if err != nil {
		return err
	}
	s.recvCipher, err = crypto.NewAEAD(suite, recvKey)
	if err != nil {
		return err
	}

	s.CipherSuite = suite
	s.EstablishedAt = time.Now()
	s.SetState(SessionStateEstablished)

	return nil
}

// Encrypt encrypts data for sending, returning the ciphertext and its
// sequence number. The sequence is bound as additional authenticated
// data, so a reordered or renumbered packet fails authentication.
//
// The ciphertext comes from a pooled buffer; callers that frame or
// copy it promptly should release it with crypto.PutSealedBuffer.
func (s *Session) Encrypt(plaintext []byte) ([]byte, uint64, error) {
	seq := s.sendSeq.Add(1) - 1

	s.mu.RLock()
	cipher := s.sendCipher
	s.mu.RUnlock()

	observer := s.observer
	var done func(error)
	if observer != nil {
		_, done = observer.OnEncrypt(context.Background(), len(plaintext))
	}

	if cipher == nil {
		err := aerrors.NewProtocolError("encrypt", aerrors.ErrSessionClosed)
		if observer != nil {
			observer.OnProtocolError(err)
		}
		if done != nil {
			done(err)
		}
		return nil, 0, err
	}

	ciphertext, err := cipher.SealPooled(plaintext, seqAAD(seq))
	if err != nil {
		if done != nil {
			done(err)
		}
		return nil, 0, err
	}
	if done != nil {
		done(nil)
	}

	s.BytesSent.Add(uint64(len(plaintext)))
	s.PacketsSent.Add(1)
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()

	return ciphertext, seq, nil
}

// Decrypt decrypts received data after replay validation.
func (s *Session) Decrypt(ciphertext []byte, seq uint64) ([]byte, error) {
	s.mu.RLock()
	cipher := s.recvCipher
	s.mu.RUnlock()

	if cipher == nil {
		if s.observer != nil {
			s.observer.OnProtocolError(aerrors.ErrSessionClosed)
		}
		return nil, aerrors.ErrSessionClosed
	}

	if !s.replayWindow.Check(seq) {
		if s.observer != nil {
			s.observer.OnReplayDetected()
		}
		return nil, aerrors.ErrReplayDetected
	}

	observer := s.observer
	var done func(error)
	if observer != nil {
		_, done = observer.OnDecrypt(context.Background(), len(ciphertext))
	}

	plaintext, err := cipher.Open(ciphertext, seqAAD(seq))
	if err != nil {
		if observer != nil && aerrors.Is(err, aerrors.ErrAuthenticationFailed) {
			observer.OnAuthFailure()
		}
		if done != nil {
			done(err)
		}
		return nil, err
	}
	if done != nil {
		done(nil)
	}

	s.BytesReceived.Add(uint64(len(plaintext)))
	s.PacketsRecv.Add(1)
	s.mu.Lock()
	s.LastActivity = time.Now()
	s.mu.Unlock()

	return plaintext, nil
}

// Expired reports whether the session's packet budget is exhausted.
// An expired session must close; the protocol has no rekey.
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sendCipher == nil {
		return false
	}
	return s.sendCipher.Remaining() == 0
}

// Close securely closes the session and zeroizes sensitive data.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SetState(SessionStateClosed)

	if s.LocalKeyPair != nil {
		s.LocalKeyPair.Zeroize()
		s.LocalKeyPair = nil
	}

	s.sendCipher = nil
	s.recvCipher = nil
}

// Stats holds session statistics.
type Stats struct {
	BytesSent     uint64
	BytesReceived uint64
	PacketsSent   uint64
	PacketsRecv   uint64
	Duration      time.Duration
	State         SessionState
}

// Stats returns current session statistics.
func (s *Session) Stats() Stats {
	return Stats{
		BytesSent:     s.BytesSent.Load(),
		BytesReceived: s.BytesReceived.Load(),
		PacketsSent:   s.PacketsSent.Load(),
		PacketsRecv:   s.PacketsRecv.Load(),
		Duration:      time.Since(s.CreatedAt),
		State:         s.State(),
	}
}

// seqAAD encodes a sequence number as additional authenticated data.
func seqAAD(seq uint64) []byte {
	aad := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		aad[i] = byte(seq)
		seq >>= 8
	}
	return aad
}
