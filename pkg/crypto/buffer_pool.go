// buffer_pool.go provides pooled output buffers for AEAD sealing on
// the data path. Every packet otherwise allocates a nonce-prefixed,
// tag-expanded ciphertext; recycling those keeps GC pressure flat at
// high throughput and inside the constrained profile's memory budget.
package crypto

import (
	"sync"

	"github.com/lightpq/asconlink/internal/constants"
)

// Sealed-buffer size classes, each leaving room for the worst-case
// nonce plus tag expansion.
const (
	smallSealedSize  = 1024 + constants.MaxAEADOverhead
	mediumSealedSize = 16*1024 + constants.MaxAEADOverhead
	largeSealedSize  = constants.MaxPlaintextSize + constants.MaxAEADOverhead
)

// BufferPool recycles sealed-output buffers for AEAD operations.
type BufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

// NewBufferPool creates a sealed-buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small: sync.Pool{
			New: func() any {
				buf := make([]byte, smallSealedSize)
				return &buf
			},
		},
		medium: sync.Pool{
			New: func() any {
				buf := make([]byte, mediumSealedSize)
				return &buf
			},
		},
		large: sync.Pool{
			New: func() any {
				buf := make([]byte, largeSealedSize)
				return &buf
			},
		},
	}
}

// Get returns a buffer of the requested length. The backing array may
// be larger.
func (p *BufferPool) Get(size int) []byte {
	if size <= 0 {
		return nil
	}

	var bufPtr *[]byte
	switch {
	case size <= smallSealedSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= mediumSealedSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= largeSealedSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	return (*bufPtr)[:size]
}

// Put zeroizes a buffer obtained from Get and returns it to the pool.
// Sealed outputs can share an array with plaintext scratch space, so
// the wipe runs over the full capacity. Non-class sizes were allocated
// directly and are dropped.
func (p *BufferPool) Put(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}

	buf = buf[:c]
	Zeroize(buf)
	bufPtr := &buf

	switch c {
	case smallSealedSize:
		p.small.Put(bufPtr)
	case mediumSealedSize:
		p.medium.Put(bufPtr)
	case largeSealedSize:
		p.large.Put(bufPtr)
	}
}

// sealedPool backs SealPooled.
var sealedPool = NewBufferPool()

// GetSealedBuffer returns a buffer from the package pool.
func GetSealedBuffer(size int) []byte {
	return sealedPool.Get(size)
}

// PutSealedBuffer wipes and recycles a buffer returned by SealPooled
// or GetSealedBuffer. The buffer must not be referenced afterwards.
func PutSealedBuffer(buf []byte) {
	sealedPool.Put(buf)
}

// SealPooled encrypts like Seal but places nonce || ciphertext || tag
// in a pooled buffer. Release the result with PutSealedBuffer once it
// has been framed or copied; failing to do so only costs reuse.
func (a *AEAD) SealPooled(plaintext, additionalData []byte) ([]byte, error) {
	nonce, err := a.nextNonce()
	if err != nil {
		return nil, err
	}

	n := len(nonce)
	sealed := GetSealedBuffer(n + len(plaintext) + a.cipher.Overhead())
	copy(sealed[:n], nonce)
	a.cipher.Seal(sealed[n:n], nonce, plaintext, additionalData)
	return sealed, nil
}
