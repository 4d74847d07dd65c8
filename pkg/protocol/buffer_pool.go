// buffer_pool.go provides pooled frame buffers for message framing.
//
// ReadMessage and EncodeData run once per packet on the data path;
// recycling their buffers keeps GC pressure flat at high throughput
// and inside the constrained profile's memory budget.
package protocol

import (
	"sync"

	"github.com/lightpq/asconlink/internal/constants"
)

// Frame buffer size classes.
const (
	smallFrameSize  = 256                                   // alerts, ping/pong, close
	mediumFrameSize = 4 * 1024                              // hellos and typical data frames
	largeFrameSize  = HeaderSize + constants.MaxMessageSize // worst-case frame
)

// BufferPool recycles frame buffers across encode and read operations.
// It uses size classes so small control messages do not pin large
// arrays.
type BufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

// NewBufferPool creates a frame buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		small: sync.Pool{
			New: func() any {
				buf := make([]byte, smallFrameSize)
				return &buf
			},
		},
		medium: sync.Pool{
			New: func() any {
				buf := make([]byte, mediumFrameSize)
				return &buf
			},
		},
		large: sync.Pool{
			New: func() any {
				buf := make([]byte, largeFrameSize)
				return &buf
			},
		},
	}
}

// Get returns a buffer of the requested length. The backing array may
// be larger. The caller should hand the buffer back with Put once the
// frame has been consumed; failing to do so only costs reuse.
func (p *BufferPool) Get(size int) []byte {
	if size <= 0 {
		return nil
	}

	var bufPtr *[]byte
	switch {
	case size <= smallFrameSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= mediumFrameSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= largeFrameSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		// Too large for any class; allocate directly.
		return make([]byte, size)
	}

	return (*bufPtr)[:size]
}

// Put returns a buffer obtained from Get. Buffers of non-class sizes
// were allocated directly and are dropped.
func (p *BufferPool) Put(buf []byte) {
	c := cap(buf)
	if c == 0 {
		return
	}

	buf = buf[:c]
	bufPtr := &buf

	switch c {
	case smallFrameSize:
		p.small.Put(bufPtr)
	case mediumFrameSize:
		p.medium.Put(bufPtr)
	case largeFrameSize:
		p.large.Put(bufPtr)
	}
}

// framePool is the pool behind ReadMessage and EncodeData.
var framePool = NewBufferPool()

// GetFrame returns a frame buffer from the package pool.
func GetFrame(size int) []byte {
	return framePool.Get(size)
}

// PutFrame recycles a frame buffer obtained from ReadMessage,
// EncodeData, or GetFrame. The frame must not be referenced afterwards.
// Hello, alert, and finished decoders copy out of the frame;
// DecodeData's payload view aliases it and must be consumed first.
func PutFrame(buf []byte) {
	framePool.Put(buf)
}
