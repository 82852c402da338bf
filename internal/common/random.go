package common

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
)

// CPRNG is a simple thread-safe cryptographically secure pseudo-random number generator.
// Implemented with AES in counter mode with the seed as key and an
// atomic uint64 as counter. Its output is fully determined by the seed, which makes it
// suitable as the explicit randomness source in reproducible tests.
type CPRNG struct {
	block   cipher.Block
	counter uint64
}

func NewCPRNG(seed *[32]byte) (*CPRNG, error) {
	c, err := aes.NewCipher(seed[:])
	if err != nil {
		return nil, err
	}
	return &CPRNG{block: c}, nil
}

// NewSeededReader returns a CPRNG keyed with the sha256 hash of seed.
func NewSeededReader(seed string) io.Reader {
	key := sha256.Sum256([]byte(seed))
	rng, err := NewCPRNG(&key)
	if err != nil {
		panic(err) // 32-byte AES keys are always accepted
	}
	return rng
}

func (c *CPRNG) Read(buf []byte) (n int, err error) {
	var pt, ct [16]byte
	n = len(buf)
	if n == 0 {
		return
	}

	// Number of blocks required
	nBlocks := uint64(((len(buf) - 1) / 16) + 1)

	// Atomically increment counter by the number of blocks and set iv to
	// the first available block.
	iv := atomic.AddUint64(&c.counter, nBlocks) - nBlocks
	for len(buf) > 0 {
		binary.LittleEndian.PutUint64(pt[:], iv)
		iv++
		if len(buf) >= 16 {
			c.block.Encrypt(buf, pt[:])
			buf = buf[16:]
			continue
		}
		c.block.Encrypt(ct[:], pt[:])
		copy(buf, ct[:len(buf)])
		buf = nil
	}
	return
}

// LockedReader serializes reads on an underlying reader, so that a caller-supplied
// randomness source can be shared among goroutines.
type LockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func NewLockedReader(r io.Reader) *LockedReader {
	if lr, ok := r.(*LockedReader); ok {
		return lr
	}
	return &LockedReader{r: r}
}

func (l *LockedReader) Read(buf []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return io.ReadFull(l.r, buf)
}
