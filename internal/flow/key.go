package flow

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/dchest/siphash"
)

// Hash domains. The version suffix changes whenever the canonical layout
// of a node description changes.
const (
	domainFlow = "htsql/flow/v1"
	domainCode = "htsql/code/v1"
)

// Fixed SipHash keys. Keys only need to be stable within a process.
const (
	sipK0 uint64 = 0x0706050403020100
	sipK1 uint64 = 0x0f0e0d0c0b0a0908
)

// Key is the structural identity of a flow or code: a 128-bit SipHash of
// its canonical description.
type Key struct {
	Lo, Hi uint64
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool { return k.Lo == 0 && k.Hi == 0 }

func (k Key) String() string {
	return fmt.Sprintf("%016x%016x", k.Hi, k.Lo)
}

// keyBuilder writes a length-prefixed canonical description of a node.
type keyBuilder struct {
	buf bytes.Buffer
}

func newKey(domain, kind string) *keyBuilder {
	kb := &keyBuilder{}
	kb.buf.WriteString(domain)
	kb.buf.WriteByte(0)
	kb.str(kind)
	return kb
}

func (kb *keyBuilder) str(s string) *keyBuilder {
	kb.buf.WriteByte('s')
	kb.buf.WriteString(strconv.Itoa(len(s)))
	kb.buf.WriteByte(':')
	kb.buf.WriteString(s)
	return kb
}

func (kb *keyBuilder) int(n int64) *keyBuilder {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(n))
	kb.buf.WriteByte('i')
	kb.buf.Write(tmp[:])
	return kb
}

func (kb *keyBuilder) opt(n *int64) *keyBuilder {
	if n == nil {
		kb.buf.WriteByte('n')
		return kb
	}
	return kb.int(*n)
}

func (kb *keyBuilder) key(k Key) *keyBuilder {
	var tmp [16]byte
	binary.LittleEndian.PutUint64(tmp[:8], k.Lo)
	binary.LittleEndian.PutUint64(tmp[8:], k.Hi)
	kb.buf.WriteByte('k')
	kb.buf.Write(tmp[:])
	return kb
}

func (kb *keyBuilder) sum() Key {
	lo, hi := siphash.Hash128(sipK0, sipK1, kb.buf.Bytes())
	return Key{Lo: lo, Hi: hi}
}
