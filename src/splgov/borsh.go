package splgov

import (
	"encoding/binary"

	"github.com/juju/errors"

	"github.com/stake-plus/solana-dao-radar/src/solana"
)

// reader walks borsh-encoded account data. The first short read sticks in
// err; later reads return zero values so decoders can check once at the end.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(b []byte) *reader {
	return &reader{buf: b}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = errors.NotValidf("account data truncated at offset %d (need %d of %d)", r.pos, n, len(r.buf))
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) skip(n int) { r.take(n) }

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) amount() Amount { return AmountFromUint64(r.u64()) }

func (r *reader) pubkey() solana.PublicKey {
	var pk solana.PublicKey
	copy(pk[:], r.take(solana.PublicKeyLength))
	return pk
}

func (r *reader) str() string {
	n := r.u32()
	return string(r.take(int(n)))
}

// some reads a borsh Option tag.
func (r *reader) some() bool {
	switch tag := r.u8(); tag {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = errors.NotValidf("option tag %d at offset %d", tag, r.pos-1)
		}
		return false
	}
}

func (r *reader) optPubkey() *solana.PublicKey {
	if !r.some() {
		return nil
	}
	pk := r.pubkey()
	return &pk
}

func (r *reader) optI64() *int64 {
	if !r.some() {
		return nil
	}
	v := r.i64()
	return &v
}

func (r *reader) optU64() *uint64 {
	if !r.some() {
		return nil
	}
	v := r.u64()
	return &v
}

func (r *reader) optAmount() *Amount {
	if !r.some() {
		return nil
	}
	a := r.amount()
	return &a
}

// writer is the encoding counterpart used for instruction data.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) bytes() []byte { return w.buf }
