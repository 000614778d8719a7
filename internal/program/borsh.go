package program

import (
	"bytes"
	"encoding/binary"

	"github.com/predictsol/predictsol-go/internal/solana"
)

// argEncoder builds the borsh-encoded argument tail of an instruction.
// Anchor programs decode arguments strictly in declaration order, so
// callers append in that exact order.
type argEncoder struct {
	buf bytes.Buffer
}

func newArgEncoder(discriminator [8]byte) *argEncoder {
	e := &argEncoder{}
	e.buf.Write(discriminator[:])
	return e
}

func (e *argEncoder) U8(v uint8) *argEncoder {
	e.buf.WriteByte(v)
	return e
}

func (e *argEncoder) U64(v uint64) *argEncoder {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
	return e
}

func (e *argEncoder) I64(v int64) *argEncoder {
	return e.U64(uint64(v))
}

// String writes a borsh string: u32 little-endian byte length then raw
// UTF-8 bytes.
func (e *argEncoder) String(s string) *argEncoder {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	e.buf.Write(b[:])
	e.buf.WriteString(s)
	return e
}

// OptionPubkey writes a borsh Option<Pubkey>: tag byte 0 for None, tag
// byte 1 followed by 32 key bytes for Some. The zero key encodes as None.
func (e *argEncoder) OptionPubkey(pk solana.PublicKey) *argEncoder {
	if pk.IsZero() {
		e.buf.WriteByte(0)
		return e
	}
	e.buf.WriteByte(1)
	e.buf.Write(pk.Bytes())
	return e
}

func (e *argEncoder) Bytes() []byte {
	return e.buf.Bytes()
}
