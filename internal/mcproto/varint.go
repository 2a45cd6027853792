// Package mcproto implements the minimal Minecraft wire subset the standby
// shim needs: VarInt framing, the handshake, the status exchange and the
// login disconnect. It is not a protocol library; anything beyond answering a
// server-list ping or kicking a joining player is out of scope.
package mcproto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// maxVarIntBytes is the protocol limit for a 32-bit VarInt.
const maxVarIntBytes = 5

// ErrVarIntTooBig reports a VarInt exceeding the 5-byte protocol limit.
var ErrVarIntTooBig = errors.New("mcproto: VarInt too big")

// ReadVarInt decodes a protocol VarInt from r.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var num uint32
	for i := 0; ; i++ {
		if i == maxVarIntBytes {
			return 0, ErrVarIntTooBig
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		num |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			break
		}
	}
	return int32(num), nil
}

// AppendVarInt encodes v and appends it to dst.
func AppendVarInt(dst []byte, v int32) []byte {
	u := uint32(v)
	for {
		b := byte(u & 0x7F)
		u >>= 7
		if u != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if u == 0 {
			return dst
		}
	}
}

// ReadString decodes a VarInt-length-prefixed UTF-8 string.
func ReadString(r *bytes.Reader) (string, error) {
	n, err := ReadVarInt(r)
	if err != nil {
		return "", err
	}
	if n < 0 || int(n) > r.Len() {
		return "", fmt.Errorf("mcproto: string length %d exceeds remaining %d bytes", n, r.Len())
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// AppendString encodes s with its VarInt length prefix and appends it to dst.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVarInt(dst, int32(len(s)))
	return append(dst, s...)
}
