// Package leb128 implements the variable-length integer encodings used by
// DWARF line programs.
package leb128

import (
	"errors"
	"fmt"
)

const maxVarintLen64 = 10

var (
	errOverflow64 = errors.New("overflows a 64-bit integer")
	errEOF        = errors.New("unexpected EOF")
)

// EncodeUint64 encodes the value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_unsigned_integer
func EncodeUint64(value uint64) (buf []byte) {
	// This is effectively a do/while loop where we take 7 bits of the value and encode them until it is zero.
	for {
		// Take 7 remaining low-order bits from the value into b.
		b := uint8(value & 0x7f)
		value = value >> 7

		// If there are remaining bits, the value won't be zero: Set the high-
		// order bit to tell the reader there are more bytes in this uint.
		if value != 0 {
			b |= 0x80
		}

		buf = append(buf, b)
		if b&0x80 == 0 {
			return buf
		}
	}
}

// EncodeInt64 encodes the signed value into a buffer in LEB128 format
//
// See https://en.wikipedia.org/wiki/LEB128#Encode_signed_integer
func EncodeInt64(value int64) (buf []byte) {
	for {
		// Take 7 remaining low-order bits from the value into b.
		b := uint8(value & 0x7f)
		// Extract the sign bit.
		s := uint8(value & 0x40)
		value >>= 7

		// Signed values are done once only sign bits remain and the sign bit
		// of b agrees with them.
		if (value != -1 || s == 0) && (value != 0 || s != 0) {
			b |= 0x80
		}

		buf = append(buf, b)
		if b&0x80 == 0 {
			break
		}
	}
	return buf
}

// LoadUint64 decodes an unsigned value from the head of buf, returning the
// value and the number of bytes read.
func LoadUint64(buf []byte) (ret uint64, bytesRead uint64, err error) {
	bufLen := uint64(len(buf))
	var s uint
	for i := uint64(0); i < maxVarintLen64; i++ {
		if i >= bufLen {
			return 0, 0, errEOF
		}
		if buf[i] < 0x80 {
			if i == maxVarintLen64-1 && buf[i] > 1 {
				return 0, 0, errOverflow64
			}
			return ret | uint64(buf[i])<<s, i + 1, nil
		}
		ret |= uint64(buf[i]&0x7f) << s
		s += 7
	}
	return 0, 0, errOverflow64
}

// LoadInt64 decodes a signed value from the head of buf, returning the value
// and the number of bytes read.
func LoadInt64(buf []byte) (ret int64, bytesRead uint64, err error) {
	bufLen := uint64(len(buf))
	var shift int
	var b byte
	for shift < 64 {
		if bytesRead >= bufLen {
			return 0, 0, errEOF
		}
		b = buf[bytesRead]
		ret |= (int64(b) & 0x7f) << shift
		shift += 7
		bytesRead++
		if b&0x80 == 0 {
			break
		}
	}
	if b&0x80 != 0 {
		return 0, 0, fmt.Errorf("%w: more than %d bytes", errOverflow64, maxVarintLen64)
	}
	if shift < 64 && b&0x40 != 0 {
		// Sign extend.
		ret |= -1 << shift
	}
	return
}
