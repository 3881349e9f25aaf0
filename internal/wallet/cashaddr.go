package wallet

import (
	"fmt"
	"strings"
)

// cashAddrCharset is the 32-symbol CashAddr alphabet.
const cashAddrCharset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// cashAddrP2PKH is the version byte for a pay-to-pubkey-hash 160-bit hash.
const cashAddrP2PKH byte = 0x00

// CashAddrEncode encodes a version byte plus 20-byte hash as a CashAddr
// string with the given human-readable prefix, e.g.
// "bitcoincash:qq...". The checksum is the 40-bit BCH-style polynomial
// seeded with the prefix.
func CashAddrEncode(prefix string, version byte, hash []byte) (string, error) {
	if len(hash) != 20 {
		return "", fmt.Errorf("cashaddr: hash must be 20 bytes, got %d", len(hash))
	}

	data := make([]byte, 0, 21)
	data = append(data, version)
	data = append(data, hash...)

	payload := convertBits(data, 8, 5)

	checksumInput := expandPrefix(prefix)
	checksumInput = append(checksumInput, payload...)
	checksumInput = append(checksumInput, 0, 0, 0, 0, 0, 0, 0, 0)
	checksum := cashPolyMod(checksumInput)

	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + len(payload) + 8)
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, v := range payload {
		sb.WriteByte(cashAddrCharset[v])
	}
	for i := 0; i < 8; i++ {
		sb.WriteByte(cashAddrCharset[(checksum>>uint(5*(7-i)))&0x1f])
	}
	return sb.String(), nil
}

// VerifyCashAddr checks the checksum of an encoded CashAddr string.
func VerifyCashAddr(addr string) bool {
	idx := strings.IndexByte(addr, ':')
	if idx < 1 {
		return false
	}
	prefix, body := addr[:idx], addr[idx+1:]

	values := expandPrefix(prefix)
	for i := 0; i < len(body); i++ {
		v := strings.IndexByte(cashAddrCharset, body[i])
		if v < 0 {
			return false
		}
		values = append(values, byte(v))
	}
	return cashPolyMod(values) == 0
}

// convertBits regroups the input from frombits-wide to tobits-wide groups,
// MSB first, zero-padding the final group.
func convertBits(data []byte, frombits, tobits uint) []byte {
	var acc uint32
	var bits uint
	maxv := uint32(1<<tobits) - 1
	out := make([]byte, 0, (len(data)*int(frombits)+int(tobits)-1)/int(tobits))

	for _, b := range data {
		acc = acc<<frombits | uint32(b)
		bits += frombits
		for bits >= tobits {
			bits -= tobits
			out = append(out, byte(acc>>bits&maxv))
		}
	}
	if bits > 0 {
		out = append(out, byte(acc<<(tobits-bits)&maxv))
	}
	return out
}

// expandPrefix maps the prefix to its lower 5 bits per character, followed
// by a zero separator.
func expandPrefix(prefix string) []byte {
	out := make([]byte, 0, len(prefix)+1)
	for i := 0; i < len(prefix); i++ {
		out = append(out, prefix[i]&0x1f)
	}
	return append(out, 0)
}

// cashPolyMod is the BCH checksum polynomial over GF(2^5) used by CashAddr.
func cashPolyMod(v []byte) uint64 {
	c := uint64(1)
	for _, d := range v {
		c0 := c >> 35
		c = (c&0x07ffffffff)<<5 ^ uint64(d)
		if c0&0x01 != 0 {
			c ^= 0x98f2bc8e61
		}
		if c0&0x02 != 0 {
			c ^= 0x79b76d99e2
		}
		if c0&0x04 != 0 {
			c ^= 0xf33e5fb3c4
		}
		if c0&0x08 != 0 {
			c ^= 0xae2eabe2a8
		}
		if c0&0x10 != 0 {
			c ^= 0x1e4f43e470
		}
	}
	return c ^ 1
}
