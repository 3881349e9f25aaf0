package wallet

import (
	"crypto/sha256"
	"strings"
)

// base58Alphabet excludes the visually ambiguous characters 0, O, I and l.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Base58Encode encodes a byte buffer using repeated base conversion,
// most-significant byte first. Each leading zero byte maps to one leading
// '1'. The digit accumulator is seeded with a single zero digit, so an
// all-zero input still emits one encoded digit after its leading '1's.
func Base58Encode(input []byte) string {
	zeros := 0
	for zeros < len(input) && input[zeros] == 0 {
		zeros++
	}

	digits := []byte{0}
	for _, b := range input {
		carry := int(b)
		for i := 0; i < len(digits); i++ {
			carry += int(digits[i]) << 8
			digits[i] = byte(carry % 58)
			carry /= 58
		}
		for carry > 0 {
			digits = append(digits, byte(carry%58))
			carry /= 58
		}
	}

	var sb strings.Builder
	sb.Grow(zeros + len(digits))
	for i := 0; i < zeros; i++ {
		sb.WriteByte(base58Alphabet[0])
	}
	for i := len(digits) - 1; i >= 0; i-- {
		sb.WriteByte(base58Alphabet[digits[i]])
	}
	return sb.String()
}

// Base58CheckEncode prepends the version byte and appends the first four
// bytes of a double SHA-256 checksum before Base58 encoding.
func Base58CheckEncode(version byte, payload []byte) string {
	buf := make([]byte, 0, len(payload)+5)
	buf = append(buf, version)
	buf = append(buf, payload...)

	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	buf = append(buf, second[:4]...)

	return Base58Encode(buf)
}
