package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBase58Encode_KnownVectors(t *testing.T) {
	tests := []struct {
		input    []byte
		expected string
	}{
		{[]byte{0x61}, "2g"},
		{[]byte{0x62, 0x62, 0x62}, "a3gV"},
		{[]byte{0x63, 0x63, 0x63}, "aPEr"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Base58Encode(tt.input))
	}
}

func TestBase58Encode_SingleZeroByte(t *testing.T) {
	// One leading '1' for the zero byte plus the seeded accumulator digit.
	assert.Equal(t, "11", Base58Encode([]byte{0x00}))
}

func TestBase58Encode_LeadingZeros(t *testing.T) {
	out := Base58Encode([]byte{0x00, 0x00, 0x61})
	assert.True(t, strings.HasPrefix(out, "11"), "each leading zero byte maps to one '1'")
	assert.Equal(t, "112g", out)
}

func TestBase58Encode_NoAmbiguousCharacters(t *testing.T) {
	out := Base58Encode([]byte{0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x99, 0x88})
	assert.NotContains(t, out, "0")
	assert.NotContains(t, out, "O")
	assert.NotContains(t, out, "I")
	assert.NotContains(t, out, "l")
}

func TestBase58CheckEncode_Deterministic(t *testing.T) {
	payload := make([]byte, 20)
	a := Base58CheckEncode(0x00, payload)
	b := Base58CheckEncode(0x00, payload)
	assert.Equal(t, a, b)

	// Version 0 with an all-zero hash yields the classic run of '1's.
	assert.True(t, strings.HasPrefix(a, "1111111111111111111"), "got %s", a)

	// A different version byte produces a different address.
	c := Base58CheckEncode(0x05, payload)
	assert.NotEqual(t, a, c)
}

func TestBase58CheckEncode_ChecksumSensitivity(t *testing.T) {
	p1 := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	p2 := append([]byte(nil), p1...)
	p2[19] ^= 0x01

	assert.NotEqual(t, Base58CheckEncode(0x00, p1), Base58CheckEncode(0x00, p2))
}
