package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCashAddrEncode_ZeroHashStartsWithQ(t *testing.T) {
	addr, err := CashAddrEncode("bitcoincash", cashAddrP2PKH, make([]byte, 20))
	require.NoError(t, err)

	body := strings.TrimPrefix(addr, "bitcoincash:")
	assert.NotEqual(t, addr, body, "address must carry the prefix")
	assert.Equal(t, byte('q'), body[0], "P2PKH version marker encodes to 'q'")

	for i := 0; i < len(body); i++ {
		assert.Contains(t, cashAddrCharset, string(body[i]),
			"only the 32-symbol charset may appear")
	}
}

func TestCashAddrEncode_ChecksumValid(t *testing.T) {
	hash := []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10, 0x11, 0x12, 0x13, 0x14,
	}
	addr, err := CashAddrEncode("bitcoincash", cashAddrP2PKH, hash)
	require.NoError(t, err)
	assert.True(t, VerifyCashAddr(addr))

	// Any single-symbol corruption must break the checksum.
	body := []byte(addr)
	pos := len(body) - 3
	orig := body[pos]
	for i := 0; i < len(cashAddrCharset); i++ {
		if cashAddrCharset[i] != orig {
			body[pos] = cashAddrCharset[i]
			break
		}
	}
	assert.False(t, VerifyCashAddr(string(body)))
}

func TestCashAddrEncode_PrefixSeedsChecksum(t *testing.T) {
	hash := make([]byte, 20)
	hash[19] = 0x42

	a, err := CashAddrEncode("bitcoincash", cashAddrP2PKH, hash)
	require.NoError(t, err)
	b, err := CashAddrEncode("bchtest", cashAddrP2PKH, hash)
	require.NoError(t, err)

	aBody := a[strings.IndexByte(a, ':')+1:]
	bBody := b[strings.IndexByte(b, ':')+1:]
	assert.Equal(t, aBody[:len(aBody)-8], bBody[:len(bBody)-8],
		"payload is prefix-independent")
	assert.NotEqual(t, aBody[len(aBody)-8:], bBody[len(bBody)-8:],
		"checksum is seeded with the prefix")
}

func TestCashAddrEncode_RejectsBadHashLength(t *testing.T) {
	_, err := CashAddrEncode("bitcoincash", cashAddrP2PKH, make([]byte, 19))
	assert.Error(t, err)
}

func TestConvertBits_Regrouping(t *testing.T) {
	// 0xFF -> 11111 111(00) -> [31, 28]
	assert.Equal(t, []byte{31, 28}, convertBits([]byte{0xff}, 8, 5))
	// 0x00 -> 00000 000(00) -> [0, 0]
	assert.Equal(t, []byte{0, 0}, convertBits([]byte{0x00}, 8, 5))
	// 21 bytes regroup into 34 five-bit symbols.
	assert.Len(t, convertBits(make([]byte, 21), 8, 5), 34)
}
