package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"chainpay-gateway/pkg/apperror"
)

// AESKeyVault implements ports.KeyVault using AES-256-GCM. It holds the
// process-wide master key; per-address private keys only ever exist in
// plaintext inside the allocator (before Encrypt) and the forwarder's
// signing scope (after Decrypt).
type AESKeyVault struct {
	key []byte // 32-byte key for AES-256
}

// NewAESKeyVault creates a new AES-256-GCM key vault.
// hexKey must be a 64-character hex string (32 bytes decoded).
func NewAESKeyVault(hexKey string) (*AESKeyVault, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	return &AESKeyVault{key: key}, nil
}

// Encrypt seals the private key under the master key.
// Returns hex-encoded string: nonce(24) + ciphertext.
func (v *AESKeyVault) Encrypt(privateKey []byte) (string, error) {
	if len(privateKey) == 0 {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("empty private key"))
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("creating cipher: %w", err))
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("creating GCM: %w", err))
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperror.ErrEncryptionFailure(fmt.Errorf("generating nonce: %w", err))
	}

	ciphertext := aesGCM.Seal(nonce, nonce, privateKey, nil)
	return hex.EncodeToString(ciphertext), nil
}

// Decrypt opens a hex-encoded AES-256-GCM ciphertext. Callers must zero the
// returned slice once the key has signed.
func (v *AESKeyVault) Decrypt(ciphertextHex string) ([]byte, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, apperror.ErrDecryptionFailure(fmt.Errorf("decoding ciphertext: %w", err))
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, apperror.ErrDecryptionFailure(fmt.Errorf("creating cipher: %w", err))
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperror.ErrDecryptionFailure(fmt.Errorf("creating GCM: %w", err))
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, apperror.ErrDecryptionFailure(fmt.Errorf("ciphertext too short"))
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, apperror.ErrDecryptionFailure(fmt.Errorf("decrypting: %w", err))
	}

	return plaintext, nil
}
