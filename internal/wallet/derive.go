package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/pkg/apperror"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/ripemd160"
)

const hardened = uint32(0x80000000)

// BIP-44 coin types per chain. EVM chains share the Ethereum path and
// differ only in address encoding / chain id.
func coinType(chain domain.Chain) uint32 {
	switch chain {
	case domain.ChainBitcoin:
		return 0
	case domain.ChainBitcoinCash:
		return 145
	case domain.ChainEthereum, domain.ChainPolygon:
		return 60
	case domain.ChainSolana:
		return 501
	default:
		return 0
	}
}

// KeyMaterial is the ephemeral output of a derivation. The private key is
// encrypted by the vault immediately after derivation and the plaintext
// zeroed; it must never be persisted or logged.
type KeyMaterial struct {
	Chain      domain.Chain
	Index      uint32
	PrivateKey []byte
	Address    string
}

// Zero overwrites the plaintext private key.
func (k *KeyMaterial) Zero() {
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
}

// SeedFromInput turns caller-supplied secret material into derivation
// entropy. Accepts a BIP-39 mnemonic or a hex-encoded seed of at least
// 16 bytes.
func SeedFromInput(input string) ([]byte, error) {
	if bip39.IsMnemonicValid(input) {
		return bip39.NewSeed(input, ""), nil
	}
	seed, err := hex.DecodeString(input)
	if err != nil {
		return nil, apperror.ErrInvalidSeed(fmt.Errorf("not a mnemonic and not hex: %w", err))
	}
	if len(seed) < 16 {
		return nil, apperror.ErrInvalidSeed(fmt.Errorf("seed too short: %d bytes", len(seed)))
	}
	return seed, nil
}

// Derive computes the private key and public address for (seed, chain,
// index). Pure and deterministic: no network or storage access, the same
// inputs always yield the same outputs.
func Derive(seed []byte, chain domain.Chain, index uint32) (*KeyMaterial, error) {
	if len(seed) < 16 {
		return nil, apperror.ErrInvalidSeed(fmt.Errorf("seed too short: %d bytes", len(seed)))
	}
	if _, ok := domain.ParseChain(string(chain)); !ok {
		return nil, apperror.ErrUnsupportedChain(string(chain))
	}

	path := []uint32{
		44 | hardened,
		coinType(chain) | hardened,
		0 | hardened,
		index | hardened,
	}

	switch chain {
	case domain.ChainSolana:
		return deriveEd25519(seed, chain, index, path)
	default:
		return deriveSecp256k1(seed, chain, index, path)
	}
}

// deriveSecp256k1 walks a hardened-only HMAC-SHA512 key tree (BIP32-style
// private derivation) and encodes the address per chain.
func deriveSecp256k1(seed []byte, chain domain.Chain, index uint32, path []uint32) (*KeyMaterial, error) {
	key, chainCode := masterKey(seed, "Bitcoin seed")
	n := ethcrypto.S256().Params().N

	for _, step := range path {
		il, ir := childKey(chainCode, key, step)
		k := new(big.Int).SetBytes(il)
		k.Add(k, new(big.Int).SetBytes(key))
		k.Mod(k, n)
		if k.Sign() == 0 {
			return nil, apperror.ErrInvalidSeed(fmt.Errorf("derived zero key at step %#x", step))
		}
		key = leftPad32(k.Bytes())
		chainCode = ir
	}

	priv, err := ethcrypto.ToECDSA(key)
	if err != nil {
		return nil, apperror.ErrInvalidSeed(fmt.Errorf("derived key rejected: %w", err))
	}

	var address string
	switch {
	case chain.IsEVM():
		address = ethcrypto.PubkeyToAddress(priv.PublicKey).Hex()
	case chain == domain.ChainBitcoin:
		address = Base58CheckEncode(0x00, hash160(ethcrypto.CompressPubkey(&priv.PublicKey)))
	case chain == domain.ChainBitcoinCash:
		addr, err := CashAddrEncode("bitcoincash", cashAddrP2PKH, hash160(ethcrypto.CompressPubkey(&priv.PublicKey)))
		if err != nil {
			return nil, apperror.InternalError(err)
		}
		address = addr
	default:
		return nil, apperror.ErrUnsupportedChain(string(chain))
	}

	return &KeyMaterial{Chain: chain, Index: index, PrivateKey: key, Address: address}, nil
}

// deriveEd25519 implements SLIP-0010 hardened derivation for ed25519
// chains; the address is the Base58 rendering of the public key.
func deriveEd25519(seed []byte, chain domain.Chain, index uint32, path []uint32) (*KeyMaterial, error) {
	key, chainCode := masterKey(seed, "ed25519 seed")

	for _, step := range path {
		il, ir := childKey(chainCode, key, step)
		key = il
		chainCode = ir
	}

	priv := ed25519.NewKeyFromSeed(key)
	pub := priv.Public().(ed25519.PublicKey)

	return &KeyMaterial{
		Chain:      chain,
		Index:      index,
		PrivateKey: key,
		Address:    Base58Encode(pub),
	}, nil
}

// masterKey computes the root of the key tree from the seed.
func masterKey(seed []byte, curveTag string) (key, chainCode []byte) {
	mac := hmac.New(sha512.New, []byte(curveTag))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// childKey computes one hardened child: HMAC-SHA512(cc, 0x00 || key || ser32(i)).
func childKey(chainCode, key []byte, index uint32) (il, ir []byte) {
	var buf [37]byte
	buf[0] = 0x00
	copy(buf[1:33], key)
	binary.BigEndian.PutUint32(buf[33:], index)

	mac := hmac.New(sha512.New, chainCode)
	mac.Write(buf[:])
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

// hash160 is RIPEMD160(SHA256(data)), the classic UTXO pubkey hash.
func hash160(data []byte) []byte {
	sha := sha256.Sum256(data)
	rip := ripemd160.New()
	rip.Write(sha[:])
	return rip.Sum(nil)
}

// leftPad32 pads a big-endian integer to 32 bytes.
func leftPad32(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
