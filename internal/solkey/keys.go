// Package solkey provides ed25519 keypairs, base58 address codecs and
// program-derived address computation for Solana accounts.
package solkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Pubkey is a 32-byte Solana public key.
type Pubkey [32]byte

// String returns the base58 representation of the key.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns the raw key bytes.
func (p Pubkey) Bytes() []byte {
	return p[:]
}

// IsZero reports whether the key is all zeroes.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// ParsePubkey decodes a base58 address into a Pubkey.
func ParsePubkey(s string) (Pubkey, error) {
	var p Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return p, fmt.Errorf("decode pubkey: %w", err)
	}
	if len(raw) != 32 {
		return p, fmt.Errorf("pubkey must be 32 bytes, got %d", len(raw))
	}
	copy(p[:], raw)
	return p, nil
}

// MustPubkey parses a known-good base58 address and panics otherwise.
// Reserved for package-level program ID constants.
func MustPubkey(s string) Pubkey {
	p, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Keypair holds an ed25519 signing keypair. The mint keypair generated
// per creation run co-signs group 1 to prove ownership of the new
// address.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// KeypairFromSeed restores a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{pub: priv.Public().(ed25519.PublicKey), priv: priv}, nil
}

// KeypairFromBytes restores a keypair from the 64-byte solana-keygen
// format (seed followed by public key).
func KeypairFromBytes(raw []byte) (*Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("keypair must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return KeypairFromSeed(raw[:ed25519.SeedSize])
}

// Pubkey returns the public key.
func (k *Keypair) Pubkey() Pubkey {
	var p Pubkey
	copy(p[:], k.pub)
	return p
}

// Bytes returns the 64-byte solana-keygen representation (seed
// followed by public key).
func (k *Keypair) Bytes() []byte {
	out := make([]byte, ed25519.PrivateKeySize)
	copy(out, k.priv)
	return out
}

// Sign signs a message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}
