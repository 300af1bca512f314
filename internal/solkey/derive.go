package solkey

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
)

// Well-known program IDs used by the creation pipeline.
var (
	SystemProgramID          = MustPubkey("11111111111111111111111111111111")
	TokenProgramID           = MustPubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = MustPubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	MetadataProgramID        = MustPubkey("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	SysvarRentID             = MustPubkey("SysvarRent111111111111111111111111111111111")
)

const pdaMarker = "ProgramDerivedAddress"

// maxSeedBump is the starting bump seed for PDA derivation.
const maxSeedBump = 255

// isOnCurve reports whether 32 bytes decode to a valid curve point.
// Program-derived addresses must NOT be on the curve, so derivation
// rejects candidates that decode successfully.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// createProgramAddress hashes seeds with the program ID and PDA marker.
// Fails if the result lands on the ed25519 curve.
func createProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, error) {
	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > 32 {
			return Pubkey{}, fmt.Errorf("seed exceeds 32 bytes")
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var p Pubkey
	copy(p[:], h.Sum(nil))
	if isOnCurve(p[:]) {
		return Pubkey{}, fmt.Errorf("address is on curve")
	}
	return p, nil
}

// FindProgramAddress derives a program address by searching bump seeds
// from 255 downward until an off-curve address is found.
func FindProgramAddress(seeds [][]byte, programID Pubkey) (Pubkey, uint8, error) {
	for bump := maxSeedBump; bump >= 0; bump-- {
		trial := append(seeds[:len(seeds):len(seeds)], []byte{byte(bump)})
		addr, err := createProgramAddress(trial, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
	}
	return Pubkey{}, 0, fmt.Errorf("no viable program address for seeds")
}

// AssociatedTokenAddress derives the deterministic per-owner token
// account for a mint.
func AssociatedTokenAddress(owner, mint Pubkey) (Pubkey, error) {
	addr, _, err := FindProgramAddress(
		[][]byte{owner[:], TokenProgramID[:], mint[:]},
		AssociatedTokenProgramID,
	)
	if err != nil {
		return Pubkey{}, fmt.Errorf("derive associated token address: %w", err)
	}
	return addr, nil
}

// MetadataAddress derives the metadata account for a mint.
func MetadataAddress(mint Pubkey) (Pubkey, error) {
	addr, _, err := FindProgramAddress(
		[][]byte{[]byte("metadata"), MetadataProgramID[:], mint[:]},
		MetadataProgramID,
	)
	if err != nil {
		return Pubkey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}
