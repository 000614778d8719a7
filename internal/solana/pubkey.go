// Package solana is the platform layer for talking to a Solana cluster:
// public keys and program-derived addresses, legacy transaction encoding,
// a JSON-RPC client, a websocket subscription client, and an ed25519
// wallet signer.
package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the byte length of an ed25519 public key.
const PublicKeyLength = 32

// MaxSeedLength is the byte limit the runtime enforces on a single PDA seed.
const MaxSeedLength = 32

// MaxSeeds is the maximum number of seeds (including the bump) in one
// derivation.
const MaxSeeds = 16

// pdaMarker is appended to the hash input when deriving a program address.
var pdaMarker = []byte("ProgramDerivedAddress")

// PublicKey is a 32-byte Solana account address.
type PublicKey [PublicKeyLength]byte

// Well-known program and sysvar addresses.
var (
	SystemProgramID           = MustPublicKeyFromBase58("11111111111111111111111111111111")
	TokenProgramID            = MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID  = MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SysvarRentID              = MustPublicKeyFromBase58("SysvarRent111111111111111111111111111111111")
)

// PublicKeyFromBase58 parses a base58-encoded address.
func PublicKeyFromBase58(s string) (PublicKey, error) {
	var pk PublicKey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("solana: decode pubkey %q: %w", s, err)
	}
	if len(raw) != PublicKeyLength {
		return pk, fmt.Errorf("solana: pubkey %q: expected %d bytes, got %d", s, PublicKeyLength, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPublicKeyFromBase58 parses a base58 address and panics on failure. Use
// only for compile-time constants.
func MustPublicKeyFromBase58(s string) PublicKey {
	pk, err := PublicKeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PublicKeyFromBytes copies b into a PublicKey. b must be exactly 32 bytes.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeyLength {
		return pk, fmt.Errorf("solana: expected %d pubkey bytes, got %d", PublicKeyLength, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// String returns the base58 encoding of the key.
func (pk PublicKey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns the raw 32 bytes of the key.
func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

// IsZero reports whether the key is the all-zero address (the system
// program id doubles as the conventional "unset" value in account data).
func (pk PublicKey) IsZero() bool {
	var zero PublicKey
	return pk == zero
}

// Equals reports byte equality with other.
func (pk PublicKey) Equals(other PublicKey) bool {
	return pk == other
}

// IsOnCurve reports whether the key decodes to a valid ed25519 curve point.
// Program-derived addresses must NOT be on the curve, so no private key can
// ever exist for them.
func (pk PublicKey) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(pk[:])
	return err == nil
}

// CreateProgramAddress derives the program address for the given seeds
// without searching for a bump. It fails when the candidate lands on the
// ed25519 curve, which callers handle by trying the next bump.
func CreateProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return PublicKey{}, fmt.Errorf("solana: too many seeds: %d > %d", len(seeds), MaxSeeds)
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return PublicKey{}, fmt.Errorf("solana: seed length %d exceeds %d bytes", len(seed), MaxSeedLength)
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write(pdaMarker)

	var candidate PublicKey
	copy(candidate[:], h.Sum(nil))

	if candidate.IsOnCurve() {
		return PublicKey{}, fmt.Errorf("solana: derived address falls on the ed25519 curve")
	}
	return candidate, nil
}

// FindProgramAddress searches bump seeds from 255 down to 0 and returns the
// first off-curve derivation together with the bump that produced it. This
// is the canonical PDA for (seeds, programID) and matches what the on-chain
// runtime computes.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (PublicKey, uint8, error) {
	bumped := make([][]byte, len(seeds)+1)
	copy(bumped, seeds)

	for bump := 255; bump >= 0; bump-- {
		bumped[len(seeds)] = []byte{uint8(bump)}
		pk, err := CreateProgramAddress(bumped, programID)
		if err == nil {
			return pk, uint8(bump), nil
		}
	}
	return PublicKey{}, 0, fmt.Errorf("solana: no valid program address for seeds")
}
