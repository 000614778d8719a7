package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicKeyBase58RoundTrip(t *testing.T) {
	const s = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	pk, err := PublicKeyFromBase58(s)
	require.NoError(t, err)
	assert.Equal(t, s, pk.String())
}

func TestPublicKeyFromBase58Rejects(t *testing.T) {
	_, err := PublicKeyFromBase58("not-base58-0OIl")
	assert.Error(t, err)

	// Valid base58 but wrong length.
	_, err = PublicKeyFromBase58("abc")
	assert.Error(t, err)
}

func TestSystemProgramIsZero(t *testing.T) {
	assert.True(t, SystemProgramID.IsZero())
	assert.False(t, TokenProgramID.IsZero())
}

func TestFindProgramAddressDeterministic(t *testing.T) {
	program := MustPublicKeyFromBase58("BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG")
	seeds := [][]byte{[]byte("event"), TokenProgramID.Bytes()}

	pk1, bump1, err := FindProgramAddress(seeds, program)
	require.NoError(t, err)
	pk2, bump2, err := FindProgramAddress(seeds, program)
	require.NoError(t, err)

	assert.Equal(t, pk1, pk2)
	assert.Equal(t, bump1, bump2)
	assert.False(t, pk1.IsZero())

	// The canonical PDA must be off the ed25519 curve.
	assert.False(t, pk1.IsOnCurve())
}

func TestFindProgramAddressSeedSensitive(t *testing.T) {
	program := MustPublicKeyFromBase58("BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG")

	a, _, err := FindProgramAddress([][]byte{[]byte("true_mint"), TokenProgramID.Bytes()}, program)
	require.NoError(t, err)
	b, _, err := FindProgramAddress([][]byte{[]byte("false_mint"), TokenProgramID.Bytes()}, program)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// Same seeds under a different program give a different address.
	other := MustPublicKeyFromBase58("FFL71XjBkjq5gce7EtpB7Wa5p8qnRNueLKSzM4tkEMoc")
	c, _, err := FindProgramAddress([][]byte{[]byte("true_mint"), TokenProgramID.Bytes()}, other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestCreateProgramAddressRejectsLongSeed(t *testing.T) {
	program := MustPublicKeyFromBase58("BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG")
	long := make([]byte, MaxSeedLength+1)
	_, err := CreateProgramAddress([][]byte{long}, program)
	assert.Error(t, err)
}
