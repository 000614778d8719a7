package pda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/solana"
)

var (
	testProgramID = solana.MustPublicKeyFromBase58("BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG")
	testOracleID  = solana.MustPublicKeyFromBase58("FFL71XjBkjq5gce7EtpB7Wa5p8qnRNueLKSzM4tkEMoc")
	testCreator   = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

func newTestDeriver() *Deriver {
	return NewDeriver(testProgramID, testOracleID)
}

func TestEventDerivationDeterministic(t *testing.T) {
	d := newTestDeriver()

	a, err := d.Event(testCreator, 7)
	require.NoError(t, err)
	b, err := d.Event(testCreator, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// A different id or creator produces a different address.
	c, err := d.Event(testCreator, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestPerEventAddressesDistinct(t *testing.T) {
	d := newTestDeriver()
	event, err := d.Event(testCreator, 0)
	require.NoError(t, err)

	vault, err := d.CollateralVault(event)
	require.NoError(t, err)
	authority, err := d.MintAuthority(event)
	require.NoError(t, err)
	trueMint, err := d.TrueMint(event)
	require.NoError(t, err)
	falseMint, err := d.FalseMint(event)
	require.NoError(t, err)

	seen := map[solana.PublicKey]bool{}
	for _, pk := range []solana.PublicKey{event, vault, authority, trueMint, falseMint} {
		assert.False(t, seen[pk], "address %s derived twice", pk)
		seen[pk] = true
	}
}

func TestSideMint(t *testing.T) {
	d := newTestDeriver()
	event, err := d.Event(testCreator, 1)
	require.NoError(t, err)

	trueMint, err := d.TrueMint(event)
	require.NoError(t, err)
	got, err := d.SideMint(event, domain.SideTrue)
	require.NoError(t, err)
	assert.Equal(t, trueMint, got)

	falseMint, err := d.FalseMint(event)
	require.NoError(t, err)
	got, err = d.SideMint(event, domain.SideFalse)
	require.NoError(t, err)
	assert.Equal(t, falseMint, got)

	_, err = d.SideMint(event, domain.SideNone)
	assert.ErrorIs(t, err, domain.ErrInvalidSeedInput)
}

func TestOracleNamespaceSeparate(t *testing.T) {
	d := newTestDeriver()

	market, err := d.Counter(testCreator)
	require.NoError(t, err)
	oracle, err := d.OracleCounter(testCreator)
	require.NoError(t, err)
	assert.NotEqual(t, market, oracle)

	q, err := d.OracleQuestion(testCreator, 3)
	require.NoError(t, err)
	vault, err := d.OracleVault(q)
	require.NoError(t, err)
	assert.NotEqual(t, q, vault)
}

func TestZeroKeyRejected(t *testing.T) {
	d := newTestDeriver()

	_, err := d.Counter(solana.PublicKey{})
	assert.ErrorIs(t, err, domain.ErrInvalidSeedInput)

	_, err = d.Event(solana.PublicKey{}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSeedInput)

	_, err = d.OracleQuestion(solana.PublicKey{}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidSeedInput)

	_, err = AssociatedTokenAccount(solana.PublicKey{}, testCreator)
	assert.ErrorIs(t, err, domain.ErrInvalidSeedInput)
}

func TestAssociatedTokenAccountDeterministic(t *testing.T) {
	d := newTestDeriver()
	event, err := d.Event(testCreator, 2)
	require.NoError(t, err)
	mint, err := d.TrueMint(event)
	require.NoError(t, err)

	a, err := AssociatedTokenAccount(testCreator, mint)
	require.NoError(t, err)
	b, err := AssociatedTokenAccount(testCreator, mint)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.False(t, a.IsOnCurve())

	// Owner and mint both bind the derivation.
	falseMint, err := d.FalseMint(event)
	require.NoError(t, err)
	c, err := AssociatedTokenAccount(testCreator, falseMint)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
