// Package pda computes the deterministic program-derived addresses shared
// between this client and the on-chain programs. The seed strings and seed
// ordering here are part of the wire contract: any change breaks
// compatibility with accounts that already exist on chain.
package pda

import (
	"encoding/binary"
	"fmt"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Seed tags of the market program's namespace.
const (
	seedEventCounter    = "event_counter"
	seedEvent           = "event"
	seedCollateralVault = "collateral_vault"
	seedMintAuthority   = "mint_authority"
	seedTrueMint        = "true_mint"
	seedFalseMint       = "false_mint"
)

// Seed tags of the oracle program's namespace. Structurally identical to
// the market namespace but scoped to the oracle program id.
const (
	seedQuestionCounter = "question_counter"
	seedQuestion        = "question"
	seedQuestionVault   = "vault"
)

// Deriver computes every program-owned address this client needs. It is
// pure: identical inputs always produce identical addresses, in this
// process or any other.
type Deriver struct {
	programID       solana.PublicKey
	oracleProgramID solana.PublicKey
}

// NewDeriver creates a Deriver bound to the market and oracle program ids.
func NewDeriver(programID, oracleProgramID solana.PublicKey) *Deriver {
	return &Deriver{programID: programID, oracleProgramID: oracleProgramID}
}

// ProgramID returns the market program id.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// OracleProgramID returns the oracle program id.
func (d *Deriver) OracleProgramID() solana.PublicKey {
	return d.oracleProgramID
}

// u64LE returns id as the 8-byte little-endian seed the programs expect.
func u64LE(id uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], id)
	return b[:]
}

func (d *Deriver) find(programID solana.PublicKey, seeds ...[]byte) (solana.PublicKey, error) {
	for _, seed := range seeds {
		if len(seed) == 0 {
			return solana.PublicKey{}, fmt.Errorf("%w: empty seed", domain.ErrInvalidSeedInput)
		}
	}
	pk, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", domain.ErrInvalidSeedInput, err)
	}
	return pk, nil
}

// Counter derives the per-creator monotonic event counter.
func (d *Deriver) Counter(creator solana.PublicKey) (solana.PublicKey, error) {
	if creator.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero creator key", domain.ErrInvalidSeedInput)
	}
	return d.find(d.programID, []byte(seedEventCounter), creator.Bytes())
}

// Event derives the event record for (creator, eventID).
func (d *Deriver) Event(creator solana.PublicKey, eventID uint64) (solana.PublicKey, error) {
	if creator.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero creator key", domain.ErrInvalidSeedInput)
	}
	return d.find(d.programID, []byte(seedEvent), creator.Bytes(), u64LE(eventID))
}

// CollateralVault derives the event's pooled-collateral account.
func (d *Deriver) CollateralVault(event solana.PublicKey) (solana.PublicKey, error) {
	return d.find(d.programID, []byte(seedCollateralVault), event.Bytes())
}

// MintAuthority derives the PDA that signs mint operations for the event.
func (d *Deriver) MintAuthority(event solana.PublicKey) (solana.PublicKey, error) {
	return d.find(d.programID, []byte(seedMintAuthority), event.Bytes())
}

// TrueMint derives the event's TRUE-side token mint.
func (d *Deriver) TrueMint(event solana.PublicKey) (solana.PublicKey, error) {
	return d.find(d.programID, []byte(seedTrueMint), event.Bytes())
}

// FalseMint derives the event's FALSE-side token mint.
func (d *Deriver) FalseMint(event solana.PublicKey) (solana.PublicKey, error) {
	return d.find(d.programID, []byte(seedFalseMint), event.Bytes())
}

// SideMint derives the mint for the given side.
func (d *Deriver) SideMint(event solana.PublicKey, side domain.Side) (solana.PublicKey, error) {
	switch side {
	case domain.SideTrue:
		return d.TrueMint(event)
	case domain.SideFalse:
		return d.FalseMint(event)
	default:
		return solana.PublicKey{}, fmt.Errorf("%w: side %d has no mint", domain.ErrInvalidSeedInput, side)
	}
}

// OracleCounter derives the asker's question counter in the oracle
// program's namespace.
func (d *Deriver) OracleCounter(asker solana.PublicKey) (solana.PublicKey, error) {
	if asker.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero asker key", domain.ErrInvalidSeedInput)
	}
	return d.find(d.oracleProgramID, []byte(seedQuestionCounter), asker.Bytes())
}

// OracleQuestion derives the oracle question record for (asker, questionID).
func (d *Deriver) OracleQuestion(asker solana.PublicKey, questionID uint64) (solana.PublicKey, error) {
	if asker.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero asker key", domain.ErrInvalidSeedInput)
	}
	return d.find(d.oracleProgramID, []byte(seedQuestion), asker.Bytes(), u64LE(questionID))
}

// OracleVault derives the reward vault of an oracle question.
func (d *Deriver) OracleVault(question solana.PublicKey) (solana.PublicKey, error) {
	return d.find(d.oracleProgramID, []byte(seedQuestionVault), question.Bytes())
}

// AssociatedTokenAccount derives the owner's associated token account for
// mint: the token ecosystem's standard derivation of (owner, token program,
// mint) under the associated-token program.
func AssociatedTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	if owner.IsZero() || mint.IsZero() {
		return solana.PublicKey{}, fmt.Errorf("%w: zero owner or mint key", domain.ErrInvalidSeedInput)
	}
	pk, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), solana.TokenProgramID.Bytes(), mint.Bytes()},
		solana.AssociatedTokenProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %v", domain.ErrInvalidSeedInput, err)
	}
	return pk, nil
}
