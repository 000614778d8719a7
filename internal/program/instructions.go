// Package program builds the instructions consumed from the market and
// oracle programs. Every account list is derived here from the address
// deriver plus the caller's identity; no caller-supplied address ever
// bypasses derivation.
package program

import (
	"fmt"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/pda"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Instruction names as the on-chain programs declare them. The
// discriminators are derived from these strings, so they must match the
// deployed handlers exactly.
const (
	ixInitializeEventCounter   = "initialize_event_counter"
	ixCreateEventCore          = "create_event_core"
	ixCreateEventMints         = "create_event_mints"
	ixBuyPositionsWithFee      = "buy_positions_with_fee"
	ixRedeemPairWhileActive    = "redeem_pair_while_active"
	ixFetchAndStoreWinner      = "fetch_and_store_winner"
	ixRedeemWinnerAfterFinal   = "redeem_winner_after_final"
	ixRedeemNoWinnerAfterFinal = "redeem_no_winner_after_final"
	ixClaimCreatorCommission   = "claim_creator_commission"
	ixSweepUnclaimedToHouse    = "sweep_unclaimed_to_house"
	ixDeleteEvent              = "delete_event"

	ixOracleInitializeCounter = "initialize_counter"
	ixOracleCreateQuestion    = "create_question"
)

// Builder assembles instructions against one deployment of the market and
// oracle programs.
type Builder struct {
	deriver       *pda.Deriver
	houseTreasury solana.PublicKey
}

// NewBuilder creates a Builder. houseTreasury receives protocol fees and
// swept unclaimed funds.
func NewBuilder(deriver *pda.Deriver, houseTreasury solana.PublicKey) *Builder {
	return &Builder{deriver: deriver, houseTreasury: houseTreasury}
}

// InitializeEventCounter creates the creator's event counter at zero.
func (b *Builder) InitializeEventCounter(creator solana.PublicKey) (solana.Instruction, error) {
	counter, err := b.deriver.Counter(creator)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(creator, true, true),
			solana.Meta(counter, false, true),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixInitializeEventCounter)).Bytes(),
	}, nil
}

// CreateEventCoreParams are the arguments of the event-creation core step.
// Times are unix seconds and must satisfy BetEnd < CommitEnd < RevealEnd.
type CreateEventCoreParams struct {
	Title          string
	Category       string
	BetEndTime     int64
	CommitEndTime  int64
	RevealEndTime  int64
	OracleQuestion solana.PublicKey // zero key means "not linked yet"
}

// CreateEventCore writes the event record for the counter's current value.
// eventID must be the counter value read immediately before building.
func (b *Builder) CreateEventCore(creator solana.PublicKey, eventID uint64, p CreateEventCoreParams) (solana.Instruction, error) {
	if p.BetEndTime >= p.CommitEndTime || p.CommitEndTime >= p.RevealEndTime {
		return solana.Instruction{}, fmt.Errorf("%w: phase times must be strictly increasing", domain.ErrInvalidSeedInput)
	}
	counter, err := b.deriver.Counter(creator)
	if err != nil {
		return solana.Instruction{}, err
	}
	event, err := b.deriver.Event(creator, eventID)
	if err != nil {
		return solana.Instruction{}, err
	}
	data := newArgEncoder(InstructionDiscriminator(ixCreateEventCore)).
		String(p.Title).
		String(p.Category).
		I64(p.BetEndTime).
		I64(p.CommitEndTime).
		I64(p.RevealEndTime).
		OptionPubkey(p.OracleQuestion).
		Bytes()
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(creator, true, true),
			solana.Meta(counter, false, true),
			solana.Meta(event, false, true),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: data,
	}, nil
}

// CreateEventMints creates the event's collateral vault and both outcome
// mints, and stores their addresses back into the event record.
func (b *Builder) CreateEventMints(creator, event solana.PublicKey) (solana.Instruction, error) {
	mintAuthority, err := b.deriver.MintAuthority(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	trueMint, err := b.deriver.TrueMint(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	falseMint, err := b.deriver.FalseMint(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	vault, err := b.deriver.CollateralVault(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(creator, true, true),
			solana.Meta(event, false, true),
			solana.Meta(mintAuthority, false, false),
			solana.Meta(trueMint, false, true),
			solana.Meta(falseMint, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(solana.TokenProgramID, false, false),
			solana.Meta(solana.SystemProgramID, false, false),
			solana.Meta(solana.SysvarRentID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixCreateEventMints)).Bytes(),
	}, nil
}

// BuyPositionsWithFee deposits lamports into the vault, takes the protocol
// fee, and mints an equal amount of both outcome tokens to the buyer.
func (b *Builder) BuyPositionsWithFee(user, event solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	vault, err := b.deriver.CollateralVault(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	mintAuthority, err := b.deriver.MintAuthority(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	trueMint, err := b.deriver.TrueMint(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	falseMint, err := b.deriver.FalseMint(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	userTrueAta, err := pda.AssociatedTokenAccount(user, trueMint)
	if err != nil {
		return solana.Instruction{}, err
	}
	userFalseAta, err := pda.AssociatedTokenAccount(user, falseMint)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(user, true, true),
			solana.Meta(event, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(mintAuthority, false, false),
			solana.Meta(trueMint, false, true),
			solana.Meta(falseMint, false, true),
			solana.Meta(userTrueAta, false, true),
			solana.Meta(userFalseAta, false, true),
			solana.Meta(b.houseTreasury, false, true),
			solana.Meta(solana.TokenProgramID, false, false),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixBuyPositionsWithFee)).U64(lamports).Bytes(),
	}, nil
}

// RedeemPairWhileActive burns unitAmount of each side and returns the
// backing collateral minus the fee, legal only during the betting phase.
func (b *Builder) RedeemPairWhileActive(user, event solana.PublicKey, unitAmount uint64) (solana.Instruction, error) {
	vault, err := b.deriver.CollateralVault(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	trueMint, err := b.deriver.TrueMint(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	falseMint, err := b.deriver.FalseMint(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	userTrueAta, err := pda.AssociatedTokenAccount(user, trueMint)
	if err != nil {
		return solana.Instruction{}, err
	}
	userFalseAta, err := pda.AssociatedTokenAccount(user, falseMint)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(user, true, true),
			solana.Meta(event, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(trueMint, false, true),
			solana.Meta(falseMint, false, true),
			solana.Meta(userTrueAta, false, true),
			solana.Meta(userFalseAta, false, true),
			solana.Meta(solana.TokenProgramID, false, false),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixRedeemPairWhileActive)).U64(unitAmount).Bytes(),
	}, nil
}

// FetchAndStoreWinner reads the linked oracle question's tallies and writes
// the resolution fields into the event, once and irreversibly.
func (b *Builder) FetchAndStoreWinner(event, oracleQuestion solana.PublicKey) (solana.Instruction, error) {
	if oracleQuestion.IsZero() {
		return solana.Instruction{}, domain.ErrNoOracleQuestion
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(event, false, true),
			solana.Meta(oracleQuestion, false, false),
			solana.Meta(b.deriver.OracleProgramID(), false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixFetchAndStoreWinner)).Bytes(),
	}, nil
}

// RedeemWinnerAfterFinal burns unitAmount of the winning side and pays out
// at the full rate.
func (b *Builder) RedeemWinnerAfterFinal(user, event solana.PublicKey, winningSide domain.Side, unitAmount uint64) (solana.Instruction, error) {
	mint, err := b.deriver.SideMint(event, winningSide)
	if err != nil {
		return solana.Instruction{}, err
	}
	return b.redeemAfterFinal(ixRedeemWinnerAfterFinal, user, event, mint, func(e *argEncoder) {
		e.U64(unitAmount)
	})
}

// RedeemNoWinnerAfterFinal burns unitAmount of either side at the reduced
// symmetric rate used when the event resolved without a winner.
func (b *Builder) RedeemNoWinnerAfterFinal(user, event solana.PublicKey, side domain.Side, unitAmount uint64) (solana.Instruction, error) {
	mint, err := b.deriver.SideMint(event, side)
	if err != nil {
		return solana.Instruction{}, err
	}
	return b.redeemAfterFinal(ixRedeemNoWinnerAfterFinal, user, event, mint, func(e *argEncoder) {
		e.U8(uint8(side)).U64(unitAmount)
	})
}

func (b *Builder) redeemAfterFinal(name string, user, event, mint solana.PublicKey, args func(*argEncoder)) (solana.Instruction, error) {
	vault, err := b.deriver.CollateralVault(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	userAta, err := pda.AssociatedTokenAccount(user, mint)
	if err != nil {
		return solana.Instruction{}, err
	}
	enc := newArgEncoder(InstructionDiscriminator(name))
	args(enc)
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(user, true, true),
			solana.Meta(event, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(mint, false, true),
			solana.Meta(userAta, false, true),
			solana.Meta(solana.TokenProgramID, false, false),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: enc.Bytes(),
	}, nil
}

// ClaimCreatorCommission pays the event's accrued creator commission out of
// the vault. The program zeroes the pending field, so the claim is
// naturally once-only.
func (b *Builder) ClaimCreatorCommission(creator, event solana.PublicKey) (solana.Instruction, error) {
	vault, err := b.deriver.CollateralVault(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(creator, true, true),
			solana.Meta(event, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixClaimCreatorCommission)).Bytes(),
	}, nil
}

// SweepUnclaimedToHouse moves unclaimed settled funds from the vault to
// the house treasury after the post-resolution grace period.
func (b *Builder) SweepUnclaimedToHouse(authority, event solana.PublicKey) (solana.Instruction, error) {
	vault, err := b.deriver.CollateralVault(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(authority, true, true),
			solana.Meta(event, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(b.houseTreasury, false, true),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixSweepUnclaimedToHouse)).Bytes(),
	}, nil
}

// DeleteEvent closes the event and vault accounts, returning their rent to
// the creator. Legal only once the vault is drained to the rent floor.
func (b *Builder) DeleteEvent(creator, event solana.PublicKey) (solana.Instruction, error) {
	vault, err := b.deriver.CollateralVault(event)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(creator, true, true),
			solana.Meta(event, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixDeleteEvent)).Bytes(),
	}, nil
}

// OracleInitializeCounter creates the asker's question counter in the
// oracle program.
func (b *Builder) OracleInitializeCounter(asker solana.PublicKey) (solana.Instruction, error) {
	counter, err := b.deriver.OracleCounter(asker)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: b.deriver.OracleProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(counter, false, true),
			solana.Meta(asker, true, true),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: newArgEncoder(InstructionDiscriminator(ixOracleInitializeCounter)).Bytes(),
	}, nil
}

// OracleCreateQuestion creates the commit-reveal question the event will be
// pegged to, funding its reward vault with rewardLamports.
func (b *Builder) OracleCreateQuestion(asker solana.PublicKey, questionID uint64, title string, rewardLamports uint64, commitEnd, revealEnd int64) (solana.Instruction, error) {
	counter, err := b.deriver.OracleCounter(asker)
	if err != nil {
		return solana.Instruction{}, err
	}
	question, err := b.deriver.OracleQuestion(asker, questionID)
	if err != nil {
		return solana.Instruction{}, err
	}
	vault, err := b.deriver.OracleVault(question)
	if err != nil {
		return solana.Instruction{}, err
	}
	data := newArgEncoder(InstructionDiscriminator(ixOracleCreateQuestion)).
		String(title).
		U64(rewardLamports).
		I64(commitEnd).
		I64(revealEnd).
		Bytes()
	return solana.Instruction{
		ProgramID: b.deriver.OracleProgramID(),
		Accounts: []solana.AccountMeta{
			solana.Meta(asker, true, true),
			solana.Meta(counter, false, true),
			solana.Meta(question, false, true),
			solana.Meta(vault, false, true),
			solana.Meta(solana.SystemProgramID, false, false),
		},
		Data: data,
	}, nil
}

// CreateAssociatedTokenAccount creates owner's associated token account for
// mint, paid for by payer. The associated-token program makes this
// idempotent-unfriendly: creating an existing account fails, so callers
// check existence first.
func CreateAssociatedTokenAccount(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := pda.AssociatedTokenAccount(owner, mint)
	if err != nil {
		return solana.Instruction{}, err
	}
	return solana.Instruction{
		ProgramID: solana.AssociatedTokenProgramID,
		Accounts: []solana.AccountMeta{
			solana.Meta(payer, true, true),
			solana.Meta(ata, false, true),
			solana.Meta(owner, false, false),
			solana.Meta(mint, false, false),
			solana.Meta(solana.SystemProgramID, false, false),
			solana.Meta(solana.TokenProgramID, false, false),
		},
		Data: nil,
	}, nil
}
