package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/settlement"
	"github.com/predictsol/predictsol-go/internal/solana"
)

var questionKey = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

func activeEvent() *domain.EventSnapshot {
	return &domain.EventSnapshot{
		OracleQuestion: questionKey,
		BetEndTime:     1000,
		CommitEndTime:  2000,
		RevealEndTime:  3000,
	}
}

func resolvedEvent(status domain.ResultStatus, winner domain.Side) *domain.EventSnapshot {
	e := activeEvent()
	e.Resolved = true
	e.ResultStatus = status
	e.WinningSide = winner
	e.ResolvedAt = 3100
	return e
}

func question(revealEnd int64) *domain.QuestionSnapshot {
	return &domain.QuestionSnapshot{CommitEndTime: 2000, RevealEndTime: revealEnd}
}

func TestPhaseOf(t *testing.T) {
	e := activeEvent()
	assert.Equal(t, PhaseActive, PhaseOf(e, 999))
	assert.Equal(t, PhaseAwaitingFinalization, PhaseOf(e, 1000))
	assert.Equal(t, PhaseAwaitingFinalization, PhaseOf(e, 5000))

	assert.Equal(t, PhaseResolvedWinner, PhaseOf(resolvedEvent(domain.ResultWinner, domain.SideTrue), 5000))
	assert.Equal(t, PhaseResolvedNoVotes, PhaseOf(resolvedEvent(domain.ResultNoVotes, domain.SideNone), 5000))
	assert.Equal(t, PhaseResolvedTie, PhaseOf(resolvedEvent(domain.ResultTie, domain.SideNone), 5000))
	assert.Equal(t, PhaseResolvedBelowThresh, PhaseOf(resolvedEvent(domain.ResultBelowThreshold, domain.SideNone), 5000))

	// Resolution wins over the clock: a resolved event is never active,
	// whatever the timestamps say.
	early := resolvedEvent(domain.ResultWinner, domain.SideTrue)
	assert.Equal(t, PhaseResolvedWinner, PhaseOf(early, 0))
}

func TestPhaseResolved(t *testing.T) {
	assert.False(t, PhaseActive.Resolved())
	assert.False(t, PhaseAwaitingFinalization.Resolved())
	assert.True(t, PhaseResolvedWinner.Resolved())
	assert.True(t, PhaseResolvedTie.Resolved())
}

func TestCheckBuy(t *testing.T) {
	e := activeEvent()
	q := question(3000)

	assert.NoError(t, CheckBuy(e, q, 500))

	// Closed betting window.
	err := CheckBuy(e, q, 1000)
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, string(domain.ActionBuy), illegal.Action)

	// No linked oracle question.
	unlinked := activeEvent()
	unlinked.OracleQuestion = solana.PublicKey{}
	assert.Error(t, CheckBuy(unlinked, q, 500))

	// Question not loaded.
	assert.Error(t, CheckBuy(e, nil, 500))
}

func TestCheckRedeemPair(t *testing.T) {
	e := activeEvent()
	assert.NoError(t, CheckRedeemPair(e, 500))
	assert.Error(t, CheckRedeemPair(e, 1000))
	assert.Error(t, CheckRedeemPair(resolvedEvent(domain.ResultWinner, domain.SideTrue), 500))
}

func TestCanFinalize(t *testing.T) {
	e := activeEvent()

	// Betting still open.
	assert.False(t, CanFinalize(e, question(3000), 500))

	// Betting closed but the oracle reveal window still open.
	assert.False(t, CanFinalize(e, question(3000), 2500))

	// Reveal window closed: finalize becomes legal.
	assert.True(t, CanFinalize(e, question(3000), 3000))
	assert.True(t, CanFinalize(e, question(3000), 9000))

	// Already resolved.
	assert.False(t, CanFinalize(resolvedEvent(domain.ResultWinner, domain.SideTrue), question(3000), 9000))

	// Missing question.
	assert.False(t, CanFinalize(e, nil, 9000))
}

func TestCheckRedeemWinner(t *testing.T) {
	winner := resolvedEvent(domain.ResultWinner, domain.SideTrue)

	assert.NoError(t, CheckRedeemWinner(winner, domain.SideTrue, 5000))

	// The losing side redeems nothing at the winner rate.
	err := CheckRedeemWinner(winner, domain.SideFalse, 5000)
	var illegal *domain.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Contains(t, illegal.Reason, "did not win")

	// No winner resolution has no winner rate at all.
	assert.Error(t, CheckRedeemWinner(resolvedEvent(domain.ResultTie, domain.SideNone), domain.SideTrue, 5000))

	// Unresolved.
	assert.Error(t, CheckRedeemWinner(activeEvent(), domain.SideTrue, 500))
}

func TestCheckRedeemNoWinner(t *testing.T) {
	tie := resolvedEvent(domain.ResultTie, domain.SideNone)

	assert.NoError(t, CheckRedeemNoWinner(tie, domain.SideTrue, 5000))
	assert.NoError(t, CheckRedeemNoWinner(tie, domain.SideFalse, 5000))
	assert.Error(t, CheckRedeemNoWinner(tie, domain.SideNone, 5000))

	// A winner resolution routes holders to the winner redemption instead.
	assert.Error(t, CheckRedeemNoWinner(resolvedEvent(domain.ResultWinner, domain.SideTrue), domain.SideTrue, 5000))
	assert.Error(t, CheckRedeemNoWinner(activeEvent(), domain.SideTrue, 500))
}

func TestCheckClaimCommission(t *testing.T) {
	e := resolvedEvent(domain.ResultWinner, domain.SideTrue)
	e.PendingCreatorCommission = 90_000_000
	assert.NoError(t, CheckClaimCommission(e, 5000))

	e.PendingCreatorCommission = 0
	assert.Error(t, CheckClaimCommission(e, 5000))

	assert.Error(t, CheckClaimCommission(activeEvent(), 500))
}

func TestCheckSweep(t *testing.T) {
	p := settlement.Params{SweepDelaySeconds: 100, DustToleranceLamports: 10}
	const rentFloor = 2_000_000

	e := resolvedEvent(domain.ResultWinner, domain.SideTrue)
	e.VaultLamports = rentFloor + 1_000_000

	// Before the grace period elapses.
	assert.Error(t, CheckSweep(e, e.ResolvedAt+50, p, rentFloor))

	// After the grace period.
	assert.NoError(t, CheckSweep(e, e.ResolvedAt+100, p, rentFloor))

	// Pending creator commission blocks the sweep outright.
	owed := resolvedEvent(domain.ResultWinner, domain.SideTrue)
	owed.VaultLamports = rentFloor + 1_000_000
	owed.PendingCreatorCommission = 1
	assert.Error(t, CheckSweep(owed, owed.ResolvedAt+100, p, rentFloor))

	assert.Error(t, CheckSweep(activeEvent(), 500, p, rentFloor))
}

func TestCheckDelete(t *testing.T) {
	p := settlement.Params{SweepDelaySeconds: 100, DustToleranceLamports: 10}
	const rentFloor = 2_000_000

	e := resolvedEvent(domain.ResultWinner, domain.SideTrue)
	e.VaultLamports = rentFloor
	assert.NoError(t, CheckDelete(e, 5000, p, rentFloor))

	// Vault above the floor plus dust tolerance.
	e.VaultLamports = rentFloor + p.DustToleranceLamports + 1
	assert.Error(t, CheckDelete(e, 5000, p, rentFloor))

	assert.Error(t, CheckDelete(activeEvent(), 500, p, rentFloor))
}
