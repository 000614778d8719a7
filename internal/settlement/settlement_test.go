package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/predictsol/predictsol-go/internal/domain"
)

func TestMaxPairRedeemable(t *testing.T) {
	assert.Equal(t, uint64(3_000_000_000), MaxPairRedeemable(domain.UserPosition{
		TrueUnits:  5_000_000_000,
		FalseUnits: 3_000_000_000,
	}))
	assert.Equal(t, uint64(3_000_000_000), MaxPairRedeemable(domain.UserPosition{
		TrueUnits:  3_000_000_000,
		FalseUnits: 5_000_000_000,
	}))
	assert.Equal(t, uint64(0), MaxPairRedeemable(domain.UserPosition{TrueUnits: 5}))
	assert.Equal(t, uint64(0), MaxPairRedeemable(domain.UserPosition{}))
}

func TestWinnerRedeemable(t *testing.T) {
	pos := domain.UserPosition{TrueUnits: 7, FalseUnits: 2}

	assert.Equal(t, uint64(7), WinnerRedeemable(pos, domain.ResultWinner, domain.SideTrue))
	assert.Equal(t, uint64(2), WinnerRedeemable(pos, domain.ResultWinner, domain.SideFalse))

	// No winner means no winner rate, whatever the holdings.
	assert.Equal(t, uint64(0), WinnerRedeemable(pos, domain.ResultTie, domain.SideTrue))
	assert.Equal(t, uint64(0), WinnerRedeemable(pos, domain.ResultNoVotes, domain.SideTrue))
	assert.Equal(t, uint64(0), WinnerRedeemable(pos, domain.ResultUnresolved, domain.SideTrue))
}

func TestPendingCommissions(t *testing.T) {
	e := &domain.EventSnapshot{
		PendingCreatorCommission: 90,
		PendingHouseCommission:   45,
	}
	assert.Equal(t, uint64(90), PendingCreatorCommission(e))
	assert.Equal(t, uint64(45), PendingHouseCommission(e))
}

func TestSweepEligible(t *testing.T) {
	p := Params{SweepDelaySeconds: 100, DustToleranceLamports: 10}
	const rentFloor = 2_000_000

	base := func() *domain.EventSnapshot {
		return &domain.EventSnapshot{
			Resolved:      true,
			ResolvedAt:    1000,
			VaultLamports: rentFloor + 500,
		}
	}

	assert.False(t, SweepEligible(base(), 1099, p, rentFloor), "grace period not elapsed")
	assert.True(t, SweepEligible(base(), 1100, p, rentFloor))

	// Once eligible, eligibility never lapses with more time.
	assert.True(t, SweepEligible(base(), 1_000_000, p, rentFloor))

	unresolved := base()
	unresolved.Resolved = false
	assert.False(t, SweepEligible(unresolved, 1100, p, rentFloor))

	swept := base()
	swept.UnclaimedSwept = true
	assert.False(t, SweepEligible(swept, 1100, p, rentFloor))

	drained := base()
	drained.VaultLamports = rentFloor
	assert.False(t, SweepEligible(drained, 1100, p, rentFloor), "nothing above the rent floor to sweep")
}

func TestDeleteEligible(t *testing.T) {
	p := Params{DustToleranceLamports: 10}
	const rentFloor = 2_000_000

	base := func() *domain.EventSnapshot {
		return &domain.EventSnapshot{
			Resolved:      true,
			VaultLamports: rentFloor,
		}
	}

	assert.True(t, DeleteEligible(base(), p, rentFloor))

	// Dust tolerance is inclusive: exactly floor+tolerance still deletes,
	// one lamport more does not.
	dusty := base()
	dusty.VaultLamports = rentFloor + p.DustToleranceLamports
	assert.True(t, DeleteEligible(dusty, p, rentFloor))
	dusty.VaultLamports = rentFloor + p.DustToleranceLamports + 1
	assert.False(t, DeleteEligible(dusty, p, rentFloor))

	// Unsettled commissions block deletion.
	owed := base()
	owed.PendingCreatorCommission = 1
	assert.False(t, DeleteEligible(owed, p, rentFloor))
	owed = base()
	owed.PendingHouseCommission = 1
	assert.False(t, DeleteEligible(owed, p, rentFloor))

	// Outstanding tokens block deletion until the sweep has run.
	outstanding := base()
	outstanding.OutstandingTrueUnits = 5
	assert.False(t, DeleteEligible(outstanding, p, rentFloor))
	outstanding.UnclaimedSwept = true
	assert.True(t, DeleteEligible(outstanding, p, rentFloor))
}
