// Package settlement computes claimable amounts and cleanup eligibility
// from account snapshots. Everything here is a pure function over integer
// base units; no floating point ever touches eligibility math.
package settlement

import (
	"github.com/predictsol/predictsol-go/internal/domain"
)

// Params are the protocol's settlement constants.
type Params struct {
	// SweepDelaySeconds is the grace period after resolution before
	// unclaimed funds may be swept to the house treasury.
	SweepDelaySeconds int64

	// DustToleranceLamports is the rounding slack allowed when comparing
	// the vault balance against the rent floor for deletion.
	DustToleranceLamports uint64
}

// PendingCreatorCommission returns the creator's claimable commission.
// Zero means nothing to claim, not an error.
func PendingCreatorCommission(e *domain.EventSnapshot) uint64 {
	return e.PendingCreatorCommission
}

// PendingHouseCommission returns the house's claimable commission.
func PendingHouseCommission(e *domain.EventSnapshot) uint64 {
	return e.PendingHouseCommission
}

// MaxPairRedeemable returns the largest unit amount redeemable as a
// matched TRUE+FALSE pair: the smaller of the two balances.
func MaxPairRedeemable(pos domain.UserPosition) uint64 {
	if pos.TrueUnits < pos.FalseUnits {
		return pos.TrueUnits
	}
	return pos.FalseUnits
}

// WinnerRedeemable returns the unit amount redeemable at the full winner
// rate: the winning-side balance when the event resolved with a winner,
// zero otherwise.
func WinnerRedeemable(pos domain.UserPosition, status domain.ResultStatus, winningSide domain.Side) uint64 {
	if status != domain.ResultWinner {
		return 0
	}
	return pos.SideUnits(winningSide)
}

// SweepEligible reports whether unclaimed funds may be swept: the event is
// resolved, not yet swept, the grace period has elapsed, and the vault
// still holds more than its rent floor.
func SweepEligible(e *domain.EventSnapshot, now int64, p Params, rentFloor uint64) bool {
	if !e.Resolved || e.UnclaimedSwept {
		return false
	}
	if now < e.ResolvedAt+p.SweepDelaySeconds {
		return false
	}
	return e.VaultLamports > rentFloor
}

// DeleteEligible reports whether the event may be deleted: all commissions
// are settled, the vault is drained to the rent floor (within the dust
// tolerance), and either no outstanding units remain or the unclaimed
// sweep already ran. No path to deletion skips settlement.
func DeleteEligible(e *domain.EventSnapshot, p Params, rentFloor uint64) bool {
	if e.PendingCreatorCommission != 0 || e.PendingHouseCommission != 0 {
		return false
	}
	if e.VaultLamports > rentFloor+p.DustToleranceLamports {
		return false
	}
	unitsOutstanding := e.OutstandingTrueUnits != 0 || e.OutstandingFalseUnits != 0
	if unitsOutstanding && !e.UnclaimedSwept {
		return false
	}
	return true
}
