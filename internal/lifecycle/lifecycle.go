// Package lifecycle is the event state machine: it computes the current
// phase from a snapshot and the clock, and gates every orchestrated action
// on its legal phase before any network call happens.
package lifecycle

import (
	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/settlement"
)

// Phase is the event's position in its one-directional lifecycle.
type Phase string

const (
	PhaseActive               Phase = "active"
	PhaseAwaitingFinalization Phase = "awaiting_finalization"
	PhaseResolvedWinner       Phase = "resolved_winner"
	PhaseResolvedNoVotes      Phase = "resolved_no_votes"
	PhaseResolvedTie          Phase = "resolved_tie"
	PhaseResolvedBelowThresh  Phase = "resolved_below_threshold"
)

// Resolved reports whether the phase is any of the terminal resolved
// sub-states.
func (p Phase) Resolved() bool {
	switch p {
	case PhaseResolvedWinner, PhaseResolvedNoVotes, PhaseResolvedTie, PhaseResolvedBelowThresh:
		return true
	}
	return false
}

// PhaseOf computes the event's phase at the given unix time. The resolved
// sub-state comes straight from the on-chain result status and is never
// recomputed here; the clock only drives the Active boundary.
func PhaseOf(e *domain.EventSnapshot, now int64) Phase {
	if e.Resolved {
		switch e.ResultStatus {
		case domain.ResultNoVotes:
			return PhaseResolvedNoVotes
		case domain.ResultTie:
			return PhaseResolvedTie
		case domain.ResultBelowThreshold:
			return PhaseResolvedBelowThresh
		default:
			return PhaseResolvedWinner
		}
	}
	if now < e.BetEndTime {
		return PhaseActive
	}
	return PhaseAwaitingFinalization
}

func illegal(action domain.ActionKind, phase Phase, reason string) error {
	return &domain.IllegalTransitionError{
		Action: string(action),
		Phase:  string(phase),
		Reason: reason,
	}
}

// CheckBuy gates buying positions: the betting window must be open and the
// event must be linked to a loaded oracle question.
func CheckBuy(e *domain.EventSnapshot, q *domain.QuestionSnapshot, now int64) error {
	phase := PhaseOf(e, now)
	if phase != PhaseActive {
		return illegal(domain.ActionBuy, phase, "betting window is closed")
	}
	if !e.HasOracleQuestion() {
		return illegal(domain.ActionBuy, phase, "event is not linked to an oracle question")
	}
	if q == nil {
		return illegal(domain.ActionBuy, phase, "oracle question is not loaded")
	}
	return nil
}

// CheckRedeemPair gates matched-pair redemption, legal only while betting
// is open.
func CheckRedeemPair(e *domain.EventSnapshot, now int64) error {
	phase := PhaseOf(e, now)
	if phase != PhaseActive {
		return illegal(domain.ActionRedeemPair, phase, "betting window is closed")
	}
	return nil
}

// CheckFinalize gates the finalize transaction: betting closed, the
// oracle's reveal window closed, and the event not already resolved.
func CheckFinalize(e *domain.EventSnapshot, q *domain.QuestionSnapshot, now int64) error {
	phase := PhaseOf(e, now)
	if phase.Resolved() {
		return illegal(domain.ActionFinalize, phase, "event is already resolved")
	}
	if phase == PhaseActive {
		return illegal(domain.ActionFinalize, phase, "betting window is still open")
	}
	if !e.HasOracleQuestion() {
		return illegal(domain.ActionFinalize, phase, "event is not linked to an oracle question")
	}
	if q == nil {
		return illegal(domain.ActionFinalize, phase, "oracle question is not loaded")
	}
	if !q.RevealEnded(now) {
		return illegal(domain.ActionFinalize, phase, "oracle reveal window is still open")
	}
	return nil
}

// CanFinalize reports whether finalize would pass its gate.
func CanFinalize(e *domain.EventSnapshot, q *domain.QuestionSnapshot, now int64) bool {
	return CheckFinalize(e, q, now) == nil
}

// CheckRedeemWinner gates full-rate redemption: only the winning side,
// only after a winner resolution.
func CheckRedeemWinner(e *domain.EventSnapshot, side domain.Side, now int64) error {
	phase := PhaseOf(e, now)
	if !phase.Resolved() {
		return illegal(domain.ActionRedeemWinner, phase, "event is not resolved")
	}
	if phase != PhaseResolvedWinner {
		return illegal(domain.ActionRedeemWinner, phase, "event resolved without a winner")
	}
	if side != e.WinningSide {
		return illegal(domain.ActionRedeemWinner, phase, "side "+side.String()+" did not win")
	}
	return nil
}

// CheckRedeemNoWinner gates reduced-rate redemption of either side, legal
// only after a no-winner resolution.
func CheckRedeemNoWinner(e *domain.EventSnapshot, side domain.Side, now int64) error {
	phase := PhaseOf(e, now)
	if !phase.Resolved() {
		return illegal(domain.ActionRedeemNoWinner, phase, "event is not resolved")
	}
	if phase == PhaseResolvedWinner {
		return illegal(domain.ActionRedeemNoWinner, phase, "event resolved with a winner; redeem the winning side instead")
	}
	if side != domain.SideTrue && side != domain.SideFalse {
		return illegal(domain.ActionRedeemNoWinner, phase, "a side must be chosen")
	}
	return nil
}

// CheckClaimCommission gates the creator's commission claim: resolved and
// a non-zero pending amount.
func CheckClaimCommission(e *domain.EventSnapshot, now int64) error {
	phase := PhaseOf(e, now)
	if !phase.Resolved() {
		return illegal(domain.ActionClaimCommission, phase, "event is not resolved")
	}
	if settlement.PendingCreatorCommission(e) == 0 {
		return illegal(domain.ActionClaimCommission, phase, "no pending creator commission")
	}
	return nil
}

// CheckSweep gates the unclaimed-funds sweep. The creator's commission
// must already be zero so the sweep can never take funds the creator is
// still owed.
func CheckSweep(e *domain.EventSnapshot, now int64, p settlement.Params, rentFloor uint64) error {
	phase := PhaseOf(e, now)
	if !phase.Resolved() {
		return illegal(domain.ActionSweep, phase, "event is not resolved")
	}
	if settlement.PendingCreatorCommission(e) != 0 {
		return illegal(domain.ActionSweep, phase, "creator commission is still pending")
	}
	if !settlement.SweepEligible(e, now, p, rentFloor) {
		return illegal(domain.ActionSweep, phase, "sweep conditions not met")
	}
	return nil
}

// CheckDelete gates event deletion.
func CheckDelete(e *domain.EventSnapshot, now int64, p settlement.Params, rentFloor uint64) error {
	phase := PhaseOf(e, now)
	if !phase.Resolved() {
		return illegal(domain.ActionDeleteEvent, phase, "event is not resolved")
	}
	if !settlement.DeleteEligible(e, p, rentFloor) {
		return illegal(domain.ActionDeleteEvent, phase, "delete conditions not met")
	}
	return nil
}
