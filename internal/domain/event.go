// Package domain defines the core types of the PredictSol client: immutable
// account snapshots, the error taxonomy, exact base-unit amounts, and the
// interfaces implemented by the persistence and cache adapters.
//
// Snapshots are value objects. A refresh always produces a new snapshot;
// nothing in this package is patched in place.
package domain

import (
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Side identifies one of the two outcome tokens of a market event.
type Side uint8

const (
	SideNone  Side = 0
	SideTrue  Side = 1
	SideFalse Side = 2
)

// String returns the side's display name.
func (s Side) String() string {
	switch s {
	case SideTrue:
		return "TRUE"
	case SideFalse:
		return "FALSE"
	default:
		return "NONE"
	}
}

// ResultStatus is the on-chain resolution outcome of an event. It is
// written exactly once by the finalize instruction and never recomputed
// client-side.
type ResultStatus uint8

const (
	ResultUnresolved     ResultStatus = 0
	ResultWinner         ResultStatus = 1
	ResultNoVotes        ResultStatus = 2
	ResultTie            ResultStatus = 3
	ResultBelowThreshold ResultStatus = 4
)

// String returns the status's display name.
func (r ResultStatus) String() string {
	switch r {
	case ResultWinner:
		return "winner"
	case ResultNoVotes:
		return "no_votes"
	case ResultTie:
		return "tie"
	case ResultBelowThreshold:
		return "below_threshold"
	default:
		return "unresolved"
	}
}

// EventSnapshot is an immutable view of one market event account plus its
// observed vault balance. The on-chain program owns the data; this client
// only ever holds recomputable copies.
type EventSnapshot struct {
	Address solana.PublicKey

	// Identity.
	Creator  solana.PublicKey
	EventID  uint64
	Title    string
	Category string

	// Linked oracle question; zero until linked.
	OracleQuestion solana.PublicKey

	// Phase timestamps, unix seconds. Creation enforces
	// BetEndTime < CommitEndTime < RevealEndTime.
	BetEndTime    int64
	CommitEndTime int64
	RevealEndTime int64
	CreatedAt     int64

	// Derived accounts stored back into the event by the mint-setup step.
	CollateralVault solana.PublicKey
	TrueMint        solana.PublicKey
	FalseMint       solana.PublicKey

	// Collateral accounting, base units.
	TotalCollateralLamports uint64
	TotalIssuedPerSide      uint64
	OutstandingTrueUnits    uint64
	OutstandingFalseUnits   uint64

	// Resolution. Write-once on-chain: once Resolved is true the fields
	// below it never change.
	Resolved       bool
	WinningSide    Side
	ResultStatus   ResultStatus
	ResolvedAt     int64
	WinningPercent uint8

	// Commission accrual.
	PendingCreatorCommission uint64
	PendingHouseCommission   uint64
	OracleFeeSent            uint64

	// Settlement bookkeeping.
	UnclaimedSwept bool

	// VaultLamports is the observed balance of CollateralVault at read
	// time. It lives on the snapshot, not the account data.
	VaultLamports uint64
}

// HasOracleQuestion reports whether the event is linked to an oracle
// question.
func (e *EventSnapshot) HasOracleQuestion() bool {
	return !e.OracleQuestion.IsZero()
}

// QuestionSnapshot is a read-only view of the external oracle question an
// event is pegged to. It is consumed only to decide whether finalization
// is legal.
type QuestionSnapshot struct {
	Address solana.PublicKey
	Asker   solana.PublicKey
	Vault   solana.PublicKey

	ID    uint64
	Title string

	CommitEndTime int64
	RevealEndTime int64

	VotesTrue  uint64
	VotesFalse uint64
	VoterCount uint64
}

// RevealEnded reports whether the question's reveal window has closed at
// the given unix time.
func (q *QuestionSnapshot) RevealEnded(now int64) bool {
	return now >= q.RevealEndTime
}

// UserPosition is the connected identity's pair of outcome-token balances
// for one event, in base units. It is derived on demand and refreshed
// after every state-mutating action, never stored.
type UserPosition struct {
	TrueUnits   uint64
	FalseUnits  uint64
	TrueExists  bool
	FalseExists bool
}

// SideUnits returns the balance for the given side.
func (p UserPosition) SideUnits(side Side) uint64 {
	switch side {
	case SideTrue:
		return p.TrueUnits
	case SideFalse:
		return p.FalseUnits
	default:
		return 0
	}
}
