package domain

import (
	"context"
	"time"

	"github.com/predictsol/predictsol-go/internal/solana"
)

// ActionKind names one user-facing orchestrated action. The reentrancy
// lock is keyed by (ActionKind, event), so distinct kinds on one event,
// or one kind on distinct events, proceed independently.
type ActionKind string

const (
	ActionCreateEvent     ActionKind = "create_event"
	ActionBuy             ActionKind = "buy"
	ActionRedeemPair      ActionKind = "redeem_pair"
	ActionFinalize        ActionKind = "finalize"
	ActionRedeemWinner    ActionKind = "redeem_winner"
	ActionRedeemNoWinner  ActionKind = "redeem_no_winner"
	ActionClaimCommission ActionKind = "claim_commission"
	ActionSweep           ActionKind = "sweep"
	ActionDeleteEvent     ActionKind = "delete_event"
)

// JournalStatus is the lifecycle of one recorded submission attempt.
type JournalStatus string

const (
	JournalSubmitted JournalStatus = "submitted"
	JournalConfirmed JournalStatus = "confirmed"
	JournalFailed    JournalStatus = "failed"
	JournalAmbiguous JournalStatus = "ambiguous" // duplicate-send; outcome verified via re-read
)

// JournalEntry records one transaction submission for operator forensics.
type JournalEntry struct {
	ID        string
	Action    ActionKind
	Event     string // base58 event address; empty for pre-event transactions
	Label     string
	Signature string
	Status    JournalStatus
	Error     string
	CreatedAt time.Time
}

// Journal persists submission records. Implementations must be safe for
// concurrent use. A journal failure never fails the action it records.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
	List(ctx context.Context, event string, limit int) ([]JournalEntry, error)
}

// SnapshotCache is a read-through TTL cache of event snapshots, used by
// read-only paths. State-mutating actions bypass it and invalidate after
// confirmation.
type SnapshotCache interface {
	GetEvent(ctx context.Context, address solana.PublicKey) (*EventSnapshot, error)
	SetEvent(ctx context.Context, snap *EventSnapshot, ttl time.Duration) error
	InvalidateEvent(ctx context.Context, address solana.PublicKey) error
}
