// Package orchestrator composes derivation, reads, lifecycle gating, and
// submission into the user-facing actions. Every action follows the same
// shape: acquire the reentrancy lock, derive addresses, read state, decide
// legality locally, submit, then re-read so confirmed on-chain state stays
// the single source of truth.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/pda"
	"github.com/predictsol/predictsol-go/internal/program"
	"github.com/predictsol/predictsol-go/internal/reader"
	"github.com/predictsol/predictsol-go/internal/settlement"
	"github.com/predictsol/predictsol-go/internal/solana"
	"github.com/predictsol/predictsol-go/internal/submit"
)

// Submitter is the submission surface the orchestrator drives, an
// interface so tests can script outcomes.
type Submitter interface {
	Submit(ctx context.Context, label string, instructions ...solana.Instruction) (solana.Signature, error)
	Wallet() *solana.Wallet
}

var _ Submitter = (*submit.Submitter)(nil)

// Config carries the orchestrator's protocol constants and polling knobs.
type Config struct {
	// Settlement holds the sweep delay and dust tolerance.
	Settlement settlement.Params

	// OracleRewardLamports funds a newly created oracle question's vault.
	OracleRewardLamports uint64

	// AtaPollInterval and AtaPollTimeout bound the wait for a freshly
	// created token account to become visible.
	AtaPollInterval time.Duration
	AtaPollTimeout  time.Duration

	// CacheTTL bounds staleness of cached snapshots on read-only paths.
	CacheTTL time.Duration
}

// Defaults fills unset config values.
func (c *Config) Defaults() {
	if c.AtaPollInterval <= 0 {
		c.AtaPollInterval = 2 * time.Second
	}
	if c.AtaPollTimeout <= 0 {
		c.AtaPollTimeout = 30 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 15 * time.Second
	}
}

// Orchestrator executes user-facing actions against one deployment.
type Orchestrator struct {
	reader    *reader.Reader
	submitter Submitter
	builder   *program.Builder
	deriver   *pda.Deriver
	journal   domain.Journal       // optional
	cache     domain.SnapshotCache // optional
	cfg       Config
	locks     *actionLocks
	now       func() time.Time
	logger    *slog.Logger
}

// New creates an Orchestrator. journal and cache may be nil; the
// corresponding features are then disabled.
func New(
	rd *reader.Reader,
	sub Submitter,
	builder *program.Builder,
	deriver *pda.Deriver,
	journal domain.Journal,
	cache domain.SnapshotCache,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	cfg.Defaults()
	return &Orchestrator{
		reader:    rd,
		submitter: sub,
		builder:   builder,
		deriver:   deriver,
		journal:   journal,
		cache:     cache,
		cfg:       cfg,
		locks:     newActionLocks(),
		now:       time.Now,
		logger:    logger.With("component", "orchestrator"),
	}
}

// ActionResult is the outcome of one state-mutating action: the confirmed
// signature (zero when a duplicate submission was verified successful by
// re-read) and the refreshed state.
type ActionResult struct {
	Signature solana.Signature
	Duplicate bool
	State     *reader.EventState
}

// wallet returns the connected identity's address.
func (o *Orchestrator) wallet() solana.PublicKey {
	return o.submitter.Wallet().PublicKey()
}

// runLocked executes fn under the (kind, event) reentrancy lock. The lock
// is claimed synchronously before any suspension point and always
// released.
func (o *Orchestrator) runLocked(kind domain.ActionKind, event string, fn func() error) error {
	if !o.locks.TryAcquire(string(kind), event) {
		return fmt.Errorf("%s on %s: %w", kind, event, domain.ErrActionInFlight)
	}
	defer o.locks.Release(string(kind), event)
	return fn()
}

// record writes a journal entry. Journal failures are logged, never
// propagated: forensics must not fail the action they describe.
func (o *Orchestrator) record(ctx context.Context, kind domain.ActionKind, event, label string, sig solana.Signature, status domain.JournalStatus, actErr error) {
	if o.journal == nil {
		return
	}
	entry := domain.JournalEntry{
		ID:        uuid.NewString(),
		Action:    kind,
		Event:     event,
		Label:     label,
		Status:    status,
		CreatedAt: o.now().UTC(),
	}
	var zero solana.Signature
	if sig != zero {
		entry.Signature = sig.String()
	}
	if actErr != nil {
		entry.Error = actErr.Error()
	}
	if err := o.journal.Record(ctx, entry); err != nil {
		o.logger.Error("journal record failed", "action", string(kind), "error", err)
	}
}

// invalidate drops the event's cached snapshot after a confirmed mutation.
func (o *Orchestrator) invalidate(ctx context.Context, event solana.PublicKey) {
	if o.cache == nil {
		return
	}
	if err := o.cache.InvalidateEvent(ctx, event); err != nil {
		o.logger.Warn("cache invalidation failed", "event", event.String(), "error", err)
	}
}

// submitChecked submits instructions and hardens the ambiguous
// "already processed" outcome: instead of assuming success, it re-reads
// state and requires the action's post-condition to hold before reporting
// success. post may be nil when no post-condition can be expressed; the
// ambiguity then propagates to the caller as ErrAlreadySubmitted.
func (o *Orchestrator) submitChecked(
	ctx context.Context,
	kind domain.ActionKind,
	event solana.PublicKey,
	label string,
	post func(ctx context.Context) (bool, error),
	instructions ...solana.Instruction,
) (solana.Signature, bool, error) {
	eventStr := ""
	if !event.IsZero() {
		eventStr = event.String()
	}

	// The attempt itself is journaled before the outcome is known, so a
	// crash mid-confirmation still leaves a trace.
	o.record(ctx, kind, eventStr, label, solana.Signature{}, domain.JournalSubmitted, nil)

	sig, err := o.submitter.Submit(ctx, label, instructions...)
	if err == nil {
		o.record(ctx, kind, eventStr, label, sig, domain.JournalConfirmed, nil)
		return sig, false, nil
	}

	if errors.Is(err, domain.ErrAlreadySubmitted) && post != nil {
		ok, perr := post(ctx)
		if perr == nil && ok {
			o.logger.Warn("duplicate submission verified successful by re-read", "label", label)
			o.record(ctx, kind, eventStr, label, solana.Signature{}, domain.JournalAmbiguous, err)
			return solana.Signature{}, true, nil
		}
		if perr != nil {
			o.logger.Error("post-condition re-read failed after duplicate submission", "label", label, "error", perr)
		}
	}

	o.record(ctx, kind, eventStr, label, solana.Signature{}, domain.JournalFailed, err)
	return solana.Signature{}, false, err
}

// waitAccountVisible polls until the token account answers balance
// queries, with an explicit bound. Fresh accounts can lag reads right
// after their creating transaction confirms.
func (o *Orchestrator) waitAccountVisible(ctx context.Context, pk solana.PublicKey, what string) error {
	deadline := o.now().Add(o.cfg.AtaPollTimeout)
	ticker := time.NewTicker(o.cfg.AtaPollInterval)
	defer ticker.Stop()

	for {
		_, exists, err := o.reader.ReadTokenBalance(ctx, pk)
		if err == nil && exists {
			return nil
		}
		if o.now().After(deadline) {
			return &domain.TimeoutError{Op: "wait for " + what, After: o.cfg.AtaPollTimeout}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status returns the current per-user view of an event, serving the event
// snapshot from the cache when fresh. Read-only: never takes an action
// lock.
func (o *Orchestrator) Status(ctx context.Context, event solana.PublicKey) (*reader.EventState, error) {
	if o.cache != nil {
		if snap, err := o.cache.GetEvent(ctx, event); err == nil && snap != nil {
			pos, err := o.reader.ReadUserPosition(ctx, snap, o.wallet())
			if err == nil {
				state := &reader.EventState{Event: snap, Position: pos}
				if snap.HasOracleQuestion() {
					if q, qerr := o.reader.ReadQuestion(ctx, snap.OracleQuestion); qerr == nil {
						state.Question = q
					}
				}
				return state, nil
			}
		}
	}

	state, err := o.reader.ReadEventState(ctx, event, o.wallet())
	if err != nil {
		return nil, err
	}
	if o.cache != nil {
		if err := o.cache.SetEvent(ctx, state.Event, o.cfg.CacheTTL); err != nil {
			o.logger.Warn("cache store failed", "event", event.String(), "error", err)
		}
	}
	return state, nil
}

// refresh re-reads event state after a mutation and invalidates the cache.
func (o *Orchestrator) refresh(ctx context.Context, event solana.PublicKey) (*reader.EventState, error) {
	o.invalidate(ctx, event)
	return o.reader.ReadEventState(ctx, event, o.wallet())
}
