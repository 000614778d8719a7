package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/solana"
)

type memoryJournal struct {
	entries []domain.JournalEntry
}

func (j *memoryJournal) Record(_ context.Context, entry domain.JournalEntry) error {
	j.entries = append(j.entries, entry)
	return nil
}

func (j *memoryJournal) List(context.Context, string, int) ([]domain.JournalEntry, error) {
	return j.entries, nil
}

type scriptedSubmitter struct {
	err   error
	calls int
}

func (s *scriptedSubmitter) Submit(context.Context, string, ...solana.Instruction) (solana.Signature, error) {
	s.calls++
	if s.err != nil {
		return solana.Signature{}, s.err
	}
	return solana.Signature{1}, nil
}

func (s *scriptedSubmitter) Wallet() *solana.Wallet { return nil }

func newJournalingOrchestrator(sub Submitter, journal domain.Journal) *Orchestrator {
	return &Orchestrator{
		submitter: sub,
		journal:   journal,
		locks:     newActionLocks(),
		now:       time.Now,
		logger:    slog.New(slog.DiscardHandler),
	}
}

func journalStatuses(entries []domain.JournalEntry) []domain.JournalStatus {
	out := make([]domain.JournalStatus, len(entries))
	for i, e := range entries {
		out[i] = e.Status
	}
	return out
}

func TestSubmitCheckedJournalsAttemptThenOutcome(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		journal := &memoryJournal{}
		o := newJournalingOrchestrator(&scriptedSubmitter{}, journal)

		sig, dup, err := o.submitChecked(ctx, domain.ActionBuy, solana.PublicKey{}, "buy_positions_with_fee", nil)
		require.NoError(t, err)
		assert.False(t, dup)
		assert.NotEqual(t, solana.Signature{}, sig)

		require.Equal(t,
			[]domain.JournalStatus{domain.JournalSubmitted, domain.JournalConfirmed},
			journalStatuses(journal.entries))
		assert.Empty(t, journal.entries[0].Signature)
		assert.Equal(t, sig.String(), journal.entries[1].Signature)
	})

	t.Run("failed", func(t *testing.T) {
		journal := &memoryJournal{}
		o := newJournalingOrchestrator(&scriptedSubmitter{err: fmt.Errorf("boom")}, journal)

		_, _, err := o.submitChecked(ctx, domain.ActionBuy, solana.PublicKey{}, "buy_positions_with_fee", nil)
		require.Error(t, err)

		require.Equal(t,
			[]domain.JournalStatus{domain.JournalSubmitted, domain.JournalFailed},
			journalStatuses(journal.entries))
		assert.Contains(t, journal.entries[1].Error, "boom")
	})

	t.Run("duplicate verified by post-condition", func(t *testing.T) {
		journal := &memoryJournal{}
		sub := &scriptedSubmitter{err: fmt.Errorf("send: %w", domain.ErrAlreadySubmitted)}
		o := newJournalingOrchestrator(sub, journal)

		post := func(context.Context) (bool, error) { return true, nil }
		sig, dup, err := o.submitChecked(ctx, domain.ActionBuy, solana.PublicKey{}, "buy_positions_with_fee", post)
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, solana.Signature{}, sig)

		require.Equal(t,
			[]domain.JournalStatus{domain.JournalSubmitted, domain.JournalAmbiguous},
			journalStatuses(journal.entries))
	})
}
