package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/program"
	"github.com/predictsol/predictsol-go/internal/reader"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// CreateEventParams are the inputs to event creation. Times are unix
// seconds.
type CreateEventParams struct {
	Title         string
	Category      string
	BetEndTime    int64
	CommitEndTime int64
	RevealEndTime int64
}

// Validate applies the creation constraints the program will also enforce,
// so obviously bad input never costs a network round-trip.
func (p CreateEventParams) Validate(now int64) error {
	if n := len(p.Title); n < 10 || n > 150 {
		return fmt.Errorf("title must be 10-150 characters, got %d", n)
	}
	if p.BetEndTime <= now {
		return fmt.Errorf("bet end time must be in the future")
	}
	if p.BetEndTime >= p.CommitEndTime || p.CommitEndTime >= p.RevealEndTime {
		return fmt.Errorf("phase times must be strictly increasing: bet < commit < reveal")
	}
	const minPhaseGap = 24 * 60 * 60
	if p.CommitEndTime-p.BetEndTime < minPhaseGap {
		return fmt.Errorf("commit end must be at least one day after bet end")
	}
	if p.RevealEndTime-p.CommitEndTime < minPhaseGap {
		return fmt.Errorf("reveal end must be at least one day after commit end")
	}
	return nil
}

// CreateEvent runs the full creation sequence: ensure both counters exist,
// create (or reuse) the oracle question, write the event core record, then
// create its vault and mints. Returns the new event's address and state.
func (o *Orchestrator) CreateEvent(ctx context.Context, p CreateEventParams) (solana.PublicKey, *reader.EventState, error) {
	creator := o.wallet()

	var (
		eventAddr solana.PublicKey
		state     *reader.EventState
	)
	err := o.runLocked(domain.ActionCreateEvent, creator.String(), func() error {
		now := o.now().Unix()
		if err := p.Validate(now); err != nil {
			return err
		}

		question, err := o.ensureOracleQuestion(ctx, p)
		if err != nil {
			return err
		}

		eventID, err := o.ensureCounter(ctx, creator)
		if err != nil {
			return err
		}

		eventAddr, err = o.deriver.Event(creator, eventID)
		if err != nil {
			return err
		}

		coreIx, err := o.builder.CreateEventCore(creator, eventID, program.CreateEventCoreParams{
			Title:          p.Title,
			Category:       p.Category,
			BetEndTime:     p.BetEndTime,
			CommitEndTime:  p.CommitEndTime,
			RevealEndTime:  p.RevealEndTime,
			OracleQuestion: question,
		})
		if err != nil {
			return err
		}

		corePost := func(ctx context.Context) (bool, error) {
			_, err := o.reader.ReadEvent(ctx, eventAddr)
			if errors.Is(err, domain.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return true, nil
		}
		if _, _, err := o.submitChecked(ctx, domain.ActionCreateEvent, eventAddr, "create_event_core", corePost, coreIx); err != nil {
			return err
		}

		mintsIx, err := o.builder.CreateEventMints(creator, eventAddr)
		if err != nil {
			return err
		}
		mintsPost := func(ctx context.Context) (bool, error) {
			snap, err := o.reader.ReadEvent(ctx, eventAddr)
			if err != nil {
				return false, err
			}
			return !snap.TrueMint.IsZero(), nil
		}
		if _, _, err := o.submitChecked(ctx, domain.ActionCreateEvent, eventAddr, "create_event_mints", mintsPost, mintsIx); err != nil {
			return err
		}

		state, err = o.refresh(ctx, eventAddr)
		return err
	})
	if err != nil {
		return solana.PublicKey{}, nil, err
	}

	o.logger.Info("event created",
		"event", eventAddr.String(),
		"title", p.Title,
		"bet_end", p.BetEndTime)
	return eventAddr, state, nil
}

// ensureCounter returns the creator's next event id, initializing the
// counter account first if it does not exist yet.
func (o *Orchestrator) ensureCounter(ctx context.Context, creator solana.PublicKey) (uint64, error) {
	count, exists, err := o.reader.ReadCounter(ctx, creator)
	if err != nil {
		return 0, err
	}
	if exists {
		return count, nil
	}

	o.logger.Info("initializing event counter", "creator", creator.String())
	ix, err := o.builder.InitializeEventCounter(creator)
	if err != nil {
		return 0, err
	}
	post := func(ctx context.Context) (bool, error) {
		_, exists, err := o.reader.ReadCounter(ctx, creator)
		return exists, err
	}
	if _, _, err := o.submitChecked(ctx, domain.ActionCreateEvent, solana.PublicKey{}, "initialize_event_counter", post, ix); err != nil {
		return 0, err
	}

	count, exists, err = o.reader.ReadCounter(ctx, creator)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, &domain.ReadError{What: "event counter", Err: fmt.Errorf("counter missing after initialization")}
	}
	return count, nil
}

// ensureOracleQuestion creates the commit-reveal question the event will
// be pegged to, reusing an existing question at the current counter value.
// Creation is idempotent: if the send fails but the question account turns
// out to exist, it is treated as success.
func (o *Orchestrator) ensureOracleQuestion(ctx context.Context, p CreateEventParams) (solana.PublicKey, error) {
	asker := o.wallet()

	count, exists, err := o.reader.ReadOracleCounter(ctx, asker)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if !exists {
		o.logger.Info("initializing oracle question counter", "asker", asker.String())
		ix, err := o.builder.OracleInitializeCounter(asker)
		if err != nil {
			return solana.PublicKey{}, err
		}
		post := func(ctx context.Context) (bool, error) {
			_, exists, err := o.reader.ReadOracleCounter(ctx, asker)
			return exists, err
		}
		if _, _, err := o.submitChecked(ctx, domain.ActionCreateEvent, solana.PublicKey{}, "oracle_initialize_counter", post, ix); err != nil {
			return solana.PublicKey{}, err
		}
		count, _, err = o.reader.ReadOracleCounter(ctx, asker)
		if err != nil {
			return solana.PublicKey{}, err
		}
	}

	question, err := o.deriver.OracleQuestion(asker, count)
	if err != nil {
		return solana.PublicKey{}, err
	}

	if _, err := o.reader.ReadQuestion(ctx, question); err == nil {
		o.logger.Info("oracle question already exists", "question", question.String())
		return question, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return solana.PublicKey{}, err
	}

	ix, err := o.builder.OracleCreateQuestion(asker, count, p.Title, o.cfg.OracleRewardLamports, p.CommitEndTime, p.RevealEndTime)
	if err != nil {
		return solana.PublicKey{}, err
	}
	post := func(ctx context.Context) (bool, error) {
		_, err := o.reader.ReadQuestion(ctx, question)
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	if _, _, err := o.submitChecked(ctx, domain.ActionCreateEvent, solana.PublicKey{}, "oracle_create_question", post, ix); err != nil {
		// A failed send with an existing account is still success.
		if _, rerr := o.reader.ReadQuestion(ctx, question); rerr == nil {
			o.logger.Warn("question create errored but account exists; continuing", "question", question.String())
			return question, nil
		}
		return solana.PublicKey{}, err
	}
	return question, nil
}
