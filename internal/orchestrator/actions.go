package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/lifecycle"
	"github.com/predictsol/predictsol-go/internal/pda"
	"github.com/predictsol/predictsol-go/internal/program"
	"github.com/predictsol/predictsol-go/internal/settlement"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Buy deposits lamports and mints an equal amount of both outcome tokens.
// Missing token accounts are created in the same transaction.
func (o *Orchestrator) Buy(ctx context.Context, event solana.PublicKey, lamports uint64) (*ActionResult, error) {
	if lamports == 0 {
		return nil, fmt.Errorf("buy amount must be positive")
	}
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionBuy, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckBuy(state.Event, state.Question, o.now().Unix()); err != nil {
			return err
		}

		balance, err := o.reader.ReadWalletBalance(ctx, user)
		if err != nil {
			return err
		}
		if balance < lamports {
			return fmt.Errorf("buy %d lamports with balance %d: %w", lamports, balance, domain.ErrInsufficientBalance)
		}

		var instructions []solana.Instruction
		if !state.Position.TrueExists {
			ix, err := program.CreateAssociatedTokenAccount(user, user, state.Event.TrueMint)
			if err != nil {
				return err
			}
			instructions = append(instructions, ix)
		}
		if !state.Position.FalseExists {
			ix, err := program.CreateAssociatedTokenAccount(user, user, state.Event.FalseMint)
			if err != nil {
				return err
			}
			instructions = append(instructions, ix)
		}
		buyIx, err := o.builder.BuyPositionsWithFee(user, event, lamports)
		if err != nil {
			return err
		}
		instructions = append(instructions, buyIx)

		before := state.Position
		post := func(ctx context.Context) (bool, error) {
			pos, err := o.reader.ReadUserPosition(ctx, state.Event, user)
			if err != nil {
				return false, err
			}
			return pos.TrueUnits > before.TrueUnits && pos.FalseUnits > before.FalseUnits, nil
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionBuy, event, "buy_positions_with_fee", post, instructions...)
		if err != nil {
			return err
		}

		refreshed, err := o.refresh(ctx, event)
		if err != nil {
			return err
		}
		result = &ActionResult{Signature: sig, Duplicate: dup, State: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RedeemPair burns unitAmount of both sides and returns the backing
// collateral minus the fee. Legal only while betting is open.
func (o *Orchestrator) RedeemPair(ctx context.Context, event solana.PublicKey, unitAmount uint64) (*ActionResult, error) {
	if unitAmount == 0 {
		return nil, fmt.Errorf("redeem amount must be positive")
	}
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionRedeemPair, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckRedeemPair(state.Event, o.now().Unix()); err != nil {
			return err
		}

		if max := settlement.MaxPairRedeemable(state.Position); unitAmount > max {
			return fmt.Errorf("redeem %d units with pair balance %d: %w", unitAmount, max, domain.ErrInsufficientBalance)
		}

		ix, err := o.builder.RedeemPairWhileActive(user, event, unitAmount)
		if err != nil {
			return err
		}

		before := state.Position
		post := func(ctx context.Context) (bool, error) {
			pos, err := o.reader.ReadUserPosition(ctx, state.Event, user)
			if err != nil {
				return false, err
			}
			return pos.TrueUnits < before.TrueUnits && pos.FalseUnits < before.FalseUnits, nil
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionRedeemPair, event, "redeem_pair_while_active", post, ix)
		if err != nil {
			return err
		}

		refreshed, err := o.refresh(ctx, event)
		if err != nil {
			return err
		}
		result = &ActionResult{Signature: sig, Duplicate: dup, State: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Finalize sends the fetch-and-store-winner transaction once the oracle's
// reveal window has closed. Resolution is write-once on chain.
func (o *Orchestrator) Finalize(ctx context.Context, event solana.PublicKey) (*ActionResult, error) {
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionFinalize, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckFinalize(state.Event, state.Question, o.now().Unix()); err != nil {
			return err
		}

		ix, err := o.builder.FetchAndStoreWinner(event, state.Event.OracleQuestion)
		if err != nil {
			return err
		}

		post := func(ctx context.Context) (bool, error) {
			snap, err := o.reader.ReadEvent(ctx, event)
			if err != nil {
				return false, err
			}
			return snap.Resolved, nil
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionFinalize, event, "fetch_and_store_winner", post, ix)
		if err != nil {
			return err
		}

		refreshed, err := o.refresh(ctx, event)
		if err != nil {
			return err
		}
		result = &ActionResult{Signature: sig, Duplicate: dup, State: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.State.Event.Resolved {
		o.logger.Info("event finalized",
			"event", event.String(),
			"result", result.State.Event.ResultStatus.String(),
			"winning_side", result.State.Event.WinningSide.String())
	}
	return result, nil
}

// RedeemWinner redeems unitAmount of the winning side at the full rate.
func (o *Orchestrator) RedeemWinner(ctx context.Context, event solana.PublicKey, unitAmount uint64) (*ActionResult, error) {
	if unitAmount == 0 {
		return nil, fmt.Errorf("redeem amount must be positive")
	}
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionRedeemWinner, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		side := state.Event.WinningSide
		if err := lifecycle.CheckRedeemWinner(state.Event, side, o.now().Unix()); err != nil {
			return err
		}

		redeemable := settlement.WinnerRedeemable(state.Position, state.Event.ResultStatus, side)
		if unitAmount > redeemable {
			return fmt.Errorf("redeem %d units with winning balance %d: %w", unitAmount, redeemable, domain.ErrInsufficientBalance)
		}

		ix, err := o.builder.RedeemWinnerAfterFinal(user, event, side, unitAmount)
		if err != nil {
			return err
		}

		before := state.Position.SideUnits(side)
		post := func(ctx context.Context) (bool, error) {
			pos, err := o.reader.ReadUserPosition(ctx, state.Event, user)
			if err != nil {
				return false, err
			}
			return pos.SideUnits(side) < before, nil
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionRedeemWinner, event, "redeem_winner_after_final", post, ix)
		if err != nil {
			return err
		}

		refreshed, err := o.refresh(ctx, event)
		if err != nil {
			return err
		}
		result = &ActionResult{Signature: sig, Duplicate: dup, State: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RedeemNoWinner redeems unitAmount of the given side at the reduced
// symmetric rate used when the event resolved without a winner.
func (o *Orchestrator) RedeemNoWinner(ctx context.Context, event solana.PublicKey, side domain.Side, unitAmount uint64) (*ActionResult, error) {
	if unitAmount == 0 {
		return nil, fmt.Errorf("redeem amount must be positive")
	}
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionRedeemNoWinner, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckRedeemNoWinner(state.Event, side, o.now().Unix()); err != nil {
			return err
		}

		if held := state.Position.SideUnits(side); unitAmount > held {
			return fmt.Errorf("redeem %d units with %s balance %d: %w", unitAmount, side, held, domain.ErrInsufficientBalance)
		}

		ix, err := o.builder.RedeemNoWinnerAfterFinal(user, event, side, unitAmount)
		if err != nil {
			return err
		}

		before := state.Position.SideUnits(side)
		post := func(ctx context.Context) (bool, error) {
			pos, err := o.reader.ReadUserPosition(ctx, state.Event, user)
			if err != nil {
				return false, err
			}
			return pos.SideUnits(side) < before, nil
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionRedeemNoWinner, event, "redeem_no_winner_after_final", post, ix)
		if err != nil {
			return err
		}

		refreshed, err := o.refresh(ctx, event)
		if err != nil {
			return err
		}
		result = &ActionResult{Signature: sig, Duplicate: dup, State: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClaimCommission pays out the creator's pending commission. Only the
// event's creator may claim.
func (o *Orchestrator) ClaimCommission(ctx context.Context, event solana.PublicKey) (*ActionResult, error) {
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionClaimCommission, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		if state.Event.Creator != user {
			return &domain.IllegalTransitionError{
				Action: string(domain.ActionClaimCommission),
				Phase:  string(lifecycle.PhaseOf(state.Event, o.now().Unix())),
				Reason: "only the event creator can claim",
			}
		}
		if err := lifecycle.CheckClaimCommission(state.Event, o.now().Unix()); err != nil {
			return err
		}

		ix, err := o.builder.ClaimCreatorCommission(user, event)
		if err != nil {
			return err
		}

		post := func(ctx context.Context) (bool, error) {
			snap, err := o.reader.ReadEvent(ctx, event)
			if err != nil {
				return false, err
			}
			return snap.PendingCreatorCommission == 0, nil
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionClaimCommission, event, "claim_creator_commission", post, ix)
		if err != nil {
			return err
		}

		refreshed, err := o.refresh(ctx, event)
		if err != nil {
			return err
		}
		result = &ActionResult{Signature: sig, Duplicate: dup, State: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Sweep moves unclaimed settled funds to the house treasury after the
// grace period.
func (o *Orchestrator) Sweep(ctx context.Context, event solana.PublicKey) (*ActionResult, error) {
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionSweep, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		rentFloor, err := o.reader.RentFloor(ctx)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckSweep(state.Event, o.now().Unix(), o.cfg.Settlement, rentFloor); err != nil {
			return err
		}

		ix, err := o.builder.SweepUnclaimedToHouse(user, event)
		if err != nil {
			return err
		}

		post := func(ctx context.Context) (bool, error) {
			snap, err := o.reader.ReadEvent(ctx, event)
			if err != nil {
				return false, err
			}
			return snap.UnclaimedSwept, nil
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionSweep, event, "sweep_unclaimed_to_house", post, ix)
		if err != nil {
			return err
		}

		refreshed, err := o.refresh(ctx, event)
		if err != nil {
			return err
		}
		result = &ActionResult{Signature: sig, Duplicate: dup, State: refreshed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete closes the event and its vault once fully settled, returning
// their rent to the creator.
func (o *Orchestrator) Delete(ctx context.Context, event solana.PublicKey) (*ActionResult, error) {
	user := o.wallet()

	var result *ActionResult
	err := o.runLocked(domain.ActionDeleteEvent, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		if state.Event.Creator != user {
			return &domain.IllegalTransitionError{
				Action: string(domain.ActionDeleteEvent),
				Phase:  string(lifecycle.PhaseOf(state.Event, o.now().Unix())),
				Reason: "only the event creator can delete",
			}
		}
		rentFloor, err := o.reader.RentFloor(ctx)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckDelete(state.Event, o.now().Unix(), o.cfg.Settlement, rentFloor); err != nil {
			return err
		}

		ix, err := o.builder.DeleteEvent(user, event)
		if err != nil {
			return err
		}

		post := func(ctx context.Context) (bool, error) {
			_, err := o.reader.ReadEvent(ctx, event)
			if errors.Is(err, domain.ErrNotFound) {
				return true, nil
			}
			return false, err
		}

		sig, dup, err := o.submitChecked(ctx, domain.ActionDeleteEvent, event, "delete_event", post, ix)
		if err != nil {
			return err
		}

		o.invalidate(ctx, event)
		result = &ActionResult{Signature: sig, Duplicate: dup}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("event deleted", "event", event.String())
	return result, nil
}

// EnsureTokenAccounts creates any missing associated token accounts for
// the event's mints and waits until they are visible. Running it ahead of
// the first buy keeps the buy transaction itself minimal. It shares the
// buy lock so the two cannot race on the same accounts.
func (o *Orchestrator) EnsureTokenAccounts(ctx context.Context, event solana.PublicKey) error {
	user := o.wallet()

	return o.runLocked(domain.ActionBuy, event.String(), func() error {
		state, err := o.reader.ReadEventState(ctx, event, user)
		if err != nil {
			return err
		}
		if state.Position.TrueExists && state.Position.FalseExists {
			return nil
		}

		var instructions []solana.Instruction
		var created []solana.PublicKey
		if !state.Position.TrueExists {
			ix, err := program.CreateAssociatedTokenAccount(user, user, state.Event.TrueMint)
			if err != nil {
				return err
			}
			ata, err := pda.AssociatedTokenAccount(user, state.Event.TrueMint)
			if err != nil {
				return err
			}
			instructions = append(instructions, ix)
			created = append(created, ata)
		}
		if !state.Position.FalseExists {
			ix, err := program.CreateAssociatedTokenAccount(user, user, state.Event.FalseMint)
			if err != nil {
				return err
			}
			ata, err := pda.AssociatedTokenAccount(user, state.Event.FalseMint)
			if err != nil {
				return err
			}
			instructions = append(instructions, ix)
			created = append(created, ata)
		}

		post := func(ctx context.Context) (bool, error) {
			pos, err := o.reader.ReadUserPosition(ctx, state.Event, user)
			if err != nil {
				return false, err
			}
			return pos.TrueExists && pos.FalseExists, nil
		}
		if _, _, err := o.submitChecked(ctx, domain.ActionBuy, event, "create_token_accounts", post, instructions...); err != nil {
			return err
		}

		for _, ata := range created {
			if err := o.waitAccountVisible(ctx, ata, "token account "+ata.String()); err != nil {
				return err
			}
		}
		return nil
	})
}
