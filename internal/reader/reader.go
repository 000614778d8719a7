// Package reader fetches on-chain account state and normalizes it into
// domain snapshots. A missing account is domain.ErrNotFound, a transport
// failure is a domain.ReadError; the two never mix.
package reader

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/pda"
	"github.com/predictsol/predictsol-go/internal/program"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Reader reads event, counter, question, position, and vault state.
type Reader struct {
	rpc     *solana.Client
	ws      *solana.WSClient
	deriver *pda.Deriver
	logger  *slog.Logger
}

// New creates a Reader. ws may be nil when push subscriptions are not
// needed.
func New(rpc *solana.Client, ws *solana.WSClient, deriver *pda.Deriver, logger *slog.Logger) *Reader {
	return &Reader{
		rpc:     rpc,
		ws:      ws,
		deriver: deriver,
		logger:  logger.With("component", "reader"),
	}
}

func readErr(what string, err error) error {
	return &domain.ReadError{What: what, Err: err}
}

// ReadEvent fetches and decodes one event account, including its current
// vault balance. Returns domain.ErrNotFound when the account does not
// exist.
func (r *Reader) ReadEvent(ctx context.Context, address solana.PublicKey) (*domain.EventSnapshot, error) {
	info, err := r.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, readErr("event "+address.String(), err)
	}
	if info == nil {
		return nil, fmt.Errorf("event %s: %w", address, domain.ErrNotFound)
	}

	snap, err := program.DecodeEvent(address, info.Data)
	if err != nil {
		return nil, readErr("event "+address.String(), err)
	}

	if !snap.CollateralVault.IsZero() {
		lamports, err := r.ReadVaultLamports(ctx, snap.CollateralVault)
		if err != nil {
			return nil, err
		}
		snap.VaultLamports = lamports
	}

	r.logger.Debug("event read",
		"event", address.String(),
		"resolved", snap.Resolved,
		"vault_lamports", snap.VaultLamports)
	return snap, nil
}

// ReadQuestion fetches and decodes the oracle question. Returns
// domain.ErrNotFound when it does not exist.
func (r *Reader) ReadQuestion(ctx context.Context, address solana.PublicKey) (*domain.QuestionSnapshot, error) {
	info, err := r.rpc.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, readErr("question "+address.String(), err)
	}
	if info == nil {
		return nil, fmt.Errorf("question %s: %w", address, domain.ErrNotFound)
	}
	q, err := program.DecodeQuestion(address, info.Data)
	if err != nil {
		return nil, readErr("question "+address.String(), err)
	}
	return q, nil
}

// ReadCounter returns the creator's next event id. A missing counter
// account reports (0, false, nil) so callers can initialize it first.
func (r *Reader) ReadCounter(ctx context.Context, creator solana.PublicKey) (count uint64, exists bool, err error) {
	addr, err := r.deriver.Counter(creator)
	if err != nil {
		return 0, false, err
	}
	info, err := r.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		return 0, false, readErr("counter "+addr.String(), err)
	}
	if info == nil {
		return 0, false, nil
	}
	_, count, err = program.DecodeEventCounter(info.Data)
	if err != nil {
		return 0, false, readErr("counter "+addr.String(), err)
	}
	return count, true, nil
}

// ReadOracleCounter returns the asker's next question id in the oracle
// program's namespace, with the same missing-account convention as
// ReadCounter.
func (r *Reader) ReadOracleCounter(ctx context.Context, asker solana.PublicKey) (count uint64, exists bool, err error) {
	addr, err := r.deriver.OracleCounter(asker)
	if err != nil {
		return 0, false, err
	}
	info, err := r.rpc.GetAccountInfo(ctx, addr)
	if err != nil {
		return 0, false, readErr("oracle counter "+addr.String(), err)
	}
	if info == nil {
		return 0, false, nil
	}
	// The oracle counter shares the (owner pubkey, u64 count) shape but
	// carries its own discriminator, so the count sits at a fixed offset.
	if len(info.Data) < 48 {
		return 0, false, readErr("oracle counter "+addr.String(), fmt.Errorf("data too short: %d bytes", len(info.Data)))
	}
	count = binary.LittleEndian.Uint64(info.Data[40:48])
	return count, true, nil
}

// ReadUserPosition returns the user's outcome-token balances for one
// event. Both associated token accounts are fetched in a single batched
// call; a missing account reports zero units with its Exists flag false.
func (r *Reader) ReadUserPosition(ctx context.Context, event *domain.EventSnapshot, user solana.PublicKey) (domain.UserPosition, error) {
	var pos domain.UserPosition
	if event.TrueMint.IsZero() || event.FalseMint.IsZero() {
		return pos, nil
	}

	trueAta, err := pda.AssociatedTokenAccount(user, event.TrueMint)
	if err != nil {
		return pos, err
	}
	falseAta, err := pda.AssociatedTokenAccount(user, event.FalseMint)
	if err != nil {
		return pos, err
	}

	infos, err := r.rpc.GetMultipleAccounts(ctx, trueAta, falseAta)
	if err != nil {
		return pos, readErr("user position", err)
	}
	if len(infos) != 2 {
		return pos, readErr("user position", fmt.Errorf("expected 2 accounts, got %d", len(infos)))
	}

	if infos[0] != nil {
		pos.TrueExists = true
		pos.TrueUnits, err = program.DecodeTokenAccountAmount(infos[0].Data)
		if err != nil {
			return pos, readErr("true token account "+trueAta.String(), err)
		}
	}
	if infos[1] != nil {
		pos.FalseExists = true
		pos.FalseUnits, err = program.DecodeTokenAccountAmount(infos[1].Data)
		if err != nil {
			return pos, readErr("false token account "+falseAta.String(), err)
		}
	}
	return pos, nil
}

// EventState is the full per-user view of one event, assembled from
// parallel reads.
type EventState struct {
	Event    *domain.EventSnapshot
	Question *domain.QuestionSnapshot // nil when not linked or not found
	Position domain.UserPosition
}

// ReadEventState reads the event, its linked oracle question, and the
// user's position concurrently. A missing question is tolerated (the
// event may predate linking); a missing event is not.
func (r *Reader) ReadEventState(ctx context.Context, address, user solana.PublicKey) (*EventState, error) {
	event, err := r.ReadEvent(ctx, address)
	if err != nil {
		return nil, err
	}

	state := &EventState{Event: event}
	g, gctx := errgroup.WithContext(ctx)

	if event.HasOracleQuestion() {
		g.Go(func() error {
			q, err := r.ReadQuestion(gctx, event.OracleQuestion)
			if errors.Is(err, domain.ErrNotFound) {
				r.logger.Warn("linked oracle question missing",
					"event", address.String(),
					"question", event.OracleQuestion.String())
				return nil
			}
			if err != nil {
				return err
			}
			state.Question = q
			return nil
		})
	}
	g.Go(func() error {
		pos, err := r.ReadUserPosition(gctx, event, user)
		if err != nil {
			return err
		}
		state.Position = pos
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

// ReadVaultLamports returns the vault's current lamport balance.
func (r *Reader) ReadVaultLamports(ctx context.Context, vault solana.PublicKey) (uint64, error) {
	lamports, err := r.rpc.GetBalance(ctx, vault)
	if err != nil {
		return 0, readErr("vault "+vault.String(), err)
	}
	return lamports, nil
}

// ReadTokenBalance returns a token account's base-unit balance via the
// dedicated balance endpoint. A missing account reports exists=false; the
// cluster answers such queries with an RPC-level error rather than an
// empty value.
func (r *Reader) ReadTokenBalance(ctx context.Context, account solana.PublicKey) (amount uint64, exists bool, err error) {
	amount, err = r.rpc.GetTokenAccountBalance(ctx, account)
	if err != nil {
		var rpcErr *solana.RPCError
		if errors.As(err, &rpcErr) {
			return 0, false, nil
		}
		return 0, false, readErr("token account "+account.String(), err)
	}
	return amount, true, nil
}

// ReadWalletBalance returns the user's own lamport balance for local
// pre-checks before a deposit.
func (r *Reader) ReadWalletBalance(ctx context.Context, user solana.PublicKey) (uint64, error) {
	lamports, err := r.rpc.GetBalance(ctx, user)
	if err != nil {
		return 0, readErr("wallet "+user.String(), err)
	}
	return lamports, nil
}

// RentFloor returns the rent-exempt minimum for a zero-data account, the
// floor the collateral vault can never be drained below.
func (r *Reader) RentFloor(ctx context.Context) (uint64, error) {
	floor, err := r.rpc.GetMinimumBalanceForRentExemption(ctx, 0)
	if err != nil {
		return 0, readErr("rent floor", err)
	}
	return floor, nil
}

// WatchVault subscribes to the vault's balance changes. The caller must
// call Unsubscribe on the returned subscription; after that returns, no
// further updates are delivered.
func (r *Reader) WatchVault(ctx context.Context, vault solana.PublicKey) (*solana.AccountSubscription, error) {
	if r.ws == nil {
		return nil, readErr("vault subscription", fmt.Errorf("no websocket client configured"))
	}
	sub, err := r.ws.SubscribeAccount(ctx, vault, solana.CommitmentConfirmed)
	if err != nil {
		return nil, readErr("vault subscription", err)
	}
	r.logger.Debug("vault subscription opened", "vault", vault.String())
	return sub, nil
}
