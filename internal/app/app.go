// Package app wires the concrete dependencies and dispatches the CLI
// commands that drive the orchestrator.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/predictsol/predictsol-go/internal/config"
	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/lifecycle"
	"github.com/predictsol/predictsol-go/internal/orchestrator"
	"github.com/predictsol/predictsol-go/internal/reader"
	"github.com/predictsol/predictsol-go/internal/settlement"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// App is the command layer on top of the orchestrator.
type App struct {
	cfg     *config.Config
	deps    *Dependencies
	cleanup func()
	logger  *slog.Logger
}

// New wires dependencies for the given configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, cleanup, err := Wire(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{cfg: cfg, deps: deps, cleanup: cleanup, logger: logger}, nil
}

// Close releases every wired resource.
func (a *App) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
}

// Usage describes the available commands.
const Usage = `commands:
  create         create a new market event and its oracle question
  prepare        create missing outcome token accounts ahead of a buy
  buy            deposit collateral and mint both outcome tokens
  redeem-pair    burn a matched pair and reclaim collateral
  finalize       fetch and store the oracle result
  redeem-winner  redeem winning-side tokens at the full rate
  redeem-loss    redeem either side after a no-winner resolution
  claim          claim the creator commission
  sweep          sweep unclaimed funds to the house treasury
  delete         delete a fully settled event
  status         show an event's state, phase, and eligibility
  journal        list recorded submissions
  watch-vault    stream vault balance changes`

// Run dispatches one command. args excludes the program name and global
// flags.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", Usage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "create":
		return a.runCreate(ctx, rest)
	case "prepare":
		return a.runPrepare(ctx, rest)
	case "buy":
		return a.runBuy(ctx, rest)
	case "redeem-pair":
		return a.runRedeemPair(ctx, rest)
	case "finalize":
		return a.runFinalize(ctx, rest)
	case "redeem-winner":
		return a.runRedeemWinner(ctx, rest)
	case "redeem-loss":
		return a.runRedeemLoss(ctx, rest)
	case "claim":
		return a.runClaim(ctx, rest)
	case "sweep":
		return a.runSweep(ctx, rest)
	case "delete":
		return a.runDelete(ctx, rest)
	case "status":
		return a.runStatus(ctx, rest)
	case "journal":
		return a.runJournal(ctx, rest)
	case "watch-vault":
		return a.runWatchVault(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, Usage)
	}
}

func parseEventFlag(fs *flag.FlagSet) *string {
	return fs.String("event", "", "event address (base58)")
}

func eventKey(raw string) (solana.PublicKey, error) {
	if raw == "" {
		return solana.PublicKey{}, fmt.Errorf("-event is required")
	}
	return solana.PublicKeyFromBase58(raw)
}

func (a *App) runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	title := fs.String("title", "", "event title (10-150 characters)")
	category := fs.String("category", "", "category tag")
	bet := fs.Duration("bet", 24*time.Hour, "betting window from now")
	commit := fs.Duration("commit", 48*time.Hour, "oracle commit window from now")
	reveal := fs.Duration("reveal", 72*time.Hour, "oracle reveal window from now")
	if err := fs.Parse(args); err != nil {
		return err
	}

	now := time.Now().Unix()
	addr, state, err := a.deps.Orchestrator.CreateEvent(ctx, orchestrator.CreateEventParams{
		Title:         *title,
		Category:      *category,
		BetEndTime:    now + int64(bet.Seconds()),
		CommitEndTime: now + int64(commit.Seconds()),
		RevealEndTime: now + int64(reveal.Seconds()),
	})
	if err != nil {
		return err
	}

	fmt.Printf("event created: %s\n", addr)
	a.printState(state)
	return nil
}

func (a *App) runPrepare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ContinueOnError)
	event := parseEventFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}

	if err := a.deps.Orchestrator.EnsureTokenAccounts(ctx, pk); err != nil {
		return err
	}
	fmt.Println("token accounts ready")
	return nil
}

func (a *App) runBuy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	event := parseEventFlag(fs)
	amount := fs.String("amount", "", "deposit amount in whole units, e.g. 0.5")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}
	lamports, err := domain.ParseAmount(*amount)
	if err != nil {
		return err
	}

	result, err := a.deps.Orchestrator.Buy(ctx, pk, lamports)
	if err != nil {
		return err
	}
	a.printResult(result)
	return nil
}

func (a *App) runRedeemPair(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("redeem-pair", flag.ContinueOnError)
	event := parseEventFlag(fs)
	amount := fs.String("amount", "", "units to redeem as a matched pair")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}
	units, err := domain.ParseAmount(*amount)
	if err != nil {
		return err
	}

	result, err := a.deps.Orchestrator.RedeemPair(ctx, pk, units)
	if err != nil {
		return err
	}
	a.printResult(result)
	return nil
}

func (a *App) runFinalize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("finalize", flag.ContinueOnError)
	event := parseEventFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}

	result, err := a.deps.Orchestrator.Finalize(ctx, pk)
	if err != nil {
		return err
	}
	a.printResult(result)
	return nil
}

func (a *App) runRedeemWinner(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("redeem-winner", flag.ContinueOnError)
	event := parseEventFlag(fs)
	amount := fs.String("amount", "", "winning-side units to redeem")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}
	units, err := domain.ParseAmount(*amount)
	if err != nil {
		return err
	}

	result, err := a.deps.Orchestrator.RedeemWinner(ctx, pk, units)
	if err != nil {
		return err
	}
	a.printResult(result)
	return nil
}

func (a *App) runRedeemLoss(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("redeem-loss", flag.ContinueOnError)
	event := parseEventFlag(fs)
	side := fs.String("side", "", "side to redeem: true or false")
	amount := fs.String("amount", "", "units to redeem")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}
	units, err := domain.ParseAmount(*amount)
	if err != nil {
		return err
	}

	var s domain.Side
	switch strings.ToLower(*side) {
	case "true":
		s = domain.SideTrue
	case "false":
		s = domain.SideFalse
	default:
		return fmt.Errorf("-side must be true or false")
	}

	result, err := a.deps.Orchestrator.RedeemNoWinner(ctx, pk, s, units)
	if err != nil {
		return err
	}
	a.printResult(result)
	return nil
}

func (a *App) runClaim(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	event := parseEventFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}

	result, err := a.deps.Orchestrator.ClaimCommission(ctx, pk)
	if err != nil {
		return err
	}
	a.printResult(result)
	return nil
}

func (a *App) runSweep(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ContinueOnError)
	event := parseEventFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}

	result, err := a.deps.Orchestrator.Sweep(ctx, pk)
	if err != nil {
		return err
	}
	a.printResult(result)
	return nil
}

func (a *App) runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	event := parseEventFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}

	result, err := a.deps.Orchestrator.Delete(ctx, pk)
	if err != nil {
		return err
	}
	fmt.Printf("deleted (signature %s)\n", result.Signature)
	return nil
}

func (a *App) runStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	event := parseEventFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}

	state, err := a.deps.Orchestrator.Status(ctx, pk)
	if err != nil {
		return err
	}
	a.printState(state)

	now := time.Now().Unix()
	params := settlement.Params{
		SweepDelaySeconds:     a.cfg.Settlement.SweepDelaySeconds,
		DustToleranceLamports: a.cfg.Settlement.DustToleranceLamports,
	}
	rentFloor, err := a.deps.Reader.RentFloor(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("phase:            %s\n", lifecycle.PhaseOf(state.Event, now))
	fmt.Printf("can finalize:     %t\n", lifecycle.CanFinalize(state.Event, state.Question, now))
	fmt.Printf("sweep eligible:   %t\n", settlement.SweepEligible(state.Event, now, params, rentFloor))
	fmt.Printf("delete eligible:  %t\n", settlement.DeleteEligible(state.Event, params, rentFloor))
	fmt.Printf("pair redeemable:  %s\n", domain.FormatAmount(settlement.MaxPairRedeemable(state.Position)))
	fmt.Printf("winner redeemable: %s\n", domain.FormatAmount(
		settlement.WinnerRedeemable(state.Position, state.Event.ResultStatus, state.Event.WinningSide)))
	return nil
}

func (a *App) runJournal(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	event := fs.String("event", "", "filter by event address (optional)")
	limit := fs.Int("limit", 20, "maximum entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.deps.Journal == nil {
		return errors.New("journal is not configured; enable postgres")
	}

	entries, err := a.deps.Journal.List(ctx, *event, *limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %-24s %-10s %s %s\n",
			e.CreatedAt.Format(time.RFC3339), e.Label, e.Status, e.Signature, e.Error)
	}
	return nil
}

func (a *App) runWatchVault(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch-vault", flag.ContinueOnError)
	event := parseEventFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pk, err := eventKey(*event)
	if err != nil {
		return err
	}

	state, err := a.deps.Orchestrator.Status(ctx, pk)
	if err != nil {
		return err
	}

	sub, err := a.deps.Reader.WatchVault(ctx, state.Event.CollateralVault)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Printf("watching vault %s (current %s)\n",
		state.Event.CollateralVault, domain.FormatAmount(state.Event.VaultLamports))
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			fmt.Printf("slot %d: %s\n", update.Slot, domain.FormatAmount(update.Lamports))
		}
	}
}

func (a *App) printResult(result *orchestrator.ActionResult) {
	if result.Duplicate {
		fmt.Println("duplicate submission; verified successful by re-read")
	} else {
		fmt.Printf("confirmed: %s\n", result.Signature)
	}
	if result.State != nil {
		a.printState(result.State)
	}
}

func (a *App) printState(state *reader.EventState) {
	e := state.Event
	fmt.Printf("event:            %s\n", e.Address)
	fmt.Printf("title:            %s\n", e.Title)
	if e.Category != "" {
		fmt.Printf("category:         %s\n", e.Category)
	}
	fmt.Printf("creator:          %s\n", e.Creator)
	fmt.Printf("bet ends:         %s\n", time.Unix(e.BetEndTime, 0).UTC().Format(time.RFC3339))
	fmt.Printf("collateral:       %s\n", domain.FormatAmount(e.TotalCollateralLamports))
	fmt.Printf("vault balance:    %s\n", domain.FormatAmount(e.VaultLamports))
	fmt.Printf("issued per side:  %s\n", domain.FormatAmount(e.TotalIssuedPerSide))
	if e.Resolved {
		fmt.Printf("resolved:         %s (winning side %s, %d%%)\n",
			e.ResultStatus, e.WinningSide, e.WinningPercent)
	}
	fmt.Printf("position:         TRUE %s / FALSE %s\n",
		domain.FormatAmount(state.Position.TrueUnits),
		domain.FormatAmount(state.Position.FalseUnits))
	if state.Question != nil {
		fmt.Printf("oracle reveal:    %s\n",
			time.Unix(state.Question.RevealEndTime, 0).UTC().Format(time.RFC3339))
	}
}
