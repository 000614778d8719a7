// Package submit is the safe transaction-submission engine: fresh
// blockhash, optional simulate-before-send, sign, broadcast, and
// confirmation bound to the blockhash validity window, with exactly one
// internal retry on an expired blockhash.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Connection is the slice of the RPC client the submitter needs. It is an
// interface so tests can drive the submitter against a scripted cluster.
type Connection interface {
	GetLatestBlockhash(ctx context.Context, commitment solana.Commitment) (solana.Blockhash, error)
	GetBlockHeight(ctx context.Context, commitment solana.Commitment) (uint64, error)
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (solana.SimulationResult, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*solana.SignatureStatus, error)
}

// Options tune one Submitter instance.
type Options struct {
	// Simulate runs every transaction through simulateTransaction first
	// and aborts on failure without broadcasting.
	Simulate bool

	// ConfirmPollInterval spaces the signature-status polls.
	ConfirmPollInterval time.Duration

	// ConfirmTimeout caps one confirmation wait. The blockhash validity
	// window usually expires first; this is the hard backstop.
	ConfirmTimeout time.Duration
}

// Defaults fills unset options.
func (o *Options) Defaults() {
	if o.ConfirmPollInterval <= 0 {
		o.ConfirmPollInterval = 2 * time.Second
	}
	if o.ConfirmTimeout <= 0 {
		o.ConfirmTimeout = 90 * time.Second
	}
}

// Submitter drives build, simulate, sign, send, confirm. It is stateless
// and safe for concurrent use; reentrancy per action is the caller's job.
type Submitter struct {
	conn    Connection
	wallet  *solana.Wallet
	opts    Options
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Submitter signing with wallet.
func New(conn Connection, wallet *solana.Wallet, opts Options, logger *slog.Logger) *Submitter {
	opts.Defaults()
	return &Submitter{
		conn:    conn,
		wallet:  wallet,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.ConfirmPollInterval), 1),
		logger:  logger.With("component", "submitter"),
	}
}

// Wallet returns the signing identity.
func (s *Submitter) Wallet() *solana.Wallet {
	return s.wallet
}

// Submit runs the full submission algorithm for one set of instructions
// and returns the confirmed transaction signature. label names the action
// in logs and errors.
//
// Failure modes: domain.SimulationError, domain.ErrAlreadySubmitted,
// domain.SubmissionError (wrapping domain.ErrExpiredBlockhash when the
// single permitted blockhash retry also expired).
func (s *Submitter) Submit(ctx context.Context, label string, instructions ...solana.Instruction) (solana.Signature, error) {
	sig, err := s.attempt(ctx, label, instructions)
	if err == nil {
		return sig, nil
	}
	if !errors.Is(err, domain.ErrExpiredBlockhash) {
		return solana.Signature{}, err
	}

	// Expired blockhash: refresh and retry the whole attempt exactly once.
	s.logger.Warn("blockhash expired, retrying once", "label", label)
	sig, err = s.attempt(ctx, label, instructions)
	if err == nil {
		return sig, nil
	}
	if errors.Is(err, domain.ErrExpiredBlockhash) {
		return solana.Signature{}, &domain.SubmissionError{Label: label, Err: err}
	}
	return solana.Signature{}, err
}

// attempt performs one build, simulate, sign, send, confirm cycle.
func (s *Submitter) attempt(ctx context.Context, label string, instructions []solana.Instruction) (solana.Signature, error) {
	blockhash, err := s.conn.GetLatestBlockhash(ctx, solana.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, &domain.SubmissionError{Label: label, Err: fmt.Errorf("fetch blockhash: %w", err)}
	}

	tx := solana.NewTransaction(s.wallet.PublicKey(), blockhash.Hash, instructions...)
	if err := tx.Sign(s.wallet.PrivateKey()); err != nil {
		return solana.Signature{}, &domain.SubmissionError{Label: label, Err: fmt.Errorf("sign: %w", err)}
	}

	if s.opts.Simulate {
		sim, err := s.conn.SimulateTransaction(ctx, tx)
		if err != nil {
			return solana.Signature{}, &domain.SubmissionError{Label: label, Err: fmt.Errorf("simulate: %w", err)}
		}
		if sim.Failed() {
			s.logger.Error("simulation failed", "label", label, "logs", len(sim.Logs))
			return solana.Signature{}, &domain.SimulationError{Label: label, Logs: sim.Logs}
		}
	}

	sig, err := s.conn.SendTransaction(ctx, tx)
	if err != nil {
		switch {
		case isAlreadyProcessed(err):
			// The cluster saw an identical transaction; the intended
			// action most likely succeeded. Callers re-read state
			// instead of retrying the write.
			s.logger.Warn("transaction already processed", "label", label)
			return solana.Signature{}, fmt.Errorf("%s: %w", label, domain.ErrAlreadySubmitted)
		case isBlockhashNotFound(err):
			return solana.Signature{}, fmt.Errorf("%s: %w", label, domain.ErrExpiredBlockhash)
		default:
			return solana.Signature{}, &domain.SubmissionError{Label: label, Err: err}
		}
	}

	s.logger.Info("transaction sent", "label", label, "signature", sig.String())

	if err := s.confirm(ctx, label, sig, blockhash.LastValidBlockHeight); err != nil {
		return solana.Signature{}, err
	}
	s.logger.Info("transaction confirmed", "label", label, "signature", sig.String())
	return sig, nil
}

// confirm polls the signature status until the transaction is confirmed,
// the blockhash validity window closes, or the backstop timeout fires.
func (s *Submitter) confirm(ctx context.Context, label string, sig solana.Signature, lastValidBlockHeight uint64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ConfirmTimeout)
	defer cancel()

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return &domain.SubmissionError{
					Label: label,
					Err:   &domain.TimeoutError{Op: "confirm " + sig.String(), After: s.opts.ConfirmTimeout},
				}
			}
			return &domain.SubmissionError{Label: label, Err: err}
		}

		status, err := s.conn.GetSignatureStatus(ctx, sig)
		if err != nil {
			// Transient poll failure; the loop retries until the window
			// or timeout decides.
			s.logger.Debug("status poll failed", "label", label, "error", err)
			continue
		}
		if status != nil {
			if len(status.Err) > 0 && string(status.Err) != "null" {
				return &domain.SubmissionError{
					Label: label,
					Err:   fmt.Errorf("transaction failed on chain: %s", string(status.Err)),
				}
			}
			if status.ConfirmationStatus == string(solana.CommitmentConfirmed) ||
				status.ConfirmationStatus == string(solana.CommitmentFinalized) {
				return nil
			}
		}

		height, err := s.conn.GetBlockHeight(ctx, solana.CommitmentConfirmed)
		if err != nil {
			s.logger.Debug("block height poll failed", "label", label, "error", err)
			continue
		}
		if height > lastValidBlockHeight {
			return fmt.Errorf("%s: %w", label, domain.ErrExpiredBlockhash)
		}
	}
}

// isAlreadyProcessed matches the cluster's duplicate-transaction signals.
func isAlreadyProcessed(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already been processed") ||
		strings.Contains(msg, "alreadyprocessed")
}

// isBlockhashNotFound matches the cluster's expired-blockhash signals.
func isBlockhashNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "blockhash not found") ||
		strings.Contains(msg, "blockhashnotfound")
}
