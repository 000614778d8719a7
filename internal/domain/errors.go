package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound reports that an on-chain account does not exist. It is a
	// distinct, expected outcome of a read, not a transport failure.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadySubmitted reports that the cluster has already processed an
	// identical transaction. Callers should re-read state rather than retry
	// the write, because the intended action most likely succeeded.
	ErrAlreadySubmitted = errors.New("transaction already submitted")

	// ErrExpiredBlockhash reports that a transaction's blockhash fell out
	// of the validity window before confirmation.
	ErrExpiredBlockhash = errors.New("blockhash expired")

	// ErrActionInFlight reports that the same action on the same event is
	// already running. The duplicate invocation never reaches the network.
	ErrActionInFlight = errors.New("action already in flight")

	// ErrInsufficientBalance reports a local pre-check failure comparing a
	// requested amount against the last-known balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidSeedInput reports malformed address-derivation input. This
	// is a programming error, never a transient condition.
	ErrInvalidSeedInput = errors.New("invalid seed input")

	// ErrNoOracleQuestion reports that the event is not linked to an oracle
	// question, so resolution-dependent actions cannot proceed.
	ErrNoOracleQuestion = errors.New("event has no linked oracle question")
)

// SimulationError reports that simulate-before-send failed. Logs carries
// the program logs captured from the simulation for diagnostics.
type SimulationError struct {
	Label string
	Logs  []string
}

// Error implements the error interface.
func (e *SimulationError) Error() string {
	if len(e.Logs) == 0 {
		return fmt.Sprintf("simulation failed for %s", e.Label)
	}
	return fmt.Sprintf("simulation failed for %s: %s", e.Label, strings.Join(e.Logs, "; "))
}

// SubmissionError is a terminal transaction-submission failure: the
// broadcast or confirmation failed for a reason other than a duplicate or
// an expired blockhash (or the single blockhash retry also failed).
type SubmissionError struct {
	Label string
	Err   error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed for %s: %v", e.Label, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// ReadError wraps a transport failure while reading account state. A
// missing account is ErrNotFound, never a ReadError.
type ReadError struct {
	What string
	Err  error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.What, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// IllegalTransitionError reports an action attempted outside its legal
// lifecycle phase. It is always raised locally, before any network call.
type IllegalTransitionError struct {
	Action string
	Phase  string
	Reason string
}

// Error implements the error interface.
func (e *IllegalTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("action %s is not legal in phase %s: %s", e.Action, e.Phase, e.Reason)
	}
	return fmt.Sprintf("action %s is not legal in phase %s", e.Action, e.Phase)
}

// TimeoutError reports that a bounded wait (confirmation poll, account
// visibility poll) ran out of time.
type TimeoutError struct {
	Op    string
	After time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.After)
}
