package submit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// fakeConn scripts the cluster's responses so every submission path can be
// exercised without a network.
type fakeConn struct {
	sendCalls     int
	simulateCalls int

	simResult solana.SimulationResult
	simErr    error

	// onSend is invoked per SendTransaction call, 1-based.
	onSend func(call int) error

	status      *solana.SignatureStatus
	blockHeight uint64
}

func (f *fakeConn) GetLatestBlockhash(ctx context.Context, c solana.Commitment) (solana.Blockhash, error) {
	return solana.Blockhash{Hash: solana.TokenProgramID, LastValidBlockHeight: 100}, nil
}

func (f *fakeConn) GetBlockHeight(ctx context.Context, c solana.Commitment) (uint64, error) {
	return f.blockHeight, nil
}

func (f *fakeConn) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (solana.SimulationResult, error) {
	f.simulateCalls++
	return f.simResult, f.simErr
}

func (f *fakeConn) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.sendCalls++
	if f.onSend != nil {
		if err := f.onSend(f.sendCalls); err != nil {
			return solana.Signature{}, err
		}
	}
	return tx.PrimarySignature()
}

func (f *fakeConn) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*solana.SignatureStatus, error) {
	return f.status, nil
}

func confirmedStatus() *solana.SignatureStatus {
	return &solana.SignatureStatus{ConfirmationStatus: string(solana.CommitmentConfirmed)}
}

func newTestSubmitter(t *testing.T, conn Connection, simulate bool) *Submitter {
	t.Helper()
	wallet, err := solana.NewWallet()
	require.NoError(t, err)
	return New(conn, wallet, Options{
		Simulate:            simulate,
		ConfirmPollInterval: time.Millisecond,
		ConfirmTimeout:      time.Second,
	}, slog.New(slog.DiscardHandler))
}

func testInstruction(payer solana.PublicKey) solana.Instruction {
	return solana.Instruction{
		ProgramID: solana.MustPublicKeyFromBase58("BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG"),
		Accounts:  []solana.AccountMeta{solana.Meta(payer, true, true)},
		Data:      []byte{1},
	}
}

func TestSubmitConfirms(t *testing.T) {
	conn := &fakeConn{status: confirmedStatus()}
	s := newTestSubmitter(t, conn, true)

	sig, err := s.Submit(context.Background(), "buy", testInstruction(s.Wallet().PublicKey()))
	require.NoError(t, err)
	assert.NotEqual(t, solana.Signature{}, sig)
	assert.Equal(t, 1, conn.simulateCalls)
	assert.Equal(t, 1, conn.sendCalls)
}

func TestSubmitAbortsOnSimulationFailure(t *testing.T) {
	conn := &fakeConn{
		simResult: solana.SimulationResult{
			Err:  json.RawMessage(`{"InstructionError":[0,"Custom"]}`),
			Logs: []string{"Program log: Error"},
		},
	}
	s := newTestSubmitter(t, conn, true)

	_, err := s.Submit(context.Background(), "buy", testInstruction(s.Wallet().PublicKey()))
	var simErr *domain.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, "buy", simErr.Label)
	assert.NotEmpty(t, simErr.Logs)
	assert.Equal(t, 0, conn.sendCalls, "a failed simulation must never broadcast")
}

func TestSubmitSkipsSimulationWhenDisabled(t *testing.T) {
	conn := &fakeConn{status: confirmedStatus()}
	s := newTestSubmitter(t, conn, false)

	_, err := s.Submit(context.Background(), "buy", testInstruction(s.Wallet().PublicKey()))
	require.NoError(t, err)
	assert.Equal(t, 0, conn.simulateCalls)
}

func TestSubmitClassifiesAlreadyProcessed(t *testing.T) {
	conn := &fakeConn{
		onSend: func(int) error {
			return errors.New("RPC error: This transaction has already been processed")
		},
	}
	s := newTestSubmitter(t, conn, false)

	_, err := s.Submit(context.Background(), "buy", testInstruction(s.Wallet().PublicKey()))
	assert.ErrorIs(t, err, domain.ErrAlreadySubmitted)
	assert.Equal(t, 1, conn.sendCalls, "a duplicate must not be retried")
}

func TestSubmitRetriesExpiredBlockhashOnce(t *testing.T) {
	conn := &fakeConn{
		status: confirmedStatus(),
		onSend: func(call int) error {
			if call == 1 {
				return errors.New("RPC error: Blockhash not found")
			}
			return nil
		},
	}
	s := newTestSubmitter(t, conn, false)

	sig, err := s.Submit(context.Background(), "finalize", testInstruction(s.Wallet().PublicKey()))
	require.NoError(t, err)
	assert.NotEqual(t, solana.Signature{}, sig)
	assert.Equal(t, 2, conn.sendCalls)
}

func TestSubmitGivesUpAfterSecondExpiry(t *testing.T) {
	conn := &fakeConn{
		onSend: func(int) error {
			return errors.New("RPC error: Blockhash not found")
		},
	}
	s := newTestSubmitter(t, conn, false)

	_, err := s.Submit(context.Background(), "finalize", testInstruction(s.Wallet().PublicKey()))
	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.ErrorIs(t, err, domain.ErrExpiredBlockhash)
	assert.Equal(t, 2, conn.sendCalls, "exactly one retry is permitted")
}

func TestSubmitExpiresWhenHeightPassesWindow(t *testing.T) {
	// No status ever arrives and the chain height is already past the
	// blockhash validity window, so confirmation reports expiry; the retry
	// hits the same wall and the whole submission fails.
	conn := &fakeConn{blockHeight: 101}
	s := newTestSubmitter(t, conn, false)

	_, err := s.Submit(context.Background(), "sweep", testInstruction(s.Wallet().PublicKey()))
	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.ErrorIs(t, err, domain.ErrExpiredBlockhash)
	assert.Equal(t, 2, conn.sendCalls)
}

func TestSubmitReportsOnChainFailure(t *testing.T) {
	conn := &fakeConn{
		status: &solana.SignatureStatus{
			Err:                json.RawMessage(`{"InstructionError":[0,"Custom"]}`),
			ConfirmationStatus: string(solana.CommitmentConfirmed),
		},
	}
	s := newTestSubmitter(t, conn, false)

	_, err := s.Submit(context.Background(), "claim", testInstruction(s.Wallet().PublicKey()))
	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Contains(t, subErr.Err.Error(), "failed on chain")
}
