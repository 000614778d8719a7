package program

import (
	"encoding/binary"
	"fmt"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/solana"
)

// Account struct names as declared on chain, used for discriminator
// checks.
const (
	accountEvent        = "Event"
	accountEventCounter = "EventCounter"
	accountQuestion     = "Question"
)

// accDecoder walks borsh-encoded account data after the 8-byte
// discriminator. It records the first failure and turns every later read
// into a no-op, so call sites stay linear.
type accDecoder struct {
	data []byte
	off  int
	err  error
}

func newAccDecoder(structName string, data []byte) (*accDecoder, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("program: account data too short for discriminator: %d bytes", len(data))
	}
	want := AccountDiscriminator(structName)
	var got [8]byte
	copy(got[:], data[:8])
	if got != want {
		return nil, fmt.Errorf("program: account is not a %s record", structName)
	}
	return &accDecoder{data: data, off: 8}, nil
}

func (d *accDecoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.data) {
		d.err = fmt.Errorf("program: truncated account data at offset %d", d.off)
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *accDecoder) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *accDecoder) Bool() bool {
	return d.U8() != 0
}

func (d *accDecoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *accDecoder) I64() int64 {
	return int64(d.U64())
}

func (d *accDecoder) String() string {
	n := d.take(4)
	if n == nil {
		return ""
	}
	b := d.take(int(binary.LittleEndian.Uint32(n)))
	if b == nil {
		return ""
	}
	return string(b)
}

func (d *accDecoder) Pubkey() solana.PublicKey {
	b := d.take(solana.PublicKeyLength)
	if b == nil {
		return solana.PublicKey{}
	}
	var pk solana.PublicKey
	copy(pk[:], b)
	return pk
}

// DecodeEventCounter decodes a per-creator event counter account.
func DecodeEventCounter(data []byte) (creator solana.PublicKey, count uint64, err error) {
	d, err := newAccDecoder(accountEventCounter, data)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	creator = d.Pubkey()
	count = d.U64()
	return creator, count, d.err
}

// DecodeEvent decodes an event account into a snapshot. Field order
// mirrors the on-chain struct declaration exactly; the settlement fields
// were appended in a later program version, so they sit after the original
// block. VaultLamports is not part of the account data and stays zero.
func DecodeEvent(address solana.PublicKey, data []byte) (*domain.EventSnapshot, error) {
	d, err := newAccDecoder(accountEvent, data)
	if err != nil {
		return nil, err
	}

	s := &domain.EventSnapshot{Address: address}
	s.Creator = d.Pubkey()
	s.EventID = d.U64()
	s.OracleQuestion = d.Pubkey()
	s.Title = d.String()
	s.BetEndTime = d.I64()
	s.CommitEndTime = d.I64()
	s.RevealEndTime = d.I64()
	s.CreatedAt = d.I64()
	s.TotalCollateralLamports = d.U64()
	s.TotalIssuedPerSide = d.U64()
	s.CollateralVault = d.Pubkey()
	s.TrueMint = d.Pubkey()
	s.FalseMint = d.Pubkey()
	s.Resolved = d.Bool()
	s.WinningSide = domain.Side(d.U8())

	s.Category = d.String()
	s.OutstandingTrueUnits = d.U64()
	s.OutstandingFalseUnits = d.U64()
	s.ResultStatus = domain.ResultStatus(d.U8())
	s.ResolvedAt = d.I64()
	s.WinningPercent = d.U8()
	s.PendingCreatorCommission = d.U64()
	s.PendingHouseCommission = d.U64()
	s.OracleFeeSent = d.U64()
	s.UnclaimedSwept = d.Bool()

	if d.err != nil {
		return nil, d.err
	}
	return s, nil
}

// DecodeQuestion decodes an oracle question account into a snapshot.
func DecodeQuestion(address solana.PublicKey, data []byte) (*domain.QuestionSnapshot, error) {
	d, err := newAccDecoder(accountQuestion, data)
	if err != nil {
		return nil, err
	}

	q := &domain.QuestionSnapshot{Address: address}
	q.Asker = d.Pubkey()
	q.ID = d.U64()
	q.Title = d.String()
	d.U64() // reward lamports, unused by this client
	q.CommitEndTime = d.I64()
	q.RevealEndTime = d.I64()
	q.VotesTrue = d.U64()
	q.VotesFalse = d.U64()
	q.VoterCount = d.U64()
	q.Vault = d.Pubkey()

	if d.err != nil {
		return nil, d.err
	}
	return q, nil
}

// DecodeTokenAccountAmount extracts the balance from a raw SPL token
// account (amount is the u64 at offset 64 of the fixed 165-byte layout).
func DecodeTokenAccountAmount(data []byte) (uint64, error) {
	if len(data) < 72 {
		return 0, fmt.Errorf("program: token account data too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[64:72]), nil
}
