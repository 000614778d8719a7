package solana

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// AccountMeta describes how one account participates in an instruction.
type AccountMeta struct {
	PubKey   PublicKey
	Signer   bool
	Writable bool
}

// Meta builds an AccountMeta with the given flags.
func Meta(pk PublicKey, signer, writable bool) AccountMeta {
	return AccountMeta{PubKey: pk, Signer: signer, Writable: writable}
}

// Instruction is a single program invocation: the target program, the
// ordered account list, and the opaque instruction data.
type Instruction struct {
	ProgramID PublicKey
	Accounts  []AccountMeta
	Data      []byte
}

// Signature is a 64-byte ed25519 transaction signature.
type Signature [64]byte

// String returns the base58 encoding used by explorers and RPC.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Transaction is a legacy (non-versioned) Solana transaction. Build it with
// NewTransaction, then Sign and Serialize.
type Transaction struct {
	FeePayer        PublicKey
	RecentBlockhash PublicKey // blockhashes share the 32-byte encoding
	Instructions    []Instruction

	signatures []Signature
	message    []byte
}

// NewTransaction assembles a transaction from instructions. blockhash bounds
// the transaction's validity window.
func NewTransaction(feePayer PublicKey, blockhash PublicKey, instructions ...Instruction) *Transaction {
	return &Transaction{
		FeePayer:        feePayer,
		RecentBlockhash: blockhash,
		Instructions:    instructions,
	}
}

// compiledKeys is the flattened, ordered account table of a message.
type compiledKeys struct {
	keys                []PublicKey
	numRequiredSigs     uint8
	numReadonlySigned   uint8
	numReadonlyUnsigned uint8
}

// index returns the position of pk in the account table.
func (ck *compiledKeys) index(pk PublicKey) (uint8, error) {
	for i, k := range ck.keys {
		if k == pk {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("solana: account %s not in compiled key table", pk)
}

// compileKeys merges every account referenced by the instructions into the
// canonical message ordering: fee payer first, then writable signers,
// read-only signers, writable non-signers, and read-only non-signers.
// Duplicate references are merged with OR-ed signer/writable privileges.
func (tx *Transaction) compileKeys() (*compiledKeys, error) {
	type privilege struct {
		signer   bool
		writable bool
	}

	order := []PublicKey{}
	privs := map[PublicKey]*privilege{}

	upsert := func(pk PublicKey, signer, writable bool) {
		p, ok := privs[pk]
		if !ok {
			p = &privilege{}
			privs[pk] = p
			order = append(order, pk)
		}
		p.signer = p.signer || signer
		p.writable = p.writable || writable
	}

	upsert(tx.FeePayer, true, true)
	for _, ix := range tx.Instructions {
		for _, meta := range ix.Accounts {
			upsert(meta.PubKey, meta.Signer, meta.Writable)
		}
		upsert(ix.ProgramID, false, false)
	}

	var writableSigners, readonlySigners, writableOthers, readonlyOthers []PublicKey
	for _, pk := range order {
		p := privs[pk]
		switch {
		case p.signer && p.writable:
			writableSigners = append(writableSigners, pk)
		case p.signer:
			readonlySigners = append(readonlySigners, pk)
		case p.writable:
			writableOthers = append(writableOthers, pk)
		default:
			readonlyOthers = append(readonlyOthers, pk)
		}
	}

	// The fee payer is always the first writable signer; upsert order above
	// guarantees it, but verify rather than assume.
	if len(writableSigners) == 0 || writableSigners[0] != tx.FeePayer {
		return nil, fmt.Errorf("solana: fee payer must be the first writable signer")
	}

	ck := &compiledKeys{
		numRequiredSigs:     uint8(len(writableSigners) + len(readonlySigners)),
		numReadonlySigned:   uint8(len(readonlySigners)),
		numReadonlyUnsigned: uint8(len(readonlyOthers)),
	}
	ck.keys = append(ck.keys, writableSigners...)
	ck.keys = append(ck.keys, readonlySigners...)
	ck.keys = append(ck.keys, writableOthers...)
	ck.keys = append(ck.keys, readonlyOthers...)
	return ck, nil
}

// Message serializes (and caches) the wire-format message that gets signed.
func (tx *Transaction) Message() ([]byte, error) {
	if tx.message != nil {
		return tx.message, nil
	}

	ck, err := tx.compileKeys()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte(ck.numRequiredSigs)
	buf.WriteByte(ck.numReadonlySigned)
	buf.WriteByte(ck.numReadonlyUnsigned)

	writeCompactU16(&buf, len(ck.keys))
	for _, k := range ck.keys {
		buf.Write(k[:])
	}

	buf.Write(tx.RecentBlockhash[:])

	writeCompactU16(&buf, len(tx.Instructions))
	for _, ix := range tx.Instructions {
		progIdx, err := ck.index(ix.ProgramID)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(progIdx)

		writeCompactU16(&buf, len(ix.Accounts))
		for _, meta := range ix.Accounts {
			idx, err := ck.index(meta.PubKey)
			if err != nil {
				return nil, err
			}
			buf.WriteByte(idx)
		}

		writeCompactU16(&buf, len(ix.Data))
		buf.Write(ix.Data)
	}

	tx.message = buf.Bytes()
	return tx.message, nil
}

// Sign signs the message with every provided key and stores the signatures
// in the order the message's signer table requires.
func (tx *Transaction) Sign(keys ...ed25519.PrivateKey) error {
	msg, err := tx.Message()
	if err != nil {
		return err
	}
	ck, err := tx.compileKeys()
	if err != nil {
		return err
	}

	byPubkey := map[PublicKey]ed25519.PrivateKey{}
	for _, key := range keys {
		pub, err := PublicKeyFromBytes(key.Public().(ed25519.PublicKey))
		if err != nil {
			return err
		}
		byPubkey[pub] = key
	}

	tx.signatures = make([]Signature, ck.numRequiredSigs)
	for i := 0; i < int(ck.numRequiredSigs); i++ {
		signer := ck.keys[i]
		key, ok := byPubkey[signer]
		if !ok {
			return fmt.Errorf("solana: missing private key for required signer %s", signer)
		}
		copy(tx.signatures[i][:], ed25519.Sign(key, msg))
	}
	return nil
}

// Serialize returns the full signed wire format: a compact array of
// signatures followed by the message.
func (tx *Transaction) Serialize() ([]byte, error) {
	msg, err := tx.Message()
	if err != nil {
		return nil, err
	}
	if len(tx.signatures) == 0 {
		return nil, fmt.Errorf("solana: transaction is not signed")
	}

	var buf bytes.Buffer
	writeCompactU16(&buf, len(tx.signatures))
	for _, sig := range tx.signatures {
		buf.Write(sig[:])
	}
	buf.Write(msg)
	return buf.Bytes(), nil
}

// PrimarySignature returns the fee payer's signature, which doubles as the
// transaction id.
func (tx *Transaction) PrimarySignature() (Signature, error) {
	if len(tx.signatures) == 0 {
		return Signature{}, fmt.Errorf("solana: transaction is not signed")
	}
	return tx.signatures[0], nil
}

// writeCompactU16 appends n in the shortvec encoding used by the
// transaction wire format.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
