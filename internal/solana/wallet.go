package solana

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Wallet holds the ed25519 keypair that pays fees and signs every
// transaction this client submits. The zero value is unusable; construct
// with NewWallet or WalletFromKeypairBytes.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  PublicKey
}

// NewWallet generates a fresh random keypair.
func NewWallet() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("solana: generate keypair: %w", err)
	}
	pk, err := PublicKeyFromBytes(pub)
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: pk}, nil
}

// WalletFromKeypairBytes builds a wallet from the standard 64-byte
// keypair layout (32-byte seed followed by the 32-byte public key), which
// is what solana-keygen writes and what the encrypted keystore stores.
func WalletFromKeypairBytes(raw []byte) (*Wallet, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("solana: expected %d keypair bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(append([]byte(nil), raw...))
	pk, err := PublicKeyFromBytes(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	return &Wallet{priv: priv, pub: pk}, nil
}

// WalletFromBase58 decodes a base58-encoded 64-byte keypair.
func WalletFromBase58(s string) (*Wallet, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("solana: decode keypair: %w", err)
	}
	return WalletFromKeypairBytes(raw)
}

// PublicKey returns the wallet's address.
func (w *Wallet) PublicKey() PublicKey {
	return w.pub
}

// PrivateKey exposes the signing key for Transaction.Sign.
func (w *Wallet) PrivateKey() ed25519.PrivateKey {
	return w.priv
}

// KeypairBytes returns the 64-byte keypair for persistence.
func (w *Wallet) KeypairBytes() []byte {
	return append([]byte(nil), w.priv...)
}
