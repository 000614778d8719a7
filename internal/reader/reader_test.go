package reader

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictsol/predictsol-go/internal/domain"
	"github.com/predictsol/predictsol-go/internal/pda"
	"github.com/predictsol/predictsol-go/internal/solana"
)

func testDeriver() *pda.Deriver {
	return pda.NewDeriver(
		solana.MustPublicKeyFromBase58("BNn1nkWfB99z9b515Bk6aC5sDexX1Hf5BpfTL1zr7gtG"),
		solana.MustPublicKeyFromBase58("FFL71XjBkjq5gce7EtpB7Wa5p8qnRNueLKSzM4tkEMoc"),
	)
}

// newTestReader serves every RPC call with the given canned JSON body.
func newTestReader(t *testing.T, body string) *Reader {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return New(solana.NewClient(srv.URL), nil, testDeriver(), slog.New(slog.DiscardHandler))
}

func TestReadTokenBalance(t *testing.T) {
	ata := solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")

	t.Run("existing account", func(t *testing.T) {
		r := newTestReader(t, `{"jsonrpc":"2.0","id":1,"result":{"value":{"amount":"1500","decimals":9}}}`)
		amount, exists, err := r.ReadTokenBalance(context.Background(), ata)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, uint64(1500), amount)
	})

	t.Run("missing account reports exists false", func(t *testing.T) {
		r := newTestReader(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"could not find account"}}`)
		amount, exists, err := r.ReadTokenBalance(context.Background(), ata)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Zero(t, amount)
	})

	t.Run("transport failure is a read error", func(t *testing.T) {
		r := New(solana.NewClient("http://127.0.0.1:0"), nil, testDeriver(), slog.New(slog.DiscardHandler))
		_, _, err := r.ReadTokenBalance(context.Background(), ata)
		var rerr *domain.ReadError
		require.ErrorAs(t, err, &rerr)
	})
}
