package redis

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictsol/predictsol-go/internal/solana"
)

func TestOptionsMapping(t *testing.T) {
	cfg := Config{
		Addr:       "cache:6380",
		Password:   "hunter2",
		DB:         3,
		PoolSize:   7,
		MaxRetries: 5,
	}

	opts := options(cfg)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "hunter2", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Nil(t, opts.TLSConfig)

	cfg.TLSEnabled = true
	opts = options(cfg)
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, uint16(tls.VersionTLS12), opts.TLSConfig.MinVersion)
}

func TestEventKeySchema(t *testing.T) {
	addr := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	assert.Equal(t, "event:"+addr.String(), eventKey(addr))
}
