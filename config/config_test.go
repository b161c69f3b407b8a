package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobetrelay/types"
)

const testConfig = `
log_level: debug
server:
  listen: ":9090"
  redis_host: redis
relay:
  contract_address: "0x00000000000000000000000000000000000000aa"
  private_key: "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
  receipt_timeout: 30s
chains:
  eip155:11155111:
    rate: "2000"
    rpc: ["http://localhost:8545"]
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0o600))
	t.Setenv("RELAY_GAS_LIMIT_CEILING", "300000")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "redis", cfg.Server.RedisHost)
	assert.Equal(t, 6379, cfg.Server.RedisPort)
	assert.Equal(t, 30*time.Second, cfg.Relay.ReceiptTimeout)
	assert.Equal(t, uint64(300000), cfg.Relay.GasLimitCeiling)
	assert.Equal(t, DefaultDestinationChain, cfg.Relay.DestinationChain)

	sepolia, err := NewRegistry(cfg.Relay.DestinationChain, cfg.Chains).Lookup("eip155:11155111")
	require.NoError(t, err)
	assert.Equal(t, "2000", sepolia.Rate)
	assert.Equal(t, []string{"http://localhost:8545"}, sepolia.RPCList)
	assert.Equal(t, "0.0001", sepolia.MinBridgeAmount)
}

func TestLoadRequiresPrivateKey(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RELAY_CONTRACT_ADDRESS", "0x00000000000000000000000000000000000000aa")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "private key")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(DefaultDestinationChain, nil)

	_, err := r.Lookup("eip155:1")
	assert.Equal(t, types.ErrUnsupportedChain, types.KindOf(err))

	list := r.List()
	require.Len(t, list, 3)
	assert.True(t, list[0].Native)
	assert.Equal(t, "eip155:42101", list[0].Namespace)

	assert.Equal(t, "solana", Family("solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1"))
	assert.Equal(t, "eip155", Family("eip155:11155111"))
	assert.Equal(t, "bogus", Family("bogus"))
}

func TestRegistryOverridesDoNotLeak(t *testing.T) {
	r := NewRegistry(DefaultDestinationChain, map[string]ChainOverride{"eip155:42101": {RPCList: []string{"http://node"}}})
	c, err := r.Lookup("eip155:42101")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://node"}, c.RPCList)

	assert.NotEqual(t, []string{"http://node"}, Chains["eip155:42101"].RPCList)
}

func TestRegistryFollowsDestination(t *testing.T) {
	r := NewRegistry("eip155:11155111", nil)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "eip155:11155111", list[0].Namespace)
	assert.True(t, list[0].Native)

	push, err := r.Lookup("eip155:42101")
	require.NoError(t, err)
	assert.False(t, push.Native)
}

func TestLoadNonDefaultDestination(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0o600))
	t.Setenv("RELAY_DESTINATION_CHAIN", "eip155:11155111")

	cfg, err := Load(dir)
	require.NoError(t, err)

	dest, err := NewRegistry(cfg.Relay.DestinationChain, cfg.Chains).Lookup(cfg.Relay.DestinationChain)
	require.NoError(t, err)
	assert.True(t, dest.Native)
	assert.Equal(t, int64(11155111), dest.ChainID)
}

func TestLoadRejectsZeroWorkerIntervals(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0o600))

	t.Setenv("WORKERS_MARKET_SYNC_INTERVAL", "0s")
	_, err := Load(dir)
	assert.ErrorContains(t, err, "worker intervals")

	t.Setenv("WORKERS_MARKET_SYNC_INTERVAL", "1m")
	t.Setenv("WORKERS_PENDING_CHECK_INTERVAL", "0s")
	_, err = Load(dir)
	assert.ErrorContains(t, err, "worker intervals")
}
