package relayer

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	_, err := NewAccount("nope", big.NewInt(1))
	assert.Error(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))

	a, err := NewAccount(hexKey, big.NewInt(42101))
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), a.Address())

	_, synced := a.Nonce()
	assert.False(t, synced)
}

func TestAccountSubmitSignsForChain(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	a, err := NewAccount(common.Bytes2Hex(crypto.FromECDSA(key)), big.NewInt(42101))
	require.NoError(t, err)

	backend := newFakeBackend()
	backend.pendingNonce = 7

	to := common.HexToAddress("0x01")
	tx, err := a.Submit(context.Background(), backend, func(nonce uint64) *ethtypes.Transaction {
		return ethtypes.NewTx(&ethtypes.LegacyTx{Nonce: nonce, To: &to, Gas: 21000, GasPrice: big.NewInt(1)})
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tx.Nonce())

	from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(big.NewInt(42101)), tx)
	require.NoError(t, err)
	assert.Equal(t, a.Address(), from)

	next, synced := a.Nonce()
	assert.True(t, synced)
	assert.Equal(t, uint64(8), next)
}
