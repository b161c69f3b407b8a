package relayer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

type nonceSender interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
}

// Account is the relay account paying for bets. It is the single writer of
// its nonce sequence: assignment, signing and broadcast happen under mu.
type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  ethtypes.Signer

	mu     sync.Mutex
	nonce  uint64
	synced bool
}

func NewAccount(hexKey string, chainID *big.Int) (*Account, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid relay private key: %w", err)
	}
	return &Account{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  ethtypes.LatestSignerForChainID(chainID),
	}, nil
}

func (a *Account) Address() common.Address {
	return a.address
}

// Submit signs the transaction built for the next nonce and broadcasts it.
// A failed broadcast drops the local counter so the next call resyncs from
// the node's pending nonce.
func (a *Account) Submit(ctx context.Context, backend nonceSender, build func(nonce uint64) *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.synced {
		n, err := backend.PendingNonceAt(ctx, a.address)
		if err != nil {
			return nil, err
		}
		a.nonce = n
		a.synced = true
	}

	signed, err := ethtypes.SignTx(build(a.nonce), a.signer, a.key)
	if err != nil {
		return nil, fmt.Errorf("cannot sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signed); err != nil {
		a.synced = false
		return nil, err
	}
	a.nonce++
	return signed, nil
}

// Nonce returns the next nonce to be used, and whether it is known yet
func (a *Account) Nonce() (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nonce, a.synced
}
