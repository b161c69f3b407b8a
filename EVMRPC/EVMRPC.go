package EVMRPC

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"gobetrelay/config"
)

// Client talks to one EVM chain through its RPC list. Connections are dialed
// lazily and kept; calls fail over to the next endpoint on transport errors only.
type Client struct {
	chain   config.ChainConfig
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	clients []*ethclient.Client
}

func NewClient(chain config.ChainConfig, logger *zap.Logger) *Client {
	c := &Client{
		chain:   chain,
		logger:  logger.With(zap.String("chain", chain.Namespace)),
		clients: make([]*ethclient.Client, len(chain.RPCList)),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        chain.Namespace,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsNodeAnswer(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("rpc breaker state changed", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return c
}

func (c *Client) Chain() config.ChainConfig {
	return c.chain
}

// ChainID is taken from the registry, never asked from the node
func (c *Client) ChainID() *big.Int {
	return big.NewInt(c.chain.ChainID)
}

func (c *Client) get(i int) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.clients[i] != nil {
		return c.clients[i], nil
	}
	client, err := ethclient.Dial(c.chain.RPCList[i])
	if err != nil {
		return nil, err
	}
	c.clients[i] = client
	return client, nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, client := range c.clients {
		if client != nil {
			client.Close()
			c.clients[i] = nil
		}
	}
}

// IsNodeAnswer reports errors that come from a node that did answer: another
// endpoint would give the same answer, so they are not failed over.
func IsNodeAnswer(err error) bool {
	if err == nil {
		return false
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return true
	}
	return errors.Is(err, ethereum.NotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// WithClient runs f against the chain's RPC endpoints in order until one answers
func WithClient[T any](ctx context.Context, c *Client, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	if len(c.chain.RPCList) == 0 {
		return res, fmt.Errorf("no rpc endpoints configured for %s", c.chain.Namespace)
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		var lastErr error
		for i := range c.chain.RPCList {
			if i >= config.EVM_RETRIES {
				break
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			client, dialErr := c.get(i)
			if dialErr != nil {
				c.logger.Warn("error connecting to rpc", zap.Int("endpoint", i), zap.Error(dialErr))
				lastErr = dialErr
				continue
			}

			out, callErr := f(client)
			if callErr == nil {
				res = out
				return nil, nil
			}
			if IsNodeAnswer(callErr) {
				return nil, callErr
			}
			c.logger.Warn("rpc call failed, trying next endpoint", zap.Int("endpoint", i), zap.Error(callErr))
			lastErr = callErr
		}
		return nil, lastErr
	})
	return res, err
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (*big.Int, error) {
		return client.BalanceAt(ctx, account, nil)
	})
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (uint64, error) {
		return client.PendingNonceAt(ctx, account)
	})
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (*big.Int, error) {
		return client.SuggestGasPrice(ctx)
	})
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (uint64, error) {
		return client.EstimateGas(ctx, msg)
	})
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) ([]byte, error) {
		return client.CallContract(ctx, msg, blockNumber)
	})
}

// SendTransaction treats a node that already has the transaction as success,
// which happens when a broadcast is retried on the next endpoint.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	_, err := WithClient(ctx, c, func(client *ethclient.Client) (struct{}, error) {
		err := client.SendTransaction(ctx, tx)
		if err != nil && isAlreadyKnown(err) {
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	return err
}

func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (*types.Receipt, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
}

type txLookup struct {
	tx      *types.Transaction
	pending bool
}

func (c *Client) TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error) {
	res, err := WithClient(ctx, c, func(client *ethclient.Client) (txLookup, error) {
		tx, pending, err := client.TransactionByHash(ctx, txHash)
		return txLookup{tx: tx, pending: pending}, err
	})
	return res.tx, res.pending, err
}
