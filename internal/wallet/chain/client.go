package chain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrUnavailable is returned when none of the configured RPC nodes answer
var ErrUnavailable = errors.New("all RPC clients are unavailable")

// Client wraps ethclient with multiple RPC URLs and failover
type Client struct {
	urls    []string
	clients []*ethclient.Client
	mu      sync.RWMutex
	current int
}

// NewClient dials every URL. Nodes that fail to dial are retried on use.
func NewClient(urls []string) (*Client, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	clients := make([]*ethclient.Client, len(urls))
	connected := 0
	for i, url := range urls {
		client, err := ethclient.Dial(url)
		if err != nil {
			log.Warn().
				Str("url", url).
				Err(err).
				Msg("Failed to connect to RPC node, will retry on use")
			continue
		}
		clients[i] = client
		connected++
	}

	if connected == 0 {
		return nil, errors.New("failed to connect to any RPC node")
	}

	return &Client{
		urls:    urls,
		clients: clients,
	}, nil
}

// Close closes all client connections
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, client := range c.clients {
		if client != nil {
			client.Close()
		}
	}
}

// ChainID returns the chain ID reported by the node
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain ID")
	}

	return chainID, nil
}

// SuggestGasTipCap suggests a priority fee per gas (EIP-1559)
func (c *Client) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	tipCap, err := client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas tip cap")
	}

	return tipCap, nil
}

// SuggestGasPrice suggests a legacy gas price, used on chains without a base fee
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas price")
	}

	return gasPrice, nil
}

// BaseFee returns the base fee of the latest header, nil before London
func (c *Client) BaseFee(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	header, err := client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest header")
	}

	return header.BaseFee, nil
}

// PendingNonceAt returns the pending nonce for the given address.
func (c *Client) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}

	nonce, err := client.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get pending nonce")
	}

	return nonce, nil
}

// SendTransaction broadcasts a signed transaction
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	client, err := c.getClient(ctx)
	if err != nil {
		return err
	}

	if err := client.SendTransaction(ctx, tx); err != nil {
		return errors.Wrap(err, "failed to send transaction")
	}

	return nil
}

// TransactionByHash looks a transaction up in the pool or chain
func (c *Client) TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, false, err
	}

	tx, isPending, err := client.TransactionByHash(ctx, txHash)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get transaction")
	}

	return tx, isPending, nil
}

// TransactionReceipt returns the receipt of a mined transaction
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction receipt")
	}

	return receipt, nil
}

// Ping reports whether any node answers, used by the readiness probe
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.getClient(ctx)
	return err
}

// getClient returns the first healthy client starting at the current index,
// redialing nodes that were never connected
func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.RLock()
	start := c.current
	snapshot := make([]*ethclient.Client, len(c.clients))
	copy(snapshot, c.clients)
	c.mu.RUnlock()

	for i := range snapshot {
		idx := (start + i) % len(snapshot)
		client := snapshot[idx]

		if client == nil {
			dialed, err := ethclient.DialContext(ctx, c.urls[idx])
			if err != nil {
				log.Warn().Str("url", c.urls[idx]).Err(err).Msg("Failed to redial RPC node")
				continue
			}

			c.mu.Lock()
			if c.clients[idx] == nil {
				c.clients[idx] = dialed
			} else {
				dialed.Close()
			}
			client = c.clients[idx]
			c.mu.Unlock()
		}

		// health check
		if _, err := client.ChainID(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "RPC health check aborted")
			}
			log.Warn().
				Str("url", c.urls[idx]).
				Err(err).
				Msg("RPC client health check failed, trying next node")
			continue
		}

		if idx != start {
			c.mu.Lock()
			c.current = idx
			c.mu.Unlock()
		}

		return client, nil
	}

	return nil, ErrUnavailable
}
