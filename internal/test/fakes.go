package test

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ErrFakeNetwork is the default error returned by fakes set to fail
var ErrFakeNetwork = errors.New("fake network unreachable")

// FakeNetwork quotes fixed fees and counts round trips
type FakeNetwork struct {
	mu       sync.Mutex
	Tip      *big.Int
	Base     *big.Int // nil simulates a pre-London chain
	GasPrice *big.Int
	Err      error
	// Gate, when set, blocks every call until it is closed
	Gate chan struct{}

	calls atomic.Int64
}

// NewFakeNetwork returns a London network with tip 2 and base fee 10
func NewFakeNetwork() *FakeNetwork {
	return &FakeNetwork{
		Tip:      big.NewInt(2),
		Base:     big.NewInt(10),
		GasPrice: big.NewInt(12),
	}
}

// Calls returns the number of BaseFee round trips, one per estimation
func (n *FakeNetwork) Calls() int64 {
	return n.calls.Load()
}

// SetErr makes subsequent calls fail with err
func (n *FakeNetwork) SetErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Err = err
}

func (n *FakeNetwork) wait(ctx context.Context) error {
	n.mu.Lock()
	gate, err := n.Gate, n.Err
	n.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

func (n *FakeNetwork) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if err := n.wait(ctx); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	return copyInt(n.Tip), nil
}

func (n *FakeNetwork) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := n.wait(ctx); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	return copyInt(n.GasPrice), nil
}

func (n *FakeNetwork) BaseFee(ctx context.Context) (*big.Int, error) {
	n.calls.Add(1)
	if err := n.wait(ctx); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	return copyInt(n.Base), nil
}

// FakeChain records broadcasts
type FakeChain struct {
	mu       sync.Mutex
	ID       *big.Int
	Nonce    uint64
	NonceErr error
	SendErr  error
	Sent     []*types.Transaction
}

// NewFakeChain returns a chain with id 44787 and nonce 0
func NewFakeChain() *FakeChain {
	return &FakeChain{ID: big.NewInt(44787)}
}

func (c *FakeChain) ChainID(_ context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return copyInt(c.ID), nil
}

func (c *FakeChain) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.NonceErr != nil {
		return 0, c.NonceErr
	}

	return c.Nonce, nil
}

func (c *FakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		return c.SendErr
	}

	c.Sent = append(c.Sent, tx)
	c.Nonce++

	return nil
}

// SetSendErr makes subsequent broadcasts fail with err, nil restores them
func (c *FakeChain) SetSendErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SendErr = err
}

// SentCount returns how many transactions were broadcast
func (c *FakeChain) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.Sent)
}

// DeviceBackend signs for a FakeDevice once the user "confirms"
type DeviceBackend interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// FakeDevice simulates a hardware wallet. Each SignTx call waits for an answer
// pushed through Approve or Reject, or for ctx.
type FakeDevice struct {
	backend DeviceBackend
	answers chan error
	// Requests receives one value per SignTx call, i.e. per prompt shown on the device
	Requests chan *types.Transaction
	aborts   atomic.Int64
	prompts  atomic.Int64
	// IgnoreContext makes SignTx hang until answered even after ctx is done
	IgnoreContext bool
}

// NewFakeDevice creates a device signing with backend
func NewFakeDevice(backend DeviceBackend) *FakeDevice {
	return &FakeDevice{
		backend:  backend,
		answers:  make(chan error, 1),
		Requests: make(chan *types.Transaction, 16),
	}
}

func (d *FakeDevice) Address() common.Address {
	return d.backend.Address()
}

func (d *FakeDevice) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	d.prompts.Add(1)
	d.Requests <- tx

	if d.IgnoreContext {
		ctx = context.WithoutCancel(ctx)
	}

	select {
	case err := <-d.answers:
		if err != nil {
			return nil, err
		}
		return d.backend.SignTx(ctx, tx, chainID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Approve confirms the pending (or next) prompt
func (d *FakeDevice) Approve() { d.answers <- nil }

// Reject declines the pending (or next) prompt with err
func (d *FakeDevice) Reject(err error) { d.answers <- err }

func (d *FakeDevice) Abort() { d.aborts.Add(1) }

// Aborts returns how many times Abort was called
func (d *FakeDevice) Aborts() int64 { return d.aborts.Load() }

// Prompts returns how many times the device asked for confirmation
func (d *FakeDevice) Prompts() int64 { return d.prompts.Load() }

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}

	return new(big.Int).Set(v)
}
