package signer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"golang.org/x/term"
)

// ConsoleDevice asks an operator at a terminal to confirm each transaction
// before handing it to a backing Device. It behaves like a hardware wallet:
// confirmation is external and may never come.
type ConsoleDevice struct {
	backend Device
	in      io.Reader
	inFile  *os.File
	out     io.Writer

	readOnce sync.Once
	lines    chan string
	readErr  chan error

	mu      sync.Mutex
	pending chan struct{}
}

// NewConsoleDevice reads confirmations from in and writes prompts to out.
// When in is a file it must be a terminal, otherwise the device counts as disconnected.
func NewConsoleDevice(backend Device, in io.Reader, out io.Writer) *ConsoleDevice {
	d := &ConsoleDevice{
		backend: backend,
		in:      in,
		out:     out,
		lines:   make(chan string),
		readErr: make(chan error, 1),
	}

	if f, ok := in.(*os.File); ok {
		d.inFile = f
	}

	return d
}

// Address returns the backend's account
func (d *ConsoleDevice) Address() common.Address {
	return d.backend.Address()
}

// SignTx prints a summary of tx and waits for "y" before signing
func (d *ConsoleDevice) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if d.inFile != nil && !term.IsTerminal(int(d.inFile.Fd())) { //nolint:gosec // file descriptors fit in int
		return nil, ErrDeviceDisconnected
	}

	abort := make(chan struct{})
	d.mu.Lock()
	d.pending = abort
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.pending == abort {
			d.pending = nil
		}
		d.mu.Unlock()
	}()

	to := "contract creation"
	if tx.To() != nil {
		to = tx.To().Hex()
	}

	fmt.Fprintf(d.out, "Confirm transaction from %s\n  to:    %s\n  value: %s\n  gas:   %d @ max %s\n  data:  %d bytes\nSign? [y/N]: ",
		d.backend.Address().Hex(), to, tx.Value(), tx.Gas(), tx.GasFeeCap(), len(tx.Data()))

	d.readOnce.Do(func() { go d.readLines() })

	select {
	case <-ctx.Done():
		fmt.Fprintln(d.out)
		return nil, ctx.Err()
	case <-abort:
		fmt.Fprintln(d.out, "aborted")
		return nil, ErrDeviceRejected
	case err := <-d.readErr:
		d.readErr <- err
		if errors.Is(err, io.EOF) {
			return nil, ErrDeviceDisconnected
		}
		return nil, errors.Wrap(err, "failed to read confirmation")
	case line := <-d.lines:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return d.backend.SignTx(ctx, tx, chainID)
		default:
			return nil, ErrDeviceRejected
		}
	}
}

// readLines is the only reader of in; answers typed while no prompt is open block until the next prompt
func (d *ConsoleDevice) readLines() {
	scanner := bufio.NewScanner(d.in)
	for scanner.Scan() {
		d.lines <- scanner.Text()
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	d.readErr <- err
}

// Abort dismisses the pending prompt, if any
func (d *ConsoleDevice) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		close(d.pending)
		d.pending = nil
	}
}
