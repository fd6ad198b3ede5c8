package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
)

// Kind distinguishes where the signing key lives
type Kind string

const (
	KindSoftware Kind = "software"
	KindHardware Kind = "hardware"
)

// Descriptor tells the pipeline how a signer behaves before anything is signed
type Descriptor struct {
	Kind Kind `json:"kind"`
	// RequiresExternalConfirmation is set when a human has to approve on a device
	RequiresExternalConfirmation bool           `json:"requiresExternalConfirmation"`
	Address                      common.Address `json:"address"`
}

// Signer signs prepared transactions.
// Describe must not block and must not touch the device; a missing device is reported by Sign.
type Signer interface {
	Describe() Descriptor
	Sign(ctx context.Context, req *Request) (*Signed, error)
}

// Aborter is implemented by signers that can dismiss a pending confirmation
type Aborter interface {
	Abort()
}

// Device is a signing backend holding a single account, typically hardware
type Device interface {
	Address() common.Address
	// SignTx blocks until the user confirms or rejects on the device
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

var (
	// ErrDeviceRejected is returned by a Device when the user declines
	ErrDeviceRejected = errors.New("rejected on device")
	// ErrDeviceDisconnected is returned by a Device that cannot be reached
	ErrDeviceDisconnected = errors.New("device disconnected")
)

// Request represents a request to sign a prepared transaction
type Request struct {
	Prepared *transaction.Prepared
	Nonce    uint64
	ChainID  *big.Int
}

// Signed represents a signed EVM transaction
type Signed struct {
	RawTransaction []byte // RLP-encoded signed transaction
	TxHash         string // Transaction hash (hex string with 0x prefix)
	Tx             *types.Transaction
}

func newSigned(tx *types.Transaction) (*Signed, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &Signed{
		RawTransaction: raw,
		TxHash:         tx.Hash().Hex(),
		Tx:             tx,
	}, nil
}
