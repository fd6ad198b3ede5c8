package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

// Hardware signs through a Device that needs the user's confirmation
type Hardware struct {
	device    Device
	contracts Contracts
	desc      Descriptor
}

// NewHardware wraps a device. The account address is read once here so Describe stays pure.
func NewHardware(device Device, contracts Contracts) *Hardware {
	return &Hardware{
		device:    device,
		contracts: contracts,
		desc: Descriptor{
			Kind:                         KindHardware,
			RequiresExternalConfirmation: true,
			Address:                      device.Address(),
		},
	}
}

// Describe reports a hardware signer requiring external confirmation
func (h *Hardware) Describe() Descriptor {
	return h.desc
}

// Sign asks the device to sign and blocks until it answers or ctx is done
func (h *Hardware) Sign(ctx context.Context, req *Request) (*Signed, error) {
	log := util.LogFromContext(ctx)

	tx, err := h.contracts.UnsignedTx(req.Prepared, req.Nonce, req.ChainID)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("address", h.desc.Address.Hex()).Uint64("nonce", req.Nonce).Msg("Waiting for device confirmation")

	signedTx, err := h.device.SignTx(ctx, tx, req.ChainID)
	if err != nil {
		return nil, classifyDeviceError(ctx, err)
	}

	sender, err := types.Sender(types.NewLondonSigner(req.ChainID), signedTx)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonSignerUnavailable, "device returned an unverifiable signature")
	}

	if sender != h.desc.Address {
		return nil, txfail.Newf(txfail.ReasonSignerUnavailable, "device signed as %s instead of %s", sender.Hex(), h.desc.Address.Hex())
	}

	return newSigned(signedTx)
}

// Abort dismisses a pending confirmation on devices that support it
func (h *Hardware) Abort() {
	if aborter, ok := h.device.(Aborter); ok {
		aborter.Abort()
	}
}

func classifyDeviceError(ctx context.Context, err error) error {
	if _, ok := txfail.As(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrDeviceRejected):
		return txfail.Wrap(err, txfail.ReasonSignerRejected, "signing was rejected on the device")
	case errors.Is(err, ErrDeviceDisconnected):
		return txfail.Wrap(err, txfail.ReasonSignerUnavailable, "signing device is not connected")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return txfail.Wrap(err, txfail.ReasonSignerTimeout, "device did not answer in time")
	default:
		return txfail.Wrap(err, txfail.ReasonSignerUnavailable, "device failed to sign")
	}
}
