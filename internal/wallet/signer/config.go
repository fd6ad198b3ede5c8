package signer

import (
	"context"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/config"
	"github/chapool/go-txpipeline/internal/wallet/address"
	"github/chapool/go-txpipeline/internal/wallet/keystore"
	"github/chapool/go-txpipeline/internal/wallet/seed"
)

// ContractsFromConfig parses the configured contract addresses
func ContractsFromConfig(cfg config.Chain) (Contracts, error) {
	var contracts Contracts

	for _, c := range []struct {
		name  string
		value string
		dst   *common.Address
	}{
		{"gold token", cfg.GoldTokenAddress, &contracts.GoldToken},
		{"stable token", cfg.StableTokenAddress, &contracts.StableToken},
		{"exchange", cfg.ExchangeAddress, &contracts.Exchange},
		{"escrow", cfg.EscrowAddress, &contracts.Escrow},
	} {
		if !common.IsHexAddress(c.value) {
			return Contracts{}, errors.Errorf("invalid %s address %q", c.name, c.value)
		}
		*c.dst = common.HexToAddress(c.value)
	}

	return contracts, nil
}

// FromConfig unlocks the configured keystore and returns the signer for cfg.Signer.Mode.
// In console mode every transaction has to be confirmed on in/out.
//
//nolint:ireturn // the mode decides the implementation
func FromConfig(ctx context.Context, cfg config.Server, in io.Reader, out io.Writer) (Signer, error) {
	contracts, err := ContractsFromConfig(cfg.Chain)
	if err != nil {
		return nil, err
	}

	software, err := UnlockSoftware(ctx, UnlockOptions{
		KeystorePath:    cfg.Signer.KeystorePath,
		Password:        cfg.Signer.KeystorePassword,
		Passphrase:      cfg.Signer.Passphrase,
		AccountIndex:    cfg.Signer.AccountIndex,
		ExpectedAddress: cfg.Signer.ExpectedAddress,
		Contracts:       contracts,
	}, keystore.NewService(keystore.StandardCost), seed.NewManager(), address.NewService(cfg.Signer.PathTemplate))
	if err != nil {
		return nil, err
	}

	switch cfg.Signer.Mode {
	case config.SignerModeSoftware:
		return software, nil
	case config.SignerModeConsole:
		return NewHardware(NewConsoleDevice(software, in, out), contracts), nil
	default:
		return nil, errors.Errorf("unknown signer mode %q", cfg.Signer.Mode)
	}
}
