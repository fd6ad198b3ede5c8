package signer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/util"
	"github/chapool/go-txpipeline/internal/wallet/address"
	"github/chapool/go-txpipeline/internal/wallet/keystore"
	"github/chapool/go-txpipeline/internal/wallet/seed"
)

// ErrAddressMismatch is returned when the unlocked account differs from the configured one,
// which usually means a wrong keystore or BIP39 passphrase
var ErrAddressMismatch = errors.New("derived address does not match expected address")

// UnlockOptions configures UnlockSoftware
type UnlockOptions struct {
	KeystorePath string
	// Password decrypts the keystore. When empty, PromptPassword is used.
	Password string
	// Passphrase is the optional BIP39 passphrase
	Passphrase string
	// AccountIndex selects the BIP44 address index
	AccountIndex int
	// ExpectedAddress, when set, must match the derived account
	ExpectedAddress string
	Contracts       Contracts
	PromptPassword  func(prompt string) (string, error)
}

// UnlockSoftware decrypts the keystore, initializes the seed manager and
// returns a software signer for the configured account.
func UnlockSoftware(
	ctx context.Context,
	opts UnlockOptions,
	keystoreService keystore.Service,
	seedManager seed.Manager,
	addressService address.Service,
) (*Software, error) {
	log := util.LogFromContext(ctx).With().Str("component", "signer_unlock").Logger()

	exists, err := keystoreService.Exists(opts.KeystorePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check keystore existence")
	}
	if !exists {
		return nil, errors.Errorf("keystore %s not found, create one with `app keystore new`", opts.KeystorePath)
	}

	password := opts.Password
	if password == "" {
		prompt := opts.PromptPassword
		if prompt == nil {
			prompt = keystore.PromptPassword
		}

		log.Info().Str("path", opts.KeystorePath).Msg("Keystore found. Please enter password to unlock...")

		password, err = prompt("Enter keystore password: ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to read password")
		}
	}

	mnemonic, err := keystoreService.Unlock(ctx, opts.KeystorePath, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt keystore (invalid password?)")
	}

	if err := seedManager.Initialize(mnemonic, opts.Passphrase); err != nil {
		return nil, errors.Wrap(err, "failed to initialize seed manager")
	}

	software, err := NewSoftware(ctx, seedManager, addressService, addressService.GetBIP44Path(opts.AccountIndex), opts.Contracts)
	if err != nil {
		seedManager.Clear()
		return nil, err
	}

	if opts.ExpectedAddress != "" && common.HexToAddress(opts.ExpectedAddress) != software.Address() {
		log.Warn().
			Str("derived", software.Address().Hex()).
			Str("expected", opts.ExpectedAddress).
			Msg("Address verification failed: addresses do not match")
		seedManager.Clear()

		return nil, ErrAddressMismatch
	}

	log.Info().Str("address", software.Address().Hex()).Msg("Software signer unlocked")

	return software, nil
}
