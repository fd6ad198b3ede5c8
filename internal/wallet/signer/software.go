package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/wallet/address"
	"github/chapool/go-txpipeline/internal/wallet/seed"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

// Software signs with a key derived from the in-memory seed
type Software struct {
	seedManager    seed.Manager
	addressService address.Service
	path           string
	address        common.Address
	contracts      Contracts
}

// NewSoftware derives the signing account along path. The seed must already be initialized.
func NewSoftware(ctx context.Context, seedManager seed.Manager, addressService address.Service, path string, contracts Contracts) (*Software, error) {
	seed := seedManager.GetSeed()
	if seed == nil {
		return nil, errors.New("seed not initialized")
	}
	defer address.Zero(seed)

	derived, err := addressService.DeriveAddress(ctx, seed, path, address.ChainTypeEVM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive signing address")
	}

	return &Software{
		seedManager:    seedManager,
		addressService: addressService,
		path:           path,
		address:        common.HexToAddress(derived),
		contracts:      contracts,
	}, nil
}

// Describe reports a software signer that never needs external confirmation
func (s *Software) Describe() Descriptor {
	return Descriptor{
		Kind:                         KindSoftware,
		RequiresExternalConfirmation: false,
		Address:                      s.address,
	}
}

// Address returns the signing account
func (s *Software) Address() common.Address {
	return s.address
}

// Sign encodes and signs a prepared transaction (EIP-1559)
func (s *Software) Sign(ctx context.Context, req *Request) (*Signed, error) {
	tx, err := s.contracts.UnsignedTx(req.Prepared, req.Nonce, req.ChainID)
	if err != nil {
		return nil, err
	}

	signedTx, err := s.SignTx(ctx, tx, req.ChainID)
	if err != nil {
		return nil, err
	}

	return newSigned(signedTx)
}

// SignTx signs an arbitrary transaction with the derived key, letting Software back a Device
func (s *Software) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	seed := s.seedManager.GetSeed()
	if seed == nil {
		return nil, txfail.New(txfail.ReasonSignerUnavailable, "seed not initialized")
	}
	defer address.Zero(seed)

	privateKey, err := s.addressService.DerivePrivateKey(ctx, seed, s.path, address.ChainTypeEVM)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonSignerUnavailable, "failed to derive private key")
	}
	defer address.Zero(privateKey)

	ecdsaPrivateKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonSignerUnavailable, "failed to convert private key to ECDSA")
	}

	if crypto.PubkeyToAddress(ecdsaPrivateKey.PublicKey) != s.address {
		return nil, txfail.New(txfail.ReasonSignerUnavailable, "seed no longer matches the signing address")
	}

	signedTx, err := types.SignTx(tx, types.NewLondonSigner(chainID), ecdsaPrivateKey)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonSignerRejected, "failed to sign transaction")
	}

	return signedTx, nil
}
