package signer_test

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/wallet/address"
	"github/chapool/go-txpipeline/internal/wallet/keystore"
	"github/chapool/go-txpipeline/internal/wallet/seed"
	"github/chapool/go-txpipeline/internal/wallet/signer"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

//nolint:dupword // standard BIP39 test mnemonic
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

const (
	testAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	recipient   = "0x1111111111111111111111111111111111111111"
)

var (
	chainID   = big.NewInt(44787)
	contracts = signer.Contracts{
		GoldToken:   common.HexToAddress("0x000000000000000000000000000000000000ce10"),
		StableToken: common.HexToAddress("0x000000000000000000000000000000000000c05d"),
		Exchange:    common.HexToAddress("0x00000000000000000000000000000000000e8c4a"),
		Escrow:      common.HexToAddress("0x00000000000000000000000000000000000e5c40"),
	}
)

func selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

func prepared(t *testing.T, draft transaction.Draft) *transaction.Prepared {
	t.Helper()

	p, err := transaction.BuildPrepared(draft, &transaction.FeeCandidate{
		Currency:             transaction.CurrencyCELO,
		Amount:               big.NewInt(21000 * 10),
		Gas:                  draft.Kind.GasLimit(),
		MaxFeePerGas:         big.NewInt(10),
		MaxPriorityFeePerGas: big.NewInt(2),
	})
	require.NoError(t, err)

	return p
}

func newSoftware(t *testing.T) *signer.Software {
	t.Helper()

	seedManager := seed.NewManager()
	require.NoError(t, seedManager.Initialize(testMnemonic, ""))

	addresses := address.NewService("m/44'/60'/0'/0/%d")
	software, err := signer.NewSoftware(t.Context(), seedManager, addresses, addresses.GetBIP44Path(0), contracts)
	require.NoError(t, err)

	return software
}

func TestUnsignedTxCallData(t *testing.T) {
	sig := make([]byte, 65)

	tests := []struct {
		name     string
		draft    transaction.Draft
		to       common.Address
		value    int64
		selector []byte
	}{
		{
			name:  "native transfer",
			draft: transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO},
			to:    common.HexToAddress(recipient),
			value: 7,
		},
		{
			name:     "token transfer",
			draft:    transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCUSD},
			to:       contracts.StableToken,
			selector: selector("transfer(address,uint256)"),
		},
		{
			name:     "gold token transfer",
			draft:    transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO},
			to:       contracts.GoldToken,
			selector: selector("transfer(address,uint256)"),
		},
		{
			name:     "transfer with comment",
			draft:    transaction.Draft{Kind: transaction.KindTokenTransferWithComment, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCUSD, Comment: "rent"},
			to:       contracts.StableToken,
			selector: selector("transferWithComment(address,uint256,string)"),
		},
		{
			name:     "approve",
			draft:    transaction.Draft{Kind: transaction.KindTokenApprove, Recipient: recipient, Amount: big.NewInt(0), Currency: transaction.CurrencyCUSD},
			to:       contracts.StableToken,
			selector: selector("approve(address,uint256)"),
		},
		{
			name:     "exchange",
			draft:    transaction.Draft{Kind: transaction.KindTokenExchange, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO, Exchange: &transaction.ExchangeTerms{MinBuyAmount: big.NewInt(5)}},
			to:       contracts.Exchange,
			selector: selector("sell(uint256,uint256,bool)"),
		},
		{
			name:     "escrow transfer",
			draft:    transaction.Draft{Kind: transaction.KindEscrowTransfer, Amount: big.NewInt(7), Currency: transaction.CurrencyCUSD, Escrow: &transaction.EscrowTerms{PaymentID: recipient, ExpirySeconds: 86400}},
			to:       contracts.Escrow,
			selector: selector("transfer(bytes32,address,uint256,uint256,address,uint256)"),
		},
		{
			name:     "escrow withdraw",
			draft:    transaction.Draft{Kind: transaction.KindEscrowWithdraw, Amount: big.NewInt(0), Currency: transaction.CurrencyCUSD, Escrow: &transaction.EscrowTerms{PaymentID: recipient, Signature: sig}},
			to:       contracts.Escrow,
			selector: selector("withdraw(address,uint8,bytes32,bytes32)"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := contracts.UnsignedTx(prepared(t, tt.draft), 3, chainID)
			require.NoError(t, err)

			require.NotNil(t, tx.To())
			assert.Equal(t, tt.to, *tx.To())
			assert.Equal(t, int64(tt.value), tx.Value().Int64())
			assert.Equal(t, uint64(3), tx.Nonce())
			assert.Equal(t, tt.draft.Kind.GasLimit(), tx.Gas())
			assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
			assert.Equal(t, "10", tx.GasFeeCap().String())
			assert.Equal(t, "2", tx.GasTipCap().String())

			if tt.selector == nil {
				assert.Empty(t, tx.Data())
				return
			}
			require.GreaterOrEqual(t, len(tx.Data()), 4)
			assert.Equal(t, tt.selector, tx.Data()[:4])
		})
	}
}

func TestUnsignedTxRejectsMissingGas(t *testing.T) {
	p := prepared(t, transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO})
	p.Fee.MaxFeePerGas = nil

	_, err := contracts.UnsignedTx(p, 0, chainID)
	require.Error(t, err)
	assert.Equal(t, txfail.ReasonInvalidDraft, txfail.ReasonOf(err))
}

func TestSoftwareSign(t *testing.T) {
	software := newSoftware(t)

	desc := software.Describe()
	assert.Equal(t, signer.KindSoftware, desc.Kind)
	assert.False(t, desc.RequiresExternalConfirmation)
	assert.Equal(t, testAddress, desc.Address.Hex())

	p := prepared(t, transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO})
	signed, err := software.Sign(t.Context(), &signer.Request{Prepared: p, Nonce: 1, ChainID: chainID})
	require.NoError(t, err)

	sender, err := types.Sender(types.NewLondonSigner(chainID), signed.Tx)
	require.NoError(t, err)
	assert.Equal(t, testAddress, sender.Hex())
	assert.Equal(t, signed.Tx.Hash().Hex(), signed.TxHash)

	var decoded types.Transaction
	require.NoError(t, decoded.UnmarshalBinary(signed.RawTransaction))
	assert.Equal(t, signed.TxHash, decoded.Hash().Hex())
}

func TestSoftwareSignAfterClear(t *testing.T) {
	seedManager := seed.NewManager()
	require.NoError(t, seedManager.Initialize(testMnemonic, ""))
	addresses := address.NewService("m/44'/60'/0'/0/%d")

	software, err := signer.NewSoftware(t.Context(), seedManager, addresses, addresses.GetBIP44Path(0), contracts)
	require.NoError(t, err)

	seedManager.Clear()

	p := prepared(t, transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO})
	_, err = software.Sign(t.Context(), &signer.Request{Prepared: p, ChainID: chainID})
	require.Error(t, err)
	assert.Equal(t, txfail.ReasonSignerUnavailable, txfail.ReasonOf(err))
}

type stubDevice struct {
	addr    common.Address
	signTx  func(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	mu      sync.Mutex
	aborted bool
}

func (d *stubDevice) Address() common.Address { return d.addr }

func (d *stubDevice) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return d.signTx(ctx, tx, chainID)
}

func (d *stubDevice) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aborted = true
}

func TestHardwareSign(t *testing.T) {
	software := newSoftware(t)
	device := &stubDevice{addr: software.Address(), signTx: software.SignTx}
	hardware := signer.NewHardware(device, contracts)

	desc := hardware.Describe()
	assert.Equal(t, signer.KindHardware, desc.Kind)
	assert.True(t, desc.RequiresExternalConfirmation)
	assert.Equal(t, software.Address(), desc.Address)

	p := prepared(t, transaction.Draft{Kind: transaction.KindTokenTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCUSD})
	signed, err := hardware.Sign(t.Context(), &signer.Request{Prepared: p, Nonce: 4, ChainID: chainID})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), signed.Tx.Nonce())

	hardware.Abort()
	assert.True(t, device.aborted)
}

func TestHardwareSignFailures(t *testing.T) {
	software := newSoftware(t)
	p := prepared(t, transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO})

	tests := []struct {
		name   string
		signTx func(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
		reason txfail.Reason
	}{
		{
			name: "rejected",
			signTx: func(context.Context, *types.Transaction, *big.Int) (*types.Transaction, error) {
				return nil, signer.ErrDeviceRejected
			},
			reason: txfail.ReasonSignerRejected,
		},
		{
			name: "disconnected",
			signTx: func(context.Context, *types.Transaction, *big.Int) (*types.Transaction, error) {
				return nil, signer.ErrDeviceDisconnected
			},
			reason: txfail.ReasonSignerUnavailable,
		},
		{
			name: "deadline",
			signTx: func(ctx context.Context, _ *types.Transaction, _ *big.Int) (*types.Transaction, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			reason: txfail.ReasonSignerTimeout,
		},
		{
			name: "wrong account",
			signTx: func(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
				key, err := crypto.GenerateKey()
				if err != nil {
					return nil, err
				}
				return types.SignTx(tx, types.NewLondonSigner(chainID), key)
			},
			reason: txfail.ReasonSignerUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hardware := signer.NewHardware(&stubDevice{addr: software.Address(), signTx: tt.signTx}, contracts)

			ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
			defer cancel()

			_, err := hardware.Sign(ctx, &signer.Request{Prepared: p, ChainID: chainID})
			require.Error(t, err)
			assert.Equal(t, tt.reason, txfail.ReasonOf(err))
		})
	}
}

func TestConsoleDevice(t *testing.T) {
	software := newSoftware(t)
	p := prepared(t, transaction.Draft{Kind: transaction.KindNativeTransfer, Recipient: recipient, Amount: big.NewInt(7), Currency: transaction.CurrencyCELO})
	tx, err := contracts.UnsignedTx(p, 0, chainID)
	require.NoError(t, err)

	t.Run("confirmed", func(t *testing.T) {
		var out strings.Builder
		device := signer.NewConsoleDevice(software, strings.NewReader("y\n"), &out)

		signedTx, err := device.SignTx(t.Context(), tx, chainID)
		require.NoError(t, err)
		assert.NotNil(t, signedTx)
		assert.Contains(t, out.String(), recipient)
		assert.Equal(t, software.Address(), device.Address())
	})

	t.Run("declined", func(t *testing.T) {
		device := signer.NewConsoleDevice(software, strings.NewReader("n\n"), &strings.Builder{})

		_, err := device.SignTx(t.Context(), tx, chainID)
		require.ErrorIs(t, err, signer.ErrDeviceRejected)
	})

	t.Run("closed input", func(t *testing.T) {
		device := signer.NewConsoleDevice(software, strings.NewReader(""), &strings.Builder{})

		_, err := device.SignTx(t.Context(), tx, chainID)
		require.ErrorIs(t, err, signer.ErrDeviceDisconnected)
	})
}

func TestUnlockSoftware(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "wallet.json")
	keystoreService := keystore.NewService(keystore.LightCost)
	require.NoError(t, keystoreService.Create(ctx, path, testMnemonic, "correct horse"))

	addresses := address.NewService("m/44'/60'/0'/0/%d")

	t.Run("prompted password", func(t *testing.T) {
		seedManager := seed.NewManager()
		software, err := signer.UnlockSoftware(ctx, signer.UnlockOptions{
			KeystorePath:    path,
			ExpectedAddress: testAddress,
			PromptPassword:  func(string) (string, error) { return "correct horse", nil },
		}, keystoreService, seedManager, addresses)
		require.NoError(t, err)
		assert.Equal(t, testAddress, software.Address().Hex())
		assert.True(t, seedManager.IsInitialized())
	})

	t.Run("unexpected address", func(t *testing.T) {
		seedManager := seed.NewManager()
		_, err := signer.UnlockSoftware(ctx, signer.UnlockOptions{
			KeystorePath:    path,
			Password:        "correct horse",
			ExpectedAddress: recipient,
		}, keystoreService, seedManager, addresses)
		require.ErrorIs(t, err, signer.ErrAddressMismatch)
		assert.False(t, seedManager.IsInitialized())
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := signer.UnlockSoftware(ctx, signer.UnlockOptions{
			KeystorePath: path,
			Password:     "battery staple",
		}, keystoreService, seed.NewManager(), addresses)
		require.ErrorIs(t, err, keystore.ErrInvalidPassword)
	})

	t.Run("missing keystore", func(t *testing.T) {
		_, err := signer.UnlockSoftware(ctx, signer.UnlockOptions{
			KeystorePath: filepath.Join(t.TempDir(), "missing.json"),
			Password:     "correct horse",
		}, keystoreService, seed.NewManager(), addresses)
		require.Error(t, err)
	})
}
