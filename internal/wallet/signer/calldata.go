package signer

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

// ERC20 plus the stable token's transferWithComment
const tokenABIJSON = `[
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"type":"bool"}]},
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"type":"bool"}]},
	{"type":"function","name":"transferWithComment","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"comment","type":"string"}],"outputs":[{"type":"bool"}]}
]`

const exchangeABIJSON = `[
	{"type":"function","name":"sell","inputs":[{"name":"sellAmount","type":"uint256"},{"name":"minBuyAmount","type":"uint256"},{"name":"sellGold","type":"bool"}],"outputs":[{"type":"uint256"}]}
]`

const escrowABIJSON = `[
	{"type":"function","name":"transfer","inputs":[{"name":"identifier","type":"bytes32"},{"name":"token","type":"address"},{"name":"value","type":"uint256"},{"name":"expirySeconds","type":"uint256"},{"name":"paymentId","type":"address"},{"name":"minAttestations","type":"uint256"}],"outputs":[{"type":"bool"}]},
	{"type":"function","name":"withdraw","inputs":[{"name":"paymentId","type":"address"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[{"type":"bool"}]}
]`

const escrowSignatureLength = 65

var (
	tokenABI    = mustParseABI(tokenABIJSON)
	exchangeABI = mustParseABI(exchangeABIJSON)
	escrowABI   = mustParseABI(escrowABIJSON)
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("signer: invalid contract ABI: %v", err))
	}

	return parsed
}

// Contracts holds the addresses of the on-chain contracts a draft may target
type Contracts struct {
	GoldToken   common.Address `json:"goldToken"`
	StableToken common.Address `json:"stableToken"`
	Exchange    common.Address `json:"exchange"`
	Escrow      common.Address `json:"escrow"`
}

// Token returns the token contract for currency
func (c Contracts) Token(currency transaction.Currency) (common.Address, error) {
	switch currency {
	case transaction.CurrencyCELO:
		return c.GoldToken, nil
	case transaction.CurrencyCUSD:
		return c.StableToken, nil
	}

	return common.Address{}, errors.Errorf("no token contract for currency %q", currency)
}

// UnsignedTx encodes a prepared transaction as an EIP-1559 transaction
func (c Contracts) UnsignedTx(prepared *transaction.Prepared, nonce uint64, chainID *big.Int) (*types.Transaction, error) {
	if prepared == nil || chainID == nil {
		return nil, txfail.New(txfail.ReasonInvalidDraft, "prepared transaction and chain id are required")
	}

	to, value, data, err := c.call(prepared.Draft)
	if err != nil {
		return nil, txfail.Wrap(err, txfail.ReasonInvalidDraft, "failed to encode call data")
	}

	fee := prepared.Fee
	if fee.MaxFeePerGas == nil || fee.MaxPriorityFeePerGas == nil || fee.Gas == 0 {
		return nil, txfail.New(txfail.ReasonInvalidDraft, "fee candidate lacks gas pricing")
	}

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).Set(chainID),
		Nonce:     nonce,
		GasTipCap: new(big.Int).Set(fee.MaxPriorityFeePerGas),
		GasFeeCap: new(big.Int).Set(fee.MaxFeePerGas),
		Gas:       fee.Gas,
		To:        &to,
		Value:     value,
		Data:      data,
	}), nil
}

//nolint:cyclop // one branch per kind
func (c Contracts) call(draft transaction.Draft) (common.Address, *big.Int, []byte, error) {
	amount := draft.Amount
	if amount == nil {
		return common.Address{}, nil, nil, errors.New("amount is required")
	}

	switch draft.Kind {
	case transaction.KindNativeTransfer:
		return common.HexToAddress(draft.Recipient), new(big.Int).Set(amount), nil, nil
	case transaction.KindTokenTransfer:
		return c.tokenCall(draft.Currency, "transfer", common.HexToAddress(draft.Recipient), amount)
	case transaction.KindTokenTransferWithComment:
		return c.tokenCall(draft.Currency, "transferWithComment", common.HexToAddress(draft.Recipient), amount, draft.Comment)
	case transaction.KindTokenApprove:
		return c.tokenCall(draft.Currency, "approve", common.HexToAddress(draft.Recipient), amount)
	case transaction.KindTokenExchange:
		if draft.Exchange == nil || draft.Exchange.MinBuyAmount == nil {
			return common.Address{}, nil, nil, errors.New("exchange terms are required")
		}
		data, err := exchangeABI.Pack("sell", amount, draft.Exchange.MinBuyAmount, draft.Currency.Native())
		return c.Exchange, new(big.Int), data, errors.Wrap(err, "failed to pack sell")
	case transaction.KindEscrowTransfer:
		if draft.Escrow == nil {
			return common.Address{}, nil, nil, errors.New("escrow terms are required")
		}
		token, err := c.Token(draft.Currency)
		if err != nil {
			return common.Address{}, nil, nil, err
		}
		data, err := escrowABI.Pack("transfer",
			[32]byte{},
			token,
			amount,
			new(big.Int).SetUint64(draft.Escrow.ExpirySeconds),
			common.HexToAddress(draft.Escrow.PaymentID),
			new(big.Int),
		)
		return c.Escrow, new(big.Int), data, errors.Wrap(err, "failed to pack escrow transfer")
	case transaction.KindEscrowWithdraw:
		if draft.Escrow == nil || len(draft.Escrow.Signature) != escrowSignatureLength {
			return common.Address{}, nil, nil, errors.New("escrow withdraw requires a 65 byte signature")
		}
		var r, s [32]byte
		sig := draft.Escrow.Signature
		copy(r[:], sig[:32])
		copy(s[:], sig[32:64])
		data, err := escrowABI.Pack("withdraw", common.HexToAddress(draft.Escrow.PaymentID), sig[64], r, s)
		return c.Escrow, new(big.Int), data, errors.Wrap(err, "failed to pack escrow withdraw")
	}

	return common.Address{}, nil, nil, errors.Errorf("unsupported kind %s", draft.Kind)
}

func (c Contracts) tokenCall(currency transaction.Currency, method string, args ...any) (common.Address, *big.Int, []byte, error) {
	token, err := c.Token(currency)
	if err != nil {
		return common.Address{}, nil, nil, err
	}

	data, err := tokenABI.Pack(method, args...)
	if err != nil {
		return common.Address{}, nil, nil, errors.Wrapf(err, "failed to pack %s", method)
	}

	return token, new(big.Int), data, nil
}
