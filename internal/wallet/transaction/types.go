package transaction

import (
	"fmt"
	"math/big"
	"time"
)

// Currency identifies the asset an amount is denominated in
type Currency string

const (
	CurrencyCELO Currency = "CELO" // native asset
	CurrencyCUSD Currency = "cUSD" // stable token
)

// Currencies lists every supported currency
func Currencies() []Currency {
	return []Currency{CurrencyCELO, CurrencyCUSD}
}

// Valid reports whether c is a supported currency
func (c Currency) Valid() bool {
	switch c {
	case CurrencyCELO, CurrencyCUSD:
		return true
	}

	return false
}

// Native reports whether c is the chain's native asset
func (c Currency) Native() bool {
	return c == CurrencyCELO
}

// ParseCurrency parses a currency symbol, case sensitive as displayed by the wallet
func ParseCurrency(s string) (Currency, error) {
	c := Currency(s)
	if !c.Valid() {
		return "", fmt.Errorf("unsupported currency: %q", s)
	}

	return c, nil
}

// ExchangeTerms describes a CELO <-> cUSD exchange
type ExchangeTerms struct {
	MinBuyAmount *big.Int // minimum amount of the other currency to receive
}

// EscrowTerms describes an escrow payment or withdrawal
type EscrowTerms struct {
	PaymentID     string // hex address identifying the escrowed payment
	ExpirySeconds uint64
	Signature     []byte // withdraw only: 65 byte signature from the payment key
}

// Draft is the user's intent prior to fee and signature.
// It is treated as immutable once handed to the pipeline.
type Draft struct {
	Kind      Kind
	Recipient string   // hex address with 0x prefix
	Amount    *big.Int // base units
	Currency  Currency
	Comment   string
	Exchange  *ExchangeTerms
	Escrow    *EscrowTerms
}

// Descriptor is the transaction-type description a fee quote is requested for
type Descriptor struct {
	Kind        Kind
	Currency    Currency
	FeeCurrency Currency
}

// Key identifies descriptors that yield the same quote
func (d Descriptor) Key() string {
	return fmt.Sprintf("%s/%s/%s", d.Kind, d.Currency, d.FeeCurrency)
}

// FeeCandidate is one fee/priority tier quoted by the network
type FeeCandidate struct {
	Tier                 int
	Currency             Currency
	Amount               *big.Int // fee in base units
	Gas                  uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	ValidUntil           time.Time
}

// Expired reports whether the quote is no longer valid at now
func (f *FeeCandidate) Expired(now time.Time) bool {
	return !f.ValidUntil.IsZero() && now.After(f.ValidUntil)
}

// Clone returns a deep copy
func (f *FeeCandidate) Clone() *FeeCandidate {
	if f == nil {
		return nil
	}

	cp := *f
	cp.Amount = cloneInt(f.Amount)
	cp.MaxFeePerGas = cloneInt(f.MaxFeePerGas)
	cp.MaxPriorityFeePerGas = cloneInt(f.MaxPriorityFeePerGas)

	return &cp
}

// Prepared is a draft merged with its chosen fee, ready to be signed
type Prepared struct {
	Draft Draft
	Fee   FeeCandidate
	// Total is Amount+Fee when both share a currency, otherwise Amount alone
	Total       *big.Int
	FeeSeparate bool
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}

	return new(big.Int).Set(v)
}
