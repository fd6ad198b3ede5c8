package types

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	oaerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/validate"
	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/wallet/saga"
	"github/chapool/go-txpipeline/internal/wallet/transaction"
)

var pipelineNames = map[string]struct{}{
	saga.PipelineSendToken:     {},
	saga.PipelineExchangeToken: {},
	saga.PipelineImportWallet:  {},
}

const (
	// uint256 has at most 78 decimal digits
	baseUnitsPattern = `^[0-9]{1,78}$`
	hexBytesPattern  = `^0x([0-9a-fA-F]{2})*$`
)

var currencyEnum = func() []interface{} {
	enum := make([]interface{}, 0, len(transaction.Currencies()))
	for _, c := range transaction.Currencies() {
		enum = append(enum, string(c))
	}

	return enum
}()

// KnownPipeline reports whether name is served by the API
func KnownPipeline(name string) bool {
	_, ok := pipelineNames[name]
	return ok
}

// PostFeesPayload requests fee candidates for a transaction type
type PostFeesPayload struct {
	Kind        transaction.Kind     `json:"kind"`
	Currency    transaction.Currency `json:"currency"`
	FeeCurrency transaction.Currency `json:"feeCurrency"`
	Count       int                  `json:"count"`
}

func (p *PostFeesPayload) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.Required("kind", "body", p.Kind); err != nil {
		res = append(res, err)
	}

	if err := validateCurrency("currency", p.Currency); err != nil {
		res = append(res, err)
	}

	if err := validateCurrency("feeCurrency", p.FeeCurrency); err != nil {
		res = append(res, err)
	}

	if err := validate.MinimumInt("count", "body", int64(p.Count), 0, false); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return oaerrors.CompositeValidationError(res...)
	}

	return nil
}

func (p *PostFeesPayload) Descriptor() transaction.Descriptor {
	return transaction.Descriptor{
		Kind:        p.Kind,
		Currency:    p.Currency,
		FeeCurrency: p.FeeCurrency,
	}
}

// FeeCandidate is a quoted fee tier with amounts as decimal base unit strings
type FeeCandidate struct {
	Tier                 int                  `json:"tier"`
	Currency             transaction.Currency `json:"currency"`
	Amount               string               `json:"amount"`
	Gas                  uint64               `json:"gas"`
	MaxFeePerGas         string               `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string               `json:"maxPriorityFeePerGas"`
	ValidUntil           strfmt.DateTime      `json:"validUntil"`
}

func FeeCandidateFromDomain(c transaction.FeeCandidate) *FeeCandidate {
	return &FeeCandidate{
		Tier:                 c.Tier,
		Currency:             c.Currency,
		Amount:               formatBaseUnits(c.Amount),
		Gas:                  c.Gas,
		MaxFeePerGas:         formatBaseUnits(c.MaxFeePerGas),
		MaxPriorityFeePerGas: formatBaseUnits(c.MaxPriorityFeePerGas),
		ValidUntil:           strfmt.DateTime(c.ValidUntil),
	}
}

// validate checks the wire format of a quote echoed back by a client; prefix names the field in error details
func (c *FeeCandidate) validate(prefix string) error {
	var res []error

	if err := validateCurrency(prefix+".currency", c.Currency); err != nil {
		res = append(res, err)
	}

	amounts := []struct{ field, value string }{
		{".amount", c.Amount},
		{".maxFeePerGas", c.MaxFeePerGas},
		{".maxPriorityFeePerGas", c.MaxPriorityFeePerGas},
	}
	for _, a := range amounts {
		if err := validateBaseUnits(prefix+a.field, a.value); err != nil {
			res = append(res, err)
		}
	}

	if err := validate.MinimumUint(prefix+".gas", "body", c.Gas, 1, false); err != nil {
		res = append(res, err)
	}

	if len(res) > 0 {
		return oaerrors.CompositeValidationError(res...)
	}

	return nil
}

func (c *FeeCandidate) ToDomain() (*transaction.FeeCandidate, error) {
	amount, err := ParseBaseUnits("fee.amount", c.Amount)
	if err != nil {
		return nil, err
	}

	maxFee, err := ParseBaseUnits("fee.maxFeePerGas", c.MaxFeePerGas)
	if err != nil {
		return nil, err
	}

	tip, err := ParseBaseUnits("fee.maxPriorityFeePerGas", c.MaxPriorityFeePerGas)
	if err != nil {
		return nil, err
	}

	return &transaction.FeeCandidate{
		Tier:                 c.Tier,
		Currency:             c.Currency,
		Amount:               amount,
		Gas:                  c.Gas,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: tip,
		ValidUntil:           time.Time(c.ValidUntil),
	}, nil
}

type PostFeesResponse struct {
	Candidates []*FeeCandidate `json:"candidates"`
}

func (r *PostFeesResponse) Validate(formats strfmt.Registry) error {
	if err := validate.Required("candidates", "body", r.Candidates); err != nil {
		return err
	}

	var res []error
	for i, c := range r.Candidates {
		if c == nil {
			continue
		}

		if err := c.validate("candidates." + strconv.Itoa(i)); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return oaerrors.CompositeValidationError(res...)
	}

	return nil
}

type ExchangeTerms struct {
	MinBuyAmount string `json:"minBuyAmount"`
}

type EscrowTerms struct {
	PaymentID     string `json:"paymentId"`
	ExpirySeconds uint64 `json:"expirySeconds,omitempty"`
	Signature     string `json:"signature,omitempty"` // 0x-prefixed hex
}

// PostSubmitPayload is a draft plus an optional fee picked from a previous quote.
// Without a fee the server estimates one inside the attempt.
type PostSubmitPayload struct {
	Kind      transaction.Kind     `json:"kind"`
	Recipient string               `json:"recipient,omitempty"`
	Amount    string               `json:"amount"`
	Currency  transaction.Currency `json:"currency"`
	Comment   string               `json:"comment,omitempty"`
	Exchange  *ExchangeTerms       `json:"exchange,omitempty"`
	Escrow    *EscrowTerms         `json:"escrow,omitempty"`
	Fee       *FeeCandidate        `json:"fee,omitempty"`
}

// Validate checks the wire format only, draft rules are enforced by the pipeline
func (p *PostSubmitPayload) Validate(formats strfmt.Registry) error {
	var res []error

	if err := validate.Required("kind", "body", p.Kind); err != nil {
		res = append(res, err)
	}

	if err := validateBaseUnits("amount", p.Amount); err != nil {
		res = append(res, err)
	}

	if err := validateCurrency("currency", p.Currency); err != nil {
		res = append(res, err)
	}

	if p.Exchange != nil {
		if err := validateBaseUnits("exchange.minBuyAmount", p.Exchange.MinBuyAmount); err != nil {
			res = append(res, err)
		}
	}

	if p.Escrow != nil && p.Escrow.Signature != "" {
		if err := validate.Pattern("escrow.signature", "body", p.Escrow.Signature, hexBytesPattern); err != nil {
			res = append(res, err)
		}
	}

	if p.Fee != nil {
		if err := p.Fee.validate("fee"); err != nil {
			res = append(res, err)
		}
	}

	if len(res) > 0 {
		return oaerrors.CompositeValidationError(res...)
	}

	return nil
}

// ToDraft converts a validated payload
func (p *PostSubmitPayload) ToDraft() (transaction.Draft, *transaction.FeeCandidate, error) {
	amount, err := ParseBaseUnits("amount", p.Amount)
	if err != nil {
		return transaction.Draft{}, nil, err
	}

	draft := transaction.Draft{
		Kind:      p.Kind,
		Recipient: p.Recipient,
		Amount:    amount,
		Currency:  p.Currency,
		Comment:   p.Comment,
	}

	if p.Exchange != nil {
		minBuy, err := ParseBaseUnits("exchange.minBuyAmount", p.Exchange.MinBuyAmount)
		if err != nil {
			return transaction.Draft{}, nil, err
		}

		draft.Exchange = &transaction.ExchangeTerms{MinBuyAmount: minBuy}
	}

	if p.Escrow != nil {
		draft.Escrow = &transaction.EscrowTerms{
			PaymentID:     p.Escrow.PaymentID,
			ExpirySeconds: p.Escrow.ExpirySeconds,
		}

		if p.Escrow.Signature != "" {
			draft.Escrow.Signature, err = hexutil.Decode(p.Escrow.Signature)
			if err != nil {
				return transaction.Draft{}, nil, errors.Wrap(err, "escrow.signature")
			}
		}
	}

	if p.Fee == nil {
		return draft, nil, nil
	}

	fee, err := p.Fee.ToDomain()
	if err != nil {
		return transaction.Draft{}, nil, err
	}

	return draft, fee, nil
}

type PostCancelPayload struct {
	Attempt uint64 `json:"attempt"`
}

func (p *PostCancelPayload) Validate(formats strfmt.Registry) error {
	if err := validate.MinimumUint("attempt", "body", p.Attempt, 1, false); err != nil {
		return err
	}

	return nil
}

type PostCancelResponse struct {
	Cancelled bool       `json:"cancelled"`
	State     saga.State `json:"state"`
}

// ParseBaseUnits parses a non-negative integer amount in base units
func ParseBaseUnits(field string, value string) (*big.Int, error) {
	if err := validateBaseUnits(field, value); err != nil {
		return nil, err
	}

	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok {
		return nil, errors.Errorf("%s must be a non-negative integer in base units", field)
	}

	return v, nil
}

func validateBaseUnits(field string, value string) error {
	value = strings.TrimSpace(value)

	if err := validate.RequiredString(field, "body", value); err != nil {
		return err
	}

	if err := validate.Pattern(field, "body", value, baseUnitsPattern); err != nil {
		return err
	}

	return nil
}

func validateCurrency(field string, c transaction.Currency) error {
	if err := validate.RequiredString(field, "body", string(c)); err != nil {
		return err
	}

	if err := validate.EnumCase(field, "body", string(c), currencyEnum, true); err != nil {
		return err
	}

	return nil
}

func formatBaseUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}

	return v.String()
}
