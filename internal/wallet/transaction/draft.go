package transaction

import (
	"fmt"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/go-txpipeline/internal/wallet/txfail"
)

const (
	// MaxCommentLength is the longest comment a transfer may carry, in characters
	MaxCommentLength = 70
	// escrowSignatureLength is r || s || v
	escrowSignatureLength = 65
)

// Normalize returns a copy with the comment variant of a token transfer selected
// when a comment is present
func (d Draft) Normalize() Draft {
	out := d.Clone()
	if out.Kind == KindTokenTransfer && out.Comment != "" {
		out.Kind = KindTokenTransferWithComment
	}

	return out
}

// Clone returns a deep copy so the pipeline never shares mutable state with the caller
func (d Draft) Clone() Draft {
	out := d
	out.Amount = cloneInt(d.Amount)

	if d.Exchange != nil {
		terms := *d.Exchange
		terms.MinBuyAmount = cloneInt(d.Exchange.MinBuyAmount)
		out.Exchange = &terms
	}

	if d.Escrow != nil {
		terms := *d.Escrow
		terms.Signature = append([]byte(nil), d.Escrow.Signature...)
		out.Escrow = &terms
	}

	return out
}

// Descriptor derives the fee descriptor of the draft, paying fees in feeCurrency
func (d Draft) Descriptor(feeCurrency Currency) Descriptor {
	return Descriptor{
		Kind:        d.Kind,
		Currency:    d.Currency,
		FeeCurrency: feeCurrency,
	}
}

// Validate checks the draft's contract. Failures carry ReasonInvalidDraft:
// they indicate an upstream bug, not a condition the user can fix by retrying.
func (d Draft) Validate() error {
	if !d.Kind.Valid() {
		return invalid("unknown transaction kind %d", int(d.Kind))
	}

	if !d.Currency.Valid() {
		return invalid("unsupported currency %q", d.Currency)
	}

	if d.Amount == nil {
		return invalid("amount is required")
	}

	if d.Amount.Sign() < 0 {
		return invalid("amount must not be negative")
	}

	if d.Comment != "" && d.Kind != KindTokenTransferWithComment {
		return invalid("comment is only supported on token transfers")
	}

	if utf8.RuneCountInString(d.Comment) > MaxCommentLength {
		return invalid("comment exceeds %d characters", MaxCommentLength)
	}

	return d.validateKind()
}

func (d Draft) validateKind() error {
	switch d.Kind {
	case KindNativeTransfer:
		if !d.Currency.Native() {
			return invalid("native transfer must be denominated in %s", CurrencyCELO)
		}

		return d.requirePositiveTransfer()
	case KindTokenTransfer, KindTokenTransferWithComment:
		return d.requirePositiveTransfer()
	case KindTokenApprove:
		// a zero amount revokes an allowance
		return requireAddress("spender", d.Recipient)
	case KindTokenExchange:
		if d.Amount.Sign() == 0 {
			return invalid("exchange amount must be positive")
		}

		if d.Exchange == nil || d.Exchange.MinBuyAmount == nil || d.Exchange.MinBuyAmount.Sign() < 0 {
			return invalid("exchange requires a non-negative minimum buy amount")
		}

		return nil
	case KindEscrowTransfer:
		if d.Amount.Sign() == 0 {
			return invalid("escrow amount must be positive")
		}

		if d.Escrow == nil {
			return invalid("escrow transfer requires escrow terms")
		}

		return requireAddress("payment id", d.Escrow.PaymentID)
	case KindEscrowWithdraw:
		if d.Escrow == nil {
			return invalid("escrow withdraw requires escrow terms")
		}

		if len(d.Escrow.Signature) != escrowSignatureLength {
			return invalid("escrow withdraw requires a %d byte signature", escrowSignatureLength)
		}

		return requireAddress("payment id", d.Escrow.PaymentID)
	case kindInvalid, kindEnd:
	}

	panic(fmt.Sprintf("transaction: unhandled kind %s", d.Kind))
}

func (d Draft) requirePositiveTransfer() error {
	if d.Amount.Sign() == 0 {
		return invalid("transfer amount must be positive")
	}

	return requireAddress("recipient", d.Recipient)
}

func requireAddress(field string, value string) error {
	if !common.IsHexAddress(value) {
		return invalid("%s %q is not a valid address", field, value)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return txfail.New(txfail.ReasonInvalidDraft, fmt.Sprintf(format, args...))
}
